package http

import (
	"strings"

	"github.com/indigo-web/h1parse/http/method"
	"github.com/indigo-web/h1parse/http/proto"
	"github.com/indigo-web/h1parse/http/uri"
)

// RequestLine is the prelude of a request. While being parsed, the fields which aren't
// recognized yet hold their zero values.
type RequestLine struct {
	Method method.Method
	Target uri.URI
	Proto  proto.Proto
}

func (r RequestLine) String() string {
	var b strings.Builder
	if r.Method != method.Unknown {
		b.WriteString(r.Method.String())
	}

	if r.Target.Form != uri.Unknown {
		b.WriteByte(' ')
		b.WriteString(r.Target.Raw)
	}

	if r.Proto != proto.Unknown {
		b.WriteByte(' ')
		b.WriteString(r.Proto.String())
	}

	return b.String()
}

type Request struct {
	RequestLine
	Message
}
