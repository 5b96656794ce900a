package http

import (
	"strings"

	"github.com/indigo-web/h1parse/http/proto"
	"github.com/indigo-web/h1parse/http/status"
)

// StatusLine is the prelude of a response. While being parsed, the fields which aren't
// recognized yet hold their zero values.
type StatusLine struct {
	Proto  proto.Proto
	Status status.Status
}

func (s StatusLine) String() string {
	var b strings.Builder
	if s.Proto != proto.Unknown {
		b.WriteString(s.Proto.String())
	}

	if s.Status.Code != 0 {
		b.WriteByte(' ')
		b.WriteString(s.Status.String())
	}

	return b.String()
}

type Response struct {
	StatusLine
	Message
}
