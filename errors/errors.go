package errors

import (
	"errors"
	"strconv"
	"strings"

	"github.com/indigo-web/h1parse/http"
	"github.com/indigo-web/h1parse/kv"
)

// Kind classifies parsing failures. Every kind is an error itself, so it can be used as
// a target for errors.Is:
//
//	if errors.Is(err, errors.MaxLengthExceeded) { ... }
type Kind uint8

const (
	// EmptyStream means that the stream has ended before any byte was received.
	EmptyStream Kind = iota + 1
	// UnexpectedEndOfStream means that the stream has ended in the middle of the message.
	UnexpectedEndOfStream
	// MaxLengthExceeded means that the buffered data has outgrown the configured limit.
	MaxLengthExceeded
	// MalformedPrelude means that a field of the request- or status-line is invalid.
	MalformedPrelude
	// MalformedHeaderBlock means that the header block can't be interpreted.
	MalformedHeaderBlock
	// Timeout means that the message head wasn't received in time.
	Timeout
)

func (k Kind) Error() string {
	switch k {
	case EmptyStream:
		return "empty stream"
	case UnexpectedEndOfStream:
		return "unexpected end of stream"
	case MaxLengthExceeded:
		return "max length exceeded"
	case MalformedPrelude:
		return "malformed prelude"
	case MalformedHeaderBlock:
		return "malformed header block"
	case Timeout:
		return "timeout"
	default:
		return "unknown error kind"
	}
}

func (k Kind) String() string {
	return k.Error()
}

var (
	ErrBodyTooLarge     = errors.New("body is too large")
	ErrBadChunk         = errors.New("malformed chunk-encoded data")
	ErrMissingColon     = errors.New("header line has no colon")
	ErrEmptyHeaderName  = errors.New("header name is empty")
	ErrMissingFields    = errors.New("start-line ended too early")
	ErrBadContentLength = errors.New("bad Content-Length value")
)

// Error is a terminal failure of a single parse attempt. Besides the kind, it carries
// everything that was recognized before the failure, so it can be logged without parsing
// the data once more.
type Error struct {
	Kind Kind
	// Size and Limit are set for MaxLengthExceeded.
	Size, Limit int
	// RequestLine or StatusLine hold the recognized part of the start-line, depending on
	// which kind of message was parsed.
	RequestLine *http.RequestLine
	StatusLine  *http.StatusLine
	// Headers are the header fields parsed so far.
	Headers []kv.Pair
	// Cause is the underlying failure, if any.
	Cause error
}

func New(kind Kind, cause error) *Error {
	return &Error{Kind: kind, Cause: cause}
}

// TooLong reports that the buffer has reached size bytes, while only limit is allowed.
func TooLong(size, limit int) *Error {
	return &Error{Kind: MaxLengthExceeded, Size: size, Limit: limit}
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())

	if e.Kind == MaxLengthExceeded {
		b.WriteString(": ")
		b.WriteString(strconv.Itoa(e.Size))
		b.WriteString(" > ")
		b.WriteString(strconv.Itoa(e.Limit))
	}

	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}

	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether the target is the kind of the error.
func (e *Error) Is(target error) bool {
	kind, ok := target.(Kind)
	return ok && kind == e.Kind
}

// Prelude returns the recognized part of the start-line as a string, empty if nothing
// was recognized.
func (e *Error) Prelude() string {
	switch {
	case e.RequestLine != nil:
		return e.RequestLine.String()
	case e.StatusLine != nil:
		return e.StatusLine.String()
	default:
		return ""
	}
}

// Is and As are the standard ones, so the package may be used in place of errors.
var (
	Is = errors.Is
	As = errors.As
)

// KindOf extracts the kind out of the error chain, returning 0 if there's none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	var kind Kind
	if errors.As(err, &kind) {
		return kind
	}

	return 0
}
