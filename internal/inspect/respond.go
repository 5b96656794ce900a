package inspect

import (
	"strconv"

	"github.com/indigo-web/h1parse/errors"
	"github.com/indigo-web/h1parse/http/method"
	"github.com/indigo-web/h1parse/http/proto"
	"github.com/indigo-web/h1parse/http/status"
	"github.com/valyala/bytebufferpool"
)

// statusOf maps a failure of parsing or reading the request into the response code.
// Zero means that nothing can be answered, as the peer has gone.
func statusOf(err error) status.Code {
	switch errors.KindOf(err) {
	case errors.EmptyStream, errors.UnexpectedEndOfStream:
		return 0
	case errors.MaxLengthExceeded:
		return status.RequestHeaderFieldsTooLarge
	case errors.Timeout:
		return status.RequestTimeout
	}

	switch {
	case errors.Is(err, errors.ErrBodyTooLarge):
		return status.RequestEntityTooLarge
	case errors.Is(err, proto.ErrNotSupported):
		return status.HTTPVersionNotSupported
	case errors.Is(err, method.ErrNotImplemented):
		return status.NotImplemented
	case errors.KindOf(err) != 0, errors.Is(err, errors.ErrBadChunk):
		return status.BadRequest
	default:
		return 0
	}
}

// render writes a complete response into the buffer.
func render(buf *bytebufferpool.ByteBuffer, code status.Code, contentType string, body []byte, closeConn bool) {
	buf.B = append(buf.B, "HTTP/1.1 "...)
	buf.B = strconv.AppendUint(buf.B, uint64(code), 10)
	buf.B = append(buf.B, ' ')
	buf.B = append(buf.B, status.Text(code)...)
	buf.B = append(buf.B, "\r\nContent-Type: "...)
	buf.B = append(buf.B, contentType...)
	buf.B = append(buf.B, "\r\nContent-Length: "...)
	buf.B = strconv.AppendInt(buf.B, int64(len(body)), 10)
	buf.B = append(buf.B, "\r\n"...)

	if closeConn {
		buf.B = append(buf.B, "Connection: close\r\n"...)
	}

	buf.B = append(buf.B, "\r\n"...)
	buf.B = append(buf.B, body...)
}
