// Package httptest contains helpers for building and checking raw messages in tests.
package httptest

import (
	"io"
	"strconv"
	"strings"

	"github.com/indigo-web/chunkedbody"
	"github.com/indigo-web/h1parse/http"
	"github.com/indigo-web/h1parse/kv"
	"github.com/indigo-web/utils/uf"
)

// Dump serializes the request head back. The body isn't touched.
func Dump(request *http.Request) string {
	var buff []byte

	buff = append(buff, request.Method.String()...)
	buff = space(buff)
	buff = append(buff, request.Target.Raw...)
	buff = space(buff)
	buff = append(buff, request.Proto.String()...)
	buff = crlf(buff)
	buff = headers(buff, request.Headers)

	return string(crlf(buff))
}

// DumpResponse serializes the response head back. The body isn't touched.
func DumpResponse(response *http.Response) string {
	var buff []byte

	buff = append(buff, response.Proto.String()...)
	buff = space(buff)
	buff = strconv.AppendUint(buff, uint64(response.Status.Code), 10)
	buff = space(buff)
	buff = append(buff, response.Status.Reason...)
	buff = crlf(buff)
	buff = headers(buff, response.Headers)

	return string(crlf(buff))
}

// EncodeChunked splits the body into chunks of at most chunkSize bytes and terminates them
// with the last chunk followed by the trailers.
func EncodeChunked(body string, chunkSize int, trailers ...kv.Pair) string {
	var b strings.Builder

	for len(body) > 0 {
		n := min(chunkSize, len(body))
		b.WriteString(strconv.FormatInt(int64(n), 16))
		b.WriteString("\r\n")
		b.WriteString(body[:n])
		b.WriteString("\r\n")
		body = body[n:]
	}

	b.WriteString("0\r\n")
	for _, pair := range trailers {
		b.WriteString(pair.Key + ": " + pair.Value + "\r\n")
	}
	b.WriteString("\r\n")

	return b.String()
}

// DecodeChunked decodes the chunked body with an independent decoder, so the results
// can be compared.
func DecodeChunked(data string, trailer bool) (string, error) {
	var buff []byte
	parser := chunkedbody.NewParser(chunkedbody.DefaultSettings())

	for len(data) > 0 {
		chunk, extra, err := parser.Parse(uf.S2B(data), trailer)
		buff = append(buff, chunk...)
		switch err {
		case nil:
		case io.EOF:
			return string(buff), nil
		default:
			return "", err
		}

		data = string(extra)
	}

	return string(buff), io.ErrUnexpectedEOF
}

func headers(buff []byte, storage *kv.Storage) []byte {
	for key, value := range storage.Pairs() {
		buff = append(buff, key...)
		buff = append(buff, ':', ' ')
		buff = append(buff, value...)
		buff = crlf(buff)
	}

	return buff
}

func space(b []byte) []byte {
	return append(b, ' ')
}

func crlf(b []byte) []byte {
	return append(b, '\r', '\n')
}
