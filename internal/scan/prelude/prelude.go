// Package prelude implements resumable scanning of the first line of a message: the
// request-line of a request or the status-line of a response.
package prelude

import (
	"github.com/indigo-web/h1parse/errors"
	"github.com/indigo-web/h1parse/http"
	"github.com/indigo-web/h1parse/http/method"
	"github.com/indigo-web/h1parse/http/proto"
	"github.com/indigo-web/h1parse/http/status"
	"github.com/indigo-web/h1parse/http/uri"
	"github.com/indigo-web/h1parse/internal/scan"
	"github.com/indigo-web/utils/uf"
)

// Field is the index of the field being read. Fields are separated by a single space, the
// last one is terminated by CRLF.
type Field uint8

const (
	ReadMethod Field = iota
	ReadURI
	ReadVersion
)

const (
	ReadStatusVersion Field = iota
	ReadStatusCode
	ReadReasonPhrase
)

// RequestState is the progress of scanning a request-line. Cursor is the offset in the
// buffer to continue from, FieldStart is the offset where the current field begins.
type RequestState struct {
	Cursor     int
	FieldStart int
	Field      Field
	Line       http.RequestLine
}

func (s RequestState) Annotate(err *errors.Error) {
	if s.Field > ReadMethod {
		line := s.Line
		err.RequestLine = &line
	}
}

// ScanRequest scans the request-line. Recognized fields are stored in the state and never
// parsed again.
func ScanRequest(buf []byte, st RequestState) scan.Outcome[RequestState, http.RequestLine] {
	for i := st.Cursor; i < len(buf); i++ {
		switch st.Field {
		case ReadMethod:
			switch buf[i] {
			case ' ':
				m, err := method.Parse(uf.B2S(buf[st.FieldStart:i]))
				if err != nil {
					return failRequest(st, err)
				}

				st.Line.Method = m
				st.Field, st.FieldStart = ReadURI, i+1
			case '\n':
				return failRequest(st, errors.ErrMissingFields)
			}
		case ReadURI:
			switch buf[i] {
			case ' ':
				target, err := uri.Parse(string(buf[st.FieldStart:i]))
				if err != nil {
					return failRequest(st, err)
				}

				st.Line.Target = target
				st.Field, st.FieldStart = ReadVersion, i+1
			case '\n':
				return failRequest(st, errors.ErrMissingFields)
			}
		case ReadVersion:
			if buf[i] != '\r' {
				continue
			}

			if i+1 == len(buf) {
				st.Cursor = i
				return scan.More[RequestState, http.RequestLine](st)
			}

			if buf[i+1] != '\n' {
				continue
			}

			p, err := proto.Parse(uf.B2S(buf[st.FieldStart:i]))
			if err != nil {
				return failRequest(st, err)
			}

			st.Line.Proto = p
			return scan.Done[RequestState](st.Line, buf[i+2:])
		}
	}

	st.Cursor = len(buf)
	return scan.More[RequestState, http.RequestLine](st)
}

func failRequest(st RequestState, cause error) scan.Outcome[RequestState, http.RequestLine] {
	err := errors.New(errors.MalformedPrelude, cause)
	st.Annotate(err)
	return scan.Fail[RequestState, http.RequestLine](st, err)
}

// ResponseState is the progress of scanning a status-line. See RequestState.
type ResponseState struct {
	Cursor     int
	FieldStart int
	Field      Field
	Line       http.StatusLine
}

func (s ResponseState) Annotate(err *errors.Error) {
	if s.Field > ReadStatusVersion {
		line := s.Line
		err.StatusLine = &line
	}
}

// ScanResponse scans the status-line. A status code directly followed by CRLF is treated as
// a status-line with an empty reason phrase.
func ScanResponse(buf []byte, st ResponseState) scan.Outcome[ResponseState, http.StatusLine] {
	for i := st.Cursor; i < len(buf); i++ {
		switch st.Field {
		case ReadStatusVersion:
			switch buf[i] {
			case ' ':
				p, err := proto.Parse(uf.B2S(buf[st.FieldStart:i]))
				if err != nil {
					return failResponse(st, err)
				}

				st.Line.Proto = p
				st.Field, st.FieldStart = ReadStatusCode, i+1
			case '\n':
				return failResponse(st, errors.ErrMissingFields)
			}
		case ReadStatusCode:
			switch buf[i] {
			case ' ':
				code, err := status.FromCodeAndReason(uf.B2S(buf[st.FieldStart:i]), "")
				if err != nil {
					return failResponse(st, err)
				}

				st.Line.Status = code
				st.Field, st.FieldStart = ReadReasonPhrase, i+1
			case '\r':
				if i+1 == len(buf) {
					st.Cursor = i
					return scan.More[ResponseState, http.StatusLine](st)
				}

				if buf[i+1] != '\n' {
					continue
				}

				code, err := status.FromCodeAndReason(uf.B2S(buf[st.FieldStart:i]), "")
				if err != nil {
					return failResponse(st, err)
				}

				st.Line.Status = code
				return scan.Done[ResponseState](st.Line, buf[i+2:])
			case '\n':
				return failResponse(st, errors.ErrMissingFields)
			}
		case ReadReasonPhrase:
			if buf[i] != '\r' {
				continue
			}

			if i+1 == len(buf) {
				st.Cursor = i
				return scan.More[ResponseState, http.StatusLine](st)
			}

			if buf[i+1] != '\n' {
				continue
			}

			st.Line.Status.Reason = string(buf[st.FieldStart:i])
			return scan.Done[ResponseState](st.Line, buf[i+2:])
		}
	}

	st.Cursor = len(buf)
	return scan.More[ResponseState, http.StatusLine](st)
}

func failResponse(st ResponseState, cause error) scan.Outcome[ResponseState, http.StatusLine] {
	err := errors.New(errors.MalformedPrelude, cause)
	st.Annotate(err)
	return scan.Fail[ResponseState, http.StatusLine](st, err)
}
