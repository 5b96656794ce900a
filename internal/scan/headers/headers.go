// Package headers implements resumable scanning of a header block, terminated by an empty
// line. The same scanner is used for trailer blocks of chunked bodies.
package headers

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/indigo-web/h1parse/errors"
	"github.com/indigo-web/h1parse/internal/scan"
	"github.com/indigo-web/h1parse/kv"
	"github.com/indigo-web/utils/strcomp"
)

type Phase uint8

const (
	// NameOrTerminator is the beginning of a line: either a header name or the empty
	// line terminating the block.
	NameOrTerminator Phase = iota
	// Value is the value of the header, which name is already known.
	Value
)

// Block is the result of scanning. Headers are in the order of their arrival, duplicates
// included.
type Block struct {
	Headers          []kv.Pair
	Chunked          bool
	ContentLength    uint64
	HasContentLength bool
}

type State struct {
	Cursor     int
	LineStart  int
	ValueStart int
	Phase      Phase
	Name       string
	Block      Block
}

// NewState returns an initial state with prealloc seats for headers.
func NewState(prealloc int) State {
	return State{
		Block: Block{Headers: make([]kv.Pair, 0, prealloc)},
	}
}

func (s State) Annotate(err *errors.Error) {
	err.Headers = s.Block.Headers
}

// Scan scans header lines until the empty line. A colon is followed by at most one
// skipped space, while the rest of the value is kept untouched. Only CRLF terminates a
// line.
func Scan(buf []byte, st State) scan.Outcome[State, Block] {
	i := st.Cursor

	for i < len(buf) {
		switch st.Phase {
		case NameOrTerminator:
			for ; i < len(buf); i++ {
				switch buf[i] {
				case ':':
					if i == st.LineStart {
						return fail(st, errors.ErrEmptyHeaderName)
					}

					if i+1 == len(buf) {
						// the space after the colon isn't known yet
						st.Cursor = i
						return scan.More[State, Block](st)
					}

					st.Name = string(buf[st.LineStart:i])
					st.ValueStart = i + 1
					if buf[i+1] == ' ' {
						st.ValueStart++
					}

					st.Phase = Value
					i = st.ValueStart
				case '\r':
					if i+1 == len(buf) {
						st.Cursor = i
						return scan.More[State, Block](st)
					}

					if buf[i+1] != '\n' {
						continue
					}

					if i != st.LineStart {
						return fail(st, errors.ErrMissingColon)
					}

					return scan.Done[State](st.Block, buf[i+2:])
				default:
					continue
				}

				break
			}
		case Value:
			cr := bytes.IndexByte(buf[i:], '\r')
			if cr == -1 {
				i = len(buf)
				break
			}

			cr += i
			if cr+1 == len(buf) {
				st.Cursor = cr
				return scan.More[State, Block](st)
			}

			if buf[cr+1] != '\n' {
				i = cr + 1
				break
			}

			value := string(buf[st.ValueStart:cr])
			if err := st.Block.add(st.Name, value); err != nil {
				return fail(st, err)
			}

			st.Phase = NameOrTerminator
			st.Name = ""
			st.LineStart = cr + 2
			i = st.LineStart
		}
	}

	st.Cursor = len(buf)
	return scan.More[State, Block](st)
}

func (b *Block) add(name, value string) error {
	b.Headers = append(b.Headers, kv.Pair{Key: name, Value: value})

	switch len(name) {
	case len("Content-Length"):
		if strcomp.EqualFold(name, "Content-Length") {
			length, err := strconv.ParseUint(value, 10, 64)
			if err != nil {
				return fmt.Errorf("%w: %q", errors.ErrBadContentLength, value)
			}

			b.ContentLength, b.HasContentLength = length, true
		}
	case len("Transfer-Encoding"):
		if strcomp.EqualFold(name, "Transfer-Encoding") {
			b.Chunked = strings.Contains(value, "chunked")
		}
	}

	return nil
}

func fail(st State, cause error) scan.Outcome[State, Block] {
	err := errors.New(errors.MalformedHeaderBlock, cause)
	st.Annotate(err)
	return scan.Fail[State, Block](st, err)
}
