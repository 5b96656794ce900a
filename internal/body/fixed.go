// Package body implements retrievers of bodies, which length is known in advance.
package body

import (
	"io"

	"github.com/indigo-web/h1parse/errors"
	"github.com/indigo-web/h1parse/transport"
)

// Fixed yields exactly the declared amount of bytes. The bytes following the body are
// pushed back into the client.
type Fixed struct {
	client  transport.Client
	left    uint64
	tooLong bool
}

func NewFixed(client transport.Client, length, maxSize uint64) *Fixed {
	return &Fixed{
		client:  client,
		left:    length,
		tooLong: length > maxSize,
	}
}

func (f *Fixed) Retrieve() (body []byte, err error) {
	if f.tooLong {
		return nil, errors.ErrBodyTooLarge
	}

	if f.left == 0 {
		return nil, io.EOF
	}

	data, err := f.client.Read()
	for len(data) == 0 {
		switch err {
		case nil:
			data, err = f.client.Read()
		case io.EOF:
			return nil, io.ErrUnexpectedEOF
		default:
			return nil, err
		}
	}

	if dataLen := uint64(len(data)); dataLen >= f.left {
		body, data = data[:f.left], data[f.left:]
		f.client.Pushback(data)
		f.left = 0

		return body, io.EOF
	}

	f.left -= uint64(len(data))
	return data, nil
}
