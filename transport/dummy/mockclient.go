package dummy

import (
	"io"

	"github.com/indigo-web/h1parse/transport"
)

var _ transport.Client = new(Client)

// Client returns the blocks it was initialised with one by one and then io.EOF. Every
// block is copied into the same internal buffer before being returned, so the code under
// test can't rely on a block staying unchanged after the next read.
type Client struct {
	data    [][]byte
	pointer int
	tmp     []byte
	buff    []byte
	reads   int
	eofLast bool
}

func NewMockClient(data ...[]byte) *Client {
	return &Client{
		data: data,
	}
}

func (c *Client) Read() (data []byte, err error) {
	if len(c.tmp) > 0 {
		data, c.tmp = c.tmp, nil

		return data, nil
	}

	if c.pointer >= len(c.data) {
		return nil, io.EOF
	}

	piece := c.data[c.pointer]
	c.pointer++
	c.reads++
	c.buff = append(c.buff[:0], piece...)

	if c.eofLast && c.pointer == len(c.data) {
		return c.buff, io.EOF
	}

	return c.buff, nil
}

func (c *Client) Pushback(takeback []byte) {
	c.tmp = takeback
}

// EOFWithLast makes the last block be returned together with io.EOF, as some readers do.
func (c *Client) EOFWithLast() *Client {
	c.eofLast = true
	return c
}

// Reads returns the number of blocks pulled from the source. Pushed back data doesn't count.
func (c *Client) Reads() int {
	return c.reads
}

// Rest returns everything that wasn't consumed yet, including pushed back data.
func (c *Client) Rest() string {
	rest := string(c.tmp)
	for _, piece := range c.data[c.pointer:] {
		rest += string(piece)
	}

	return rest
}
