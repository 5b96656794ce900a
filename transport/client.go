package transport

import (
	"errors"
	"net"
	"time"
)

// ErrInterrupted is returned by clients, whose Read was unblocked via Interrupt.
var ErrInterrupted = errors.New("read interrupted")

// Client is a pull-based source of byte blocks. A block returned by Read is valid only
// until the next call to Read.
type Client interface {
	// Read returns the next block. Blocks returned along with io.EOF are still valid.
	Read() ([]byte, error)
	// Pushback returns an unconsumed part of the data back, so it'll be returned by the
	// next Read before anything else.
	Pushback([]byte)
}

// Interrupter is implemented by clients, whose blocking Read can be unblocked from
// another goroutine. The interrupted Read returns an error.
type Interrupter interface {
	Interrupt()
}

// Interrupt unblocks the pending Read on the client, if it supports that. Reports whether
// the client was interrupted.
func Interrupt(c Client) bool {
	i, ok := c.(Interrupter)
	if ok {
		i.Interrupt()
	}

	return ok
}

var _ Interrupter = new(client)

type client struct {
	conn    net.Conn
	buff    []byte
	pending []byte
	timeout time.Duration
}

// NewClient wraps the connection. Every read is limited by the timeout, zero disables it.
// The buff is used for reading, so its size limits the size of blocks.
func NewClient(conn net.Conn, timeout time.Duration, buff []byte) Client {
	return &client{
		buff:    buff,
		conn:    conn,
		timeout: timeout,
	}
}

// Read reads data into the internal buffer and returns a piece of it back. Timeouts are also
// handled automatically.
func (c *client) Read() ([]byte, error) {
	if len(c.pending) > 0 {
		pending := c.pending
		c.pending = nil

		return pending, nil
	}

	if c.timeout > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
			return nil, err
		}
	}

	n, err := c.conn.Read(c.buff)
	return c.buff[:n], err
}

// Pushback preserves a chunk of data from previous read for the next read.
func (c *client) Pushback(b []byte) {
	c.pending = b
}

// Interrupt makes the pending read fail immediately.
func (c *client) Interrupt() {
	_ = c.conn.SetReadDeadline(time.Now())
}
