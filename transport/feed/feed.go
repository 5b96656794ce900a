// Package feed adapts push-based data sources, e.g. event loops, to transport.Client.
// The owner of the data pushes blocks via Feed, while the parser pulls them via Read
// from another goroutine.
package feed

import (
	"io"
	"sync"

	"github.com/indigo-web/h1parse/transport"
)

var (
	_ transport.Client      = new(Client)
	_ transport.Interrupter = new(Client)
)

type Client struct {
	mu          sync.Mutex
	cond        *sync.Cond
	queue       []byte
	reading     []byte
	pending     []byte
	closed      bool
	interrupted bool
}

func New() *Client {
	c := new(Client)
	c.cond = sync.NewCond(&c.mu)
	return c
}

// Feed appends a copy of the data to the queue. Data fed after Close is dropped.
func (c *Client) Feed(data []byte) {
	c.mu.Lock()
	if !c.closed {
		c.queue = append(c.queue, data...)
		c.cond.Signal()
	}
	c.mu.Unlock()
}

// Close marks the end of the stream. Reads will return the queued data first.
func (c *Client) Close() {
	c.mu.Lock()
	c.closed = true
	c.cond.Broadcast()
	c.mu.Unlock()
}

// Interrupt makes all the pending and further reads fail with transport.ErrInterrupted.
func (c *Client) Interrupt() {
	c.mu.Lock()
	c.interrupted = true
	c.cond.Broadcast()
	c.mu.Unlock()
}

// Read blocks until there is data, the stream is closed, or the client is interrupted.
func (c *Client) Read() ([]byte, error) {
	if len(c.pending) > 0 {
		pending := c.pending
		c.pending = nil

		return pending, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for len(c.queue) == 0 && !c.closed && !c.interrupted {
		c.cond.Wait()
	}

	switch {
	case c.interrupted:
		return nil, transport.ErrInterrupted
	case len(c.queue) == 0:
		return nil, io.EOF
	}

	// swap the buffers, so the returned block stays valid until the next read, while
	// new data is appended into the other one.
	c.reading, c.queue = c.queue, c.reading[:0]
	return c.reading, nil
}

// Pushback must be called only by the reading goroutine.
func (c *Client) Pushback(b []byte) {
	c.pending = b
}
