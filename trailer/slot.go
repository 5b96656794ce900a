package trailer

import (
	"context"
	"sync"

	"github.com/indigo-web/h1parse/kv"
)

// Slot is a single-assignment container for trailer fields. It's settled at most once, either
// by Fulfill or by Fail, and may be awaited by any number of readers. Readers waiting for an
// unsettled slot are suspended without affecting the writer or each other.
type Slot struct {
	once     sync.Once
	done     chan struct{}
	trailers *kv.Storage
	err      error
}

func New() *Slot {
	return &Slot{done: make(chan struct{})}
}

// Fulfill settles the slot with the trailers. Returns false if the slot was already settled.
func (s *Slot) Fulfill(trailers *kv.Storage) bool {
	return s.settle(trailers, nil)
}

// Fail settles the slot with an error, so waiting readers won't hang forever if the body
// couldn't be read up to the trailers. Returns false if the slot was already settled.
func (s *Slot) Fail(err error) bool {
	return s.settle(nil, err)
}

func (s *Slot) settle(trailers *kv.Storage, err error) (settled bool) {
	s.once.Do(func() {
		s.trailers, s.err = trailers, err
		close(s.done)
		settled = true
	})

	return settled
}

// Done returns a channel, closed as soon as the slot is settled.
func (s *Slot) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the slot is settled or the context is done.
func (s *Slot) Wait(ctx context.Context) (*kv.Storage, error) {
	select {
	case <-s.done:
		return s.trailers, s.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Peek returns the settled value without blocking. ready is false if the slot isn't settled yet.
func (s *Slot) Peek() (trailers *kv.Storage, err error, ready bool) {
	select {
	case <-s.done:
		return s.trailers, s.err, true
	default:
		return nil, nil, false
	}
}
