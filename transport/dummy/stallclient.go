package dummy

import (
	"sync"

	"github.com/indigo-web/h1parse/transport"
)

var (
	_ transport.Client      = new(StallClient)
	_ transport.Interrupter = new(StallClient)
)

// StallClient returns its data and then blocks on the next read until interrupted.
type StallClient struct {
	data        []byte
	once        sync.Once
	interrupted chan struct{}
	tmp         []byte
}

func NewStallClient(data []byte) *StallClient {
	return &StallClient{
		data:        data,
		interrupted: make(chan struct{}),
	}
}

func (s *StallClient) Read() (data []byte, err error) {
	if len(s.tmp) > 0 {
		data, s.tmp = s.tmp, nil
		return data, nil
	}

	if len(s.data) > 0 {
		data, s.data = s.data, nil
		return data, nil
	}

	<-s.interrupted
	return nil, transport.ErrInterrupted
}

func (s *StallClient) Pushback(takeback []byte) {
	s.tmp = takeback
}

func (s *StallClient) Interrupt() {
	s.once.Do(func() {
		close(s.interrupted)
	})
}

// Interrupted reports whether Interrupt was called.
func (s *StallClient) Interrupted() bool {
	select {
	case <-s.interrupted:
		return true
	default:
		return false
	}
}
