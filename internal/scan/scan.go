// Package scan defines the contract between resumable scanners and the loop driving them.
// A scanner is a pure function over the bytes received so far and its own state. It
// never blocks and never reads by itself: when the data isn't enough, it returns the
// updated state, and is called again with the same bytes plus the newly received ones.
package scan

import "github.com/indigo-web/h1parse/errors"

type Status uint8

const (
	// Incomplete means that more bytes are required. The whole buffer must be retained
	// and passed back along with the new data and the returned state.
	Incomplete Status = iota
	// Complete means that the result is ready. Rest holds the bytes following it.
	Complete
	// Failed means that the data can't be parsed. Err holds the reason.
	Failed
)

func (s Status) String() string {
	switch s {
	case Incomplete:
		return "incomplete"
	case Complete:
		return "complete"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

type Outcome[S, R any] struct {
	Status Status
	State  S
	Result R
	Rest   []byte
	Err    error
}

// Step advances the scanner over buf, starting from st.
type Step[S, R any] func(buf []byte, st S) Outcome[S, R]

// Annotator is implemented by scanner states. It attaches everything recognized so far
// to the error, reporting that the stream has ended or the limit has been exceeded.
type Annotator interface {
	Annotate(err *errors.Error)
}

func More[S, R any](st S) Outcome[S, R] {
	return Outcome[S, R]{Status: Incomplete, State: st}
}

func Done[S, R any](result R, rest []byte) Outcome[S, R] {
	return Outcome[S, R]{Status: Complete, Result: result, Rest: rest}
}

func Fail[S, R any](st S, err error) Outcome[S, R] {
	return Outcome[S, R]{Status: Failed, State: st, Err: err}
}
