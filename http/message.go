package http

import (
	"context"
	"strconv"

	"github.com/indigo-web/h1parse/kv"
	"github.com/indigo-web/h1parse/trailer"
)

// Delimitation tells how the end of the body is determined.
type Delimitation struct {
	chunked bool
	length  uint64
}

// Fixed is a body of exactly length bytes.
func Fixed(length uint64) Delimitation {
	return Delimitation{length: length}
}

// Chunked is a body in the chunked transfer coding.
func Chunked() Delimitation {
	return Delimitation{chunked: true}
}

func (d Delimitation) IsChunked() bool {
	return d.chunked
}

// Length returns the declared body length. It is always 0 for chunked bodies.
func (d Delimitation) Length() uint64 {
	return d.length
}

func (d Delimitation) String() string {
	if d.chunked {
		return "chunked"
	}

	return "fixed(" + strconv.FormatUint(d.length, 10) + ")"
}

// Message is the part common to requests and responses: everything that follows the
// start-line. It's constructed only after the start-line and the headers were fully parsed.
type Message struct {
	// Headers are stored in order of their arrival. Duplicates are kept as separate entries.
	Headers      *kv.Storage
	Body         *Body
	Delimitation Delimitation
	trailer      *trailer.Slot
}

func NewMessage(headers *kv.Storage, body *Body, delimitation Delimitation, slot *trailer.Slot) Message {
	return Message{
		Headers:      headers,
		Body:         body,
		Delimitation: delimitation,
		trailer:      slot,
	}
}

// Trailer returns the slot which is going to be fulfilled by the trailer fields once the
// body is fully read. It's nil for messages without chunked body.
func (m Message) Trailer() *trailer.Slot {
	return m.trailer
}

// Trailers waits for the trailer fields. As they are parsed only after the last chunk,
// the body must be drained first (or concurrently), otherwise the call blocks until the
// context is done. Messages without chunked body have no trailers and return an empty
// storage immediately.
func (m Message) Trailers(ctx context.Context) (*kv.Storage, error) {
	if m.trailer == nil {
		return kv.New(), nil
	}

	return m.trailer.Wait(ctx)
}
