// Package chunked implements decoding of bodies in the chunked transfer coding, including
// the trailer section following the last chunk.
package chunked

import (
	"bytes"
	"context"
	"io"
	"math"

	"github.com/indigo-web/h1parse/errors"
	"github.com/indigo-web/h1parse/internal/drive"
	"github.com/indigo-web/h1parse/internal/hexconv"
	"github.com/indigo-web/h1parse/internal/scan/headers"
	"github.com/indigo-web/h1parse/kv"
	"github.com/indigo-web/h1parse/trailer"
	"github.com/indigo-web/h1parse/transport"
)

type decoderState uint8

const (
	eChunkLength decoderState = iota
	eChunkExt
	eChunkLengthLF
	eChunkBody
	eChunkBodyCR
	eChunkBodyLF
)

// maxChunkLengthDigits limits a single chunk length to the uint64 range.
const maxChunkLengthDigits = 64 / 4

// Decoder yields the decoded chunks. After the last chunk, the trailer section is parsed
// and the trailer slot is settled. Any failure settles the slot too, so readers waiting
// for the trailers never hang.
type Decoder struct {
	client          transport.Client
	slot            *trailer.Slot
	maxLen          int
	maxSize         uint64
	headersPrealloc int
	state           decoderState
	lengthDigits    uint8
	lineLen         int
	chunkLength     uint64
	received        uint64
	err             error
}

// NewDecoder returns a decoder over the client. maxLen limits every chunk-size line (with
// extensions) and the trailer section, maxSize limits the total size of the decoded body.
func NewDecoder(client transport.Client, slot *trailer.Slot, maxLen int, maxSize uint64, headersPrealloc int) *Decoder {
	return &Decoder{
		client:          client,
		slot:            slot,
		maxLen:          maxLen,
		maxSize:         maxSize,
		headersPrealloc: headersPrealloc,
	}
}

// Retrieve returns the next piece of the body. io.EOF is returned after the trailers
// were parsed.
func (d *Decoder) Retrieve() ([]byte, error) {
	if d.err != nil {
		return nil, d.err
	}

	for {
		data, err := d.client.Read()
		if len(data) == 0 {
			if err == nil {
				continue
			}

			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}

			return nil, d.fail(err)
		}

		chunk, rest, last, err := d.parse(data)
		switch {
		case err != nil:
			return nil, d.fail(err)
		case last:
			d.client.Pushback(rest)
			return nil, d.trailers()
		case len(chunk) > 0:
			if math.MaxUint64-d.received < uint64(len(chunk)) || d.received+uint64(len(chunk)) > d.maxSize {
				return nil, d.fail(errors.ErrBodyTooLarge)
			}

			d.received += uint64(len(chunk))
			d.client.Pushback(rest)
			return chunk, nil
		}
	}
}

func (d *Decoder) trailers() error {
	pending := drive.Pending[headers.State]{State: headers.NewState(d.headersPrealloc)}
	block, err := drive.Drive(context.Background(), d.client, d.maxLen, pending, headers.Scan)
	if err != nil {
		switch errors.KindOf(err) {
		case errors.EmptyStream, errors.UnexpectedEndOfStream:
			// the body has been started, so the stream can't be empty anymore
			eos := errors.New(errors.UnexpectedEndOfStream, io.ErrUnexpectedEOF)
			if partial, ok := err.(*errors.Error); ok {
				eos.Headers = partial.Headers
			}

			err = eos
		}

		return d.fail(err)
	}

	d.slot.Fulfill(kv.NewFromPairs(block.Headers))
	d.err = io.EOF

	return io.EOF
}

func (d *Decoder) fail(err error) error {
	d.err = err
	d.slot.Fail(err)

	return err
}

// parse consumes the data until either a piece of chunk is available or the last chunk
// is met. Chunk extensions are ignored, but are counted against the line limit.
func (d *Decoder) parse(data []byte) (chunk, rest []byte, last bool, err error) {
	switch d.state {
	case eChunkLength:
		goto chunkLength
	case eChunkExt:
		goto chunkExt
	case eChunkLengthLF:
		goto chunkLengthLF
	case eChunkBody:
		goto chunkBody
	case eChunkBodyCR:
		goto chunkBodyCR
	case eChunkBodyLF:
		goto chunkBodyLF
	default:
		panic("unreachable code")
	}

chunkLength:
	for i := 0; i < len(data); i++ {
		switch char := data[i]; char {
		case '\r':
			if d.lengthDigits == 0 {
				return nil, nil, false, errors.ErrBadChunk
			}

			data = data[i+1:]
			goto chunkLengthLF
		case ';':
			if d.lengthDigits == 0 {
				return nil, nil, false, errors.ErrBadChunk
			}

			d.lineLen += i + 1
			data = data[i+1:]
			goto chunkExt
		default:
			val := hexconv.Halfbyte[char]
			if val == hexconv.Invalid {
				return nil, nil, false, errors.ErrBadChunk
			}

			d.chunkLength = (d.chunkLength << 4) | uint64(val)
			if d.lengthDigits++; d.lengthDigits > maxChunkLengthDigits {
				return nil, nil, false, errors.ErrBadChunk
			}
		}
	}

	d.lineLen += len(data)
	d.state = eChunkLength
	return nil, nil, false, nil

chunkExt:
	{
		cr := bytes.IndexByte(data, '\r')
		if cr == -1 {
			if d.lineLen += len(data); d.lineLen > d.maxLen {
				return nil, nil, false, errors.TooLong(d.lineLen, d.maxLen)
			}

			d.state = eChunkExt
			return nil, nil, false, nil
		}

		if d.lineLen += cr; d.lineLen > d.maxLen {
			return nil, nil, false, errors.TooLong(d.lineLen, d.maxLen)
		}

		data = data[cr+1:]
		// fallthrough to chunkLengthLF
	}

chunkLengthLF:
	if len(data) == 0 {
		d.state = eChunkLengthLF
		return nil, nil, false, nil
	}

	if data[0] != '\n' {
		return nil, nil, false, errors.ErrBadChunk
	}

	data = data[1:]
	d.lengthDigits, d.lineLen = 0, 0

	if d.chunkLength == 0 {
		d.state = eChunkLength
		return nil, data, true, nil
	}

chunkBody:
	{
		if len(data) == 0 {
			d.state = eChunkBody
			return nil, nil, false, nil
		}

		n := min(d.chunkLength, uint64(len(data)))
		d.chunkLength -= n

		if d.chunkLength == 0 {
			d.state = eChunkBodyCR
		} else {
			d.state = eChunkBody
		}

		return data[:n], data[n:], false, nil
	}

chunkBodyCR:
	// omit len(data) == 0 check, as we only jump here from the dispatch, which in turn is
	// executed on new data, which is never empty.
	if data[0] != '\r' {
		return nil, nil, false, errors.ErrBadChunk
	}

	data = data[1:]

chunkBodyLF:
	if len(data) == 0 {
		d.state = eChunkBodyLF
		return nil, nil, false, nil
	}

	if data[0] != '\n' {
		return nil, nil, false, errors.ErrBadChunk
	}

	data = data[1:]
	goto chunkLength
}
