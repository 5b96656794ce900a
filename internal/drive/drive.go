// Package drive runs resumable scanners over a transport.Client.
package drive

import (
	"context"
	"fmt"
	"io"

	"github.com/indigo-web/h1parse/errors"
	"github.com/indigo-web/h1parse/internal/accum"
	"github.com/indigo-web/h1parse/internal/scan"
	"github.com/indigo-web/h1parse/transport"
)

// Pending is the carried progress: the unconsumed bytes and the state of the scanner
// over them. Buffer must be owned by the caller.
type Pending[S any] struct {
	Buffer []byte
	State  S
}

// Drive pulls blocks from the client and feeds the step with all the bytes received so far,
// until the step completes or fails. Bytes following the result are pushed back into the
// client. The step is never given more than maxLen bytes: if it can't complete within
// them, MaxLengthExceeded is returned.
func Drive[S scan.Annotator, R any](
	ctx context.Context, client transport.Client, maxLen int, pending Pending[S], step scan.Step[S, R],
) (result R, err error) {
	buf, st := pending.Buffer, pending.State

	for {
		if err = ctx.Err(); err != nil {
			return result, err
		}

		block, readErr := client.Read()
		if len(block) > 0 {
			data := accum.Join(buf, block)
			// bytes past the budget must not affect the outcome
			view := data[:min(len(data), maxLen)]
			out := step(view, st)

			switch out.Status {
			case scan.Complete:
				client.Pushback(data[len(view)-len(out.Rest):])
				return out.Result, nil
			case scan.Failed:
				return result, out.Err
			}

			st = out.State
			if len(data) > maxLen {
				e := errors.TooLong(len(data), maxLen)
				st.Annotate(e)
				return result, e
			}

			if len(buf) == 0 {
				// the block belongs to the client and will be overridden by the next read
				data = append(make([]byte, 0, len(data)), data...)
			}

			buf = data
		}

		switch {
		case readErr == nil:
		case readErr == io.EOF:
			if len(buf) == 0 {
				return result, errors.New(errors.EmptyStream, nil)
			}

			e := errors.New(errors.UnexpectedEndOfStream, nil)
			st.Annotate(e)
			return result, e
		default:
			return result, fmt.Errorf("read: %w", readErr)
		}
	}
}
