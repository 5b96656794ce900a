// Package accum implements joining of received blocks into a single contiguous buffer.
package accum

// Join returns prev followed by next. An empty prev results in next itself, without
// copying, so the caller mustn't retain it past the next read. Otherwise, next is
// appended to prev, so prev must be owned by the caller.
func Join(prev, next []byte) []byte {
	if len(prev) == 0 {
		return next
	}

	return append(prev, next...)
}
