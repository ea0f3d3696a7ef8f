// Package seek emulates forward-only seeking over streams that cannot seek.
package seek

import (
	"errors"
	"fmt"
	"io"
)

// ChunkSize is the largest number of bytes discarded per read while seeking.
const ChunkSize = 1024 * 1024

var (
	// ErrInvalidWhence is returned for whence values other than io.SeekStart
	// and io.SeekCurrent.
	ErrInvalidWhence = errors.New("transread: invalid seek whence")

	// ErrBackward is returned when the seek target lies before the current
	// position.
	ErrBackward = errors.New("transread: backward seek not supported")
)

// Target resolves offset and whence against the current position.
func Target(cur, offset int64, whence int) (int64, error) {
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = cur + offset
	default:
		return cur, fmt.Errorf("%w: seek requires whence %d or %d, got %d",
			ErrInvalidWhence, io.SeekStart, io.SeekCurrent, whence)
	}

	if target < cur {
		return cur, fmt.Errorf("%w: seeking from %d to %d is not allowed",
			ErrBackward, cur, target)
	}
	return target, nil
}

// Forward moves r from position cur to the position described by offset and
// whence by reading and discarding bytes.
//
// If r runs out before the target is reached, Forward returns the position it
// did reach and a nil error. Callers detect a short seek by comparing the
// result with the requested target.
func Forward(r io.Reader, cur, offset int64, whence int) (int64, error) {
	target, err := Target(cur, offset, whence)
	if err != nil {
		return cur, err
	}

	buf := make([]byte, min(target-cur, ChunkSize))
	pos := cur
	for pos < target {
		want := min(target-pos, int64(len(buf)))
		n, err := r.Read(buf[:want])
		pos += int64(n)
		if err == io.EOF {
			break
		}
		if err != nil {
			return pos, fmt.Errorf("discarding to offset %d: %w", target, err)
		}
	}
	return pos, nil
}
