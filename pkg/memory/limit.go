package memory

import (
	"context"
	"fmt"
	"io"
)

const chunkSize = 32 * 1024

// ErrTooLarge is returned when a read exceeds its size limit.
type ErrTooLarge struct {
	Limit int64
}

func (e *ErrTooLarge) Error() string {
	return fmt.Sprintf("content exceeds maximum allowed size of %d bytes", e.Limit)
}

// ReadAllLimited reads r to EOF through a pooled buffer and returns a copy of
// the content. It fails with *ErrTooLarge when more than limit bytes are
// available (limit <= 0 disables the check) and stops early when ctx is done.
func ReadAllLimited(ctx context.Context, r io.Reader, limit int64) ([]byte, error) {
	buf := defaultPool.Get()
	defer defaultPool.Put(buf)

	chunk := make([]byte, chunkSize)
	var total int64
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		n, err := r.Read(chunk)
		if n > 0 {
			total += int64(n)
			if limit > 0 && total > limit {
				return nil, &ErrTooLarge{Limit: limit}
			}
			buf.Write(chunk[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading content: %w", err)
		}
	}

	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}
