package storage

import (
	"context"
	"io"

	"gallery-backend/models"
)

// limitedReader fails with models.ErrPayloadTooLarge as soon as more than max
// bytes have been read, and with the context error once ctx is done.
type limitedReader struct {
	ctx  context.Context
	r    io.Reader
	left int64
}

// LimitReader wraps r for Storage.Upload. Reading exactly max bytes succeeds;
// the first byte past max is an error, so storage discards the partial write.
func LimitReader(ctx context.Context, r io.Reader, max int64) io.Reader {
	return &limitedReader{ctx: ctx, r: r, left: max}
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if err := l.ctx.Err(); err != nil {
		return 0, err
	}
	// one extra byte to tell "exactly max" from "more than max"
	if int64(len(p)) > l.left+1 {
		p = p[:l.left+1]
	}
	n, err := l.r.Read(p)
	if int64(n) > l.left {
		l.left = -1
		return 0, models.ErrPayloadTooLarge
	}
	l.left -= int64(n)
	return n, err
}
