// Package ctxtime provides sleeps that end early when a context is done.
package ctxtime

import (
	"context"
	"time"
)

// Sleep pauses for d or until ctx is done, whichever comes first, and returns
// ctx.Err() in the latter case.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Until sleeps until the wall clock reaches t, measured from now.
func Until(ctx context.Context, now, t time.Time) error {
	return Sleep(ctx, t.Sub(now))
}
