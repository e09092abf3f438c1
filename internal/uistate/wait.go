package uistate

import (
	"context"
	"errors"
)

// ErrClosed is returned by WaitFor when the watched cell closes first
var ErrClosed = errors.New("state closed")

// WaitFor reads snapshots from ch until one satisfies ok
func WaitFor[T any](ctx context.Context, ch <-chan T, ok func(T) bool) (T, error) {
	var last T
	for {
		select {
		case v, open := <-ch:
			if !open {
				return last, ErrClosed
			}
			last = v
			if ok(v) {
				return v, nil
			}
		case <-ctx.Done():
			return last, ctx.Err()
		}
	}
}
