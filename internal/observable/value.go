// Package observable provides a conflating publish/subscribe value cell.
package observable

import (
	"context"
	"sync"
)

// Value holds the latest T and notifies watchers when it changes.
// Watchers that fall behind skip straight to the newest value.
type Value[T any] struct {
	mu      sync.Mutex
	v       T
	seq     uint64
	changed chan struct{} // closed and replaced on every Store
	closed  bool
}

// NewValue returns a cell holding initial
func NewValue[T any](initial T) *Value[T] {
	return &Value[T]{v: initial, changed: make(chan struct{})}
}

// Load returns the current value
func (x *Value[T]) Load() T {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.v
}

// Store replaces the value and wakes watchers. It returns false once the
// cell is closed, in which case v is dropped.
func (x *Value[T]) Store(v T) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.closed {
		return false
	}
	x.v = v
	x.bump()
	return true
}

// Update applies fn to the current value under the cell's lock and stores the result
func (x *Value[T]) Update(fn func(T) T) (T, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.closed {
		return x.v, false
	}
	x.v = fn(x.v)
	x.bump()
	return x.v, true
}

func (x *Value[T]) bump() {
	x.seq++
	close(x.changed)
	x.changed = make(chan struct{})
}

// Close stops every watcher. Later stores are ignored.
func (x *Value[T]) Close() {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.closed {
		return
	}
	x.closed = true
	close(x.changed)
}

// Closed reports whether Close has been called
func (x *Value[T]) Closed() bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.closed
}

func (x *Value[T]) snapshot() (T, uint64, <-chan struct{}, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.v, x.seq, x.changed, x.closed
}

// Watch delivers the current value, then each newer one. The channel is
// closed when ctx ends or the cell is closed.
func (x *Value[T]) Watch(ctx context.Context) <-chan T {
	out := make(chan T)
	go func() {
		defer close(out)

		delivered := false
		var last uint64
		for {
			v, seq, changed, closed := x.snapshot()
			if closed {
				return
			}
			if !delivered || seq != last {
				select {
				case out <- v:
					delivered = true
					last = seq
				case <-changed:
					// superseded before the reader caught up
				case <-ctx.Done():
					return
				}
				continue
			}
			select {
			case <-changed:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
