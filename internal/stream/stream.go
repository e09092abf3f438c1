// Package stream provides cold, restartable push sequences.
//
// A Stream is started by calling it. Each call is an independent subscription
// that pushes values through emit until the sequence completes (nil), fails
// (non-nil error) or ctx is cancelled. An error returned by emit stops the
// stream and must be returned unchanged.
package stream

import "context"

// Stream is a cold sequence of T
type Stream[T any] func(ctx context.Context, emit func(T) error) error

// Of emits each value in order, then completes
func Of[T any](values ...T) Stream[T] {
	return func(ctx context.Context, emit func(T) error) error {
		for _, v := range values {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := emit(v); err != nil {
				return err
			}
		}
		return nil
	}
}

// FromFunc adapts a single eventual value. Each subscription calls fn again.
func FromFunc[T any](fn func(ctx context.Context) (T, error)) Stream[T] {
	return func(ctx context.Context, emit func(T) error) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		return emit(v)
	}
}

// Fail returns a stream that fails immediately with err
func Fail[T any](err error) Stream[T] {
	return func(ctx context.Context, emit func(T) error) error {
		return err
	}
}

// Map transforms every value of s
func Map[T, U any](s Stream[T], fn func(T) U) Stream[U] {
	return func(ctx context.Context, emit func(U) error) error {
		return s(ctx, func(v T) error {
			return emit(fn(v))
		})
	}
}

// Collect subscribes and gathers every value until s completes or fails.
// Values gathered before a failure are returned alongside the error.
func Collect[T any](ctx context.Context, s Stream[T]) ([]T, error) {
	var out []T
	err := s(ctx, func(v T) error {
		out = append(out, v)
		return nil
	})
	return out, err
}
