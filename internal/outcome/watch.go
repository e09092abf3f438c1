package outcome

import (
	"context"
	"time"

	"github.com/mmcdole/reel/internal/domain"
	"github.com/mmcdole/reel/internal/stream"
)

// DefaultRetryInterval is the wait between a transient failure and the resubscription
const DefaultRetryInterval = 15 * time.Second

// Options control Watch
type Options struct {
	RetryInterval time.Duration    // zero means DefaultRetryInterval
	Retryable     func(error) bool // nil means domain.IsTransient
}

func (o Options) withDefaults() Options {
	if o.RetryInterval <= 0 {
		o.RetryInterval = DefaultRetryInterval
	}
	if o.Retryable == nil {
		o.Retryable = domain.IsTransient
	}
	return o
}

// Watch wraps src as a sequence of outcomes.
//
// Every subscription to src starts with Loading, then each value becomes a
// Success. A retryable failure emits an Error, waits RetryInterval and
// subscribes to src again, which emits Loading again. Any other failure emits
// an Error and completes the sequence. Cancelling ctx ends it without a
// further emission.
func Watch[T any](src stream.Stream[T], opts Options) stream.Stream[Outcome[T]] {
	opts = opts.withDefaults()

	return func(ctx context.Context, emit func(Outcome[T]) error) error {
		for {
			if err := emit(Loading[T]()); err != nil {
				return err
			}

			var downstream error
			err := src(ctx, func(v T) error {
				if err := emit(Success(v)); err != nil {
					downstream = err
					return err
				}
				return nil
			})
			if downstream != nil {
				return downstream
			}
			if err == nil {
				return nil
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}

			if emitErr := emit(Failure[T](err)); emitErr != nil {
				return emitErr
			}
			if !opts.Retryable(err) {
				return nil
			}

			timer := time.NewTimer(opts.RetryInterval)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
}
