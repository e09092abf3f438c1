package uistate

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/mmcdole/reel/internal/domain"
	"github.com/mmcdole/reel/internal/stream"
)

// fakeRepo serves a scripted stream per category. A category without a
// stream never emits. Refresh delegates to refreshFn when set.
type fakeRepo struct {
	mu        sync.Mutex
	streams   map[domain.Category]stream.Stream[[]domain.Movie]
	observes  map[domain.Category]int
	refreshFn func(ctx context.Context, c domain.Category) error
	refreshes map[domain.Category]int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		streams:   map[domain.Category]stream.Stream[[]domain.Movie]{},
		observes:  map[domain.Category]int{},
		refreshes: map[domain.Category]int{},
	}
}

func (f *fakeRepo) Observe(c domain.Category) stream.Stream[[]domain.Movie] {
	return func(ctx context.Context, emit func([]domain.Movie) error) error {
		f.mu.Lock()
		f.observes[c]++
		s := f.streams[c]
		f.mu.Unlock()
		if s == nil {
			<-ctx.Done()
			return ctx.Err()
		}
		return s(ctx, emit)
	}
}

func (f *fakeRepo) Refresh(ctx context.Context, c domain.Category) error {
	f.mu.Lock()
	f.refreshes[c]++
	fn := f.refreshFn
	f.mu.Unlock()
	if fn == nil {
		return nil
	}
	return fn(ctx, c)
}

func (f *fakeRepo) setStream(c domain.Category, s stream.Stream[[]domain.Movie]) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.streams[c] = s
}

func (f *fakeRepo) setRefresh(fn func(ctx context.Context, c domain.Category) error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshFn = fn
}

func (f *fakeRepo) observeCount(c domain.Category) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.observes[c]
}

func (f *fakeRepo) refreshCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, v := range f.refreshes {
		n += v
	}
	return n
}

// hold emits values and then stays subscribed until cancelled, like a cache observer
func hold(values ...[]domain.Movie) stream.Stream[[]domain.Movie] {
	return func(ctx context.Context, emit func([]domain.Movie) error) error {
		for _, v := range values {
			if err := emit(v); err != nil {
				return err
			}
		}
		<-ctx.Done()
		return ctx.Err()
	}
}

func movieList(titles ...string) []domain.Movie {
	out := make([]domain.Movie, 0, len(titles))
	for _, title := range titles {
		out = append(out, domain.Movie{Title: title, PosterPath: "/" + title + ".jpg"})
	}
	return out
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func closesWithin(t *testing.T, what string, fn func()) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		fn()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("%s did not return", what)
	}
}
