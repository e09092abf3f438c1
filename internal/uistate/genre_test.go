package uistate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/mmcdole/reel/internal/domain"
	"github.com/mmcdole/reel/internal/outcome"
	"github.com/mmcdole/reel/internal/stream"
)

func newTestGenre(t *testing.T, repo domain.CategoryRepository, opts outcome.Options) *Genre {
	t.Helper()
	g := NewGenre(repo, opts, nil)
	t.Cleanup(g.Close)
	return g
}

func TestGenreIdleUntilFetch(t *testing.T) {
	repo := newFakeRepo()
	g := newTestGenre(t, repo, fastRetry)

	want := GenreState{Movies: loading()}
	if diff := cmp.Diff(want, g.State(), cmpopts.EquateErrors()); diff != "" {
		t.Errorf("State() (-want +got):\n%s", diff)
	}
	time.Sleep(10 * time.Millisecond)
	for _, c := range domain.HomeCategories {
		if repo.observeCount(c) != 0 {
			t.Errorf("%s subscribed before FetchMovies", c)
		}
	}
}

func TestGenreFetchMovies(t *testing.T) {
	repo := newFakeRepo()
	repo.setStream(domain.CategoryAction, hold(movieList("heat"), movieList("heat", "ronin")))
	g := newTestGenre(t, repo, fastRetry)

	g.FetchMovies(domain.CategoryAction)
	if s := g.State(); s.Genre != domain.CategoryAction || !s.Active {
		t.Errorf("State() right after FetchMovies = %+v", s)
	}

	eventually(t, "both emissions", func() bool { return len(g.State().Movies.Data) == 2 })
	want := GenreState{Genre: domain.CategoryAction, Active: true, Movies: outcome.Success(movieList("heat", "ronin"))}
	if diff := cmp.Diff(want, g.State(), cmpopts.EquateErrors()); diff != "" {
		t.Errorf("State() (-want +got):\n%s", diff)
	}
}

// Switching genres before the first resolves abandons the first subscription;
// its late result is never stored.
func TestGenreOnlyLatestIsObserved(t *testing.T) {
	gate := make(chan struct{})
	staleEmit := make(chan error, 1)

	repo := newFakeRepo()
	repo.setStream(domain.CategoryAction, func(ctx context.Context, emit func([]domain.Movie) error) error {
		<-gate // ignores cancellation on purpose
		err := emit(movieList("heat"))
		staleEmit <- err
		return err
	})
	repo.setStream(domain.CategoryAnimation, hold(movieList("totoro")))
	g := newTestGenre(t, repo, fastRetry)

	seen := make(chan GenreState, 64)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		for s := range g.Watch(ctx) {
			seen <- s
		}
		close(seen)
	}()

	g.FetchMovies(domain.CategoryAction)
	eventually(t, "action subscribed", func() bool { return repo.observeCount(domain.CategoryAction) == 1 })
	g.FetchMovies(domain.CategoryAnimation)
	eventually(t, "animation loaded", func() bool { return g.State().Movies.IsSuccess() })

	close(gate)
	select {
	case err := <-staleEmit:
		if err == nil {
			t.Fatal("stale emission was accepted")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("stale stream never emitted")
	}

	want := GenreState{Genre: domain.CategoryAnimation, Active: true, Movies: outcome.Success(movieList("totoro"))}
	if diff := cmp.Diff(want, g.State(), cmpopts.EquateErrors()); diff != "" {
		t.Errorf("State() (-want +got):\n%s", diff)
	}

	g.Close()
	for s := range seen {
		if s.Genre == domain.CategoryAction && s.Movies.IsSuccess() {
			t.Errorf("observed a result for the abandoned genre: %+v", s)
		}
	}
}

func TestGenreRefetchDiscardsRetryTimer(t *testing.T) {
	repo := newFakeRepo()
	repo.setStream(domain.CategoryAction, stream.Fail[[]domain.Movie](&domain.TransportError{Op: "fetch", StatusCode: 503}))
	g := newTestGenre(t, repo, outcome.Options{RetryInterval: time.Hour})

	g.FetchMovies(domain.CategoryAction)
	eventually(t, "first error", func() bool { return g.State().Movies.IsError() })

	g.FetchMovies(domain.CategoryAction)
	eventually(t, "second error", func() bool {
		return repo.observeCount(domain.CategoryAction) == 2 && g.State().Movies.IsError()
	})

	var te *domain.TransportError
	if !errors.As(g.State().Movies.Err, &te) {
		t.Errorf("Movies.Err = %v, want TransportError", g.State().Movies.Err)
	}
	closesWithin(t, "Close", g.Close)
	if n := repo.observeCount(domain.CategoryAction); n != 2 {
		t.Errorf("subscriptions = %d, want 2", n)
	}
}

func TestGenreNonTransientErrorEnds(t *testing.T) {
	repo := newFakeRepo()
	repo.setStream(domain.CategoryAnimation, stream.Fail[[]domain.Movie](errors.New("unknown")))
	g := newTestGenre(t, repo, fastRetry)

	g.FetchMovies(domain.CategoryAnimation)
	eventually(t, "error", func() bool { return g.State().Movies.IsError() })
	time.Sleep(40 * time.Millisecond)
	if n := repo.observeCount(domain.CategoryAnimation); n != 1 {
		t.Errorf("subscriptions = %d, want 1", n)
	}
}

func TestGenreFetchAfterCloseIsIgnored(t *testing.T) {
	repo := newFakeRepo()
	g := NewGenre(repo, fastRetry, nil)
	g.Close()

	g.FetchMovies(domain.CategoryAction)
	if g.State().Active {
		t.Error("FetchMovies after Close changed state")
	}
	if _, ok := <-g.Watch(context.Background()); ok {
		t.Error("Watch after Close delivered a value")
	}
}

func TestWaitFor(t *testing.T) {
	ch := make(chan int, 3)
	ch <- 1
	ch <- 2
	ch <- 3
	got, err := WaitFor(context.Background(), ch, func(n int) bool { return n >= 2 })
	if err != nil || got != 2 {
		t.Errorf("WaitFor() = %d, %v; want 2", got, err)
	}

	closed := make(chan int)
	close(closed)
	if _, err := WaitFor(context.Background(), closed, func(int) bool { return true }); !errors.Is(err, ErrClosed) {
		t.Errorf("WaitFor(closed) error = %v, want ErrClosed", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := WaitFor(ctx, make(chan int), func(int) bool { return true }); !errors.Is(err, context.Canceled) {
		t.Errorf("WaitFor(cancelled) error = %v", err)
	}
}
