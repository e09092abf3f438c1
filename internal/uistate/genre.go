package uistate

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/sourcegraph/conc"

	"github.com/mmcdole/reel/internal/domain"
	"github.com/mmcdole/reel/internal/observable"
	"github.com/mmcdole/reel/internal/outcome"
)

// errSuperseded ends a subscription replaced by a newer FetchMovies call
var errSuperseded = errors.New("genre subscription superseded")

// GenreState is the genre screen snapshot. Active is false until the
// first FetchMovies call.
type GenreState struct {
	Genre  domain.Category `json:"genre"`
	Active bool            `json:"active"`
	Movies Section         `json:"movies"`
}

// Genre follows a single category at a time
type Genre struct {
	repo   domain.CategoryRepository
	opts   outcome.Options
	logger *slog.Logger

	state *observable.Value[GenreState]

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex // guards everything below and serialises stores
	gen       uint64
	cancelSub context.CancelFunc
	closed    bool
	wg        conc.WaitGroup
}

// NewGenre returns an idle Genre in the Loading state
func NewGenre(repo domain.CategoryRepository, opts outcome.Options, logger *slog.Logger) *Genre {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Genre{
		repo:   repo,
		opts:   opts,
		logger: logger,
		state:  observable.NewValue(GenreState{Movies: outcome.Loading[[]domain.Movie]()}),
		ctx:    ctx,
		cancel: cancel,
	}
}

// FetchMovies drops the current subscription, including any pending retry,
// and starts following c. The state moves to Loading for c immediately.
func (g *Genre) FetchMovies(c domain.Category) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return
	}
	if g.cancelSub != nil {
		g.cancelSub()
	}
	g.gen++
	gen := g.gen

	ctx, cancel := context.WithCancel(g.ctx)
	g.cancelSub = cancel
	g.state.Store(GenreState{Genre: c, Active: true, Movies: outcome.Loading[[]domain.Movie]()})

	g.logger.Debug("fetching genre", "category", c.String(), "generation", gen)
	g.wg.Go(func() { g.follow(ctx, gen, c) })
}

func (g *Genre) follow(ctx context.Context, gen uint64, c domain.Category) {
	src := outcome.Watch(g.repo.Observe(c), g.opts)
	err := src(ctx, func(o Section) error {
		g.mu.Lock()
		defer g.mu.Unlock()
		if gen != g.gen || ctx.Err() != nil {
			return errSuperseded
		}
		if o.IsError() {
			g.logger.Warn("genre failed", "category", c.String(), "error", o.Err)
		}
		g.state.Store(GenreState{Genre: c, Active: true, Movies: o})
		return nil
	})
	if err != nil && !errors.Is(err, errSuperseded) && ctx.Err() == nil {
		g.logger.Error("genre watch ended", "category", c.String(), "error", err)
	}
}

// State returns the latest snapshot
func (g *Genre) State() GenreState {
	return g.state.Load()
}

// Watch delivers the latest snapshot and every newer one until ctx ends or Close
func (g *Genre) Watch(ctx context.Context) <-chan GenreState {
	return g.state.Watch(ctx)
}

// Close ends the active subscription and waits for it
func (g *Genre) Close() {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.closed = true
	if g.cancelSub != nil {
		g.cancelSub()
	}
	g.mu.Unlock()

	g.cancel()
	g.wg.Wait()
	g.state.Close()
}
