// Package uistate holds the observable state behind the home and genre screens.
package uistate

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/pool"

	"github.com/mmcdole/reel/internal/domain"
	"github.com/mmcdole/reel/internal/observable"
	"github.com/mmcdole/reel/internal/outcome"
)

// Section is the state of one category list
type Section = outcome.Outcome[[]domain.Movie]

// HomeState is one combined snapshot of the home screen
type HomeState struct {
	TopRated     Section `json:"top_rated"`
	Action       Section `json:"action"`
	Animation    Section `json:"animation"`
	IsRefreshing bool    `json:"is_refreshing"`
	IsError      bool    `json:"is_error"` // a manual refresh failed and has not been acknowledged
}

// Section returns the outcome for c
func (s HomeState) Section(c domain.Category) Section {
	switch c {
	case domain.CategoryAction:
		return s.Action
	case domain.CategoryAnimation:
		return s.Animation
	default:
		return s.TopRated
	}
}

// Settled reports whether every section has left Loading
func (s HomeState) Settled() bool {
	return s.TopRated.Settled() && s.Action.Settled() && s.Animation.Settled()
}

// homeInputs is the loop goroutine's view of the latest input values
type homeInputs struct {
	sections   map[domain.Category]Section
	refreshing int
	isError    bool
}

func (in *homeInputs) snapshot() HomeState {
	return HomeState{
		TopRated:     in.sections[domain.CategoryTopRated],
		Action:       in.sections[domain.CategoryAction],
		Animation:    in.sections[domain.CategoryAnimation],
		IsRefreshing: in.refreshing > 0,
		IsError:      in.isError,
	}
}

type homeEvent struct {
	apply func(*homeInputs)
	done  chan struct{}
}

// Home combines the three category outcomes and the manual refresh flags
// into a single HomeState cell. All state changes go through one goroutine.
type Home struct {
	repo   domain.CategoryRepository
	opts   outcome.Options
	logger *slog.Logger

	state  *observable.Value[HomeState]
	events chan homeEvent

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex // guards closed and wg.Go against Close
	closed bool
	wg     conc.WaitGroup
}

// NewHome starts watching every home category
func NewHome(repo domain.CategoryRepository, opts outcome.Options, logger *slog.Logger) *Home {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())

	inputs := homeInputs{sections: make(map[domain.Category]Section, len(domain.HomeCategories))}
	for _, c := range domain.HomeCategories {
		inputs.sections[c] = outcome.Loading[[]domain.Movie]()
	}

	h := &Home{
		repo:   repo,
		opts:   opts,
		logger: logger,
		state:  observable.NewValue(inputs.snapshot()),
		events: make(chan homeEvent),
		ctx:    ctx,
		cancel: cancel,
	}

	h.wg.Go(func() { h.loop(inputs) })
	for _, c := range domain.HomeCategories {
		h.wg.Go(func() { h.watchCategory(c) })
	}
	return h
}

func (h *Home) loop(inputs homeInputs) {
	for {
		select {
		case <-h.ctx.Done():
			return
		case ev := <-h.events:
			ev.apply(&inputs)
			h.state.Store(inputs.snapshot())
			close(ev.done)
		}
	}
}

// update hands fn to the loop and waits until the resulting snapshot is stored.
// It returns false once the Home is closed.
func (h *Home) update(fn func(*homeInputs)) bool {
	ev := homeEvent{apply: fn, done: make(chan struct{})}
	select {
	case h.events <- ev:
	case <-h.ctx.Done():
		return false
	}
	select {
	case <-ev.done:
		return true
	case <-h.ctx.Done():
		return false
	}
}

func (h *Home) watchCategory(c domain.Category) {
	src := outcome.Watch(h.repo.Observe(c), h.opts)
	err := src(h.ctx, func(o Section) error {
		if o.IsError() {
			h.logger.Warn("category failed", "category", c.String(), "error", o.Err)
		}
		if !h.update(func(in *homeInputs) { in.sections[c] = o }) {
			return h.ctx.Err()
		}
		return nil
	})
	if err != nil && h.ctx.Err() == nil {
		h.logger.Error("category watch ended", "category", c.String(), "error", err)
	}
}

// Refresh raises IsRefreshing before returning, then refreshes every category
// in the background. IsRefreshing drops once all of them settle; any failure
// sets IsError.
func (h *Home) Refresh() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	if !h.update(func(in *homeInputs) { in.refreshing++ }) {
		return
	}
	id := uuid.NewString()
	h.wg.Go(func() { h.runRefresh(id) })
}

func (h *Home) runRefresh(id string) {
	logger := h.logger.With("refresh_id", id)
	logger.Info("manual refresh started")

	var err error
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("refresh panicked: %v", r)
			logger.Error("manual refresh panicked", "panic", r)
		}
		failed := err != nil
		h.update(func(in *homeInputs) {
			in.refreshing--
			if failed {
				in.isError = true
			}
		})
	}()

	err = RefreshCategories(h.ctx, h.repo, domain.HomeCategories, logger)
	if err != nil {
		logger.Warn("manual refresh failed", "error", err)
		return
	}
	logger.Info("manual refresh finished")
}

// RefreshAll refreshes every home category and waits for all of them.
// It does not touch IsRefreshing or IsError.
func (h *Home) RefreshAll(ctx context.Context) error {
	logger := h.logger.With("refresh_id", uuid.NewString())
	return RefreshCategories(ctx, h.repo, domain.HomeCategories, logger)
}

// RefreshCategories refreshes cats concurrently and joins on all of them.
// A failure does not cancel the others; every error is returned joined.
func RefreshCategories(ctx context.Context, repo domain.CategoryRepository, cats []domain.Category, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	p := pool.New().WithErrors().WithContext(ctx)
	for _, c := range cats {
		p.Go(func(ctx context.Context) error {
			if err := repo.Refresh(ctx, c); err != nil {
				logger.Warn("refresh failed", "category", c.String(), "error", err)
				return fmt.Errorf("%s: %w", c, err)
			}
			return nil
		})
	}
	return p.Wait()
}

// AcknowledgeError clears IsError. Sections are left alone.
func (h *Home) AcknowledgeError() {
	h.update(func(in *homeInputs) { in.isError = false })
}

// State returns the latest snapshot
func (h *Home) State() HomeState {
	return h.state.Load()
}

// Watch delivers the latest snapshot and every newer one until ctx ends or Close
func (h *Home) Watch(ctx context.Context) <-chan HomeState {
	return h.state.Watch(ctx)
}

// Close cancels every subscription, retry timer and in-flight refresh and
// waits for them. No snapshot is stored or delivered afterwards.
func (h *Home) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	h.mu.Unlock()

	h.cancel()
	h.wg.Wait()
	h.state.Close()
}
