package library

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"

	"github.com/sourcegraph/conc"

	"github.com/mmcdole/reel/internal/domain"
	"github.com/mmcdole/reel/internal/stream"
)

// Repository implements domain.CategoryRepository: the cache is the source
// of truth for observers and the catalog fills it on refresh.
type Repository struct {
	catalog domain.MovieCatalog
	cache   domain.MovieCache
	logger  *slog.Logger
	shuffle bool

	// One slot per category; refreshes of a category run one at a time
	locks map[domain.Category]chan struct{}
}

// Option configures a Repository
type Option func(*Repository)

// WithShuffle reorders every fetched list before it is cached
func WithShuffle(enabled bool) Option {
	return func(r *Repository) { r.shuffle = enabled }
}

// NewRepository creates a repository over catalog and cache
func NewRepository(catalog domain.MovieCatalog, cache domain.MovieCache, logger *slog.Logger, opts ...Option) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Repository{
		catalog: catalog,
		cache:   cache,
		logger:  logger,
		locks:   make(map[domain.Category]chan struct{}, len(domain.HomeCategories)),
	}
	for _, c := range domain.HomeCategories {
		r.locks[c] = make(chan struct{}, 1)
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Observe streams the cached contents of c. An empty emission starts one
// background refresh; further empty emissions wait for a non-empty one before
// another refresh can start. Background refreshes end with the subscription.
func (r *Repository) Observe(c domain.Category) stream.Stream[[]domain.Movie] {
	return func(ctx context.Context, emit func([]domain.Movie) error) error {
		ctx, cancel := context.WithCancel(ctx)
		var wg conc.WaitGroup
		defer wg.Wait()
		defer cancel()

		pending := false
		return r.cache.Observe(c)(ctx, func(movies []domain.Movie) error {
			if len(movies) == 0 {
				if !pending {
					pending = true
					r.logger.Debug("cache empty, refreshing", "category", c.String())
					wg.Go(func() { r.backgroundRefresh(ctx, c) })
				}
			} else {
				pending = false
			}
			return emit(movies)
		})
	}
}

func (r *Repository) backgroundRefresh(ctx context.Context, c domain.Category) {
	if err := r.Refresh(ctx, c); err != nil && ctx.Err() == nil {
		r.logger.Warn("background refresh failed", "category", c.String(), "error", err)
	}
}

// Refresh fetches c from the catalog and replaces the cached list.
// The cache is untouched when either step fails.
func (r *Repository) Refresh(ctx context.Context, c domain.Category) error {
	lock, ok := r.locks[c]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownCategory, c)
	}
	select {
	case lock <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-lock }()

	movies, err := r.fetch(ctx, c)
	if err != nil {
		r.logger.Error("failed to fetch movies", "category", c.String(), "error", err)
		return err
	}

	if r.shuffle {
		movies = slices.Clone(movies)
		rand.Shuffle(len(movies), func(i, j int) {
			movies[i], movies[j] = movies[j], movies[i]
		})
	}

	if err := r.cache.Replace(ctx, c, movies); err != nil {
		r.logger.Error("failed to cache movies", "category", c.String(), "error", err)
		return err
	}

	r.logger.Info("refreshed category", "category", c.String(), "count", len(movies))
	return nil
}

func (r *Repository) fetch(ctx context.Context, c domain.Category) ([]domain.Movie, error) {
	if c.IsGenre() {
		return r.catalog.FetchByGenre(ctx, c.GenreID())
	}
	return r.catalog.FetchTopRated(ctx)
}
