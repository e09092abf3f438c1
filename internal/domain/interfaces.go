package domain

import (
	"context"

	"github.com/mmcdole/reel/internal/stream"
)

// MovieCatalog is the remote source of movie lists
type MovieCatalog interface {
	FetchTopRated(ctx context.Context) ([]Movie, error)
	FetchByGenre(ctx context.Context, genreID string) ([]Movie, error)
}

// MovieCache is the local, per-category movie store
type MovieCache interface {
	// Observe emits the current contents of c, then again after every Replace.
	// It never completes on its own.
	Observe(c Category) stream.Stream[[]Movie]

	// Replace atomically swaps the contents of c for movies
	Replace(ctx context.Context, c Category, movies []Movie) error

	// Snapshot reads the current contents of c once
	Snapshot(ctx context.Context, c Category) ([]Movie, error)

	Close() error
}

// CategoryRepository combines the catalog and the cache for one category
type CategoryRepository interface {
	Observe(c Category) stream.Stream[[]Movie]
	Refresh(ctx context.Context, c Category) error
}
