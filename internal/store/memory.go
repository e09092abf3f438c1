package store

import (
	"context"
	"slices"
	"sync"

	"github.com/mmcdole/reel/internal/domain"
)

// memoryBackend keeps everything in process. Used by tests and cache.driver=memory.
type memoryBackend struct {
	mu     sync.RWMutex
	movies map[domain.Category][]domain.Movie
}

func newMemoryBackend() *memoryBackend {
	return &memoryBackend{movies: make(map[domain.Category][]domain.Movie)}
}

func (m *memoryBackend) load(ctx context.Context, c domain.Category) ([]domain.Movie, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.movies[c]), nil
}

func (m *memoryBackend) replace(ctx context.Context, c domain.Category, movies []domain.Movie) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.movies[c] = slices.Clone(movies)
	return nil
}

func (m *memoryBackend) close() error { return nil }
