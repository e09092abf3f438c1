// Package store persists movie lists per category and notifies observers on change.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mmcdole/reel/internal/domain"
	"github.com/mmcdole/reel/internal/observable"
	"github.com/mmcdole/reel/internal/stream"
)

// Supported cache drivers
const (
	DriverBolt   = "bolt"
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// ErrClosed is returned by operations on a closed cache
var ErrClosed = errors.New("cache is closed")

// Config selects and locates the backing store
type Config struct {
	Driver    string // bolt, sqlite or memory
	Dir       string // base directory; empty forces memory
	Namespace string // separates caches per catalog, usually the catalog base URL
}

// backend is the storage half of a Cache. replace must be atomic per category.
type backend interface {
	load(ctx context.Context, c domain.Category) ([]domain.Movie, error)
	replace(ctx context.Context, c domain.Category, movies []domain.Movie) error
	close() error
}

// Cache implements domain.MovieCache over a bolt, sqlite or in-memory backend
type Cache struct {
	backend backend
	changes map[domain.Category]*observable.Value[uint64]
	logger  *slog.Logger
}

// Open creates the directory for cfg (if any) and opens the configured driver
func Open(cfg Config, logger *slog.Logger) (*Cache, error) {
	if logger == nil {
		logger = slog.Default()
	}

	driver := cfg.Driver
	if driver == "" {
		driver = DriverBolt
	}
	if cfg.Dir == "" {
		driver = DriverMemory
	}

	var (
		b   backend
		err error
	)
	switch driver {
	case DriverMemory:
		b = newMemoryBackend()
	case DriverBolt, DriverSQLite:
		dir := cfg.Dir
		if cfg.Namespace != "" {
			dir = filepath.Join(dir, hashNamespace(cfg.Namespace))
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create cache dir: %w", err)
		}
		if driver == DriverBolt {
			b, err = openBolt(filepath.Join(dir, "reel.db"))
		} else {
			b, err = openSQLite(filepath.Join(dir, "reel.sqlite"))
		}
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported cache driver: %s", cfg.Driver)
	}

	logger.Debug("opened movie cache", "driver", driver, "dir", cfg.Dir)
	return newCache(b, logger), nil
}

func newCache(b backend, logger *slog.Logger) *Cache {
	changes := make(map[domain.Category]*observable.Value[uint64], len(domain.HomeCategories))
	for _, c := range domain.HomeCategories {
		changes[c] = observable.NewValue[uint64](0)
	}
	return &Cache{backend: b, changes: changes, logger: logger}
}

func hashNamespace(namespace string) string {
	normalized := strings.TrimRight(strings.ToLower(namespace), "/")
	hash := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(hash[:6])
}

// Observe emits the contents of c now and after each Replace. Replaces that
// land while a read is in progress collapse into a single re-read.
func (s *Cache) Observe(c domain.Category) stream.Stream[[]domain.Movie] {
	return func(ctx context.Context, emit func([]domain.Movie) error) error {
		changes, ok := s.changes[c]
		if !ok {
			return &domain.PersistenceError{Op: "observe", Category: c, Err: domain.ErrUnknownCategory}
		}
		for range changes.Watch(ctx) {
			movies, err := s.Snapshot(ctx, c)
			if err != nil {
				return err
			}
			if err := emit(movies); err != nil {
				return err
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		return &domain.PersistenceError{Op: "observe", Category: c, Err: ErrClosed}
	}
}

// Snapshot reads the current contents of c
func (s *Cache) Snapshot(ctx context.Context, c domain.Category) ([]domain.Movie, error) {
	movies, err := s.backend.load(ctx, c)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "read", Category: c, Err: err}
	}
	if movies == nil {
		movies = []domain.Movie{}
	}
	return movies, nil
}

// Replace swaps the contents of c in one transaction, then wakes observers of c
func (s *Cache) Replace(ctx context.Context, c domain.Category, movies []domain.Movie) error {
	changes, ok := s.changes[c]
	if !ok {
		return &domain.PersistenceError{Op: "replace", Category: c, Err: domain.ErrUnknownCategory}
	}
	if changes.Closed() {
		return &domain.PersistenceError{Op: "replace", Category: c, Err: ErrClosed}
	}
	if err := s.backend.replace(ctx, c, movies); err != nil {
		return &domain.PersistenceError{Op: "replace", Category: c, Err: err}
	}
	changes.Update(func(n uint64) uint64 { return n + 1 })
	s.logger.Debug("replaced cached movies", "category", c.String(), "count", len(movies))
	return nil
}

// Close ends every observer and releases the backend
func (s *Cache) Close() error {
	for _, v := range s.changes {
		v.Close()
	}
	return s.backend.close()
}

// Clear removes the cache files for cfg. Memory caches have nothing to clear.
func Clear(cfg Config) error {
	if cfg.Dir == "" || cfg.Driver == DriverMemory {
		return nil
	}
	dir := cfg.Dir
	if cfg.Namespace != "" {
		dir = filepath.Join(dir, hashNamespace(cfg.Namespace))
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}
