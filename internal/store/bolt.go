package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/mmcdole/reel/internal/domain"
)

// Root bucket. Each category gets a nested bucket keyed by its slug.
var bucketMovies = []byte("movies")

// movieRecord is the persisted form of a movie
type movieRecord struct {
	ID         uint64  `json:"id"`
	Title      string  `json:"title"`
	PosterPath string  `json:"poster_path"`
	GenreID    *string `json:"genre_id,omitempty"` // nil for top rated
}

func newMovieRecord(id uint64, c domain.Category, m domain.Movie) movieRecord {
	rec := movieRecord{ID: id, Title: m.Title, PosterPath: m.PosterPath}
	if gid := c.GenreID(); gid != "" {
		rec.GenreID = &gid
	}
	return rec
}

func (r movieRecord) toDomain() domain.Movie {
	return domain.Movie{Title: r.Title, PosterPath: r.PosterPath}
}

// boltBackend stores movies in bbolt with a memory hot path promoted on read
type boltBackend struct {
	db *bolt.DB

	mu    sync.RWMutex
	cache map[domain.Category][]domain.Movie
	// bumped by every committed replace
	versions map[domain.Category]uint64
}

func openBolt(path string) (*boltBackend, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketMovies)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create buckets: %w", err)
	}

	return &boltBackend{
		db:       db,
		cache:    make(map[domain.Category][]domain.Movie),
		versions: make(map[domain.Category]uint64),
	}, nil
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func (s *boltBackend) load(ctx context.Context, c domain.Category) ([]domain.Movie, error) {
	s.mu.RLock()
	if movies, ok := s.cache[c]; ok {
		s.mu.RUnlock()
		return slices.Clone(movies), nil
	}
	version := s.versions[c]
	s.mu.RUnlock()

	var movies []domain.Movie
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketMovies).Bucket([]byte(c.String()))
		if b == nil {
			return nil
		}
		// Keys are big-endian ids, so cursor order is insertion order
		return b.ForEach(func(k, v []byte) error {
			var rec movieRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("failed to decode movie %x: %w", k, err)
			}
			movies = append(movies, rec.toDomain())
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	// Promote to memory cache unless a replace committed during the read
	s.mu.Lock()
	if s.versions[c] == version {
		s.cache[c] = movies
	}
	s.mu.Unlock()

	return slices.Clone(movies), nil
}

func (s *boltBackend) replace(ctx context.Context, c domain.Category, movies []domain.Movie) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key := []byte(c.String())
	err := s.db.Update(func(tx *bolt.Tx) error {
		root := tx.Bucket(bucketMovies)
		if root.Bucket(key) != nil {
			if err := root.DeleteBucket(key); err != nil {
				return err
			}
		}
		b, err := root.CreateBucket(key)
		if err != nil {
			return err
		}
		for _, m := range movies {
			id, err := root.NextSequence()
			if err != nil {
				return err
			}
			data, err := json.Marshal(newMovieRecord(id, c, m))
			if err != nil {
				return err
			}
			if err := b.Put(itob(id), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.cache[c] = slices.Clone(movies)
	s.versions[c]++
	s.mu.Unlock()
	return nil
}

func (s *boltBackend) close() error {
	return s.db.Close()
}
