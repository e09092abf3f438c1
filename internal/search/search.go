package search

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/mmcdole/reel/internal/domain"
)

// Snapshotter reads cached movies for a category
type Snapshotter interface {
	Snapshot(ctx context.Context, c domain.Category) ([]domain.Movie, error)
}

// Result is one ranked match
type Result struct {
	Category domain.Category `json:"category"`
	Movie    domain.Movie    `json:"movie"`
	Distance int             `json:"distance"` // Levenshtein distance, lower is closer
}

// Service runs fuzzy title search over every cached category
type Service struct {
	source Snapshotter
	logger *slog.Logger
}

// NewService creates a new search service
func NewService(source Snapshotter, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{source: source, logger: logger}
}

type entry struct {
	category domain.Category
	movie    domain.Movie
}

// Search returns cached movies whose titles fuzzily contain query, closest
// first. limit <= 0 means no limit. Categories that fail to load are skipped.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	var (
		entries []entry
		titles  []string
	)
	for _, c := range domain.HomeCategories {
		movies, err := s.source.Snapshot(ctx, c)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.logger.Warn("search skipped category", "category", c.String(), "error", err)
			continue
		}
		for _, m := range movies {
			entries = append(entries, entry{category: c, movie: m})
			titles = append(titles, m.Title)
		}
	}

	ranks := fuzzy.RankFindFold(query, titles)
	sort.Stable(ranks)

	results := make([]Result, 0, len(ranks))
	for _, r := range ranks {
		e := entries[r.OriginalIndex]
		results = append(results, Result{Category: e.category, Movie: e.movie, Distance: r.Distance})
		if limit > 0 && len(results) == limit {
			break
		}
	}

	s.logger.Debug("search complete", "query", query, "results", len(results))
	return results, nil
}
