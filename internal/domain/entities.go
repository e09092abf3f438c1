package domain

import (
	"fmt"
	"strings"
)

// DefaultImageBaseURL is the TMDB poster base used when none is configured
const DefaultImageBaseURL = "https://image.tmdb.org/t/p/w342/"

// Movie is a catalog entry as shown on screen
type Movie struct {
	Title      string `json:"title"`
	PosterPath string `json:"poster_path"` // Relative path segment, e.g. "/abc.jpg"
}

// PosterURL returns the poster image URL on the default image host
func (m Movie) PosterURL() string {
	return m.PosterURLWith(DefaultImageBaseURL)
}

// PosterURLWith joins base and the poster path with exactly one slash
func (m Movie) PosterURLWith(base string) string {
	if m.PosterPath == "" {
		return ""
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(m.PosterPath, "/")
}

// Category is one of the fixed movie groupings
type Category int

const (
	CategoryTopRated Category = iota
	CategoryAction
	CategoryAnimation
)

// HomeCategories lists every category in home screen order
var HomeCategories = []Category{CategoryTopRated, CategoryAction, CategoryAnimation}

// GenreID returns the TMDB genre id, empty for top rated
func (c Category) GenreID() string {
	switch c {
	case CategoryAction:
		return "28"
	case CategoryAnimation:
		return "16"
	default:
		return ""
	}
}

// String returns the slug used in config, routes and cache keys
func (c Category) String() string {
	switch c {
	case CategoryTopRated:
		return "top_rated"
	case CategoryAction:
		return "action"
	case CategoryAnimation:
		return "animation"
	default:
		return fmt.Sprintf("category(%d)", int(c))
	}
}

// Title returns the human-readable section name
func (c Category) Title() string {
	switch c {
	case CategoryTopRated:
		return "Top Rated"
	case CategoryAction:
		return "Action"
	case CategoryAnimation:
		return "Animation"
	default:
		return "Unknown"
	}
}

// IsGenre reports whether the category is backed by a genre filter
func (c Category) IsGenre() bool {
	return c.GenreID() != ""
}

func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Category) UnmarshalText(text []byte) error {
	parsed, err := ParseCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCategory accepts a slug ("top_rated") or title ("Top Rated"), case-insensitively
func ParseCategory(s string) (Category, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	for _, c := range HomeCategories {
		if normalized == c.String() || normalized == strings.ToLower(c.Title()) {
			return c, nil
		}
	}
	// "top-rated" and "toprated" show up in shell usage
	switch strings.NewReplacer("-", "", "_", "", " ", "").Replace(normalized) {
	case "toprated":
		return CategoryTopRated, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCategory, s)
}
