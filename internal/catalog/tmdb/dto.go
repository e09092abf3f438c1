package tmdb

import "github.com/mmcdole/reel/internal/domain"

// MovieResults is the paged envelope returned by list and discover endpoints
type MovieResults struct {
	Page         int        `json:"page"`
	Results      []MovieDTO `json:"results"`
	TotalPages   int        `json:"total_pages"`
	TotalResults int        `json:"total_results"`
}

// MovieDTO is a single movie as TMDB returns it. poster_path may be null.
type MovieDTO struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	PosterPath  string  `json:"poster_path"`
	ReleaseDate string  `json:"release_date"`
	VoteAverage float64 `json:"vote_average"`
	GenreIDs    []int   `json:"genre_ids"`
}

// apiError is the body TMDB sends with 4xx responses
type apiError struct {
	StatusCode    int    `json:"status_code"`
	StatusMessage string `json:"status_message"`
}

func mapMovies(dtos []MovieDTO) []domain.Movie {
	movies := make([]domain.Movie, 0, len(dtos))
	for _, d := range dtos {
		if d.Title == "" {
			continue
		}
		movies = append(movies, domain.Movie{Title: d.Title, PosterPath: d.PosterPath})
	}
	return movies
}
