package tmdb

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/mmcdole/reel/internal/domain"
)

const topRatedBody = `{
	"page": 1,
	"results": [
		{"id": 238, "title": "The Godfather", "poster_path": "/3bhkrj58Vtu7enYsRolD1fZdja1.jpg", "vote_average": 8.7},
		{"id": 278, "title": "The Shawshank Redemption", "poster_path": null},
		{"id": 1, "title": ""}
	],
	"total_pages": 500,
	"total_results": 10000
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{
		BaseURL:    srv.URL + "/3/",
		APIKey:     "secret",
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
	}, nil)
}

// FetchTopRated hits /movie/top_rated with the key and language as query
// parameters and maps results, dropping untitled entries.
func TestFetchTopRated(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/3/movie/top_rated" {
			t.Errorf("path = %q, want /3/movie/top_rated", r.URL.Path)
		}
		if got := r.URL.Query().Get("api_key"); got != "secret" {
			t.Errorf("api_key = %q", got)
		}
		if got := r.URL.Query().Get("language"); got != DefaultLanguage {
			t.Errorf("language = %q", got)
		}
		w.Write([]byte(topRatedBody))
	})

	got, err := client.FetchTopRated(context.Background())
	if err != nil {
		t.Fatalf("FetchTopRated() error = %v", err)
	}
	want := []domain.Movie{
		{Title: "The Godfather", PosterPath: "/3bhkrj58Vtu7enYsRolD1fZdja1.jpg"},
		{Title: "The Shawshank Redemption"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("FetchTopRated() mismatch (-want +got):\n%s", diff)
	}
}

func TestFetchByGenre(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/3/discover/movie" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("with_genres"); got != "28" {
			t.Errorf("with_genres = %q, want 28", got)
		}
		w.Write([]byte(`{"results":[{"title":"Heat","poster_path":"/heat.jpg"}]}`))
	})

	got, err := client.FetchByGenre(context.Background(), domain.CategoryAction.GenreID())
	if err != nil {
		t.Fatalf("FetchByGenre() error = %v", err)
	}
	if diff := cmp.Diff([]domain.Movie{{Title: "Heat", PosterPath: "/heat.jpg"}}, got); diff != "" {
		t.Errorf("FetchByGenre() mismatch (-want +got):\n%s", diff)
	}
}

// A 503 followed by a 200 succeeds within the internal retry budget.
func TestServerErrorIsRetried(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"results":[{"title":"Up"}]}`))
	})

	got, err := client.FetchTopRated(context.Background())
	if err != nil {
		t.Fatalf("FetchTopRated() error = %v", err)
	}
	if len(got) != 1 || calls.Load() != 2 {
		t.Errorf("got %d movies after %d calls", len(got), calls.Load())
	}
}

func TestClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantCalls int32
		transient bool
		is        error
	}{
		{"persistent 500 is transport", http.StatusInternalServerError, "oops", 3, true, domain.ErrTransport},
		{"429 is transport", http.StatusTooManyRequests, `{"status_message":"slow down"}`, 3, true, domain.ErrTransport},
		{"401 is auth", http.StatusUnauthorized, `{"status_code":7,"status_message":"Invalid API key"}`, 1, false, domain.ErrAuthFailed},
		{"403 is auth", http.StatusForbidden, "", 1, false, domain.ErrAuthFailed},
		{"404 is rejected", http.StatusNotFound, `{"status_message":"not found"}`, 1, false, domain.ErrRejected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			_, err := client.FetchTopRated(context.Background())
			if !errors.Is(err, tt.is) {
				t.Fatalf("error = %v, want %v", err, tt.is)
			}
			if domain.IsTransient(err) != tt.transient {
				t.Errorf("IsTransient() = %v, want %v", domain.IsTransient(err), tt.transient)
			}
			if calls.Load() != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls.Load(), tt.wantCalls)
			}
		})
	}
}

func TestTransportErrorCarriesStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	_, err := client.FetchTopRated(context.Background())

	var te *domain.TransportError
	if !errors.As(err, &te) {
		t.Fatalf("error = %v, want *TransportError", err)
	}
	if te.StatusCode != http.StatusBadGateway || te.Op != "fetch top rated" {
		t.Errorf("TransportError = %+v", te)
	}
}

func TestMalformedBodyIsNotTransient(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results": [`))
	})
	_, err := client.FetchTopRated(context.Background())
	if err == nil {
		t.Fatal("expected parse error")
	}
	if domain.IsTransient(err) || errors.Is(err, domain.ErrRejected) {
		t.Errorf("parse error misclassified: %v", err)
	}
}

func TestUnreachableServerIsTransport(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	client := NewClient(Config{BaseURL: srv.URL, APIKey: "k"}, nil)

	_, err := client.FetchTopRated(context.Background())
	if !domain.IsTransient(err) {
		t.Errorf("error = %v, want transient TransportError", err)
	}
}

func TestCancelledContextIsReturnedAsIs(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results":[]}`))
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.FetchTopRated(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if domain.IsTransient(err) {
		t.Error("cancellation should not be transient")
	}
}
