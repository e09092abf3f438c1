// Package api exposes the home and genre state over a small JSON HTTP surface.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mmcdole/reel/internal/domain"
	"github.com/mmcdole/reel/internal/outcome"
	"github.com/mmcdole/reel/internal/search"
	"github.com/mmcdole/reel/internal/uistate"
)

const defaultGenreWait = 5 * time.Second

// Home is the part of uistate.Home the API drives
type Home interface {
	State() uistate.HomeState
	Watch(ctx context.Context) <-chan uistate.HomeState
	Refresh()
	AcknowledgeError()
}

// Searcher finds cached movies by title
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]search.Result, error)
}

// App holds the handler dependencies
type App struct {
	Home    Home
	Repo    domain.CategoryRepository // backs a fresh Genre per request
	Search  Searcher
	Outcome outcome.Options
	Logger  *slog.Logger
}

// NewRouter wires every route onto a chi router
func NewRouter(app *App) http.Handler {
	if app.Logger == nil {
		app.Logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(app.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", HealthHandler)

	r.Route("/home", func(r chi.Router) {
		r.Get("/", app.HomeHandler)
		r.Post("/refresh", app.RefreshHandler)
		r.Post("/error/ack", app.AcknowledgeErrorHandler)
	})

	r.Get("/genres/{genre}", app.GenreHandler)
	r.Get("/search", app.SearchHandler)

	return r
}

func (app *App) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		app.Logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
