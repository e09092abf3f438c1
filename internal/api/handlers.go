package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mmcdole/reel/internal/domain"
	"github.com/mmcdole/reel/internal/search"
	"github.com/mmcdole/reel/internal/uistate"
)

type errorResponse struct {
	Error string `json:"error"`
}

type searchResponse struct {
	Query   string          `json:"query"`
	Results []search.Result `json:"results"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// parseWait reads ?wait= as a duration, returning fallback when absent
func parseWait(r *http.Request, fallback time.Duration) (time.Duration, error) {
	raw := r.URL.Query().Get("wait")
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return 0, errors.New("wait must be a non-negative duration such as 5s")
	}
	return d, nil
}

func HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HomeHandler returns the current home snapshot. With ?wait= it first waits,
// up to that long, for every section to settle.
func (app *App) HomeHandler(w http.ResponseWriter, r *http.Request) {
	wait, err := parseWait(r, 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	state := app.Home.State()
	if wait > 0 && !state.Settled() {
		ctx, cancel := context.WithTimeout(r.Context(), wait)
		defer cancel()
		if settled, err := uistate.WaitFor(ctx, app.Home.Watch(ctx), uistate.HomeState.Settled); err == nil {
			state = settled
		} else {
			state = app.Home.State()
		}
	}
	writeJSON(w, http.StatusOK, state)
}

// RefreshHandler starts a manual refresh and returns without waiting for it
func (app *App) RefreshHandler(w http.ResponseWriter, r *http.Request) {
	app.Home.Refresh()
	writeJSON(w, http.StatusAccepted, app.Home.State())
}

func (app *App) AcknowledgeErrorHandler(w http.ResponseWriter, r *http.Request) {
	app.Home.AcknowledgeError()
	w.WriteHeader(http.StatusNoContent)
}

// GenreHandler follows one category for the length of the request and returns
// the first settled state, or the latest state once ?wait= (default 5s) expires.
func (app *App) GenreHandler(w http.ResponseWriter, r *http.Request) {
	c, err := domain.ParseCategory(chi.URLParam(r, "genre"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	wait, err := parseWait(r, defaultGenreWait)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	genre := uistate.NewGenre(app.Repo, app.Outcome, app.Logger)
	defer genre.Close()
	genre.FetchMovies(c)

	ctx, cancel := context.WithTimeout(r.Context(), wait)
	defer cancel()
	state, err := uistate.WaitFor(ctx, genre.Watch(ctx), func(s uistate.GenreState) bool {
		return s.Movies.Settled()
	})
	if err != nil {
		state = genre.State()
	}
	writeJSON(w, http.StatusOK, state)
}

// SearchHandler runs a fuzzy title search over cached movies
func (app *App) SearchHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "missing q parameter")
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	results, err := app.Search.Search(r.Context(), query, limit)
	if err != nil {
		app.Logger.Error("search failed", "query", query, "error", err)
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}
	if results == nil {
		results = []search.Result{}
	}
	writeJSON(w, http.StatusOK, searchResponse{Query: query, Results: results})
}
