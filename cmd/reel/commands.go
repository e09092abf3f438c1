package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mmcdole/reel/internal/adapter"
	"github.com/mmcdole/reel/internal/api"
	"github.com/mmcdole/reel/internal/domain"
	"github.com/mmcdole/reel/internal/search"
	"github.com/mmcdole/reel/internal/store"
	"github.com/mmcdole/reel/internal/uistate"
)

const shutdownTimeout = 10 * time.Second

// newRefreshCmd creates the refresh subcommand.
func newRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Fetch every home category and replace the cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openApp()
			if err != nil {
				return err
			}
			defer rt.Close()

			err = uistate.RefreshCategories(cmd.Context(), rt.repo, domain.HomeCategories, rt.logger)
			for _, c := range domain.HomeCategories {
				movies, serr := rt.cache.Snapshot(cmd.Context(), c)
				if serr != nil {
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-10s %d movies\n", c.String(), len(movies))
			}
			if err != nil {
				return fmt.Errorf("refresh failed: %w", err)
			}
			return nil
		},
	}
}

// newListCmd creates the list subcommand.
func newListCmd() *cobra.Command {
	var (
		wait    time.Duration
		posters bool
	)

	cmd := &cobra.Command{
		Use:   "list <category>",
		Short: "Print the movies of one category (top_rated, action or animation)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := domain.ParseCategory(args[0])
			if err != nil {
				return err
			}

			rt, err := openApp()
			if err != nil {
				return err
			}
			defer rt.Close()

			genre := uistate.NewGenre(rt.repo, rt.opts, rt.logger)
			defer genre.Close()
			genre.FetchMovies(c)

			ctx, cancel := context.WithTimeout(cmd.Context(), wait)
			defer cancel()
			state, err := uistate.WaitFor(ctx, genre.Watch(ctx), func(s uistate.GenreState) bool {
				return filled(s.Movies)
			})
			if err != nil {
				state = genre.State()
			}

			printSection(cmd.OutOrStdout(), state.Movies, rt.cfg.Catalog.ImageBaseURL, posters)
			if state.Movies.IsError() {
				return state.Movies.Err
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&wait, "wait", defaultWait, "how long to wait for the catalog")
	cmd.Flags().BoolVar(&posters, "posters", false, "print poster URLs next to titles")
	return cmd
}

// newSearchCmd creates the search subcommand.
func newSearchCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Fuzzy search cached titles across every category",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openApp()
			if err != nil {
				return err
			}
			defer rt.Close()

			query := strings.Join(args, " ")
			results, err := search.NewService(rt.cache, rt.logger).Search(cmd.Context(), query, limit)
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}
			if len(results) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No cached movies match %q\n", query)
				return nil
			}
			for _, r := range results {
				fmt.Fprintf(cmd.OutOrStdout(), "%-10s %s\n", r.Category.String(), r.Movie.Title)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of results (0 for all)")
	return cmd
}

// newServeCmd creates the serve subcommand.
func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve home, genre and search state as JSON over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openApp()
			if err != nil {
				return err
			}
			defer rt.Close()

			if addr == "" {
				addr = rt.cfg.Server.Addr
			}

			home := uistate.NewHome(rt.repo, rt.opts, rt.logger)
			defer home.Close()

			srv := &http.Server{
				Addr: addr,
				Handler: api.NewRouter(&api.App{
					Home:    home,
					Repo:    rt.repo,
					Search:  search.NewService(rt.cache, rt.logger),
					Outcome: rt.opts,
					Logger:  rt.logger,
				}),
				ReadHeaderTimeout: 5 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				rt.logger.Info("http server listening", "addr", addr)
				errCh <- srv.ListenAndServe()
			}()
			fmt.Fprintf(cmd.OutOrStdout(), "Listening on http://%s\n", addr)

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return fmt.Errorf("server error: %w", err)
			case <-ctx.Done():
			}

			rt.logger.Info("shutting down http server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from server.addr)")
	return cmd
}

// newCacheCmd creates the cache subcommand.
func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the local movie cache",
	}

	var all bool
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove the cache for the configured catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}

			if all {
				err = cfg.ClearCache()
			} else {
				err = store.Clear(storeConfig(cfg))
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Cache cleared")
			return nil
		},
	}
	clearCmd.Flags().BoolVar(&all, "all", false, "remove caches for every catalog")

	cmd.AddCommand(clearCmd)
	return cmd
}

// newConfigCmd creates the config subcommand.
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}

	var (
		apiKey string
		dir    string
	)
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write config.yaml with the current settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			if apiKey != "" {
				cfg.Catalog.APIKey = apiKey
			}

			path, err := adapter.SaveConfig(cfg, dir)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			if !cfg.IsConfigured() {
				fmt.Fprintln(cmd.OutOrStdout(), "No API key set yet: edit catalog.api_key or set TMDB_API_KEY")
			}
			return nil
		},
	}
	initCmd.Flags().StringVar(&apiKey, "api-key", "", "TMDB API key to store")
	initCmd.Flags().StringVar(&dir, "dir", "", "directory for config.yaml (default OS config dir)")

	cmd.AddCommand(initCmd)
	return cmd
}
