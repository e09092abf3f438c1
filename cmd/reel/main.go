package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mmcdole/reel/internal/adapter"
	"github.com/mmcdole/reel/internal/catalog/tmdb"
	"github.com/mmcdole/reel/internal/domain"
	"github.com/mmcdole/reel/internal/library"
	"github.com/mmcdole/reel/internal/outcome"
	"github.com/mmcdole/reel/internal/store"
	"github.com/mmcdole/reel/internal/tui"
	"github.com/mmcdole/reel/internal/uistate"
)

// Version is set at build time via -ldflags
var Version = "dev"

const defaultWait = 30 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// app is everything a command needs once configuration is loaded
type app struct {
	cfg    *adapter.Config
	logger *slog.Logger
	cache  *store.Cache
	repo   *library.Repository
	opts   outcome.Options
}

// loadConfig reads .env, the config file and the environment, then sets up logging
func loadConfig() (*adapter.Config, *slog.Logger, error) {
	// Missing .env is fine
	_ = godotenv.Load()

	cfg, err := adapter.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := adapter.SetupLogger(&cfg.Logging)
	if err != nil {
		// Fall back to null logger if file logging fails
		logger = adapter.NullLogger()
	}
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func storeConfig(cfg *adapter.Config) store.Config {
	return store.Config{
		Driver:    cfg.Cache.Driver,
		Dir:       cfg.Cache.Dir,
		Namespace: cfg.Catalog.BaseURL,
	}
}

// openApp wires the catalog, cache and repository
func openApp() (*app, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.IsConfigured() {
		return nil, errors.New("no TMDB API key: set TMDB_API_KEY or run `reel config init --api-key <key>`")
	}

	cache, err := store.Open(storeConfig(cfg), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}

	client := tmdb.NewClient(tmdb.Config{
		BaseURL:    cfg.Catalog.BaseURL,
		APIKey:     cfg.Catalog.APIKey,
		Language:   cfg.Catalog.Language,
		Timeout:    cfg.Catalog.Timeout,
		MaxRetries: cfg.Catalog.MaxRetries,
	}, logger)

	logger.Info("starting reel", "version", Version, "cache_driver", cfg.Cache.Driver)

	return &app{
		cfg:    cfg,
		logger: logger,
		cache:  cache,
		repo:   library.NewRepository(client, cache, logger, library.WithShuffle(cfg.Sync.Shuffle)),
		opts:   outcome.Options{RetryInterval: cfg.Sync.RetryInterval},
	}, nil
}

func (rt *app) Close() {
	if err := rt.cache.Close(); err != nil {
		rt.logger.Warn("failed to close cache", "error", err)
	}
}

// newRootCmd creates the root command for the reel CLI
func newRootCmd() *cobra.Command {
	var wait time.Duration

	rootCmd := &cobra.Command{
		Use:   "reel",
		Short: "Browse top rated, action and animation movies from TMDB",
		Long: "reel keeps a local cache of TMDB movie lists and shows them in a terminal UI.\n" +
			"Without a terminal it prints the home sections once they are loaded.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: false,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openApp()
			if err != nil {
				return err
			}
			defer rt.Close()

			if term.IsTerminal(int(os.Stdout.Fd())) {
				return runTUI(rt)
			}
			return printHome(cmd.Context(), cmd.OutOrStdout(), rt, wait)
		},
	}

	rootCmd.SetVersionTemplate("reel version {{.Version}}\n")
	rootCmd.Flags().DurationVar(&wait, "wait", defaultWait, "how long to wait for sections without a terminal")

	rootCmd.AddCommand(newRefreshCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newSearchCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newCacheCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

func runTUI(rt *app) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	home := uistate.NewHome(rt.repo, rt.opts, rt.logger)
	defer home.Close()
	genre := uistate.NewGenre(rt.repo, rt.opts, rt.logger)
	defer genre.Close()

	model := tui.NewModel(ctx, home, genre, tui.Options{
		GridColumns:   rt.cfg.UI.GridColumns,
		StatusTimeout: rt.cfg.UI.StatusTimeout,
		ImageBaseURL:  rt.cfg.Catalog.ImageBaseURL,
	})

	p := tea.NewProgram(model, tea.WithAltScreen())

	rt.logger.Info("starting TUI")
	if _, err := p.Run(); err != nil {
		rt.logger.Error("TUI error", "error", err)
		return fmt.Errorf("TUI error: %w", err)
	}
	rt.logger.Info("shutting down")
	return nil
}

// filled reports whether a section has failed or holds movies. An empty
// success is the cache before its first fill.
func filled(s uistate.Section) bool {
	return s.IsError() || (s.IsSuccess() && len(s.Data) > 0)
}

// printHome waits up to wait for every section to fill, then prints them
func printHome(ctx context.Context, w io.Writer, rt *app, wait time.Duration) error {
	if ctx == nil {
		ctx = context.Background()
	}
	home := uistate.NewHome(rt.repo, rt.opts, rt.logger)
	defer home.Close()

	waitCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	state, err := uistate.WaitFor(waitCtx, home.Watch(waitCtx), func(s uistate.HomeState) bool {
		return filled(s.TopRated) && filled(s.Action) && filled(s.Animation)
	})
	if err != nil {
		state = home.State()
	}

	for i, c := range domain.HomeCategories {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "== %s ==\n", c.Title())
		printSection(w, state.Section(c), rt.cfg.Catalog.ImageBaseURL, false)
	}
	return nil
}

func printSection(w io.Writer, s uistate.Section, imageBase string, posters bool) {
	fmt.Fprint(w, outcome.Fold(s,
		func() string { return "loading...\n" },
		func(movies []domain.Movie) string {
			if len(movies) == 0 {
				return "(no movies)\n"
			}
			var b strings.Builder
			for _, m := range movies {
				b.WriteString(m.Title)
				if posters && m.PosterPath != "" {
					b.WriteString("\t" + m.PosterURLWith(imageBase))
				}
				b.WriteString("\n")
			}
			return b.String()
		},
		func(err error) string { return "error: " + err.Error() + "\n" },
	))
}
