package adapter

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Catalog CatalogConfig `mapstructure:"catalog"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Sync    SyncConfig    `mapstructure:"sync"`
	UI      UIConfig      `mapstructure:"ui"`
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// CatalogConfig holds TMDB API configuration
type CatalogConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	APIKey       string        `mapstructure:"api_key"`
	ImageBaseURL string        `mapstructure:"image_base_url"`
	Language     string        `mapstructure:"language"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxRetries   int           `mapstructure:"max_retries"` // per request, for 5xx and 429
}

// CacheConfig holds local movie cache configuration
type CacheConfig struct {
	Driver string `mapstructure:"driver"` // "bolt", "sqlite" or "memory"
	Dir    string `mapstructure:"dir"`
}

// SyncConfig holds refresh behaviour
type SyncConfig struct {
	RetryInterval time.Duration `mapstructure:"retry_interval"` // wait after a transient failure
	Shuffle       bool          `mapstructure:"shuffle"`        // reorder lists on every refresh
}

// UIConfig holds UI configuration
type UIConfig struct {
	GridColumns   int           `mapstructure:"grid_columns"`
	StatusTimeout time.Duration `mapstructure:"status_timeout"`
}

// ServerConfig holds the HTTP surface configuration for `reel serve`
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Catalog: CatalogConfig{
			BaseURL:      "https://api.themoviedb.org/3/",
			ImageBaseURL: "https://image.tmdb.org/t/p/w342/",
			Language:     "en-US",
			Timeout:      30 * time.Second,
			MaxRetries:   3,
		},
		Cache: CacheConfig{
			Driver: "bolt",
			Dir:    defaultCachePath(),
		},
		Sync: SyncConfig{
			RetryInterval: 15 * time.Second,
			Shuffle:       true,
		},
		UI: UIConfig{
			GridColumns:   4,
			StatusTimeout: 3 * time.Second,
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8080",
		},
		Logging: LoggingConfig{
			File:  defaultLogPath(),
			Level: "INFO",
		},
	}
}

// defaultLogPath returns the default log file path for the current OS
func defaultLogPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "reel", "reel.log")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "reel", "reel.log")
	}
}

// defaultConfigPath returns the default config directory for the current OS
func defaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "reel")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "reel")
	}
}

// defaultCachePath returns the default cache directory path for the current OS
func defaultCachePath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "reel", "cache")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "reel", "cache")
	}
}

// keys lists every setting so viper can resolve env overrides for all of them
func keys(cfg *Config) map[string]any {
	return map[string]any{
		"catalog.base_url":       cfg.Catalog.BaseURL,
		"catalog.api_key":        cfg.Catalog.APIKey,
		"catalog.image_base_url": cfg.Catalog.ImageBaseURL,
		"catalog.language":       cfg.Catalog.Language,
		"catalog.timeout":        cfg.Catalog.Timeout,
		"catalog.max_retries":    cfg.Catalog.MaxRetries,
		"cache.driver":           cfg.Cache.Driver,
		"cache.dir":              cfg.Cache.Dir,
		"sync.retry_interval":    cfg.Sync.RetryInterval,
		"sync.shuffle":           cfg.Sync.Shuffle,
		"ui.grid_columns":        cfg.UI.GridColumns,
		"ui.status_timeout":      cfg.UI.StatusTimeout,
		"server.addr":            cfg.Server.Addr,
		"logging.file":           cfg.Logging.File,
		"logging.level":          cfg.Logging.Level,
	}
}

// LoadConfig loads configuration from file and environment. Without
// searchPaths it looks in the OS config directory, then the working directory.
func LoadConfig(searchPaths ...string) (*Config, error) {
	if len(searchPaths) == 0 {
		searchPaths = []string{defaultConfigPath(), "."}
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range searchPaths {
		v.AddConfigPath(p)
	}

	for key, value := range keys(DefaultConfig()) {
		v.SetDefault(key, value)
	}

	// Environment variable overrides, e.g. REEL_CACHE_DRIVER
	v.SetEnvPrefix("REEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("catalog.api_key", "REEL_CATALOG_API_KEY", "TMDB_API_KEY"); err != nil {
		return nil, fmt.Errorf("error binding env: %w", err)
	}

	// Read config file if it exists
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	cfg.Cache.Dir = expandHome(cfg.Cache.Dir)
	cfg.Logging.File = expandHome(cfg.Logging.File)
	return cfg, nil
}

// SaveConfig writes cfg as config.yaml into dir (the OS config directory when
// empty) and returns the file path
func SaveConfig(cfg *Config, dir string) (string, error) {
	if dir == "" {
		dir = defaultConfigPath()
	}

	// Ensure config directory exists
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	for key, value := range keys(cfg) {
		if d, ok := value.(time.Duration); ok {
			value = d.String()
		}
		v.Set(key, value)
	}

	configFile := filepath.Join(dir, "config.yaml")
	if err := v.WriteConfigAs(configFile); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}
	return configFile, nil
}

// IsConfigured returns true if a catalog API key is set
func (c *Config) IsConfigured() bool {
	return c.Catalog.APIKey != ""
}

// ClearCache removes every cached catalog under the cache directory
func (c *Config) ClearCache() error {
	if c.Cache.Dir == "" {
		return nil
	}
	if err := os.RemoveAll(c.Cache.Dir); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}

// expandHome expands a leading ~ to the user's home directory
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
