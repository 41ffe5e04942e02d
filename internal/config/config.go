// Package config loads lens configuration from ~/.config/lens/config.yaml,
// LENS_* environment variables and command-line flags, in increasing order
// of precedence. Every key has a default, so an empty environment yields a
// working local setup under ~/.local/share/lens.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/lensapp/lens/internal/camroll"
	"github.com/lensapp/lens/internal/logging"
	"github.com/lensapp/lens/internal/schema"
)

const (
	defaultConfigDir = "~/.config/lens"
	defaultDataDir   = "~/.local/share/lens"
	envPrefix        = "LENS"
)

// Config is the resolved configuration.
type Config struct {
	DataDir string `mapstructure:"data_dir"`

	Cache     StoreConfig     `mapstructure:"cache"`
	Records   StoreConfig     `mapstructure:"records"`
	Service   ServiceConfig   `mapstructure:"service"`
	Sync      SyncConfig      `mapstructure:"sync"`
	Inbox     InboxConfig     `mapstructure:"inbox"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
	Settings  SettingsConfig  `mapstructure:"settings"`
	Log       logging.Options `mapstructure:"log"`
}

// StoreConfig selects a storage backend.
type StoreConfig struct {
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
}

// ServiceConfig configures the request loop.
type ServiceConfig struct {
	Tick time.Duration `mapstructure:"tick"`
}

// SyncConfig configures the discovery loop.
type SyncConfig struct {
	Interval       time.Duration `mapstructure:"interval"`
	Albums         []string      `mapstructure:"albums"`
	DiscoverAlbums bool          `mapstructure:"discover_albums"`
	AlbumsRoot     string        `mapstructure:"albums_root"`
}

// InboxConfig configures the capture inbox watcher.
type InboxConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Dir      string        `mapstructure:"dir"`
	Debounce time.Duration `mapstructure:"debounce"`
}

// DashboardConfig configures the HTTP observer. An empty Addr disables it.
type DashboardConfig struct {
	Addr string `mapstructure:"addr"`
}

// SettingsConfig locates the camera settings file.
type SettingsConfig struct {
	Path string `mapstructure:"path"`
}

// SetDefaults registers the default for every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", defaultDataDir)

	v.SetDefault("cache.backend", "sqlite")
	v.SetDefault("cache.path", "")
	v.SetDefault("records.backend", "pebble")
	v.SetDefault("records.path", "")

	v.SetDefault("service.tick", 16*time.Millisecond)

	v.SetDefault("sync.interval", time.Second)
	v.SetDefault("sync.albums", []string{"/MYPHOTOS"})
	v.SetDefault("sync.discover_albums", false)
	v.SetDefault("sync.albums_root", "/PHOTOS")

	v.SetDefault("inbox.enabled", true)
	v.SetDefault("inbox.dir", "")
	v.SetDefault("inbox.debounce", 250*time.Millisecond)

	v.SetDefault("dashboard.addr", "")

	v.SetDefault("settings.path", "")

	v.SetDefault("log.file", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.stderr", true)
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)
	v.SetDefault("log.compress", false)
}

// New returns a viper instance with defaults and environment binding, and
// reads the config file. An explicit path must exist; without one the
// default location is optional.
func New(path string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		resolved, err := ExpandPath(path)
		if err != nil {
			return nil, err
		}
		v.SetConfigFile(resolved)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", resolved, err)
		}
		return v, nil
	}

	dir, err := ExpandPath(defaultConfigDir)
	if err != nil {
		return nil, err
	}
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}
	return v, nil
}

// Load reads the configuration from path (or the default location).
func Load(path string) (*Config, error) {
	v, err := New(path)
	if err != nil {
		return nil, err
	}
	return FromViper(v)
}

// FromViper decodes v, expands paths and fills in locations derived from
// the data directory.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.resolve(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) resolve() error {
	dataDir, err := ExpandPath(c.DataDir)
	if err != nil {
		return fmt.Errorf("data_dir: %w", err)
	}
	c.DataDir = dataDir

	derive := func(p *string, name string) error {
		if strings.TrimSpace(*p) == "" {
			*p = filepath.Join(dataDir, name)
			return nil
		}
		resolved, err := ExpandPath(*p)
		if err != nil {
			return err
		}
		*p = resolved
		return nil
	}

	cacheName := "cache.db"
	if b := strings.ToLower(c.Cache.Backend); b == "bolt" || b == "bbolt" {
		cacheName = "cache.bolt"
	}
	if err := derive(&c.Cache.Path, cacheName); err != nil {
		return fmt.Errorf("cache.path: %w", err)
	}
	if err := derive(&c.Records.Path, "records"); err != nil {
		return fmt.Errorf("records.path: %w", err)
	}
	if err := derive(&c.Inbox.Dir, "inbox"); err != nil {
		return fmt.Errorf("inbox.dir: %w", err)
	}
	if err := derive(&c.Settings.Path, "settings.toml"); err != nil {
		return fmt.Errorf("settings.path: %w", err)
	}
	if c.Log.File != "" {
		if err := derive(&c.Log.File, ""); err != nil {
			return fmt.Errorf("log.file: %w", err)
		}
	}
	return nil
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Cache.Backend) {
	case "sqlite", "bolt", "bbolt", "memory":
	default:
		return fmt.Errorf("cache.backend: unknown backend %q", c.Cache.Backend)
	}
	switch strings.ToLower(c.Records.Backend) {
	case "pebble", "memory":
	default:
		return fmt.Errorf("records.backend: unknown backend %q", c.Records.Backend)
	}
	if c.Service.Tick <= 0 {
		return fmt.Errorf("service.tick must be positive")
	}
	if c.Sync.Interval <= 0 {
		return fmt.Errorf("sync.interval must be positive")
	}
	if c.Inbox.Debounce <= 0 {
		return fmt.Errorf("inbox.debounce must be positive")
	}
	if _, err := c.AlbumPaths(); err != nil {
		return err
	}
	if _, err := schema.ParsePath(c.Sync.AlbumsRoot); err != nil {
		return fmt.Errorf("sync.albums_root: %w", err)
	}
	return nil
}

// AlbumPaths parses the configured album list.
func (c *Config) AlbumPaths() ([]schema.RecordPath, error) {
	paths := make([]schema.RecordPath, 0, len(c.Sync.Albums))
	for _, a := range c.Sync.Albums {
		p, err := schema.ParsePath(a)
		if err != nil {
			return nil, fmt.Errorf("sync.albums: %w", err)
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// CameraRollPath returns the camera roll file inside the data directory.
func (c *Config) CameraRollPath() string {
	return camroll.DefaultPath(c.DataDir)
}

// ExpandPath resolves a leading "~" and makes path absolute.
func ExpandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if trimmed == "~" || strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
