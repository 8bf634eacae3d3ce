package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"designcal/internal/layout"
	appLog "designcal/internal/log"
)

// FeedConfig describes an external ICS calendar (a designer's agenda, the
// installation team's shared calendar, ...) merged into the appointment book.
type FeedConfig struct {
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url" json:"url"`
	// ID is an internal identifier used for de-dup and logging.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label; it becomes the designer shown on
	// appointments imported from this feed.
	Name string `yaml:"name" json:"name"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// DatabaseConfig selects the appointment store. An empty DSN keeps
// appointments in memory.
type DatabaseConfig struct {
	DSN string `yaml:"dsn" json:"dsn"`
}

// ViewConfig controls the vertical scale of the day/week views.
type ViewConfig struct {
	// DayStart and DayEnd bound the visible hours ("HH:MM").
	DayStart string `yaml:"day_start" json:"day_start"`
	DayEnd   string `yaml:"day_end" json:"day_end"`
	// HourHeightPx is the height of one hour in pixels.
	HourHeightPx int `yaml:"hour_height_px" json:"hour_height_px"`
	// MinBlockPx is the minimum drawn height of an appointment.
	MinBlockPx int `yaml:"min_block_px" json:"min_block_px"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API and calendar views.
	Listen string `yaml:"listen" json:"listen"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// Timezone is the IANA timezone of the showroom (e.g. "Europe/Paris").
	Timezone string `yaml:"timezone" json:"timezone"`

	// WeekStart is "monday" (default) or "sunday".
	WeekStart string `yaml:"week_start" json:"week_start"`

	// RefreshCron is the cron schedule for re-reading the feeds.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// HorizonDays is how many days ahead feeds are expanded.
	HorizonDays int `yaml:"horizon_days" json:"horizon_days"`

	// CacheDir holds downloaded feeds and the last captured preview.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	View     ViewConfig     `yaml:"view" json:"view"`
	Database DatabaseConfig `yaml:"database" json:"database"`

	// Feeds is the list of subscribed ICS calendars.
	Feeds []FeedConfig `yaml:"feeds" json:"feeds"`

	// BasicAuth, if set, protects every endpoint except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

const (
	defaultListen      = "127.0.0.1:8080"
	defaultTimezone    = "Europe/Paris"
	defaultRefreshCron = "*/15 * * * *"
	defaultCacheDir    = "/var/lib/designcal"
	defaultDayStart    = "08:00"
	defaultDayEnd      = "20:00"
)

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:      defaultListen,
		LogLevel:    "info",
		Timezone:    defaultTimezone,
		WeekStart:   "monday",
		RefreshCron: defaultRefreshCron,
		HorizonDays: 14,
		CacheDir:    defaultCacheDir,
		View: ViewConfig{
			DayStart:     defaultDayStart,
			DayEnd:       defaultDayEnd,
			HourHeightPx: 60,
			MinBlockPx:   18,
		},
		Feeds:     []FeedConfig{},
		BasicAuth: nil,
	}
}

// Normalize fills in missing or invalid values so that partially-filled
// configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	switch c.WeekStart {
	case "monday", "sunday":
	default:
		c.WeekStart = "monday"
	}
	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefreshCron
	}
	if c.HorizonDays <= 0 {
		c.HorizonDays = 14
	}
	if c.CacheDir == "" {
		c.CacheDir = defaultCacheDir
	}
	c.View.normalize()
	if c.Feeds == nil {
		c.Feeds = []FeedConfig{}
	}
}

func (v *ViewConfig) normalize() {
	start, errStart := layout.ParseClock(v.DayStart)
	end, errEnd := layout.ParseClock(v.DayEnd)
	if errStart != nil || errEnd != nil || start >= end {
		v.DayStart = defaultDayStart
		v.DayEnd = defaultDayEnd
	}
	if v.HourHeightPx <= 0 {
		v.HourHeightPx = 60
	}
	if v.MinBlockPx <= 0 {
		v.MinBlockPx = 18
	}
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms (creating the parent directory) and returned.
//   - Otherwise the YAML is unmarshalled and normalized.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Return cfg anyway so the caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600
// permissions, creating the parent directory (0700) if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".designcal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

// Save is a convenience wrapper around the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}

// FeedsDir is where downloaded ICS bodies are cached.
func (c *Config) FeedsDir() string {
	return filepath.Join(c.CacheDir, "feeds")
}

// PreviewPath is where the last captured calendar screenshot is stored.
func (c *Config) PreviewPath() string {
	return filepath.Join(c.CacheDir, "preview.png")
}

// Location resolves Timezone, falling back to time.Local when it is unknown.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", c.Timezone)
		return time.Local
	}
	return loc
}
