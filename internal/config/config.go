package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPalette is the set of colors assigned to events saved without one.
var DefaultPalette = []string{
	"#4285f4", // Blue
	"#ea4335", // Red
	"#fbbc04", // Yellow
	"#34a853", // Green
	"#ff6d01", // Orange
	"#46bdc6", // Teal
	"#7b1fa2", // Purple
	"#d81b60", // Pink
}

// ImportConfig describes a single ICS source loaded into the store at startup.
// Exactly one of Path or URL is expected to be set.
type ImportConfig struct {
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
	Path string `yaml:"path,omitempty" json:"path,omitempty"`
	URL  string `yaml:"url,omitempty" json:"url,omitempty"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the Web UI/API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the calendar UI and API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone used for anchor, "today" and slot arithmetic.
	// "Local" uses the host zone.
	Timezone string `yaml:"timezone" json:"timezone"`

	// WeekStart is "sunday" (default) or "monday".
	WeekStart string `yaml:"week_start" json:"week_start"`

	// DefaultView is the view shown on startup: month, week or day.
	DefaultView string `yaml:"default_view" json:"default_view"`

	PxPerHour      float64 `yaml:"px_per_hour" json:"px_per_hour"`
	MinEventPx     float64 `yaml:"min_event_px" json:"min_event_px"`
	MonthMaxEvents int     `yaml:"month_max_events" json:"month_max_events"`

	// NowRefresh is a cron spec for recomputing the current-time indicator.
	NowRefresh string `yaml:"now_refresh" json:"now_refresh"`

	// DesktopMinWidth is the viewport width at which keyboard shortcuts turn on.
	DesktopMinWidth int `yaml:"desktop_min_width" json:"desktop_min_width"`

	Palette []string `yaml:"palette" json:"palette"`

	LogLevel string `yaml:"log_level" json:"log_level"`

	Import            []ImportConfig `yaml:"import" json:"import"`
	ImportHorizonDays int            `yaml:"import_horizon_days" json:"import_horizon_days"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:            "127.0.0.1:8080",
		Timezone:          "Local",
		WeekStart:         "sunday",
		DefaultView:       "month",
		PxPerHour:         60,
		MinEventPx:        30,
		MonthMaxEvents:    3,
		NowRefresh:        "@every 1m",
		DesktopMinWidth:   768,
		Palette:           append([]string(nil), DefaultPalette...),
		LogLevel:          "info",
		Import:            []ImportConfig{},
		ImportHorizonDays: 365,
		BasicAuth:         nil,
	}
}

// Normalize fills in missing/zero values with defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	def := DefaultConfig()

	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}

	c.WeekStart = strings.ToLower(strings.TrimSpace(c.WeekStart))
	switch c.WeekStart {
	case "monday", "sunday":
	default:
		c.WeekStart = def.WeekStart
	}

	c.DefaultView = strings.ToLower(strings.TrimSpace(c.DefaultView))
	switch c.DefaultView {
	case "month", "week", "day":
	default:
		c.DefaultView = def.DefaultView
	}

	if c.PxPerHour <= 0 {
		c.PxPerHour = def.PxPerHour
	}
	if c.MinEventPx <= 0 {
		c.MinEventPx = def.MinEventPx
	}
	if c.MonthMaxEvents <= 0 {
		c.MonthMaxEvents = def.MonthMaxEvents
	}
	if strings.TrimSpace(c.NowRefresh) == "" {
		c.NowRefresh = def.NowRefresh
	}
	if c.DesktopMinWidth <= 0 {
		c.DesktopMinWidth = def.DesktopMinWidth
	}
	if len(c.Palette) == 0 {
		c.Palette = def.Palette
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.Import == nil {
		c.Import = []ImportConfig{}
	}
	if c.ImportHorizonDays <= 0 {
		c.ImportHorizonDays = def.ImportHorizonDays
	}
}

// Location resolves Timezone. An unknown zone yields time.Local and the
// lookup error so the caller can log it.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local, err
	}
	return loc, nil
}

// FirstWeekday maps WeekStart onto time.Weekday.
func (c *Config) FirstWeekday() time.Weekday {
	if c.WeekStart == "monday" {
		return time.Monday
	}
	return time.Sunday
}

// BasicAuthEnabled reports whether both basic auth credentials are set.
func (c *Config) BasicAuthEnabled() bool {
	return c.BasicAuth != nil && c.BasicAuth.Username != "" && c.BasicAuth.Password != ""
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, write a default config with 0600 perms
//     (creating the parent directory) and return it.
//   - Otherwise unmarshal the YAML and normalize defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Still hand back the defaults; the caller decides.
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

// Save writes cfg to path atomically (temp file + rename) with 0600 perms.
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

	tmp, err := os.CreateTemp(dir, ".webcal-config-*.tmp")
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

// Save is a convenience method that delegates to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
