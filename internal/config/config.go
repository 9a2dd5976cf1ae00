package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Display layouts for the character LCD.
const (
	Layout16x2 = "16x2"
	Layout20x4 = "20x4"
)

// Config contains runtime configuration required by the service.
type Config struct {
	DBURL             string        `yaml:"db_url"`
	Port              string        `yaml:"port"`
	Mixpanel          Mixpanel      `yaml:"mixpanel"`
	TrackedEvents     []string      `yaml:"tracked_events"`
	TimestampProperty string        `yaml:"timestamp_property"`
	WatermarkPath     string        `yaml:"watermark_path"`
	SyncInterval      time.Duration `yaml:"sync_interval"`
	DisplayLayout     string        `yaml:"display_layout"`
	DisplayTimezone   string        `yaml:"display_timezone"`
	Log               Log           `yaml:"log"`

	// Resolved from the timezone names by Load.
	RemoteLocation  *time.Location `yaml:"-"`
	DisplayLocation *time.Location `yaml:"-"`
}

// Mixpanel holds credentials and endpoints of the remote analytics project.
type Mixpanel struct {
	APISecret string `yaml:"api_secret"`
	Token     string `yaml:"token"`
	ExportURL string `yaml:"export_url"`
	TrackURL  string `yaml:"track_url"`
	Timezone  string `yaml:"timezone"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// SyncEnabled reports whether export credentials are configured.
func (c Config) SyncEnabled() bool {
	return c.Mixpanel.APISecret != ""
}

// Defaults returns the local-dev configuration.
func Defaults() Config {
	return Config{
		DBURL: "sqlite://events.db",
		Port:  "8970",
		Mixpanel: Mixpanel{
			ExportURL: "https://data.mixpanel.com/api/2.0/export",
			TrackURL:  "https://api.mixpanel.com/track",
			Timezone:  "UTC",
		},
		TrackedEvents:     []string{"Reply"},
		TimestampProperty: "timestamp",
		WatermarkPath:     ".persist/watermark.db",
		SyncInterval:      time.Minute,
		DisplayLayout:     Layout16x2,
		DisplayTimezone:   "Local",
		Log:               Log{Level: "info", Format: "text"},
	}
}

// Load builds the config from defaults, then CONFIG_FILE (YAML) if set,
// then environment variables.
// TRACKED_EVENTS format: "Reply,Compile"
func Load() (Config, error) {
	return LoadFrom(os.Getenv("CONFIG_FILE"))
}

// LoadFrom is Load with an explicit YAML file; an empty path skips the file.
func LoadFrom(path string) (Config, error) {
	cfg := Defaults()

	if path = strings.TrimSpace(path); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, err
		}
	}

	setString(&cfg.DBURL, "DB_URL")
	setString(&cfg.Port, "PORT")
	setString(&cfg.Mixpanel.APISecret, "MIXPANEL_API_SECRET")
	setString(&cfg.Mixpanel.Token, "MIXPANEL_TOKEN")
	setString(&cfg.Mixpanel.ExportURL, "MIXPANEL_EXPORT_URL")
	setString(&cfg.Mixpanel.TrackURL, "MIXPANEL_TRACK_URL")
	setString(&cfg.Mixpanel.Timezone, "MIXPANEL_TIMEZONE")
	setString(&cfg.TimestampProperty, "TIMESTAMP_PROPERTY")
	setString(&cfg.WatermarkPath, "WATERMARK_PATH")
	setString(&cfg.DisplayLayout, "DISPLAY_LAYOUT")
	setString(&cfg.DisplayTimezone, "DISPLAY_TIMEZONE")
	setString(&cfg.Log.Level, "LOG_LEVEL")
	setString(&cfg.Log.Format, "LOG_FORMAT")

	if v := strings.TrimSpace(os.Getenv("TRACKED_EVENTS")); v != "" {
		cfg.TrackedEvents = SplitList(v)
	}
	if v := strings.TrimSpace(os.Getenv("SYNC_INTERVAL")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("SYNC_INTERVAL: %w", err)
		}
		cfg.SyncInterval = d
	}

	if err := cfg.resolve(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// resolve validates the merged values and loads timezones.
func (c *Config) resolve() error {
	if c.DBURL == "" {
		return errors.New("DB_URL required")
	}
	if c.Port == "" {
		return errors.New("PORT required")
	}
	if c.TimestampProperty == "" {
		return errors.New("TIMESTAMP_PROPERTY required")
	}
	if c.SyncInterval <= 0 {
		return errors.New("SYNC_INTERVAL must be positive")
	}
	if c.DisplayLayout != Layout16x2 && c.DisplayLayout != Layout20x4 {
		return fmt.Errorf("DISPLAY_LAYOUT must be %q or %q", Layout16x2, Layout20x4)
	}

	events := make([]string, 0, len(c.TrackedEvents))
	for _, e := range c.TrackedEvents {
		if e = strings.TrimSpace(e); e != "" {
			events = append(events, e)
		}
	}
	if len(events) == 0 {
		return errors.New("TRACKED_EVENTS must name at least one event")
	}
	c.TrackedEvents = events

	var err error
	if c.RemoteLocation, err = time.LoadLocation(c.Mixpanel.Timezone); err != nil {
		return fmt.Errorf("MIXPANEL_TIMEZONE: %w", err)
	}
	if c.DisplayLocation, err = time.LoadLocation(c.DisplayTimezone); err != nil {
		return fmt.Errorf("DISPLAY_TIMEZONE: %w", err)
	}
	return nil
}

// SplitList splits a comma separated list, trimming whitespace and
// dropping empty items. A value without commas yields one item.
func SplitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}
