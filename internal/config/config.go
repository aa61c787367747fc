package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	RangeRematerialize = "rematerialize"
	RangeInPlace       = "in_place"
)

// Config models planner.yml.
type Config struct {
	Storage struct {
		KeyPrefix string `yaml:"key_prefix" json:"key_prefix"`
	} `yaml:"storage" json:"storage"`
	Calendar struct {
		Timezone     string `yaml:"timezone" json:"timezone"`
		WeekStart    string `yaml:"week_start" json:"week_start"`
		MaxRangeDays int    `yaml:"max_range_days" json:"max_range_days"`
	} `yaml:"calendar" json:"calendar"`
	Seed struct {
		Enabled bool `yaml:"enabled" json:"enabled"`
	} `yaml:"seed" json:"seed"`
	Ranges struct {
		// OnUpdate picks what an update does to copies outside a changed range.
		OnUpdate string `yaml:"on_update" json:"on_update"`
	} `yaml:"ranges" json:"ranges"`
	Log struct {
		Level  string `yaml:"level" json:"level"`
		Format string `yaml:"format" json:"format"`
	} `yaml:"log" json:"log"`
	Server struct {
		Addr     string `yaml:"addr" json:"addr"`
		BasePath string `yaml:"base_path" json:"base_path"`
	} `yaml:"server" json:"server"`
	Webhooks []WebhookConfig `yaml:"webhooks" json:"webhooks,omitempty"`
}

type WebhookConfig struct {
	URL     string `yaml:"url" json:"url"`
	Enabled *bool  `yaml:"enabled" json:"enabled,omitempty"`
	// Types limits delivery to these change kinds; empty means all.
	Types []string `yaml:"types" json:"types,omitempty"`
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Storage.KeyPrefix) == "" {
		return fmt.Errorf("config.storage.key_prefix is required")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := c.WeekStartDay(); err != nil {
		return err
	}
	if c.Calendar.MaxRangeDays < 1 {
		return fmt.Errorf("config.calendar.max_range_days must be positive")
	}
	switch c.Ranges.OnUpdate {
	case RangeRematerialize, RangeInPlace:
	default:
		return fmt.Errorf("config.ranges.on_update must be %q or %q", RangeRematerialize, RangeInPlace)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config.log.level %q is not one of debug, info, warn, error", c.Log.Level)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("config.log.format must be console or json")
	}
	for i, hook := range c.Webhooks {
		if strings.TrimSpace(hook.URL) == "" {
			return fmt.Errorf("webhook %d has empty url", i)
		}
	}
	return nil
}

// Location resolves calendar.timezone; empty and "Local" mean the host zone.
func (c *Config) Location() (*time.Location, error) {
	tz := strings.TrimSpace(c.Calendar.Timezone)
	if tz == "" || tz == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("config.calendar.timezone: %w", err)
	}
	return loc, nil
}

func (c *Config) WeekStartDay() (time.Weekday, error) {
	switch strings.ToLower(c.Calendar.WeekStart) {
	case "", "sunday":
		return time.Sunday, nil
	case "monday":
		return time.Monday, nil
	}
	return time.Sunday, fmt.Errorf("config.calendar.week_start must be sunday or monday")
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "planner.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// Default returns the default Config.
func Default() *Config {
	var cfg Config
	_ = yaml.Unmarshal([]byte(defaultTemplate), &cfg)
	return &cfg
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create it with planner config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional falls back to Default when the file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// FromYAML parses and validates config from raw YAML bytes. Keys missing
// from data keep their default values.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `storage:
  key_prefix: activities-

calendar:
  timezone: Local
  week_start: sunday
  max_range_days: 366

seed:
  enabled: true

ranges:
  # rematerialize: an update rewrites every day of the new range and drops
  #                copies left outside it.
  # in_place:      an update only rewrites the copies of the old range.
  on_update: rematerialize

log:
  level: info
  format: console

server:
  addr: 127.0.0.1:8080
  base_path: /v0

webhooks: []
`
