package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultCity        = "New York"
	DefaultDaysAhead   = 7
	DefaultTimezone    = "UTC"
	DefaultUnit        = "fahrenheit"
	DefaultAttempts    = 3
	DefaultPushoverURL = "https://api.pushover.net/1/messages.json"
	DefaultGeocodeURL  = "https://geocoding-api.open-meteo.com/v1/search"
	DefaultForecastURL = "https://api.open-meteo.com/v1/forecast"
)

// PushoverConfig holds the notification credentials.
type PushoverConfig struct {
	Token string `yaml:"token" env:"PUSHOVER_TOKEN"`
	User  string `yaml:"user" env:"PUSHOVER_USER"`
	// HTML sends the body with Pushover's html=1 flag and bold/italic markup.
	HTML bool   `yaml:"html" env:"PUSHOVER_HTML"`
	URL  string `yaml:"url" env:"PUSHOVER_URL"`
}

// CanvasConfig holds the LMS planner credentials.
type CanvasConfig struct {
	Token string `yaml:"token" env:"CANVAS_TOKEN"`
	// URL is the LMS host without scheme, e.g. school.instructure.com.
	URL string `yaml:"url" env:"CANVAS_URL"`
}

// WeatherConfig controls the Open-Meteo lookup.
type WeatherConfig struct {
	City string `yaml:"city" env:"CITY"`
	// Unit is "fahrenheit" or "celsius".
	Unit        string `yaml:"unit" env:"TEMPERATURE_UNIT"`
	Attempts    int    `yaml:"attempts" env:"WEATHER_ATTEMPTS"`
	GeocodeURL  string `yaml:"geocode_url" env:"WEATHER_GEOCODE_URL"`
	ForecastURL string `yaml:"forecast_url" env:"WEATHER_FORECAST_URL"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level string `yaml:"level" env:"LOG_LEVEL"`
	File  string `yaml:"file" env:"LOG_FILE"`
}

// Config is the top-level application configuration.
type Config struct {
	Pushover PushoverConfig `yaml:"pushover"`
	Canvas   CanvasConfig   `yaml:"canvas"`
	Weather  WeatherConfig  `yaml:"weather"`
	Log      LogConfig      `yaml:"log"`

	// DaysAhead is the assignment horizon in calendar days.
	DaysAhead int `yaml:"days_ahead" env:"DAYS_AHEAD"`

	// Timezone is the IANA zone that defines "today" for the whole run.
	Timezone string `yaml:"timezone" env:"DIGEST_TIMEZONE"`
}

// DefaultConfig returns an in-memory default configuration. Credentials are
// left empty and must come from the file or the environment.
func DefaultConfig() *Config {
	return &Config{
		Pushover: PushoverConfig{URL: DefaultPushoverURL},
		Weather: WeatherConfig{
			City:        DefaultCity,
			Unit:        DefaultUnit,
			Attempts:    DefaultAttempts,
			GeocodeURL:  DefaultGeocodeURL,
			ForecastURL: DefaultForecastURL,
		},
		Log:       LogConfig{Level: "info"},
		DaysAhead: DefaultDaysAhead,
		Timezone:  DefaultTimezone,
	}
}

// Normalize fills in missing values with defaults and tidies free-form
// fields. It does not touch credentials.
func (c *Config) Normalize() {
	if c.Pushover.URL == "" {
		c.Pushover.URL = DefaultPushoverURL
	}
	c.Canvas.URL = strings.TrimRight(strings.TrimSpace(c.Canvas.URL), "/")

	if strings.TrimSpace(c.Weather.City) == "" {
		c.Weather.City = DefaultCity
	}
	c.Weather.Unit = strings.ToLower(strings.TrimSpace(c.Weather.Unit))
	if c.Weather.Unit == "" {
		c.Weather.Unit = DefaultUnit
	}
	if c.Weather.Attempts <= 0 {
		c.Weather.Attempts = DefaultAttempts
	}
	if c.Weather.GeocodeURL == "" {
		c.Weather.GeocodeURL = DefaultGeocodeURL
	}
	if c.Weather.ForecastURL == "" {
		c.Weather.ForecastURL = DefaultForecastURL
	}
	if c.Timezone == "" {
		c.Timezone = DefaultTimezone
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate reports every problem at once so a misconfigured scheduler entry
// can be fixed in one pass.
func (c *Config) Validate() error {
	var result *multierror.Error

	required := []struct {
		name, value string
	}{
		{"PUSHOVER_TOKEN", c.Pushover.Token},
		{"PUSHOVER_USER", c.Pushover.User},
		{"CANVAS_TOKEN", c.Canvas.Token},
		{"CANVAS_URL", c.Canvas.URL},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			result = multierror.Append(result, fmt.Errorf("%s is required", r.name))
		}
	}

	if strings.Contains(c.Canvas.URL, "://") {
		result = multierror.Append(result, fmt.Errorf("CANVAS_URL must be a host without scheme, got %q", c.Canvas.URL))
	}
	switch c.Weather.Unit {
	case "fahrenheit", "celsius":
	default:
		result = multierror.Append(result, fmt.Errorf("TEMPERATURE_UNIT must be fahrenheit or celsius, got %q", c.Weather.Unit))
	}
	if c.DaysAhead < 0 {
		result = multierror.Append(result, fmt.Errorf("DAYS_AHEAD must not be negative, got %d", c.DaysAhead))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		result = multierror.Append(result, fmt.Errorf("DIGEST_TIMEZONE: %w", err))
	}

	return result.ErrorOrNil()
}

// Location returns the reference timezone. Call after Validate.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ApplyEnv overlays environment variables onto c. Only variables that are
// present override what the file set. A nil environ reads the process
// environment.
func (c *Config) ApplyEnv(environ map[string]string) error {
	var opts []env.Options
	if environ != nil {
		opts = append(opts, env.Options{Environment: environ})
	}
	if err := env.Parse(c, opts...); err != nil {
		return fmt.Errorf("config: parse environment: %w", err)
	}
	return nil
}

// LoadDotenv exports the variables in path into the process environment
// without overriding ones that are already set. A missing file is ignored.
func LoadDotenv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("config: load %s: %w", path, err)
	}
	return nil
}

// Load builds the effective configuration.
//
// Behavior:
//   - start from DefaultConfig
//   - if path exists, unmarshal the YAML file over the defaults
//   - export dotenv (if present) and overlay the process environment
//   - normalize, then validate
//
// A missing YAML file is not an error; the environment alone is enough.
func Load(path, dotenv string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		case errors.Is(err, fs.ErrNotExist):
			// Environment-only setup.
		default:
			return nil, err
		}
	}

	if err := LoadDotenv(dotenv); err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(nil); err != nil {
		return nil, err
	}

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600, since the file may hold tokens.
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

	tmp, err := os.CreateTemp(dir, ".dailydigest-config-*.tmp")
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
