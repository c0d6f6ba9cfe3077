package eprints

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config defines configuration for a harvest run. Values merge in three
// layers: defaults, an optional YAML file, then EPRINTS_* environment
// variables.
type Config struct {
	OutDir   string `yaml:"out_dir"`
	MaxItems int    `yaml:"max_items"`
	Set      string `yaml:"set"`
	From     string `yaml:"from"`
	Until    string `yaml:"until"`
	Sleep    string `yaml:"sleep"`
	Contact  string `yaml:"contact"`
}

// DefaultConfig returns a Config with the stock defaults.
func DefaultConfig() Config {
	return Config{
		OutDir:   "./papers",
		MaxItems: DefaultMaxItems,
		Set:      DefaultSet,
		From:     "2010-01-01",
		Sleep:    "2.5s",
	}
}

// LoadConfig loads configuration from a YAML file on top of defaults.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	var fc Config
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}

	cfg := DefaultConfig()
	if fc.OutDir != "" {
		cfg.OutDir = fc.OutDir
	}
	if fc.MaxItems != 0 {
		cfg.MaxItems = fc.MaxItems
	}
	if fc.Set != "" {
		cfg.Set = fc.Set
	}
	if fc.From != "" {
		cfg.From = fc.From
	}
	if fc.Until != "" {
		cfg.Until = fc.Until
	}
	if fc.Sleep != "" {
		cfg.Sleep = fc.Sleep
	}
	if fc.Contact != "" {
		cfg.Contact = fc.Contact
	}
	return cfg, nil
}

// LoadFromEnv applies EPRINTS_* environment variable overrides.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("EPRINTS_OUT"); v != "" {
		c.OutDir = v
	}
	if v := os.Getenv("EPRINTS_MAX"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse EPRINTS_MAX: %w", err)
		}
		c.MaxItems = n
	}
	if v := os.Getenv("EPRINTS_SET"); v != "" {
		c.Set = v
	}
	if v := os.Getenv("EPRINTS_FROM"); v != "" {
		c.From = v
	}
	if v := os.Getenv("EPRINTS_UNTIL"); v != "" {
		c.Until = v
	}
	if v := os.Getenv("EPRINTS_SLEEP"); v != "" {
		c.Sleep = v
	}
	if v := os.Getenv("EPRINTS_CONTACT"); v != "" {
		c.Contact = v
	}
	return nil
}

// Validate checks the configuration for obvious mistakes.
func (c *Config) Validate() error {
	if c.OutDir == "" {
		return errors.New("config: out_dir is required")
	}
	if c.MaxItems <= 0 {
		return errors.New("config: max_items must be positive")
	}
	if _, err := parseDate(c.From); err != nil {
		return fmt.Errorf("config: from: %w", err)
	}
	if _, err := parseDate(c.Until); err != nil {
		return fmt.Errorf("config: until: %w", err)
	}
	if _, err := parseSleep(c.Sleep); err != nil {
		return fmt.Errorf("config: sleep: %w", err)
	}
	return nil
}

// Options converts the configuration into harvest Options.
func (c *Config) Options() (Options, error) {
	from, err := parseDate(c.From)
	if err != nil {
		return Options{}, fmt.Errorf("from: %w", err)
	}
	until, err := parseDate(c.Until)
	if err != nil {
		return Options{}, fmt.Errorf("until: %w", err)
	}
	delay, err := parseSleep(c.Sleep)
	if err != nil {
		return Options{}, fmt.Errorf("sleep: %w", err)
	}

	return Options{
		OutDir:   c.OutDir,
		MaxItems: c.MaxItems,
		Set:      c.Set,
		From:     from,
		Until:    until,
		Delay:    delay,
		Contact:  c.Contact,
	}, nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", s)
}

// parseSleep accepts Go durations ("2.5s") and bare seconds ("2.5").
func parseSleep(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	secs, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return time.Duration(secs * float64(time.Second)), nil
}
