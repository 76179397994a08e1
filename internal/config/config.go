package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds application settings (in-memory representation).
type Config struct {
	// Analysis parameters.
	Count     int    `yaml:"count" json:"count"`
	HQ        bool   `yaml:"hq" json:"hq"`
	HomeWorld string `yaml:"home_world" json:"home_world"`
	TopN      int    `yaml:"top_n" json:"top_n"` // results printed (0 = all)

	// Purchase optimizer.
	PurchaseBudget time.Duration `yaml:"purchase_budget" json:"purchase_budget"`
	Concurrency    int           `yaml:"concurrency" json:"concurrency"`

	// Storage and input.
	SnapshotPath string `yaml:"snapshot_path" json:"snapshot_path"`
	DBPath       string `yaml:"db_path" json:"db_path"`

	// Logging.
	LogLevel      string `yaml:"log_level" json:"log_level"`
	LogFile       string `yaml:"log_file" json:"log_file"`
	LogMaxSizeMB  int    `yaml:"log_max_size_mb" json:"log_max_size_mb"`
	LogMaxAgeDays int    `yaml:"log_max_age_days" json:"log_max_age_days"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Count:          1,
		TopN:           20,
		PurchaseBudget: 200 * time.Millisecond,
		Concurrency:    4,
		SnapshotPath:   "snapshot.json",
		DBPath:         "crafter.db",
		LogLevel:       "info",
		LogMaxSizeMB:   50,
		LogMaxAgeDays:  14,
	}
}

// Load reads a YAML file over the defaults. A missing file yields the
// defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse YAML: %w", err)
	}
	return cfg, cfg.Validate()
}

// LoadDotEnv loads a .env file into the process environment if present.
// Variables already set are not overridden.
func LoadDotEnv(paths ...string) error {
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
	}
	return godotenv.Load(existing...)
}

// ApplyEnv overlays CRAFTER_* environment variables.
func (c *Config) ApplyEnv() error {
	for key, set := range map[string]func(string) error{
		"CRAFTER_COUNT":           intSetter(&c.Count),
		"CRAFTER_TOP_N":           intSetter(&c.TopN),
		"CRAFTER_CONCURRENCY":     intSetter(&c.Concurrency),
		"CRAFTER_HQ":              boolSetter(&c.HQ),
		"CRAFTER_HOME_WORLD":      stringSetter(&c.HomeWorld),
		"CRAFTER_SNAPSHOT":        stringSetter(&c.SnapshotPath),
		"CRAFTER_DB":              stringSetter(&c.DBPath),
		"CRAFTER_LOG_LEVEL":       stringSetter(&c.LogLevel),
		"CRAFTER_LOG_FILE":        stringSetter(&c.LogFile),
		"CRAFTER_PURCHASE_BUDGET": durationSetter(&c.PurchaseBudget),
	} {
		v, ok := os.LookupEnv(key)
		if !ok {
			continue
		}
		if err := set(strings.TrimSpace(v)); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	return c.Validate()
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	if c.Count < 1 {
		return fmt.Errorf("count must be >= 1, got %d", c.Count)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be >= 1, got %d", c.Concurrency)
	}
	if c.PurchaseBudget <= 0 {
		return fmt.Errorf("purchase_budget must be positive, got %s", c.PurchaseBudget)
	}
	if c.TopN < 0 {
		return fmt.Errorf("top_n must be >= 0, got %d", c.TopN)
	}
	return nil
}

func intSetter(dst *int) func(string) error {
	return func(v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*dst = n
		return nil
	}
}

func boolSetter(dst *bool) func(string) error {
	return func(v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*dst = b
		return nil
	}
}

func stringSetter(dst *string) func(string) error {
	return func(v string) error {
		*dst = v
		return nil
	}
}

func durationSetter(dst *time.Duration) func(string) error {
	return func(v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*dst = d
		return nil
	}
}
