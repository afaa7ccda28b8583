// Package config provides configuration loading and validation for the CLI and server.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/jonathan/taskhub/internal/scoring"
)

// Storage backends for the preference store.
const (
	StorageMemory   = "memory"
	StorageFile     = "file"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
)

// DefaultStoragePath is where file and sqlite storage live when no path is configured.
const DefaultStoragePath = ".taskhub"

// ScoreThresholds overrides parts of the score reconciliation table.
// Zero values keep the built-in value.
type ScoreThresholds struct {
	Base               int `json:"base,omitempty" validate:"gte=0,lte=100"`
	StrengthWeight     int `json:"strength_weight,omitempty" validate:"gte=0"`
	RedFlagWeight      int `json:"red_flag_weight,omitempty" validate:"gte=0"`
	MaxScore           int `json:"max_score,omitempty" validate:"gte=0,lte=100"`
	MinWithStrengths   int `json:"min_with_strengths,omitempty" validate:"gte=0,lte=100"`
	MinWithoutStrength int `json:"min_without_strengths,omitempty" validate:"gte=0,lte=100"`
}

// Config represents the configuration that can be loaded from a JSON file.
// All fields are optional; missing values use defaults or come from env vars and flags.
type Config struct {
	// Backend
	APIBaseURL string `json:"api_base_url,omitempty" validate:"omitempty,url"` // Task hub API root
	APIToken   string `json:"api_token,omitempty"`                             // Bearer token for the API

	// Preference storage
	Storage     string `json:"storage,omitempty" validate:"omitempty,oneof=memory file sqlite postgres"`
	StoragePath string `json:"storage_path,omitempty"` // Directory for file storage, file for sqlite
	DatabaseURL string `json:"database_url,omitempty"` // PostgreSQL connection URL

	// Estimation
	DefaultRate float64 `json:"default_rate,omitempty" validate:"gte=0"` // Credits per 1000 tokens when a model has no rate

	ScoreThresholds *ScoreThresholds `json:"score_thresholds,omitempty"`
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// FromEnv reads configuration from TASKHUB_* environment variables and DATABASE_URL.
// Unparseable numbers are reported as errors rather than ignored.
func FromEnv() (Config, error) {
	cfg := Config{
		APIBaseURL:  os.Getenv("TASKHUB_API_URL"),
		APIToken:    os.Getenv("TASKHUB_API_TOKEN"),
		Storage:     os.Getenv("TASKHUB_STORAGE"),
		StoragePath: os.Getenv("TASKHUB_STORAGE_PATH"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
	}
	if v := os.Getenv("TASKHUB_DEFAULT_RATE"); v != "" {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return Config{}, fmt.Errorf("invalid TASKHUB_DEFAULT_RATE: %v", err)
		}
		cfg.DefaultRate = rate
	}
	return cfg, nil
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	if c.Storage == StoragePostgres && c.DatabaseURL == "" {
		return fmt.Errorf("config error: 'database_url' is required for postgres storage")
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// This is used to layer the config file over env vars and built-in defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.APIBaseURL == "" {
		result.APIBaseURL = defaults.APIBaseURL
	}
	if result.APIToken == "" {
		result.APIToken = defaults.APIToken
	}
	if result.Storage == "" {
		result.Storage = defaults.Storage
	}
	if result.StoragePath == "" {
		result.StoragePath = defaults.StoragePath
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.DefaultRate == 0 {
		result.DefaultRate = defaults.DefaultRate
	}
	if result.ScoreThresholds == nil {
		result.ScoreThresholds = defaults.ScoreThresholds
	}

	return result
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Storage:     StorageFile,
		StoragePath: DefaultStoragePath,
	}
}

// Thresholds applies the configured overrides to the default reconciliation table.
func (c *Config) Thresholds() scoring.Thresholds {
	t := scoring.DefaultThresholds()
	o := c.ScoreThresholds
	if o == nil {
		return t
	}
	if o.Base > 0 {
		t.Base = o.Base
	}
	if o.StrengthWeight > 0 {
		t.StrengthWeight = o.StrengthWeight
	}
	if o.RedFlagWeight > 0 {
		t.RedFlagWeight = o.RedFlagWeight
	}
	if o.MaxScore > 0 {
		t.MaxScore = o.MaxScore
	}
	if o.MinWithStrengths > 0 {
		t.MinWithStrengths = o.MinWithStrengths
	}
	if o.MinWithoutStrength > 0 {
		t.MinWithoutStrength = o.MinWithoutStrength
	}
	return t
}
