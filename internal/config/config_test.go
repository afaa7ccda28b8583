package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jonathan/taskhub/internal/scoring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_ValidJSON(t *testing.T) {
	content := `{
		"api_base_url": "https://api.example.com",
		"storage": "sqlite",
		"storage_path": "/tmp/taskhub.db",
		"default_rate": 4.5,
		"score_thresholds": {"base": 70}
	}`

	tmpFile := filepath.Join(t.TempDir(), "config.json")
	err := os.WriteFile(tmpFile, []byte(content), 0644)
	require.NoError(t, err)

	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "https://api.example.com", cfg.APIBaseURL)
	assert.Equal(t, StorageSQLite, cfg.Storage)
	assert.Equal(t, "/tmp/taskhub.db", cfg.StoragePath)
	assert.Equal(t, 4.5, cfg.DefaultRate)
	require.NotNil(t, cfg.ScoreThresholds)
	assert.Equal(t, 70, cfg.ScoreThresholds.Base)
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(tmpFile, []byte(`{ invalid json }`), 0644))

	cfg, err := LoadConfig(tmpFile)
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to parse config JSON")
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.json")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "config path is empty")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "empty config", cfg: Config{}},
		{name: "defaults", cfg: Defaults()},
		{name: "unknown storage", cfg: Config{Storage: "redis"}, wantErr: "Storage"},
		{name: "bad url", cfg: Config{APIBaseURL: "not a url"}, wantErr: "APIBaseURL"},
		{name: "negative rate", cfg: Config{DefaultRate: -1}, wantErr: "DefaultRate"},
		{name: "postgres without url", cfg: Config{Storage: StoragePostgres}, wantErr: "database_url"},
		{name: "postgres with url", cfg: Config{Storage: StoragePostgres, DatabaseURL: "postgres://localhost/db"}},
		{name: "threshold out of range", cfg: Config{ScoreThresholds: &ScoreThresholds{Base: 150}}, wantErr: "Base"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMergeWithDefaults(t *testing.T) {
	defaults := Config{
		APIBaseURL:  "https://default.example.com",
		Storage:     StorageFile,
		StoragePath: ".taskhub",
		DefaultRate: 5,
	}

	partial := Config{
		APIToken: "secret",
		Storage:  StorageMemory,
	}

	merged := partial.MergeWithDefaults(defaults)

	assert.Equal(t, "secret", merged.APIToken)
	assert.Equal(t, StorageMemory, merged.Storage)

	assert.Equal(t, "https://default.example.com", merged.APIBaseURL)
	assert.Equal(t, ".taskhub", merged.StoragePath)
	assert.Equal(t, 5.0, merged.DefaultRate)
}

func TestMergeWithDefaults_EmptyDefaults(t *testing.T) {
	cfg := Config{APIToken: "tok"}

	merged := cfg.MergeWithDefaults(Config{})

	assert.Equal(t, "tok", merged.APIToken)
	assert.Empty(t, merged.Storage)
}

func TestFromEnv(t *testing.T) {
	t.Setenv("TASKHUB_API_URL", "https://env.example.com")
	t.Setenv("TASKHUB_API_TOKEN", "env-token")
	t.Setenv("TASKHUB_STORAGE", "memory")
	t.Setenv("TASKHUB_STORAGE_PATH", "")
	t.Setenv("DATABASE_URL", "postgres://localhost/taskhub")
	t.Setenv("TASKHUB_DEFAULT_RATE", "3.5")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "https://env.example.com", cfg.APIBaseURL)
	assert.Equal(t, "env-token", cfg.APIToken)
	assert.Equal(t, StorageMemory, cfg.Storage)
	assert.Equal(t, "postgres://localhost/taskhub", cfg.DatabaseURL)
	assert.Equal(t, 3.5, cfg.DefaultRate)

	t.Setenv("TASKHUB_DEFAULT_RATE", "lots")
	_, err = FromEnv()
	assert.Error(t, err)
}

func TestThresholds(t *testing.T) {
	cfg := Config{}
	assert.Equal(t, scoring.DefaultThresholds(), cfg.Thresholds())

	cfg.ScoreThresholds = &ScoreThresholds{Base: 70, MaxScore: 90}
	th := cfg.Thresholds()
	assert.Equal(t, 70, th.Base)
	assert.Equal(t, 90, th.MaxScore)
	assert.Equal(t, scoring.DefaultThresholds().StrengthWeight, th.StrengthWeight)
	assert.Equal(t, scoring.DefaultThresholds().Overrides, th.Overrides)
}
