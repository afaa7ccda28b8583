package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/jonathan/taskhub/internal/catalog"
	"github.com/jonathan/taskhub/internal/config"
	"github.com/jonathan/taskhub/internal/db"
	"github.com/jonathan/taskhub/internal/estimate"
	"github.com/jonathan/taskhub/internal/observability"
	"github.com/jonathan/taskhub/internal/preferences"
	"github.com/jonathan/taskhub/internal/results"
	"github.com/jonathan/taskhub/internal/scoring"
	"github.com/jonathan/taskhub/internal/types"
	"github.com/spf13/cobra"
)

const sqliteFileName = "prefs.db"

// loadConfig layers the --config file over env vars over built-in defaults.
func loadConfig() (config.Config, error) {
	env, err := config.FromEnv()
	if err != nil {
		return config.Config{}, err
	}
	cfg := env.MergeWithDefaults(config.Defaults())

	if configPath != "" {
		fileCfg, err := config.LoadConfig(configPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = fileCfg.MergeWithDefaults(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// openPersistence opens the configured preference backend. The returned func
// releases it and is never nil.
func openPersistence(ctx context.Context, cfg config.Config) (preferences.Persistence, func(), error) {
	noop := func() {}

	switch cfg.Storage {
	case config.StorageMemory:
		return preferences.NewMemoryPersistence(), noop, nil

	case config.StorageSQLite:
		path := cfg.StoragePath
		if filepath.Ext(path) == "" {
			path = filepath.Join(path, sqliteFileName)
		}
		store, err := db.OpenSQLite(ctx, path)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to open sqlite storage: %w", err)
		}
		return store, func() { _ = store.Close() }, nil

	case config.StoragePostgres:
		database, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to connect to database: %w", err)
		}
		return database, database.Close, nil

	default:
		p, err := preferences.NewFilePersistence(cfg.StoragePath)
		if err != nil {
			return nil, noop, err
		}
		return p, noop, nil
	}
}

// app bundles what most commands need.
type app struct {
	cfg       config.Config
	catalog   *catalog.Catalog
	store     *preferences.Store
	estimator *estimate.Estimator
	close     func()
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	persistence, closeFn, err := openPersistence(ctx, cfg)
	if err != nil {
		return nil, err
	}

	cat := catalog.Default()
	return &app{
		cfg:       cfg,
		catalog:   cat,
		store:     preferences.New(ctx, persistence, cat),
		estimator: newEstimator(cfg, cat),
		close:     closeFn,
	}, nil
}

func newEstimator(cfg config.Config, cat *catalog.Catalog) *estimate.Estimator {
	var opts []estimate.Option
	if cfg.DefaultRate > 0 {
		opts = append(opts, estimate.WithDefaultRate(cfg.DefaultRate))
	}
	return estimate.New(cat, opts...)
}

func newNormalizer(cfg config.Config, cat *catalog.Catalog) *results.Normalizer {
	return results.New(scoring.New(cfg.Thresholds()), cat)
}

// newPrinter writes to the command's output, colored only on a terminal.
func newPrinter(cmd *cobra.Command) *observability.Printer {
	return observability.NewPrinter(cmd.OutOrStdout()).WithColor(!noColor && !color.NoColor)
}

// parseTask accepts a task id ("resume_analysis") or its display name ("Resume Analysis").
func parseTask(s string) (types.TaskType, error) {
	if t, ok := types.TaskFromDisplayName(s); ok {
		return t, nil
	}
	return types.ParseTaskType(strings.ToLower(strings.TrimSpace(s)))
}

func readInputFile(path string) ([]byte, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("file not found: %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}
