package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/viper"

	"github.com/hearthkeep/hearthkeep/internal/config"
	"github.com/hearthkeep/hearthkeep/internal/extract"
	"github.com/hearthkeep/hearthkeep/internal/insight"
	"github.com/hearthkeep/hearthkeep/internal/pipeline"
	"github.com/hearthkeep/hearthkeep/internal/resolver"
	"github.com/hearthkeep/hearthkeep/internal/storage"
)

// initStorage opens the database and brings the schema up to date.
func initStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = "$HOME/.local/share/hearthkeep/hearthkeep.db"
	}
	dbPath = config.ExpandPath(dbPath)

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// initExtractor builds the LLM-backed extractor from config.
func initExtractor() (*extract.Extractor, error) {
	cfg, err := config.LoadLLMConfig()
	if err != nil {
		return nil, err
	}
	return extract.New(cfg, slog.Default())
}

// initResolver builds the entity resolver with the configured threshold.
func initResolver(store *storage.SQLiteStorage) *resolver.Resolver {
	threshold := viper.GetFloat64("resolver.match_threshold")
	return resolver.New(store, threshold, slog.Default())
}

// insightConfig reads the detector tuning knobs. Unset keys fall back to
// the engine defaults.
func insightConfig() insight.Config {
	return insight.Config{
		VendorMinDocs:   viper.GetInt("insights.vendor_min_docs"),
		SpendingMinDocs: viper.GetInt("insights.spending_min_docs"),
		AnalysisMinDocs: viper.GetInt("insights.analysis_min_docs"),
		SpendingWindow:  configDays("insights.spending_window_days"),
		UpcomingWindow:  configDays("insights.upcoming_window_days"),
		VendorExpiry:    configDays("insights.vendor_expiry_days"),
		SpendingExpiry:  configDays("insights.spending_expiry_days"),
		AnalysisExpiry:  configDays("insights.analysis_expiry_days"),
		AnalysisEnabled: viper.GetBool("insights.ai_analysis"),
	}
}

// configDays reads a day-count key as a duration.
func configDays(key string) time.Duration {
	return time.Duration(viper.GetInt(key)) * 24 * time.Hour
}

// pipelineConfig reads the categorization knobs.
func pipelineConfig() pipeline.Config {
	cfg := pipeline.DefaultConfig()
	if v := viper.GetInt("categorize.correction_limit"); v > 0 {
		cfg.CorrectionLimit = v
	}
	return cfg
}

// dismissedRetention reads how long dismissed insights are kept.
func dismissedRetention() time.Duration {
	return configDays("insights.retention_days")
}
