package main

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestInsightConfigReadsDayKeys(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.Set("insights.vendor_min_docs", 4)
	viper.Set("insights.spending_min_docs", 6)
	viper.Set("insights.analysis_min_docs", 3)
	viper.Set("insights.spending_window_days", 30)
	viper.Set("insights.upcoming_window_days", 60)
	viper.Set("insights.vendor_expiry_days", 14)
	viper.Set("insights.spending_expiry_days", 3)
	viper.Set("insights.analysis_expiry_days", 45)
	viper.Set("insights.ai_analysis", true)

	cfg := insightConfig()
	assert.Equal(t, 4, cfg.VendorMinDocs)
	assert.Equal(t, 6, cfg.SpendingMinDocs)
	assert.Equal(t, 3, cfg.AnalysisMinDocs)
	assert.Equal(t, 30*24*time.Hour, cfg.SpendingWindow)
	assert.Equal(t, 60*24*time.Hour, cfg.UpcomingWindow)
	assert.Equal(t, 14*24*time.Hour, cfg.VendorExpiry)
	assert.Equal(t, 3*24*time.Hour, cfg.SpendingExpiry)
	assert.Equal(t, 45*24*time.Hour, cfg.AnalysisExpiry)
	assert.True(t, cfg.AnalysisEnabled)
}

func TestInsightConfigUnsetFallsThroughToDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg := insightConfig()
	assert.Zero(t, cfg.VendorExpiry, "unset keys stay zero so the engine defaults apply")
	assert.False(t, cfg.AnalysisEnabled)
}

func TestDismissedRetentionReadsDayKey(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.Set("insights.retention_days", 7)
	assert.Equal(t, 7*24*time.Hour, dismissedRetention())
}
