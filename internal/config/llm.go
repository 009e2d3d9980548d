// Package config provides configuration utilities for the application.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/hearthkeep/hearthkeep/internal/common"
	"github.com/hearthkeep/hearthkeep/internal/extract"
)

// LoadLLMConfig assembles the extractor configuration from Viper and
// environment variables. Precedence:
// 1. Viper configuration (config file or HEARTHKEEP_ env vars)
// 2. Provider-specific environment variables (ANTHROPIC_API_KEY, OPENAI_API_KEY)
// 3. Defaults
func LoadLLMConfig() (extract.Config, error) {
	cfg := extract.Config{
		Provider:    viper.GetString("llm.provider"),
		APIKey:      viper.GetString("llm.api_key"),
		Model:       viper.GetString("llm.model"),
		MaxRetries:  viper.GetInt("llm.max_retries"),
		RateLimit:   viper.GetInt("llm.rate_limit"),
		Temperature: viper.GetFloat64("llm.temperature"),
		MaxTokens:   viper.GetInt("llm.max_tokens"),
	}
	if cfg.Provider == "" {
		cfg.Provider = "anthropic"
	}
	if v := viper.GetDuration("llm.retry_delay"); v > 0 {
		cfg.RetryDelay = v
	}
	if v := viper.GetDuration("llm.cache_ttl"); v > 0 {
		cfg.CacheTTL = v
	} else {
		cfg.CacheTTL = 15 * time.Minute
	}

	if cfg.APIKey == "" {
		switch cfg.Provider {
		case "openai":
			cfg.APIKey = os.Getenv("OPENAI_API_KEY")
		default:
			cfg.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	}
	if cfg.APIKey == "" {
		return cfg, fmt.Errorf("%w: llm.api_key (set it in the config file or via the provider's environment variable)", common.ErrMissingConfig)
	}
	return cfg, nil
}
