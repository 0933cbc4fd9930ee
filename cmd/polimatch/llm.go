package main

import (
	"fmt"
	"os"
	"time"

	"github.com/polimatch/polimatch/internal/common"
	"github.com/polimatch/polimatch/internal/llm"
	"github.com/polimatch/polimatch/internal/match"
	"github.com/spf13/viper"
)

// createDisambiguator creates an LLM-backed disambiguator based on
// configuration. Matching works without one: the orchestrator falls back to
// rule scores, so a missing provider is not an error here.
func createDisambiguator() (match.Disambiguator, error) {
	provider := viper.GetString("llm.provider")
	if provider == "" {
		return nil, nil
	}

	config := llm.Config{
		Provider:    provider,
		Model:       viper.GetString("llm.model"),
		Temperature: viper.GetFloat64("llm.temperature"),
		MaxTokens:   viper.GetInt("llm.max_tokens"),
		MaxRetries:  viper.GetInt("llm.max_retries"),
		RetryDelay:  viper.GetDuration("llm.retry_delay"),
		RateLimit:   viper.GetInt("llm.rate_limit"),
		Timeout:     viper.GetDuration("llm.timeout"),
	}

	// Set defaults if not specified
	if config.MaxRetries == 0 {
		config.MaxRetries = 3
	}
	if config.RetryDelay == 0 {
		config.RetryDelay = time.Second
	}
	if config.RateLimit == 0 {
		config.RateLimit = 60 // requests per minute
	}

	// Get API key based on provider
	switch provider {
	case "openai":
		apiKey := viper.GetString("llm.openai_api_key")
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("%w: OpenAI API key not found in config or OPENAI_API_KEY environment variable", common.ErrMissingConfig)
		}
		config.APIKey = apiKey

	case "anthropic":
		apiKey := viper.GetString("llm.anthropic_api_key")
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("%w: Anthropic API key not found in config or ANTHROPIC_API_KEY environment variable", common.ErrMissingConfig)
		}
		config.APIKey = apiKey

	default:
		return nil, fmt.Errorf("%w: unsupported LLM provider %q", common.ErrInvalidConfig, provider)
	}

	disambiguator, err := llm.NewDisambiguator(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM disambiguator: %w", err)
	}

	return disambiguator, nil
}
