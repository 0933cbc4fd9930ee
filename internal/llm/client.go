package llm

import (
	"context"
	"time"
)

// Client defines the interface for LLM providers.
type Client interface {
	Resolve(ctx context.Context, prompt string) (ResolveResponse, error)
}

// ResolveResponse contains the LLM's disambiguation result. A nil
// PoliticianID means the model declined to choose.
type ResolveResponse struct {
	PoliticianID *int64
	Confidence   float64
}

// Config holds LLM provider configuration.
type Config struct {
	Provider    string
	Model       string
	APIKey      string
	Temperature float64
	MaxTokens   int
	MaxRetries  int
	RetryDelay  time.Duration
	RateLimit   int
	Timeout     time.Duration
}
