// Package llm integrates external LLM providers as the pipeline's semantic
// disambiguator.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/polimatch/polimatch/internal/common"
	"github.com/polimatch/polimatch/internal/match"
	"github.com/polimatch/polimatch/internal/model"
	"github.com/polimatch/polimatch/internal/service"
)

// Disambiguator implements match.Disambiguator on top of an LLM provider,
// adding rate limiting and retries with backoff.
type Disambiguator struct {
	client    Client
	limiter   *rateLimiter
	retryOpts service.RetryOptions
}

// NewDisambiguator creates an LLM-backed disambiguator from configuration.
func NewDisambiguator(cfg Config) (*Disambiguator, error) {
	client, err := NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 3
	}
	retryDelay := cfg.RetryDelay
	if retryDelay == 0 {
		retryDelay = 500 * time.Millisecond
	}

	return &Disambiguator{
		client:  client,
		limiter: newRateLimiter(cfg.RateLimit),
		retryOpts: service.RetryOptions{
			MaxAttempts:  maxRetries,
			InitialDelay: retryDelay,
			MaxDelay:     5 * time.Second,
			Multiplier:   2.0,
		},
	}, nil
}

// Resolve asks the LLM to pick a politician from the shortlist. Choices
// outside the shortlist are discarded as no opinion; the caller treats any
// returned error as recoverable.
func (d *Disambiguator) Resolve(ctx context.Context, candidate model.ExtractedCandidate, shortlist []match.ScoredPolitician) (match.Resolution, error) {
	if len(shortlist) == 0 {
		return match.Resolution{}, nil
	}

	if err := d.limiter.wait(ctx); err != nil {
		return match.Resolution{}, fmt.Errorf("%w: %v", common.ErrDisambiguation, err)
	}

	prompt := buildPrompt(candidate, shortlist)

	var response ResolveResponse
	retryErr := common.WithRetry(ctx, func() error {
		var resolveErr error
		response, resolveErr = d.client.Resolve(ctx, prompt)
		if resolveErr != nil {
			return &common.RetryableError{Err: resolveErr, Retryable: true}
		}
		return nil
	}, d.retryOpts)

	if retryErr != nil {
		return match.Resolution{}, fmt.Errorf("%w: %v", common.ErrDisambiguation, retryErr)
	}

	if response.PoliticianID == nil {
		return match.Resolution{Confidence: response.Confidence}, nil
	}

	// Discard hallucinated ids: the choice must come from the shortlist.
	for _, sp := range shortlist {
		if sp.Politician.ID == *response.PoliticianID {
			return match.Resolution{
				PoliticianID: response.PoliticianID,
				Confidence:   response.Confidence,
			}, nil
		}
	}

	slog.Warn("Disambiguator chose an id outside the shortlist, treating as no opinion",
		"candidate_id", candidate.ID,
		"chosen_id", *response.PoliticianID)
	return match.Resolution{}, nil
}

// Close releases the rate limiter.
func (d *Disambiguator) Close() {
	d.limiter.Close()
}
