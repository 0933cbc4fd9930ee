package match

import (
	"time"

	"github.com/polimatch/polimatch/internal/model"
)

// Config holds the weights, thresholds, and batch parameters of the matching
// engine. Everything is explicit so tests can exercise boundary values.
type Config struct {
	Weights Weights

	// MatchThreshold and ReviewThreshold split the final score into the
	// three automatic buckets: >= MatchThreshold is matched, >=
	// ReviewThreshold is needs review, anything below is no match.
	MatchThreshold  float64
	ReviewThreshold float64

	// ConfidentThreshold controls escalation: a top rule score below it
	// sends the shortlist to the disambiguator.
	ConfidentThreshold float64

	ShortlistSize        int
	Workers              int
	DisambiguatorTimeout time.Duration
}

// DefaultConfig returns the default matching configuration.
func DefaultConfig() Config {
	return Config{
		Weights:              DefaultWeights(),
		MatchThreshold:       0.7,
		ReviewThreshold:      0.5,
		ConfidentThreshold:   0.8,
		ShortlistSize:        5,
		Workers:              4,
		DisambiguatorTimeout: 30 * time.Second,
	}
}

// Bucket maps a final score to one of the three automatic outcomes.
func (c Config) Bucket(score float64) model.CandidateStatus {
	switch {
	case score >= c.MatchThreshold:
		return model.StatusMatched
	case score >= c.ReviewThreshold:
		return model.StatusNeedsReview
	default:
		return model.StatusNoMatch
	}
}
