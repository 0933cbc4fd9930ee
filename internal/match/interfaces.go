package match

import (
	"context"

	"github.com/polimatch/polimatch/internal/model"
)

// Resolution is the disambiguator's answer for one candidate. A nil
// PoliticianID means the service had no opinion.
type Resolution struct {
	PoliticianID *int64
	Confidence   float64
}

// Disambiguator is the external semantic-matching capability consulted when
// the rule-based score is inconclusive. Implementations must treat every
// failure as recoverable; the orchestrator falls back to the rule score.
type Disambiguator interface {
	Resolve(ctx context.Context, candidate model.ExtractedCandidate, shortlist []ScoredPolitician) (Resolution, error)
}
