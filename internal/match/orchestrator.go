package match

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/polimatch/polimatch/internal/common"
	"github.com/polimatch/polimatch/internal/model"
	"github.com/polimatch/polimatch/internal/service"
)

// Orchestrator drives the batch resolution of pending candidates.
type Orchestrator struct {
	storage       service.Storage
	disambiguator Disambiguator
	config        Config
}

// Options tunes one matching run.
type Options struct {
	// GroupID limits the run to one group; empty means all pending.
	GroupID string
	// District is the district context of the run's group, used for the
	// district component of the rule score when known.
	District string
	// Progress, when set, is invoked after each candidate completes.
	Progress func(done, total int)
}

// NewOrchestrator creates a matching orchestrator with the given dependencies.
func NewOrchestrator(storage service.Storage, disambiguator Disambiguator, config Config) *Orchestrator {
	if config.Workers <= 0 {
		config.Workers = DefaultConfig().Workers
	}
	if config.ShortlistSize <= 0 {
		config.ShortlistSize = DefaultConfig().ShortlistSize
	}
	if config.DisambiguatorTimeout <= 0 {
		config.DisambiguatorTimeout = DefaultConfig().DisambiguatorTimeout
	}
	return &Orchestrator{
		storage:       storage,
		disambiguator: disambiguator,
		config:        config,
	}
}

// Run resolves every pending candidate in scope. Candidates are independent:
// a failure on one is logged and counted, never fatal to the batch. Only
// infrastructure errors (context cancellation, losing the pending query)
// abort the run.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (service.MatchStats, error) {
	started := time.Now()
	stats := service.MatchStats{}

	pending, err := o.storage.GetCandidatesByStatus(ctx, model.StatusPending, opts.GroupID)
	if err != nil {
		return stats, fmt.Errorf("failed to load pending candidates: %w", err)
	}
	if len(pending) == 0 {
		slog.Info("No pending candidates to match", "group_id", opts.GroupID)
		return stats, nil
	}

	slog.Info("Starting matching run",
		"group_id", opts.GroupID,
		"pending", len(pending),
		"workers", o.config.Workers)

	var mu sync.Mutex
	done := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.config.Workers)

	for _, candidate := range pending {
		candidate := candidate
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}

			result, resolveErr := o.resolve(gctx, candidate, opts.District)

			var err error
			if resolveErr == nil {
				err = o.storage.ApplyMatchResult(gctx, candidate.ID, model.StatusPending, result)
			}

			mu.Lock()
			defer mu.Unlock()
			stats.Processed++
			done++

			switch {
			case resolveErr != nil:
				// A lookup failure is transient: the candidate stays
				// pending for the next run instead of being bucketed.
				slog.Error("Failed to resolve candidate, leaving it pending",
					"candidate_id", candidate.ID,
					"error", resolveErr)
				stats.Failed++
			case errors.Is(err, common.ErrStaleStatus):
				slog.Warn("Candidate already processed by a concurrent run",
					"candidate_id", candidate.ID)
				stats.Skipped++
			case err != nil:
				slog.Error("Failed to persist match result",
					"candidate_id", candidate.ID,
					"error", err)
				stats.Failed++
			default:
				switch result.Status {
				case model.StatusMatched:
					stats.Matched++
				case model.StatusNeedsReview:
					stats.NeedsReview++
				case model.StatusNoMatch:
					stats.NoMatch++
				}
			}

			if opts.Progress != nil {
				opts.Progress(done, len(pending))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		stats.Duration = time.Since(started)
		return stats, err
	}

	stats.Duration = time.Since(started)
	slog.Info("Matching run complete",
		"processed", stats.Processed,
		"matched", stats.Matched,
		"needs_review", stats.NeedsReview,
		"no_match", stats.NoMatch,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
		"duration", stats.Duration)
	return stats, nil
}

// resolve decides the outcome for one candidate. Malformed candidates become
// no-match with a note and disambiguator failures fall back to the rule
// score; only a registry lookup failure returns an error, so the caller can
// leave the candidate pending.
func (o *Orchestrator) resolve(ctx context.Context, candidate model.ExtractedCandidate, district string) (service.MatchResult, error) {
	if strings.TrimSpace(candidate.Name) == "" {
		return service.MatchResult{
			Status:     model.StatusNoMatch,
			Confidence: 0,
			Note:       "validation: empty candidate name",
		}, nil
	}

	input := ScoreInput{
		Name:           candidate.Name,
		NormalizedName: Normalize(candidate.Name),
		Party:          candidate.PartyRaw,
		District:       district,
	}

	shortlist, err := o.shortlist(ctx, candidate, input)
	if err != nil {
		return service.MatchResult{}, fmt.Errorf("candidate lookup failed: %w", err)
	}
	if len(shortlist) == 0 {
		return service.MatchResult{
			Status:     model.StatusNoMatch,
			Confidence: 0,
		}, nil
	}

	top := shortlist[0]
	chosenID := top.Politician.ID
	finalScore := top.Score

	if o.disambiguator != nil && o.shouldEscalate(shortlist) {
		resolution, ok := o.disambiguate(ctx, candidate, shortlist)
		if ok && resolution.PoliticianID != nil {
			chosenID = *resolution.PoliticianID
			// The final score is the better of the rule score for the
			// chosen identity and the disambiguator's confidence.
			finalScore = ruleScoreFor(shortlist, chosenID)
			if resolution.Confidence > finalScore {
				finalScore = resolution.Confidence
			}
		}
	}

	status := o.config.Bucket(finalScore)
	result := service.MatchResult{
		Status:     status,
		Confidence: finalScore,
	}
	// Only a confident match records the politician id. A review outcome
	// keeps the best guess in the note for the operator to verify.
	switch status {
	case model.StatusMatched:
		result.PoliticianID = &chosenID
	case model.StatusNeedsReview:
		result.Note = fmt.Sprintf("suggested politician %d", chosenID)
	}
	return result, nil
}

// shortlist looks up canonical identities for the candidate and returns the
// top-ranked subset. Party-scoped lookup is tried first when a raw party
// string is available, widening to a plain name lookup when it yields
// nothing.
func (o *Orchestrator) shortlist(ctx context.Context, candidate model.ExtractedCandidate, input ScoreInput) ([]ScoredPolitician, error) {
	var politicians []model.Politician
	var err error

	if candidate.PartyRaw != "" {
		politicians, err = o.storage.FindPoliticiansByNameAndParty(ctx, candidate.Name, input.NormalizedName, candidate.PartyRaw)
		if err != nil {
			return nil, err
		}
	}
	if len(politicians) == 0 {
		politicians, err = o.storage.FindPoliticiansByName(ctx, candidate.Name, input.NormalizedName)
		if err != nil {
			return nil, err
		}
	}

	ranked := Rank(input, politicians, o.config.Weights)
	if len(ranked) > o.config.ShortlistSize {
		ranked = ranked[:o.config.ShortlistSize]
	}
	return ranked, nil
}

// shouldEscalate reports whether the shortlist needs the disambiguator: the
// top score is not confident on its own, or several identities tie at or
// above the review threshold.
func (o *Orchestrator) shouldEscalate(shortlist []ScoredPolitician) bool {
	top := shortlist[0].Score
	if top < o.config.ConfidentThreshold {
		return true
	}
	tied := 0
	for _, sp := range shortlist {
		if sp.Score == top && top >= o.config.ReviewThreshold {
			tied++
		}
	}
	return tied > 1
}

// disambiguate calls the external service with a per-call timeout. Any
// failure is logged and reported as no opinion; it never aborts the batch.
func (o *Orchestrator) disambiguate(ctx context.Context, candidate model.ExtractedCandidate, shortlist []ScoredPolitician) (Resolution, bool) {
	callCtx, cancel := context.WithTimeout(ctx, o.config.DisambiguatorTimeout)
	defer cancel()

	resolution, err := o.disambiguator.Resolve(callCtx, candidate, shortlist)
	if err != nil {
		slog.Warn("Disambiguation failed, falling back to rule score",
			"candidate_id", candidate.ID,
			"error", fmt.Errorf("%w: %v", common.ErrDisambiguation, err))
		return Resolution{}, false
	}
	if resolution.Confidence < 0 || resolution.Confidence > 1 {
		slog.Warn("Disambiguator returned out-of-range confidence, ignoring",
			"candidate_id", candidate.ID,
			"confidence", resolution.Confidence)
		return Resolution{}, false
	}
	return resolution, true
}

func ruleScoreFor(shortlist []ScoredPolitician, politicianID int64) float64 {
	for _, sp := range shortlist {
		if sp.Politician.ID == politicianID {
			return sp.Score
		}
	}
	return 0
}
