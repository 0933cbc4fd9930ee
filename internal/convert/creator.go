// Package convert turns accepted match results into durable affiliation
// records.
package convert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/polimatch/polimatch/internal/common"
	"github.com/polimatch/polimatch/internal/model"
	"github.com/polimatch/polimatch/internal/service"
)

// Creator converts matched candidates into affiliations. Each conversion is
// atomic: the affiliation insert and the candidate transition to CONVERTED
// commit together or not at all, so a rerun after a partial failure picks up
// exactly where the previous run stopped.
type Creator struct {
	storage service.Storage
}

// Options controls one conversion run.
type Options struct {
	// StartDate is stamped on every created affiliation. When zero, each
	// affiliation starts at its candidate's extraction time.
	StartDate time.Time
	// GroupID limits the run to one group. Empty means all groups.
	GroupID string
	// MinConfidence excludes automatically matched candidates below the
	// threshold. Manual matches carry no confidence and always pass.
	MinConfidence *float64
}

// NewCreator creates an affiliation creator backed by the given storage.
func NewCreator(storage service.Storage) *Creator {
	return &Creator{storage: storage}
}

// Run converts every eligible candidate and reports per-item outcomes. A
// candidate whose politician already holds an active affiliation in the same
// group is skipped, not failed; reruns are therefore idempotent.
func (c *Creator) Run(ctx context.Context, opts Options) (service.ConvertStats, error) {
	start := time.Now()
	stats := service.ConvertStats{}

	candidates, err := c.storage.GetConvertibleCandidates(ctx, opts.GroupID, opts.MinConfidence)
	if err != nil {
		return stats, fmt.Errorf("failed to load convertible candidates: %w", err)
	}

	for _, candidate := range candidates {
		stats.Processed++

		if err := c.convertOne(ctx, candidate, opts.StartDate); err != nil {
			switch {
			case errors.Is(err, common.ErrDuplicateAffiliation):
				stats.Skipped++
				slog.Debug("Skipping candidate with existing active affiliation",
					"candidate_id", candidate.ID,
					"politician_id", *candidate.MatchedPoliticianID,
					"group_id", candidate.GroupID)
			case errors.Is(err, common.ErrStaleStatus):
				stats.Skipped++
				slog.Debug("Skipping candidate changed by a concurrent run",
					"candidate_id", candidate.ID)
			default:
				stats.Failed++
				slog.Error("Failed to convert candidate",
					"candidate_id", candidate.ID,
					"error", err)
			}
			continue
		}

		stats.Created++
	}

	stats.Duration = time.Since(start)
	slog.Info("Conversion run complete",
		"processed", stats.Processed,
		"created", stats.Created,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
		"duration", stats.Duration.Round(time.Millisecond))
	return stats, nil
}

func (c *Creator) convertOne(ctx context.Context, candidate model.ExtractedCandidate, startDate time.Time) error {
	if candidate.MatchedPoliticianID == nil {
		return fmt.Errorf("candidate %s has no matched politician", candidate.ID)
	}

	if startDate.IsZero() {
		startDate = candidate.CreatedAt
	}

	affiliation := &model.Affiliation{
		PoliticianID: *candidate.MatchedPoliticianID,
		GroupID:      candidate.GroupID,
		GroupType:    candidate.GroupType,
		Role:         model.MapRole(candidate.Role, candidate.GroupType),
		StartDate:    startDate,
	}

	return c.storage.ConvertCandidate(ctx, candidate.ID, affiliation)
}
