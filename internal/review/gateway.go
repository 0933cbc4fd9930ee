// Package review implements the operator review workflow for candidates the
// matcher could not settle on its own.
package review

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/polimatch/polimatch/internal/common"
	"github.com/polimatch/polimatch/internal/model"
	"github.com/polimatch/polimatch/internal/service"
)

// Gateway validates and records manual match decisions.
type Gateway struct {
	storage service.Storage
}

// NewGateway creates a review gateway backed by the given storage.
func NewGateway(storage service.Storage) *Gateway {
	return &Gateway{storage: storage}
}

// ListPending returns candidates awaiting an operator decision: everything in
// NEEDS_REVIEW plus the NO_MATCH pile, which can still be rescued manually.
func (g *Gateway) ListPending(ctx context.Context, groupID string) ([]model.ExtractedCandidate, error) {
	needsReview, err := g.storage.GetCandidatesByStatus(ctx, model.StatusNeedsReview, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to load candidates needing review: %w", err)
	}

	noMatch, err := g.storage.GetCandidatesByStatus(ctx, model.StatusNoMatch, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to load unmatched candidates: %w", err)
	}

	return append(needsReview, noMatch...), nil
}

// Approve records a manual match of the candidate to the given politician.
// The politician must exist and the candidate must be in a reviewable state.
func (g *Gateway) Approve(ctx context.Context, candidateID string, politicianID int64, reviewer, note string) error {
	if reviewer == "" {
		return fmt.Errorf("%w: reviewer is required", common.ErrInvalidConfig)
	}

	politician, err := g.storage.GetPoliticianByID(ctx, politicianID)
	if err != nil {
		return fmt.Errorf("failed to look up politician %d: %w", politicianID, err)
	}

	record := service.ReviewRecord{
		CandidateID:  candidateID,
		PoliticianID: &politicianID,
		Decision:     service.DecisionApprove,
		Reviewer:     reviewer,
		Note:         note,
	}

	if err := g.storage.RecordReview(ctx, record); err != nil {
		return err
	}

	slog.Info("Candidate manually matched",
		"candidate_id", candidateID,
		"politician_id", politicianID,
		"politician", politician.Name,
		"reviewer", reviewer)
	return nil
}

// Reject records that the candidate does not correspond to any known
// politician. Only candidates in NEEDS_REVIEW can be rejected.
func (g *Gateway) Reject(ctx context.Context, candidateID, reviewer, note string) error {
	if reviewer == "" {
		return fmt.Errorf("%w: reviewer is required", common.ErrInvalidConfig)
	}

	record := service.ReviewRecord{
		CandidateID: candidateID,
		Decision:    service.DecisionReject,
		Reviewer:    reviewer,
		Note:        note,
	}

	if err := g.storage.RecordReview(ctx, record); err != nil {
		return err
	}

	slog.Info("Candidate manually rejected",
		"candidate_id", candidateID,
		"reviewer", reviewer)
	return nil
}
