// Package storage provides the data persistence layer for the resolution pipeline.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/polimatch/polimatch/internal/common"
	"github.com/polimatch/polimatch/internal/model"
	"github.com/polimatch/polimatch/internal/service"
)

// Validation errors.
var (
	ErrNilContext         = errors.New("context cannot be nil")
	ErrEmptyString        = errors.New("string parameter cannot be empty")
	ErrNilParameter       = errors.New("parameter cannot be nil")
	ErrEmptySlice         = errors.New("slice cannot be empty")
	ErrInvalidStatus      = errors.New("invalid candidate status")
	ErrInvalidCandidate   = errors.New("invalid candidate")
	ErrInvalidAffiliation = errors.New("invalid affiliation")
	ErrInvalidReview      = errors.New("invalid review record")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateCandidates validates a slice of candidates.
func validateCandidates(candidates []model.ExtractedCandidate) error {
	if candidates == nil {
		return fmt.Errorf("%w: candidates", ErrNilParameter)
	}
	if len(candidates) == 0 {
		return fmt.Errorf("%w: candidates", ErrEmptySlice)
	}

	seen := make(map[string]struct{}, len(candidates))
	for i, candidate := range candidates {
		if err := validateCandidate(&candidate); err != nil {
			return fmt.Errorf("candidate at index %d: %w", i, err)
		}
		// A repeated id inside one batch would be silently absorbed by the
		// insert, masking an extractor bug.
		if _, ok := seen[candidate.ID]; ok {
			return fmt.Errorf("%w: candidate id %s", common.ErrDuplicateEntry, candidate.ID)
		}
		seen[candidate.ID] = struct{}{}
	}
	return nil
}

// validateCandidate validates a single candidate.
func validateCandidate(candidate *model.ExtractedCandidate) error {
	if candidate == nil {
		return fmt.Errorf("%w: candidate", ErrNilParameter)
	}
	if candidate.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidCandidate)
	}
	if candidate.GroupID == "" {
		return fmt.Errorf("%w: missing group ID", ErrInvalidCandidate)
	}
	if !candidate.GroupType.IsValid() {
		return fmt.Errorf("%w: unknown group type %q", ErrInvalidCandidate, candidate.GroupType)
	}
	if !candidate.Status.IsValid() {
		return fmt.Errorf("%w: %s", ErrInvalidStatus, candidate.Status)
	}
	return nil
}

// validateMatchResult enforces the confidence and matched-id invariants for
// the target status.
func validateMatchResult(result service.MatchResult) error {
	switch result.Status {
	case model.StatusMatched:
		if result.PoliticianID == nil {
			return fmt.Errorf("%w: matched result requires a politician id", ErrInvalidCandidate)
		}
	case model.StatusNeedsReview, model.StatusNoMatch:
		if result.PoliticianID != nil {
			return fmt.Errorf("%w: %s result must not carry a politician id", ErrInvalidCandidate, result.Status)
		}
	default:
		return fmt.Errorf("%w: %s is not an automatic match outcome", ErrInvalidStatus, result.Status)
	}

	if result.Confidence < 0 || result.Confidence > 1 {
		return fmt.Errorf("%w: confidence must be between 0 and 1", ErrInvalidCandidate)
	}
	return nil
}

// validateAffiliation validates an affiliation.
func validateAffiliation(affiliation *model.Affiliation) error {
	if affiliation == nil {
		return fmt.Errorf("%w: affiliation", ErrNilParameter)
	}
	if affiliation.PoliticianID == 0 {
		return fmt.Errorf("%w: missing politician ID", ErrInvalidAffiliation)
	}
	if strings.TrimSpace(affiliation.GroupID) == "" {
		return fmt.Errorf("%w: missing group ID", ErrInvalidAffiliation)
	}
	if !affiliation.GroupType.IsValid() {
		return fmt.Errorf("%w: unknown group type %q", ErrInvalidAffiliation, affiliation.GroupType)
	}
	if affiliation.Role == "" {
		return fmt.Errorf("%w: missing role", ErrInvalidAffiliation)
	}
	if affiliation.StartDate.IsZero() {
		return fmt.Errorf("%w: missing start date", ErrInvalidAffiliation)
	}
	if affiliation.EndDate != nil && affiliation.EndDate.Before(affiliation.StartDate) {
		return fmt.Errorf("%w: end date before start date", ErrInvalidAffiliation)
	}
	return nil
}

// validateReviewRecord validates a manual review record.
func validateReviewRecord(record service.ReviewRecord) error {
	if record.CandidateID == "" {
		return fmt.Errorf("%w: missing candidate ID", ErrInvalidReview)
	}
	switch record.Decision {
	case service.DecisionApprove:
		if record.PoliticianID == nil {
			return fmt.Errorf("%w: approval requires a politician id", ErrInvalidReview)
		}
	case service.DecisionReject:
		if record.PoliticianID != nil {
			return fmt.Errorf("%w: rejection must not carry a politician id", ErrInvalidReview)
		}
	default:
		return fmt.Errorf("%w: unknown decision %q", ErrInvalidReview, record.Decision)
	}
	return nil
}
