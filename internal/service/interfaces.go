// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/polimatch/polimatch/internal/model"
)

// MatchResult is the outcome of resolving one candidate, persisted by the
// staging store under an optimistic status guard.
type MatchResult struct {
	PoliticianID *int64
	Note         string
	Status       model.CandidateStatus
	Confidence   float64
}

// ReviewRecord is one manual decision made by an operator.
type ReviewRecord struct {
	PoliticianID *int64
	CandidateID  string
	Decision     string
	Reviewer     string
	Note         string
}

// Review decision constants.
const (
	DecisionApprove = "approve"
	DecisionReject  = "reject"
)

// Storage defines the contract for our persistence layer.
type Storage interface {
	// Candidate staging operations
	SaveCandidates(ctx context.Context, candidates []model.ExtractedCandidate) (int, error)
	GetCandidateByID(ctx context.Context, id string) (*model.ExtractedCandidate, error)
	GetCandidatesByStatus(ctx context.Context, status model.CandidateStatus, groupID string) ([]model.ExtractedCandidate, error)
	GetConvertibleCandidates(ctx context.Context, groupID string, minConfidence *float64) ([]model.ExtractedCandidate, error)
	ApplyMatchResult(ctx context.Context, candidateID string, expected model.CandidateStatus, result MatchResult) error
	RequeueCandidates(ctx context.Context, groupID string, includeTerminal bool) (int64, error)
	RecordReview(ctx context.Context, record ReviewRecord) error
	CountCandidatesByStatus(ctx context.Context, groupID string) (map[model.CandidateStatus]int, error)

	// Politician repository (read-only to the pipeline)
	FindPoliticiansByName(ctx context.Context, name, normalized string) ([]model.Politician, error)
	FindPoliticiansByNameAndParty(ctx context.Context, name, normalized, party string) ([]model.Politician, error)
	GetPoliticianByID(ctx context.Context, id int64) (*model.Politician, error)

	// Affiliation operations
	CreateAffiliation(ctx context.Context, affiliation *model.Affiliation) error
	GetActiveAffiliation(ctx context.Context, politicianID int64, groupID string) (*model.Affiliation, error)
	ConvertCandidate(ctx context.Context, candidateID string, affiliation *model.Affiliation) error

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// MatchStats shows the per-item outcomes of a matching run.
type MatchStats struct {
	Processed   int
	Matched     int
	NeedsReview int
	NoMatch     int
	Skipped     int
	Failed      int
	Duration    time.Duration
}

// ConvertStats shows the per-item outcomes of an affiliation-creation run.
type ConvertStats struct {
	Processed int
	Created   int
	Skipped   int
	Failed    int
	Duration  time.Duration
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
