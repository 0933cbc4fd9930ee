// Package model defines the core domain models used throughout the application.
package model

import "time"

// CandidateStatus tracks a candidate through the resolution pipeline.
type CandidateStatus string

// Candidate status constants.
const (
	StatusPending          CandidateStatus = "PENDING"
	StatusMatched          CandidateStatus = "MATCHED"
	StatusNeedsReview      CandidateStatus = "NEEDS_REVIEW"
	StatusNoMatch          CandidateStatus = "NO_MATCH"
	StatusManuallyMatched  CandidateStatus = "MANUALLY_MATCHED"
	StatusManuallyRejected CandidateStatus = "MANUALLY_REJECTED"
	StatusConverted        CandidateStatus = "CONVERTED"
)

// AllStatuses lists every defined candidate status.
var AllStatuses = []CandidateStatus{
	StatusPending,
	StatusMatched,
	StatusNeedsReview,
	StatusNoMatch,
	StatusManuallyMatched,
	StatusManuallyRejected,
	StatusConverted,
}

// transitions is the closed set of allowed status transitions. Anything not
// listed here is rejected by CanTransition.
var transitions = map[CandidateStatus][]CandidateStatus{
	StatusPending:          {StatusMatched, StatusNeedsReview, StatusNoMatch},
	StatusMatched:          {StatusConverted, StatusPending},
	StatusNeedsReview:      {StatusManuallyMatched, StatusManuallyRejected, StatusPending},
	StatusNoMatch:          {StatusManuallyMatched, StatusPending},
	StatusManuallyMatched:  {StatusConverted},
	StatusManuallyRejected: {},
	StatusConverted:        {},
}

// IsValid reports whether s is one of the defined statuses.
func (s CandidateStatus) IsValid() bool {
	_, ok := transitions[s]
	return ok
}

// IsTerminal reports whether no further automatic or manual transition is
// allowed from s.
func (s CandidateStatus) IsTerminal() bool {
	next, ok := transitions[s]
	return ok && len(next) == 0
}

// CanTransition reports whether moving from s to target is allowed.
func (s CandidateStatus) CanTransition(target CandidateStatus) bool {
	for _, next := range transitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// GroupType identifies what kind of body a candidate belongs to.
type GroupType string

// Group type constants.
const (
	GroupConference         GroupType = "CONFERENCE"
	GroupParliamentaryGroup GroupType = "PARLIAMENTARY_GROUP"
	GroupMeeting            GroupType = "MEETING"
)

// IsValid reports whether g is one of the defined group types.
func (g GroupType) IsValid() bool {
	switch g {
	case GroupConference, GroupParliamentaryGroup, GroupMeeting:
		return true
	}
	return false
}

// ExtractedCandidate is one raw member or speaker record produced by the
// extractor, staged until it is resolved to a politician.
type ExtractedCandidate struct {
	CreatedAt           time.Time
	MatchedAt           *time.Time
	ReviewedAt          *time.Time
	MatchedPoliticianID *int64
	Confidence          *float64
	ID                  string
	GroupID             string
	Name                string
	Role                string
	PartyRaw            string
	RawText             string
	Note                string
	ReviewedBy          string
	Status              CandidateStatus
	GroupType           GroupType
}

// HasConfidence reports whether the confidence invariant requires a score for
// the candidate's current status.
func (c *ExtractedCandidate) HasConfidence() bool {
	switch c.Status {
	case StatusMatched, StatusNeedsReview, StatusNoMatch:
		return true
	}
	return false
}

// HasMatch reports whether the candidate's status requires a matched
// politician id.
func (c *ExtractedCandidate) HasMatch() bool {
	switch c.Status {
	case StatusMatched, StatusManuallyMatched, StatusConverted:
		return true
	}
	return false
}
