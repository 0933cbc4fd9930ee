package storage

import (
	"context"
	"testing"

	"github.com/polimatch/polimatch/internal/common"
	"github.com/polimatch/polimatch/internal/model"
	"github.com/polimatch/polimatch/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveCandidates_DeduplicatesOnGroupNameRole(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	candidates := createTestCandidates("council-2026", 3)
	inserted, err := store.SaveCandidates(ctx, candidates)
	require.NoError(t, err)
	assert.Equal(t, 3, inserted)

	// Re-running the same extraction inserts nothing, even with new ids and
	// different raw text.
	rerun := createTestCandidates("council-2026", 3)
	for i := range rerun {
		rerun[i].ID = rerun[i].ID + "-rerun"
		rerun[i].RawText = "updated raw text"
	}
	inserted, err = store.SaveCandidates(ctx, rerun)
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)

	// The same name in a different role is a distinct record.
	chair := rerun[0]
	chair.ID = "council-2026-chair"
	chair.Role = "委員長"
	inserted, err = store.SaveCandidates(ctx, []model.ExtractedCandidate{chair})
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)

	counts, err := store.CountCandidatesByStatus(ctx, "council-2026")
	require.NoError(t, err)
	assert.Equal(t, 4, counts[model.StatusPending])
}

func TestSaveCandidates_Validation(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	_, err := store.SaveCandidates(ctx, []model.ExtractedCandidate{})
	assert.ErrorIs(t, err, ErrEmptySlice)

	missing := createTestCandidates("g1", 1)
	missing[0].GroupID = ""
	_, err = store.SaveCandidates(ctx, missing)
	assert.ErrorIs(t, err, ErrInvalidCandidate)

	badType := createTestCandidates("g1", 1)
	badType[0].GroupType = "COMMITTEE"
	_, err = store.SaveCandidates(ctx, badType)
	assert.ErrorIs(t, err, ErrInvalidCandidate)

	// The same id twice in one batch is an extractor bug, not a dedup case.
	repeated := createTestCandidates("g1", 2)
	repeated[1].ID = repeated[0].ID
	_, err = store.SaveCandidates(ctx, repeated)
	assert.ErrorIs(t, err, common.ErrDuplicateEntry)
}

func TestGetCandidateByID_NotFound(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	_, err := store.GetCandidateByID(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestApplyMatchResult(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()
	ids := seedTestPoliticians(t, store)

	candidates := stageCandidates(t, store, "council-2026", 1)
	candidateID := candidates[0].ID

	err := store.ApplyMatchResult(ctx, candidateID, model.StatusPending, service.MatchResult{
		Status:       model.StatusMatched,
		PoliticianID: &ids[0],
		Confidence:   0.85,
		Note:         "rule: exact name + party",
	})
	require.NoError(t, err)

	got, err := store.GetCandidateByID(ctx, candidateID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusMatched, got.Status)
	require.NotNil(t, got.MatchedPoliticianID)
	assert.Equal(t, ids[0], *got.MatchedPoliticianID)
	require.NotNil(t, got.Confidence)
	assert.InDelta(t, 0.85, *got.Confidence, 0.0001)
	assert.NotNil(t, got.MatchedAt)

	// A second pass expecting PENDING loses the race.
	err = store.ApplyMatchResult(ctx, candidateID, model.StatusPending, service.MatchResult{
		Status:     model.StatusNoMatch,
		Confidence: 0.1,
	})
	assert.ErrorIs(t, err, common.ErrStaleStatus)

	// Unknown candidate surfaces not-found, not a silent stale.
	err = store.ApplyMatchResult(ctx, "missing", model.StatusPending, service.MatchResult{
		Status:     model.StatusNoMatch,
		Confidence: 0.1,
	})
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestApplyMatchResult_InvariantViolations(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()
	ids := seedTestPoliticians(t, store)

	candidates := stageCandidates(t, store, "council-2026", 1)
	candidateID := candidates[0].ID

	tests := []struct {
		name    string
		result  service.MatchResult
		wantErr error
	}{
		{
			name:    "matched without politician id",
			result:  service.MatchResult{Status: model.StatusMatched, Confidence: 0.9},
			wantErr: ErrInvalidCandidate,
		},
		{
			name: "no match carrying politician id",
			result: service.MatchResult{
				Status:       model.StatusNoMatch,
				PoliticianID: &ids[0],
				Confidence:   0.2,
			},
			wantErr: ErrInvalidCandidate,
		},
		{
			name: "needs review carrying politician id",
			result: service.MatchResult{
				Status:       model.StatusNeedsReview,
				PoliticianID: &ids[0],
				Confidence:   0.6,
			},
			wantErr: ErrInvalidCandidate,
		},
		{
			name: "manual status is not an automatic outcome",
			result: service.MatchResult{
				Status:       model.StatusManuallyMatched,
				PoliticianID: &ids[0],
			},
			wantErr: ErrInvalidStatus,
		},
		{
			name: "confidence out of range",
			result: service.MatchResult{
				Status:       model.StatusMatched,
				PoliticianID: &ids[0],
				Confidence:   1.2,
			},
			wantErr: ErrInvalidCandidate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.ApplyMatchResult(ctx, candidateID, model.StatusPending, tt.result)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	// None of the rejected results should have touched the row.
	got, err := store.GetCandidateByID(ctx, candidateID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, got.Status)
}

func TestRequeueCandidates(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()
	ids := seedTestPoliticians(t, store)

	candidates := stageCandidates(t, store, "council-2026", 4)

	// matched, needs review, no match, and one manual decision
	require.NoError(t, store.ApplyMatchResult(ctx, candidates[0].ID, model.StatusPending, service.MatchResult{
		Status: model.StatusMatched, PoliticianID: &ids[0], Confidence: 0.9,
	}))
	require.NoError(t, store.ApplyMatchResult(ctx, candidates[1].ID, model.StatusPending, service.MatchResult{
		Status: model.StatusNeedsReview, Confidence: 0.6,
	}))
	require.NoError(t, store.ApplyMatchResult(ctx, candidates[2].ID, model.StatusPending, service.MatchResult{
		Status: model.StatusNoMatch, Confidence: 0.2,
	}))
	require.NoError(t, store.ApplyMatchResult(ctx, candidates[3].ID, model.StatusPending, service.MatchResult{
		Status: model.StatusNeedsReview, Confidence: 0.55,
	}))
	require.NoError(t, store.RecordReview(ctx, service.ReviewRecord{
		CandidateID:  candidates[3].ID,
		PoliticianID: &ids[2],
		Decision:     service.DecisionApprove,
		Reviewer:     "operator",
	}))

	requeued, err := store.RequeueCandidates(ctx, "council-2026", false)
	require.NoError(t, err)
	assert.Equal(t, int64(3), requeued, "manual decisions survive a default requeue")

	got, err := store.GetCandidateByID(ctx, candidates[0].ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, got.Status)
	assert.Nil(t, got.MatchedPoliticianID)
	assert.Nil(t, got.Confidence)

	manual, err := store.GetCandidateByID(ctx, candidates[3].ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusManuallyMatched, manual.Status)

	// The operator-gated path also requeues manual and terminal states.
	requeued, err = store.RequeueCandidates(ctx, "council-2026", true)
	require.NoError(t, err)
	assert.Equal(t, int64(1), requeued)

	manual, err = store.GetCandidateByID(ctx, candidates[3].ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, manual.Status)
	assert.Nil(t, manual.MatchedPoliticianID)
	assert.Empty(t, manual.ReviewedBy)
}

func TestRequeueCandidates_ScopedToGroup(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()
	ids := seedTestPoliticians(t, store)

	a := stageCandidates(t, store, "group-a", 1)
	b := stageCandidates(t, store, "group-b", 1)
	for _, c := range []model.ExtractedCandidate{a[0], b[0]} {
		require.NoError(t, store.ApplyMatchResult(ctx, c.ID, model.StatusPending, service.MatchResult{
			Status: model.StatusMatched, PoliticianID: &ids[0], Confidence: 0.9,
		}))
	}

	requeued, err := store.RequeueCandidates(ctx, "group-a", false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), requeued)

	untouched, err := store.GetCandidateByID(ctx, b[0].ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusMatched, untouched.Status)
}

func TestRecordReview_Approve(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()
	ids := seedTestPoliticians(t, store)

	candidates := stageCandidates(t, store, "council-2026", 1)
	candidateID := candidates[0].ID

	require.NoError(t, store.ApplyMatchResult(ctx, candidateID, model.StatusPending, service.MatchResult{
		Status: model.StatusNeedsReview, Confidence: 0.6,
	}))

	err := store.RecordReview(ctx, service.ReviewRecord{
		CandidateID:  candidateID,
		PoliticianID: &ids[1],
		Decision:     service.DecisionApprove,
		Reviewer:     "tanaka",
		Note:         "confirmed against the member roster",
	})
	require.NoError(t, err)

	got, err := store.GetCandidateByID(ctx, candidateID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusManuallyMatched, got.Status)
	require.NotNil(t, got.MatchedPoliticianID)
	assert.Equal(t, ids[1], *got.MatchedPoliticianID)
	assert.Nil(t, got.Confidence, "manual decisions carry no automatic confidence")
	assert.Equal(t, "tanaka", got.ReviewedBy)
	assert.NotNil(t, got.ReviewedAt)

	var historyCount int
	err = store.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM review_history WHERE candidate_id = ?`, candidateID).Scan(&historyCount)
	require.NoError(t, err)
	assert.Equal(t, 1, historyCount)
}

func TestRecordReview_Transitions(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()
	ids := seedTestPoliticians(t, store)

	candidates := stageCandidates(t, store, "council-2026", 3)

	// Rejecting from NEEDS_REVIEW is allowed.
	require.NoError(t, store.ApplyMatchResult(ctx, candidates[0].ID, model.StatusPending, service.MatchResult{
		Status: model.StatusNeedsReview, Confidence: 0.6,
	}))
	require.NoError(t, store.RecordReview(ctx, service.ReviewRecord{
		CandidateID: candidates[0].ID,
		Decision:    service.DecisionReject,
		Reviewer:    "tanaka",
	}))

	// Approving from NO_MATCH rescues the candidate.
	require.NoError(t, store.ApplyMatchResult(ctx, candidates[1].ID, model.StatusPending, service.MatchResult{
		Status: model.StatusNoMatch, Confidence: 0.1,
	}))
	require.NoError(t, store.RecordReview(ctx, service.ReviewRecord{
		CandidateID:  candidates[1].ID,
		PoliticianID: &ids[0],
		Decision:     service.DecisionApprove,
		Reviewer:     "tanaka",
	}))

	// Rejecting from NO_MATCH is redundant and therefore not a transition.
	require.NoError(t, store.ApplyMatchResult(ctx, candidates[2].ID, model.StatusPending, service.MatchResult{
		Status: model.StatusNoMatch, Confidence: 0.1,
	}))
	err := store.RecordReview(ctx, service.ReviewRecord{
		CandidateID: candidates[2].ID,
		Decision:    service.DecisionReject,
		Reviewer:    "tanaka",
	})
	assert.ErrorIs(t, err, common.ErrInvalidTransition)

	// Decisions are final: a second review of the same candidate fails.
	err = store.RecordReview(ctx, service.ReviewRecord{
		CandidateID:  candidates[0].ID,
		PoliticianID: &ids[1],
		Decision:     service.DecisionApprove,
		Reviewer:     "tanaka",
	})
	assert.ErrorIs(t, err, common.ErrInvalidTransition)
}

func TestRecordReview_Validation(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()
	ids := seedTestPoliticians(t, store)

	err := store.RecordReview(ctx, service.ReviewRecord{
		CandidateID: "c1",
		Decision:    service.DecisionApprove,
		Reviewer:    "tanaka",
	})
	assert.ErrorIs(t, err, ErrInvalidReview, "approval requires a politician id")

	err = store.RecordReview(ctx, service.ReviewRecord{
		CandidateID:  "c1",
		PoliticianID: &ids[0],
		Decision:     service.DecisionReject,
		Reviewer:     "tanaka",
	})
	assert.ErrorIs(t, err, ErrInvalidReview, "rejection must not carry a politician id")

	err = store.RecordReview(ctx, service.ReviewRecord{
		CandidateID:  "missing",
		PoliticianID: &ids[0],
		Decision:     service.DecisionApprove,
		Reviewer:     "tanaka",
	})
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestCountCandidatesByStatus_ZeroFilled(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	counts, err := store.CountCandidatesByStatus(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, counts, len(model.AllStatuses))
	for _, status := range model.AllStatuses {
		assert.Contains(t, counts, status)
		assert.Zero(t, counts[status])
	}
}

func TestGetConvertibleCandidates_MinConfidence(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()
	ids := seedTestPoliticians(t, store)

	candidates := stageCandidates(t, store, "council-2026", 3)

	require.NoError(t, store.ApplyMatchResult(ctx, candidates[0].ID, model.StatusPending, service.MatchResult{
		Status: model.StatusMatched, PoliticianID: &ids[0], Confidence: 0.95,
	}))
	require.NoError(t, store.ApplyMatchResult(ctx, candidates[1].ID, model.StatusPending, service.MatchResult{
		Status: model.StatusMatched, PoliticianID: &ids[1], Confidence: 0.75,
	}))
	// A manual match has no confidence and always passes the filter.
	require.NoError(t, store.ApplyMatchResult(ctx, candidates[2].ID, model.StatusPending, service.MatchResult{
		Status: model.StatusNeedsReview, Confidence: 0.6,
	}))
	require.NoError(t, store.RecordReview(ctx, service.ReviewRecord{
		CandidateID:  candidates[2].ID,
		PoliticianID: &ids[2],
		Decision:     service.DecisionApprove,
		Reviewer:     "operator",
	}))

	all, err := store.GetConvertibleCandidates(ctx, "council-2026", nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	minConfidence := 0.8
	filtered, err := store.GetConvertibleCandidates(ctx, "council-2026", &minConfidence)
	require.NoError(t, err)
	require.Len(t, filtered, 2)
	gotIDs := []string{filtered[0].ID, filtered[1].ID}
	assert.Contains(t, gotIDs, candidates[0].ID)
	assert.Contains(t, gotIDs, candidates[2].ID)
}
