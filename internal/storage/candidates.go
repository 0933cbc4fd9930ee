package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/polimatch/polimatch/internal/common"
	"github.com/polimatch/polimatch/internal/model"
	"github.com/polimatch/polimatch/internal/service"
)

// SaveCandidates persists extracted candidates, skipping rows that already
// exist for the same (group, name, role). Returns the number of new rows.
func (s *SQLiteStorage) SaveCandidates(ctx context.Context, candidates []model.ExtractedCandidate) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateCandidates(candidates); err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO extracted_candidates (
			id, group_id, group_type, name, role, party_raw, raw_text, status, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	inserted := 0
	for _, candidate := range candidates {
		createdAt := candidate.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now()
		}

		res, execErr := stmt.ExecContext(ctx,
			candidate.ID,
			candidate.GroupID,
			string(candidate.GroupType),
			candidate.Name,
			candidate.Role,
			candidate.PartyRaw,
			candidate.RawText,
			string(model.StatusPending),
			createdAt,
		)
		if execErr != nil {
			return 0, fmt.Errorf("failed to insert candidate %s: %w", candidate.ID, execErr)
		}

		rows, raErr := res.RowsAffected()
		if raErr != nil {
			return 0, fmt.Errorf("failed to count inserted rows: %w", raErr)
		}
		inserted += int(rows)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit candidates: %w", err)
	}
	return inserted, nil
}

// GetCandidateByID retrieves a single candidate.
func (s *SQLiteStorage) GetCandidateByID(ctx context.Context, id string) (*model.ExtractedCandidate, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, candidateSelect+` WHERE id = ?`, id)
	candidate, err := scanCandidate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("candidate %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get candidate: %w", err)
	}
	return candidate, nil
}

// GetCandidatesByStatus retrieves candidates in the given status, optionally
// filtered to one group. An empty groupID means all groups.
func (s *SQLiteStorage) GetCandidatesByStatus(ctx context.Context, status model.CandidateStatus, groupID string) ([]model.ExtractedCandidate, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStatus, status)
	}

	query := candidateSelect + ` WHERE status = ?`
	args := []any{string(status)}
	if groupID != "" {
		query += ` AND group_id = ?`
		args = append(args, groupID)
	}
	query += ` ORDER BY created_at, id`

	return s.queryCandidates(ctx, query, args...)
}

// GetConvertibleCandidates retrieves matched and manually matched candidates
// that have not been converted yet. Manually matched candidates carry no
// confidence score, so the minimum-confidence filter only applies to
// automatic matches.
func (s *SQLiteStorage) GetConvertibleCandidates(ctx context.Context, groupID string, minConfidence *float64) ([]model.ExtractedCandidate, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := candidateSelect + ` WHERE status IN (?, ?)`
	args := []any{string(model.StatusMatched), string(model.StatusManuallyMatched)}
	if groupID != "" {
		query += ` AND group_id = ?`
		args = append(args, groupID)
	}
	if minConfidence != nil {
		query += ` AND (confidence IS NULL OR confidence >= ?)`
		args = append(args, *minConfidence)
	}
	query += ` ORDER BY created_at, id`

	return s.queryCandidates(ctx, query, args...)
}

// ApplyMatchResult persists the outcome of an automatic matching pass. The
// update is guarded by the expected current status so that two concurrent
// runs cannot overwrite one another.
func (s *SQLiteStorage) ApplyMatchResult(ctx context.Context, candidateID string, expected model.CandidateStatus, result service.MatchResult) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(candidateID, "candidateID"); err != nil {
		return err
	}
	if err := validateMatchResult(result); err != nil {
		return err
	}
	if !expected.CanTransition(result.Status) {
		return fmt.Errorf("%w: %s -> %s", common.ErrInvalidTransition, expected, result.Status)
	}

	var politicianID any
	if result.PoliticianID != nil {
		politicianID = *result.PoliticianID
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE extracted_candidates
		SET status = ?, matched_politician_id = ?, confidence = ?, note = ?, matched_at = ?
		WHERE id = ? AND status = ?
	`,
		string(result.Status),
		politicianID,
		result.Confidence,
		result.Note,
		time.Now(),
		candidateID,
		string(expected),
	)
	if err != nil {
		return fmt.Errorf("failed to apply match result: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if rows == 0 {
		var current string
		scanErr := s.db.QueryRowContext(ctx,
			`SELECT status FROM extracted_candidates WHERE id = ?`, candidateID).Scan(&current)
		if errors.Is(scanErr, sql.ErrNoRows) {
			return fmt.Errorf("candidate %s: %w", candidateID, common.ErrNotFound)
		}
		if scanErr != nil {
			return fmt.Errorf("failed to check candidate status: %w", scanErr)
		}
		return fmt.Errorf("candidate %s is %s, expected %s: %w",
			candidateID, current, expected, common.ErrStaleStatus)
	}
	return nil
}

// RequeueCandidates moves resolved candidates back to pending for
// re-matching. Terminal candidates (converted, manually rejected) and manual
// matches are only touched when includeTerminal is set; that flag is the
// explicit operator-gated path backward from otherwise final states.
func (s *SQLiteStorage) RequeueCandidates(ctx context.Context, groupID string, includeTerminal bool) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	statuses := []model.CandidateStatus{model.StatusMatched, model.StatusNeedsReview, model.StatusNoMatch}
	if includeTerminal {
		statuses = append(statuses, model.StatusConverted, model.StatusManuallyRejected, model.StatusManuallyMatched)
	}

	query := `
		UPDATE extracted_candidates
		SET status = ?, matched_politician_id = NULL, confidence = NULL,
		    note = '', matched_at = NULL, reviewed_by = NULL, reviewed_at = NULL
		WHERE status IN (` + placeholders(len(statuses)) + `)`
	args := make([]any, 0, len(statuses)+2)
	args = append(args, string(model.StatusPending))
	for _, status := range statuses {
		args = append(args, string(status))
	}
	if groupID != "" {
		query += ` AND group_id = ?`
		args = append(args, groupID)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to requeue candidates: %w", err)
	}
	return res.RowsAffected()
}

// RecordReview applies a manual decision: approve moves the candidate to
// manually matched with the chosen politician, reject moves it to manually
// rejected. Every decision is appended to the review history.
func (s *SQLiteStorage) RecordReview(ctx context.Context, record service.ReviewRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateReviewRecord(record); err != nil {
		return err
	}

	target := model.StatusManuallyMatched
	if record.Decision == service.DecisionReject {
		target = model.StatusManuallyRejected
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var current string
	err = tx.QueryRowContext(ctx,
		`SELECT status FROM extracted_candidates WHERE id = ?`, record.CandidateID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("candidate %s: %w", record.CandidateID, common.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to load candidate: %w", err)
	}

	if !model.CandidateStatus(current).CanTransition(target) {
		return fmt.Errorf("%w: %s -> %s", common.ErrInvalidTransition, current, target)
	}

	var politicianID any
	if record.PoliticianID != nil {
		politicianID = *record.PoliticianID
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE extracted_candidates
		SET status = ?, matched_politician_id = ?, confidence = NULL,
		    note = ?, reviewed_by = ?, reviewed_at = ?
		WHERE id = ? AND status = ?
	`,
		string(target),
		politicianID,
		record.Note,
		record.Reviewer,
		time.Now(),
		record.CandidateID,
		current,
	)
	if err != nil {
		return fmt.Errorf("failed to apply review decision: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("candidate %s: %w", record.CandidateID, common.ErrStaleStatus)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO review_history (candidate_id, decision, politician_id, reviewer, note)
		VALUES (?, ?, ?, ?, ?)
	`,
		record.CandidateID,
		record.Decision,
		politicianID,
		record.Reviewer,
		record.Note,
	)
	if err != nil {
		return fmt.Errorf("failed to record review history: %w", err)
	}

	return tx.Commit()
}

// CountCandidatesByStatus returns per-status counts, optionally for one group.
// Every defined status is present in the result, zero counts included.
func (s *SQLiteStorage) CountCandidatesByStatus(ctx context.Context, groupID string) (map[model.CandidateStatus]int, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `SELECT status, COUNT(*) FROM extracted_candidates`
	var args []any
	if groupID != "" {
		query += ` WHERE group_id = ?`
		args = append(args, groupID)
	}
	query += ` GROUP BY status`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count candidates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[model.CandidateStatus]int, len(model.AllStatuses))
	for _, status := range model.AllStatuses {
		counts[status] = 0
	}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[model.CandidateStatus(status)] = count
	}
	return counts, rows.Err()
}

const candidateSelect = `
	SELECT id, group_id, group_type, name, role, party_raw, raw_text,
	       matched_politician_id, confidence, status, note,
	       reviewed_by, reviewed_at, created_at, matched_at
	FROM extracted_candidates`

// rowScanner abstracts *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanCandidate(row rowScanner) (*model.ExtractedCandidate, error) {
	var c model.ExtractedCandidate
	var groupType, status string
	var partyRaw, rawText, reviewedBy sql.NullString
	var politicianID sql.NullInt64
	var confidence sql.NullFloat64
	var reviewedAt, matchedAt sql.NullTime

	err := row.Scan(
		&c.ID,
		&c.GroupID,
		&groupType,
		&c.Name,
		&c.Role,
		&partyRaw,
		&rawText,
		&politicianID,
		&confidence,
		&status,
		&c.Note,
		&reviewedBy,
		&reviewedAt,
		&c.CreatedAt,
		&matchedAt,
	)
	if err != nil {
		return nil, err
	}

	c.GroupType = model.GroupType(groupType)
	c.Status = model.CandidateStatus(status)
	c.PartyRaw = partyRaw.String
	c.RawText = rawText.String
	c.ReviewedBy = reviewedBy.String
	if politicianID.Valid {
		c.MatchedPoliticianID = &politicianID.Int64
	}
	if confidence.Valid {
		c.Confidence = &confidence.Float64
	}
	if reviewedAt.Valid {
		c.ReviewedAt = &reviewedAt.Time
	}
	if matchedAt.Valid {
		c.MatchedAt = &matchedAt.Time
	}
	return &c, nil
}

func (s *SQLiteStorage) queryCandidates(ctx context.Context, query string, args ...any) ([]model.ExtractedCandidate, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query candidates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var candidates []model.ExtractedCandidate
	for rows.Next() {
		candidate, scanErr := scanCandidate(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", scanErr)
		}
		candidates = append(candidates, *candidate)
	}
	return candidates, rows.Err()
}

// placeholders builds a comma-separated list of n SQL placeholders.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	out := "?"
	for i := 1; i < n; i++ {
		out += ", ?"
	}
	return out
}
