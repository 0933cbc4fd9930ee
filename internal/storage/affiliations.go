package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/polimatch/polimatch/internal/common"
	"github.com/polimatch/polimatch/internal/model"
)

// CreateAffiliation inserts a new affiliation. The partial unique index on
// active affiliations makes a second active row for the same politician and
// group fail with ErrDuplicateAffiliation.
func (s *SQLiteStorage) CreateAffiliation(ctx context.Context, affiliation *model.Affiliation) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateAffiliation(affiliation); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.createAffiliationTx(ctx, tx, affiliation); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStorage) createAffiliationTx(ctx context.Context, tx *sql.Tx, affiliation *model.Affiliation) error {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO affiliations (politician_id, group_id, group_type, role, start_date, end_date)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		affiliation.PoliticianID,
		affiliation.GroupID,
		string(affiliation.GroupType),
		string(affiliation.Role),
		affiliation.StartDate,
		affiliation.EndDate,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("politician %d in group %s: %w",
				affiliation.PoliticianID, affiliation.GroupID, common.ErrDuplicateAffiliation)
		}
		return fmt.Errorf("failed to insert affiliation: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get affiliation id: %w", err)
	}
	affiliation.ID = id
	return nil
}

// GetActiveAffiliation retrieves the currently active affiliation for a
// politician in a group, or ErrNotFound.
func (s *SQLiteStorage) GetActiveAffiliation(ctx context.Context, politicianID int64, groupID string) (*model.Affiliation, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(groupID, "groupID"); err != nil {
		return nil, err
	}

	var a model.Affiliation
	var groupType, role string
	var endDate sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT id, politician_id, group_id, group_type, role, start_date, end_date, created_at
		FROM affiliations
		WHERE politician_id = ? AND group_id = ? AND (end_date IS NULL OR end_date > ?)
	`, politicianID, groupID, time.Now()).Scan(
		&a.ID, &a.PoliticianID, &a.GroupID, &groupType, &role, &a.StartDate, &endDate, &a.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("active affiliation for politician %d in group %s: %w",
			politicianID, groupID, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get affiliation: %w", err)
	}

	a.GroupType = model.GroupType(groupType)
	a.Role = model.AffiliationRole(role)
	if endDate.Valid {
		a.EndDate = &endDate.Time
	}
	return &a, nil
}

// ConvertCandidate atomically creates the affiliation and marks the
// candidate converted. A duplicate active affiliation rolls the whole
// operation back and surfaces ErrDuplicateAffiliation.
func (s *SQLiteStorage) ConvertCandidate(ctx context.Context, candidateID string, affiliation *model.Affiliation) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(candidateID, "candidateID"); err != nil {
		return err
	}
	if err := validateAffiliation(affiliation); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var current string
	err = tx.QueryRowContext(ctx,
		`SELECT status FROM extracted_candidates WHERE id = ?`, candidateID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("candidate %s: %w", candidateID, common.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to load candidate: %w", err)
	}

	if !model.CandidateStatus(current).CanTransition(model.StatusConverted) {
		return fmt.Errorf("%w: %s -> %s", common.ErrInvalidTransition, current, model.StatusConverted)
	}

	if err := s.createAffiliationTx(ctx, tx, affiliation); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE extracted_candidates
		SET status = ?, confidence = NULL
		WHERE id = ? AND status = ?
	`, string(model.StatusConverted), candidateID, current)
	if err != nil {
		return fmt.Errorf("failed to mark candidate converted: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("candidate %s: %w", candidateID, common.ErrStaleStatus)
	}

	return tx.Commit()
}

// isUniqueViolation reports whether err is a SQLite unique constraint error.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
