package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/polimatch/polimatch/internal/common"
	"github.com/polimatch/polimatch/internal/model"
)

// FindPoliticiansByName looks up canonical identities whose raw or
// normalized name matches the candidate's raw or normalized name.
func (s *SQLiteStorage) FindPoliticiansByName(ctx context.Context, name, normalized string) ([]model.Politician, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}
	if normalized == "" {
		normalized = name
	}

	return s.queryPoliticians(ctx, `
		SELECT id, name, normalized_name, party, district
		FROM politicians
		WHERE name = ? OR name = ? OR normalized_name = ? OR normalized_name = ?
		ORDER BY id
	`, name, normalized, name, normalized)
}

// FindPoliticiansByNameAndParty narrows the name lookup to one party.
func (s *SQLiteStorage) FindPoliticiansByNameAndParty(ctx context.Context, name, normalized, party string) ([]model.Politician, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}
	if err := validateString(party, "party"); err != nil {
		return nil, err
	}
	if normalized == "" {
		normalized = name
	}

	return s.queryPoliticians(ctx, `
		SELECT id, name, normalized_name, party, district
		FROM politicians
		WHERE (name = ? OR name = ? OR normalized_name = ? OR normalized_name = ?)
		  AND party = ?
		ORDER BY id
	`, name, normalized, name, normalized, party)
}

// GetPoliticianByID retrieves one canonical identity.
func (s *SQLiteStorage) GetPoliticianByID(ctx context.Context, id int64) (*model.Politician, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var p model.Politician
	var party, district sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, normalized_name, party, district
		FROM politicians
		WHERE id = ?
	`, id).Scan(&p.ID, &p.Name, &p.NormalizedName, &party, &district)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("politician %d: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get politician: %w", err)
	}
	p.Party = party.String
	p.District = district.String
	return &p, nil
}

// SavePoliticians inserts canonical identities. The pipeline never calls
// this; it exists for seed tooling and tests.
func (s *SQLiteStorage) SavePoliticians(ctx context.Context, politicians []model.Politician) ([]int64, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if len(politicians) == 0 {
		return nil, fmt.Errorf("%w: politicians", ErrEmptySlice)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	ids := make([]int64, 0, len(politicians))
	for _, p := range politicians {
		if err := validateString(p.Name, "politician name"); err != nil {
			return nil, err
		}
		normalized := p.NormalizedName
		if normalized == "" {
			normalized = p.Name
		}

		res, execErr := tx.ExecContext(ctx, `
			INSERT INTO politicians (name, normalized_name, party, district)
			VALUES (?, ?, ?, ?)
		`, p.Name, normalized, p.Party, p.District)
		if execErr != nil {
			return nil, fmt.Errorf("failed to insert politician %s: %w", p.Name, execErr)
		}
		id, idErr := res.LastInsertId()
		if idErr != nil {
			return nil, fmt.Errorf("failed to get politician id: %w", idErr)
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit politicians: %w", err)
	}
	return ids, nil
}

func (s *SQLiteStorage) queryPoliticians(ctx context.Context, query string, args ...any) ([]model.Politician, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query politicians: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var politicians []model.Politician
	for rows.Next() {
		var p model.Politician
		var party, district sql.NullString
		if err := rows.Scan(&p.ID, &p.Name, &p.NormalizedName, &party, &district); err != nil {
			return nil, fmt.Errorf("failed to scan politician: %w", err)
		}
		p.Party = party.String
		p.District = district.String
		politicians = append(politicians, p)
	}
	return politicians, rows.Err()
}
