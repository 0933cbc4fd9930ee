package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/polimatch/polimatch/internal/model"
	"github.com/stretchr/testify/require"
)

// Helper function to create test storage.
func createTestStorage(t *testing.T) (*SQLiteStorage, func()) {
	t.Helper()
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewSQLiteStorage(dbPath)
	require.NoError(t, err, "Failed to create storage")

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		t.Fatalf("Failed to migrate: %v", err)
	}

	return store, func() { _ = store.Close() }
}

// Helper function to seed a small canonical registry.
func seedTestPoliticians(t *testing.T, store *SQLiteStorage) []int64 {
	t.Helper()
	ids, err := store.SavePoliticians(context.Background(), []model.Politician{
		{Name: "山田太郎", NormalizedName: "山田太郎", Party: "自由民主党", District: "東京都"},
		{Name: "佐藤花子", NormalizedName: "佐藤花子", Party: "立憲民主党", District: "大阪府"},
		{Name: "鈴木一郎", NormalizedName: "鈴木一郎", Party: "公明党", District: "東京都"},
	})
	require.NoError(t, err)
	require.Len(t, ids, 3)
	return ids
}

// Helper function to create staged test candidates.
func createTestCandidates(groupID string, count int) []model.ExtractedCandidate {
	candidates := make([]model.ExtractedCandidate, count)
	baseTime := time.Now().Add(-time.Hour)

	for i := 0; i < count; i++ {
		candidates[i] = model.ExtractedCandidate{
			ID:        fmt.Sprintf("%s-cand-%d", groupID, i+1),
			GroupID:   groupID,
			GroupType: model.GroupConference,
			Name:      fmt.Sprintf("候補者%d", i+1),
			Role:      "委員",
			PartyRaw:  "自由民主党",
			RawText:   fmt.Sprintf("委員 候補者%d（自由民主党）", i+1),
			Status:    model.StatusPending,
			CreatedAt: baseTime.Add(time.Duration(i) * time.Minute),
		}
	}
	return candidates
}

// Helper to stage candidates and return them.
func stageCandidates(t *testing.T, store *SQLiteStorage, groupID string, count int) []model.ExtractedCandidate {
	t.Helper()
	candidates := createTestCandidates(groupID, count)
	inserted, err := store.SaveCandidates(context.Background(), candidates)
	require.NoError(t, err)
	require.Equal(t, count, inserted)
	return candidates
}
