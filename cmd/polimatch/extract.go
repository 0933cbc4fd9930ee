package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/polimatch/polimatch/internal/common"
	"github.com/polimatch/polimatch/internal/model"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// extractDocument is the ingest format produced by the upstream scrapers: one
// group per document with its extracted member or speaker entries.
type extractDocument struct {
	GroupID    string         `json:"group_id"`
	GroupType  string         `json:"group_type"`
	Candidates []extractEntry `json:"candidates"`
}

type extractEntry struct {
	Name    string `json:"name"`
	Role    string `json:"role"`
	Party   string `json:"party"`
	RawText string `json:"raw_text"`
}

func extractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Ingest extracted candidate records",
		Long: `Ingest candidate records extracted from a conference page, a
parliamentary-group listing, or meeting minutes, and stage them for matching.

Candidates are deduplicated on (group, name, role): re-running the same
extraction inserts nothing new. Use --force to requeue the group's previously
resolved candidates for a fresh matching pass; manually decided and converted
candidates are never requeued.

Examples:
  polimatch extract --input members.json
  cat members.json | polimatch extract
  polimatch extract --input members.json --force`,
		RunE: runExtract,
	}

	cmd.Flags().StringP("input", "i", "-", "Input JSON file (- for stdin)")
	cmd.Flags().BoolP("force", "f", false, "Requeue the group's resolved candidates for re-matching")
	cmd.Flags().Bool("dry-run", false, "Parse and validate without saving")

	_ = viper.BindPFlag("extract.input", cmd.Flags().Lookup("input"))
	_ = viper.BindPFlag("extract.force", cmd.Flags().Lookup("force"))
	_ = viper.BindPFlag("extract.dry_run", cmd.Flags().Lookup("dry-run"))

	return cmd
}

func runExtract(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	doc, err := readExtractDocument(viper.GetString("extract.input"))
	if err != nil {
		return err
	}

	groupType := model.GroupType(doc.GroupType)
	if doc.GroupID == "" {
		return fmt.Errorf("input document has no group_id")
	}
	if !groupType.IsValid() {
		return fmt.Errorf("invalid group_type: %q", doc.GroupType)
	}

	now := time.Now()
	candidates := make([]model.ExtractedCandidate, 0, len(doc.Candidates))
	for _, entry := range doc.Candidates {
		candidates = append(candidates, model.ExtractedCandidate{
			ID:        uuid.NewString(),
			GroupID:   doc.GroupID,
			GroupType: groupType,
			Name:      entry.Name,
			Role:      entry.Role,
			PartyRaw:  entry.Party,
			RawText:   entry.RawText,
			Status:    model.StatusPending,
			CreatedAt: now,
		})
	}

	slog.Info("Parsed extraction document",
		"group_id", doc.GroupID,
		"group_type", groupType,
		"candidates", len(candidates))

	if viper.GetBool("extract.dry_run") {
		slog.Info("Dry run mode - not saving to database")
		return nil
	}

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	if viper.GetBool("extract.force") {
		requeued, requeueErr := store.RequeueCandidates(ctx, doc.GroupID, false)
		if requeueErr != nil {
			return fmt.Errorf("failed to requeue candidates: %w", requeueErr)
		}
		slog.Info("Requeued previously resolved candidates", "group_id", doc.GroupID, "requeued", requeued)
	}

	inserted, err := store.SaveCandidates(ctx, candidates)
	if err != nil {
		return fmt.Errorf("failed to save candidates: %w", err)
	}

	slog.Info("Extraction ingested",
		"group_id", doc.GroupID,
		"inserted", inserted,
		"duplicates", len(candidates)-inserted)
	slog.Info("Run 'polimatch match' to resolve the staged candidates")

	return nil
}

func readExtractDocument(path string) (*extractDocument, error) {
	var reader io.Reader
	if path == "" || path == "-" {
		reader = os.Stdin
	} else {
		file, err := os.Open(path) // #nosec G304 -- operator-supplied input path
		if err != nil {
			return nil, fmt.Errorf("failed to open input file: %w", err)
		}
		defer func() { _ = file.Close() }()
		reader = file
	}

	var doc extractDocument
	decoder := json.NewDecoder(reader)
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse input document: %w", err)
	}
	if len(doc.Candidates) == 0 {
		return nil, fmt.Errorf("%w: input document is empty", common.ErrNoCandidates)
	}

	return &doc, nil
}
