package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/polimatch/polimatch/internal/config"
	"github.com/polimatch/polimatch/internal/match"
	"github.com/polimatch/polimatch/internal/model"
	"github.com/polimatch/polimatch/internal/storage"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type politicianEntry struct {
	Name     string `json:"name"`
	Party    string `json:"party"`
	District string `json:"district"`
}

func politiciansCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "politicians",
		Short: "Manage the canonical politician registry",
	}

	cmd.AddCommand(politiciansImportCmd())
	cmd.AddCommand(politiciansSearchCmd())

	return cmd
}

func politiciansImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import canonical politician identities",
		Long: `Import politician identities from a JSON array of objects with
name, party, and district fields. Normalized names are computed on import so
the matcher can compare them against normalized candidate names.

Examples:
  polimatch politicians import --input politicians.json
  cat politicians.json | polimatch politicians import`,
		RunE: runPoliticiansImport,
	}

	cmd.Flags().StringP("input", "i", "-", "Input JSON file (- for stdin)")
	_ = viper.BindPFlag("politicians.input", cmd.Flags().Lookup("input"))

	return cmd
}

func runPoliticiansImport(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	entries, err := readPoliticianEntries(viper.GetString("politicians.input"))
	if err != nil {
		return err
	}

	politicians := make([]model.Politician, 0, len(entries))
	for _, entry := range entries {
		politicians = append(politicians, model.Politician{
			Name:           entry.Name,
			NormalizedName: match.Normalize(entry.Name),
			Party:          entry.Party,
			District:       entry.District,
		})
	}

	store, err := openRegistry(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ids, err := store.SavePoliticians(ctx, politicians)
	if err != nil {
		return fmt.Errorf("failed to save politicians: %w", err)
	}

	slog.Info("Politicians imported", "count", len(ids))
	return nil
}

func politiciansSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <name>",
		Short: "Look up politicians by name",
		Long: `Look up politicians whose raw or normalized name matches the given
name. Useful for finding the politician id to pass to 'review approve'.`,
		Args: cobra.ExactArgs(1),
		RunE: runPoliticiansSearch,
	}
}

func runPoliticiansSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	store, err := openRegistry(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	politicians, err := store.FindPoliticiansByName(ctx, args[0], match.Normalize(args[0]))
	if err != nil {
		return fmt.Errorf("failed to search politicians: %w", err)
	}

	if len(politicians) == 0 {
		fmt.Fprintf(os.Stdout, "No politicians found matching %q.\n", args[0])
		return nil
	}

	rows := make([][]string, 0, len(politicians))
	for _, p := range politicians {
		rows = append(rows, []string{
			strconv.FormatInt(p.ID, 10),
			p.Name,
			p.Party,
			p.District,
		})
	}

	fmt.Fprintln(os.Stdout, renderTable(
		[]string{"ID", "Name", "Party", "District"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
	))

	return nil
}

func openRegistry(ctx context.Context) (*storage.SQLiteStorage, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = config.DefaultDatabasePath()
	}
	dbPath = config.ExpandPath(dbPath)

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

func readPoliticianEntries(path string) ([]politicianEntry, error) {
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

	var entries []politicianEntry
	if err := json.NewDecoder(reader).Decode(&entries); err != nil {
		return nil, fmt.Errorf("failed to parse input: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("input has no politicians")
	}

	return entries, nil
}
