package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/polimatch/polimatch/internal/common"
	"github.com/polimatch/polimatch/internal/convert"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func affiliationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "affiliations",
		Short: "Manage affiliation records",
	}

	cmd.AddCommand(affiliationsCreateCmd())

	return cmd
}

func affiliationsCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create affiliations from accepted matches",
		Long: `Convert matched and manually matched candidates into affiliation
records. Each conversion is atomic and the command is idempotent: candidates
already converted, and politicians who already hold an active affiliation in
the same group, are skipped.

Examples:
  polimatch affiliations create
  polimatch affiliations create --group council-2026 --start-date 2026-04-01
  polimatch affiliations create --min-confidence 0.8`,
		RunE: runAffiliationsCreate,
	}

	cmd.Flags().StringP("group", "g", "", "Limit conversion to one group")
	cmd.Flags().StringP("start-date", "s", "", "Affiliation start date (format: 2006-01-02, default: extraction time)")
	cmd.Flags().Float64("min-confidence", 0, "Skip automatic matches below this confidence")

	_ = viper.BindPFlag("affiliations.group", cmd.Flags().Lookup("group"))
	_ = viper.BindPFlag("affiliations.start_date", cmd.Flags().Lookup("start-date"))
	_ = viper.BindPFlag("affiliations.min_confidence", cmd.Flags().Lookup("min-confidence"))

	return cmd
}

func runAffiliationsCreate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	opts := convert.Options{
		GroupID: viper.GetString("affiliations.group"),
	}

	if raw := viper.GetString("affiliations.start_date"); raw != "" {
		startDate, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return common.NewUserError("invalid start date format (use YYYY-MM-DD)", err)
		}
		opts.StartDate = startDate
	}

	if minConfidence := viper.GetFloat64("affiliations.min_confidence"); minConfidence > 0 {
		if minConfidence > 1 {
			return common.NewUserError(fmt.Sprintf("min-confidence must be between 0 and 1, got %v", minConfidence), nil)
		}
		opts.MinConfidence = &minConfidence
	}

	slog.Info("Starting affiliation creation")

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	creator := convert.NewCreator(store)
	stats, err := creator.Run(ctx, opts)
	if err != nil {
		return fmt.Errorf("affiliation creation failed: %w", err)
	}

	slog.Info("Affiliation creation complete",
		"processed", stats.Processed,
		"created", stats.Created,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
		"duration", stats.Duration.Round(time.Millisecond))

	return nil
}
