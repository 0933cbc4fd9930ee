package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/polimatch/polimatch/internal/match"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func matchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Resolve staged candidates against the politician registry",
		Long: `Resolve every pending candidate against the canonical politician
registry. Rule-based scoring handles the clear cases; ambiguous shortlists are
escalated to the configured LLM disambiguator, falling back to the rule score
when no disambiguator is configured or a call fails.

Examples:
  polimatch match                       # Resolve all pending candidates
  polimatch match --group council-2026  # Resolve one group
  polimatch match --district 東京都     # Score with district context`,
		RunE: runMatch,
	}

	cmd.Flags().StringP("group", "g", "", "Limit matching to one group")
	cmd.Flags().StringP("district", "d", "", "District context for the group being matched")
	cmd.Flags().IntP("workers", "w", 0, "Concurrent matching workers (0 = default)")

	_ = viper.BindPFlag("match.group", cmd.Flags().Lookup("group"))
	_ = viper.BindPFlag("match.district", cmd.Flags().Lookup("district"))
	_ = viper.BindPFlag("match.workers", cmd.Flags().Lookup("workers"))

	return cmd
}

func runMatch(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	slog.Info("Starting candidate matching")

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	disambiguator, err := createDisambiguator()
	if err != nil {
		return fmt.Errorf("failed to create disambiguator: %w", err)
	}
	if disambiguator == nil {
		slog.Info("No LLM provider configured, matching on rule scores only")
	}
	if closer, ok := disambiguator.(interface{ Close() }); ok {
		defer closer.Close()
	}

	config := match.DefaultConfig()
	if workers := viper.GetInt("match.workers"); workers > 0 {
		config.Workers = workers
	}

	var bar *progressbar.ProgressBar
	opts := match.Options{
		GroupID:  viper.GetString("match.group"),
		District: viper.GetString("match.district"),
		Progress: func(done, total int) {
			if bar == nil {
				bar = progressbar.NewOptions(total,
					progressbar.OptionSetWriter(os.Stderr),
					progressbar.OptionShowCount(),
					progressbar.OptionShowElapsedTimeOnFinish(),
					progressbar.OptionSetWidth(40),
					progressbar.OptionSetDescription("Matching candidates..."),
				)
			}
			if err := bar.Set(done); err != nil {
				slog.Warn("Failed to update progress bar", "error", err)
			}
		},
	}

	orchestrator := match.NewOrchestrator(store, disambiguator, config)
	stats, err := orchestrator.Run(ctx, opts)
	if err != nil {
		return fmt.Errorf("matching failed: %w", err)
	}
	if bar != nil {
		_ = bar.Finish()
		fmt.Fprintln(os.Stderr)
	}

	slog.Info("Matching complete",
		"processed", stats.Processed,
		"matched", stats.Matched,
		"needs_review", stats.NeedsReview,
		"no_match", stats.NoMatch,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
		"duration", stats.Duration.Round(time.Millisecond))

	if stats.NeedsReview > 0 {
		slog.Info(fmt.Sprintf("%d candidates need review: run 'polimatch review list'", stats.NeedsReview))
	}

	return nil
}
