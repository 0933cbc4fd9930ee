package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func resetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Requeue a group's candidates for re-matching",
		Long: `Reset returns a group's resolved candidates to PENDING so the next
matching run processes them again.

By default only automatically resolved candidates (matched, needs review, no
match) are requeued. Pass --include-terminal to also requeue converted and
manually decided candidates; affiliations already created are not touched.`,
		RunE: runReset,
	}

	cmd.Flags().StringP("group", "g", "", "Group to reset (required)")
	cmd.Flags().Bool("include-terminal", false, "Also requeue converted and manually decided candidates")
	cmd.Flags().BoolP("force", "f", false, "Skip confirmation prompt")
	_ = cmd.MarkFlagRequired("group")

	_ = viper.BindPFlag("reset.group", cmd.Flags().Lookup("group"))
	_ = viper.BindPFlag("reset.include_terminal", cmd.Flags().Lookup("include-terminal"))
	_ = viper.BindPFlag("reset.force", cmd.Flags().Lookup("force"))

	return cmd
}

func runReset(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	groupID := viper.GetString("reset.group")
	includeTerminal := viper.GetBool("reset.include_terminal")

	if !viper.GetBool("reset.force") {
		fmt.Fprintf(os.Stdout, "This will requeue resolved candidates in group %q for re-matching.\n", groupID)
		if includeTerminal {
			fmt.Fprintf(os.Stdout, "Converted and manually decided candidates will also be requeued.\n")
		}
		fmt.Fprintf(os.Stdout, "\nAre you sure you want to continue? [y/N]: ")

		var response string
		if _, err := fmt.Scanln(&response); err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}
		if response != "y" && response != "Y" {
			fmt.Fprintln(os.Stdout, "Reset canceled.")
			return nil
		}
	}

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	requeued, err := store.RequeueCandidates(ctx, groupID, includeTerminal)
	if err != nil {
		return fmt.Errorf("failed to requeue candidates: %w", err)
	}

	if requeued == 0 {
		fmt.Fprintln(os.Stdout, "No resolved candidates found. Nothing to reset.")
		return nil
	}

	slog.Info("Candidates requeued", "group_id", groupID, "requeued", requeued)
	fmt.Fprintf(os.Stdout, "Requeued %d candidates. Run 'polimatch match' to re-resolve them.\n", requeued)

	return nil
}
