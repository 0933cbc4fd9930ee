package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/polimatch/polimatch/internal/common"
	"github.com/polimatch/polimatch/internal/review"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func reviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Review candidates the matcher could not settle",
		Long: `List and decide candidates in NEEDS_REVIEW or NO_MATCH.

Approving records a manual match to a politician; rejecting marks the
candidate as not corresponding to any known politician. Every decision is
recorded in the review history with the reviewer's name.`,
	}

	cmd.AddCommand(reviewListCmd())
	cmd.AddCommand(reviewApproveCmd())
	cmd.AddCommand(reviewRejectCmd())

	return cmd
}

func reviewListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List candidates awaiting a decision",
		RunE:  runReviewList,
	}

	cmd.Flags().StringP("group", "g", "", "Limit to one group")
	_ = viper.BindPFlag("review.group", cmd.Flags().Lookup("group"))

	return cmd
}

func runReviewList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	gateway := review.NewGateway(store)
	candidates, err := gateway.ListPending(ctx, viper.GetString("review.group"))
	if err != nil {
		return err
	}

	if len(candidates) == 0 {
		fmt.Fprintln(os.Stdout, "No candidates awaiting review.")
		return nil
	}

	rows := make([][]string, 0, len(candidates))
	for _, c := range candidates {
		rows = append(rows, []string{
			c.ID,
			c.GroupID,
			c.Name,
			c.PartyRaw,
			string(c.Status),
			formatConfidence(c.Confidence),
			c.Note,
		})
	}

	fmt.Fprintln(os.Stdout, renderTable(
		[]string{"ID", "Group", "Name", "Party", "Status", "Confidence", "Note"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	))
	fmt.Fprintf(os.Stdout, "\n%d candidates awaiting review.\n", len(candidates))

	return nil
}

func reviewApproveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "approve <candidate-id> <politician-id>",
		Short: "Manually match a candidate to a politician",
		Args:  cobra.ExactArgs(2),
		RunE:  runReviewApprove,
	}

	cmd.Flags().String("reviewer", "", "Name of the person making the decision (required)")
	cmd.Flags().String("note", "", "Optional note explaining the decision")
	_ = cmd.MarkFlagRequired("reviewer")

	return cmd
}

func runReviewApprove(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	politicianID, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return common.NewUserError(fmt.Sprintf("invalid politician id %q", args[1]), err)
	}

	reviewer, _ := cmd.Flags().GetString("reviewer")
	note, _ := cmd.Flags().GetString("note")

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	gateway := review.NewGateway(store)
	if err := gateway.Approve(ctx, args[0], politicianID, reviewer, note); err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Candidate %s manually matched to politician %d.\n", args[0], politicianID)
	return nil
}

func reviewRejectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reject <candidate-id>",
		Short: "Mark a candidate as matching no known politician",
		Args:  cobra.ExactArgs(1),
		RunE:  runReviewReject,
	}

	cmd.Flags().String("reviewer", "", "Name of the person making the decision (required)")
	cmd.Flags().String("note", "", "Optional note explaining the decision")
	_ = cmd.MarkFlagRequired("reviewer")

	return cmd
}

func runReviewReject(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	reviewer, _ := cmd.Flags().GetString("reviewer")
	note, _ := cmd.Flags().GetString("note")

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	gateway := review.NewGateway(store)
	if err := gateway.Reject(ctx, args[0], reviewer, note); err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Candidate %s manually rejected.\n", args[0])
	return nil
}

func formatConfidence(confidence *float64) string {
	if confidence == nil {
		return "-"
	}
	return strconv.FormatFloat(*confidence, 'f', 2, 64)
}
