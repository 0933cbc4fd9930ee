package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/polimatch/polimatch/internal/model"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func statusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the pipeline status of staged candidates",
		Long: `Show how many candidates sit in each pipeline state, either across
the whole database or for a single group.`,
		RunE: runStatus,
	}

	cmd.Flags().StringP("group", "g", "", "Limit to one group")
	_ = viper.BindPFlag("status.group", cmd.Flags().Lookup("group"))

	return cmd
}

func runStatus(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	counts, err := store.CountCandidatesByStatus(ctx, viper.GetString("status.group"))
	if err != nil {
		return fmt.Errorf("failed to count candidates: %w", err)
	}

	total := 0
	rows := make([][]string, 0, len(model.AllStatuses))
	for _, status := range model.AllStatuses {
		count := counts[status]
		total += count
		rows = append(rows, []string{string(status), strconv.Itoa(count)})
	}
	rows = append(rows, []string{"TOTAL", strconv.Itoa(total)})

	fmt.Fprintln(os.Stdout, renderTable(
		[]string{"Status", "Candidates"},
		rows,
		[]columnAlignment{alignLeft, alignRight},
	))

	return nil
}
