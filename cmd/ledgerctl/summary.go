package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"studioledger/internal/finance"
	"studioledger/internal/report"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Portfolio totals, margin ranking, top categories and recommendations",
	Args:  cobra.NoArgs,
	RunE:  runSummary,
}

func init() {
	rootCmd.AddCommand(summaryCmd)
}

func runSummary(cmd *cobra.Command, _ []string) error {
	th, err := thresholds()
	if err != nil {
		return err
	}
	repo, err := openStore()
	if err != nil {
		return err
	}
	defer repo.Close()

	ctx, cancel := commandContext(cmd)
	defer cancel()
	projects, err := repo.ListProjects(ctx)
	if err != nil {
		return fmt.Errorf("list projects: %w", err)
	}
	if len(projects) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "\n  No projects yet.")
		return nil
	}
	pf := finance.Rollup(projects)
	fmt.Fprint(cmd.OutOrStdout(), report.Summary(pf, finance.BuildInsights(pf, th)))
	return nil
}
