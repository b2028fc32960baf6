package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"studioledger/internal/report"
	"studioledger/internal/store"
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List projects with quoted, received, expenses and margin",
	Args:  cobra.NoArgs,
	RunE:  runProjects,
}

var projectCmd = &cobra.Command{
	Use:   "project <id>",
	Short: "Show one project's ledger and category breakdown",
	Args:  cobra.ExactArgs(1),
	RunE:  runProject,
}

func init() {
	rootCmd.AddCommand(projectsCmd, projectCmd)
}

func runProjects(cmd *cobra.Command, _ []string) error {
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
	fmt.Fprint(cmd.OutOrStdout(), report.Projects(projects, th))
	return nil
}

func runProject(cmd *cobra.Command, args []string) error {
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
	p, err := repo.GetProject(ctx, args[0])
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("no project with id %q", args[0])
	}
	if err != nil {
		return fmt.Errorf("get project: %w", err)
	}
	fmt.Fprint(cmd.OutOrStdout(), report.Project(p, th))
	return nil
}
