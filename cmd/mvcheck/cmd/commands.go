package cmd

import (
	"github.com/spf13/cobra"

	"github.com/armadaproject/mvcheck/internal/mvcheck"
)

// Write rows until the operator presses Enter, then verify the view on every node.
func runCmd(app *mvcheck.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Write to the base table until Enter is pressed, then verify the view on every node.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithSignals(app.Run)
		},
	}
	return cmd
}

// Verify existing data without writing anything.
func verifyCmd(app *mvcheck.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify the view on every node against the base table without writing.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithSignals(app.Verify)
		},
	}
	return cmd
}

// Drop and recreate the keyspace, base table and view.
func setupCmd(app *mvcheck.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Drop and recreate the keyspace, base table and materialized view.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithSignals(app.Setup)
		},
	}
	return cmd
}

// Print version info and exit.
func versionCmd(app *mvcheck.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version.",
		// Version doesn't need a valid configuration.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Version()
		},
	}
	return cmd
}
