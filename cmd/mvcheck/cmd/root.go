package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/armadaproject/mvcheck/internal/common/mvcontext"
	"github.com/armadaproject/mvcheck/internal/mvcheck"
)

// RootCmd is the root Cobra command that gets called from the main func.
// All other sub-commands should be registered here.
func RootCmd() *cobra.Command {
	app := mvcheck.New()
	cmd := &cobra.Command{
		Use:   "mvcheck",
		Short: "mvcheck checks that a materialized view converges to its base table on every replica.",
		Long: `mvcheck checks that a materialized view converges to its base table on every replica.

It writes rows to the base table until Enter is pressed. Kill and restart one node
while the writes are running. Once the writes stop, mvcheck reads the base table at
QUORUM and the view from every node at ONE, and reports which nodes differ. The check
repeats until mvcheck is killed, unless --maxPasses or --exitOnMatch is given.

Persistent config can be saved in a config file so it doesn't have to be specified every command.

Example structure:
nodes: [10.0.0.1:9042, 10.0.0.2:9042, 10.0.0.3:9042]
settleDelay: 2m
writeConsistency: all

The location of this file can be passed in using the --config argument.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initParams(cmd, app)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithSignals(app.Run)
		},
	}

	addPersistentFlags(cmd)

	cmd.AddCommand(
		runCmd(app),
		verifyCmd(app),
		setupCmd(app),
		versionCmd(app),
	)

	return cmd
}

// runWithSignals calls f with a context that is cancelled on SIGINT/SIGTERM.
func runWithSignals(f func(ctx *mvcontext.Context) error) error {
	ctx, cancel := mvcontext.WithCancel(mvcontext.Background())
	defer cancel()
	stopSignal := make(chan os.Signal, 1)
	signal.Notify(stopSignal, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stopSignal)
	go func() {
		select {
		case <-ctx.Done():
			return
		case <-stopSignal:
			cancel()
		}
	}()

	err := f(ctx)
	// Being interrupted is the normal way to end an unbounded check.
	if err != nil && ctx.Err() != nil && errors.Is(err, context.Canceled) {
		ctx.Log.Info("Interrupted, exiting")
		return nil
	}
	return err
}
