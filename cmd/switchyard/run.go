package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dshills/switchyard/internal/config"
)

var runCmd = &cobra.Command{
	Use:   "run [script...]",
	Short: "Load components and run the event loop",
	Long: `Load the configured components plus any scripts given as arguments,
then run the root event loop until interrupted or a handler terminates it.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	a, err := assemble(cfg, logger, args...)
	if err != nil {
		return err
	}
	defer a.shutdown(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting", "scripts", len(a.scripts), "components", len(a.root.Components()))
	if err := a.root.Run(ctx); err != nil {
		return err
	}

	st := a.root.Stats()
	logger.Info("stopped", "fired", st.Fired, "dispatched", st.Dispatched, "errors", st.Errors)
	return nil
}
