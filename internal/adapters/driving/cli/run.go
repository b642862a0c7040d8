package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragsync/internal/core/services"
	"github.com/custodia-labs/ragsync/internal/logger"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the scheduler daemon",
	Long: `Starts the scheduler and blocks. Each source instance is triggered on
its configured intervals; triggers for a source whose previous run is
still in progress are dropped. SIGINT or SIGTERM stops the scheduler
after in-flight runs finish.`,
	Args: cobra.NoArgs,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runDaemon(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	dispatcher, err := services.NewDispatcher(a.sources, a.ingestor, a.runStore, a.cfg.Workers)
	if err != nil {
		return err
	}

	logger.Info("Scheduler started: %d source(s), %d worker(s)", len(a.sources), a.cfg.Workers)
	if err := dispatcher.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	logger.Info("Shutting down, waiting for in-flight runs")
	return dispatcher.Stop()
}
