package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragsync/internal/core/domain"
)

// timePrecision rounds durations in human-facing output.
const timePrecision = 10 * time.Millisecond

var syncAll bool

var syncCmd = &cobra.Command{
	Use:   "sync [source-name]",
	Short: "Run a one-shot ingestion for a source",
	Long: `Runs a single ingestion pass and exits. With a source name, only that
source instance is synchronised; with --all, every configured source is
synchronised sequentially.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&syncAll, "all", false, "synchronise all configured sources")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && !syncAll {
		return errors.New("provide a source name or --all")
	}
	if len(args) > 0 && syncAll {
		return errors.New("--all cannot be combined with a source name")
	}

	ctx := cmd.Context()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	sources := a.sources
	if len(args) > 0 {
		src, err := a.findSource(args[0])
		if err != nil {
			return err
		}
		sources = []domain.SourceInstance{src}
	}

	var failed int
	for _, src := range sources {
		cmd.Printf("Synchronising %s...\n", src.Name)

		report, err := a.ingestor.Run(ctx, src)
		if err != nil {
			failed++
			cmd.Printf("  %s: failed: %v\n", src.Name, err)
			continue
		}
		printReport(cmd, report)
	}

	if failed > 0 {
		return fmt.Errorf("%d source(s) failed", failed)
	}
	return nil
}

func printReport(cmd *cobra.Command, report *domain.RunReport) {
	cmd.Printf("  %s: %s in %s (%d new, %d updated, %d unchanged",
		report.SourceName, report.Status,
		report.EndedAt.Sub(report.StartedAt).Round(timePrecision),
		report.New, report.Updated, report.Unchanged)
	if report.Failed > 0 {
		cmd.Printf(", %d failed", report.Failed)
	}
	if report.Purged > 0 {
		cmd.Printf(", %d purged", report.Purged)
	}
	cmd.Println(")")
}
