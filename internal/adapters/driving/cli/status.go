package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragsync/internal/core/domain"
)

var statusHistory int

var statusCmd = &cobra.Command{
	Use:   "status [source-name]",
	Short: "Show recent run outcomes",
	Long: `Shows the most recent run report for each configured source, or the
run history of a single source with --history.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().IntVar(&statusHistory, "history", 0, "show the last N runs (single source only)")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if statusHistory > 0 {
		if len(args) != 1 {
			return errors.New("--history requires a source name")
		}
		src, err := a.findSource(args[0])
		if err != nil {
			return err
		}

		reports, err := a.runStore.History(ctx, src.Name, statusHistory)
		if err != nil {
			return err
		}
		if len(reports) == 0 {
			cmd.Printf("%s: no runs recorded\n", src.Name)
			return nil
		}
		for i := range reports {
			printStatusLine(cmd, &reports[i])
		}
		return nil
	}

	sources := a.sources
	if len(args) == 1 {
		src, err := a.findSource(args[0])
		if err != nil {
			return err
		}
		sources = []domain.SourceInstance{src}
	}

	for _, src := range sources {
		report, err := a.runStore.Latest(ctx, src.Name)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				cmd.Printf("%s: no runs recorded\n", src.Name)
				continue
			}
			return err
		}
		printStatusLine(cmd, report)
	}
	return nil
}

func printStatusLine(cmd *cobra.Command, report *domain.RunReport) {
	cmd.Printf("%s  %s  %-7s  %d new, %d updated, %d unchanged",
		report.StartedAt.Format("2006-01-02 15:04:05"),
		report.SourceName, report.Status,
		report.New, report.Updated, report.Unchanged)
	if report.Failed > 0 {
		cmd.Printf(", %d failed", report.Failed)
	}
	if report.Purged > 0 {
		cmd.Printf(", %d purged", report.Purged)
	}
	if report.Error != "" {
		cmd.Printf("  (%s)", report.Error)
	}
	cmd.Println()
}
