package cli

import (
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List configured source instances",
	Args:  cobra.NoArgs,
	RunE:  runSources,
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}

func runSources(cmd *cobra.Command, _ []string) error {
	a, err := buildApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	for _, src := range a.sources {
		intervals := make([]string, 0, len(src.Intervals))
		for _, d := range src.Intervals {
			intervals = append(intervals, d.String())
		}
		sort.Strings(intervals)

		cmd.Printf("%-30s  type=%s  intervals=%s  stale=%s\n",
			src.Name, src.Type, strings.Join(intervals, ","), src.Stale)
	}
	return nil
}
