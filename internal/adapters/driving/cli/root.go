// Package cli implements the ragsync command-line interface using cobra.
// Commands build their dependencies lazily from the configuration file, so
// help and version output work without a valid config.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragsync/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	cfgPath string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "ragsync",
	Short: "Keep a vector index synchronised with external document sources",
	Long: `ragsync pulls documents from configured sources, normalises them to
plain text, and keeps a vector index in sync: new documents are embedded
and inserted, changed documents are re-embedded and their stale vectors
removed, unchanged documents are skipped.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "ragsync.toml", "path to the configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion overrides the reported version string.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}
