// Package cmd implements enbu's CLI surface: run and init subcommands,
// flag parsing, progress formatting, and exit codes.
package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags.
var Version = "dev"

var (
	verbose      bool
	progressJSON bool
)

var rootCmd = &cobra.Command{
	Use:   "enbu",
	Short: "Declarative browser-automation flow runner",
	Long: `enbu executes declarative browser-automation flows written in a YAML DSL
against a real browser, producing structured pass/fail results for each
step and for the flow as a whole.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	rootCmd.PersistentFlags().BoolVar(&progressJSON, "progress-json", false, "emit NDJSON progress events instead of human-readable output")
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate("enbu {{.Version}}\n")
}

// newLogger installs a slog handler per the --verbose/--progress-json flags:
// JSON in machine mode, text otherwise, with Debug-level enabled under
// --verbose.
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if progressJSON {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
