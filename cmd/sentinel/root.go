package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	dbPath  string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "sentinel",
	Short: "Streaming text quality controller",
	Long: `sentinel gates a token stream in real time: it scores each unit's
confidence and coherence, warns or rolls back when quality degrades, and
adapts its thresholds to the conversation phase.

Commands:
  run      Gate a JSONL unit stream from stdin
  replay   Re-run a recorded fixture and compare actions
  inspect  Browse persisted session provenance`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "provenance database path")
}
