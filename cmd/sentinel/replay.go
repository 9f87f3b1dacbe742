package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/streamgate/controller/internal/replay"
)

var replayCmd = &cobra.Command{
	Use:   "replay <fixture.json>",
	Short: "Re-run a recorded fixture and compare actions",
	Long: `Load a JSON fixture, feed its units through a fresh controller, and
compare the gate's actions against the fixture's expectations. Exits
non-zero when any expectation diverges.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
}

// #region replay

func runReplay(cmd *cobra.Command, args []string) error {
	f, err := replay.LoadFixture(args[0])
	if err != nil {
		return err
	}

	results, summary := replay.Replay(f)

	if f.Description != "" {
		fmt.Printf("%s\n\n", f.Description)
	}
	fmt.Printf("%-6s| %-10s| %8s | %s\n", "Unit", "Action", "Score", "Reason")
	fmt.Printf("%-6s+%-11s+%9s-+%s\n", "------", "-----------", "---------", "--------")
	for _, r := range results {
		if r.Err != nil {
			fmt.Printf("%-6d| %-10s| %8s | %v\n", r.Index, "error", "", r.Err)
			continue
		}
		fmt.Printf("%-6d| %-10s| %8.2f | %s\n", r.Index, r.Action, r.Score, r.Reason)
	}

	fmt.Printf("\nSummary: %d units, %d accepted, %d warnings, %d backtracks",
		summary.TotalUnits, summary.Accepted, summary.Warnings, summary.Backtracks)
	if summary.Terminated {
		fmt.Printf(", terminated")
	}
	fmt.Println()

	if len(summary.Mismatches) > 0 {
		fmt.Printf("\nDivergences:\n")
		for _, m := range summary.Mismatches {
			fmt.Printf("  unit %d: expected %s, got %s\n", m.Index, m.Expected, m.Actual)
		}
		return fmt.Errorf("%d expectation(s) diverged", len(summary.Mismatches))
	}
	return nil
}

// #endregion replay
