package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/streamgate/controller/internal/provenance"
)

var (
	inspectSession string
	inspectLast    int
	inspectJSON    bool
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Browse persisted session provenance",
	Long: `List recorded sessions, or dump one session's decision log and
threshold adjustments with --session.`,
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().StringVar(&inspectSession, "session", "", "show one session in detail")
	inspectCmd.Flags().IntVar(&inspectLast, "last", 20, "show N most recent sessions")
	inspectCmd.Flags().BoolVar(&inspectJSON, "json", false, "output as JSON instead of a table")
	rootCmd.AddCommand(inspectCmd)
}

// #region inspect

func runInspect(cmd *cobra.Command, args []string) error {
	if dbPath == "" {
		return fmt.Errorf("--db is required")
	}
	store, err := provenance.NewStore(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	if inspectSession != "" {
		return inspectOne(store, inspectSession)
	}
	return inspectList(store, inspectLast)
}

func inspectList(store *provenance.Store, last int) error {
	sessions, err := store.Sessions(last)
	if err != nil {
		return err
	}

	if inspectJSON {
		return json.NewEncoder(os.Stdout).Encode(sessions)
	}

	fmt.Printf("%-36s  %-25s  %9s  %5s  %5s  %s\n",
		"Session", "Created", "Decisions", "Warn", "Back", "Term")
	for _, s := range sessions {
		sum, err := store.Summary(s.SessionID)
		if err != nil {
			return err
		}
		fmt.Printf("%-36s  %-25s  %9d  %5d  %5d  %v\n",
			s.SessionID, s.CreatedAt.Format("2006-01-02 15:04:05"),
			sum.Decisions, sum.Warnings, sum.Backtracks, sum.Terminated)
	}
	return nil
}

func inspectOne(store *provenance.Store, sessionID string) error {
	decisions, err := store.Decisions(sessionID)
	if err != nil {
		return err
	}
	adjustments, err := store.Adjustments(sessionID)
	if err != nil {
		return err
	}

	if inspectJSON {
		return json.NewEncoder(os.Stdout).Encode(map[string]any{
			"decisions":   decisions,
			"adjustments": adjustments,
		})
	}

	fmt.Printf("Session: %s\n\n", sessionID)
	fmt.Printf("%-5s  %-10s  %7s  %-6s  %s\n", "Pos", "Action", "Score", "Pass", "Reason")
	for _, d := range decisions {
		fmt.Printf("%-5d  %-10s  %7.2f  %-6v  %s\n",
			d.Position, d.Action, d.Score, d.Passed, d.Reason)
	}

	if len(adjustments) > 0 {
		fmt.Printf("\nThreshold adjustments:\n")
		fmt.Printf("%-8s  %-8s  %-12s  %-10s  %-10s  %s\n",
			"Old", "New", "Phase", "Risk", "Action", "Signif")
		for _, a := range adjustments {
			fmt.Printf("%-8.2f  %-8.2f  %-12s  %-10s  %-10s  %.3f\n",
				a.OldFloor, a.NewFloor, a.Phase, a.Risk, a.Action, a.Significance)
		}
	}
	return nil
}

// #endregion inspect
