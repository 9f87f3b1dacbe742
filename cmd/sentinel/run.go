package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/streamgate/controller/internal/confidence"
	"github.com/streamgate/controller/internal/controller"
	"github.com/streamgate/controller/internal/provenance"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Gate a JSONL unit stream from stdin",
	Long: `Read one JSON unit per line from stdin and print the gate's verdict
for each. A unit looks like:

  {"text": "some tokens ", "log_prob": -0.12}

With --db, every decision is persisted under a new session.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

// #region input

// inputUnit is the JSONL shape of one stream unit.
type inputUnit struct {
	Text         string     `json:"text"`
	LogProb      *float64   `json:"log_prob"`
	Alternatives []inputAlt `json:"alternatives,omitempty"`
}

type inputAlt struct {
	Text    string  `json:"text"`
	LogProb float64 `json:"log_prob"`
}

func (iu inputUnit) toUnitInput() confidence.UnitInput {
	in := confidence.UnitInput{Text: iu.Text, LogProb: iu.LogProb}
	for _, alt := range iu.Alternatives {
		in.Alternatives = append(in.Alternatives, confidence.Alternative{
			Text:    alt.Text,
			LogProb: alt.LogProb,
		})
	}
	return in
}

// configSummary flattens the numeric knobs for the session row. Detector
// functions in the coherence config cannot be serialized.
func configSummary(cfg controller.Config) map[string]any {
	return map[string]any{
		"gate_enabled":      cfg.Gate.Enabled,
		"window":            cfg.Gate.Window,
		"min_coherence":     cfg.Gate.MinCoherence,
		"warning_threshold": cfg.Gate.WarningThreshold,
		"max_backtracks":    cfg.Gate.MaxBacktracks,
		"allow_rollback":    cfg.Stream.AllowRollback,
		"segment_units":     cfg.Stream.SegmentUnits,
		"baseline_floor":    cfg.Threshold.BaselineFloor,
		"adapt_every":       cfg.AdaptEvery,
	}
}

// #endregion input

// #region run

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgFile)
	if err != nil {
		return err
	}
	ctrl := controller.New(cfg)

	var store *provenance.Store
	var sessionID string
	if dbPath != "" {
		store, err = provenance.NewStore(dbPath)
		if err != nil {
			return fmt.Errorf("open provenance store: %w", err)
		}
		defer store.Close()

		configJSON, err := json.Marshal(configSummary(cfg))
		if err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}
		session, err := store.BeginSession(string(configJSON))
		if err != nil {
			return err
		}
		sessionID = session.SessionID
		ctrl.Subscribe(store.Recorder(sessionID))
		fmt.Fprintf(os.Stderr, "session %s\n", sessionID)
	}

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var iu inputUnit
		if err := json.Unmarshal(raw, &iu); err != nil {
			fmt.Fprintf(os.Stderr, "line %d: parse: %v\n", line, err)
			continue
		}

		decision, err := ctrl.ProcessUnit(iu.toUnitInput())
		if err != nil {
			fmt.Fprintf(os.Stderr, "line %d: %v\n", line, err)
			if errors.Is(err, controller.ErrStreamClosed) {
				break
			}
			continue
		}

		printDecision(line, decision)
		if decision.Terminated {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read stdin: %w", err)
	}

	ctrl.Complete()

	if store != nil {
		for _, adj := range ctrl.ThresholdState().History {
			err := store.RecordAdjustment(provenance.AdjustmentRecord{
				SessionID:    sessionID,
				OldFloor:     adj.OldFloor,
				NewFloor:     adj.NewFloor,
				Phase:        string(adj.Phase),
				Risk:         string(adj.Risk),
				Action:       string(adj.Action),
				Significance: adj.Significance,
				CreatedAt:    adj.CreatedAt,
			})
			if err != nil {
				fmt.Fprintf(os.Stderr, "record adjustment: %v\n", err)
			}
		}
	}

	printStats(ctrl)
	return nil
}

func printDecision(line int, d controller.Decision) {
	position := -1
	if d.Unit != nil {
		position = d.Unit.Position
	}
	fmt.Printf("%4d  pos=%-4d  %-9s  score=%6.2f  %s\n",
		line, position, d.Result.Action, d.Result.Score, d.Result.Reason)
}

func printStats(ctrl *controller.Controller) {
	stats := ctrl.Stats()
	fmt.Printf("\nUnits:       %d\n", stats.Units)
	fmt.Printf("Segments:    %d (%d revised)\n", stats.Segments, stats.RevisedSegments)
	fmt.Printf("Avg conf:    %.4f\n", stats.AvgConfidence)
	fmt.Printf("Avg coher:   %.4f\n", stats.AvgCoherence)
	fmt.Printf("Warnings:    %d\n", stats.Warnings)
	fmt.Printf("Backtracks:  %d\n", stats.Backtracks)
	fmt.Printf("\n%s\n", ctrl.Content())
}

// #endregion run
