package gate

import "github.com/streamgate/controller/internal/coherence"

// #region state

// State is the gate lifecycle state.
type State string

const (
	StateIdle       State = "idle"
	StateActive     State = "active"
	StateTerminated State = "terminated"
	StateCompleted  State = "completed"
)

// #endregion state

// #region action

// Action is the gate's per-unit verdict.
type Action string

const (
	ActionContinue  Action = "continue"
	ActionWarn      Action = "warn"
	ActionBacktrack Action = "backtrack"
	ActionTerminate Action = "terminate"
)

// #endregion action

// #region config

// Config holds gate thresholds and budgets. Scores and floors live on a
// 0-100 scale.
type Config struct {
	Enabled           bool
	Window            int     // moving-average window over unit scores
	MinCoherence      float64 // baseline coherence floor
	WarningThreshold  float64 // warn (but keep the unit) below this
	MaxBacktracks     int     // backtrack budget before terminate
	HealthyWarningCap int     // IsHealthy requires warnings below this
}

// DefaultConfig returns the standard gate thresholds.
func DefaultConfig() Config {
	return Config{
		Enabled:           true,
		Window:            5,
		MinCoherence:      30,
		WarningThreshold:  50,
		MaxBacktracks:     3,
		HealthyWarningCap: 3,
	}
}

// #endregion config

// #region result

// Result is the value object returned per decision. BacktrackTo is -1
// unless Action is ActionBacktrack.
type Result struct {
	Passed      bool
	Score       float64 // this unit's gate score, 0-100
	Reason      string
	Action      Action
	BacktrackTo int
	Flags       []coherence.Flag
}

// #endregion result

// #region score-entry

// ScoreEntry pairs a stream position with its gate score, retained for
// moving-average and backtrack-target computation.
type ScoreEntry struct {
	Position int
	Score    float64
}

// #endregion score-entry
