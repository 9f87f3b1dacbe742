package gate

import (
	"fmt"

	"github.com/streamgate/controller/internal/coherence"
)

// #region gate

// Gate combines confidence, coherence, and flags into a single action
// decision, tracking warning and backtrack counts against budgets. It is
// owned by one controller and is not safe for concurrent use.
type Gate struct {
	config Config

	state      State
	floor      float64 // active coherence floor, adapter-controlled
	scores     []ScoreEntry
	warnings   int
	backtracks int
	lastPassed bool
}

// NewGate creates an idle gate. The active floor starts at MinCoherence
// until the threshold adapter moves it.
func NewGate(config Config) *Gate {
	return &Gate{
		config:     config,
		state:      StateIdle,
		floor:      config.MinCoherence,
		lastPassed: true,
	}
}

// #endregion gate

// #region evaluate

// Evaluate scores one unit and walks the priority ladder: hallucination
// risk, floor breach, warning band, pass. The unit's gate score is
// 100 * confidence * combined coherence, so either signal collapsing
// drags the moving average down.
func (g *Gate) Evaluate(position int, conf float64, coh coherence.Result) Result {
	if !g.config.Enabled {
		// pure bypass: no counters, no history, no flags
		return Result{Passed: true, Score: 100, Action: ActionContinue, BacktrackTo: -1}
	}

	switch g.state {
	case StateIdle:
		g.state = StateActive
	case StateTerminated, StateCompleted:
		g.lastPassed = false
		return Result{
			Passed:      false,
			Action:      ActionTerminate,
			Reason:      fmt.Sprintf("gate is %s", g.state),
			BacktrackTo: -1,
		}
	}

	score := 100 * conf * coh.Combined
	g.scores = append(g.scores, ScoreEntry{Position: position, Score: score})
	avg := g.movingAverage()

	// 1. hallucination risk trumps the averages
	if coh.HasFlag(coherence.FlagHallucinationRisk) {
		g.warnings++
		if g.backtracks >= g.config.MaxBacktracks {
			return g.terminateResult(score, coh.Flags, "hallucination risk with backtrack budget exhausted")
		}
		return g.backtrackResult(score, coh.Flags, "hallucination risk")
	}

	// 2. moving average under the active floor
	if avg < g.floor {
		g.warnings++
		if g.backtracks >= g.config.MaxBacktracks {
			return g.terminateResult(score, coh.Flags,
				fmt.Sprintf("moving average %.2f below floor %.2f, budget exhausted", avg, g.floor))
		}
		return g.backtrackResult(score, coh.Flags,
			fmt.Sprintf("moving average %.2f below floor %.2f", avg, g.floor))
	}

	// 3. warning band: unit is kept
	if avg < g.config.WarningThreshold {
		g.warnings++
		g.lastPassed = true
		return Result{
			Passed:      true,
			Score:       score,
			Action:      ActionWarn,
			Reason:      fmt.Sprintf("moving average %.2f below warning threshold %.2f", avg, g.config.WarningThreshold),
			BacktrackTo: -1,
			Flags:       coh.Flags,
		}
	}

	g.lastPassed = true
	return Result{Passed: true, Score: score, Action: ActionContinue, BacktrackTo: -1, Flags: coh.Flags}
}

func (g *Gate) backtrackResult(score float64, flags []coherence.Flag, reason string) Result {
	g.backtracks++
	g.lastPassed = false
	return Result{
		Passed:      false,
		Score:       score,
		Action:      ActionBacktrack,
		Reason:      reason,
		BacktrackTo: g.backtrackTarget(),
		Flags:       flags,
	}
}

func (g *Gate) terminateResult(score float64, flags []coherence.Flag, reason string) Result {
	g.state = StateTerminated
	g.lastPassed = false
	return Result{
		Passed:      false,
		Score:       score,
		Action:      ActionTerminate,
		Reason:      reason,
		BacktrackTo: -1,
		Flags:       flags,
	}
}

// #endregion evaluate

// #region target

// backtrackTarget returns one past the most recent position whose score
// exceeded the warning threshold, or 0 when no unit ever did. The failing
// unit itself (last entry) is excluded.
func (g *Gate) backtrackTarget() int {
	for i := len(g.scores) - 2; i >= 0; i-- {
		if g.scores[i].Score > g.config.WarningThreshold {
			return g.scores[i].Position + 1
		}
	}
	return 0
}

// #endregion target

// #region moving-average

// movingAverage averages the last min(Window, recorded) scores.
func (g *Gate) movingAverage() float64 {
	n := len(g.scores)
	if n == 0 {
		return 100
	}
	w := g.config.Window
	if w <= 0 || w > n {
		w = n
	}
	var sum float64
	for _, e := range g.scores[n-w:] {
		sum += e.Score
	}
	return sum / float64(w)
}

// MovingAverage exposes the current window average.
func (g *Gate) MovingAverage() float64 {
	return g.movingAverage()
}

// WindowSize reports how many samples the next average will use.
func (g *Gate) WindowSize() int {
	if len(g.scores) < g.config.Window {
		return len(g.scores)
	}
	return g.config.Window
}

// #endregion moving-average

// #region rebuild

// Rebuild replaces the score history with the surviving tail after a
// rollback. With no survivors the current score resets to full.
func (g *Gate) Rebuild(tail []ScoreEntry) {
	g.scores = append(g.scores[:0], tail...)
}

// CurrentScore returns the last recorded score, or 100 when history is empty.
func (g *Gate) CurrentScore() float64 {
	if len(g.scores) == 0 {
		return 100
	}
	return g.scores[len(g.scores)-1].Score
}

// #endregion rebuild

// #region lifecycle

// Complete marks the gate's stream as finished normally.
func (g *Gate) Complete() {
	if g.state == StateActive || g.state == StateIdle {
		g.state = StateCompleted
	}
}

// Terminate forces the gate into its terminal failure state.
func (g *Gate) Terminate() {
	if g.state != StateCompleted {
		g.state = StateTerminated
	}
}

// State returns the gate lifecycle state.
func (g *Gate) State() State {
	return g.state
}

// #endregion lifecycle

// #region health

// SetFloor installs the adapter-computed coherence floor.
func (g *Gate) SetFloor(floor float64) {
	g.floor = floor
}

// Floor returns the active coherence floor.
func (g *Gate) Floor() float64 {
	return g.floor
}

// WarningCount returns warnings issued so far.
func (g *Gate) WarningCount() int {
	return g.warnings
}

// BacktrackCount returns backtracks issued so far.
func (g *Gate) BacktrackCount() int {
	return g.backtracks
}

// IsHealthy is true iff the last decision passed and warnings stay under
// the cap.
func (g *Gate) IsHealthy() bool {
	return g.lastPassed && g.warnings < g.config.HealthyWarningCap
}

// #endregion health
