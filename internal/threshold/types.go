package threshold

import (
	"time"

	"github.com/streamgate/controller/internal/stance"
)

// #region phase

// Phase is a classified stage of the conversation, used to pick an
// appropriate coherence floor.
type Phase string

const (
	PhaseOpening     Phase = "opening"
	PhaseExploration Phase = "exploration"
	PhaseDeepening   Phase = "deepening"
	PhaseChallenging Phase = "challenging"
	PhaseSynthesis   Phase = "synthesis"
	PhaseClosing     Phase = "closing"
	PhaseCrisis      Phase = "crisis"
	PhaseRecovery    Phase = "recovery"
)

// phaseOrder fixes iteration order for scoring so ties resolve
// deterministically.
var phaseOrder = []Phase{
	PhaseOpening, PhaseExploration, PhaseDeepening, PhaseChallenging,
	PhaseSynthesis, PhaseClosing, PhaseCrisis, PhaseRecovery,
}

// suggestedFloor maps each phase to its baseline coherence floor.
var suggestedFloor = map[Phase]float64{
	PhaseOpening:     40,
	PhaseExploration: 35,
	PhaseDeepening:   45,
	PhaseChallenging: 50,
	PhaseSynthesis:   45,
	PhaseClosing:     40,
	PhaseCrisis:      60,
	PhaseRecovery:    55,
}

// #endregion phase

// #region risk

// RiskLevel is the ordered severity classification.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskModerate RiskLevel = "moderate"
	RiskElevated RiskLevel = "elevated"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Rank returns the level's position in the low < critical ordering.
func (r RiskLevel) Rank() int {
	switch r {
	case RiskLow:
		return 0
	case RiskModerate:
		return 1
	case RiskElevated:
		return 2
	case RiskHigh:
		return 3
	case RiskCritical:
		return 4
	}
	return 0
}

// RiskAction is the floor adjustment direction a risk level suggests.
type RiskAction string

const (
	ActionRelax    RiskAction = "relax"
	ActionMaintain RiskAction = "maintain"
	ActionTighten  RiskAction = "tighten"
	ActionRecover  RiskAction = "recover"
)

// suggestedAction maps risk levels to their floor adjustment.
var suggestedAction = map[RiskLevel]RiskAction{
	RiskLow:      ActionRelax,
	RiskModerate: ActionMaintain,
	RiskElevated: ActionTighten,
	RiskHigh:     ActionTighten,
	RiskCritical: ActionRecover,
}

// #endregion risk

// #region context

// Context is the per-invocation input to the adapter: the caller's drift
// tracker reading plus frame/operator history signals.
type Context struct {
	Drift        float64 // cumulative drift, 0-100
	Frame        stance.Frame
	Operators    []string // recent transformation operators, most recent last
	MessageCount int
}

// #endregion context

// #region adjustment

// Adjustment is one recorded floor change. Significance preserves the
// source's approximate p-value, exp(-0.5*t^2).
type Adjustment struct {
	OldFloor     float64
	NewFloor     float64
	Phase        Phase
	Risk         RiskLevel
	Action       RiskAction
	Significance float64
	CreatedAt    time.Time
}

// #endregion adjustment

// #region state

// State is the adapter's published view. Only the adapter mutates it;
// readers receive copies.
type State struct {
	Floor           float64
	BaselineFloor   float64
	Phase           Phase
	PhaseConfidence float64
	Risk            RiskLevel
	Severity        float64
	RecoveryMode    bool
	History         []Adjustment
}

// Clone returns a deep copy safe to publish.
func (s State) Clone() State {
	out := s
	out.History = append([]Adjustment(nil), s.History...)
	return out
}

// #endregion state

// #region recovery-strategy

// RecoveryStrategy describes how to steer a stream back from critical risk.
type RecoveryStrategy struct {
	Name             string
	ApplicablePhases []Phase // empty = applies to every phase
	FloorBoost       float64
	TemperatureDrop  float64
	Description      string
}

// #endregion recovery-strategy

// #region config

// Config bounds the adapter's floor range and adaptation dynamics.
type Config struct {
	BaselineFloor          float64
	MinFloor               float64
	MaxFloor               float64
	AdaptationRate         float64 // exponential smoothing factor toward the target floor
	RiskSensitivity        float64 // scales the tighten adjustment
	RecoveryAggressiveness float64 // scales the recover adjustment
	CrisisDriftCeiling     float64 // drift above this forces the crisis phase
	RecoveryDriftCeiling   float64 // in recovery mode, drift below this forces the recovery phase
	AdjustmentEpsilon      float64 // floor deltas under this are not recorded
	HistoryCap             int     // history beyond this prunes to the most recent half
}

// DefaultConfig returns the standard adaptation bounds.
func DefaultConfig() Config {
	return Config{
		BaselineFloor:          40,
		MinFloor:               20,
		MaxFloor:               80,
		AdaptationRate:         0.3,
		RiskSensitivity:        0.5,
		RecoveryAggressiveness: 0.5,
		CrisisDriftCeiling:     70,
		RecoveryDriftCeiling:   40,
		AdjustmentEpsilon:      0.5,
		HistoryCap:             100,
	}
}

// #endregion config
