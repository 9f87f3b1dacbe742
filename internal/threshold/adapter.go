package threshold

import (
	"math"
	"time"

	"github.com/streamgate/controller/internal/stance"
)

// #region adapter

// Adapter classifies the conversation phase, assesses risk, and recomputes
// the active coherence floor on each Update. It owns its ThresholdState;
// readers get copies.
type Adapter struct {
	config Config
	state  State

	driftSamples []float64      // recent drift readings, most recent last
	frames       []stance.Frame // recent frames, for instability
}

// NewAdapter creates an adapter at the baseline floor in the opening phase.
func NewAdapter(config Config) *Adapter {
	return &Adapter{
		config: config,
		state: State{
			Floor:         config.BaselineFloor,
			BaselineFloor: config.BaselineFloor,
			Phase:         PhaseOpening,
			Risk:          RiskLow,
		},
	}
}

// State returns a copy of the current threshold state.
func (a *Adapter) State() State {
	return a.state.Clone()
}

// #endregion adapter

// #region update

// Update runs one full adaptation cycle: record signals, detect phase,
// assess risk, recompute the floor. Returns the updated state copy.
func (a *Adapter) Update(ctx Context) State {
	a.recordSamples(ctx)

	phase, phaseConf := a.detectPhase(ctx)
	severity := a.assessSeverity(ctx)
	risk := riskFromSeverity(severity)

	// Recovery mode engages on high/critical risk and releases at low.
	switch {
	case risk.Rank() >= RiskHigh.Rank():
		a.state.RecoveryMode = true
	case risk == RiskLow:
		a.state.RecoveryMode = false
	}

	a.state.Phase = phase
	a.state.PhaseConfidence = phaseConf
	a.state.Risk = risk
	a.state.Severity = severity

	a.adaptFloor(phase, risk)
	return a.state.Clone()
}

func (a *Adapter) recordSamples(ctx Context) {
	a.driftSamples = append(a.driftSamples, ctx.Drift)
	if len(a.driftSamples) > 10 {
		a.driftSamples = a.driftSamples[len(a.driftSamples)-10:]
	}
	a.frames = append(a.frames, ctx.Frame)
	if len(a.frames) > 5 {
		a.frames = a.frames[len(a.frames)-5:]
	}
}

// #endregion update

// #region risk-assessment

// assessSeverity aggregates weighted risk factors into [0,1]. Each factor
// is clamped before weighting so the sum is monotone in every input.
func (a *Adapter) assessSeverity(ctx Context) float64 {
	level := clamp01(ctx.Drift / a.config.CrisisDriftCeiling)
	accel := clamp01(a.driftAcceleration() / 30)
	instability := a.frameInstability()
	return 0.5*level + 0.3*accel + 0.2*instability
}

// driftAcceleration is the drift change across the last three samples.
func (a *Adapter) driftAcceleration() float64 {
	n := len(a.driftSamples)
	if n < 2 {
		return 0
	}
	start := n - 3
	if start < 0 {
		start = 0
	}
	return a.driftSamples[n-1] - a.driftSamples[start]
}

// frameInstability is the share of frame switches within the recent window.
func (a *Adapter) frameInstability() float64 {
	if len(a.frames) < 2 {
		return 0
	}
	changes := 0
	for i := 1; i < len(a.frames); i++ {
		if a.frames[i] != a.frames[i-1] {
			changes++
		}
	}
	return clamp01(float64(changes) / float64(len(a.frames)-1))
}

// riskFromSeverity maps severity onto the five ordered levels.
func riskFromSeverity(severity float64) RiskLevel {
	switch {
	case severity < 0.2:
		return RiskLow
	case severity < 0.4:
		return RiskModerate
	case severity < 0.6:
		return RiskElevated
	case severity < 0.8:
		return RiskHigh
	default:
		return RiskCritical
	}
}

// #endregion risk-assessment

// #region floor-adaptation

// adaptFloor recomputes the active floor: phase floor, directional risk
// adjustment, exponential smoothing against the previous floor, clamp.
// Changes under the epsilon are applied but not recorded, bounding history
// growth.
func (a *Adapter) adaptFloor(phase Phase, risk RiskLevel) {
	action := suggestedAction[risk]
	target := suggestedFloor[phase]

	switch action {
	case ActionTighten:
		target += 5 * a.config.RiskSensitivity
	case ActionRelax:
		target -= 3 * (1 - a.config.RiskSensitivity)
	case ActionRecover:
		target += 10 * a.config.RecoveryAggressiveness
	case ActionMaintain:
	}

	old := a.state.Floor
	smoothed := old + a.config.AdaptationRate*(target-old)
	if smoothed < a.config.MinFloor {
		smoothed = a.config.MinFloor
	}
	if smoothed > a.config.MaxFloor {
		smoothed = a.config.MaxFloor
	}
	a.state.Floor = smoothed

	delta := math.Abs(smoothed - old)
	if delta <= a.config.AdjustmentEpsilon {
		return
	}

	a.state.History = append(a.state.History, Adjustment{
		OldFloor:     old,
		NewFloor:     smoothed,
		Phase:        phase,
		Risk:         risk,
		Action:       action,
		Significance: a.significance(smoothed - old),
		CreatedAt:    time.Now().UTC(),
	})
	if len(a.state.History) > a.config.HistoryCap {
		half := a.config.HistoryCap / 2
		a.state.History = append(a.state.History[:0], a.state.History[len(a.state.History)-half:]...)
	}
}

// significance approximates a p-value for the floor change with
// exp(-0.5*t^2), t being the change scaled by recent drift variability.
// This is the source formula, kept verbatim for reproducibility; it is not
// a proper Student's-t CDF.
func (a *Adapter) significance(delta float64) float64 {
	sd := stddev(a.driftSamples)
	if sd < 1 {
		sd = 1
	}
	t := delta / sd
	return math.Exp(-0.5 * t * t)
}

// #endregion floor-adaptation

// #region helpers

func stddev(samples []float64) float64 {
	if len(samples) < 2 {
		return 0
	}
	var sum float64
	for _, v := range samples {
		sum += v
	}
	mean := sum / float64(len(samples))
	var variance float64
	for _, v := range samples {
		d := v - mean
		variance += d * d
	}
	return math.Sqrt(variance / float64(len(samples)))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// #endregion helpers
