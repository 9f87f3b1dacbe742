package threshold

import (
	"math"
	"testing"

	"github.com/streamgate/controller/internal/stance"
)

func TestInitialState(t *testing.T) {
	a := NewAdapter(DefaultConfig())
	st := a.State()
	if st.Floor != 40 {
		t.Fatalf("expected baseline floor 40, got %v", st.Floor)
	}
	if st.Phase != PhaseOpening {
		t.Fatalf("expected opening phase, got %s", st.Phase)
	}
	if st.Risk != RiskLow {
		t.Fatalf("expected low risk, got %s", st.Risk)
	}
}

func TestDriftJumpForcesCrisisAndCritical(t *testing.T) {
	a := NewAdapter(DefaultConfig())
	a.Update(Context{Drift: 10, MessageCount: 8})
	st := a.Update(Context{Drift: 75, MessageCount: 9})
	if st.Phase != PhaseCrisis {
		t.Fatalf("expected crisis phase at drift 75, got %s", st.Phase)
	}
	if st.Risk != RiskCritical {
		t.Fatalf("expected critical risk, got %s (severity %v)", st.Risk, st.Severity)
	}
	if !st.RecoveryMode {
		t.Fatal("critical risk must engage recovery mode")
	}
}

func TestRecoveryPhaseForcedWhenDriftFalls(t *testing.T) {
	a := NewAdapter(DefaultConfig())
	a.Update(Context{Drift: 10, MessageCount: 5})
	a.Update(Context{Drift: 75, MessageCount: 6}) // crisis, recovery mode on
	st := a.Update(Context{Drift: 30, MessageCount: 7})
	if st.Phase != PhaseRecovery {
		t.Fatalf("expected forced recovery phase, got %s", st.Phase)
	}
}

func TestRecoveryModeReleasesAtLowRisk(t *testing.T) {
	a := NewAdapter(DefaultConfig())
	a.Update(Context{Drift: 10})
	a.Update(Context{Drift: 75}) // recovery mode on
	// drift settles; several calm samples bring severity back under 0.2
	var st State
	for i := 0; i < 5; i++ {
		st = a.Update(Context{Drift: 5})
	}
	if st.RecoveryMode {
		t.Fatalf("recovery mode should release at low risk, severity %v", st.Severity)
	}
}

func TestRiskMonotonicInSeverity(t *testing.T) {
	levels := []float64{0, 0.1, 0.19, 0.2, 0.39, 0.4, 0.59, 0.6, 0.79, 0.8, 1.0}
	prev := -1
	for _, s := range levels {
		r := riskFromSeverity(s)
		if r.Rank() < prev {
			t.Fatalf("risk rank decreased at severity %v", s)
		}
		prev = r.Rank()
	}
}

func TestSeverityMonotonicInDrift(t *testing.T) {
	prev := -1.0
	for drift := 0.0; drift <= 100; drift += 5 {
		a := NewAdapter(DefaultConfig())
		st := a.Update(Context{Drift: drift})
		if st.Severity < prev {
			t.Fatalf("severity decreased at drift %v", drift)
		}
		prev = st.Severity
	}
}

func TestFloorSmoothingAndClamp(t *testing.T) {
	cfg := DefaultConfig()
	a := NewAdapter(cfg)
	st := a.Update(Context{Drift: 0, MessageCount: 1})
	// opening phase, low risk → relax: target = 40 - 3*(1-0.5) = 38.5
	// smoothed = 40 + 0.3*(38.5-40) = 39.55
	want := 40 + cfg.AdaptationRate*((40-3*(1-cfg.RiskSensitivity))-40)
	if math.Abs(st.Floor-want) > 1e-9 {
		t.Fatalf("expected floor %v, got %v", want, st.Floor)
	}
	// repeated crisis updates converge but never pass MaxFloor
	for i := 0; i < 200; i++ {
		st = a.Update(Context{Drift: 90})
	}
	if st.Floor > cfg.MaxFloor {
		t.Fatalf("floor %v exceeds max %v", st.Floor, cfg.MaxFloor)
	}
	if st.Floor < cfg.MinFloor {
		t.Fatalf("floor %v under min %v", st.Floor, cfg.MinFloor)
	}
}

func TestSmallAdjustmentsNotRecorded(t *testing.T) {
	a := NewAdapter(DefaultConfig())
	a.Update(Context{Drift: 0, MessageCount: 1})
	// converge: once the floor settles near the target, deltas fall under
	// the 0.5 epsilon and history stops growing
	for i := 0; i < 50; i++ {
		a.Update(Context{Drift: 0, MessageCount: 1})
	}
	n := len(a.State().History)
	for i := 0; i < 10; i++ {
		a.Update(Context{Drift: 0, MessageCount: 1})
	}
	if got := len(a.State().History); got != n {
		t.Fatalf("converged updates should not append history: %d -> %d", n, got)
	}
}

func TestHistoryPrunedPastCap(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HistoryCap = 10
	a := NewAdapter(cfg)
	// alternate extremes so every update moves the floor past epsilon
	for i := 0; i < 100; i++ {
		drift := 0.0
		if i%2 == 0 {
			drift = 90
		}
		a.Update(Context{Drift: drift})
	}
	if got := len(a.State().History); got > cfg.HistoryCap {
		t.Fatalf("history %d exceeds cap %d", got, cfg.HistoryCap)
	}
}

func TestSignificanceUsesSourceFormula(t *testing.T) {
	a := NewAdapter(DefaultConfig())
	a.driftSamples = []float64{10, 10, 10} // sd 0 → scaled by 1
	got := a.significance(2)
	want := math.Exp(-0.5 * 4)
	if math.Abs(got-want) > 1e-12 {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestFrameInstabilityRaisesSeverity(t *testing.T) {
	stable := NewAdapter(DefaultConfig())
	var stableState State
	for i := 0; i < 5; i++ {
		stableState = stable.Update(Context{Drift: 30, Frame: stance.FramePragmatic})
	}
	unstable := NewAdapter(DefaultConfig())
	frames := []stance.Frame{
		stance.FramePragmatic, stance.FramePlayful, stance.FrameStoic,
		stance.FrameAbsurdist, stance.FramePragmatic,
	}
	var unstableState State
	for _, f := range frames {
		unstableState = unstable.Update(Context{Drift: 30, Frame: f})
	}
	if unstableState.Severity <= stableState.Severity {
		t.Fatalf("frame churn should raise severity: %v vs %v",
			unstableState.Severity, stableState.Severity)
	}
}

func TestStateIsCopy(t *testing.T) {
	a := NewAdapter(DefaultConfig())
	for i := 0; i < 3; i++ {
		a.Update(Context{Drift: 90})
	}
	st := a.State()
	if len(st.History) == 0 {
		t.Fatal("expected recorded adjustments")
	}
	st.History[0].NewFloor = -999
	if a.State().History[0].NewFloor == -999 {
		t.Fatal("external mutation leaked into adapter state")
	}
}

func TestRecoveryStrategySelection(t *testing.T) {
	cases := []struct {
		phase Phase
		want  string
	}{
		{PhaseCrisis, "anchor_reset"},
		{PhaseChallenging, "anchor_reset"},
		{PhaseExploration, "gentle_steer"},
		{PhaseSynthesis, "consolidate"},
		{PhaseRecovery, "gradual"},
	}
	for _, c := range cases {
		if got := SelectRecoveryStrategy(c.phase); got.Name != c.want {
			t.Fatalf("phase %s: expected %s, got %s", c.phase, c.want, got.Name)
		}
	}
}

func TestTieDefaultsToExploration(t *testing.T) {
	a := NewAdapter(DefaultConfig())
	// message count 8, drift 25: exploration scores and nothing outscores it
	phase, _ := a.detectPhase(Context{Drift: 25, MessageCount: 8})
	if phase != PhaseExploration {
		t.Fatalf("expected exploration, got %s", phase)
	}
}
