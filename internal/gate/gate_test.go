package gate

import (
	"math"
	"testing"

	"github.com/streamgate/controller/internal/coherence"
)

func cleanResult(combined float64) coherence.Result {
	return coherence.Result{Local: combined, Global: combined, Combined: combined}
}

func TestContinueOnHealthyScores(t *testing.T) {
	g := NewGate(DefaultConfig())
	res := g.Evaluate(0, 0.95, cleanResult(0.9))
	if res.Action != ActionContinue {
		t.Fatalf("expected continue, got %s (%s)", res.Action, res.Reason)
	}
	if !res.Passed {
		t.Fatal("expected pass")
	}
	if g.State() != StateActive {
		t.Fatalf("expected active state, got %s", g.State())
	}
}

func TestMovingWindowNeverExceedsSamples(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Window = 5
	g := NewGate(cfg)
	for i := 0; i < 3; i++ {
		g.Evaluate(i, 0.9, cleanResult(0.9))
		if got := g.WindowSize(); got != i+1 {
			t.Fatalf("after %d units window size %d", i+1, got)
		}
	}
	for i := 3; i < 10; i++ {
		g.Evaluate(i, 0.9, cleanResult(0.9))
	}
	if got := g.WindowSize(); got != 5 {
		t.Fatalf("window should cap at 5, got %d", got)
	}
}

func TestLowConfidenceCollapseTriggersBacktrack(t *testing.T) {
	g := NewGate(DefaultConfig())
	// logProb -5 → confidence ≈ 0.0067; coherent text but confidence
	// collapse must still breach the floor of 30.
	conf := math.Exp(-5)
	var res Result
	for i := 0; i < 20; i++ {
		res = g.Evaluate(i, conf, cleanResult(1.0))
		if res.Action == ActionBacktrack || res.Action == ActionTerminate {
			break
		}
	}
	if res.Action != ActionBacktrack {
		t.Fatalf("expected backtrack, got %s (%s)", res.Action, res.Reason)
	}
	if res.BacktrackTo != 0 {
		t.Fatalf("no unit exceeded warning threshold, expected target 0, got %d", res.BacktrackTo)
	}
}

func TestWarnBandKeepsUnit(t *testing.T) {
	g := NewGate(DefaultConfig())
	// score 100*0.9*0.5 = 45: above floor 30, below warning threshold 50
	res := g.Evaluate(0, 0.9, cleanResult(0.5))
	if res.Action != ActionWarn {
		t.Fatalf("expected warn, got %s (%s)", res.Action, res.Reason)
	}
	if !res.Passed {
		t.Fatal("warned unit must still pass")
	}
	if g.WarningCount() != 1 {
		t.Fatalf("expected 1 warning, got %d", g.WarningCount())
	}
}

func TestHallucinationRiskOutranksAverages(t *testing.T) {
	g := NewGate(DefaultConfig())
	coh := cleanResult(0.95)
	coh.Flags = []coherence.Flag{coherence.FlagHallucinationRisk}
	res := g.Evaluate(0, 0.95, coh)
	if res.Action != ActionBacktrack {
		t.Fatalf("expected backtrack on hallucination risk, got %s", res.Action)
	}
	if g.WarningCount() != 1 {
		t.Fatalf("expected warning increment, got %d", g.WarningCount())
	}
}

func TestBudgetExhaustionTerminates(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxBacktracks = 2
	g := NewGate(cfg)
	bad := cleanResult(0.1)

	first := g.Evaluate(0, 0.5, bad)
	if first.Action != ActionBacktrack {
		t.Fatalf("first breach should backtrack, got %s", first.Action)
	}
	g.Rebuild(nil)
	second := g.Evaluate(0, 0.5, bad)
	if second.Action != ActionBacktrack {
		t.Fatalf("second breach should backtrack, got %s", second.Action)
	}
	g.Rebuild(nil)
	third := g.Evaluate(0, 0.5, bad)
	if third.Action != ActionTerminate {
		t.Fatalf("third breach should terminate, got %s", third.Action)
	}
	if g.State() != StateTerminated {
		t.Fatalf("expected terminated state, got %s", g.State())
	}
}

func TestBacktrackTargetAfterGoodUnits(t *testing.T) {
	g := NewGate(DefaultConfig())
	// three strong units: scores 100*0.95*0.95 ≈ 90 each
	for i := 0; i < 3; i++ {
		if res := g.Evaluate(i, 0.95, cleanResult(0.95)); res.Action != ActionContinue {
			t.Fatalf("setup unit %d: %s", i, res.Action)
		}
	}
	// collapse hard enough to breach the floor within the window
	var res Result
	for i := 3; i < 8; i++ {
		res = g.Evaluate(i, 0.01, cleanResult(0.1))
		if res.Action == ActionBacktrack {
			break
		}
	}
	if res.Action != ActionBacktrack {
		t.Fatalf("expected backtrack, got %s (%s)", res.Action, res.Reason)
	}
	if res.BacktrackTo != 3 {
		t.Fatalf("expected target 3 (one past last good unit), got %d", res.BacktrackTo)
	}
}

func TestDisabledGateIsPureBypass(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = false
	g := NewGate(cfg)
	coh := cleanResult(0.0)
	coh.Flags = []coherence.Flag{coherence.FlagHallucinationRisk, coherence.FlagRepetition}
	for i := 0; i < 5; i++ {
		res := g.Evaluate(i, 0.0001, coh)
		if res.Action != ActionContinue || !res.Passed {
			t.Fatalf("disabled gate must continue, got %s", res.Action)
		}
		if res.Score != 100 {
			t.Fatalf("disabled gate must return full score, got %v", res.Score)
		}
		if len(res.Flags) != 0 {
			t.Fatalf("disabled gate must report no flags, got %v", res.Flags)
		}
	}
	if g.WarningCount() != 0 || g.BacktrackCount() != 0 {
		t.Fatal("disabled gate must not touch counters")
	}
}

func TestRebuildResetsCurrentScore(t *testing.T) {
	g := NewGate(DefaultConfig())
	g.Evaluate(0, 0.5, cleanResult(0.5))
	g.Rebuild(nil)
	if got := g.CurrentScore(); got != 100 {
		t.Fatalf("empty rebuild should reset score to 100, got %v", got)
	}
	g.Rebuild([]ScoreEntry{{Position: 0, Score: 80}, {Position: 1, Score: 60}})
	if got := g.CurrentScore(); got != 60 {
		t.Fatalf("expected last surviving score 60, got %v", got)
	}
}

func TestAdapterFloorChangesDecision(t *testing.T) {
	g := NewGate(DefaultConfig())
	// score 45 passes a floor of 30 with a warning
	if res := g.Evaluate(0, 0.9, cleanResult(0.5)); res.Action != ActionWarn {
		t.Fatalf("expected warn at floor 30, got %s", res.Action)
	}
	g.SetFloor(60)
	if res := g.Evaluate(1, 0.9, cleanResult(0.5)); res.Action != ActionBacktrack {
		t.Fatalf("expected backtrack at floor 60, got %s", res.Action)
	}
}

func TestIsHealthy(t *testing.T) {
	g := NewGate(DefaultConfig())
	g.Evaluate(0, 0.95, cleanResult(0.95))
	if !g.IsHealthy() {
		t.Fatal("expected healthy after clean pass")
	}
	for i := 1; i < 10; i++ {
		g.Evaluate(i, 0.9, cleanResult(0.45)) // warning band, warnings accumulate
	}
	if g.IsHealthy() {
		t.Fatalf("expected unhealthy after %d warnings", g.WarningCount())
	}
}

func TestEvaluateAfterTerminalState(t *testing.T) {
	g := NewGate(DefaultConfig())
	g.Evaluate(0, 0.9, cleanResult(0.9))
	g.Terminate()
	res := g.Evaluate(1, 0.9, cleanResult(0.9))
	if res.Action != ActionTerminate || res.Passed {
		t.Fatalf("terminated gate must refuse units, got %s", res.Action)
	}
}
