package replay

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/streamgate/controller/internal/controller"
	"github.com/streamgate/controller/internal/stance"
)

const sampleFixture = `{
	"description": "warning band walk",
	"config": {
		"window": 3,
		"min_coherence": 25,
		"max_backtracks": 2
	},
	"context": {
		"frame": "playful",
		"drift": 12,
		"message_count": 4
	},
	"units": [
		{"text": "first unit ", "log_prob": -0.1},
		{"text": "second unit ", "log_prob": -0.2,
		 "alternatives": [{"text": "other ", "log_prob": -1.5}]}
	],
	"expected": [
		{"index": 0, "action": "continue"},
		{"index": 1, "action": "continue"}
	]
}`

func writeFixture(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestLoadFixture(t *testing.T) {
	f, err := LoadFixture(writeFixture(t, sampleFixture))
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}
	if f.Description != "warning band walk" {
		t.Errorf("description mismatch: %q", f.Description)
	}
	if len(f.Units) != 2 || len(f.Expected) != 2 {
		t.Fatalf("expected 2 units and 2 expectations, got %d/%d", len(f.Units), len(f.Expected))
	}
	if f.Units[0].LogProb == nil || *f.Units[0].LogProb != -0.1 {
		t.Error("log_prob must parse into the pointer field")
	}
}

func TestLoadFixtureMissingFile(t *testing.T) {
	if _, err := LoadFixture(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadFixtureBadJSON(t *testing.T) {
	if _, err := LoadFixture(writeFixture(t, "{not json")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestConfigOverrides(t *testing.T) {
	f, err := LoadFixture(writeFixture(t, sampleFixture))
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}

	cfg := f.Config.ToControllerConfig()
	if cfg.Gate.Window != 3 || cfg.Gate.MinCoherence != 25 || cfg.Gate.MaxBacktracks != 2 {
		t.Fatalf("overrides not applied: %+v", cfg.Gate)
	}

	// absent fields keep their defaults
	def := controller.DefaultConfig()
	if cfg.Gate.WarningThreshold != def.Gate.WarningThreshold {
		t.Errorf("warning threshold should stay default, got %v", cfg.Gate.WarningThreshold)
	}
	if cfg.AdaptEvery != def.AdaptEvery {
		t.Errorf("adapt cadence should stay default, got %d", cfg.AdaptEvery)
	}
}

func TestToUnitInputCarriesAlternatives(t *testing.T) {
	f, err := LoadFixture(writeFixture(t, sampleFixture))
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}

	in := f.Units[1].ToUnitInput()
	if len(in.Alternatives) != 1 {
		t.Fatalf("expected 1 alternative, got %d", len(in.Alternatives))
	}
	if in.Alternatives[0].Text != "other " || in.Alternatives[0].LogProb != -1.5 {
		t.Errorf("alternative mismatch: %+v", in.Alternatives[0])
	}
}

func TestToStance(t *testing.T) {
	f, err := LoadFixture(writeFixture(t, sampleFixture))
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}

	st := f.Context.ToStance()
	if st == nil {
		t.Fatal("expected a stance from frame+drift")
	}
	if st.Frame != stance.FramePlayful || st.CumulativeDrift != 12 {
		t.Errorf("stance mismatch: %+v", st)
	}

	empty := FixtureContext{}
	if empty.ToStance() != nil {
		t.Error("empty context must yield nil stance")
	}
}

func TestReplayEndToEndFromFile(t *testing.T) {
	f, err := LoadFixture(writeFixture(t, sampleFixture))
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}

	_, summary := Replay(f)
	if len(summary.Mismatches) != 0 {
		t.Fatalf("expected fixture expectations to hold, got %+v", summary.Mismatches)
	}
	if summary.Accepted != 2 {
		t.Errorf("expected 2 accepted units, got %d", summary.Accepted)
	}
}
