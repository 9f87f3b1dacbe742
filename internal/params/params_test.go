package params

import (
	"math"
	"testing"

	"github.com/streamgate/controller/internal/stance"
	"github.com/streamgate/controller/internal/threshold"
)

func neutralState() threshold.State {
	return threshold.State{Phase: threshold.PhaseExploration, Risk: threshold.RiskLow}
}

func TestBaseDerivationIsNeutral(t *testing.T) {
	c := NewController(DefaultConfig())
	p, change := c.Derive(nil, nil, neutralState())
	if p.Temperature != DefaultConfig().BaseTemperature {
		t.Fatalf("expected base temperature, got %v", p.Temperature)
	}
	if change != nil {
		t.Fatalf("no movement expected, got change %+v", change)
	}
}

func TestHighConfidenceRaisesTemperature(t *testing.T) {
	c := NewController(DefaultConfig())
	for i := 0; i < 5; i++ {
		c.ObserveUnit(0.95)
	}
	p, change := c.Derive(nil, nil, neutralState())
	want := 0.7 * 1.1
	if math.Abs(p.Temperature-want) > 1e-9 {
		t.Fatalf("expected %v, got %v", want, p.Temperature)
	}
	if change == nil {
		t.Fatal("expected a change notification")
	}
}

func TestLowConfidenceLowersTemperature(t *testing.T) {
	c := NewController(DefaultConfig())
	for i := 0; i < 5; i++ {
		c.ObserveUnit(0.05)
	}
	p, _ := c.Derive(nil, nil, neutralState())
	want := 0.7 * 0.9
	if math.Abs(p.Temperature-want) > 1e-9 {
		t.Fatalf("expected %v, got %v", want, p.Temperature)
	}
}

func TestFrameAdjustments(t *testing.T) {
	cases := []struct {
		frame stance.Frame
		want  float64
	}{
		{stance.FramePlayful, 0.85},
		{stance.FrameAbsurdist, 0.85},
		{stance.FramePragmatic, 0.55},
		{stance.FrameStoic, 0.55},
		{stance.FrameAnalytical, 0.7},
	}
	for _, tc := range cases {
		c := NewController(DefaultConfig())
		st := &stance.Stance{Frame: tc.frame}
		p, _ := c.Derive(st, nil, neutralState())
		if math.Abs(p.Temperature-tc.want) > 1e-9 {
			t.Fatalf("frame %s: expected %v, got %v", tc.frame, tc.want, p.Temperature)
		}
	}
}

func TestIntensityScalesLinearly(t *testing.T) {
	c := NewController(DefaultConfig())
	p, _ := c.Derive(nil, &stance.TransformConfig{Intensity: 1.0}, neutralState())
	if math.Abs(p.Temperature-(0.7+0.2)) > 1e-9 {
		t.Fatalf("expected 0.9 at full intensity, got %v", p.Temperature)
	}
	c.Reset()
	p, _ = c.Derive(nil, &stance.TransformConfig{Intensity: 0.0}, neutralState())
	if math.Abs(p.Temperature-(0.7-0.2)) > 1e-9 {
		t.Fatalf("expected 0.5 at zero intensity, got %v", p.Temperature)
	}
}

func TestBacktrackBumpAccumulates(t *testing.T) {
	c := NewController(DefaultConfig())
	c.ObserveBacktrack()
	c.ObserveBacktrack()
	p, _ := c.Derive(nil, nil, neutralState())
	if math.Abs(p.Temperature-0.9) > 1e-9 {
		t.Fatalf("expected 0.7 + 2*0.1 = 0.9, got %v", p.Temperature)
	}
}

func TestTemperatureClamped(t *testing.T) {
	c := NewController(DefaultConfig())
	for i := 0; i < 20; i++ {
		c.ObserveBacktrack()
	}
	p, _ := c.Derive(nil, nil, neutralState())
	if p.Temperature != DefaultConfig().MaxTemperature {
		t.Fatalf("expected clamp to max, got %v", p.Temperature)
	}
}

func TestCriticalRiskCoolsStream(t *testing.T) {
	c := NewController(DefaultConfig())
	ts := threshold.State{Phase: threshold.PhaseCrisis, Risk: threshold.RiskCritical}
	p, _ := c.Derive(nil, nil, ts)
	// anchor_reset drops temperature by 0.3
	if math.Abs(p.Temperature-0.4) > 1e-9 {
		t.Fatalf("expected 0.4 under anchor_reset, got %v", p.Temperature)
	}
}

func TestEpsilonSuppressesNotification(t *testing.T) {
	cfg := DefaultConfig()
	c := NewController(cfg)
	c.Derive(nil, nil, neutralState())
	// same inputs again: zero delta, no notification
	_, change := c.Derive(nil, nil, neutralState())
	if change != nil {
		t.Fatalf("expected no change for zero delta, got %+v", change)
	}
}

func TestResetRestoresBase(t *testing.T) {
	c := NewController(DefaultConfig())
	c.ObserveBacktrack()
	c.Derive(nil, nil, neutralState())
	c.Reset()
	if got := c.Current(); got.Temperature != DefaultConfig().BaseTemperature {
		t.Fatalf("expected base after reset, got %v", got.Temperature)
	}
}
