package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/streamgate/controller/internal/confidence"
	"github.com/streamgate/controller/internal/controller"
	"github.com/streamgate/controller/internal/stance"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture.
type Fixture struct {
	Description string            `json:"description"`
	Config      FixtureConfig     `json:"config"`
	Context     FixtureContext    `json:"context"`
	Units       []FixtureUnit     `json:"units"`
	Expected    []FixtureExpected `json:"expected"`
}

// FixtureConfig overrides selected controller knobs. Absent fields keep
// their defaults.
type FixtureConfig struct {
	GateEnabled       *bool    `json:"gate_enabled"`
	Window            *int     `json:"window"`
	MinCoherence      *float64 `json:"min_coherence"`
	WarningThreshold  *float64 `json:"warning_threshold"`
	MaxBacktracks     *int     `json:"max_backtracks"`
	AllowRollback     *bool    `json:"allow_rollback"`
	MaxBacktrackUnits *int     `json:"max_backtrack_units"`
	SegmentUnits      *int     `json:"segment_units"`
	AdaptEvery        *int     `json:"adapt_every"`
}

// FixtureContext seeds the conversation context before the first unit.
type FixtureContext struct {
	Frame        string  `json:"frame"`
	Drift        float64 `json:"drift"`
	Conversation string  `json:"conversation"`
	MessageCount int     `json:"message_count"`
}

// FixtureUnit mirrors confidence.UnitInput with JSON tags.
type FixtureUnit struct {
	Text         string               `json:"text"`
	LogProb      *float64             `json:"log_prob"`
	Alternatives []FixtureAlternative `json:"alternatives,omitempty"`
}

// FixtureAlternative is a candidate continuation with its log probability.
type FixtureAlternative struct {
	Text    string  `json:"text"`
	LogProb float64 `json:"log_prob"`
}

// FixtureExpected captures the expected gate action at a unit index.
type FixtureExpected struct {
	Index  int    `json:"index"`
	Action string `json:"action"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// ToControllerConfig applies the fixture's overrides on top of defaults.
func (fc *FixtureConfig) ToControllerConfig() controller.Config {
	cfg := controller.DefaultConfig()
	if fc.GateEnabled != nil {
		cfg.Gate.Enabled = *fc.GateEnabled
	}
	if fc.Window != nil {
		cfg.Gate.Window = *fc.Window
	}
	if fc.MinCoherence != nil {
		cfg.Gate.MinCoherence = *fc.MinCoherence
	}
	if fc.WarningThreshold != nil {
		cfg.Gate.WarningThreshold = *fc.WarningThreshold
	}
	if fc.MaxBacktracks != nil {
		cfg.Gate.MaxBacktracks = *fc.MaxBacktracks
	}
	if fc.AllowRollback != nil {
		cfg.Stream.AllowRollback = *fc.AllowRollback
	}
	if fc.MaxBacktrackUnits != nil {
		cfg.Stream.MaxBacktrackUnits = *fc.MaxBacktrackUnits
	}
	if fc.SegmentUnits != nil {
		cfg.Stream.SegmentUnits = *fc.SegmentUnits
	}
	if fc.AdaptEvery != nil {
		cfg.AdaptEvery = *fc.AdaptEvery
	}
	return cfg
}

// ToUnitInput converts a FixtureUnit to a domain UnitInput.
func (fu *FixtureUnit) ToUnitInput() confidence.UnitInput {
	in := confidence.UnitInput{Text: fu.Text, LogProb: fu.LogProb}
	for _, alt := range fu.Alternatives {
		in.Alternatives = append(in.Alternatives, confidence.Alternative{
			Text:    alt.Text,
			LogProb: alt.LogProb,
		})
	}
	return in
}

// ToStance converts the fixture context to a domain stance, or nil when
// no frame or drift is given.
func (fc *FixtureContext) ToStance() *stance.Stance {
	if fc.Frame == "" && fc.Drift == 0 {
		return nil
	}
	return &stance.Stance{
		Frame:           stance.Frame(fc.Frame),
		CumulativeDrift: fc.Drift,
	}
}

// #endregion fixture-loader
