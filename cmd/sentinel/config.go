package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/streamgate/controller/internal/controller"
)

// #region file-config

// fileConfig is the YAML shape of a sentinel config file. Absent fields
// keep their defaults.
type fileConfig struct {
	Gate struct {
		Enabled          *bool    `yaml:"enabled"`
		Window           *int     `yaml:"window"`
		MinCoherence     *float64 `yaml:"min_coherence"`
		WarningThreshold *float64 `yaml:"warning_threshold"`
		MaxBacktracks    *int     `yaml:"max_backtracks"`
	} `yaml:"gate"`
	Stream struct {
		AllowRollback     *bool `yaml:"allow_rollback"`
		RollbackEvery     *int  `yaml:"rollback_every"`
		MaxBacktrackUnits *int  `yaml:"max_backtrack_units"`
		SegmentUnits      *int  `yaml:"segment_units"`
	} `yaml:"stream"`
	Threshold struct {
		BaselineFloor  *float64 `yaml:"baseline_floor"`
		MinFloor       *float64 `yaml:"min_floor"`
		MaxFloor       *float64 `yaml:"max_floor"`
		AdaptationRate *float64 `yaml:"adaptation_rate"`
	} `yaml:"threshold"`
	Params struct {
		BaseTemperature *float64 `yaml:"base_temperature"`
		MinTemperature  *float64 `yaml:"min_temperature"`
		MaxTemperature  *float64 `yaml:"max_temperature"`
	} `yaml:"params"`
	AdaptEvery *int `yaml:"adapt_every"`
}

// loadConfig builds a controller config from defaults plus an optional
// YAML file.
func loadConfig(path string) (controller.Config, error) {
	cfg := controller.DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return controller.Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return controller.Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	applyBool(&cfg.Gate.Enabled, fc.Gate.Enabled)
	applyInt(&cfg.Gate.Window, fc.Gate.Window)
	applyFloat(&cfg.Gate.MinCoherence, fc.Gate.MinCoherence)
	applyFloat(&cfg.Gate.WarningThreshold, fc.Gate.WarningThreshold)
	applyInt(&cfg.Gate.MaxBacktracks, fc.Gate.MaxBacktracks)

	applyBool(&cfg.Stream.AllowRollback, fc.Stream.AllowRollback)
	applyInt(&cfg.Stream.RollbackEvery, fc.Stream.RollbackEvery)
	applyInt(&cfg.Stream.MaxBacktrackUnits, fc.Stream.MaxBacktrackUnits)
	applyInt(&cfg.Stream.SegmentUnits, fc.Stream.SegmentUnits)

	applyFloat(&cfg.Threshold.BaselineFloor, fc.Threshold.BaselineFloor)
	applyFloat(&cfg.Threshold.MinFloor, fc.Threshold.MinFloor)
	applyFloat(&cfg.Threshold.MaxFloor, fc.Threshold.MaxFloor)
	applyFloat(&cfg.Threshold.AdaptationRate, fc.Threshold.AdaptationRate)

	applyFloat(&cfg.Params.BaseTemperature, fc.Params.BaseTemperature)
	applyFloat(&cfg.Params.MinTemperature, fc.Params.MinTemperature)
	applyFloat(&cfg.Params.MaxTemperature, fc.Params.MaxTemperature)

	applyInt(&cfg.AdaptEvery, fc.AdaptEvery)
	return cfg, nil
}

func applyBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

func applyInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func applyFloat(dst *float64, src *float64) {
	if src != nil {
		*dst = *src
	}
}

// #endregion file-config
