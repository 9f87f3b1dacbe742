package controller

import (
	"github.com/streamgate/controller/internal/events"
	"github.com/streamgate/controller/internal/gate"
	"github.com/streamgate/controller/internal/params"
	"github.com/streamgate/controller/internal/stance"
	"github.com/streamgate/controller/internal/stream"
	"github.com/streamgate/controller/internal/threshold"
)

// #region snapshot

// Snapshot is a copied view of controller state for external readers.
type Snapshot struct {
	StreamID       string
	UnitCount      int
	SegmentCount   int
	AvgConfidence  float64
	BacktrackCount int
	WarningCount   int
	GateState      gate.State
	Healthy        bool
	Floor          float64
	Phase          threshold.Phase
	Risk           threshold.RiskLevel
	Params         params.Params
	Terminated     bool
}

// State assembles the current snapshot.
func (c *Controller) State() Snapshot {
	ts := c.adapter.State()
	return Snapshot{
		StreamID:       c.strm.ID,
		UnitCount:      c.strm.UnitCount(),
		SegmentCount:   len(c.strm.Segments()),
		AvgConfidence:  c.strm.AvgConfidence(),
		BacktrackCount: c.strm.BacktrackCount(),
		WarningCount:   c.gt.WarningCount(),
		GateState:      c.gt.State(),
		Healthy:        c.gt.IsHealthy(),
		Floor:          ts.Floor,
		Phase:          ts.Phase,
		Risk:           ts.Risk,
		Params:         c.pc.Current(),
		Terminated:     c.strm.Terminated(),
	}
}

// #endregion snapshot

// #region stats

// Stats are aggregate statistics over the surviving stream.
type Stats struct {
	Units           int
	Segments        int
	RevisedSegments int
	AvgConfidence   float64
	AvgCoherence    float64
	MovingAverage   float64
	Backtracks      int
	Warnings        int
	RollbackPoints  int
}

// Stats computes aggregates from the surviving units.
func (c *Controller) Stats() Stats {
	segs := c.strm.Segments()
	revised := 0
	var cohSum float64
	units := 0
	for _, s := range segs {
		if s.Revised {
			revised++
		}
		for _, u := range s.Units {
			cohSum += u.Combined
			units++
		}
	}
	avgCoh := 0.0
	if units > 0 {
		avgCoh = cohSum / float64(units)
	}
	return Stats{
		Units:           units,
		Segments:        len(segs),
		RevisedSegments: revised,
		AvgConfidence:   c.strm.AvgConfidence(),
		AvgCoherence:    avgCoh,
		MovingAverage:   c.gt.MovingAverage(),
		Backtracks:      c.strm.BacktrackCount(),
		Warnings:        c.gt.WarningCount(),
		RollbackPoints:  len(c.strm.RollbackPoints()),
	}
}

// #endregion stats

// #region content

// Content reconstructs the full surviving text.
func (c *Controller) Content() string {
	return c.strm.Content()
}

// Units returns copies of all surviving units.
func (c *Controller) Units() []stream.Unit {
	return c.strm.Units()
}

// Segments returns copies of all segments, snapshots included.
func (c *Controller) Segments() []stream.Segment {
	return c.strm.Segments()
}

// #endregion content

// #region visualization

// VisPoint is one entry of the coherence visualization.
type VisPoint struct {
	Position int
	Score    float64
	Issues   []string
}

// Visualization returns ordered per-unit score points with human-readable
// issues derived from the unit's flags.
func (c *Controller) Visualization() []VisPoint {
	units := c.strm.Units()
	out := make([]VisPoint, 0, len(units))
	for _, u := range units {
		var issues []string
		for _, f := range u.Flags {
			issues = append(issues, f.Issue())
		}
		out = append(out, VisPoint{Position: u.Position, Score: u.Combined, Issues: issues})
	}
	return out
}

// #endregion visualization

// #region params-query

// GenerationParams derives the recommended parameters for the next unit
// from the supplied stance and transform settings. Crossing the change
// epsilon publishes a params_adjust event.
func (c *Controller) GenerationParams(st *stance.Stance, tc *stance.TransformConfig) params.Params {
	p, change := c.pc.Derive(st, tc, c.adapter.State())
	if change != nil {
		change.Reason = "params queried"
		c.publish(events.KindParamsAdjust, events.ParamsPayload{Change: *change})
	}
	return p
}

// ThresholdState returns a copy of the adapter's state.
func (c *Controller) ThresholdState() threshold.State {
	return c.adapter.State()
}

// #endregion params-query
