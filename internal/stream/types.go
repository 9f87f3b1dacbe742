package stream

import (
	"time"

	"github.com/streamgate/controller/internal/coherence"
	"github.com/streamgate/controller/internal/confidence"
)

// #region unit

// Unit is one accepted item of generated text. Units are append-only
// within a segment; rollback discards trailing units, never mutates them.
type Unit struct {
	Text         string
	Confidence   float64 // (0,1]
	LocalScore   float64 // [0,1]
	GlobalScore  float64 // [0,1]
	Combined     float64 // weighted local/global blend, [0,1]
	Flags        []coherence.Flag
	Position     int // global position within the stream
	Timestamp    time.Time
	Alternatives []confidence.ScoredAlternative
}

// Clone returns a deep copy safe to hand to subscribers.
func (u Unit) Clone() Unit {
	out := u
	out.Flags = append([]coherence.Flag(nil), u.Flags...)
	out.Alternatives = append([]confidence.ScoredAlternative(nil), u.Alternatives...)
	return out
}

// #endregion unit

// #region segment

// Segment is a contiguous run of units between rollback or natural
// segmentation boundaries.
type Segment struct {
	Units    []Unit
	Revised  bool   // a backtrack has touched this segment
	Snapshot string // pre-revision text, captured on the first backtrack only
}

// AvgConfidence recomputes the mean unit confidence. Never cached; the
// segment invariant is that this always reflects the current unit list.
func (s *Segment) AvgConfidence() float64 {
	if len(s.Units) == 0 {
		return 0
	}
	var sum float64
	for _, u := range s.Units {
		sum += u.Confidence
	}
	return sum / float64(len(s.Units))
}

// CoherenceScore recomputes the mean combined coherence.
func (s *Segment) CoherenceScore() float64 {
	if len(s.Units) == 0 {
		return 0
	}
	var sum float64
	for _, u := range s.Units {
		sum += u.Combined
	}
	return sum / float64(len(s.Units))
}

// Text concatenates the segment's unit texts.
func (s *Segment) Text() string {
	var b []byte
	for _, u := range s.Units {
		b = append(b, u.Text...)
	}
	return string(b)
}

// Clone returns a deep copy of the segment.
func (s *Segment) Clone() Segment {
	out := Segment{Revised: s.Revised, Snapshot: s.Snapshot}
	out.Units = make([]Unit, 0, len(s.Units))
	for _, u := range s.Units {
		out.Units = append(out.Units, u.Clone())
	}
	return out
}

// #endregion segment

// #region rollback-point

// RollbackPoint is an immutable snapshot of known-good stream state,
// created every RollbackEvery accepted units while rollback is allowed.
// Points are monotonically increasing in position; points beyond a
// rollback target are discarded, never revived.
type RollbackPoint struct {
	Position      int
	AvgConfidence float64
	Score         float64 // combined score of the unit at Position-1
	CreatedAt     time.Time
}

// #endregion rollback-point

// #region score-point

// ScorePoint is one entry of the stream's coherence history.
type ScorePoint struct {
	Position int
	Score    float64
}

// #endregion score-point

// #region config

// Config bounds rollback behavior and natural segmentation.
type Config struct {
	AllowRollback     bool
	RollbackEvery     int // accepted units between rollback points
	MaxBacktrackUnits int // cap on units removed by a single backtrack
	SegmentUnits      int // voluntary boundary once a segment reaches this, 0 = never
}

// DefaultConfig returns the standard stream bounds.
func DefaultConfig() Config {
	return Config{
		AllowRollback:     true,
		RollbackEvery:     5,
		MaxBacktrackUnits: 20,
		SegmentUnits:      12,
	}
}

// #endregion config
