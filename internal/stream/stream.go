package stream

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// #region errors

// ErrTerminated is returned when a mutation is attempted on a terminated
// stream. Termination is terminal; only reads remain valid.
var ErrTerminated = errors.New("stream is terminated")

// ErrRollbackDisabled is returned when a backtrack is requested while
// rollback is disallowed by configuration.
var ErrRollbackDisabled = errors.New("rollback is disabled for this stream")

// #endregion errors

// #region stream

// Stream is one generation session: an ordered sequence of segments plus
// rollback bookkeeping. The owning controller is the only mutator.
type Stream struct {
	ID        string
	CreatedAt time.Time

	config Config

	segments   []*Segment // last entry is the open segment
	unitCount  int
	history    []ScorePoint
	rollbacks  []RollbackPoint
	backtracks int
	terminated bool
	accepted   int // accepted units since the last rollback point
}

// New creates an empty stream with one open segment.
func New(config Config) *Stream {
	return &Stream{
		ID:        uuid.New().String(),
		CreatedAt: time.Now().UTC(),
		config:    config,
		segments:  []*Segment{{}},
	}
}

// #endregion stream

// #region append

// Append admits an accepted unit into the open segment, records its
// coherence history entry, and lays a rollback point on cadence. The
// position on the unit is assigned here.
func (s *Stream) Append(u Unit) (Unit, error) {
	if s.terminated {
		return Unit{}, ErrTerminated
	}
	u.Position = s.unitCount
	if u.Timestamp.IsZero() {
		u.Timestamp = time.Now().UTC()
	}

	open := s.segments[len(s.segments)-1]
	open.Units = append(open.Units, u)
	s.unitCount++
	s.history = append(s.history, ScorePoint{Position: u.Position, Score: u.Combined})

	s.accepted++
	if s.config.AllowRollback && s.config.RollbackEvery > 0 && s.accepted >= s.config.RollbackEvery {
		s.accepted = 0
		s.rollbacks = append(s.rollbacks, RollbackPoint{
			Position:      s.unitCount,
			AvgConfidence: s.AvgConfidence(),
			Score:         u.Combined,
			CreatedAt:     time.Now().UTC(),
		})
	}
	return u, nil
}

// #endregion append

// #region backtrack

// Backtrack discards all units at or after toPosition from the open
// segment. The target never crosses a segment boundary and never removes
// more than MaxBacktrackUnits in one request; the effective position is
// clamped accordingly and returned. Stale rollback points beyond the new
// position are discarded.
func (s *Stream) Backtrack(toPosition int) (effective int, removed []Unit, err error) {
	if s.terminated {
		return 0, nil, ErrTerminated
	}
	if !s.config.AllowRollback {
		return 0, nil, ErrRollbackDisabled
	}
	if toPosition < 0 {
		toPosition = 0
	}
	if toPosition >= s.unitCount {
		return 0, nil, fmt.Errorf("backtrack target %d not before stream end %d", toPosition, s.unitCount)
	}

	open := s.segments[len(s.segments)-1]
	segStart := s.unitCount - len(open.Units)
	if toPosition < segStart {
		toPosition = segStart
	}
	if s.config.MaxBacktrackUnits > 0 && s.unitCount-toPosition > s.config.MaxBacktrackUnits {
		toPosition = s.unitCount - s.config.MaxBacktrackUnits
	}
	if toPosition >= s.unitCount {
		return toPosition, nil, nil
	}

	if !open.Revised {
		open.Revised = true
		open.Snapshot = open.Text()
	}

	cut := toPosition - segStart
	removed = make([]Unit, len(open.Units)-cut)
	copy(removed, open.Units[cut:])
	open.Units = open.Units[:cut]
	s.unitCount = toPosition
	s.backtracks++
	s.accepted = 0

	// prune history and stale rollback points past the new position
	for len(s.history) > 0 && s.history[len(s.history)-1].Position >= toPosition {
		s.history = s.history[:len(s.history)-1]
	}
	kept := s.rollbacks[:0]
	for _, rp := range s.rollbacks {
		if rp.Position <= toPosition {
			kept = append(kept, rp)
		}
	}
	s.rollbacks = kept

	return toPosition, removed, nil
}

// #endregion backtrack

// #region segmentation

// SegmentBoundaryDue reports whether the open segment has grown past the
// voluntary boundary size and the last unit closes a sentence.
func (s *Stream) SegmentBoundaryDue() bool {
	if s.config.SegmentUnits <= 0 {
		return false
	}
	open := s.segments[len(s.segments)-1]
	if len(open.Units) < s.config.SegmentUnits {
		return false
	}
	text := strings.TrimSpace(open.Units[len(open.Units)-1].Text)
	return strings.HasSuffix(text, ".") || strings.HasSuffix(text, "!") || strings.HasSuffix(text, "?")
}

// CompleteSegment closes the open segment and opens a fresh one. Returns a
// copy of the completed segment, or false when the open segment is empty.
func (s *Stream) CompleteSegment() (Segment, bool) {
	open := s.segments[len(s.segments)-1]
	if len(open.Units) == 0 {
		return Segment{}, false
	}
	done := open.Clone()
	s.segments = append(s.segments, &Segment{})
	return done, true
}

// #endregion segmentation

// #region terminate

// Terminate flushes the open segment and freezes the stream. Idempotent.
func (s *Stream) Terminate() {
	if s.terminated {
		return
	}
	open := s.segments[len(s.segments)-1]
	if len(open.Units) == 0 && len(s.segments) > 1 {
		s.segments = s.segments[:len(s.segments)-1]
	}
	s.terminated = true
}

// Terminated reports whether the stream has been frozen.
func (s *Stream) Terminated() bool {
	return s.terminated
}

// #endregion terminate

// #region queries

// UnitCount returns the number of units currently in the stream.
func (s *Stream) UnitCount() int {
	return s.unitCount
}

// BacktrackCount returns how many backtracks have landed on this stream.
func (s *Stream) BacktrackCount() int {
	return s.backtracks
}

// AvgConfidence recomputes the running mean confidence over all units.
func (s *Stream) AvgConfidence() float64 {
	if s.unitCount == 0 {
		return 0
	}
	var sum float64
	for _, seg := range s.segments {
		for _, u := range seg.Units {
			sum += u.Confidence
		}
	}
	return sum / float64(s.unitCount)
}

// Content reconstructs the full surviving text.
func (s *Stream) Content() string {
	var b strings.Builder
	for _, seg := range s.segments {
		b.WriteString(seg.Text())
	}
	return b.String()
}

// Units returns a deep copy of every surviving unit in order.
func (s *Stream) Units() []Unit {
	out := make([]Unit, 0, s.unitCount)
	for _, seg := range s.segments {
		for _, u := range seg.Units {
			out = append(out, u.Clone())
		}
	}
	return out
}

// Segments returns deep copies of all segments.
func (s *Stream) Segments() []Segment {
	out := make([]Segment, 0, len(s.segments))
	for _, seg := range s.segments {
		out = append(out, seg.Clone())
	}
	return out
}

// OpenSegmentTexts returns the open segment's unit texts, oldest first.
// Used to rebuild the evaluator's recent buffer after a rollback.
func (s *Stream) OpenSegmentTexts() []string {
	open := s.segments[len(s.segments)-1]
	out := make([]string, 0, len(open.Units))
	for _, u := range open.Units {
		out = append(out, u.Text)
	}
	return out
}

// OpenSegmentUnits returns copies of the open segment's units.
func (s *Stream) OpenSegmentUnits() []Unit {
	open := s.segments[len(s.segments)-1]
	out := make([]Unit, 0, len(open.Units))
	for _, u := range open.Units {
		out = append(out, u.Clone())
	}
	return out
}

// History returns a copy of the coherence history, ordered by position.
func (s *Stream) History() []ScorePoint {
	return append([]ScorePoint(nil), s.history...)
}

// RollbackPoints returns a copy of the live rollback points.
func (s *Stream) RollbackPoints() []RollbackPoint {
	return append([]RollbackPoint(nil), s.rollbacks...)
}

// #endregion queries
