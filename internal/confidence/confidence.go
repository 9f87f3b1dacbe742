package confidence

import (
	"errors"
	"math"
)

// #region errors

// ErrMissingLogProb is returned when a unit arrives without a log-probability.
// Malformed input is rejected here, never silently coerced to a score.
var ErrMissingLogProb = errors.New("unit input missing log probability")

// ErrPositiveLogProb is returned when a log-probability is greater than zero,
// which no probability can produce.
var ErrPositiveLogProb = errors.New("log probability must be <= 0")

// #endregion errors

// #region types

// Alternative is a candidate token the backend considered alongside the
// emitted one.
type Alternative struct {
	Text    string
	LogProb float64
}

// ScoredAlternative pairs an alternative with its derived confidence.
type ScoredAlternative struct {
	Text       string
	Confidence float64
}

// UnitInput is the raw per-unit payload from the generation backend.
// LogProb is a pointer so that an absent value is distinguishable from a
// perfect-certainty zero.
type UnitInput struct {
	Text         string
	LogProb      *float64
	Alternatives []Alternative
}

// Score is the scorer's output for one unit.
type Score struct {
	Confidence   float64 // (0, 1]; exactly 1.0 when LogProb == 0
	Alternatives []ScoredAlternative
}

// #endregion types

// #region epsilon

// Epsilon is the floor below which a confidence is treated as effectively
// zero. Very negative log-probabilities underflow toward zero but never
// reach it in floating point, so callers compare against this instead of
// testing for exact equality.
const Epsilon = 1e-10

// EffectivelyZero reports whether a confidence value should be treated as zero.
func EffectivelyZero(c float64) bool {
	return c < Epsilon
}

// #endregion epsilon

// #region scorer

// FromLogProb converts a log-probability into a bounded confidence.
// A log-probability of 0 yields exactly 1.0.
func FromLogProb(logProb float64) float64 {
	if logProb == 0 {
		return 1.0
	}
	return math.Exp(logProb)
}

// ScoreUnit validates the input and scores the unit and its alternatives.
// No side effects; the scorer holds no state.
func ScoreUnit(input UnitInput) (Score, error) {
	if input.LogProb == nil {
		return Score{}, ErrMissingLogProb
	}
	lp := *input.LogProb
	if lp > 0 {
		return Score{}, ErrPositiveLogProb
	}

	out := Score{Confidence: FromLogProb(lp)}
	if len(input.Alternatives) > 0 {
		out.Alternatives = make([]ScoredAlternative, 0, len(input.Alternatives))
		for _, alt := range input.Alternatives {
			c := 0.0
			if alt.LogProb <= 0 {
				c = FromLogProb(alt.LogProb)
			}
			out.Alternatives = append(out.Alternatives, ScoredAlternative{
				Text:       alt.Text,
				Confidence: c,
			})
		}
	}
	return out, nil
}

// #endregion scorer
