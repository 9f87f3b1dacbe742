package coherence

import "github.com/streamgate/controller/internal/stance"

// #region flag

// Flag is a categorical coherence issue raised by a detector.
type Flag string

const (
	FlagTopicDrift        Flag = "topic_drift"
	FlagToneShift         Flag = "tone_shift"
	FlagContradiction     Flag = "contradiction"
	FlagRepetition        Flag = "repetition"
	FlagIncoherentSyntax  Flag = "incoherent_syntax"
	FlagStanceViolation   Flag = "stance_violation"
	FlagHallucinationRisk Flag = "hallucination_risk"
)

// Issue returns a human-readable description of the flag for visualization.
func (f Flag) Issue() string {
	switch f {
	case FlagTopicDrift:
		return "drifted from topic"
	case FlagToneShift:
		return "abrupt tone shift"
	case FlagContradiction:
		return "contradicts earlier output"
	case FlagRepetition:
		return "repeated content"
	case FlagIncoherentSyntax:
		return "broken syntax"
	case FlagStanceViolation:
		return "violates active stance"
	case FlagHallucinationRisk:
		return "hallucination cue"
	}
	return string(f)
}

// #endregion flag

// #region detector

// Input is the full view a detector may inspect. Recent holds the bounded
// buffer of prior units (most recent last, current unit excluded); Response
// is the accumulated output so far; Context is the caller-supplied
// conversation context used for relevance.
type Input struct {
	Text     string
	Recent   []string
	Response string
	Context  string
	Stance   *stance.Stance
}

// Detection is one detector's verdict: an additive penalty plus zero or
// more flags.
type Detection struct {
	Penalty float64
	Flags   []Flag
}

// Detector is a pure function over the evaluation input. Swapping the
// default heuristics for learned scorers happens here, without touching
// the gate.
type Detector func(in Input) Detection

// #endregion detector

// #region result

// Result carries the per-unit coherence scores and flags.
type Result struct {
	Local    float64 // [0,1]
	Global   float64 // [0,1]
	Combined float64 // Local*LocalWeight + Global*GlobalWeight
	Flags    []Flag
}

// HasFlag reports whether the result raised the given flag.
func (r Result) HasFlag(f Flag) bool {
	for _, x := range r.Flags {
		if x == f {
			return true
		}
	}
	return false
}

// #endregion result

// #region config

// Config holds evaluator weights, buffer bounds, and the detector sets.
type Config struct {
	LocalWeight    float64
	GlobalWeight   float64
	BufferCap      int     // max units retained for local pattern matching
	RelevanceBlend float64 // share of the raw global score vs the relevance term
	DriftFloor     float64 // relevance below this raises topic_drift

	Locals  []Detector // nil = DefaultLocalDetectors
	Globals []Detector // nil = DefaultGlobalDetectors
}

// DefaultConfig returns the standard 0.6/0.4 weighting with a 50-unit buffer.
func DefaultConfig() Config {
	return Config{
		LocalWeight:    0.6,
		GlobalWeight:   0.4,
		BufferCap:      50,
		RelevanceBlend: 0.7,
		DriftFloor:     0.15,
	}
}

// #endregion config
