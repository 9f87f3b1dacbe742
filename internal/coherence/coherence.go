package coherence

import (
	"strings"

	"github.com/streamgate/controller/internal/stance"
)

// #region evaluator

// Evaluator scores each unit locally (short window) and globally (whole
// stream). It keeps only a bounded buffer of raw recent units for pattern
// matching; full history stays with the stream.
type Evaluator struct {
	config  Config
	locals  []Detector
	globals []Detector
	recent  []string
}

// NewEvaluator creates an evaluator. Nil detector sets in the config fall
// back to the built-in heuristics.
func NewEvaluator(config Config) *Evaluator {
	locals := config.Locals
	if locals == nil {
		locals = DefaultLocalDetectors()
	}
	globals := config.Globals
	if globals == nil {
		globals = DefaultGlobalDetectors()
	}
	if config.BufferCap <= 0 {
		config.BufferCap = DefaultConfig().BufferCap
	}
	return &Evaluator{
		config:  config,
		locals:  locals,
		globals: globals,
	}
}

// #endregion evaluator

// #region evaluate

// Evaluate scores one unit against the recent buffer, the accumulated
// response, and the optional stance/context, then admits the unit into
// the buffer. Penalties are additive within each score; both scores start
// at 1.0 and clamp to [0,1].
func (e *Evaluator) Evaluate(text, response, context string, st *stance.Stance) Result {
	in := Input{
		Text:     text,
		Recent:   e.recent,
		Response: response,
		Context:  context,
		Stance:   st,
	}

	local := 1.0
	var flags []Flag
	for _, d := range e.locals {
		det := d(in)
		local -= det.Penalty
		flags = appendFlags(flags, det.Flags)
	}
	local = clamp01(local)

	global := 1.0
	for _, d := range e.globals {
		det := d(in)
		global -= det.Penalty
		flags = appendFlags(flags, det.Flags)
	}
	global = clamp01(global)

	if context != "" {
		relevance := topicalRelevance(text, context)
		global = clamp01(e.config.RelevanceBlend*global + (1-e.config.RelevanceBlend)*relevance)
		if relevance < e.config.DriftFloor {
			flags = appendFlags(flags, []Flag{FlagTopicDrift})
		}
	}

	e.push(text)

	return Result{
		Local:    local,
		Global:   global,
		Combined: local*e.config.LocalWeight + global*e.config.GlobalWeight,
		Flags:    flags,
	}
}

// #endregion evaluate

// #region buffer

// push admits a unit into the recent buffer, evicting the oldest past cap.
func (e *Evaluator) push(text string) {
	e.recent = append(e.recent, text)
	if len(e.recent) > e.config.BufferCap {
		e.recent = e.recent[len(e.recent)-e.config.BufferCap:]
	}
}

// Recent returns a copy of the current buffer, oldest first.
func (e *Evaluator) Recent() []string {
	return append([]string(nil), e.recent...)
}

// ResetBuffer replaces the buffer with the surviving tail after a rollback.
func (e *Evaluator) ResetBuffer(tail []string) {
	if len(tail) > e.config.BufferCap {
		tail = tail[len(tail)-e.config.BufferCap:]
	}
	e.recent = append(e.recent[:0], tail...)
}

// #endregion buffer

// #region relevance

// topicalRelevance measures word overlap between a unit and the
// conversation context. Words of three characters or fewer are noise.
func topicalRelevance(text, context string) float64 {
	unitWords := significantWords(text)
	if len(unitWords) == 0 {
		// A connective or punctuation unit carries no topic of its own.
		return 1.0
	}
	contextSet := make(map[string]bool)
	for _, w := range significantWords(context) {
		contextSet[w] = true
	}
	if len(contextSet) == 0 {
		return 1.0
	}
	shared := 0
	for _, w := range unitWords {
		if contextSet[w] {
			shared++
		}
	}
	return float64(shared) / float64(len(unitWords))
}

func significantWords(text string) []string {
	var out []string
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,;:!?()[]{}\"'")
		if len(w) > 3 {
			out = append(out, w)
		}
	}
	return out
}

// #endregion relevance

// #region helpers

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// appendFlags merges flags without duplicates, preserving first-raise order.
func appendFlags(dst []Flag, add []Flag) []Flag {
	for _, f := range add {
		found := false
		for _, existing := range dst {
			if existing == f {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, f)
		}
	}
	return dst
}

// #endregion helpers
