package threshold

import "strings"

// #region operator-indicators

// operatorIndicators maps phases to operator substrings that vote for them.
var operatorIndicators = map[Phase][]string{
	PhaseExploration: {"explore", "expand", "branch"},
	PhaseDeepening:   {"deepen", "focus", "zoom"},
	PhaseChallenging: {"challenge", "invert", "oppose", "stress"},
	PhaseSynthesis:   {"synthesize", "merge", "combine", "weave"},
	PhaseClosing:     {"close", "resolve", "settle", "wrap"},
}

// #endregion operator-indicators

// #region detect

// detectPhase scores all eight phases against weighted indicators and
// returns the winner with a normalized confidence. Crisis is forced past
// the drift ceiling; recovery is forced while in recovery mode once drift
// has fallen back under the recovery ceiling. Ties default to exploration.
func (a *Adapter) detectPhase(ctx Context) (Phase, float64) {
	if ctx.Drift > a.config.CrisisDriftCeiling {
		return PhaseCrisis, 1.0
	}
	if a.state.RecoveryMode && ctx.Drift < a.config.RecoveryDriftCeiling {
		return PhaseRecovery, 1.0
	}

	scores := map[Phase]float64{
		PhaseOpening:     a.scoreOpening(ctx),
		PhaseExploration: a.scoreExploration(ctx),
		PhaseDeepening:   a.scoreDeepening(ctx),
		PhaseChallenging: a.scoreChallenging(ctx),
		PhaseSynthesis:   a.scoreSynthesis(ctx),
		PhaseClosing:     a.scoreClosing(ctx),
		PhaseCrisis:      a.scoreCrisis(ctx),
		PhaseRecovery:    a.scoreRecovery(ctx),
	}

	best := PhaseExploration
	bestScore := scores[best]
	var total float64
	for _, p := range phaseOrder {
		total += scores[p]
		if scores[p] > bestScore {
			best = p
			bestScore = scores[p]
		}
	}
	if total == 0 {
		return PhaseExploration, 0
	}
	return best, bestScore / total
}

// #endregion detect

// #region phase-scores

func (a *Adapter) scoreOpening(ctx Context) float64 {
	var s float64
	if ctx.MessageCount < 5 {
		s += 2
	}
	if ctx.Drift < 20 {
		s += 1
	}
	return s
}

func (a *Adapter) scoreExploration(ctx Context) float64 {
	var s float64
	if ctx.MessageCount >= 5 && ctx.MessageCount <= 15 {
		s += 1.5
	}
	if ctx.Drift >= 20 && ctx.Drift < 40 {
		s += 1
	}
	s += operatorVotes(ctx.Operators, PhaseExploration)
	return s
}

func (a *Adapter) scoreDeepening(ctx Context) float64 {
	var s float64
	if ctx.MessageCount > 10 {
		s += 1
	}
	if ctx.Drift >= 30 && ctx.Drift < 50 {
		s += 1
	}
	s += operatorVotes(ctx.Operators, PhaseDeepening)
	return s
}

func (a *Adapter) scoreChallenging(ctx Context) float64 {
	var s float64
	if ctx.Drift >= 40 && ctx.Drift < 60 {
		s += 1
	}
	s += 2 * operatorVotes(ctx.Operators, PhaseChallenging)
	return s
}

func (a *Adapter) scoreSynthesis(ctx Context) float64 {
	var s float64
	if ctx.MessageCount > 20 {
		s += 1.5
	}
	if a.driftAcceleration() < 0 {
		s += 1
	}
	s += operatorVotes(ctx.Operators, PhaseSynthesis)
	return s
}

func (a *Adapter) scoreClosing(ctx Context) float64 {
	var s float64
	if ctx.MessageCount > 30 {
		s += 1
	}
	if ctx.Drift < 15 && ctx.MessageCount > 10 {
		s += 1
	}
	s += 1.5 * operatorVotes(ctx.Operators, PhaseClosing)
	return s
}

func (a *Adapter) scoreCrisis(ctx Context) float64 {
	if ctx.Drift > 60 {
		return 2
	}
	return 0
}

func (a *Adapter) scoreRecovery(ctx Context) float64 {
	if a.state.RecoveryMode {
		return 1.5
	}
	return 0
}

// #endregion phase-scores

// #region helpers

// operatorVotes counts recent operators matching a phase's indicators,
// weighing only the last five.
func operatorVotes(operators []string, phase Phase) float64 {
	indicators := operatorIndicators[phase]
	if len(indicators) == 0 {
		return 0
	}
	start := 0
	if len(operators) > 5 {
		start = len(operators) - 5
	}
	var votes float64
	for _, op := range operators[start:] {
		lower := strings.ToLower(op)
		for _, ind := range indicators {
			if strings.Contains(lower, ind) {
				votes++
				break
			}
		}
	}
	return votes
}

// #endregion helpers
