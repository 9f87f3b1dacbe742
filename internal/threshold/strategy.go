package threshold

// #region strategies

// defaultStrategies are tried in order; the first whose applicable-phase
// list contains the current phase wins.
var defaultStrategies = []RecoveryStrategy{
	{
		Name:             "anchor_reset",
		ApplicablePhases: []Phase{PhaseCrisis, PhaseChallenging},
		FloorBoost:       15,
		TemperatureDrop:  0.3,
		Description:      "hard floor raise and cooled sampling to re-anchor a derailed stream",
	},
	{
		Name:             "gentle_steer",
		ApplicablePhases: []Phase{PhaseOpening, PhaseExploration, PhaseDeepening},
		FloorBoost:       8,
		TemperatureDrop:  0.15,
		Description:      "moderate floor raise while the conversation is still forming",
	},
	{
		Name:             "consolidate",
		ApplicablePhases: []Phase{PhaseSynthesis, PhaseClosing},
		FloorBoost:       10,
		TemperatureDrop:  0.2,
		Description:      "tighten late-stage output to protect conclusions already reached",
	},
}

// gradualStrategy is the fallback when no strategy lists the current phase.
var gradualStrategy = RecoveryStrategy{
	Name:            "gradual",
	FloorBoost:      5,
	TemperatureDrop: 0.1,
	Description:     "small corrective nudge, applicable anywhere",
}

// #endregion strategies

// #region select

// SelectRecoveryStrategy matches the current phase against each strategy's
// applicable-phase list, falling back to the gradual strategy.
func SelectRecoveryStrategy(phase Phase) RecoveryStrategy {
	for _, s := range defaultStrategies {
		for _, p := range s.ApplicablePhases {
			if p == phase {
				return s
			}
		}
	}
	return gradualStrategy
}

// #endregion select
