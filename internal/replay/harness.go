package replay

import (
	"github.com/streamgate/controller/internal/controller"
	"github.com/streamgate/controller/internal/stance"
)

// #region types

// Result captures the outcome of replaying one unit through the gate.
type Result struct {
	Index  int
	Action string
	Score  float64
	Passed bool
	Reason string

	// Err is set when the unit itself was malformed; the gate never saw it.
	Err error
}

// Mismatch pairs an expectation with what the replay actually produced.
type Mismatch struct {
	Index    int
	Expected string
	Actual   string
}

// Summary provides aggregate stats from a replay run.
type Summary struct {
	Description string
	TotalUnits  int
	Accepted    int
	Warnings    int
	Backtracks  int
	Terminated  bool
	Errors      int
	Mismatches  []Mismatch
	FinalText   string
}

// #endregion types

// #region replay

// Replay feeds every fixture unit through a fresh controller and records
// the gate's verdict per unit. Processing stops early when the stream
// terminates; remaining units are not evaluated.
func Replay(f *Fixture) ([]Result, Summary) {
	ctrl := controller.New(f.Config.ToControllerConfig())
	if st := f.Context.ToStance(); st != nil {
		ctrl.UpdateContext(*st, f.Context.Conversation, f.Context.MessageCount)
	} else if f.Context.Conversation != "" {
		ctrl.UpdateContext(stance.Stance{}, f.Context.Conversation, f.Context.MessageCount)
	}

	results := make([]Result, 0, len(f.Units))
	terminated := false

	for i, fu := range f.Units {
		if terminated {
			break
		}
		decision, err := ctrl.ProcessUnit(fu.ToUnitInput())
		if err != nil {
			results = append(results, Result{Index: i, Err: err})
			continue
		}
		results = append(results, Result{
			Index:  i,
			Action: string(decision.Result.Action),
			Score:  decision.Result.Score,
			Passed: decision.Result.Passed,
			Reason: decision.Result.Reason,
		})
		if decision.Terminated {
			terminated = true
		}
	}

	return results, summarize(f, ctrl, results, terminated)
}

func summarize(f *Fixture, ctrl *controller.Controller, results []Result, terminated bool) Summary {
	s := Summary{
		Description: f.Description,
		TotalUnits:  len(results),
		Terminated:  terminated,
		FinalText:   ctrl.Content(),
	}
	for _, r := range results {
		switch r.Action {
		case "continue":
			s.Accepted++
		case "warn":
			s.Warnings++
		case "backtrack":
			s.Backtracks++
		}
		if r.Err != nil {
			s.Errors++
		}
	}
	for _, exp := range f.Expected {
		actual := ""
		if exp.Index >= 0 && exp.Index < len(results) {
			actual = results[exp.Index].Action
		}
		if actual != exp.Action {
			s.Mismatches = append(s.Mismatches, Mismatch{
				Index:    exp.Index,
				Expected: exp.Action,
				Actual:   actual,
			})
		}
	}
	return s
}

// #endregion replay
