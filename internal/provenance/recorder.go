package provenance

import (
	"encoding/json"
	"fmt"

	"github.com/streamgate/controller/internal/events"
)

// #region recorder

// Recorder returns a subscriber that persists controller decisions for one
// session. Every token event carries the gate's verdict for its unit, so
// token events alone reconstruct the full decision log; segment, backtrack,
// and parameter events add no provenance of their own.
func (s *Store) Recorder(sessionID string) events.Subscriber {
	return func(e events.Event) error {
		if e.Kind != events.KindToken {
			return nil
		}
		p, ok := e.Payload.(events.TokenPayload)
		if !ok {
			return fmt.Errorf("token event with %T payload", e.Payload)
		}
		var flagsJSON string
		if len(p.Result.Flags) > 0 {
			b, err := json.Marshal(p.Result.Flags)
			if err != nil {
				return fmt.Errorf("marshal flags: %w", err)
			}
			flagsJSON = string(b)
		}
		return s.RecordDecision(DecisionRecord{
			SessionID: sessionID,
			Position:  p.Unit.Position,
			Action:    string(p.Result.Action),
			Score:     p.Result.Score,
			Passed:    p.Result.Passed,
			Reason:    p.Result.Reason,
			FlagsJSON: flagsJSON,
			CreatedAt: e.Timestamp,
		})
	}
}

// #endregion recorder
