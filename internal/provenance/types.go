package provenance

import "time"

// #region records

// SessionRecord identifies one controller run.
type SessionRecord struct {
	SessionID  string
	ConfigJSON string
	CreatedAt  time.Time
}

// DecisionRecord is one gate verdict as persisted. Flags are stored as a
// JSON array so the schema stays flat.
type DecisionRecord struct {
	SessionID string
	Position  int
	Action    string
	Score     float64
	Passed    bool
	Reason    string
	FlagsJSON string
	CreatedAt time.Time
}

// AdjustmentRecord is one threshold floor move.
type AdjustmentRecord struct {
	SessionID    string
	OldFloor     float64
	NewFloor     float64
	Phase        string
	Risk         string
	Action       string
	Significance float64
	CreatedAt    time.Time
}

// SessionSummary aggregates a session's decision log.
type SessionSummary struct {
	SessionID  string
	Decisions  int
	Warnings   int
	Backtracks int
	Terminated bool
}

// #endregion records
