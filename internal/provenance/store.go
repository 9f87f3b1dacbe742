package provenance

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id   TEXT PRIMARY KEY,
	config_json  TEXT,
	created_at   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS decisions (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id   TEXT NOT NULL,
	position     INTEGER NOT NULL,
	action       TEXT NOT NULL,
	score        REAL NOT NULL,
	passed       INTEGER NOT NULL,
	reason       TEXT,
	flags_json   TEXT,
	created_at   TEXT NOT NULL,
	FOREIGN KEY (session_id) REFERENCES sessions(session_id)
);

CREATE TABLE IF NOT EXISTS adjustments (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id   TEXT NOT NULL,
	old_floor    REAL NOT NULL,
	new_floor    REAL NOT NULL,
	phase        TEXT NOT NULL,
	risk         TEXT NOT NULL,
	action       TEXT NOT NULL,
	significance REAL NOT NULL,
	created_at   TEXT NOT NULL,
	FOREIGN KEY (session_id) REFERENCES sessions(session_id)
);
`

// #endregion schema

// #region store

// Store persists controller decision provenance in SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// NewStoreWithDB wraps an existing connection. The caller owns the schema.
func NewStoreWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use by other packages.
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion store

// #region sessions

// BeginSession registers a new session row and returns its record.
func (s *Store) BeginSession(configJSON string) (SessionRecord, error) {
	rec := SessionRecord{
		SessionID:  uuid.New().String(),
		ConfigJSON: configJSON,
		CreatedAt:  time.Now().UTC(),
	}
	_, err := s.db.Exec(
		`INSERT INTO sessions (session_id, config_json, created_at) VALUES (?, ?, ?)`,
		rec.SessionID, nullIfEmpty(rec.ConfigJSON), rec.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return SessionRecord{}, fmt.Errorf("begin session: %w", err)
	}
	return rec, nil
}

// Sessions returns the most recent sessions.
func (s *Store) Sessions(limit int) ([]SessionRecord, error) {
	rows, err := s.db.Query(
		`SELECT session_id, config_json, created_at
		 FROM sessions ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var records []SessionRecord
	for rows.Next() {
		var rec SessionRecord
		var configJSON sql.NullString
		var createdStr string
		if err := rows.Scan(&rec.SessionID, &configJSON, &createdStr); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		if configJSON.Valid {
			rec.ConfigJSON = configJSON.String
		}
		rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// #endregion sessions

// #region decisions

// RecordDecision appends one gate verdict to the decision log.
func (s *Store) RecordDecision(rec DecisionRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	passed := 0
	if rec.Passed {
		passed = 1
	}
	_, err := s.db.Exec(
		`INSERT INTO decisions (session_id, position, action, score, passed, reason, flags_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.SessionID, rec.Position, rec.Action, rec.Score, passed,
		nullIfEmpty(rec.Reason), nullIfEmpty(rec.FlagsJSON),
		rec.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record decision: %w", err)
	}
	return nil
}

// Decisions returns a session's decisions in processing order.
func (s *Store) Decisions(sessionID string) ([]DecisionRecord, error) {
	rows, err := s.db.Query(
		`SELECT session_id, position, action, score, passed, reason, flags_json, created_at
		 FROM decisions WHERE session_id = ? ORDER BY id`, sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	defer rows.Close()

	var records []DecisionRecord
	for rows.Next() {
		var rec DecisionRecord
		var passed int
		var reason, flagsJSON sql.NullString
		var createdStr string
		err := rows.Scan(&rec.SessionID, &rec.Position, &rec.Action, &rec.Score,
			&passed, &reason, &flagsJSON, &createdStr)
		if err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		rec.Passed = passed != 0
		if reason.Valid {
			rec.Reason = reason.String
		}
		if flagsJSON.Valid {
			rec.FlagsJSON = flagsJSON.String
		}
		rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// #endregion decisions

// #region adjustments

// RecordAdjustment appends one threshold floor move.
func (s *Store) RecordAdjustment(rec AdjustmentRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(
		`INSERT INTO adjustments (session_id, old_floor, new_floor, phase, risk, action, significance, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.SessionID, rec.OldFloor, rec.NewFloor, rec.Phase, rec.Risk, rec.Action,
		rec.Significance, rec.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record adjustment: %w", err)
	}
	return nil
}

// Adjustments returns a session's floor moves in order.
func (s *Store) Adjustments(sessionID string) ([]AdjustmentRecord, error) {
	rows, err := s.db.Query(
		`SELECT session_id, old_floor, new_floor, phase, risk, action, significance, created_at
		 FROM adjustments WHERE session_id = ? ORDER BY id`, sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list adjustments: %w", err)
	}
	defer rows.Close()

	var records []AdjustmentRecord
	for rows.Next() {
		var rec AdjustmentRecord
		var createdStr string
		err := rows.Scan(&rec.SessionID, &rec.OldFloor, &rec.NewFloor, &rec.Phase,
			&rec.Risk, &rec.Action, &rec.Significance, &createdStr)
		if err != nil {
			return nil, fmt.Errorf("scan adjustment: %w", err)
		}
		rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// #endregion adjustments

// #region summary

// Summary aggregates a session's decision log.
func (s *Store) Summary(sessionID string) (SessionSummary, error) {
	sum := SessionSummary{SessionID: sessionID}
	var terminated int
	err := s.db.QueryRow(
		`SELECT COUNT(*),
		        COALESCE(SUM(action = 'warn'), 0),
		        COALESCE(SUM(action = 'backtrack'), 0),
		        COALESCE(SUM(action = 'terminate'), 0)
		 FROM decisions WHERE session_id = ?`, sessionID,
	).Scan(&sum.Decisions, &sum.Warnings, &sum.Backtracks, &terminated)
	if err != nil {
		return SessionSummary{}, fmt.Errorf("summary: %w", err)
	}
	sum.Terminated = terminated > 0
	return sum, nil
}

// #endregion summary

// #region helpers

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
