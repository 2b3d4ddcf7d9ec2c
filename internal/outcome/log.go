package outcome

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// #region schema

const outcomeLogSchema = `
CREATE TABLE IF NOT EXISTS outcome_log (
    tracking_id  TEXT PRIMARY KEY,
    decision_id  TEXT NOT NULL,
    rule_id      TEXT NOT NULL,
    category     TEXT NOT NULL,
    status       TEXT NOT NULL,
    followed     INTEGER NOT NULL,
    success      INTEGER NOT NULL,
    impact       REAL NOT NULL,
    confidence   REAL NOT NULL,
    checkpoints  INTEGER NOT NULL,
    learnings    TEXT,
    concluded_at TEXT NOT NULL
);
`

// #endregion schema

// #region outcome-log

// OutcomeLog persists concluded outcomes in SQLite. Writes are best-effort
// from the monitor's perspective.
type OutcomeLog struct {
	db *sql.DB
}

// NewOutcomeLog initializes the outcome_log table.
func NewOutcomeLog(db *sql.DB) (*OutcomeLog, error) {
	if _, err := db.Exec(outcomeLogSchema); err != nil {
		return nil, err
	}
	return &OutcomeLog{db: db}, nil
}

// RecordOutcome persists one outcome row.
func (l *OutcomeLog) RecordOutcome(o Outcome) error {
	learnings, err := json.Marshal(o.Learnings)
	if err != nil {
		return fmt.Errorf("marshal learnings: %w", err)
	}
	_, err = l.db.Exec(`
		INSERT OR REPLACE INTO outcome_log
		(tracking_id, decision_id, rule_id, category, status, followed, success,
		 impact, confidence, checkpoints, learnings, concluded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.TrackingID, o.DecisionID, o.RuleID, o.Category, string(o.Status),
		boolInt(o.Followed), boolInt(o.Success),
		o.Impact, o.Confidence, o.Checkpoints, string(learnings),
		o.ConcludedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert outcome: %w", err)
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// #endregion outcome-log
