package engine

import (
	"database/sql"
	"time"
)

// #region schema

const ruleAdaptationsSchema = `
CREATE TABLE IF NOT EXISTS rule_adaptations (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    rule_id      TEXT NOT NULL,
    success_rate REAL NOT NULL,
    confidence   REAL NOT NULL,
    cooldown_ms  INTEGER NOT NULL,
    reason       TEXT,
    created_at   TEXT NOT NULL
);
`

const ruleAdaptationsIndex = `
CREATE INDEX IF NOT EXISTS idx_rule_adaptations_rule
ON rule_adaptations(rule_id, created_at);
`

// #endregion schema

// #region memory-struct

// RuleMemory persists the rule-adaptation history in SQLite. Writes are
// best-effort from the engine's perspective.
type RuleMemory struct {
	db *sql.DB
}

// NewRuleMemory initializes the rule_adaptations table.
func NewRuleMemory(db *sql.DB) (*RuleMemory, error) {
	if _, err := db.Exec(ruleAdaptationsSchema); err != nil {
		return nil, err
	}
	if _, err := db.Exec(ruleAdaptationsIndex); err != nil {
		return nil, err
	}
	return &RuleMemory{db: db}, nil
}

// #endregion memory-struct

// #region records

// AdaptationRecord is a single row of adaptation history.
type AdaptationRecord struct {
	RuleID      string
	SuccessRate float32
	Confidence  float32
	Cooldown    time.Duration
	Reason      string
	CreatedAt   time.Time
}

// RecordAdaptation persists one adaptation row.
func (m *RuleMemory) RecordAdaptation(rec AdaptationRecord) error {
	_, err := m.db.Exec(`
		INSERT INTO rule_adaptations (rule_id, success_rate, confidence, cooldown_ms, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.RuleID,
		rec.SuccessRate,
		rec.Confidence,
		rec.Cooldown.Milliseconds(),
		rec.Reason,
		rec.CreatedAt.Format(time.RFC3339Nano),
	)
	return err
}

// History returns the most recent adaptations for a rule, newest first.
func (m *RuleMemory) History(ruleID string, limit int) ([]AdaptationRecord, error) {
	rows, err := m.db.Query(`
		SELECT rule_id, success_rate, confidence, cooldown_ms, reason, created_at
		FROM rule_adaptations WHERE rule_id = ?
		ORDER BY id DESC LIMIT ?`,
		ruleID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AdaptationRecord
	for rows.Next() {
		var rec AdaptationRecord
		var cooldownMS int64
		var createdStr string
		if err := rows.Scan(&rec.RuleID, &rec.SuccessRate, &rec.Confidence, &cooldownMS, &rec.Reason, &createdStr); err != nil {
			return nil, err
		}
		rec.Cooldown = time.Duration(cooldownMS) * time.Millisecond
		rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// #endregion records
