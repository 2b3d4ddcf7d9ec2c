package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/comercialtoddy/cs2-coach-ai/internal/pattern"
	"github.com/comercialtoddy/cs2-coach-ai/internal/snapshot"
	_ "modernc.org/sqlite"
)

// #region schema

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id  TEXT PRIMARY KEY,
	started_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS snapshot_archive (
	session_id  TEXT NOT NULL,
	seq_id      INTEGER NOT NULL,
	captured_at TEXT NOT NULL,
	context     TEXT,
	phase       TEXT,
	health      INTEGER,
	money       INTEGER,
	kills       INTEGER,
	deaths      INTEGER,
	rating      REAL,
	PRIMARY KEY (session_id, seq_id)
);

CREATE TABLE IF NOT EXISTS pattern_log (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id   TEXT NOT NULL,
	category     TEXT NOT NULL,
	description  TEXT NOT NULL,
	frequency    INTEGER NOT NULL,
	confidence   REAL NOT NULL,
	implications TEXT,
	detected_at  TEXT NOT NULL
);
`

// #endregion schema

// #region store-struct

// Store opens the shared SQLite database and owns the session-scoped
// archive and pattern tables. Other components create their own tables on
// the same connection via DB().
type Store struct {
	db        *sql.DB
	sessionID string
}

// #endregion store-struct

// #region constructor

// Open opens the database, applies pragmas, runs migrations, and registers
// the session.
func Open(dbPath, sessionID string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if _, err := db.Exec(
		`INSERT OR IGNORE INTO sessions (session_id, started_at) VALUES (?, ?)`,
		sessionID, time.Now().UTC().Format(time.RFC3339Nano),
	); err != nil {
		return nil, fmt.Errorf("register session: %w", err)
	}
	return &Store{db: db, sessionID: sessionID}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for components that own their own
// tables (rule memory, outcome log).
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion constructor

// #region archive

// SaveArchive writes compressed snapshots. Existing rows are replaced so
// repeated persistence passes stay idempotent.
func (s *Store) SaveArchive(rows []snapshot.Archived) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, r := range rows {
		_, err := tx.Exec(
			`INSERT OR REPLACE INTO snapshot_archive
			 (session_id, seq_id, captured_at, context, phase, health, money, kills, deaths, rating)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			s.sessionID, r.SeqID, r.Timestamp.Format(time.RFC3339Nano),
			string(r.Context), string(r.Phase), r.Health, r.Money, r.Kills, r.Deaths, r.Rating,
		)
		if err != nil {
			return fmt.Errorf("insert archive %d: %w", r.SeqID, err)
		}
	}
	return tx.Commit()
}

// LoadArchive reads back the most recent archived snapshots for this session.
func (s *Store) LoadArchive(limit int) ([]snapshot.Archived, error) {
	rows, err := s.db.Query(
		`SELECT seq_id, captured_at, context, phase, health, money, kills, deaths, rating
		 FROM snapshot_archive WHERE session_id = ? ORDER BY seq_id DESC LIMIT ?`,
		s.sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("load archive: %w", err)
	}
	defer rows.Close()

	var out []snapshot.Archived
	for rows.Next() {
		var a snapshot.Archived
		var capturedAt, ctx, phase string
		if err := rows.Scan(&a.SeqID, &capturedAt, &ctx, &phase, &a.Health, &a.Money, &a.Kills, &a.Deaths, &a.Rating); err != nil {
			return nil, fmt.Errorf("scan archive row: %w", err)
		}
		a.Timestamp, _ = time.Parse(time.RFC3339Nano, capturedAt)
		a.Context = snapshot.ContextTag(ctx)
		a.Phase = snapshot.Phase(phase)
		out = append(out, a)
	}
	return out, rows.Err()
}

// #endregion archive

// #region patterns

// LogPatterns appends detected patterns to the pattern log.
func (s *Store) LogPatterns(ps []pattern.Pattern) error {
	for _, p := range ps {
		impl, err := json.Marshal(p.Implications)
		if err != nil {
			return fmt.Errorf("marshal implications: %w", err)
		}
		_, err = s.db.Exec(
			`INSERT INTO pattern_log (session_id, category, description, frequency, confidence, implications, detected_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			s.sessionID, string(p.Category), p.Description, p.Frequency, p.Confidence,
			string(impl), p.DetectedAt.Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("insert pattern: %w", err)
		}
	}
	return nil
}

// #endregion patterns
