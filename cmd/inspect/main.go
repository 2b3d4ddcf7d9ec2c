package main

import (
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	_ "modernc.org/sqlite"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to coach_session.db")
	session := flag.String("session", "", "show one session's archive and outcomes")
	rule := flag.String("rule", "", "show a rule's adaptation history")
	last := flag.Int("last", 20, "max rows per listing")
	jsonOut := flag.Bool("json", false, "output as JSON instead of tables")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/coach_session.db [--session id] [--rule id] [--last N] [--json]")
		os.Exit(2)
	}

	db, err := sql.Open("sqlite", *dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	switch {
	case *rule != "":
		err = runRuleMode(db, *rule, *last, *jsonOut)
	case *session != "":
		err = runSessionMode(db, *session, *last, *jsonOut)
	default:
		err = runListMode(db, *last, *jsonOut)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region list-mode

type sessionRow struct {
	SessionID string `json:"session_id"`
	StartedAt string `json:"started_at"`
	Snapshots int    `json:"snapshots"`
	Patterns  int    `json:"patterns"`
}

func runListMode(db *sql.DB, last int, jsonOut bool) error {
	rows, err := db.Query(`
		SELECT s.session_id, s.started_at,
		       (SELECT COUNT(*) FROM snapshot_archive a WHERE a.session_id = s.session_id),
		       (SELECT COUNT(*) FROM pattern_log p WHERE p.session_id = s.session_id)
		FROM sessions s ORDER BY s.started_at DESC LIMIT ?`, last)
	if err != nil {
		return err
	}
	defer rows.Close()

	var out []sessionRow
	for rows.Next() {
		var r sessionRow
		if err := rows.Scan(&r.SessionID, &r.StartedAt, &r.Snapshots, &r.Patterns); err != nil {
			return err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if len(out) == 0 {
		fmt.Fprintln(os.Stderr, "no sessions found")
		return nil
	}

	if jsonOut {
		return printJSON(out)
	}
	fmt.Printf("%-36s  %-24s  %9s  %8s\n", "Session", "Started", "Snapshots", "Patterns")
	for _, r := range out {
		fmt.Printf("%-36s  %-24s  %9d  %8d\n", r.SessionID, r.StartedAt, r.Snapshots, r.Patterns)
	}
	return nil
}

// #endregion list-mode

// #region session-mode

type outcomeRow struct {
	TrackingID  string  `json:"tracking_id"`
	RuleID      string  `json:"rule_id"`
	Category    string  `json:"category"`
	Status      string  `json:"status"`
	Followed    bool    `json:"followed"`
	Success     bool    `json:"success"`
	Impact      float64 `json:"impact"`
	Confidence  float64 `json:"confidence"`
	ConcludedAt string  `json:"concluded_at"`
}

type sessionDetail struct {
	SessionID string       `json:"session_id"`
	Archive   []archiveRow `json:"archive"`
	Outcomes  []outcomeRow `json:"outcomes"`
}

type archiveRow struct {
	SeqID      int64   `json:"seq_id"`
	CapturedAt string  `json:"captured_at"`
	Context    string  `json:"context"`
	Health     int     `json:"health"`
	Money      int     `json:"money"`
	Kills      int     `json:"kills"`
	Deaths     int     `json:"deaths"`
	Rating     float64 `json:"rating"`
}

func runSessionMode(db *sql.DB, sessionID string, last int, jsonOut bool) error {
	detail := sessionDetail{SessionID: sessionID}

	rows, err := db.Query(`
		SELECT seq_id, captured_at, context, health, money, kills, deaths, rating
		FROM snapshot_archive WHERE session_id = ? ORDER BY seq_id DESC LIMIT ?`,
		sessionID, last)
	if err != nil {
		return err
	}
	for rows.Next() {
		var a archiveRow
		if err := rows.Scan(&a.SeqID, &a.CapturedAt, &a.Context, &a.Health, &a.Money, &a.Kills, &a.Deaths, &a.Rating); err != nil {
			rows.Close()
			return err
		}
		detail.Archive = append(detail.Archive, a)
	}
	rows.Close()

	// outcome_log is global; show the most recent rows regardless of session.
	orows, err := db.Query(`
		SELECT tracking_id, rule_id, category, status, followed, success, impact, confidence, concluded_at
		FROM outcome_log ORDER BY concluded_at DESC LIMIT ?`, last)
	if err == nil {
		for orows.Next() {
			var o outcomeRow
			var followed, success int
			if err := orows.Scan(&o.TrackingID, &o.RuleID, &o.Category, &o.Status, &followed, &success, &o.Impact, &o.Confidence, &o.ConcludedAt); err != nil {
				orows.Close()
				return err
			}
			o.Followed = followed == 1
			o.Success = success == 1
			detail.Outcomes = append(detail.Outcomes, o)
		}
		orows.Close()
	}

	if jsonOut {
		return printJSON(detail)
	}

	fmt.Printf("Session: %s\n\n", sessionID)
	fmt.Printf("%-6s  %-24s  %-14s  %6s  %6s  %3s/%-3s  %6s\n",
		"Seq", "Captured", "Context", "Health", "Money", "K", "D", "Rating")
	for _, a := range detail.Archive {
		fmt.Printf("%-6d  %-24s  %-14s  %6d  %6d  %3d/%-3d  %6.2f\n",
			a.SeqID, a.CapturedAt, a.Context, a.Health, a.Money, a.Kills, a.Deaths, a.Rating)
	}
	if len(detail.Outcomes) > 0 {
		fmt.Printf("\nRecent outcomes:\n")
		for _, o := range detail.Outcomes {
			fmt.Printf("  %-24s %-16s %-9s followed=%-5v success=%-5v impact=%+.2f\n",
				o.RuleID, o.Category, o.Status, o.Followed, o.Success, o.Impact)
		}
	}
	return nil
}

// #endregion session-mode

// #region rule-mode

type adaptationRow struct {
	SuccessRate float64 `json:"success_rate"`
	Confidence  float64 `json:"confidence"`
	CooldownMs  int64   `json:"cooldown_ms"`
	Reason      string  `json:"reason"`
	CreatedAt   string  `json:"created_at"`
}

func runRuleMode(db *sql.DB, ruleID string, last int, jsonOut bool) error {
	rows, err := db.Query(`
		SELECT success_rate, confidence, cooldown_ms, reason, created_at
		FROM rule_adaptations WHERE rule_id = ? ORDER BY id DESC LIMIT ?`,
		ruleID, last)
	if err != nil {
		return err
	}
	defer rows.Close()

	var out []adaptationRow
	for rows.Next() {
		var a adaptationRow
		if err := rows.Scan(&a.SuccessRate, &a.Confidence, &a.CooldownMs, &a.Reason, &a.CreatedAt); err != nil {
			return err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if len(out) == 0 {
		fmt.Fprintf(os.Stderr, "no adaptations recorded for rule %s\n", ruleID)
		return nil
	}

	if jsonOut {
		return printJSON(out)
	}
	fmt.Printf("Rule: %s\n\n", ruleID)
	fmt.Printf("%-24s  %6s  %6s  %10s  %s\n", "Time", "Rate", "Conf", "Cooldown", "Reason")
	for _, a := range out {
		fmt.Printf("%-24s  %6.3f  %6.3f  %8dms  %s\n",
			a.CreatedAt, a.SuccessRate, a.Confidence, a.CooldownMs, a.Reason)
	}
	return nil
}

// #endregion rule-mode

// #region output

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

// #endregion output
