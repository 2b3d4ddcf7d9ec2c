package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/comercialtoddy/cs2-coach-ai/internal/coach"
	"github.com/comercialtoddy/cs2-coach-ai/internal/engine"
	"github.com/comercialtoddy/cs2-coach-ai/internal/replay"
	"github.com/comercialtoddy/cs2-coach-ai/internal/store"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to coach_session.db (DB mode)")
	sessionID := flag.String("session", "", "session id to replay (DB mode, default latest)")
	fixturePath := flag.String("fixture", "", "path to fixture JSON (fixture mode)")
	flag.Parse()

	if (*dbPath == "" && *fixturePath == "") || (*dbPath != "" && *fixturePath != "") {
		fmt.Fprintln(os.Stderr, "usage: replay --fixture path/to/fixture.json")
		fmt.Fprintln(os.Stderr, "       replay --db path/to/coach_session.db [--session id]")
		os.Exit(2)
	}

	var exitCode int
	if *fixturePath != "" {
		exitCode = runFixtureMode(*fixturePath)
	} else {
		exitCode = runDBMode(*dbPath, *sessionID)
	}
	os.Exit(exitCode)
}

// #endregion main

// #region fixture-mode

func runFixtureMode(path string) int {
	f, err := replay.LoadFixture(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load fixture: %v\n", err)
		return 2
	}
	return run(f)
}

// #endregion fixture-mode

// #region db-mode

// runDBMode rebuilds a snapshot sequence from the compressed archive and
// replays it with scripted always-succeed capabilities. The archive is
// lossy, so position and weapon dimensions stay empty.
func runDBMode(dbPath, sessionID string) int {
	if sessionID == "" {
		var err error
		sessionID, err = latestSession(dbPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "find session: %v\n", err)
			return 2
		}
	}

	db, err := store.Open(dbPath, sessionID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		return 2
	}
	defer db.Close()

	rows, err := db.LoadArchive(10000)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load archive: %v\n", err)
		return 2
	}
	if len(rows) == 0 {
		fmt.Fprintf(os.Stderr, "no archived snapshots for session %s\n", sessionID)
		return 2
	}
	// LoadArchive returns newest first.
	sort.Slice(rows, func(i, j int) bool { return rows[i].SeqID < rows[j].SeqID })

	f := &replay.Fixture{
		Description:  fmt.Sprintf("archive replay of session %s", sessionID),
		Capabilities: scriptedCapabilities(),
	}
	base := rows[0].Timestamp
	for _, a := range rows {
		f.Snapshots = append(f.Snapshots, replay.FixtureSnapshot{
			SeqID:    a.SeqID,
			OffsetMs: a.Timestamp.Sub(base).Milliseconds(),
			Context:  string(a.Context),
			Phase:    string(a.Phase),
			Player: &replay.FixturePlayer{
				Health: a.Health,
				Money:  a.Money,
				Kills:  a.Kills,
				Deaths: a.Deaths,
				Rating: a.Rating,
				Alive:  a.Health > 0,
			},
		})
	}
	return run(f)
}

// latestSession finds the most recently started session in the database.
func latestSession(dbPath string) (string, error) {
	probe, err := store.Open(dbPath, "replay-probe")
	if err != nil {
		return "", err
	}
	defer probe.Close()

	var id string
	err = probe.DB().QueryRow(
		`SELECT session_id FROM sessions WHERE session_id != 'replay-probe'
		 ORDER BY started_at DESC LIMIT 1`,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("query sessions: %w", err)
	}
	return id, nil
}

// scriptedCapabilities returns an always-succeed capability set covering
// every capability the default rule table references.
func scriptedCapabilities() []replay.FixtureCapability {
	names := []string{
		engine.CapStatsFetch, engine.CapLLMGenerate, engine.CapLLMGenerateLT,
		engine.CapTTSSpeak, engine.CapOverlayText, engine.CapScreenshot,
	}
	caps := make([]replay.FixtureCapability, len(names))
	for i, n := range names {
		caps[i] = replay.FixtureCapability{
			Name:    n,
			Succeed: true,
			Data:    map[string]any{"message": "replayed " + n},
		}
	}
	return caps
}

// #endregion db-mode

// #region run

func run(f *replay.Fixture) int {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	results, summary, err := replay.Replay(ctx, f, coach.DefaultConfig(), engine.DefaultRules())
	if err != nil {
		fmt.Fprintf(os.Stderr, "replay: %v\n", err)
		return 2
	}

	expected := make(map[uint64][]string, len(f.Expected))
	for _, e := range f.Expected {
		expected[e.SeqID] = e.Rules
	}

	fmt.Printf("%-8s| %-10s| %-30s| %s\n", "Seq", "Decisions", "Rules", "Match")
	diverge := 0
	for _, r := range results {
		rules := make([]string, len(r.Decisions))
		for i, d := range r.Decisions {
			rules[i] = d.RuleID
		}

		match := "-"
		if want, ok := expected[r.SeqID]; ok {
			if rulesMatch(want, rules) {
				match = "OK"
			} else {
				match = "DIFF"
				diverge++
			}
		}
		fmt.Printf("%-8d| %-10d| %-30s| %s\n", r.SeqID, len(r.Decisions), joinOrDash(rules), match)
	}

	fmt.Printf("\nSummary: %d turns, %d rejected, %d decisions, %d executions, %d failed plans, %d patterns\n",
		summary.Turns, summary.Rejected, summary.Decisions, summary.Executions,
		summary.FailedPlans, summary.PatternsMined)
	for _, rv := range summary.Rules {
		fmt.Printf("  rule %-24s conf=%.2f rate=%.2f samples=%d cooldown=%s\n",
			rv.ID, rv.Confidence, rv.SuccessRate, rv.Samples, rv.Cooldown)
	}

	if diverge > 0 {
		return 1
	}
	return 0
}

func rulesMatch(want, got []string) bool {
	if len(want) != len(got) {
		return false
	}
	w := append([]string(nil), want...)
	g := append([]string(nil), got...)
	sort.Strings(w)
	sort.Strings(g)
	for i := range w {
		if w[i] != g[i] {
			return false
		}
	}
	return true
}

func joinOrDash(rules []string) string {
	if len(rules) == 0 {
		return "-"
	}
	out := rules[0]
	for _, r := range rules[1:] {
		out += " " + r
	}
	return out
}

// #endregion run
