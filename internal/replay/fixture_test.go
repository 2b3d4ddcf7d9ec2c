package replay

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const fixtureJSON = `{
  "description": "pistol round opener",
  "capabilities": [
    {"name": "llm.generate", "succeed": true, "data": {"message": "stack together"}, "timeout_ms": 5000, "fallback": "llm.generate-lite"}
  ],
  "snapshots": [
    {
      "seq_id": 1,
      "offset_ms": 0,
      "context": "pistol_round",
      "phase": "freezetime",
      "player": {"name": "p1", "health": 100, "money": 800, "position": [10, 20, 0], "area": "spawn", "weapons": ["glock"], "alive": true},
      "team": {"side": "T", "score": 0, "players_alive": 5, "opponents_alive": 5},
      "map": {"name": "de_anubis", "round": 1}
    }
  ],
  "expected": [{"seq_id": 1, "rules": ["pistol_round_setup"]}]
}`

func TestLoadFixture(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixture.json")
	if err := os.WriteFile(path, []byte(fixtureJSON), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	f, err := LoadFixture(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if f.Description != "pistol round opener" {
		t.Errorf("description = %q", f.Description)
	}
	if len(f.Capabilities) != 1 || f.Capabilities[0].Fallback != "llm.generate-lite" {
		t.Errorf("capabilities = %+v", f.Capabilities)
	}
	if len(f.Snapshots) != 1 || len(f.Expected) != 1 {
		t.Fatalf("snapshots=%d expected=%d", len(f.Snapshots), len(f.Expected))
	}
}

func TestLoadFixture_MissingFile(t *testing.T) {
	if _, err := LoadFixture(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestFixtureSnapshot_ToSnapshot(t *testing.T) {
	fs := FixtureSnapshot{
		SeqID:    3,
		OffsetMs: 1500,
		Context:  "clutch",
		Phase:    "live",
		Player:   &FixturePlayer{Health: 35, Money: 1900, Position: [3]float32{1, 2, 3}, Alive: true},
		Team:     &FixtureTeam{PlayersAlive: 1, OpponentsAlive: 2},
		Factors:  []FixtureFactor{{Tag: "numbers_down", Severity: "high"}},
	}

	start := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	snap := fs.ToSnapshot(start)

	if snap.SeqID != 3 {
		t.Errorf("seq = %d", snap.SeqID)
	}
	if want := start.Add(1500 * time.Millisecond); !snap.Timestamp.Equal(want) {
		t.Errorf("timestamp = %s, want %s", snap.Timestamp, want)
	}
	if string(snap.Processed.Context) != "clutch" {
		t.Errorf("context = %s", snap.Processed.Context)
	}
	p := snap.Processed.Player
	if p == nil || p.Health != 35 || p.Position.Z != 3 {
		t.Errorf("player = %+v", p)
	}
	if snap.Processed.Map != nil {
		t.Error("absent map sub-state should stay nil")
	}
	if len(snap.Processed.Factors) != 1 || snap.Processed.Factors[0].Tag != "numbers_down" {
		t.Errorf("factors = %+v", snap.Processed.Factors)
	}
}
