package replay

import (
	"context"
	"testing"

	"github.com/comercialtoddy/cs2-coach-ai/internal/coach"
	"github.com/comercialtoddy/cs2-coach-ai/internal/engine"
)

func testFixture() *Fixture {
	f := &Fixture{
		Description: "pistol setup",
		Capabilities: []FixtureCapability{
			{Name: engine.CapLLMGenerate, Succeed: true, Data: map[string]any{
				"message":      "Default half, save nades for the retake.",
				"action_items": []any{"stack together", "trade every duel"},
			}},
			{Name: engine.CapOverlayText, Succeed: true},
		},
	}
	f.Snapshots = append(f.Snapshots, FixtureSnapshot{
		SeqID:   1,
		Context: "pistol_round",
		Phase:   "freezetime",
		Player:  &FixturePlayer{Health: 100, Money: 800, Area: "spawn", Alive: true},
		Team:    &FixtureTeam{PlayersAlive: 5, OpponentsAlive: 5},
		Map:     &FixtureMap{Name: "de_anubis", Round: 1},
	})
	return f
}

func TestReplay_FiresAndExecutes(t *testing.T) {
	f := testFixture()

	results, summary, err := Replay(context.Background(), f, coach.DefaultConfig(), engine.DefaultRules())
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if summary.Turns != 1 || summary.Rejected != 0 {
		t.Fatalf("summary = %+v", summary)
	}
	if summary.Decisions != 1 {
		t.Fatalf("decisions = %d, want pistol_round_setup only", summary.Decisions)
	}
	if results[0].Decisions[0].RuleID != "pistol_round_setup" {
		t.Errorf("rule = %s", results[0].Decisions[0].RuleID)
	}
	if summary.Executions != 1 || summary.FailedPlans != 0 {
		t.Errorf("executions=%d failed=%d", summary.Executions, summary.FailedPlans)
	}
	if msg := results[0].Executions[0].Output.Message; msg == "" {
		t.Error("expected user-facing output from the executed plan")
	}
}

func TestReplay_RejectsInvalidSnapshot(t *testing.T) {
	f := testFixture()
	f.Snapshots = append(f.Snapshots, FixtureSnapshot{
		SeqID:   2,
		Context: "mid_round",
		Phase:   "live",
		// No player/team/map sub-states: fails validation.
	})

	results, summary, err := Replay(context.Background(), f, coach.DefaultConfig(), engine.DefaultRules())
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if summary.Rejected != 1 {
		t.Errorf("rejected = %d, want 1", summary.Rejected)
	}
	if !results[1].Rejected {
		t.Error("second turn should be marked rejected")
	}
}

func TestReplay_RuleStateCarriesAcrossTurns(t *testing.T) {
	f := testFixture()
	// Same context twice in quick succession: the cooldown suppresses the
	// second firing.
	f.Snapshots = append(f.Snapshots, FixtureSnapshot{
		SeqID:    2,
		OffsetMs: 2000,
		Context:  "pistol_round",
		Phase:    "freezetime",
		Player:   &FixturePlayer{Health: 100, Money: 800, Area: "spawn", Alive: true},
		Team:     &FixtureTeam{PlayersAlive: 5, OpponentsAlive: 5},
		Map:      &FixtureMap{Name: "de_anubis", Round: 1},
	})

	_, summary, err := Replay(context.Background(), f, coach.DefaultConfig(), engine.DefaultRules())
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if summary.Decisions != 1 {
		t.Errorf("decisions = %d, want 1 (cooldown holds within the run)", summary.Decisions)
	}
}
