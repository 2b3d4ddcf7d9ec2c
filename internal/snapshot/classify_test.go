package snapshot

import (
	"testing"
	"time"
)

func testSnapshot(seq uint64, mod func(*Snapshot)) Snapshot {
	s := Snapshot{
		SeqID:     seq,
		Timestamp: time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC).Add(time.Duration(seq) * time.Second),
		Processed: Processed{
			Context: ContextMidRound,
			Phase:   PhaseLive,
			Player: &PlayerState{
				Name:     "player",
				Health:   100,
				Money:    4000,
				Position: Position{X: 100, Y: 100},
				Area:     "mid",
				Weapons:  []string{"ak47"},
				Alive:    true,
				Rating:   1.0,
			},
			Team: &TeamState{Side: "T", Score: 5, PlayersAlive: 5, OpponentsAlive: 5},
			Map:  &MapState{Name: "de_mirage", Round: 11},
		},
	}
	if mod != nil {
		mod(&s)
	}
	return s
}

func TestValidate_MissingSubStates(t *testing.T) {
	s := testSnapshot(1, func(s *Snapshot) { s.Processed.Player = nil })
	err := Validate(s)
	if err == nil {
		t.Fatal("expected error for missing player")
	}
	verr, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if verr.Field != "player" {
		t.Errorf("field = %q, want player", verr.Field)
	}
}

func TestValidate_HealthRange(t *testing.T) {
	s := testSnapshot(1, func(s *Snapshot) { s.Processed.Player.Health = 140 })
	if Validate(s) == nil {
		t.Error("expected error for health 140")
	}
	s = testSnapshot(1, func(s *Snapshot) { s.Processed.Player.Health = -5 })
	if Validate(s) == nil {
		t.Error("expected error for health -5")
	}
}

func TestValidate_ZeroTimestamp(t *testing.T) {
	s := testSnapshot(1, func(s *Snapshot) { s.Timestamp = time.Time{} })
	if Validate(s) == nil {
		t.Error("expected error for zero timestamp")
	}
}

func TestValidate_OK(t *testing.T) {
	if err := Validate(testSnapshot(1, nil)); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestClassify_FirstObservation(t *testing.T) {
	change := Classify(nil, testSnapshot(1, nil), time.Now())
	if change.Type != ChangeRoundStart {
		t.Errorf("type = %s, want %s", change.Type, ChangeRoundStart)
	}
	if change.Significance != SeverityMedium {
		t.Errorf("significance = %s, want %s", change.Significance, SeverityMedium)
	}
}

func TestClassify_PhaseTransitions(t *testing.T) {
	cases := []struct {
		from, to Phase
		want     ChangeType
	}{
		{PhaseOver, PhaseFreezetime, ChangeRoundStart},
		{PhaseLive, PhaseOver, ChangeRoundEnd},
		{PhaseFreezetime, PhaseLive, ChangePhaseChange},
	}
	for _, c := range cases {
		prev := testSnapshot(1, func(s *Snapshot) { s.Processed.Phase = c.from })
		curr := testSnapshot(2, func(s *Snapshot) { s.Processed.Phase = c.to })
		change := Classify(&prev, curr, time.Now())
		if change.Type != c.want {
			t.Errorf("%s→%s: type = %s, want %s", c.from, c.to, change.Type, c.want)
		}
	}
}

func TestClassify_DeathIsCritical(t *testing.T) {
	prev := testSnapshot(1, nil)
	curr := testSnapshot(2, func(s *Snapshot) {
		s.Processed.Player.Alive = false
		s.Processed.Player.Health = 0
	})
	change := Classify(&prev, curr, time.Now())
	if change.Type != ChangeCriticalEvent {
		t.Errorf("type = %s, want %s", change.Type, ChangeCriticalEvent)
	}
	if change.Significance != SeverityCritical {
		t.Errorf("significance = %s, want %s", change.Significance, SeverityCritical)
	}
}

func TestClassify_BombPlantIsCritical(t *testing.T) {
	prev := testSnapshot(1, nil)
	curr := testSnapshot(2, func(s *Snapshot) { s.Processed.Map.BombPlanted = true })
	change := Classify(&prev, curr, time.Now())
	if change.Type != ChangeCriticalEvent {
		t.Errorf("type = %s, want %s", change.Type, ChangeCriticalEvent)
	}
}

func TestClassify_NormalUpdateDeltas(t *testing.T) {
	prev := testSnapshot(1, nil)
	curr := testSnapshot(2, func(s *Snapshot) {
		s.Processed.Player.Health = 60
		s.Processed.Player.Money = 1500
	})
	change := Classify(&prev, curr, time.Now())
	if change.Type != ChangeNormalUpdate {
		t.Fatalf("type = %s, want %s", change.Type, ChangeNormalUpdate)
	}
	if change.Deltas.Health != -40 {
		t.Errorf("health delta = %d, want -40", change.Deltas.Health)
	}
	if change.Deltas.Money != -2500 {
		t.Errorf("money delta = %d, want -2500", change.Deltas.Money)
	}
	// -40 health (2) plus -2500 money (1) scores high.
	if change.Significance != SeverityHigh {
		t.Errorf("significance = %s, want %s", change.Significance, SeverityHigh)
	}
}

func TestCompress_KeepsEssentials(t *testing.T) {
	s := testSnapshot(7, func(s *Snapshot) {
		s.Processed.Player.Kills = 12
		s.Processed.Player.Deaths = 9
	})
	a := Compress(s)
	if a.SeqID != 7 || a.Health != 100 || a.Money != 4000 || a.Kills != 12 || a.Deaths != 9 {
		t.Errorf("unexpected archived fields: %+v", a)
	}
	if a.Context != ContextMidRound || a.Phase != PhaseLive {
		t.Errorf("context/phase not carried: %+v", a)
	}
}
