package store

import (
	"testing"
	"time"

	"github.com/comercialtoddy/cs2-coach-ai/internal/pattern"
	"github.com/comercialtoddy/cs2-coach-ai/internal/snapshot"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:", "test-session")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_ArchiveRoundTrip(t *testing.T) {
	s := openTestStore(t)

	base := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	rows := []snapshot.Archived{
		{SeqID: 1, Timestamp: base, Context: snapshot.ContextPistolRound, Phase: snapshot.PhaseLive, Health: 100, Money: 800},
		{SeqID: 2, Timestamp: base.Add(2 * time.Second), Context: snapshot.ContextMidRound, Phase: snapshot.PhaseLive, Health: 64, Money: 800, Kills: 1},
		{SeqID: 3, Timestamp: base.Add(4 * time.Second), Context: snapshot.ContextMidRound, Phase: snapshot.PhaseOver, Health: 64, Money: 2200, Kills: 2},
	}
	if err := s.SaveArchive(rows); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.LoadArchive(10)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	// Newest first.
	if got[0].SeqID != 3 || got[2].SeqID != 1 {
		t.Errorf("order wrong: %d..%d", got[0].SeqID, got[2].SeqID)
	}
	if got[0].Money != 2200 || got[0].Kills != 2 {
		t.Errorf("fields lost: %+v", got[0])
	}
	if got[2].Context != snapshot.ContextPistolRound {
		t.Errorf("context = %s", got[2].Context)
	}
}

func TestStore_SaveArchiveIdempotent(t *testing.T) {
	s := openTestStore(t)

	rows := []snapshot.Archived{{SeqID: 1, Timestamp: time.Now(), Health: 50}}
	if err := s.SaveArchive(rows); err != nil {
		t.Fatalf("first save: %v", err)
	}
	rows[0].Health = 70
	if err := s.SaveArchive(rows); err != nil {
		t.Fatalf("second save: %v", err)
	}

	got, err := s.LoadArchive(10)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1 (replace, not append)", len(got))
	}
	if got[0].Health != 70 {
		t.Errorf("health = %d, want 70", got[0].Health)
	}
}

func TestStore_LogPatterns(t *testing.T) {
	s := openTestStore(t)

	err := s.LogPatterns([]pattern.Pattern{{
		Category:     pattern.CategoryEconomic,
		Description:  "sustained low economy",
		Frequency:    6,
		Confidence:   0.8,
		Implications: []string{"coordinate saves"},
		DetectedAt:   time.Now(),
	}})
	if err != nil {
		t.Fatalf("log patterns: %v", err)
	}

	var count int
	if err := s.DB().QueryRow(`SELECT COUNT(*) FROM pattern_log`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}

func TestStore_SessionsIsolated(t *testing.T) {
	s, err := Open(":memory:", "session-a")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	if err := s.SaveArchive([]snapshot.Archived{{SeqID: 1, Timestamp: time.Now()}}); err != nil {
		t.Fatalf("save: %v", err)
	}

	other := &Store{db: s.db, sessionID: "session-b"}
	got, err := other.LoadArchive(10)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("session-b sees %d rows from session-a", len(got))
	}
}
