package pattern

import (
	"testing"
	"time"

	"github.com/comercialtoddy/cs2-coach-ai/internal/snapshot"
)

func windowSnapshot(seq uint64, mod func(*snapshot.Snapshot)) snapshot.Snapshot {
	s := snapshot.Snapshot{
		SeqID:     seq,
		Timestamp: time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC).Add(time.Duration(seq) * 2 * time.Second),
		Processed: snapshot.Processed{
			Context: snapshot.ContextMidRound,
			Phase:   snapshot.PhaseLive,
			Player: &snapshot.PlayerState{
				Health:   100,
				Money:    4500,
				Position: snapshot.Position{X: float32(seq) * 400, Y: float32(seq) * 400},
				Area:     []string{"mid", "connector", "jungle", "ramp"}[seq%4],
				Alive:    true,
			},
		},
	}
	if mod != nil {
		mod(&s)
	}
	return s
}

func TestDetect_RisingAggression(t *testing.T) {
	d := NewDetector(DefaultDetectorConfig())

	// Kills climb monotonically across 12 updates.
	window := make([]snapshot.Snapshot, 12)
	for i := range window {
		i := i
		window[i] = windowSnapshot(uint64(i), func(s *snapshot.Snapshot) {
			s.Processed.Player.Kills = i
			if i > 6 {
				s.Processed.Factors = []snapshot.Factor{
					{Tag: "aggressive_push", Severity: snapshot.SeverityMedium},
				}
			}
		})
	}

	patterns := d.Detect(window, time.Now())
	var found *Pattern
	for i := range patterns {
		if patterns[i].Category == CategoryBehavioral {
			found = &patterns[i]
			break
		}
	}
	if found == nil {
		t.Fatal("expected a behavioral pattern from a rising aggression trend")
	}
	if found.Confidence < 0.6 {
		t.Errorf("confidence = %.2f, want >= 0.6", found.Confidence)
	}
}

func TestDetect_NoTrendNoBehavioralPattern(t *testing.T) {
	d := NewDetector(DefaultDetectorConfig())

	// Flat aggression: no factor changes, constant kills.
	window := make([]snapshot.Snapshot, 10)
	for i := range window {
		window[i] = windowSnapshot(uint64(i), func(s *snapshot.Snapshot) {
			s.Processed.Player.Kills = 3
		})
	}

	for _, p := range d.Detect(window, time.Now()) {
		if p.Category == CategoryBehavioral {
			t.Errorf("unexpected behavioral pattern: %s", p.Description)
		}
	}
}

func TestDetect_StaticPositioning(t *testing.T) {
	d := NewDetector(DefaultDetectorConfig())

	window := make([]snapshot.Snapshot, 8)
	for i := range window {
		window[i] = windowSnapshot(uint64(i), func(s *snapshot.Snapshot) {
			s.Processed.Player.Position = snapshot.Position{X: 500, Y: 510}
			s.Processed.Player.Area = "site_a"
		})
	}

	patterns := d.Detect(window, time.Now())
	hasTactical := false
	for _, p := range patterns {
		if p.Category == CategoryTactical {
			hasTactical = true
			if p.Confidence <= 0 {
				t.Errorf("tactical confidence = %.2f, want > 0", p.Confidence)
			}
		}
	}
	if !hasTactical {
		t.Error("expected a tactical pattern for static positioning")
	}
}

func TestDetect_SustainedLowEconomy(t *testing.T) {
	d := NewDetector(DefaultDetectorConfig())

	window := make([]snapshot.Snapshot, 10)
	for i := range window {
		window[i] = windowSnapshot(uint64(i), func(s *snapshot.Snapshot) {
			s.Processed.Player.Money = 1200
		})
	}

	patterns := d.Detect(window, time.Now())
	found := false
	for _, p := range patterns {
		if p.Category == CategoryEconomic {
			found = true
			if p.Frequency != 10 {
				t.Errorf("frequency = %d, want 10", p.Frequency)
			}
		}
	}
	if !found {
		t.Error("expected an economic pattern under sustained low money")
	}
}

func TestDetect_NarrowMapCoverage(t *testing.T) {
	d := NewDetector(DefaultDetectorConfig())

	window := make([]snapshot.Snapshot, 8)
	for i := range window {
		window[i] = windowSnapshot(uint64(i), func(s *snapshot.Snapshot) {
			s.Processed.Player.Area = "ramp"
		})
	}

	found := false
	for _, p := range d.Detect(window, time.Now()) {
		if p.Category == CategoryPositional {
			found = true
		}
	}
	if !found {
		t.Error("expected a positional pattern for single-area coverage")
	}
}

func TestDetect_NilPlayerDoesNotPanic(t *testing.T) {
	d := NewDetector(DefaultDetectorConfig())

	window := make([]snapshot.Snapshot, 6)
	for i := range window {
		window[i] = windowSnapshot(uint64(i), func(s *snapshot.Snapshot) {
			s.Processed.Player = nil
		})
	}

	// Must not panic; an empty result is fine.
	d.Detect(window, time.Now())
}
