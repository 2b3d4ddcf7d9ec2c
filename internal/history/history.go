package history

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/comercialtoddy/cs2-coach-ai/internal/events"
	"github.com/comercialtoddy/cs2-coach-ai/internal/pattern"
	"github.com/comercialtoddy/cs2-coach-ai/internal/snapshot"
)

// #region config

// Config holds history sizing and background cadence.
type Config struct {
	Capacity          int           // max full snapshots held in memory
	MinPatternHistory int           // snapshots required before mining runs
	PatternWindow     int           // snapshots fed to the detectors
	PersistInterval   time.Duration // background persistence cadence
	CleanupInterval   time.Duration // background cleanup cadence
	MaxAge            time.Duration // changes/patterns older than this are purged
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Capacity:          1000,
		MinPatternHistory: 10,
		PatternWindow:     50,
		PersistInterval:   30 * time.Second,
		CleanupInterval:   5 * time.Minute,
		MaxAge:            time.Hour,
	}
}

// #endregion config

// #region persister

// Persister is the durable-store surface the history uses. All calls are
// best-effort: failures are logged and emitted, never surfaced to Update.
type Persister interface {
	SaveArchive([]snapshot.Archived) error
	LoadArchive(limit int) ([]snapshot.Archived, error)
	LogPatterns([]pattern.Pattern) error
}

// #endregion persister

// #region store-struct

// Store holds the bounded, time-ordered snapshot history, the state-change
// ring, and the current pattern set. It is the only writer of all three.
type Store struct {
	config    Config
	detector  *pattern.Detector
	persister Persister   // nil = in-memory only
	bus       *events.Bus // nil = no outbound events
	now       func() time.Time

	mu       sync.Mutex
	snaps    []snapshot.Snapshot
	archive  []snapshot.Archived
	changes  []snapshot.StateChange
	patterns []pattern.Pattern
	dirty    bool // snapshots arrived since the last mining pass
}

// NewStore creates a history store. persister and bus may be nil.
func NewStore(config Config, detector *pattern.Detector, persister Persister, bus *events.Bus) *Store {
	return &Store{
		config:    config,
		detector:  detector,
		persister: persister,
		bus:       bus,
		now:       time.Now,
	}
}

// #endregion store-struct

// #region update

// Update validates the snapshot, classifies the transition against the
// previous one, and appends to history, evicting the oldest entries into
// the compressed archive when over capacity.
func (s *Store) Update(snap snapshot.Snapshot) (snapshot.StateChange, error) {
	if err := snapshot.Validate(snap); err != nil {
		if s.bus != nil {
			s.bus.Publish(events.ErrorEvent, err)
		}
		return snapshot.StateChange{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var prev *snapshot.Snapshot
	if len(s.snaps) > 0 {
		prev = &s.snaps[len(s.snaps)-1]
	}
	change := snapshot.Classify(prev, snap, s.now())

	s.snaps = append(s.snaps, snap)
	if excess := len(s.snaps) - s.config.Capacity; excess > 0 {
		for _, old := range s.snaps[:excess] {
			s.archive = append(s.archive, snapshot.Compress(old))
		}
		s.snaps = append(s.snaps[:0:0], s.snaps[excess:]...)
	}
	s.changes = append(s.changes, change)
	s.dirty = true

	if s.bus != nil {
		s.bus.Publish(events.StateUpdated, change)
	}
	return change, nil
}

// #endregion update

// #region accessors

// History returns the last n snapshots in arrival order. Never more than
// min(n, capacity) entries.
func (s *Store) History(n int) []snapshot.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n > len(s.snaps) {
		n = len(s.snaps)
	}
	out := make([]snapshot.Snapshot, n)
	copy(out, s.snaps[len(s.snaps)-n:])
	return out
}

// Current returns the most recent snapshot.
func (s *Store) Current() (snapshot.Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.snaps) == 0 {
		return snapshot.Snapshot{}, false
	}
	return s.snaps[len(s.snaps)-1], true
}

// Changes returns the last n state changes in arrival order.
func (s *Store) Changes(n int) []snapshot.StateChange {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n > len(s.changes) {
		n = len(s.changes)
	}
	out := make([]snapshot.StateChange, n)
	copy(out, s.changes[len(s.changes)-n:])
	return out
}

// Archived returns the compressed evicted entries, oldest first.
func (s *Store) Archived() []snapshot.Archived {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]snapshot.Archived, len(s.archive))
	copy(out, s.archive)
	return out
}

// #endregion accessors

// #region patterns

// DetectPatterns returns the current pattern set, mining only when new
// snapshots arrived since the last pass. Calling it twice without an
// intervening Update yields the same set.
func (s *Store) DetectPatterns() []pattern.Pattern {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dirty && len(s.snaps) >= s.config.MinPatternHistory {
		window := s.snaps
		if len(window) > s.config.PatternWindow {
			window = window[len(window)-s.config.PatternWindow:]
		}
		mined := s.detector.Detect(window, s.now())
		s.supersede(mined)
		s.dirty = false

		if len(mined) > 0 {
			if s.bus != nil {
				s.bus.Publish(events.PatternsDetected, mined)
			}
			if s.persister != nil {
				if err := s.persister.LogPatterns(mined); err != nil {
					log.Printf("[HISTORY] pattern log failed: %v", err)
				}
			}
		}
	}

	out := make([]pattern.Pattern, len(s.patterns))
	copy(out, s.patterns)
	return out
}

// supersede replaces patterns whose category was re-detected; categories
// not re-detected keep their previous pattern until age-based cleanup.
func (s *Store) supersede(mined []pattern.Pattern) {
	redetected := make(map[pattern.Category]bool, len(mined))
	for _, p := range mined {
		redetected[p.Category] = true
	}
	kept := s.patterns[:0]
	for _, p := range s.patterns {
		if !redetected[p.Category] {
			kept = append(kept, p)
		}
	}
	s.patterns = append(kept, mined...)
}

// #endregion patterns

// #region persistence

// Persist writes the archive and a compressed view of the live window to
// the durable store. Best-effort: the error is returned for logging only.
func (s *Store) Persist() error {
	if s.persister == nil {
		return nil
	}
	s.mu.Lock()
	rows := make([]snapshot.Archived, 0, len(s.archive)+len(s.snaps))
	rows = append(rows, s.archive...)
	for _, snap := range s.snaps {
		rows = append(rows, snapshot.Compress(snap))
	}
	s.mu.Unlock()

	if len(rows) == 0 {
		return nil
	}
	return s.persister.SaveArchive(rows)
}

// Load restores the compressed archive from the durable store.
func (s *Store) Load() error {
	if s.persister == nil {
		return nil
	}
	rows, err := s.persister.LoadArchive(s.config.Capacity)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	// LoadArchive returns newest first; keep the archive oldest first.
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	s.archive = rows
	return nil
}

// #endregion persistence

// #region cleanup

// Cleanup purges state changes and patterns older than MaxAge. The live
// snapshot window is never touched here.
func (s *Store) Cleanup() {
	cutoff := s.now().Add(-s.config.MaxAge)

	s.mu.Lock()
	defer s.mu.Unlock()

	changes := s.changes[:0]
	for _, c := range s.changes {
		if c.CreatedAt.After(cutoff) {
			changes = append(changes, c)
		}
	}
	s.changes = changes

	patterns := s.patterns[:0]
	for _, p := range s.patterns {
		if p.DetectedAt.After(cutoff) {
			patterns = append(patterns, p)
		}
	}
	s.patterns = patterns
}

// #endregion cleanup

// #region background

// Start runs the persistence and cleanup timers until ctx is canceled.
// Failures are logged and emitted, never propagated into the update path.
func (s *Store) Start(ctx context.Context) {
	go s.loop(ctx, s.config.PersistInterval, func() {
		if err := s.Persist(); err != nil {
			log.Printf("[HISTORY] persist failed: %v", err)
			if s.bus != nil {
				s.bus.Publish(events.ErrorEvent, err)
			}
		}
	})
	go s.loop(ctx, s.config.CleanupInterval, s.Cleanup)
}

func (s *Store) loop(ctx context.Context, interval time.Duration, fn func()) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			fn()
		}
	}
}

// #endregion background
