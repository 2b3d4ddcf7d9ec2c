package outcome

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/comercialtoddy/cs2-coach-ai/internal/engine"
	"github.com/comercialtoddy/cs2-coach-ai/internal/events"
	"github.com/comercialtoddy/cs2-coach-ai/internal/plan"
	"github.com/comercialtoddy/cs2-coach-ai/internal/snapshot"
)

// #region sink

// FeedbackSink receives the learning signal for each concluded tracker.
type FeedbackSink interface {
	ApplyFeedback(engine.Feedback)
}

// #endregion sink

// #region tracker

type tracker struct {
	decision    engine.Decision
	actionItems []string
	baseline    Baseline
	deadline    time.Time
	status      Status
	checkpoints []Checkpoint

	// latest observed player view
	lastAlive  bool
	lastKills  int
	lastScore  int
	errorSeen  bool // a baseline error tag reappeared
	scoreMoved bool

	concludedAt time.Time // set when the tracker reaches a terminal state
}

// #endregion tracker

// #region monitor

// Monitor watches snapshots after each delivered decision and infers
// whether the advice was followed and whether it helped. Trackers are
// independent per decision id; overlap between concurrently tracked
// decisions is deliberately ignored.
type Monitor struct {
	config Config
	sink   FeedbackSink
	outLog *OutcomeLog // nil = no durable logging
	bus    *events.Bus // nil = no outbound events
	now    func() time.Time

	mu       sync.Mutex
	trackers map[string]*tracker
}

// NewMonitor creates a monitor. outLog and bus may be nil.
func NewMonitor(config Config, sink FeedbackSink, outLog *OutcomeLog, bus *events.Bus) *Monitor {
	return &Monitor{
		config:   config,
		sink:     sink,
		outLog:   outLog,
		bus:      bus,
		now:      time.Now,
		trackers: make(map[string]*tracker),
	}
}

// #endregion monitor

// #region track

// Track captures a baseline from the snapshot the decision was delivered
// against and starts the monitoring window.
func (m *Monitor) Track(d engine.Decision, output plan.Output, snap snapshot.Snapshot) (string, error) {
	p := snap.Processed.Player
	if p == nil {
		return "", fmt.Errorf("track %s: snapshot has no player state", d.ID)
	}

	base := Baseline{
		SeqID:    snap.SeqID,
		At:       snap.Timestamp,
		Health:   p.Health,
		Money:    p.Money,
		Kills:    p.Kills,
		Alive:    p.Alive,
		Position: p.Position,
		Weapons:  append([]string(nil), p.Weapons...),
	}
	if t := snap.Processed.Team; t != nil {
		base.Score = t.Score
	}
	for _, f := range snap.Processed.Factors {
		if f.Severity.Rank() >= snapshot.SeverityHigh.Rank() {
			base.ErrorTags = append(base.ErrorTags, f.Tag)
		}
	}

	now := m.now()
	id := uuid.New().String()
	deadline := now.Add(m.config.window(d.Category))

	m.mu.Lock()
	m.trackers[id] = &tracker{
		decision:    d,
		actionItems: append([]string(nil), output.ActionItems...),
		baseline:    base,
		deadline:    deadline,
		status:      StatusMonitoring,
		lastAlive:   p.Alive,
		lastKills:   p.Kills,
		lastScore:   base.Score,
	}
	m.mu.Unlock()

	log.Printf("[MONITOR] tracking %s (decision %s, category %s) until %s",
		id, d.ID, d.Category, deadline.Format(time.RFC3339))
	return id, nil
}

// Status reports the state of a tracked decision.
func (m *Monitor) Status(trackingID string) (Status, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.trackers[trackingID]
	if !ok {
		return "", false
	}
	return t.status, true
}

// #endregion track

// #region observe

// Observe feeds one subsequent snapshot to every active tracker, appending
// checkpoints and concluding trackers whose deadline passed or whose
// category-specific conclusive condition fired early.
func (m *Monitor) Observe(snap snapshot.Snapshot) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	for id, t := range m.trackers {
		if t.status != StatusMonitoring {
			continue
		}
		m.checkpoint(t, snap)

		if now.After(t.deadline) {
			m.conclude(id, t, now, true)
			continue
		}
		if m.conclusiveEarly(t) {
			m.conclude(id, t, now, false)
		}
	}
	m.pruneLocked(now)
}

// Sweep concludes trackers whose deadline passed even when no further
// snapshot arrives, so feedback is never stranded between rounds or at the
// end of a stream. Safe to call from a background timer.
func (m *Monitor) Sweep() {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	for id, t := range m.trackers {
		if t.status == StatusMonitoring && now.After(t.deadline) {
			m.conclude(id, t, now, true)
		}
	}
	m.pruneLocked(now)
}

// Start runs the deadline sweep until ctx is canceled.
func (m *Monitor) Start(ctx context.Context) {
	if m.config.SweepInterval <= 0 {
		return
	}
	go func() {
		t := time.NewTicker(m.config.SweepInterval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				m.Sweep()
			}
		}
	}()
}

// pruneLocked drops terminal trackers past the retention window so the map
// stays bounded over a long session. Called with the monitor lock held.
func (m *Monitor) pruneLocked(now time.Time) {
	if m.config.Retention <= 0 {
		return
	}
	for id, t := range m.trackers {
		if t.status != StatusMonitoring && now.Sub(t.concludedAt) > m.config.Retention {
			delete(m.trackers, id)
		}
	}
}

// checkpoint compares the snapshot against the tracker's baseline across
// the fixed dimensions and records anything over threshold.
func (m *Monitor) checkpoint(t *tracker, snap snapshot.Snapshot) {
	p := snap.Processed.Player
	if p == nil {
		return
	}
	base := t.baseline
	at := snap.Timestamp

	if d := p.Health - base.Health; absInt(d) > m.config.HealthThreshold {
		t.addCheckpoint(Checkpoint{
			At: at, Dimension: "health",
			Description:  fmt.Sprintf("health %+d since advice", d),
			Significance: clamp(float32(absInt(d)) / 50),
		})
	}
	if dist := p.Position.DistanceTo(base.Position); dist > m.config.DistanceThreshold {
		t.addCheckpoint(Checkpoint{
			At: at, Dimension: "position",
			Description:  fmt.Sprintf("moved %.0f units, position rotate", dist),
			Significance: clamp(dist / 1000),
		})
	}
	if diff := weaponDiff(base.Weapons, p.Weapons); diff != "" {
		t.addCheckpoint(Checkpoint{
			At: at, Dimension: "weapons",
			Description:  "loadout changed, " + diff,
			Significance: 0.6,
		})
	}
	if d := p.Money - base.Money; absInt(d) > m.config.MoneyThreshold {
		t.addCheckpoint(Checkpoint{
			At: at, Dimension: "money",
			Description:  fmt.Sprintf("money %+d, buy power shifted", d),
			Significance: clamp(float32(absInt(d)) / 5000),
		})
	}
	if team := snap.Processed.Team; team != nil && team.Score != base.Score {
		t.addCheckpoint(Checkpoint{
			At: at, Dimension: "score",
			Description:  fmt.Sprintf("score moved to %d", team.Score),
			Significance: 0.8,
		})
		t.scoreMoved = true
		t.lastScore = team.Score
	}

	t.lastAlive = p.Alive
	t.lastKills = p.Kills
	for _, f := range snap.Processed.Factors {
		for _, tag := range base.ErrorTags {
			if f.Tag == tag {
				t.errorSeen = true
			}
		}
	}
}

// addCheckpoint appends at most one checkpoint per dimension per observe
// call; duplicates of the same description are skipped.
func (t *tracker) addCheckpoint(c Checkpoint) {
	for _, have := range t.checkpoints {
		if have.Dimension == c.Dimension && have.Description == c.Description {
			return
		}
	}
	t.checkpoints = append(t.checkpoints, c)
}

// conclusiveEarly reports whether the tracker's category-specific early
// signal has fired.
func (m *Monitor) conclusiveEarly(t *tracker) bool {
	switch t.decision.Category {
	case "strategic", "economic":
		return t.scoreMoved
	case "tactical":
		return !t.lastAlive || t.lastKills > t.baseline.Kills
	case "error_correction":
		return t.errorSeen
	default:
		return false
	}
}

// #endregion observe

// #region conclude

// conclude computes the Outcome, reports feedback exactly once, and leaves
// the tracker in its terminal state. Called with the monitor lock held.
func (m *Monitor) conclude(id string, t *tracker, now time.Time, deadlinePassed bool) {
	expired := deadlinePassed && len(t.checkpoints) == 0
	out := inferOutcome(id, t, now, expired, m.config.HighSignificance)

	if expired {
		t.status = StatusExpired
	} else {
		t.status = StatusConcluded
	}
	t.concludedAt = now

	if m.sink != nil {
		m.sink.ApplyFeedback(engine.Feedback{
			DecisionID: out.DecisionID,
			RuleID:     out.RuleID,
			Followed:   out.Followed,
			Success:    out.Success,
			Impact:     out.Impact,
			Response:   responseFor(out),
		})
	}
	if m.outLog != nil {
		if err := m.outLog.RecordOutcome(out); err != nil {
			log.Printf("[MONITOR] outcome log failed: %v", err)
		}
	}
	if m.bus != nil {
		m.bus.Publish(events.OutcomeInferred, out)
	}
	log.Printf("[MONITOR] %s %s: followed=%v success=%v impact=%.2f",
		id, t.status, out.Followed, out.Success, out.Impact)
}

// responseFor maps an outcome to the player-response classification used
// by the learning update.
func responseFor(o Outcome) engine.Response {
	switch {
	case o.Followed && o.Success:
		return engine.ResponsePositive
	case o.Followed && !o.Success:
		return engine.ResponseNegative
	default:
		return engine.ResponseNeutral
	}
}

// #endregion conclude

// #region helpers

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func clamp(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// weaponDiff describes the symmetric difference between two weapon sets.
func weaponDiff(before, after []string) string {
	b := make(map[string]bool, len(before))
	for _, w := range before {
		b[w] = true
	}
	a := make(map[string]bool, len(after))
	for _, w := range after {
		a[w] = true
	}

	var gained, lost []string
	for w := range a {
		if !b[w] {
			gained = append(gained, w)
		}
	}
	for w := range b {
		if !a[w] {
			lost = append(lost, w)
		}
	}
	if len(gained) == 0 && len(lost) == 0 {
		return ""
	}
	sort.Strings(gained)
	sort.Strings(lost)

	var parts []string
	if len(gained) > 0 {
		parts = append(parts, "picked up "+strings.Join(gained, " "))
	}
	if len(lost) > 0 {
		parts = append(parts, "dropped "+strings.Join(lost, " "))
	}
	return strings.Join(parts, "; ")
}

// #endregion helpers
