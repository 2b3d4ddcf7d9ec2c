package coach

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/comercialtoddy/cs2-coach-ai/internal/capability"
	"github.com/comercialtoddy/cs2-coach-ai/internal/engine"
	"github.com/comercialtoddy/cs2-coach-ai/internal/events"
	"github.com/comercialtoddy/cs2-coach-ai/internal/history"
	"github.com/comercialtoddy/cs2-coach-ai/internal/outcome"
	"github.com/comercialtoddy/cs2-coach-ai/internal/pattern"
	"github.com/comercialtoddy/cs2-coach-ai/internal/plan"
	"github.com/comercialtoddy/cs2-coach-ai/internal/snapshot"
	"github.com/comercialtoddy/cs2-coach-ai/internal/store"
)

// #region config

// Config aggregates the per-component configuration. All values are plain;
// loading them is the caller's concern.
type Config struct {
	History  history.Config
	Detector pattern.DetectorConfig
	Engine   engine.Config
	Executor plan.Config
	Monitor  outcome.Config
}

// DefaultConfig returns defaults for every component.
func DefaultConfig() Config {
	return Config{
		History:  history.DefaultConfig(),
		Detector: pattern.DefaultDetectorConfig(),
		Engine:   engine.DefaultConfig(),
		Executor: plan.DefaultConfig(),
		Monitor:  outcome.DefaultConfig(),
	}
}

// #endregion config

// #region session

// Session wires one closed sense→decide→act→observe→learn loop. One
// instance per match session; there are no process-wide singletons.
type Session struct {
	ID string

	bus      *events.Bus
	hist     *history.Store
	engine   *engine.Engine
	executor *plan.Executor
	monitor  *outcome.Monitor

	wg sync.WaitGroup // in-flight plan executions
}

// NewSession builds a fully wired session. db may be nil for an in-memory
// session (tests, replay).
func NewSession(config Config, registry capability.Registry, db *store.Store, rules []*engine.Rule) (*Session, error) {
	bus := events.NewBus()

	var persister history.Persister
	var ruleMem *engine.RuleMemory
	var outLog *outcome.OutcomeLog
	if db != nil {
		persister = db
		var err error
		if ruleMem, err = engine.NewRuleMemory(db.DB()); err != nil {
			return nil, fmt.Errorf("rule memory: %w", err)
		}
		if outLog, err = outcome.NewOutcomeLog(db.DB()); err != nil {
			return nil, fmt.Errorf("outcome log: %w", err)
		}
	}

	eng := engine.NewEngine(config.Engine, rules, ruleMem, bus)
	s := &Session{
		ID:       uuid.New().String(),
		bus:      bus,
		hist:     history.NewStore(config.History, pattern.NewDetector(config.Detector), persister, bus),
		engine:   eng,
		executor: plan.NewExecutor(registry, config.Executor),
		monitor:  outcome.NewMonitor(config.Monitor, eng, outLog, bus),
	}
	return s, nil
}

// Events returns the outbound event bus.
func (s *Session) Events() *events.Bus {
	return s.bus
}

// Rules exposes the engine's adaptive rule state.
func (s *Session) Rules() []engine.RuleView {
	return s.engine.Rules()
}

// History exposes the last n snapshots.
func (s *Session) History(n int) []snapshot.Snapshot {
	return s.hist.History(n)
}

// Start launches the background persistence/cleanup timers and the outcome
// deadline sweep.
func (s *Session) Start(ctx context.Context) {
	s.hist.Start(ctx)
	s.monitor.Start(ctx)
}

// Drain blocks until all in-flight plan executions finish.
func (s *Session) Drain() {
	s.wg.Wait()
}

// Close drains in-flight work and closes the event bus.
func (s *Session) Close() {
	s.Drain()
	s.bus.Close()
}

// #endregion session

// #region on-snapshot

// OnSnapshot runs one full cycle: history append, outcome observation,
// pattern detection, rule analysis, and plan submission. Decisions from
// this snapshot are submitted for execution before OnSnapshot returns, so
// a later snapshot can never overtake an earlier one's submissions.
func (s *Session) OnSnapshot(ctx context.Context, snap snapshot.Snapshot) error {
	change, err := s.hist.Update(snap)
	if err != nil {
		var verr *snapshot.ValidationError
		if errors.As(err, &verr) {
			log.Printf("[SESSION] dropped snapshot seq=%d: %v", snap.SeqID, verr)
		}
		return err
	}

	s.monitor.Observe(snap)

	patterns := s.hist.DetectPatterns()
	analysis := engine.BuildAnalysis(snap, change, patterns)
	decisions, err := s.engine.Analyze(analysis)
	if err != nil {
		return err
	}

	for _, d := range decisions {
		d := d
		s.wg.Add(1)
		go s.runPlan(ctx, d, snap)
	}
	return nil
}

// runPlan executes one decision's plan and hands the delivered output to
// the outcome monitor. A resource-limit rejection is terminal for the
// decision: it is reported as an error event and never tracked.
func (s *Session) runPlan(ctx context.Context, d engine.Decision, snap snapshot.Snapshot) {
	defer s.wg.Done()

	res, err := s.executor.Execute(ctx, d.ID, d.Steps)
	if err != nil {
		var rerr *plan.ResourceLimitError
		if errors.As(err, &rerr) {
			log.Printf("[SESSION] decision %s rejected: %v", d.ID, rerr)
		} else {
			log.Printf("[SESSION] decision %s failed to execute: %v", d.ID, err)
		}
		s.bus.Publish(events.ErrorEvent, err)
		return
	}

	s.bus.Publish(events.ExecutionCompleted, res)

	if _, err := s.monitor.Track(d, res.Output, snap); err != nil {
		log.Printf("[SESSION] could not track decision %s: %v", d.ID, err)
	}
}

// #endregion on-snapshot
