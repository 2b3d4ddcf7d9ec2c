package replay

import (
	"context"
	"time"

	"github.com/comercialtoddy/cs2-coach-ai/internal/capability"
	"github.com/comercialtoddy/cs2-coach-ai/internal/coach"
	"github.com/comercialtoddy/cs2-coach-ai/internal/engine"
	"github.com/comercialtoddy/cs2-coach-ai/internal/history"
	"github.com/comercialtoddy/cs2-coach-ai/internal/outcome"
	"github.com/comercialtoddy/cs2-coach-ai/internal/pattern"
	"github.com/comercialtoddy/cs2-coach-ai/internal/plan"
	"github.com/comercialtoddy/cs2-coach-ai/internal/snapshot"
)

// #region types

// TurnResult captures everything one replayed snapshot produced.
type TurnResult struct {
	SeqID      uint64
	Rejected   bool // snapshot failed validation
	Change     snapshot.StateChange
	Patterns   []pattern.Pattern
	Decisions  []engine.Decision
	Executions []plan.Result
}

// Summary aggregates a replay run.
type Summary struct {
	Turns         int
	Rejected      int
	Decisions     int
	Executions    int
	FailedPlans   int
	PatternsMined int
	Rules         []engine.RuleView
}

// #endregion types

// #region harness

// Replay runs the fixture's snapshots through the full decision pipeline
// synchronously and in-memory: plans execute inline between snapshots, so
// a run is deterministic apart from wall-clock cooldowns and windows.
func Replay(ctx context.Context, f *Fixture, config coach.Config, rules []*engine.Rule) ([]TurnResult, Summary, error) {
	registry := buildRegistry(f.Capabilities)

	eng := engine.NewEngine(config.Engine, rules, nil, nil)
	hist := history.NewStore(config.History, pattern.NewDetector(config.Detector), nil, nil)
	executor := plan.NewExecutor(registry, config.Executor)
	monitor := outcome.NewMonitor(config.Monitor, eng, nil, nil)

	start := time.Now()
	results := make([]TurnResult, 0, len(f.Snapshots))

	for i := range f.Snapshots {
		snap := f.Snapshots[i].ToSnapshot(start)
		tr := TurnResult{SeqID: snap.SeqID}

		change, err := hist.Update(snap)
		if err != nil {
			tr.Rejected = true
			results = append(results, tr)
			continue
		}
		tr.Change = change

		monitor.Observe(snap)
		tr.Patterns = hist.DetectPatterns()

		analysis := engine.BuildAnalysis(snap, change, tr.Patterns)
		decisions, err := eng.Analyze(analysis)
		if err != nil {
			return results, summarize(results, eng), err
		}
		tr.Decisions = decisions

		for _, d := range decisions {
			res, err := executor.Execute(ctx, d.ID, d.Steps)
			if err != nil {
				continue
			}
			tr.Executions = append(tr.Executions, res)
			monitor.Track(d, res.Output, snap)
		}
		results = append(results, tr)
	}

	return results, summarize(results, eng), nil
}

// buildRegistry turns scripted capability responses into a FuncRegistry.
func buildRegistry(caps []FixtureCapability) *capability.FuncRegistry {
	r := capability.NewFuncRegistry()
	for _, c := range caps {
		c := c
		r.Register(capability.Descriptor{
			Name:           c.Name,
			DefaultTimeout: time.Duration(c.TimeoutMs) * time.Millisecond,
			Fallback:       c.Fallback,
		}, func(ctx context.Context, input map[string]any) (capability.Result, error) {
			return capability.Result{Success: c.Succeed, Data: c.Data, Err: c.Error}, nil
		})
	}
	return r
}

// summarize computes aggregate stats from replay results.
func summarize(results []TurnResult, eng *engine.Engine) Summary {
	s := Summary{Turns: len(results), Rules: eng.Rules()}
	seen := make(map[string]bool)
	for _, r := range results {
		if r.Rejected {
			s.Rejected++
		}
		s.Decisions += len(r.Decisions)
		for _, ex := range r.Executions {
			s.Executions++
			if ex.Output.Errored {
				s.FailedPlans++
			}
		}
		for _, p := range r.Patterns {
			key := string(p.Category) + "|" + p.Description
			if !seen[key] {
				seen[key] = true
				s.PatternsMined++
			}
		}
	}
	return s
}

// #endregion harness
