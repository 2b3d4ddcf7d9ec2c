package engine

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/comercialtoddy/cs2-coach-ai/internal/events"
	"github.com/comercialtoddy/cs2-coach-ai/internal/plan"
	"github.com/comercialtoddy/cs2-coach-ai/internal/snapshot"
)

// ErrNoSnapshot is returned when Analyze is called before any snapshot
// exists.
var ErrNoSnapshot = errors.New("analyze called before first snapshot")

// #region engine-struct

// Engine evaluates the rule table against each analysis cycle and adapts
// rule behavior from outcome feedback. The rule table is mutated only here.
type Engine struct {
	mu     sync.Mutex
	config Config
	rules  []*Rule
	memory *RuleMemory // nil = no durable adaptation history
	bus    *events.Bus // nil = no outbound events
	now    func() time.Time
}

// NewEngine seeds the engine with its rule table. memory and bus may be nil.
func NewEngine(config Config, rules []*Rule, memory *RuleMemory, bus *events.Bus) *Engine {
	for _, r := range rules {
		r.baseline = r.Confidence
		r.successRate = r.Confidence
		r.lastFired = make(map[snapshot.ContextTag]time.Time)
	}
	return &Engine{
		config: config,
		rules:  rules,
		memory: memory,
		bus:    bus,
		now:    time.Now,
	}
}

// Rules returns a read-only view of the rule table's adaptive state.
func (e *Engine) Rules() []RuleView {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]RuleView, len(e.rules))
	for i, r := range e.rules {
		out[i] = RuleView{
			ID:          r.ID,
			Priority:    r.Priority,
			Confidence:  r.Confidence,
			SuccessRate: r.successRate,
			Samples:     r.samples,
			Cooldown:    r.Cooldown,
			Category:    r.Category,
		}
	}
	return out
}

// #endregion engine-struct

// #region analyze

// Analyze evaluates every rule against the analysis and returns the ranked,
// filtered decisions, bounded by MaxDecisions. A single misbehaving rule
// degrades the result to fewer decisions, never to an error.
func (e *Engine) Analyze(a ContextAnalysis) ([]Decision, error) {
	if a.Snapshot.Timestamp.IsZero() {
		return nil, ErrNoSnapshot
	}
	now := e.now()

	e.mu.Lock()
	defer e.mu.Unlock()

	var candidates []candidate
	for _, r := range e.rules {
		if !contextMatches(r, a.Context) {
			continue
		}
		if !safeEval(r, a) {
			continue
		}
		if last, ok := r.lastFired[a.Context]; ok && now.Sub(last) < r.Cooldown {
			continue
		}
		candidates = append(candidates, candidate{rule: r, decision: e.instantiate(r, a, now)})
	}

	kept := e.filter(candidates)
	rankDecisions(kept, e.config.ConfidenceEpsilon)
	if len(kept) > e.config.MaxDecisions {
		kept = kept[:e.config.MaxDecisions]
	}

	out := make([]Decision, len(kept))
	for i, c := range kept {
		c.rule.lastFired[a.Context] = now
		out[i] = c.decision
		if e.bus != nil {
			e.bus.Publish(events.DecisionMade, c.decision)
		}
	}
	if len(out) > 0 {
		log.Printf("[ENGINE] cycle seq=%d context=%s urgency=%s → %d decision(s)",
			a.Snapshot.SeqID, a.Context, a.Urgency, len(out))
	}
	return out, nil
}

type candidate struct {
	rule     *Rule
	decision Decision
}

func contextMatches(r *Rule, ctx snapshot.ContextTag) bool {
	for _, c := range r.Contexts {
		if c == ctx {
			return true
		}
	}
	return false
}

// safeEval treats a panicking condition as "rule does not match".
func safeEval(r *Rule, a ContextAnalysis) (matched bool) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("[ENGINE] rule %s condition panicked, skipping: %v", r.ID, rec)
			matched = false
		}
	}()
	if r.Condition == nil {
		return false
	}
	return r.Condition(a)
}

// #endregion analyze

// #region instantiate

// instantiate builds a concrete Decision from a matched rule. Confidence
// blends the rule's adaptive confidence with its historical success rate.
func (e *Engine) instantiate(r *Rule, a ContextAnalysis, now time.Time) Decision {
	conf := 0.7*r.Confidence + 0.3*r.effectiveRate(e.config.MinSamples)

	steps := make([]plan.Step, len(r.Plan))
	complexity := len(r.Plan)
	var estimated time.Duration
	for i, t := range r.Plan {
		input := make(map[string]any, len(t.Input)+2)
		for k, v := range t.Input {
			input[k] = v
		}
		input["context"] = string(a.Context)
		input["urgency"] = string(a.Urgency)

		timeout := t.Timeout
		if timeout == 0 {
			timeout = 10 * time.Second
		}
		estimated += timeout * time.Duration(t.Retry.MaxRetries+1)
		complexity += len(t.DependsOn)

		steps[i] = plan.Step{
			ID:         t.ID,
			Capability: t.Capability,
			Input:      input,
			DependsOn:  t.DependsOn,
			Timeout:    t.Timeout,
			Retry:      t.Retry,
			Fallback:   t.Fallback,
		}
	}

	return Decision{
		ID:                uuid.New().String(),
		RuleID:            r.ID,
		Category:          r.Category,
		Priority:          r.Priority,
		Confidence:        conf,
		Risk:              r.Risk,
		Rationale:         fmt.Sprintf("rule %s matched context %s (urgency %s)", r.ID, a.Context, a.Urgency),
		Steps:             steps,
		Complexity:        complexity,
		EstimatedDuration: estimated,
		CreatedAt:         now,
	}
}

// #endregion instantiate

// #region filter-rank

// filter drops candidates below the confidence floor, over the plan
// duration ceiling, or high-risk without the stricter confidence bar.
func (e *Engine) filter(candidates []candidate) []candidate {
	var kept []candidate
	for _, c := range candidates {
		d := c.decision
		switch {
		case d.Confidence < e.config.ConfidenceFloor:
		case d.EstimatedDuration > e.config.MaxPlanDuration:
		case d.Risk == RiskHigh && d.Confidence < e.config.HighRiskFloor:
		default:
			kept = append(kept, c)
			continue
		}
		log.Printf("[ENGINE] dropped %s (conf=%.2f risk=%s est=%s)",
			d.RuleID, d.Confidence, d.Risk, d.EstimatedDuration)
	}
	return kept
}

// rankDecisions orders by priority tier, then confidence; confidence ties
// within epsilon go to the simpler plan. The primary sort uses a strict
// comparator and the epsilon tie-break runs as a separate pass, so near-tie
// chains (a≈b, b≈c, |a−c|>ε) rank the same regardless of input order.
func rankDecisions(cs []candidate, epsilon float32) {
	sort.SliceStable(cs, func(i, j int) bool {
		di, dj := cs[i].decision, cs[j].decision
		if di.Priority.Rank() != dj.Priority.Rank() {
			return di.Priority.Rank() < dj.Priority.Rank()
		}
		return di.Confidence > dj.Confidence
	})

	for swapped := true; swapped; {
		swapped = false
		for i := 0; i+1 < len(cs); i++ {
			di, dj := cs[i].decision, cs[i+1].decision
			if di.Priority.Rank() != dj.Priority.Rank() {
				continue
			}
			diff := di.Confidence - dj.Confidence
			if diff < 0 {
				diff = -diff
			}
			if diff <= epsilon && dj.Complexity < di.Complexity {
				cs[i], cs[i+1] = cs[i+1], cs[i]
				swapped = true
			}
		}
	}
}

// #endregion filter-rank
