package engine

import (
	"time"

	"github.com/comercialtoddy/cs2-coach-ai/internal/pattern"
	"github.com/comercialtoddy/cs2-coach-ai/internal/plan"
	"github.com/comercialtoddy/cs2-coach-ai/internal/snapshot"
)

// #region priority

// Priority tiers order competing decisions. Immediate outranks everything.
type Priority string

const (
	PriorityImmediate Priority = "immediate"
	PriorityHigh      Priority = "high"
	PriorityMedium    Priority = "medium"
	PriorityLow       Priority = "low"
	PriorityDeferred  Priority = "deferred"
)

// Rank orders priorities; lower is more urgent.
func (p Priority) Rank() int {
	switch p {
	case PriorityImmediate:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 3
	default:
		return 4
	}
}

// #endregion priority

// #region urgency

// Urgency is derived from the severity mix of a snapshot's factors.
type Urgency string

const (
	UrgencyLow      Urgency = "low"
	UrgencyMedium   Urgency = "medium"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

// #endregion urgency

// #region risk

// Risk estimates how badly an intervention can backfire.
type Risk string

const (
	RiskLow    Risk = "low"
	RiskMedium Risk = "medium"
	RiskHigh   Risk = "high"
)

// #endregion risk

// #region needs

// Need is a coaching-need category inferred from simple thresholds.
type Need string

const (
	NeedPerformance Need = "performance_improvement"
	NeedEconomy     Need = "economy_management"
	NeedPositioning Need = "positioning"
	NeedDiscipline  Need = "discipline"
)

// #endregion needs

// #region context-analysis

// ContextAnalysis is the per-cycle view the rules evaluate against.
type ContextAnalysis struct {
	Snapshot snapshot.Snapshot
	Change   snapshot.StateChange
	Patterns []pattern.Pattern
	Context  snapshot.ContextTag
	Urgency  Urgency
	Needs    []Need
}

// HasNeed reports whether the analysis carries the given coaching need.
func (a ContextAnalysis) HasNeed(n Need) bool {
	for _, have := range a.Needs {
		if have == n {
			return true
		}
	}
	return false
}

// PatternWith returns the strongest pattern of the given category.
func (a ContextAnalysis) PatternWith(c pattern.Category) (pattern.Pattern, bool) {
	var best pattern.Pattern
	found := false
	for _, p := range a.Patterns {
		if p.Category == c && (!found || p.Confidence > best.Confidence) {
			best = p
			found = true
		}
	}
	return best, found
}

// HasFactor reports whether a factor with the given tag is present.
func (a ContextAnalysis) HasFactor(tag string) bool {
	for _, f := range a.Snapshot.Processed.Factors {
		if f.Tag == tag {
			return true
		}
	}
	return false
}

// #endregion context-analysis

// #region rule

// Condition is a rule's boolean predicate over the current analysis. A
// panicking condition counts as "rule does not match".
type Condition func(ContextAnalysis) bool

// StepTemplate is the declarative form of one plan step inside a rule.
type StepTemplate struct {
	ID         string
	Capability string
	Input      map[string]any
	DependsOn  []string
	Timeout    time.Duration
	Retry      plan.RetryPolicy
	Fallback   string
}

// Rule is a declarative condition→plan mapping with adaptive confidence and
// cooldown. Rules are seeded at startup and mutated only by the engine's
// feedback path.
type Rule struct {
	ID         string
	Contexts   []snapshot.ContextTag
	Condition  Condition
	Priority   Priority
	Confidence float32
	Cooldown   time.Duration
	Risk       Risk
	Category   string // monitoring category: tactical|strategic|economic|error_correction
	Plan       []StepTemplate

	baseline    float32
	successRate float32
	samples     int
	lastFired   map[snapshot.ContextTag]time.Time
	adaptations int
	adaptSince  time.Time
}

// effectiveRate returns the historical success rate, defaulting to the
// seeded baseline until enough samples exist.
func (r *Rule) effectiveRate(minSamples int) float32 {
	if r.samples < minSamples {
		return r.baseline
	}
	return r.successRate
}

// RuleView is a read-only snapshot of a rule's adaptive state.
type RuleView struct {
	ID          string
	Priority    Priority
	Confidence  float32
	SuccessRate float32
	Samples     int
	Cooldown    time.Duration
	Category    string
}

// #endregion rule

// #region decision

// Decision is one candidate intervention instantiated from a rule match.
// Immutable once created.
type Decision struct {
	ID                string
	RuleID            string
	Category          string
	Priority          Priority
	Confidence        float32
	Risk              Risk
	Rationale         string
	Steps             []plan.Step
	Complexity        int
	EstimatedDuration time.Duration
	CreatedAt         time.Time
}

// #endregion decision

// #region feedback

// Response classifies how the player reacted to delivered advice.
type Response string

const (
	ResponsePositive Response = "positive"
	ResponseNeutral  Response = "neutral"
	ResponseNegative Response = "negative"
)

// Feedback is the learning signal handed back per executed decision.
type Feedback struct {
	DecisionID string
	RuleID     string
	Followed   bool
	Success    bool
	Impact     float32 // signed, roughly [-1, 1]
	Response   Response
}

// #endregion feedback

// #region config

// Config holds the engine's thresholds and learning knobs.
type Config struct {
	ConfidenceFloor           float32
	HighRiskFloor             float32
	MaxDecisions              int
	MaxPlanDuration           time.Duration
	ConfidenceEpsilon         float32
	Alpha                     float32 // EMA rate for success-rate updates
	MinSamples                int
	MaxAdaptationsPerCooldown int
	MinCooldown               time.Duration
	MaxCooldown               time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ConfidenceFloor:           0.5,
		HighRiskFloor:             0.75,
		MaxDecisions:              3,
		MaxPlanDuration:           60 * time.Second,
		ConfidenceEpsilon:         0.05,
		Alpha:                     0.1,
		MinSamples:                3,
		MaxAdaptationsPerCooldown: 1,
		MinCooldown:               5 * time.Second,
		MaxCooldown:               5 * time.Minute,
	}
}

// #endregion config
