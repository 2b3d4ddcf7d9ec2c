package engine

import (
	"time"

	"github.com/comercialtoddy/cs2-coach-ai/internal/pattern"
	"github.com/comercialtoddy/cs2-coach-ai/internal/plan"
	"github.com/comercialtoddy/cs2-coach-ai/internal/snapshot"
)

// Capability names the seeded plans invoke. The registry resolves defaults
// and fallbacks per name.
const (
	CapStatsFetch    = "stats.fetch"
	CapLLMGenerate   = "llm.generate"
	CapLLMGenerateLT = "llm.generate-lite"
	CapTTSSpeak      = "tts.speak"
	CapOverlayText   = "overlay.text"
	CapScreenshot    = "screenshot.capture"
)

// #region default-rules

// DefaultRules returns the seeded rule table.
func DefaultRules() []*Rule {
	return []*Rule{
		clutchComposure(),
		postPlantPositioning(),
		ecoDiscipline(),
		forceBuyCall(),
		pistolRoundSetup(),
		performanceSlump(),
		overAggressionCheck(),
		mapCoverageAdvice(),
	}
}

// #endregion default-rules

// #region tactical-rules

func clutchComposure() *Rule {
	return &Rule{
		ID:         "clutch_composure",
		Contexts:   []snapshot.ContextTag{snapshot.ContextClutch},
		Priority:   PriorityImmediate,
		Confidence: 0.85,
		Cooldown:   45 * time.Second,
		Risk:       RiskMedium,
		Category:   "tactical",
		Condition: func(a ContextAnalysis) bool {
			return a.Urgency == UrgencyHigh || a.Urgency == UrgencyCritical
		},
		Plan: []StepTemplate{
			{
				ID:         "clutch_advice",
				Capability: CapLLMGenerate,
				Input:      map[string]any{"prompt_kind": "clutch_composure"},
				Timeout:    6 * time.Second,
				Retry:      plan.RetryPolicy{MaxRetries: 1, Backoff: plan.BackoffLinear, Delay: 200 * time.Millisecond},
				Fallback:   CapLLMGenerateLT,
			},
			{
				ID:         "clutch_speak",
				Capability: CapTTSSpeak,
				Input:      map[string]any{"voice": "calm"},
				DependsOn:  []string{"clutch_advice"},
				Timeout:    4 * time.Second,
				Fallback:   CapOverlayText,
			},
		},
	}
}

func postPlantPositioning() *Rule {
	return &Rule{
		ID:         "post_plant_positioning",
		Contexts:   []snapshot.ContextTag{snapshot.ContextPostPlant},
		Priority:   PriorityHigh,
		Confidence: 0.75,
		Cooldown:   30 * time.Second,
		Risk:       RiskLow,
		Category:   "tactical",
		Condition: func(a ContextAnalysis) bool {
			p := a.Snapshot.Processed.Player
			return p != nil && p.Alive
		},
		Plan: []StepTemplate{
			{
				ID:         "plant_shot",
				Capability: CapScreenshot,
				Timeout:    3 * time.Second,
			},
			{
				ID:         "plant_advice",
				Capability: CapLLMGenerate,
				Input:      map[string]any{"prompt_kind": "post_plant_hold"},
				DependsOn:  []string{"plant_shot"},
				Timeout:    6 * time.Second,
				Retry:      plan.RetryPolicy{MaxRetries: 1, Backoff: plan.BackoffLinear, Delay: 200 * time.Millisecond},
				Fallback:   CapLLMGenerateLT,
			},
			{
				ID:         "plant_speak",
				Capability: CapTTSSpeak,
				DependsOn:  []string{"plant_advice"},
				Timeout:    4 * time.Second,
				Fallback:   CapOverlayText,
			},
		},
	}
}

// #endregion tactical-rules

// #region economic-rules

func ecoDiscipline() *Rule {
	return &Rule{
		ID:         "eco_discipline",
		Contexts:   []snapshot.ContextTag{snapshot.ContextEcoRound},
		Priority:   PriorityMedium,
		Confidence: 0.7,
		Cooldown:   60 * time.Second,
		Risk:       RiskLow,
		Category:   "economic",
		Condition: func(a ContextAnalysis) bool {
			return a.HasNeed(NeedEconomy)
		},
		Plan: []StepTemplate{
			{
				ID:         "eco_advice",
				Capability: CapLLMGenerate,
				Input:      map[string]any{"prompt_kind": "eco_discipline"},
				Timeout:    6 * time.Second,
				Fallback:   CapLLMGenerateLT,
			},
			{
				ID:         "eco_show",
				Capability: CapOverlayText,
				DependsOn:  []string{"eco_advice"},
				Timeout:    2 * time.Second,
			},
		},
	}
}

func forceBuyCall() *Rule {
	return &Rule{
		ID:         "force_buy_call",
		Contexts:   []snapshot.ContextTag{snapshot.ContextForceBuy},
		Priority:   PriorityHigh,
		Confidence: 0.65,
		Cooldown:   60 * time.Second,
		Risk:       RiskHigh, // a bad force call loses two rounds, not one
		Category:   "economic",
		Condition: func(a ContextAnalysis) bool {
			eco := a.Snapshot.Processed.Economy
			return eco != nil && !eco.CanFullBuy && eco.LossBonus >= 2
		},
		Plan: []StepTemplate{
			{
				ID:         "force_stats",
				Capability: CapStatsFetch,
				Input:      map[string]any{"scope": "economy"},
				Timeout:    5 * time.Second,
				Retry:      plan.RetryPolicy{MaxRetries: 2, Backoff: plan.BackoffExponential, Delay: 250 * time.Millisecond},
			},
			{
				ID:         "force_advice",
				Capability: CapLLMGenerate,
				Input:      map[string]any{"prompt_kind": "force_buy"},
				DependsOn:  []string{"force_stats"},
				Timeout:    6 * time.Second,
				Fallback:   CapLLMGenerateLT,
			},
			{
				ID:         "force_speak",
				Capability: CapTTSSpeak,
				DependsOn:  []string{"force_advice"},
				Timeout:    4 * time.Second,
				Fallback:   CapOverlayText,
			},
		},
	}
}

// #endregion economic-rules

// #region strategic-rules

func pistolRoundSetup() *Rule {
	return &Rule{
		ID:         "pistol_round_setup",
		Contexts:   []snapshot.ContextTag{snapshot.ContextPistolRound},
		Priority:   PriorityMedium,
		Confidence: 0.7,
		Cooldown:   90 * time.Second,
		Risk:       RiskLow,
		Category:   "strategic",
		Condition: func(a ContextAnalysis) bool {
			return a.Snapshot.Processed.Phase == snapshot.PhaseFreezetime
		},
		Plan: []StepTemplate{
			{
				ID:         "pistol_advice",
				Capability: CapLLMGenerate,
				Input:      map[string]any{"prompt_kind": "pistol_setup"},
				Timeout:    6 * time.Second,
				Fallback:   CapLLMGenerateLT,
			},
			{
				ID:         "pistol_show",
				Capability: CapOverlayText,
				DependsOn:  []string{"pistol_advice"},
				Timeout:    2 * time.Second,
			},
		},
	}
}

func performanceSlump() *Rule {
	return &Rule{
		ID:         "performance_slump",
		Contexts:   allContexts(),
		Priority:   PriorityLow,
		Confidence: 0.6,
		Cooldown:   2 * time.Minute,
		Risk:       RiskLow,
		Category:   "strategic",
		Condition: func(a ContextAnalysis) bool {
			return a.HasNeed(NeedPerformance) && a.Urgency != UrgencyCritical
		},
		Plan: []StepTemplate{
			{
				ID:         "slump_stats",
				Capability: CapStatsFetch,
				Input:      map[string]any{"scope": "player_form"},
				Timeout:    5 * time.Second,
				Retry:      plan.RetryPolicy{MaxRetries: 2, Backoff: plan.BackoffExponential, Delay: 250 * time.Millisecond},
			},
			{
				ID:         "slump_advice",
				Capability: CapLLMGenerate,
				Input:      map[string]any{"prompt_kind": "performance_reset"},
				DependsOn:  []string{"slump_stats"},
				Timeout:    8 * time.Second,
				Fallback:   CapLLMGenerateLT,
			},
			{
				ID:         "slump_show",
				Capability: CapOverlayText,
				DependsOn:  []string{"slump_advice"},
				Timeout:    2 * time.Second,
			},
		},
	}
}

func mapCoverageAdvice() *Rule {
	return &Rule{
		ID:         "map_coverage",
		Contexts:   []snapshot.ContextTag{snapshot.ContextMidRound, snapshot.ContextFullBuy},
		Priority:   PriorityDeferred,
		Confidence: 0.6,
		Cooldown:   3 * time.Minute,
		Risk:       RiskLow,
		Category:   "strategic",
		Condition: func(a ContextAnalysis) bool {
			p, ok := a.PatternWith(pattern.CategoryPositional)
			return ok && p.Confidence >= 0.6
		},
		Plan: []StepTemplate{
			{
				ID:         "coverage_advice",
				Capability: CapLLMGenerate,
				Input:      map[string]any{"prompt_kind": "map_coverage"},
				Timeout:    8 * time.Second,
				Fallback:   CapLLMGenerateLT,
			},
			{
				ID:         "coverage_show",
				Capability: CapOverlayText,
				DependsOn:  []string{"coverage_advice"},
				Timeout:    2 * time.Second,
			},
		},
	}
}

// #endregion strategic-rules

// #region error-correction-rules

func overAggressionCheck() *Rule {
	return &Rule{
		ID:         "over_aggression",
		Contexts:   allContexts(),
		Priority:   PriorityHigh,
		Confidence: 0.7,
		Cooldown:   90 * time.Second,
		Risk:       RiskMedium,
		Category:   "error_correction",
		Condition: func(a ContextAnalysis) bool {
			p, ok := a.PatternWith(pattern.CategoryBehavioral)
			if !ok || p.Confidence < 0.6 {
				return false
			}
			return a.HasNeed(NeedDiscipline)
		},
		Plan: []StepTemplate{
			{
				ID:         "aggr_advice",
				Capability: CapLLMGenerate,
				Input:      map[string]any{"prompt_kind": "rein_in_aggression"},
				Timeout:    6 * time.Second,
				Fallback:   CapLLMGenerateLT,
			},
			{
				ID:         "aggr_speak",
				Capability: CapTTSSpeak,
				Input:      map[string]any{"voice": "firm"},
				DependsOn:  []string{"aggr_advice"},
				Timeout:    4 * time.Second,
				Fallback:   CapOverlayText,
			},
		},
	}
}

// #endregion error-correction-rules

func allContexts() []snapshot.ContextTag {
	return []snapshot.ContextTag{
		snapshot.ContextPistolRound, snapshot.ContextEcoRound,
		snapshot.ContextForceBuy, snapshot.ContextFullBuy,
		snapshot.ContextClutch, snapshot.ContextPostPlant,
		snapshot.ContextMidRound,
	}
}
