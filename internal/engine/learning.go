package engine

import (
	"fmt"
	"log"

	"github.com/comercialtoddy/cs2-coach-ai/internal/events"
)

// #region apply-feedback

// ApplyFeedback folds one outcome into the originating rule: the success
// rate moves by exponential moving average, confidence gets a bounded nudge
// from impact and player response, and the cooldown stretches or shrinks
// with sustained failure or success. Confidence never leaves [0.1, 1.0].
func (e *Engine) ApplyFeedback(f Feedback) {
	e.mu.Lock()
	defer e.mu.Unlock()

	r := e.findRule(f.RuleID)
	if r == nil {
		log.Printf("[ENGINE] feedback for unknown rule %s, ignored", f.RuleID)
		return
	}

	var signal float32
	if f.Success && f.Response != ResponseNegative {
		signal = 1
	}
	r.successRate = r.successRate*(1-e.config.Alpha) + signal*e.config.Alpha
	r.samples++

	r.Confidence = clampConfidence(r.Confidence + confidenceDelta(f))

	reason := fmt.Sprintf("feedback decision=%s success=%v response=%s impact=%.2f",
		f.DecisionID, f.Success, f.Response, f.Impact)
	adapted := e.adaptCooldown(r)
	if adapted != "" {
		reason += "; " + adapted
	}

	if e.memory != nil {
		if err := e.memory.RecordAdaptation(AdaptationRecord{
			RuleID:      r.ID,
			SuccessRate: r.successRate,
			Confidence:  r.Confidence,
			Cooldown:    r.Cooldown,
			Reason:      reason,
			CreatedAt:   e.now(),
		}); err != nil {
			log.Printf("[ENGINE] failed to record adaptation: %v", err)
		}
	}
	if e.bus != nil {
		e.bus.Publish(events.RuleAdapted, RuleView{
			ID:          r.ID,
			Priority:    r.Priority,
			Confidence:  r.Confidence,
			SuccessRate: r.successRate,
			Samples:     r.samples,
			Cooldown:    r.Cooldown,
			Category:    r.Category,
		})
	}

	log.Printf("[ENGINE] rule %s adapted: rate=%.3f conf=%.3f cooldown=%s",
		r.ID, r.successRate, r.Confidence, r.Cooldown)
}

func (e *Engine) findRule(id string) *Rule {
	for _, r := range e.rules {
		if r.ID == id {
			return r
		}
	}
	return nil
}

// #endregion apply-feedback

// #region confidence-delta

// confidenceDelta is asymmetric: a negative player response costs more than
// a positive one earns, so bad advice decays faster than good advice grows.
func confidenceDelta(f Feedback) float32 {
	switch f.Response {
	case ResponsePositive:
		return 0.02 + 0.03*clampUnit(f.Impact)
	case ResponseNegative:
		return -(0.05 + 0.05*clampUnit(-f.Impact))
	default:
		if f.Success {
			return 0.01
		}
		return -0.02
	}
}

func clampUnit(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampConfidence(v float32) float32 {
	if v < 0.1 {
		return 0.1
	}
	if v > 1.0 {
		return 1.0
	}
	return v
}

// #endregion confidence-delta

// #region cooldown-adaptation

// adaptCooldown lengthens the cooldown while the success rate stays low and
// shortens it while it stays high, at most MaxAdaptationsPerCooldown times
// per cooldown period so the adaptation itself cannot oscillate.
func (e *Engine) adaptCooldown(r *Rule) string {
	if r.samples < e.config.MinSamples {
		return ""
	}

	now := e.now()
	if now.Sub(r.adaptSince) >= r.Cooldown {
		r.adaptSince = now
		r.adaptations = 0
	}
	if r.adaptations >= e.config.MaxAdaptationsPerCooldown {
		return ""
	}

	switch {
	case r.successRate < 0.3:
		next := r.Cooldown + r.Cooldown/2
		if next > e.config.MaxCooldown {
			next = e.config.MaxCooldown
		}
		if next == r.Cooldown {
			return ""
		}
		r.Cooldown = next
		r.adaptations++
		return "cooldown lengthened on low success rate"
	case r.successRate > 0.8:
		next := r.Cooldown * 4 / 5
		if next < e.config.MinCooldown {
			next = e.config.MinCooldown
		}
		if next == r.Cooldown {
			return ""
		}
		r.Cooldown = next
		r.adaptations++
		return "cooldown shortened on high success rate"
	}
	return ""
}

// #endregion cooldown-adaptation
