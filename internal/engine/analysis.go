package engine

import (
	"github.com/comercialtoddy/cs2-coach-ai/internal/pattern"
	"github.com/comercialtoddy/cs2-coach-ai/internal/snapshot"
)

// #region build-analysis

// BuildAnalysis derives the per-cycle ContextAnalysis from the latest
// snapshot, its state change, and the current pattern set.
func BuildAnalysis(snap snapshot.Snapshot, change snapshot.StateChange, patterns []pattern.Pattern) ContextAnalysis {
	ctx := snap.Processed.Context
	if ctx == "" {
		ctx = snapshot.ContextMidRound
	}
	return ContextAnalysis{
		Snapshot: snap,
		Change:   change,
		Patterns: patterns,
		Context:  ctx,
		Urgency:  deriveUrgency(snap.Processed.Factors),
		Needs:    deriveNeeds(snap, patterns),
	}
}

// #endregion build-analysis

// #region urgency

// deriveUrgency scales with the severity mix of situational factors: any
// critical factor means critical urgency, more than one high factor means
// high, a single high factor means medium.
func deriveUrgency(factors []snapshot.Factor) Urgency {
	high := 0
	for _, f := range factors {
		switch f.Severity {
		case snapshot.SeverityCritical:
			return UrgencyCritical
		case snapshot.SeverityHigh:
			high++
		}
	}
	switch {
	case high > 1:
		return UrgencyHigh
	case high == 1:
		return UrgencyMedium
	default:
		return UrgencyLow
	}
}

// #endregion urgency

// #region needs

func deriveNeeds(snap snapshot.Snapshot, patterns []pattern.Pattern) []Need {
	var needs []Need
	p := snap.Processed.Player

	if p != nil && p.Rating > 0 && p.Rating < 0.85 {
		needs = append(needs, NeedPerformance)
	}
	if p != nil && p.Money < 2000 {
		needs = append(needs, NeedEconomy)
	}
	for _, pat := range patterns {
		switch pat.Category {
		case pattern.CategoryEconomic:
			if pat.Confidence >= 0.6 && !containsNeed(needs, NeedEconomy) {
				needs = append(needs, NeedEconomy)
			}
		case pattern.CategoryTactical, pattern.CategoryPositional:
			if pat.Confidence >= 0.6 && !containsNeed(needs, NeedPositioning) {
				needs = append(needs, NeedPositioning)
			}
		case pattern.CategoryBehavioral:
			if pat.Confidence >= 0.6 && p != nil && p.Deaths > p.Kills && !containsNeed(needs, NeedDiscipline) {
				needs = append(needs, NeedDiscipline)
			}
		}
	}
	return needs
}

func containsNeed(needs []Need, n Need) bool {
	for _, have := range needs {
		if have == n {
			return true
		}
	}
	return false
}

// #endregion needs
