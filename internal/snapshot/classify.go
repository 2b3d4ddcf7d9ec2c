package snapshot

import "time"

// #region classify

// Classify derives a StateChange from a pair of consecutive snapshots.
// prev may be nil for the first observation of a session.
func Classify(prev *Snapshot, curr Snapshot, now time.Time) StateChange {
	change := StateChange{
		SeqID:        curr.SeqID,
		Type:         ChangeNormalUpdate,
		Significance: SeverityLow,
		CreatedAt:    now,
	}

	if prev == nil {
		change.Type = ChangeRoundStart
		change.Significance = SeverityMedium
		change.Areas = []string{"session"}
		return change
	}

	change.Deltas = computeDeltas(*prev, curr)
	change.Areas = affectedAreas(change.Deltas, *prev, curr)
	change.Type = classifyType(*prev, curr, change.Deltas)
	change.Significance = classifySignificance(change.Type, change.Deltas, curr)

	return change
}

// #endregion classify

// #region deltas

func computeDeltas(prev, curr Snapshot) Deltas {
	var d Deltas
	pp, cp := prev.Processed.Player, curr.Processed.Player
	if pp != nil && cp != nil {
		d.Health = cp.Health - pp.Health
		d.Money = cp.Money - pp.Money
		d.Distance = cp.Position.DistanceTo(pp.Position)
		d.Rating = cp.Rating - pp.Rating
	}
	return d
}

func affectedAreas(d Deltas, prev, curr Snapshot) []string {
	var areas []string
	if d.Health != 0 {
		areas = append(areas, "health")
	}
	if d.Money != 0 {
		areas = append(areas, "economy")
	}
	if d.Distance > 0 {
		areas = append(areas, "position")
	}
	if d.Rating != 0 {
		areas = append(areas, "performance")
	}
	if prev.Processed.Phase != curr.Processed.Phase {
		areas = append(areas, "phase")
	}
	if pt, ct := prev.Processed.Team, curr.Processed.Team; pt != nil && ct != nil && pt.Score != ct.Score {
		areas = append(areas, "score")
	}
	return areas
}

// #endregion deltas

// #region change-type

func classifyType(prev, curr Snapshot, d Deltas) ChangeType {
	pPhase, cPhase := prev.Processed.Phase, curr.Processed.Phase

	if pPhase != cPhase {
		switch {
		case cPhase == PhaseFreezetime:
			return ChangeRoundStart
		case cPhase == PhaseOver:
			return ChangeRoundEnd
		default:
			return ChangePhaseChange
		}
	}

	if hasCriticalFactor(curr.Processed.Factors) {
		return ChangeCriticalEvent
	}
	if cp := curr.Processed.Player; cp != nil {
		if pp := prev.Processed.Player; pp != nil && pp.Alive && !cp.Alive {
			return ChangeCriticalEvent
		}
	}
	if pm, cm := prev.Processed.Map, curr.Processed.Map; pm != nil && cm != nil && !pm.BombPlanted && cm.BombPlanted {
		return ChangeCriticalEvent
	}

	return ChangeNormalUpdate
}

func hasCriticalFactor(factors []Factor) bool {
	for _, f := range factors {
		if f.Severity == SeverityCritical {
			return true
		}
	}
	return false
}

// #endregion change-type

// #region significance

func classifySignificance(t ChangeType, d Deltas, curr Snapshot) Severity {
	switch t {
	case ChangeCriticalEvent:
		return SeverityCritical
	case ChangeRoundStart, ChangeRoundEnd:
		return SeverityHigh
	case ChangePhaseChange:
		return SeverityMedium
	}

	// Normal updates scale with delta magnitude.
	score := 0
	if abs(d.Health) > 30 {
		score += 2
	} else if abs(d.Health) > 10 {
		score++
	}
	if abs(d.Money) > 2000 {
		score++
	}
	if d.Distance > 500 {
		score++
	}
	switch {
	case score >= 3:
		return SeverityHigh
	case score == 2:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// #endregion significance
