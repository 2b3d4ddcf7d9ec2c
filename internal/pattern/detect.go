package pattern

import (
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/comercialtoddy/cs2-coach-ai/internal/snapshot"
)

// #region detector

// Detector mines trend patterns from a rolling window of snapshots. The four
// detectors are independent: a panic in one is recovered and logged without
// aborting the others.
type Detector struct {
	config DetectorConfig
}

// NewDetector creates a detector with the given configuration.
func NewDetector(config DetectorConfig) *Detector {
	return &Detector{config: config}
}

// Detect runs all detectors over the window and returns the combined set.
func (d *Detector) Detect(window []snapshot.Snapshot, now time.Time) []Pattern {
	var out []Pattern
	detectors := []struct {
		name string
		fn   func([]snapshot.Snapshot, time.Time) []Pattern
	}{
		{"behavioral", d.detectBehavioral},
		{"tactical", d.detectTactical},
		{"economic", d.detectEconomic},
		{"positional", d.detectPositional},
	}
	for _, det := range detectors {
		patterns := func() (ps []Pattern) {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("[PATTERN] %s detector panicked: %v", det.name, r)
					ps = nil
				}
			}()
			return det.fn(window, now)
		}()
		out = append(out, patterns...)
	}
	return out
}

// #endregion detector

// #region behavioral

// detectBehavioral looks for a sustained trend in aggression indicators.
func (d *Detector) detectBehavioral(window []snapshot.Snapshot, now time.Time) []Pattern {
	if len(window) < 2 {
		return nil
	}

	scores := make([]float32, len(window))
	for i, s := range window {
		scores[i] = aggressionScore(s)
	}

	rising, falling := 0, 0
	for i := 1; i < len(scores); i++ {
		switch {
		case scores[i] > scores[i-1]:
			rising++
		case scores[i] < scores[i-1]:
			falling++
		}
	}
	pairs := len(scores) - 1

	var out []Pattern
	if frac := float32(rising) / float32(pairs); frac >= 0.6 {
		out = append(out, Pattern{
			Category:    CategoryBehavioral,
			Description: fmt.Sprintf("aggression rising across %d updates", len(window)),
			Frequency:   rising,
			Confidence:  clamp(frac),
			Implications: []string{
				"entry attempts without trade support become likely",
				"utility usage tends to drop when over-extending",
			},
			DetectedAt: now,
		})
	}
	if frac := float32(falling) / float32(pairs); frac >= 0.6 {
		out = append(out, Pattern{
			Category:    CategoryBehavioral,
			Description: fmt.Sprintf("play turning passive across %d updates", len(window)),
			Frequency:   falling,
			Confidence:  clamp(frac),
			Implications: []string{
				"map control is being conceded",
			},
			DetectedAt: now,
		})
	}
	return out
}

// aggressionScore combines aggression-tagged factors with kill momentum.
func aggressionScore(s snapshot.Snapshot) float32 {
	var score float32
	for _, f := range s.Processed.Factors {
		if strings.Contains(f.Tag, "aggress") || strings.Contains(f.Tag, "push") {
			score += 1 + 0.5*float32(f.Severity.Rank())
		}
	}
	if p := s.Processed.Player; p != nil {
		score += 0.2 * float32(p.Kills)
	}
	return score
}

// #endregion behavioral

// #region tactical

// detectTactical flags static positioning via position variance.
func (d *Detector) detectTactical(window []snapshot.Snapshot, now time.Time) []Pattern {
	positions := collectPositions(window)
	if len(positions) < 3 {
		return nil
	}

	variance := positionVariance(positions)
	if variance >= d.config.PositionVarianceLo {
		return nil
	}

	conf := clamp(1 - variance/d.config.PositionVarianceLo)
	return []Pattern{{
		Category:    CategoryTactical,
		Description: fmt.Sprintf("holding near-static positions (variance %.0f)", variance),
		Frequency:   len(positions),
		Confidence:  conf,
		Implications: []string{
			"positioning is predictable to opponents",
			"rotations are arriving late",
		},
		DetectedAt: now,
	}}
}

func collectPositions(window []snapshot.Snapshot) []snapshot.Position {
	var out []snapshot.Position
	for _, s := range window {
		if p := s.Processed.Player; p != nil && p.Alive {
			out = append(out, p.Position)
		}
	}
	return out
}

// positionVariance computes mean squared distance from the centroid in the
// XY plane.
func positionVariance(positions []snapshot.Position) float32 {
	var cx, cy float64
	for _, p := range positions {
		cx += float64(p.X)
		cy += float64(p.Y)
	}
	n := float64(len(positions))
	cx /= n
	cy /= n

	var sum float64
	for _, p := range positions {
		dx := float64(p.X) - cx
		dy := float64(p.Y) - cy
		sum += dx*dx + dy*dy
	}
	return float32(sum / n)
}

// #endregion tactical

// #region economic

// detectEconomic reports sustained economic pressure from the ratio of
// low-economy to high-economy snapshots.
func (d *Detector) detectEconomic(window []snapshot.Snapshot, now time.Time) []Pattern {
	low, high, total := 0, 0, 0
	for _, s := range window {
		p := s.Processed.Player
		if p == nil {
			continue
		}
		total++
		switch {
		case p.Money < d.config.LowEconomyCeiling:
			low++
		case p.Money >= d.config.HighEconomyFloor:
			high++
		}
	}
	if total == 0 || low == 0 {
		return nil
	}

	ratio := float32(low) / float32(maxInt(high, 1))
	if ratio < d.config.EcoPressureRatio {
		return nil
	}

	return []Pattern{{
		Category:    CategoryEconomic,
		Description: fmt.Sprintf("sustained low economy (%d of %d updates under %d)", low, total, d.config.LowEconomyCeiling),
		Frequency:   low,
		Confidence:  clamp(float32(low) / float32(total)),
		Implications: []string{
			"save rounds need coordination to rebuild",
			"force buys are burning the loss bonus",
		},
		DetectedAt: now,
	}}
}

// #endregion economic

// #region positional

// detectPositional flags narrow map coverage from unique-area counts.
func (d *Detector) detectPositional(window []snapshot.Snapshot, now time.Time) []Pattern {
	areas := make(map[string]int)
	observed := 0
	for _, s := range window {
		if p := s.Processed.Player; p != nil && p.Area != "" {
			areas[p.Area]++
			observed++
		}
	}
	if observed < 3 || len(areas) >= d.config.MinAreaCoverage {
		return nil
	}

	conf := clamp(1 - float32(len(areas)-1)/float32(d.config.MinAreaCoverage))
	return []Pattern{{
		Category:    CategoryPositional,
		Description: fmt.Sprintf("covering only %d map areas over %d updates", len(areas), observed),
		Frequency:   observed,
		Confidence:  conf,
		Implications: []string{
			"opponents can cut off known angles",
		},
		DetectedAt: now,
	}}
}

// #endregion positional

// #region helpers

// clamp restricts v to [0, 1].
func clamp(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	if math.IsNaN(float64(v)) {
		return 0
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// #endregion helpers
