package outcome

import (
	"time"

	"github.com/comercialtoddy/cs2-coach-ai/internal/snapshot"
)

// #region status

// Status is the per-tracker state machine: MONITORING → CONCLUDED | EXPIRED.
type Status string

const (
	StatusMonitoring Status = "monitoring"
	StatusConcluded  Status = "concluded"
	StatusExpired    Status = "expired"
)

// #endregion status

// #region baseline

// Baseline is the player sub-state captured when tracking starts.
type Baseline struct {
	SeqID    uint64
	At       time.Time
	Health   int
	Money    int
	Kills    int
	Score    int
	Alive    bool
	Position snapshot.Position
	Weapons  []string
	// High-severity factor tags present at baseline; an error-correction
	// decision succeeds when none of them reappear.
	ErrorTags []string
}

// #endregion baseline

// #region checkpoint

// Checkpoint records one observed significant change during monitoring.
type Checkpoint struct {
	At           time.Time
	Dimension    string
	Description  string
	Significance float32
}

// #endregion checkpoint

// #region outcome

// Outcome is the single inferred result for one tracked decision. Every
// tracked decision yields exactly one Outcome, expired trackers included.
type Outcome struct {
	TrackingID  string
	DecisionID  string
	RuleID      string
	Category    string
	Status      Status
	Followed    bool
	Success     bool
	Impact      float32 // signed
	Confidence  float32
	Checkpoints int
	Learnings   []string
	ConcludedAt time.Time
}

// #endregion outcome

// #region config

// Config holds monitoring windows and checkpoint thresholds.
type Config struct {
	TacticalWindow  time.Duration
	StrategicWindow time.Duration
	EconomicWindow  time.Duration
	ErrorWindow     time.Duration
	DefaultWindow   time.Duration

	HealthThreshold   int     // |Δhealth| above this is a checkpoint
	DistanceThreshold float32 // displacement above this is a checkpoint
	MoneyThreshold    int     // |Δmoney| above this is a checkpoint
	HighSignificance  float32 // checkpoint significance counting as "high"

	SweepInterval time.Duration // background deadline-sweep cadence
	Retention     time.Duration // how long terminal trackers stay queryable
}

// DefaultConfig returns sensible defaults. Strategic advice gets the
// longest window; immediate tactical advice the shortest.
func DefaultConfig() Config {
	return Config{
		TacticalWindow:    20 * time.Second,
		StrategicWindow:   60 * time.Second,
		EconomicWindow:    45 * time.Second,
		ErrorWindow:       30 * time.Second,
		DefaultWindow:     30 * time.Second,
		HealthThreshold:   10,
		DistanceThreshold: 100,
		MoneyThreshold:    1000,
		HighSignificance:  0.7,
		SweepInterval:     10 * time.Second,
		Retention:         2 * time.Minute,
	}
}

// window returns the monitoring window for a decision category.
func (c Config) window(category string) time.Duration {
	switch category {
	case "tactical":
		return c.TacticalWindow
	case "strategic":
		return c.StrategicWindow
	case "economic":
		return c.EconomicWindow
	case "error_correction":
		return c.ErrorWindow
	default:
		return c.DefaultWindow
	}
}

// #endregion config
