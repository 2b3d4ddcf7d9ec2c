package snapshot

import (
	"encoding/json"
	"math"
	"time"
)

// #region context-tag

// ContextTag labels the situational context a snapshot was observed in.
type ContextTag string

const (
	ContextPistolRound ContextTag = "pistol_round"
	ContextEcoRound    ContextTag = "eco_round"
	ContextForceBuy    ContextTag = "force_buy"
	ContextFullBuy     ContextTag = "full_buy"
	ContextClutch      ContextTag = "clutch"
	ContextPostPlant   ContextTag = "post_plant"
	ContextMidRound    ContextTag = "mid_round"
)

// #endregion context-tag

// #region phase

// Phase is the round phase reported by the game.
type Phase string

const (
	PhaseWarmup     Phase = "warmup"
	PhaseFreezetime Phase = "freezetime"
	PhaseLive       Phase = "live"
	PhaseBomb       Phase = "bomb"
	PhaseOver       Phase = "over"
)

// #endregion phase

// #region severity

// Severity rates how pressing a situational factor or state change is.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank orders severities for comparison (low=0 .. critical=3).
func (s Severity) Rank() int {
	switch s {
	case SeverityMedium:
		return 1
	case SeverityHigh:
		return 2
	case SeverityCritical:
		return 3
	default:
		return 0
	}
}

// #endregion severity

// #region factor

// Factor is a tagged, severity-rated condition derived from a snapshot
// (bomb planted, numerical disadvantage, aggressive push, ...).
type Factor struct {
	Tag      string
	Severity Severity
	Detail   string
}

// #endregion factor

// #region position

// Position is a world-space coordinate.
type Position struct {
	X float32
	Y float32
	Z float32
}

// DistanceTo returns the euclidean distance to other in game units.
func (p Position) DistanceTo(other Position) float32 {
	dx := float64(p.X - other.X)
	dy := float64(p.Y - other.Y)
	dz := float64(p.Z - other.Z)
	return float32(math.Sqrt(dx*dx + dy*dy + dz*dz))
}

// #endregion position

// #region sub-states

// PlayerState is the observed player sub-state. A nil *PlayerState on
// Processed means the dimension was unavailable this update, which is
// distinct from an observed zero.
type PlayerState struct {
	SteamID      string
	Name         string
	Health       int
	Armor        int
	Money        int
	Position     Position
	Area         string
	Weapons      []string
	ActiveWeapon string
	Kills        int
	Deaths       int
	Assists      int
	Rating       float32
	Alive        bool
}

// TeamState is the observed team sub-state.
type TeamState struct {
	Side           string
	Score          int
	OpponentScore  int
	PlayersAlive   int
	OpponentsAlive int
}

// MapState is the observed map sub-state.
type MapState struct {
	Name        string
	Round       int
	BombPlanted bool
	Site        string
}

// EconomyState is the observed economy sub-state.
type EconomyState struct {
	TeamMoney  int
	AvgMoney   int
	LossBonus  int
	CanFullBuy bool
}

// #endregion sub-states

// #region processed

// Processed is the derived view of a raw snapshot. Sub-states are pointers
// so "field unavailable" survives as nil rather than defaulting to zero.
type Processed struct {
	Context ContextTag
	Phase   Phase
	Player  *PlayerState
	Team    *TeamState
	Map     *MapState
	Economy *EconomyState
	Factors []Factor
}

// #endregion processed

// #region snapshot

// Snapshot is one immutable observation of game state. Produced exactly once
// per telemetry update by the upstream ingestion collaborator; never mutated
// after creation.
type Snapshot struct {
	SeqID     uint64
	Timestamp time.Time
	Raw       json.RawMessage
	Processed Processed
}

// #endregion snapshot

// #region state-change

// ChangeType classifies the transition between two consecutive snapshots.
type ChangeType string

const (
	ChangeRoundStart    ChangeType = "round_start"
	ChangeRoundEnd      ChangeType = "round_end"
	ChangePhaseChange   ChangeType = "phase_change"
	ChangeCriticalEvent ChangeType = "critical_event"
	ChangeNormalUpdate  ChangeType = "normal_update"
)

// Deltas holds numeric differences between two consecutive snapshots.
type Deltas struct {
	Health   int
	Money    int
	Distance float32
	Rating   float32
}

// StateChange is derived from a pair of consecutive snapshots. Immutable
// after creation.
type StateChange struct {
	SeqID        uint64
	Type         ChangeType
	Significance Severity
	Areas        []string
	Deltas       Deltas
	CreatedAt    time.Time
}

// #endregion state-change

// #region archived

// Archived is the lossy compressed form of an evicted snapshot. Essential
// scalar fields only, kept so evicted history stays auditable.
type Archived struct {
	SeqID     uint64
	Timestamp time.Time
	Context   ContextTag
	Phase     Phase
	Health    int
	Money     int
	Kills     int
	Deaths    int
	Rating    float32
}

// Compress reduces a full snapshot to its archived form.
func Compress(s Snapshot) Archived {
	a := Archived{
		SeqID:     s.SeqID,
		Timestamp: s.Timestamp,
		Context:   s.Processed.Context,
		Phase:     s.Processed.Phase,
	}
	if p := s.Processed.Player; p != nil {
		a.Health = p.Health
		a.Money = p.Money
		a.Kills = p.Kills
		a.Deaths = p.Deaths
		a.Rating = p.Rating
	}
	return a
}

// #endregion archived
