package replay

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/comercialtoddy/cs2-coach-ai/internal/snapshot"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture: scripted
// capability responses plus a timed sequence of snapshots.
type Fixture struct {
	Description  string               `json:"description"`
	Capabilities []FixtureCapability  `json:"capabilities"`
	Snapshots    []FixtureSnapshot    `json:"snapshots"`
	Expected     []FixtureExpectation `json:"expected,omitempty"`
}

// FixtureCapability scripts one capability's uniform response.
type FixtureCapability struct {
	Name      string         `json:"name"`
	Succeed   bool           `json:"succeed"`
	Data      map[string]any `json:"data,omitempty"`
	Error     string         `json:"error,omitempty"`
	TimeoutMs int64          `json:"timeout_ms,omitempty"`
	Fallback  string         `json:"fallback,omitempty"`
}

// FixtureSnapshot mirrors snapshot.Snapshot with JSON tags. OffsetMs is
// relative to the fixture's start instant.
type FixtureSnapshot struct {
	SeqID    uint64          `json:"seq_id"`
	OffsetMs int64           `json:"offset_ms"`
	Context  string          `json:"context"`
	Phase    string          `json:"phase"`
	Player   *FixturePlayer  `json:"player,omitempty"`
	Team     *FixtureTeam    `json:"team,omitempty"`
	Map      *FixtureMap     `json:"map,omitempty"`
	Economy  *FixtureEconomy `json:"economy,omitempty"`
	Factors  []FixtureFactor `json:"factors,omitempty"`
}

// FixturePlayer mirrors snapshot.PlayerState with JSON tags.
type FixturePlayer struct {
	SteamID      string     `json:"steam_id"`
	Name         string     `json:"name"`
	Health       int        `json:"health"`
	Armor        int        `json:"armor"`
	Money        int        `json:"money"`
	Position     [3]float32 `json:"position"`
	Area         string     `json:"area"`
	Weapons      []string   `json:"weapons"`
	ActiveWeapon string     `json:"active_weapon"`
	Kills        int        `json:"kills"`
	Deaths       int        `json:"deaths"`
	Assists      int        `json:"assists"`
	Rating       float32    `json:"rating"`
	Alive        bool       `json:"alive"`
}

// FixtureTeam mirrors snapshot.TeamState with JSON tags.
type FixtureTeam struct {
	Side           string `json:"side"`
	Score          int    `json:"score"`
	OpponentScore  int    `json:"opponent_score"`
	PlayersAlive   int    `json:"players_alive"`
	OpponentsAlive int    `json:"opponents_alive"`
}

// FixtureMap mirrors snapshot.MapState with JSON tags.
type FixtureMap struct {
	Name        string `json:"name"`
	Round       int    `json:"round"`
	BombPlanted bool   `json:"bomb_planted"`
	Site        string `json:"site"`
}

// FixtureEconomy mirrors snapshot.EconomyState with JSON tags.
type FixtureEconomy struct {
	TeamMoney  int  `json:"team_money"`
	AvgMoney   int  `json:"avg_money"`
	LossBonus  int  `json:"loss_bonus"`
	CanFullBuy bool `json:"can_full_buy"`
}

// FixtureFactor mirrors snapshot.Factor with JSON tags.
type FixtureFactor struct {
	Tag      string `json:"tag"`
	Severity string `json:"severity"`
	Detail   string `json:"detail,omitempty"`
}

// FixtureExpectation captures the expected rule firings per snapshot.
type FixtureExpectation struct {
	SeqID uint64   `json:"seq_id"`
	Rules []string `json:"rules"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// ToSnapshot converts a FixtureSnapshot to a domain Snapshot anchored at
// start.
func (fs *FixtureSnapshot) ToSnapshot(start time.Time) snapshot.Snapshot {
	p := snapshot.Processed{
		Context: snapshot.ContextTag(fs.Context),
		Phase:   snapshot.Phase(fs.Phase),
	}
	if fs.Player != nil {
		p.Player = &snapshot.PlayerState{
			SteamID: fs.Player.SteamID,
			Name:    fs.Player.Name,
			Health:  fs.Player.Health,
			Armor:   fs.Player.Armor,
			Money:   fs.Player.Money,
			Position: snapshot.Position{
				X: fs.Player.Position[0],
				Y: fs.Player.Position[1],
				Z: fs.Player.Position[2],
			},
			Area:         fs.Player.Area,
			Weapons:      fs.Player.Weapons,
			ActiveWeapon: fs.Player.ActiveWeapon,
			Kills:        fs.Player.Kills,
			Deaths:       fs.Player.Deaths,
			Assists:      fs.Player.Assists,
			Rating:       fs.Player.Rating,
			Alive:        fs.Player.Alive,
		}
	}
	if fs.Team != nil {
		p.Team = &snapshot.TeamState{
			Side:           fs.Team.Side,
			Score:          fs.Team.Score,
			OpponentScore:  fs.Team.OpponentScore,
			PlayersAlive:   fs.Team.PlayersAlive,
			OpponentsAlive: fs.Team.OpponentsAlive,
		}
	}
	if fs.Map != nil {
		p.Map = &snapshot.MapState{
			Name:        fs.Map.Name,
			Round:       fs.Map.Round,
			BombPlanted: fs.Map.BombPlanted,
			Site:        fs.Map.Site,
		}
	}
	if fs.Economy != nil {
		p.Economy = &snapshot.EconomyState{
			TeamMoney:  fs.Economy.TeamMoney,
			AvgMoney:   fs.Economy.AvgMoney,
			LossBonus:  fs.Economy.LossBonus,
			CanFullBuy: fs.Economy.CanFullBuy,
		}
	}
	for _, f := range fs.Factors {
		p.Factors = append(p.Factors, snapshot.Factor{
			Tag:      f.Tag,
			Severity: snapshot.Severity(f.Severity),
			Detail:   f.Detail,
		})
	}
	return snapshot.Snapshot{
		SeqID:     fs.SeqID,
		Timestamp: start.Add(time.Duration(fs.OffsetMs) * time.Millisecond),
		Processed: p,
	}
}

// #endregion fixture-loader
