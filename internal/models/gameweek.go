package models

import (
	"time"

	"gorm.io/datatypes"
)

// GameweekResult is the persisted outcome of one pipeline run. There is at most
// one row per (gameweek, method); reruns overwrite it.
type GameweekResult struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	RunID          string         `gorm:"size:36;not null" json:"run_id"`
	Gameweek       int            `gorm:"not null;uniqueIndex:idx_gameweek_method" json:"gameweek"`
	Method         string         `gorm:"size:32;not null;uniqueIndex:idx_gameweek_method" json:"method"`
	Strategy       string         `gorm:"size:32;not null" json:"strategy"`
	Robust         bool           `gorm:"default:false" json:"robust"`
	Formation      string         `gorm:"size:8" json:"formation"`
	CaptainID      int            `json:"captain_id"`
	TotalCost      float64        `json:"total_cost"`
	ExpectedPoints float64        `json:"expected_points"`
	ObjectiveValue float64        `json:"objective_value"`
	ActualPoints   *float64       `json:"actual_points,omitempty"` // Null until the gameweek is played
	Roster         datatypes.JSON `gorm:"type:jsonb" json:"roster"`
	Transfers      datatypes.JSON `gorm:"type:jsonb" json:"transfers,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

func (GameweekResult) TableName() string {
	return "gameweek_results"
}

// Squad is the manager's current squad, used to constrain selection and to
// recommend transfers.
type Squad struct {
	ID            uint          `gorm:"primaryKey" json:"id"`
	Name          string        `gorm:"size:100" json:"name"`
	Bank          float64       `json:"bank"`
	FreeTransfers int           `gorm:"default:1" json:"free_transfers"`
	Players       []SquadPlayer `gorm:"foreignKey:SquadID;constraint:OnDelete:CASCADE" json:"players"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

func (Squad) TableName() string {
	return "squads"
}

// PlayerIDs returns the FPL ids of every squad member that has been matched.
func (s *Squad) PlayerIDs() []int {
	ids := make([]int, 0, len(s.Players))
	for _, p := range s.Players {
		if p.PlayerID != 0 {
			ids = append(ids, p.PlayerID)
		}
	}
	return ids
}

type SquadPlayer struct {
	ID       uint    `gorm:"primaryKey" json:"id"`
	SquadID  uint    `gorm:"not null;index" json:"squad_id"`
	PlayerID int     `gorm:"index" json:"player_id"`
	Name     string  `gorm:"size:100;not null" json:"name"`
	Position string  `gorm:"size:3" json:"position"`
	TeamName string  `gorm:"size:50" json:"team_name"`
	Cost     float64 `json:"cost"`
}

func (SquadPlayer) TableName() string {
	return "squad_players"
}

// AllModels lists the tables managed by migrations.
func AllModels() []interface{} {
	return []interface{}{&GameweekResult{}, &Squad{}, &SquadPlayer{}}
}
