package models

import (
	"fmt"
	"strings"
)

type Position string

const (
	PositionGK  Position = "GK"
	PositionDEF Position = "DEF"
	PositionMID Position = "MID"
	PositionFWD Position = "FWD"
)

// Positions lists the four positions in formation order.
var Positions = []Position{PositionGK, PositionDEF, PositionMID, PositionFWD}

// ParsePosition accepts the short names used across FPL tools and the numeric
// element types of the FPL API (1=GK, 2=DEF, 3=MID, 4=FWD).
func ParsePosition(s string) (Position, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "GK", "GKP", "GOALKEEPER", "1":
		return PositionGK, nil
	case "DEF", "DEFENDER", "2":
		return PositionDEF, nil
	case "MID", "MIDFIELDER", "3":
		return PositionMID, nil
	case "FWD", "FW", "FORWARD", "4":
		return PositionFWD, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPlayerPosition, s)
}

// Index returns the position's slot in Positions, or -1.
func (p Position) Index() int {
	for i, pos := range Positions {
		if pos == p {
			return i
		}
	}
	return -1
}

func (p Position) Valid() bool {
	return p.Index() >= 0
}

// Player is one selectable footballer in a gameweek snapshot. Cost is in
// millions. AvailabilityChance is nil when the player has no flagged status.
type Player struct {
	ID                 int                `json:"id"`
	Name               string             `json:"name"`
	FullName           string             `json:"full_name,omitempty"`
	TeamID             int                `json:"team_id"`
	TeamName           string             `json:"team_name"`
	Position           Position           `json:"position"`
	Cost               float64            `json:"cost"`
	OwnershipPercent   float64            `json:"ownership_percent"`
	Form               float64            `json:"form"`
	AvailabilityChance *float64           `json:"availability_chance,omitempty"`
	CeilingProxy       float64            `json:"ceiling_proxy"`
	TotalPoints        float64            `json:"total_points"`
	Stats              map[string]float64 `json:"stats,omitempty"`
}

// PointsPerCost is season points per million, zero for free players.
func (p Player) PointsPerCost() float64 {
	if p.Cost <= 0 {
		return 0
	}
	return p.TotalPoints / p.Cost
}

func (p Player) Validate() error {
	if p.ID == 0 {
		return fmt.Errorf("player id is required")
	}
	if !p.Position.Valid() {
		return fmt.Errorf("%w: %q (player %d)", ErrUnknownPlayerPosition, p.Position, p.ID)
	}
	if p.Cost < 0 {
		return fmt.Errorf("player cost must be non-negative: %d", p.ID)
	}
	return nil
}

// Chance returns a pointer to c, for building players with a flagged status.
func Chance(c float64) *float64 {
	return &c
}
