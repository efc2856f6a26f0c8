package optimizer

import (
	"fmt"
	"math"

	"github.com/stitts-dev/fpl-optimizer/internal/models"
)

const (
	SquadSize         = 11
	MaxPlayersPerTeam = 3
	costEpsilon       = 1e-9
)

// PositionConstraint bounds how many starters a position may supply.
type PositionConstraint struct {
	Position    models.Position
	MinRequired int
	MaxAllowed  int
}

// RosterConstraints holds every hard rule a starting eleven must satisfy.
type RosterConstraints struct {
	Budget              float64
	SquadSize           int
	MaxPlayersPerTeam   int
	PositionConstraints map[models.Position]PositionConstraint
}

// DefaultConstraints returns the FPL starting-eleven rules under the given budget.
func DefaultConstraints(budget float64) *RosterConstraints {
	return &RosterConstraints{
		Budget:            budget,
		SquadSize:         SquadSize,
		MaxPlayersPerTeam: MaxPlayersPerTeam,
		PositionConstraints: map[models.Position]PositionConstraint{
			models.PositionGK:  {Position: models.PositionGK, MinRequired: 1, MaxAllowed: 1},
			models.PositionDEF: {Position: models.PositionDEF, MinRequired: 3, MaxAllowed: 5},
			models.PositionMID: {Position: models.PositionMID, MinRequired: 3, MaxAllowed: 5},
			models.PositionFWD: {Position: models.PositionFWD, MinRequired: 1, MaxAllowed: 3},
		},
	}
}

// Formations enumerates every legal "D-M-F" shape under the position bounds.
func (rc *RosterConstraints) Formations() []string {
	var out []string
	gk := rc.PositionConstraints[models.PositionGK]
	def := rc.PositionConstraints[models.PositionDEF]
	mid := rc.PositionConstraints[models.PositionMID]
	fwd := rc.PositionConstraints[models.PositionFWD]
	for g := gk.MinRequired; g <= gk.MaxAllowed; g++ {
		for d := def.MinRequired; d <= def.MaxAllowed; d++ {
			for m := mid.MinRequired; m <= mid.MaxAllowed; m++ {
				f := rc.SquadSize - g - d - m
				if f >= fwd.MinRequired && f <= fwd.MaxAllowed {
					out = append(out, fmt.Sprintf("%d-%d-%d", d, m, f))
				}
			}
		}
	}
	return out
}

// ValidateRoster checks a candidate starting eleven against every rule.
func (rc *RosterConstraints) ValidateRoster(players []models.Player) error {
	if len(players) != rc.SquadSize {
		return fmt.Errorf("roster must have %d players, got %d", rc.SquadSize, len(players))
	}

	if err := rc.validateUnique(players); err != nil {
		return err
	}

	if err := rc.validateBudget(players); err != nil {
		return err
	}

	if err := rc.validatePositions(players); err != nil {
		return err
	}

	if err := rc.validateTeamLimit(players); err != nil {
		return err
	}

	return nil
}

func (rc *RosterConstraints) validateUnique(players []models.Player) error {
	seen := make(map[int]bool, len(players))
	for _, p := range players {
		if seen[p.ID] {
			return fmt.Errorf("%w: %d", models.ErrDuplicatePlayer, p.ID)
		}
		seen[p.ID] = true
	}
	return nil
}

func (rc *RosterConstraints) validateBudget(players []models.Player) error {
	total := 0.0
	for _, p := range players {
		total += p.Cost
	}
	if total > rc.Budget+costEpsilon {
		return fmt.Errorf("roster exceeds budget: %.1f > %.1f", total, rc.Budget)
	}
	return nil
}

func (rc *RosterConstraints) validatePositions(players []models.Player) error {
	counts := make(map[models.Position]int)
	for _, p := range players {
		counts[p.Position]++
	}

	for pos, constraint := range rc.PositionConstraints {
		count := counts[pos]
		if count < constraint.MinRequired {
			return fmt.Errorf("insufficient players for position %s: need %d, got %d", pos, constraint.MinRequired, count)
		}
		if count > constraint.MaxAllowed {
			return fmt.Errorf("too many players for position %s: max %d, got %d", pos, constraint.MaxAllowed, count)
		}
	}

	for pos := range counts {
		if _, ok := rc.PositionConstraints[pos]; !ok {
			return fmt.Errorf("%w: %s", models.ErrUnknownPlayerPosition, pos)
		}
	}

	return nil
}

func (rc *RosterConstraints) validateTeamLimit(players []models.Player) error {
	teamCounts := make(map[int]int)
	for _, p := range players {
		teamCounts[p.TeamID]++
		if teamCounts[p.TeamID] > rc.MaxPlayersPerTeam {
			return fmt.Errorf("too many players from team %d: max %d", p.TeamID, rc.MaxPlayersPerTeam)
		}
	}
	return nil
}

// roundCost trims float noise from summed prices (FPL prices are multiples of 0.1).
func roundCost(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
