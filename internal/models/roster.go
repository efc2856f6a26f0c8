package models

import (
	"fmt"
	"sort"
)

// Roster is an optimal starting eleven returned by the optimizer.
type Roster struct {
	Players         []Player `json:"players"`
	CaptainID       int      `json:"captain_id"`
	TotalCost       float64  `json:"total_cost"`
	TotalScore      float64  `json:"total_score"`
	ObjectiveValue  float64  `json:"objective_value"`
	BudgetRemaining float64  `json:"budget_remaining"`
	Formation       string   `json:"formation"`
	Robust          bool     `json:"robust"`
}

// PlayerIDs returns the ids of the selected players in roster order.
func (r *Roster) PlayerIDs() []int {
	ids := make([]int, len(r.Players))
	for i, p := range r.Players {
		ids[i] = p.ID
	}
	return ids
}

func (r *Roster) Captain() (Player, bool) {
	for _, p := range r.Players {
		if p.ID == r.CaptainID {
			return p, true
		}
	}
	return Player{}, false
}

// FormationString renders position counts as "D-M-F".
func FormationString(players []Player) string {
	counts := make(map[Position]int, len(Positions))
	for _, p := range players {
		counts[p.Position]++
	}
	return fmt.Sprintf("%d-%d-%d", counts[PositionDEF], counts[PositionMID], counts[PositionFWD])
}

// SortForDisplay orders players GK, DEF, MID, FWD and by score within a position.
func SortForDisplay(players []Player, scores map[int]float64) {
	sort.SliceStable(players, func(i, j int) bool {
		pi, pj := players[i].Position.Index(), players[j].Position.Index()
		if pi != pj {
			return pi < pj
		}
		si, sj := scores[players[i].ID], scores[players[j].ID]
		if si != sj {
			return si > sj
		}
		return players[i].ID < players[j].ID
	})
}

// Transfer is one recommended same-position swap.
type Transfer struct {
	OutID      int      `json:"out_id"`
	OutName    string   `json:"out_name"`
	InID       int      `json:"in_id"`
	InName     string   `json:"in_name"`
	Position   Position `json:"position"`
	OutCost    float64  `json:"out_cost"`
	InCost     float64  `json:"in_cost"`
	CostDelta  float64  `json:"cost_delta"`
	PointsGain float64  `json:"points_gain"`
}
