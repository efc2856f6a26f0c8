// Package cpv computes the Composite Viability score of every player: a
// 0..100 blend of normalized expected points, fixture-and-form favourability
// and value, multiplied by an availability factor that vetoes doubtful players.
package cpv

import (
	"math"

	"github.com/stitts-dev/fpl-optimizer/internal/models"
)

// Weights configures the CPV blend. Status is carried for reporting only: the
// availability term acts as a multiplier, never as an additive component.
type Weights struct {
	XP            float64 `json:"xp"`
	Fixture       float64 `json:"fixture"`
	Value         float64 `json:"value"`
	Status        float64 `json:"status"`
	ValueCap      float64 `json:"value_cap"`
	CeilingCap    float64 `json:"ceiling_cap"`
	VetoThreshold float64 `json:"veto_threshold"`
}

func DefaultWeights() Weights {
	return Weights{
		XP:            0.40,
		Fixture:       0.25,
		Value:         0.15,
		Status:        0.20,
		ValueCap:      25,
		CeilingCap:    300,
		VetoThreshold: 75,
	}
}

// withDefaults fills unset caps so a zero Weights never divides by zero.
func (w Weights) withDefaults() Weights {
	d := DefaultWeights()
	if w.ValueCap <= 0 {
		w.ValueCap = d.ValueCap
	}
	if w.CeilingCap <= 0 {
		w.CeilingCap = d.CeilingCap
	}
	if w.VetoThreshold <= 0 {
		w.VetoThreshold = d.VetoThreshold
	}
	return w
}

// WorstDifficulty is assumed for a team with no scheduled fixture.
const WorstDifficulty = 5

// Breakdown exposes the sub-scores behind a CPV value.
type Breakdown struct {
	PlayerID int     `json:"player_id"`
	XP       float64 `json:"xp"`
	FFI      float64 `json:"ffi"`
	VCS      float64 `json:"vcs"`
	Status   float64 `json:"status"`
	CPV      float64 `json:"cpv"`
}

// Compute scores every player in the catalog. Players absent from forecast get
// an expected-points share of zero.
func Compute(catalog *models.Catalog, forecast map[int]float64, difficulty map[int]int, w Weights) map[int]float64 {
	breakdowns := ComputeBreakdown(catalog, forecast, difficulty, w)
	scores := make(map[int]float64, len(breakdowns))
	for id, b := range breakdowns {
		scores[id] = b.CPV
	}
	return scores
}

func ComputeBreakdown(catalog *models.Catalog, forecast map[int]float64, difficulty map[int]int, w Weights) map[int]Breakdown {
	w = w.withDefaults()
	maxXP := forecastScale(forecast)

	out := make(map[int]Breakdown, catalog.Len())
	for _, p := range catalog.Players() {
		b := Breakdown{
			PlayerID: p.ID,
			XP:       forecast[p.ID] / maxXP,
			FFI:      FixtureFormIndex(p, difficultyFor(difficulty, p.TeamID)),
			VCS:      ValueCeilingScore(p, w),
			Status:   StatusMultiplier(p.AvailabilityChance, w.VetoThreshold),
		}
		b.CPV = (w.XP*b.XP + w.Fixture*b.FFI + w.Value*b.VCS) * 100 * b.Status
		out[p.ID] = b
	}
	return out
}

// forecastScale is the largest forecast value, or 1 when there is nothing
// positive to normalize by.
func forecastScale(forecast map[int]float64) float64 {
	maxXP := math.Inf(-1)
	for _, v := range forecast {
		if v > maxXP {
			maxXP = v
		}
	}
	if maxXP <= 0 || math.IsInf(maxXP, 0) || math.IsNaN(maxXP) {
		return 1
	}
	return maxXP
}

func difficultyFor(difficulty map[int]int, teamID int) int {
	d, ok := difficulty[teamID]
	if !ok {
		return WorstDifficulty
	}
	if d < 1 {
		return 1
	}
	if d > WorstDifficulty {
		return WorstDifficulty
	}
	return d
}

// FixtureFormIndex blends fixture ease and form. Defenders and keepers lean on
// the fixture, attackers on form.
func FixtureFormIndex(p models.Player, difficulty int) float64 {
	fixture := float64(5-difficulty) / 4
	form := clamp01(p.Form / 10)
	switch p.Position {
	case models.PositionGK, models.PositionDEF:
		return 0.7*fixture + 0.3*form
	default:
		return 0.3*fixture + 0.7*form
	}
}

func ValueCeilingScore(p models.Player, w Weights) float64 {
	w = w.withDefaults()
	value := math.Min(1, p.PointsPerCost()/w.ValueCap)
	ceiling := math.Min(1, p.CeilingProxy/w.CeilingCap)
	return (value + ceiling) / 2
}

// StatusMultiplier is 1 for unflagged players, 0 below the veto threshold and
// chance/100 otherwise.
func StatusMultiplier(chance *float64, vetoThreshold float64) float64 {
	if chance == nil {
		return 1
	}
	if *chance < vetoThreshold {
		return 0
	}
	return *chance / 100
}

func clamp01(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
