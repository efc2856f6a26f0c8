package strategy

import (
	"fmt"
	"math"
	"strings"

	"github.com/stitts-dev/fpl-optimizer/internal/models"
)

type Mode string

const (
	// Standard leaves scores untouched.
	Standard Mode = "standard"
	// RankProtection favours highly owned players to shadow the field.
	RankProtection Mode = "rank_protection"
	// RankClimbing favours differentials the field does not own.
	RankClimbing Mode = "rank_climbing"
)

var Modes = []Mode{Standard, RankProtection, RankClimbing}

func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", Standard:
		return Standard, nil
	case RankProtection:
		return RankProtection, nil
	case RankClimbing:
		return RankClimbing, nil
	}
	return "", fmt.Errorf("unknown strategy %q (want one of standard, rank_protection, rank_climbing)", s)
}

// Multiplier returns the score factor for a player owned by eo (0..1) of managers.
//
// The two modes are intentionally not mirror images: protection tops out at
// 1.5x for a fully owned player while climbing reaches 2x for an unowned one.
func (m Mode) Multiplier(eo float64) float64 {
	switch m {
	case RankProtection:
		return 1 + 0.5*eo
	case RankClimbing:
		return 1 + (1 - eo)
	default:
		return 1
	}
}

// Apply returns a new score map adjusted for the mode. Ids missing from the
// catalog keep their score; the input map is not modified.
func Apply(scores map[int]float64, catalog *models.Catalog, mode Mode) map[int]float64 {
	out := make(map[int]float64, len(scores))
	for id, s := range scores {
		p, ok := catalog.Get(id)
		if !ok {
			out[id] = s
			continue
		}
		out[id] = s * mode.Multiplier(Ownership(p))
	}
	return out
}

// Ownership converts the ownership percentage to a fraction; malformed values count as unowned.
func Ownership(p models.Player) float64 {
	eo := p.OwnershipPercent / 100
	if math.IsNaN(eo) || eo < 0 || eo > 1 {
		return 0
	}
	return eo
}

// Tier labels a player's ownership for display.
func Tier(p models.Player) string {
	switch eo := Ownership(p); {
	case eo >= 0.30:
		return "template"
	case eo >= 0.10:
		return "popular"
	case eo >= 0.05:
		return "moderate"
	default:
		return "differential"
	}
}
