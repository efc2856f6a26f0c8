// Package transfers turns the gap between a manager's current eleven and an
// optimal target eleven into a short list of same-position swaps.
package transfers

import (
	"fmt"

	"github.com/stitts-dev/fpl-optimizer/internal/models"
)

// HitCost is the points deduction for every transfer beyond the free ones.
const HitCost = 4

// Recommend pairs players leaving the current selection with players arriving
// from the target, position for position, greedily taking the largest score
// gain first. It makes at most maxTransfers swaps and stops early when no
// same-position pair remains. Ties go to the first pair in input order. Ids
// missing from the catalog are ignored.
func Recommend(currentIDs, targetIDs []int, catalog *models.Catalog, scores map[int]float64, maxTransfers int) ([]models.Transfer, error) {
	if maxTransfers < 0 {
		return nil, fmt.Errorf("%w: max transfers must be non-negative, got %d", models.ErrInvalidTransferRequest, maxTransfers)
	}

	removable := difference(currentIDs, targetIDs, catalog)
	addable := difference(targetIDs, currentIDs, catalog)

	limit := min(maxTransfers, len(removable), len(addable))
	out := make([]models.Transfer, 0, limit)

	for len(out) < limit {
		bestOut, bestIn := -1, -1
		bestGain := 0.0
		for i, outID := range removable {
			if outID == 0 {
				continue
			}
			outPlayer, _ := catalog.Get(outID)
			for j, inID := range addable {
				if inID == 0 {
					continue
				}
				inPlayer, _ := catalog.Get(inID)
				if inPlayer.Position != outPlayer.Position {
					continue
				}
				gain := scores[inID] - scores[outID]
				if bestOut < 0 || gain > bestGain {
					bestOut, bestIn, bestGain = i, j, gain
				}
			}
		}
		if bestOut < 0 {
			break
		}

		outPlayer, _ := catalog.Get(removable[bestOut])
		inPlayer, _ := catalog.Get(addable[bestIn])
		out = append(out, models.Transfer{
			OutID:      outPlayer.ID,
			OutName:    outPlayer.Name,
			InID:       inPlayer.ID,
			InName:     inPlayer.Name,
			Position:   outPlayer.Position,
			OutCost:    outPlayer.Cost,
			InCost:     inPlayer.Cost,
			CostDelta:  inPlayer.Cost - outPlayer.Cost,
			PointsGain: bestGain,
		})
		removable[bestOut] = 0
		addable[bestIn] = 0
	}

	return out, nil
}

// difference returns the ids of a that are not in b, in a's order, without
// duplicates and restricted to the catalog.
func difference(a, b []int, catalog *models.Catalog) []int {
	exclude := make(map[int]bool, len(b))
	for _, id := range b {
		exclude[id] = true
	}
	seen := make(map[int]bool, len(a))
	var out []int
	for _, id := range a {
		if exclude[id] || seen[id] || id == 0 || !catalog.Has(id) {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// Summary totals a set of transfers against the free transfers available.
type Summary struct {
	Count         int     `json:"count"`
	CostDelta     float64 `json:"cost_delta"`
	PointsGain    float64 `json:"points_gain"`
	Hits          int     `json:"hits"`
	HitPenalty    float64 `json:"hit_penalty"`
	NetPointsGain float64 `json:"net_points_gain"`
	BankAfter     float64 `json:"bank_after"`
	Affordable    bool    `json:"affordable"`
}

func Summarize(ts []models.Transfer, freeTransfers int, bank float64) Summary {
	s := Summary{Count: len(ts)}
	for _, t := range ts {
		s.CostDelta += t.CostDelta
		s.PointsGain += t.PointsGain
	}
	if extra := len(ts) - freeTransfers; extra > 0 {
		s.Hits = extra
		s.HitPenalty = float64(extra * HitCost)
	}
	s.NetPointsGain = s.PointsGain - s.HitPenalty
	s.BankAfter = bank - s.CostDelta
	s.Affordable = s.BankAfter >= -1e-9
	return s
}
