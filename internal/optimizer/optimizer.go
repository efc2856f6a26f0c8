// Package optimizer selects the best legal FPL starting eleven and its captain
// under a budget, solved exactly by branch and bound.
package optimizer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/fpl-optimizer/internal/models"
	"github.com/stitts-dev/fpl-optimizer/pkg/logger"
	"github.com/stitts-dev/fpl-optimizer/pkg/metrics"
)

// Optimize returns the roster maximizing total score with the captain counted
// twice. It returns an error wrapping models.ErrInfeasibleModel when no legal
// roster exists and models.ErrSolverLimit when the context or node limit stops
// the search first; it never returns a partial roster.
func Optimize(ctx context.Context, catalog *models.Catalog, scores map[int]float64, opts Options) (*models.Roster, error) {
	roster, _, err := OptimizeWithStats(ctx, catalog, scores, opts)
	return roster, err
}

func OptimizeWithStats(ctx context.Context, catalog *models.Catalog, scores map[int]float64, opts Options) (*models.Roster, SolveStats, error) {
	optimizationID := uuid.New().String()
	start := time.Now()
	mode := opts.Mode()

	log := logger.WithOptimizationContext(optimizationID, opts.Robust, opts.Budget)

	model, err := BuildModel(catalog, scores, opts)
	if err != nil {
		metrics.OptimizationsTotal.WithLabelValues(mode, outcome(err)).Inc()
		return nil, SolveStats{}, err
	}

	log.WithFields(logrus.Fields{
		"candidates": len(model.Variables),
		"excluded":   len(model.Excluded),
		"forced":     model.ForcedCount(),
		"margin":     model.Margin,
	}).Debug("Starting optimization")

	s, pruned := newSolver(ctx, model, opts.NodeLimit)
	selected, objective, err := s.solve()
	stats := SolveStats{Nodes: s.nodes, Candidates: len(s.vars), Pruned: pruned}

	metrics.SolveDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
	metrics.SolverNodes.Observe(float64(s.nodes))
	metrics.OptimizationsTotal.WithLabelValues(mode, outcome(err)).Inc()

	if err != nil {
		log.WithError(err).WithField("nodes", s.nodes).Warn("Optimization failed")
		if errors.Is(err, models.ErrInfeasibleModel) {
			return nil, stats, fmt.Errorf("%w: no roster satisfies budget %.1f with the given constraints", models.ErrInfeasibleModel, opts.Budget)
		}
		return nil, stats, err
	}

	roster := buildRoster(selected, objective, model)
	if err := model.Constraints.ValidateRoster(roster.Players); err != nil {
		return nil, stats, fmt.Errorf("solver produced an invalid roster: %w", err)
	}

	log.WithFields(logrus.Fields{
		"formation":  roster.Formation,
		"captain_id": roster.CaptainID,
		"total_cost": roster.TotalCost,
		"objective":  roster.ObjectiveValue,
		"nodes":      stats.Nodes,
		"pruned":     stats.Pruned,
		"elapsed_ms": time.Since(start).Milliseconds(),
	}).Info("Optimization completed")

	return roster, stats, nil
}

func buildRoster(selected []Variable, objective float64, model *Model) *models.Roster {
	captain := selected[0]
	players := make([]models.Player, len(selected))
	scores := make(map[int]float64, len(selected))
	total, cost := 0.0, 0.0
	for i, v := range selected {
		players[i] = v.Player
		scores[v.Player.ID] = v.Score
		total += v.Score
		cost += v.Player.Cost
	}
	models.SortForDisplay(players, scores)

	return &models.Roster{
		Players:         players,
		CaptainID:       captain.Player.ID,
		TotalCost:       roundCost(cost),
		TotalScore:      total + captain.Score,
		ObjectiveValue:  objective,
		BudgetRemaining: roundCost(model.Constraints.Budget - cost),
		Formation:       models.FormationString(players),
		Robust:          model.Robust,
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "optimal"
	case errors.Is(err, models.ErrInfeasibleModel):
		return "infeasible"
	case errors.Is(err, models.ErrSolverLimit):
		return "limit"
	default:
		return "error"
	}
}
