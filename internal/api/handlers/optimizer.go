package handlers

import (
	"context"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/fpl-optimizer/internal/cpv"
	"github.com/stitts-dev/fpl-optimizer/internal/models"
	"github.com/stitts-dev/fpl-optimizer/internal/optimizer"
	"github.com/stitts-dev/fpl-optimizer/internal/services"
	"github.com/stitts-dev/fpl-optimizer/internal/strategy"
	"github.com/stitts-dev/fpl-optimizer/internal/transfers"
	"github.com/stitts-dev/fpl-optimizer/pkg/metrics"
	"github.com/stitts-dev/fpl-optimizer/pkg/utils"
)

// OptimizerHandler exposes the stateless scoring, selection and transfer
// operations. Callers supply the player pool in the request.
type OptimizerHandler struct {
	cache     *services.CacheService
	defaults  services.PipelineConfig
	resultTTL time.Duration
	logger    *logrus.Entry
}

// NewOptimizerHandler builds the handler. cache may be nil to disable result caching.
func NewOptimizerHandler(cache *services.CacheService, defaults services.PipelineConfig, resultTTL time.Duration, logger *logrus.Entry) *OptimizerHandler {
	return &OptimizerHandler{
		cache:     cache,
		defaults:  defaults,
		resultTTL: resultTTL,
		logger:    logger,
	}
}

type CPVRequest struct {
	Players           []models.Player `json:"players" binding:"required"`
	Forecast          map[int]float64 `json:"forecast"`
	FixtureDifficulty map[int]int     `json:"fixture_difficulty"`
	Weights           *cpv.Weights    `json:"weights"`
	Strategy          string          `json:"strategy"`
}

type PlayerScore struct {
	PlayerID  int             `json:"player_id"`
	Name      string          `json:"name"`
	Position  models.Position `json:"position"`
	Ownership float64         `json:"ownership"`
	Tier      string          `json:"tier"`
	Score     float64         `json:"score"`
	Breakdown cpv.Breakdown   `json:"breakdown"`
}

// ScoreCPV computes CPV for the supplied players and applies the strategy overlay.
func (h *OptimizerHandler) ScoreCPV(c *gin.Context) {
	var req CPVRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid request body", err.Error())
		return
	}

	mode, err := strategy.ParseMode(req.Strategy)
	if err != nil {
		utils.SendValidationError(c, "Invalid strategy", err.Error())
		return
	}
	catalog, err := models.NewCatalog(req.Players)
	if err != nil {
		respondError(c, err)
		return
	}

	weights := h.defaults.Weights
	if req.Weights != nil {
		weights = *req.Weights
	}

	breakdowns := cpv.ComputeBreakdown(catalog, req.Forecast, req.FixtureDifficulty, weights)
	raw := make(map[int]float64, len(breakdowns))
	for id, b := range breakdowns {
		raw[id] = b.CPV
	}
	adjusted := strategy.Apply(raw, catalog, mode)

	out := make([]PlayerScore, 0, catalog.Len())
	for _, p := range catalog.Players() {
		out = append(out, PlayerScore{
			PlayerID:  p.ID,
			Name:      p.Name,
			Position:  p.Position,
			Ownership: strategy.Ownership(p),
			Tier:      strategy.Tier(p),
			Score:     adjusted[p.ID],
			Breakdown: breakdowns[p.ID],
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].PlayerID < out[j].PlayerID
	})

	utils.SendSuccessWithMeta(c, out, &utils.Meta{Total: int64(len(out))})
}

type OptimizeRequest struct {
	Players           []models.Player `json:"players"`
	Scores            map[int]float64 `json:"scores" binding:"required"`
	Budget            *float64        `json:"budget" binding:"omitempty,min=0"`
	Robust            bool            `json:"robust"`
	UncertaintyMargin float64         `json:"uncertainty_margin" binding:"min=0,lt=1"`
	ForceInclude      []int           `json:"force_include"`
	ForceExclude      []int           `json:"force_exclude"`
}

// Optimize selects the best eleven from the supplied pool. Identical requests
// are served from the cache.
func (h *OptimizerHandler) Optimize(c *gin.Context) {
	start := time.Now()

	var req OptimizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid request body", err.Error())
		return
	}

	budget := h.defaults.Budget
	if req.Budget != nil {
		budget = *req.Budget
	}
	margin := req.UncertaintyMargin
	if margin == 0 {
		margin = h.defaults.UncertaintyMargin
	}

	ctx := c.Request.Context()
	var cacheKey string
	if h.cache != nil {
		key, err := services.OptimizationCacheKey(req)
		if err == nil {
			cacheKey = key
			var cached models.Roster
			if err := h.cache.Get(ctx, cacheKey, &cached); err == nil {
				metrics.CacheLookups.WithLabelValues("optimization", "hit").Inc()
				utils.SendSuccessWithMeta(c, cached, &utils.Meta{Cached: true, Duration: time.Since(start).String()})
				return
			}
			metrics.CacheLookups.WithLabelValues("optimization", "miss").Inc()
		}
	}

	catalog, err := models.NewCatalog(req.Players)
	if err != nil {
		respondError(c, err)
		return
	}

	solveCtx := ctx
	if h.defaults.SolverTimeout > 0 {
		var cancel context.CancelFunc
		solveCtx, cancel = context.WithTimeout(ctx, h.defaults.SolverTimeout)
		defer cancel()
	}

	roster, err := optimizer.Optimize(solveCtx, catalog, req.Scores, optimizer.Options{
		Budget:            budget,
		Robust:            req.Robust,
		UncertaintyMargin: margin,
		ForceInclude:      req.ForceInclude,
		ForceExclude:      req.ForceExclude,
		NodeLimit:         h.defaults.NodeLimit,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	if cacheKey != "" {
		if err := h.cache.SetWithRetry(ctx, cacheKey, roster, h.resultTTL, 3); err != nil {
			h.logger.WithError(err).Warn("Failed to cache optimization result")
		}
	}

	utils.SendSuccessWithMeta(c, roster, &utils.Meta{Duration: time.Since(start).String()})
}

type TransfersRequest struct {
	Players       []models.Player `json:"players" binding:"required"`
	Scores        map[int]float64 `json:"scores" binding:"required"`
	CurrentIDs    []int           `json:"current_ids" binding:"required"`
	TargetIDs     []int           `json:"target_ids" binding:"required"`
	MaxTransfers  int             `json:"max_transfers"`
	FreeTransfers *int            `json:"free_transfers"`
	Bank          float64         `json:"bank"`
}

type TransfersResponse struct {
	Transfers []models.Transfer `json:"transfers"`
	Summary   transfers.Summary `json:"summary"`
}

// RecommendTransfers pairs the current selection with a target selection.
func (h *OptimizerHandler) RecommendTransfers(c *gin.Context) {
	var req TransfersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid request body", err.Error())
		return
	}

	catalog, err := models.NewCatalog(req.Players)
	if err != nil {
		respondError(c, err)
		return
	}

	ts, err := transfers.Recommend(req.CurrentIDs, req.TargetIDs, catalog, req.Scores, req.MaxTransfers)
	if err != nil {
		respondError(c, err)
		return
	}

	free := h.defaults.FreeTransfers
	if req.FreeTransfers != nil {
		free = *req.FreeTransfers
	}
	utils.SendSuccess(c, TransfersResponse{
		Transfers: ts,
		Summary:   transfers.Summarize(ts, free, req.Bank),
	})
}
