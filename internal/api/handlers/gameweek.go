package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/stitts-dev/fpl-optimizer/internal/forecast"
	"github.com/stitts-dev/fpl-optimizer/internal/services"
	"github.com/stitts-dev/fpl-optimizer/internal/strategy"
	"github.com/stitts-dev/fpl-optimizer/pkg/utils"
)

type GameweekHandler struct {
	gameweeks *services.GameweekService
	results   *services.ResultStore
	squads    *services.SquadStore
}

func NewGameweekHandler(gameweeks *services.GameweekService, results *services.ResultStore, squads *services.SquadStore) *GameweekHandler {
	return &GameweekHandler{
		gameweeks: gameweeks,
		results:   results,
		squads:    squads,
	}
}

type RunGameweekRequest struct {
	Gameweek          int      `json:"gameweek" binding:"min=0,max=38"`
	Method            string   `json:"method"`
	Methods           []string `json:"methods"`
	Strategy          string   `json:"strategy"`
	Robust            bool     `json:"robust"`
	UncertaintyMargin float64  `json:"uncertainty_margin" binding:"min=0,lt=1"`
	Budget            float64  `json:"budget" binding:"min=0"`
	ForceInclude      []int    `json:"force_include"`
	ForceExclude      []int    `json:"force_exclude"`
	SquadID           uint     `json:"squad_id"`
	ConstrainToSquad  bool     `json:"constrain_to_squad"`
	Persist           *bool    `json:"persist"`
}

// toRunRequest loads the referenced squad. Runs persist unless told otherwise.
func (h *GameweekHandler) toRunRequest(c *gin.Context, req RunGameweekRequest) (services.RunRequest, error) {
	run := services.RunRequest{
		Gameweek:          req.Gameweek,
		Method:            forecast.Method(req.Method),
		Strategy:          strategy.Mode(req.Strategy),
		Robust:            req.Robust,
		UncertaintyMargin: req.UncertaintyMargin,
		Budget:            req.Budget,
		ForceInclude:      req.ForceInclude,
		ForceExclude:      req.ForceExclude,
		ConstrainToSquad:  req.ConstrainToSquad,
		Persist:           req.Persist == nil || *req.Persist,
	}
	if req.SquadID != 0 && h.squads != nil {
		squad, err := h.squads.Get(c.Request.Context(), req.SquadID)
		if err != nil {
			return run, err
		}
		run.Squad = squad
	}
	return run, nil
}

// RunGameweek executes the full pipeline for one forecasting method.
func (h *GameweekHandler) RunGameweek(c *gin.Context) {
	var req RunGameweekRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid request body", err.Error())
		return
	}

	run, err := h.toRunRequest(c, req)
	if err != nil {
		respondError(c, err)
		return
	}

	result, err := h.gameweeks.Run(c.Request.Context(), run)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SendSuccessWithMeta(c, result, &utils.Meta{Duration: (time.Duration(result.DurationMS) * time.Millisecond).String()})
}

// CompareMethods runs several forecasting methods side by side.
func (h *GameweekHandler) CompareMethods(c *gin.Context) {
	start := time.Now()

	var req RunGameweekRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid request body", err.Error())
		return
	}

	methods := make([]forecast.Method, 0, len(req.Methods))
	for _, raw := range req.Methods {
		m, err := forecast.ParseMethod(raw)
		if err != nil {
			utils.SendValidationError(c, "Invalid method", err.Error())
			return
		}
		methods = append(methods, m)
	}

	run, err := h.toRunRequest(c, req)
	if err != nil {
		respondError(c, err)
		return
	}

	rows, err := h.gameweeks.CompareMethods(c.Request.Context(), run, methods)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SendSuccessWithMeta(c, rows, &utils.Meta{Total: int64(len(rows)), Duration: time.Since(start).String()})
}

// GetResults lists the stored selections of a gameweek.
func (h *GameweekHandler) GetResults(c *gin.Context) {
	gw, ok := gameweekParam(c)
	if !ok {
		return
	}

	results, err := h.results.ListByGameweek(c.Request.Context(), gw)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SendSuccessWithMeta(c, results, &utils.Meta{Total: int64(len(results))})
}

// RecordActualPoints stores what a persisted selection actually scored.
func (h *GameweekHandler) RecordActualPoints(c *gin.Context) {
	gw, ok := gameweekParam(c)
	if !ok {
		return
	}
	method, err := forecast.ParseMethod(c.Param("method"))
	if err != nil {
		utils.SendValidationError(c, "Invalid method", err.Error())
		return
	}

	var req struct {
		Points *float64 `json:"points" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid request body", err.Error())
		return
	}

	if err := h.results.RecordActualPoints(c.Request.Context(), gw, string(method), *req.Points); err != nil {
		respondError(c, err)
		return
	}
	result, err := h.results.Get(c.Request.Context(), gw, string(method))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SendSuccess(c, result)
}

func gameweekParam(c *gin.Context) (int, bool) {
	gw, err := strconv.Atoi(c.Param("gw"))
	if err != nil || gw < 1 || gw > 38 {
		utils.SendValidationError(c, "Invalid gameweek", c.Param("gw"))
		return 0, false
	}
	return gw, true
}

// squadParam parses the :id path parameter.
func squadParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		utils.SendValidationError(c, "Invalid squad ID", c.Param("id"))
		return 0, false
	}
	return uint(id), true
}
