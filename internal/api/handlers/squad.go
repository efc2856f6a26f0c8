package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/stitts-dev/fpl-optimizer/internal/forecast"
	"github.com/stitts-dev/fpl-optimizer/internal/models"
	"github.com/stitts-dev/fpl-optimizer/internal/services"
	"github.com/stitts-dev/fpl-optimizer/internal/strategy"
	"github.com/stitts-dev/fpl-optimizer/pkg/utils"
)

type SquadHandler struct {
	squads    *services.SquadStore
	gameweeks *services.GameweekService
}

func NewSquadHandler(squads *services.SquadStore, gameweeks *services.GameweekService) *SquadHandler {
	return &SquadHandler{
		squads:    squads,
		gameweeks: gameweeks,
	}
}

func (h *SquadHandler) GetSquad(c *gin.Context) {
	id, ok := squadParam(c)
	if !ok {
		return
	}

	squad, err := h.squads.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SendSuccess(c, squad)
}

type UpdateSquadRequest struct {
	Name          string  `json:"name"`
	Bank          float64 `json:"bank" binding:"min=0"`
	FreeTransfers int     `json:"free_transfers" binding:"min=0,max=5"`
	Players       []struct {
		PlayerID int     `json:"player_id"`
		Name     string  `json:"name" binding:"required"`
		Position string  `json:"position"`
		TeamName string  `json:"team_name"`
		Cost     float64 `json:"cost"`
	} `json:"players" binding:"required,max=15,dive"`
}

// UpdateSquad creates or replaces the squad stored under :id.
func (h *SquadHandler) UpdateSquad(c *gin.Context) {
	id, ok := squadParam(c)
	if !ok {
		return
	}

	var req UpdateSquadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid request body", err.Error())
		return
	}

	squad := &models.Squad{
		ID:            id,
		Name:          req.Name,
		Bank:          req.Bank,
		FreeTransfers: req.FreeTransfers,
	}
	for _, p := range req.Players {
		position := p.Position
		if position != "" {
			parsed, err := models.ParsePosition(position)
			if err != nil {
				utils.SendValidationError(c, "Invalid position", err.Error())
				return
			}
			position = string(parsed)
		}
		squad.Players = append(squad.Players, models.SquadPlayer{
			PlayerID: p.PlayerID,
			Name:     p.Name,
			Position: position,
			TeamName: p.TeamName,
			Cost:     p.Cost,
		})
	}

	if err := h.squads.Save(c.Request.Context(), squad); err != nil {
		respondError(c, err)
		return
	}
	utils.SendSuccess(c, squad)
}

// SuggestTransfers recommends swaps from the stored squad towards the optimal eleven.
func (h *SquadHandler) SuggestTransfers(c *gin.Context) {
	id, ok := squadParam(c)
	if !ok {
		return
	}

	maxTransfers := 1
	if raw := c.Query("max_transfers"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			utils.SendValidationError(c, "Invalid max_transfers", raw)
			return
		}
		maxTransfers = n
	}
	gameweek := 0
	if raw := c.Query("gameweek"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			utils.SendValidationError(c, "Invalid gameweek", raw)
			return
		}
		gameweek = n
	}

	squad, err := h.squads.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	plan, err := h.gameweeks.SuggestTransfers(c.Request.Context(), services.TransferRequest{
		RunRequest: services.RunRequest{
			Gameweek: gameweek,
			Method:   forecast.Method(c.Query("method")),
			Strategy: strategy.Mode(c.Query("strategy")),
			Robust:   c.Query("robust") == "true",
			Squad:    squad,
		},
		MaxTransfers: maxTransfers,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SendSuccess(c, plan)
}
