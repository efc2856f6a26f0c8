package handlers

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/sony/gobreaker"

	"github.com/stitts-dev/fpl-optimizer/internal/models"
	"github.com/stitts-dev/fpl-optimizer/internal/services"
	"github.com/stitts-dev/fpl-optimizer/pkg/utils"
)

// respondError maps domain errors onto API error codes.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)

	switch {
	case errors.Is(err, models.ErrInfeasibleModel):
		utils.SendInfeasible(c, "No roster satisfies the constraints", err.Error())
	case errors.Is(err, models.ErrSolverLimit), errors.Is(err, context.DeadlineExceeded):
		utils.SendSolverLimit(c, "Solver stopped before proving optimality")
	case errors.Is(err, models.ErrDegenerateInput),
		errors.Is(err, models.ErrInvalidTransferRequest),
		errors.Is(err, models.ErrDuplicatePlayer),
		errors.Is(err, models.ErrUnknownPlayerPosition),
		errors.Is(err, services.ErrNoSquad):
		utils.SendValidationError(c, "Invalid request", err.Error())
	case errors.Is(err, services.ErrSquadNotFound):
		utils.SendNotFound(c, "Squad not found")
	case errors.Is(err, services.ErrResultNotFound):
		utils.SendNotFound(c, "Gameweek result not found")
	case errors.Is(err, services.ErrUpstream), errors.Is(err, gobreaker.ErrOpenState):
		utils.SendUpstreamError(c, "FPL data is currently unavailable")
	default:
		utils.SendInternalError(c, "Internal server error")
	}
}
