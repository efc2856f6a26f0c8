package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/fpl-optimizer/internal/api/handlers"
	"github.com/stitts-dev/fpl-optimizer/internal/services"
	"github.com/stitts-dev/fpl-optimizer/internal/websocket"
	"github.com/stitts-dev/fpl-optimizer/pkg/database"
)

// Dependencies are the services the HTTP layer is built on. DB, Cache,
// Scheduler, Hub and Upstream may be nil.
type Dependencies struct {
	DB        *database.DB
	Cache     *services.CacheService
	Gameweeks *services.GameweekService
	Results   *services.ResultStore
	Squads    *services.SquadStore
	Scheduler *services.Scheduler
	Hub       *websocket.Hub
	Upstream  handlers.BreakerReporter
	ResultTTL time.Duration
	Logger    *logrus.Entry
}

// SetupRoutes registers every endpoint on router.
func SetupRoutes(router *gin.Engine, deps Dependencies) {
	healthHandler := handlers.NewHealthHandler(deps.DB, deps.Cache, deps.Scheduler, deps.Upstream)
	optimizerHandler := handlers.NewOptimizerHandler(deps.Cache, deps.Gameweeks.Config(), deps.ResultTTL, deps.Logger)
	gameweekHandler := handlers.NewGameweekHandler(deps.Gameweeks, deps.Results, deps.Squads)
	squadHandler := handlers.NewSquadHandler(deps.Squads, deps.Gameweeks)

	router.GET("/health", healthHandler.GetHealth)
	router.GET("/ready", healthHandler.GetReady)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if deps.Hub != nil {
		router.GET("/ws/runs", deps.Hub.HandleWebSocket)
	}

	v1 := router.Group("/api/v1")

	// Stateless operations on a caller supplied player pool
	v1.POST("/cpv", optimizerHandler.ScoreCPV)
	v1.POST("/optimize", optimizerHandler.Optimize)
	v1.POST("/transfers", optimizerHandler.RecommendTransfers)

	// Pipeline runs against live FPL data
	v1.POST("/gameweeks/run", gameweekHandler.RunGameweek)
	v1.POST("/gameweeks/compare", gameweekHandler.CompareMethods)
	if deps.Results != nil {
		v1.GET("/gameweeks/:gw/results", gameweekHandler.GetResults)
		v1.PUT("/gameweeks/:gw/results/:method/actual", gameweekHandler.RecordActualPoints)
	}

	if deps.Squads != nil {
		v1.GET("/squads/:id", squadHandler.GetSquad)
		v1.PUT("/squads/:id", squadHandler.UpdateSquad)
		v1.GET("/squads/:id/transfers", squadHandler.SuggestTransfers)
	}

	v1.GET("/scheduler", healthHandler.GetSchedulerStatus)
}
