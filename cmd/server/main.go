package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/fpl-optimizer/internal/api"
	"github.com/stitts-dev/fpl-optimizer/internal/api/middleware"
	"github.com/stitts-dev/fpl-optimizer/internal/forecast"
	"github.com/stitts-dev/fpl-optimizer/internal/models"
	"github.com/stitts-dev/fpl-optimizer/internal/providers"
	"github.com/stitts-dev/fpl-optimizer/internal/services"
	"github.com/stitts-dev/fpl-optimizer/internal/strategy"
	"github.com/stitts-dev/fpl-optimizer/internal/websocket"
	"github.com/stitts-dev/fpl-optimizer/pkg/config"
	"github.com/stitts-dev/fpl-optimizer/pkg/database"
	"github.com/stitts-dev/fpl-optimizer/pkg/logger"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	log := logger.InitLogger(cfg.LogLevel, cfg.IsDevelopment())
	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewConnection(cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to parse Redis URL: %v", err)
	}
	redisClient := redis.NewClient(opt)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	cacheService := services.NewCacheService(redisClient)

	var upstreamCache providers.CacheProvider
	if cfg.EnableCaching {
		upstreamCache = cacheService
	}
	fplClient := providers.NewFPLClient(providers.ConfigFromAppConfig(cfg), upstreamCache, logger.WithService("fpl-client"))

	hub := websocket.NewHub(logger.WithService("websocket"))
	go hub.Run(ctx)

	resultStore := services.NewResultStore(db)
	squadStore := services.NewSquadStore(db)
	gameweeks := services.NewGameweekService(fplClient, resultStore, hub,
		services.PipelineConfigFromConfig(cfg), logger.WithService("gameweek"))

	var scheduler *services.Scheduler
	if cfg.EnableScheduler {
		method, err := forecast.ParseMethod(cfg.ForecastMethod)
		if err != nil {
			log.Fatalf("Invalid FORECAST_METHOD: %v", err)
		}
		mode, err := strategy.ParseMode(cfg.Strategy)
		if err != nil {
			log.Fatalf("Invalid STRATEGY: %v", err)
		}
		scheduler = services.NewScheduler(gameweeks, squadStore, resultStore, cacheService, services.SchedulerConfig{
			Spec:         cfg.ScheduleCron,
			SquadID:      cfg.DefaultSquadID,
			Method:       method,
			Strategy:     mode,
			MaxTransfers: cfg.FreeTransfers,
		}, logger.WithService("scheduler"))
		if err := scheduler.Start(); err != nil {
			log.Errorf("Failed to start scheduler: %v", err)
		}
		defer scheduler.Stop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.CORS())

	var optimizationCache *services.CacheService
	if cfg.EnableCaching {
		optimizationCache = cacheService
	}
	api.SetupRoutes(router, api.Dependencies{
		DB:        db,
		Cache:     optimizationCache,
		Gameweeks: gameweeks,
		Results:   resultStore,
		Squads:    squadStore,
		Scheduler: scheduler,
		Hub:       hub,
		Upstream:  fplClient,
		ResultTTL: cfg.ResultTTL,
		Logger:    logger.WithService("api"),
	})

	for _, route := range router.Routes() {
		log.Debugf("%s %s", route.Method, route.Path)
	}

	srv := &http.Server{
		Addr:        fmt.Sprintf(":%s", cfg.Port),
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// Gameweek runs fetch every player's history before solving.
		WriteTimeout: cfg.SolverTimeout + 5*time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infof("Starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Server forced to shutdown: %v", err)
	}

	log.Info("Server exited")
}
