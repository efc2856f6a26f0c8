package main

import (
	"context"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/stitts-dev/fpl-optimizer/internal/forecast"
	"github.com/stitts-dev/fpl-optimizer/internal/providers"
	"github.com/stitts-dev/fpl-optimizer/internal/services"
	"github.com/stitts-dev/fpl-optimizer/internal/strategy"
	"github.com/stitts-dev/fpl-optimizer/pkg/config"
	"github.com/stitts-dev/fpl-optimizer/pkg/logger"
)

var (
	flagMethod       string
	flagGameweek     int
	flagRobust       bool
	flagStrategy     string
	flagNoSquad      bool
	flagMaxTransfers int
	flagSquadFile    string
	flagFormat       string
	flagNoCache      bool
	flagBudget       float64
)

var rootCmd = &cobra.Command{
	Use:   "fplopt",
	Short: "Fantasy Premier League starting eleven optimizer",
	Long: `fplopt scores every FPL player with the Composite Player Value, applies a
rank strategy, and selects the optimal starting eleven and captain under the
budget, formation and three-per-team rules.`,
	SilenceUsage: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagMethod, "method", "", "Forecast method (default from FORECAST_METHOD)")
	pf.IntVar(&flagGameweek, "gameweek", 0, "Gameweek to run for (0 = current)")
	pf.BoolVar(&flagRobust, "robust", false, "Maximize the pessimistic score instead of the point estimate")
	pf.StringVar(&flagStrategy, "strategy", "", "Rank strategy: standard|rank_protection|rank_climbing (default from STRATEGY)")
	pf.StringVar(&flagSquadFile, "squad", "data/my_squad.json", "Path to the current squad JSON file")
	pf.StringVar(&flagFormat, "format", "table", "Output format (table|json)")
	pf.BoolVar(&flagNoCache, "no-cache", false, "Bypass the redis cache for FPL API responses")
	pf.Float64Var(&flagBudget, "budget", 0, "Starting eleven budget in millions (default from STARTING_11_BUDGET)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// environment is what every pipeline command is built on.
type environment struct {
	cfg       *config.Config
	log       *logrus.Logger
	gameweeks *services.GameweekService
	cleanup   func()
}

func newEnvironment(ctx context.Context) (*environment, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	log := logger.InitLoggerTo(os.Stderr, cfg.LogLevel, cfg.IsDevelopment())

	env := &environment{cfg: cfg, log: log, cleanup: func() {}}

	var cache providers.CacheProvider
	if cfg.EnableCaching && !flagNoCache {
		if client, err := connectRedis(ctx, cfg.RedisURL); err != nil {
			log.WithError(err).Warn("Redis unavailable, fetching FPL data without a cache")
		} else {
			cache = services.NewCacheService(client)
			env.cleanup = func() { client.Close() }
		}
	}

	fplClient := providers.NewFPLClient(providers.ConfigFromAppConfig(cfg), cache, logger.WithService("fpl-client"))
	env.gameweeks = services.NewGameweekService(fplClient, nil, nil, services.PipelineConfigFromConfig(cfg), logger.WithService("gameweek"))
	return env, nil
}

func connectRedis(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

// runRequest assembles a pipeline request from flags and configuration.
func (e *environment) runRequest(squad bool) (services.RunRequest, error) {
	method := flagMethod
	if method == "" {
		method = e.cfg.ForecastMethod
	}
	mode := flagStrategy
	if mode == "" {
		mode = e.cfg.Strategy
	}
	req := services.RunRequest{
		Gameweek: flagGameweek,
		Method:   forecast.Method(method),
		Strategy: strategy.Mode(mode),
		Robust:   flagRobust,
		Budget:   flagBudget,
	}

	if squad {
		s, err := readSquadFile(flagSquadFile)
		if err != nil {
			return req, err
		}
		req.Squad = s
	}
	return req, nil
}
