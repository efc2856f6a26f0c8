package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stitts-dev/fpl-optimizer/internal/cpv"
	"github.com/stitts-dev/fpl-optimizer/internal/forecast"
	"github.com/stitts-dev/fpl-optimizer/internal/models"
	"github.com/stitts-dev/fpl-optimizer/internal/optimizer"
	"github.com/stitts-dev/fpl-optimizer/internal/providers"
	"github.com/stitts-dev/fpl-optimizer/internal/strategy"
	"github.com/stitts-dev/fpl-optimizer/internal/transfers"
	"github.com/stitts-dev/fpl-optimizer/internal/websocket"
	"github.com/stitts-dev/fpl-optimizer/pkg/config"
	"github.com/stitts-dev/fpl-optimizer/pkg/logger"
	"github.com/stitts-dev/fpl-optimizer/pkg/metrics"
)

var (
	ErrNoSquad = errors.New("no squad players matched the catalog")
	// ErrUpstream marks failures of the player data source.
	ErrUpstream = errors.New("upstream data unavailable")
)

// PipelineConfig holds the knobs shared by every gameweek run.
type PipelineConfig struct {
	Budget             float64
	UncertaintyMargin  float64
	Weights            cpv.Weights
	Draws              int
	Seed               int64
	RidgeAlpha         float64
	TotalGameweeks     int
	Horizon            int // 0 averages over the rest of the season
	HistoryParallelism int
	SolverTimeout      time.Duration
	NodeLimit          int64
	FreeTransfers      int
}

func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Budget:             100,
		UncertaintyMargin:  optimizer.DefaultUncertaintyMargin,
		Weights:            cpv.DefaultWeights(),
		Draws:              forecast.DefaultDraws,
		Seed:               42,
		RidgeAlpha:         forecast.DefaultRidgeAlpha,
		TotalGameweeks:     38,
		HistoryParallelism: 8,
		SolverTimeout:      60 * time.Second,
		FreeTransfers:      1,
	}
}

func PipelineConfigFromConfig(cfg *config.Config) PipelineConfig {
	pc := DefaultPipelineConfig()
	pc.Budget = cfg.Budget
	pc.UncertaintyMargin = cfg.UncertaintyMargin
	pc.Weights = cpv.Weights{
		XP:            cfg.WeightXP,
		Fixture:       cfg.WeightFixture,
		Value:         cfg.WeightValue,
		Status:        cfg.WeightStatus,
		ValueCap:      cfg.ValueCap,
		CeilingCap:    cfg.CeilingCap,
		VetoThreshold: cfg.VetoThreshold,
	}
	if cfg.MonteCarloDraws > 0 {
		pc.Draws = cfg.MonteCarloDraws
	}
	if cfg.RidgeAlpha > 0 {
		pc.RidgeAlpha = cfg.RidgeAlpha
	}
	if cfg.TotalGameweeks > 0 {
		pc.TotalGameweeks = cfg.TotalGameweeks
	}
	pc.Horizon = cfg.ForecastHorizon
	if cfg.HistoryFetchParallel > 0 {
		pc.HistoryParallelism = cfg.HistoryFetchParallel
	}
	if cfg.SolverTimeout > 0 {
		pc.SolverTimeout = cfg.SolverTimeout
	}
	pc.NodeLimit = cfg.SolverNodeLimit
	pc.FreeTransfers = cfg.FreeTransfers
	return pc
}

// ResultRecorder persists finished runs.
type ResultRecorder interface {
	Save(ctx context.Context, result *models.GameweekResult) error
}

// EventPublisher receives run progress events.
type EventPublisher interface {
	Publish(event websocket.Event)
}

type RunRequest struct {
	Gameweek          int             `json:"gameweek"` // 0 resolves the current gameweek
	Method            forecast.Method `json:"method"`
	Strategy          strategy.Mode   `json:"strategy"`
	Robust            bool            `json:"robust"`
	UncertaintyMargin float64         `json:"uncertainty_margin,omitempty"`
	Budget            float64         `json:"budget,omitempty"`
	ForceInclude      []int           `json:"force_include,omitempty"`
	ForceExclude      []int           `json:"force_exclude,omitempty"`
	ConstrainToSquad  bool            `json:"constrain_to_squad"`
	Persist           bool            `json:"persist"`
	Squad             *models.Squad   `json:"-"`
}

type RunResult struct {
	RunID            string          `json:"run_id"`
	Gameweek         int             `json:"gameweek"`
	Method           forecast.Method `json:"method"`
	Strategy         strategy.Mode   `json:"strategy"`
	Roster           *models.Roster  `json:"roster"`
	SquadConstrained bool            `json:"squad_constrained"`
	Candidates       int             `json:"candidates"`
	DurationMS       int64           `json:"duration_ms"`

	Scores  map[int]float64 `json:"-"`
	Catalog *models.Catalog `json:"-"`
}

// MethodComparison is one row of a side-by-side method run.
type MethodComparison struct {
	Method         forecast.Method `json:"method"`
	RunID          string          `json:"run_id,omitempty"`
	ExpectedPoints float64         `json:"expected_points"`
	Roster         *models.Roster  `json:"roster,omitempty"`
	Error          string          `json:"error,omitempty"`
}

type TransferRequest struct {
	RunRequest
	MaxTransfers int `json:"max_transfers"`
}

type TransferPlan struct {
	Run        *RunResult        `json:"run"`
	CurrentIDs []int             `json:"current_ids"`
	Transfers  []models.Transfer `json:"transfers"`
	Summary    transfers.Summary `json:"summary"`
}

// GameweekService runs the catalog, forecast, CPV, strategy and optimizer
// stages for one gameweek.
type GameweekService struct {
	source  providers.DataSource
	results ResultRecorder
	events  EventPublisher
	cfg     PipelineConfig
	logger  *logrus.Entry
}

// NewGameweekService wires the pipeline. results and events may be nil.
func NewGameweekService(source providers.DataSource, results ResultRecorder, events EventPublisher, cfg PipelineConfig, logger *logrus.Entry) *GameweekService {
	return &GameweekService{
		source:  source,
		results: results,
		events:  events,
		cfg:     cfg,
		logger:  logger,
	}
}

func (s *GameweekService) Config() PipelineConfig {
	return s.cfg
}

// snapshot is the upstream data one or more methods are scored against.
type snapshot struct {
	gameweek   int
	catalog    *models.Catalog
	difficulty map[int]int
	histories  map[int][]float64
}

func (s *GameweekService) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	req, err := s.normalize(req)
	if err != nil {
		return nil, err
	}

	snap, err := s.loadSnapshot(ctx, req.Gameweek, req.Method.UsesHistory())
	if err != nil {
		metrics.GameweekRuns.WithLabelValues(string(req.Method), string(req.Strategy), "error").Inc()
		return nil, err
	}
	return s.runMethod(ctx, snap, req, req.Method)
}

// CompareMethods scores the same snapshot with every method concurrently and
// ranks the resulting selections by expected points. A failing method is
// reported in its row rather than failing the comparison.
func (s *GameweekService) CompareMethods(ctx context.Context, req RunRequest, methods []forecast.Method) ([]MethodComparison, error) {
	req, err := s.normalize(req)
	if err != nil {
		return nil, err
	}
	if len(methods) == 0 {
		methods = forecast.CompareMethods
	}

	needHistory := false
	for _, m := range methods {
		needHistory = needHistory || m.UsesHistory()
	}
	snap, err := s.loadSnapshot(ctx, req.Gameweek, needHistory)
	if err != nil {
		return nil, err
	}

	rows := make([]MethodComparison, len(methods))
	var wg sync.WaitGroup
	for i, method := range methods {
		wg.Add(1)
		go func(i int, method forecast.Method) {
			defer wg.Done()
			row := MethodComparison{Method: method}
			result, err := s.runMethod(ctx, snap, req, method)
			if err != nil {
				row.Error = err.Error()
			} else {
				row.RunID = result.RunID
				row.Roster = result.Roster
				row.ExpectedPoints = result.Roster.TotalScore
			}
			rows[i] = row
		}(i, method)
	}
	wg.Wait()

	sort.SliceStable(rows, func(i, j int) bool {
		if (rows[i].Error == "") != (rows[j].Error == "") {
			return rows[i].Error == ""
		}
		return rows[i].ExpectedPoints > rows[j].ExpectedPoints
	})
	return rows, nil
}

// SuggestTransfers optimizes without the squad constraint and pairs the
// squad's players with the optimal eleven.
func (s *GameweekService) SuggestTransfers(ctx context.Context, req TransferRequest) (*TransferPlan, error) {
	if req.Squad == nil {
		return nil, ErrNoSquad
	}
	if req.MaxTransfers < 0 {
		return nil, fmt.Errorf("%w: max transfers %d", models.ErrInvalidTransferRequest, req.MaxTransfers)
	}

	run := req.RunRequest
	run.ConstrainToSquad = false
	run.Persist = false
	result, err := s.Run(ctx, run)
	if err != nil {
		return nil, err
	}

	current := ResolveSquad(req.Squad, result.Catalog, s.logger)
	if len(current) == 0 {
		return nil, ErrNoSquad
	}

	ts, err := transfers.Recommend(current, result.Roster.PlayerIDs(), result.Catalog, result.Scores, req.MaxTransfers)
	if err != nil {
		return nil, err
	}

	free := req.Squad.FreeTransfers
	if free <= 0 {
		free = s.cfg.FreeTransfers
	}
	return &TransferPlan{
		Run:        result,
		CurrentIDs: current,
		Transfers:  ts,
		Summary:    transfers.Summarize(ts, free, req.Squad.Bank),
	}, nil
}

func (s *GameweekService) normalize(req RunRequest) (RunRequest, error) {
	method, err := forecast.ParseMethod(string(req.Method))
	if err != nil {
		return req, fmt.Errorf("%w: %v", models.ErrDegenerateInput, err)
	}
	mode, err := strategy.ParseMode(string(req.Strategy))
	if err != nil {
		return req, fmt.Errorf("%w: %v", models.ErrDegenerateInput, err)
	}
	if req.Gameweek < 0 {
		return req, fmt.Errorf("%w: gameweek %d", models.ErrDegenerateInput, req.Gameweek)
	}
	req.Method = method
	req.Strategy = mode
	if req.Budget == 0 {
		req.Budget = s.cfg.Budget
	}
	if req.UncertaintyMargin == 0 {
		req.UncertaintyMargin = s.cfg.UncertaintyMargin
	}
	return req, nil
}

func (s *GameweekService) loadSnapshot(ctx context.Context, gameweek int, withHistory bool) (*snapshot, error) {
	if gameweek == 0 {
		gw, err := s.source.CurrentGameweek(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to resolve current gameweek: %w", ErrUpstream, err)
		}
		gameweek = gw
	}

	players, err := s.source.Players(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to fetch players: %w", ErrUpstream, err)
	}
	catalog, err := models.NewCatalog(players)
	if err != nil {
		return nil, fmt.Errorf("invalid player catalog: %w", err)
	}

	// Fixture difficulty is read for the following gameweek, the one being picked for.
	difficulty, err := s.source.FixtureDifficulty(ctx, gameweek+1)
	if err != nil {
		s.logger.WithError(err).WithField("gameweek", gameweek+1).
			Warn("Fixture difficulty unavailable, treating every fixture as hardest")
		difficulty = map[int]int{}
	}

	snap := &snapshot{gameweek: gameweek, catalog: catalog, difficulty: difficulty}
	if withHistory {
		histories, err := s.fetchHistories(ctx, catalog, gameweek)
		if err != nil {
			return nil, err
		}
		snap.histories = histories
	}
	return snap, nil
}

// fetchHistories loads every player's history with bounded parallelism. A
// player whose history cannot be fetched gets an empty one.
func (s *GameweekService) fetchHistories(ctx context.Context, catalog *models.Catalog, gameweek int) (map[int][]float64, error) {
	ids := catalog.IDs()
	histories := make(map[int][]float64, len(ids))

	parallel := s.cfg.HistoryParallelism
	if parallel <= 0 {
		parallel = 1
	}
	sem := make(chan struct{}, parallel)
	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		failed int
	)

	for _, id := range ids {
		select {
		case <-ctx.Done():
			wg.Wait()
			return nil, ctx.Err()
		case sem <- struct{}{}:
		}
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			defer func() { <-sem }()

			h, err := s.source.PlayerHistory(ctx, id, gameweek)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				h = nil
			}
			histories[id] = h
		}(id)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if failed > 0 {
		s.logger.WithFields(logrus.Fields{
			"failed":  failed,
			"players": len(ids),
		}).Warn("Some player histories could not be fetched")
	}
	return histories, nil
}

func (s *GameweekService) horizon(gameweek int) int {
	if s.cfg.Horizon > 0 {
		return s.cfg.Horizon
	}
	h := s.cfg.TotalGameweeks - gameweek + 1
	if h < 1 {
		h = 1
	}
	return h
}

// score turns a snapshot into strategy adjusted CPV values.
func (s *GameweekService) score(snap *snapshot, method forecast.Method, mode strategy.Mode, log *logrus.Entry) (map[int]float64, error) {
	var forecasts map[int]float64
	if method == forecast.Hybrid {
		model := forecast.NewHybridModel(s.cfg.RidgeAlpha, log)
		players := snap.catalog.Players()
		if err := model.Fit(players); err != nil {
			return nil, fmt.Errorf("hybrid model: %w", err)
		}
		forecasts = model.Score(players)
	} else {
		est := forecast.NewEstimator(s.cfg.Draws, s.cfg.Seed, log)
		f, err := est.Estimate(snap.histories, method, s.horizon(snap.gameweek))
		if err != nil {
			return nil, err
		}
		forecasts = f
	}

	scores := cpv.Compute(snap.catalog, forecasts, snap.difficulty, s.cfg.Weights)
	return strategy.Apply(scores, snap.catalog, mode), nil
}

func (s *GameweekService) runMethod(ctx context.Context, snap *snapshot, req RunRequest, method forecast.Method) (*RunResult, error) {
	start := time.Now()
	runID := uuid.New().String()
	log := logger.WithRunContext(runID, snap.gameweek, string(method))

	s.publish(websocket.Event{Type: websocket.EventRunStarted, RunID: runID, Gameweek: snap.gameweek, Method: string(method)})

	result, err := s.execute(ctx, snap, req, method, runID, log)
	if err != nil {
		log.WithError(err).Error("Gameweek run failed")
		metrics.GameweekRuns.WithLabelValues(string(method), string(req.Strategy), "error").Inc()
		s.publish(websocket.Event{
			Type: websocket.EventRunFailed, RunID: runID, Gameweek: snap.gameweek, Method: string(method),
			Data: map[string]string{"error": err.Error()},
		})
		return nil, err
	}
	result.DurationMS = time.Since(start).Milliseconds()

	log.WithFields(logrus.Fields{
		"expected_points": result.Roster.TotalScore,
		"formation":       result.Roster.Formation,
		"duration_ms":     result.DurationMS,
	}).Info("Gameweek run completed")
	metrics.GameweekRuns.WithLabelValues(string(method), string(req.Strategy), "success").Inc()
	s.publish(websocket.Event{Type: websocket.EventRunCompleted, RunID: runID, Gameweek: snap.gameweek, Method: string(method), Data: result.Roster})
	return result, nil
}

func (s *GameweekService) execute(ctx context.Context, snap *snapshot, req RunRequest, method forecast.Method, runID string, log *logrus.Entry) (*RunResult, error) {
	scores, err := s.score(snap, method, req.Strategy, log)
	if err != nil {
		return nil, err
	}

	candidates := snap.catalog
	constrained := false
	if req.ConstrainToSquad && req.Squad != nil {
		ids := ResolveSquad(req.Squad, snap.catalog, log)
		if len(ids) > 0 {
			candidates = snap.catalog.Subset(ids)
			constrained = true
		} else {
			log.Warn("No squad players matched, selecting from the full catalog")
		}
	}

	solveCtx := ctx
	if s.cfg.SolverTimeout > 0 {
		var cancel context.CancelFunc
		solveCtx, cancel = context.WithTimeout(ctx, s.cfg.SolverTimeout)
		defer cancel()
	}

	roster, err := optimizer.Optimize(solveCtx, candidates, scores, optimizer.Options{
		Budget:            req.Budget,
		Robust:            req.Robust,
		UncertaintyMargin: req.UncertaintyMargin,
		ForceInclude:      req.ForceInclude,
		ForceExclude:      req.ForceExclude,
		NodeLimit:         s.cfg.NodeLimit,
	})
	if err != nil {
		return nil, err
	}

	if req.Persist && s.results != nil {
		record, err := NewGameweekResult(runID, snap.gameweek, string(method), string(req.Strategy), roster)
		if err != nil {
			return nil, err
		}
		if err := s.results.Save(ctx, record); err != nil {
			return nil, err
		}
	}

	return &RunResult{
		RunID:            runID,
		Gameweek:         snap.gameweek,
		Method:           method,
		Strategy:         req.Strategy,
		Roster:           roster,
		SquadConstrained: constrained,
		Candidates:       candidates.Len(),
		Scores:           scores,
		Catalog:          snap.catalog,
	}, nil
}

func (s *GameweekService) publish(event websocket.Event) {
	if s.events != nil {
		s.events.Publish(event)
	}
}
