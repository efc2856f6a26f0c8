package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/stitts-dev/fpl-optimizer/internal/forecast"
	"github.com/stitts-dev/fpl-optimizer/internal/models"
	"github.com/stitts-dev/fpl-optimizer/internal/strategy"
)

// UpstreamCachePrefix namespaces the FPL API responses held in redis.
const UpstreamCachePrefix = "fpl:"

// SchedulerConfig describes the weekly automated run.
type SchedulerConfig struct {
	Spec         string
	SquadID      uint
	Method       forecast.Method
	Strategy     strategy.Mode
	MaxTransfers int
	RunTimeout   time.Duration
}

// SchedulerStatus reports the outcome of the most recent scheduled run.
type SchedulerStatus struct {
	Running   bool      `json:"running"`
	Spec      string    `json:"spec"`
	LastRunAt time.Time `json:"last_run_at,omitempty"`
	LastRunID string    `json:"last_run_id,omitempty"`
	LastError string    `json:"last_error,omitempty"`
	NextRunAt time.Time `json:"next_run_at,omitempty"`
}

type squadLoader interface {
	Get(ctx context.Context, id uint) (*models.Squad, error)
}

type transferAttacher interface {
	AttachTransfers(ctx context.Context, gameweek int, method string, ts []models.Transfer) error
}

// Scheduler refreshes upstream data and runs the pipeline for the manager's
// squad on a cron schedule.
type Scheduler struct {
	gameweeks *GameweekService
	squads    squadLoader
	results   transferAttacher
	cache     *CacheService
	cfg       SchedulerConfig
	logger    *logrus.Entry
	cron      *cron.Cron
	entry     cron.EntryID
	mu        sync.Mutex
	isRunning bool
	status    SchedulerStatus
}

// NewScheduler builds a scheduler. squads, results and cache may be nil.
// MaxTransfers is used as given; zero attaches an empty transfer list.
func NewScheduler(gameweeks *GameweekService, squads squadLoader, results transferAttacher, cache *CacheService, cfg SchedulerConfig, logger *logrus.Entry) *Scheduler {
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = 30 * time.Minute
	}
	if cfg.MaxTransfers < 0 {
		cfg.MaxTransfers = 0
	}
	return &Scheduler{
		gameweeks: gameweeks,
		squads:    squads,
		results:   results,
		cache:     cache,
		cfg:       cfg,
		logger:    logger,
		cron:      cron.New(),
		status:    SchedulerStatus{Spec: cfg.Spec},
	}
}

func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}

	entry, err := s.cron.AddFunc(s.cfg.Spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.RunTimeout)
		defer cancel()
		s.RunOnce(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule gameweek run: %w", err)
	}
	s.entry = entry

	s.cron.Start()
	s.isRunning = true
	s.status.Running = true

	s.logger.WithField("spec", s.cfg.Spec).Info("Gameweek scheduler started")
	return nil
}

// Stop waits for an in-flight run to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	s.status.Running = false
	s.mu.Unlock()

	// The lock is released first because a running job records its status.
	ctx := s.cron.Stop()
	<-ctx.Done()

	s.logger.Info("Gameweek scheduler stopped")
}

func (s *Scheduler) Status() SchedulerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := s.status
	if s.isRunning {
		status.NextRunAt = s.cron.Entry(s.entry).Next
	}
	return status
}

// RunOnce performs one automated run: drop cached upstream data, run the
// squad constrained pipeline, persist it, then attach transfer suggestions.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	s.logger.Info("Starting scheduled gameweek run")

	runID, err := s.run(ctx)

	s.mu.Lock()
	s.status.LastRunAt = time.Now().UTC()
	s.status.LastRunID = runID
	s.status.LastError = ""
	if err != nil {
		s.status.LastError = err.Error()
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.WithError(err).Error("Scheduled gameweek run failed")
		return err
	}
	s.logger.WithField("run_id", runID).Info("Completed scheduled gameweek run")
	return nil
}

func (s *Scheduler) run(ctx context.Context) (string, error) {
	if s.cache != nil {
		removed, err := s.cache.InvalidatePrefix(ctx, UpstreamCachePrefix)
		if err != nil {
			s.logger.WithError(err).Warn("Failed to invalidate upstream cache")
		} else {
			s.logger.WithField("keys", removed).Debug("Invalidated upstream cache")
		}
	}

	var squad *models.Squad
	if s.squads != nil {
		loaded, err := s.squads.Get(ctx, s.cfg.SquadID)
		if err != nil {
			s.logger.WithError(err).WithField("squad_id", s.cfg.SquadID).Warn("No squad for scheduled run")
		} else {
			squad = loaded
		}
	}

	req := RunRequest{
		Method:           s.cfg.Method,
		Strategy:         s.cfg.Strategy,
		ConstrainToSquad: squad != nil,
		Persist:          true,
		Squad:            squad,
	}
	result, err := s.gameweeks.Run(ctx, req)
	if err != nil {
		return "", err
	}

	if squad == nil || s.results == nil {
		return result.RunID, nil
	}

	req.Gameweek = result.Gameweek
	plan, err := s.gameweeks.SuggestTransfers(ctx, TransferRequest{RunRequest: req, MaxTransfers: s.cfg.MaxTransfers})
	if err != nil {
		s.logger.WithError(err).Warn("Transfer suggestion failed")
		return result.RunID, nil
	}
	if err := s.results.AttachTransfers(ctx, result.Gameweek, string(result.Method), plan.Transfers); err != nil {
		return result.RunID, err
	}
	return result.RunID, nil
}
