package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/stitts-dev/fpl-optimizer/internal/models"
	"github.com/stitts-dev/fpl-optimizer/pkg/config"
	"github.com/stitts-dev/fpl-optimizer/pkg/metrics"
)

// ErrNotFound is returned for 404 responses, which are never retried.
var ErrNotFound = errors.New("fpl resource not found")

const maxAttempts = 3

// FPLConfig configures the FPL API client.
type FPLConfig struct {
	BaseURL          string
	Timeout          time.Duration
	RequestsPerSec   float64
	Burst            int
	BreakerThreshold int
	CacheTTL         time.Duration
	// RetryWait is the first backoff interval; it doubles on each attempt.
	RetryWait time.Duration
}

// FPLClient implements DataSource against the public FPL API.
type FPLClient struct {
	cfg        FPLConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	cache      CacheProvider
	logger     *logrus.Entry
}

func NewFPLClient(cfg FPLConfig, cache CacheProvider, logger *logrus.Entry) *FPLClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RequestsPerSec <= 0 {
		cfg.RequestsPerSec = 5
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.BreakerThreshold <= 0 {
		cfg.BreakerThreshold = 5
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Hour
	}
	if cfg.RetryWait <= 0 {
		cfg.RetryWait = time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	settings := gobreaker.Settings{
		Name:        "fpl-api",
		MaxRequests: uint32(cfg.BreakerThreshold),
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		// Missing resources are the caller's problem, not an unhealthy upstream.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"component": "circuit_breaker",
				"service":   name,
				"from":      from.String(),
				"to":        to.String(),
			}).Info("Circuit breaker state changed")
		},
	}

	return &FPLClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), cfg.Burst),
		breaker:    gobreaker.NewCircuitBreaker(settings),
		cache:      cache,
		logger:     logger,
	}
}

// BreakerState reports the circuit breaker state for health checks.
func (c *FPLClient) BreakerState() string {
	return c.breaker.State().String()
}

func (c *FPLClient) bootstrap(ctx context.Context) (*bootstrapResponse, error) {
	var resp bootstrapResponse
	if err := c.cachedGet(ctx, "fpl:bootstrap", "/bootstrap-static/", &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch bootstrap data: %w", err)
	}
	return &resp, nil
}

// Players returns every player in the game with team names resolved.
func (c *FPLClient) Players(ctx context.Context) ([]models.Player, error) {
	data, err := c.bootstrap(ctx)
	if err != nil {
		return nil, err
	}

	teams := make(map[int]string, len(data.Teams))
	for _, t := range data.Teams {
		teams[t.ID] = t.Name
	}

	players := make([]models.Player, 0, len(data.Elements))
	for _, e := range data.Elements {
		p, err := e.toPlayer(teams)
		if err != nil {
			// Managers and other non-player elements use unknown element types.
			c.logger.WithField("element_id", e.ID).Debug("Skipping element with unknown position")
			continue
		}
		players = append(players, p)
	}
	return players, nil
}

// CurrentGameweek returns the current event, else the next one, else 1.
func (c *FPLClient) CurrentGameweek(ctx context.Context) (int, error) {
	data, err := c.bootstrap(ctx)
	if err != nil {
		return 0, err
	}
	for _, ev := range data.Events {
		if ev.IsCurrent {
			return ev.ID, nil
		}
	}
	for _, ev := range data.Events {
		if ev.IsNext {
			return ev.ID, nil
		}
	}
	return 1, nil
}

func (c *FPLClient) PlayerHistory(ctx context.Context, playerID, beforeGameweek int) ([]float64, error) {
	var resp elementSummaryResponse
	key := fmt.Sprintf("fpl:history:%d", playerID)
	if err := c.cachedGet(ctx, key, fmt.Sprintf("/element-summary/%d/", playerID), &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch history for player %d: %w", playerID, err)
	}

	sort.SliceStable(resp.History, func(i, j int) bool { return resp.History[i].Round < resp.History[j].Round })
	points := make([]float64, 0, len(resp.History))
	for _, h := range resp.History {
		if h.Round < beforeGameweek {
			points = append(points, float64(h.TotalPoints))
		}
	}
	return points, nil
}

// FixtureDifficulty returns each team's difficulty rating for the gameweek.
// Teams without a fixture (blank gameweeks) are left out; scorers treat them
// as facing the hardest opponent. In a double gameweek the last listed fixture wins.
func (c *FPLClient) FixtureDifficulty(ctx context.Context, gameweek int) (map[int]int, error) {
	var fixtures []fplFixture
	key := fmt.Sprintf("fpl:fixtures:%d", gameweek)
	if err := c.cachedGet(ctx, key, fmt.Sprintf("/fixtures/?event=%d", gameweek), &fixtures); err != nil {
		return nil, fmt.Errorf("failed to fetch fixtures for gameweek %d: %w", gameweek, err)
	}

	difficulty := make(map[int]int)
	for _, f := range fixtures {
		difficulty[f.TeamH] = f.TeamHDifficulty
		difficulty[f.TeamA] = f.TeamADifficulty
	}
	return difficulty, nil
}

func (c *FPLClient) cachedGet(ctx context.Context, key, path string, target interface{}) error {
	if c.cache != nil {
		if err := c.cache.Get(ctx, key, target); err == nil {
			metrics.CacheLookups.WithLabelValues("fpl", "hit").Inc()
			return nil
		}
		metrics.CacheLookups.WithLabelValues("fpl", "miss").Inc()
	}

	if err := c.get(ctx, path, target); err != nil {
		return err
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, key, target, c.cfg.CacheTTL); err != nil {
			c.logger.WithError(err).WithField("key", key).Warn("Failed to cache FPL response")
		}
	}
	return nil
}

// get performs a rate limited request through the circuit breaker, retrying
// transient failures with exponential backoff.
func (c *FPLClient) get(ctx context.Context, path string, target interface{}) error {
	endpoint := endpointLabel(path)
	url := c.cfg.BaseURL + path

	var lastErr error
	wait := c.cfg.RetryWait
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		body, err := c.breaker.Execute(func() (interface{}, error) {
			return c.fetch(ctx, url)
		})
		if err == nil {
			metrics.UpstreamRequests.WithLabelValues(endpoint, "ok").Inc()
			if err := json.Unmarshal(body.([]byte), target); err != nil {
				return fmt.Errorf("failed to decode %s: %w", path, err)
			}
			return nil
		}

		metrics.UpstreamRequests.WithLabelValues(endpoint, "error").Inc()
		lastErr = err
		if errors.Is(err, ErrNotFound) || errors.Is(err, gobreaker.ErrOpenState) || attempt == maxAttempts {
			break
		}

		c.logger.WithFields(logrus.Fields{
			"path":    path,
			"attempt": attempt,
			"wait":    wait.String(),
		}).WithError(err).Warn("FPL request failed, retrying")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		wait *= 2
	}
	return lastErr
}

func (c *FPLClient) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "fpl-optimizer/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, url)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func endpointLabel(path string) string {
	trimmed := strings.Trim(path, "/")
	if i := strings.IndexAny(trimmed, "/?"); i >= 0 {
		return trimmed[:i]
	}
	return trimmed
}

// ConfigFromAppConfig maps the service configuration onto client settings.
func ConfigFromAppConfig(cfg *config.Config) FPLConfig {
	return FPLConfig{
		BaseURL:          cfg.FPLBaseURL,
		Timeout:          cfg.ExternalAPITimeout,
		RequestsPerSec:   cfg.FPLRateLimit,
		Burst:            cfg.FPLBurst,
		BreakerThreshold: cfg.CircuitBreakerThreshold,
		CacheTTL:         cfg.CacheTTL,
	}
}
