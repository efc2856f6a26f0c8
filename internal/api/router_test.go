package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/stitts-dev/fpl-optimizer/internal/models"
	"github.com/stitts-dev/fpl-optimizer/internal/services"
	"github.com/stitts-dev/fpl-optimizer/pkg/database"
)

type stubSource struct {
	players []models.Player
	err     error
}

func (s *stubSource) Players(context.Context) ([]models.Player, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.players, nil
}

func (s *stubSource) CurrentGameweek(context.Context) (int, error) {
	return 10, s.err
}

func (s *stubSource) PlayerHistory(_ context.Context, id, before int) ([]float64, error) {
	h := make([]float64, 0, before-1)
	for gw := 1; gw < before; gw++ {
		h = append(h, float64((id*5+gw)%11))
	}
	return h, nil
}

func (s *stubSource) FixtureDifficulty(context.Context, int) (map[int]int, error) {
	return map[int]int{1: 2, 2: 3, 3: 4, 4: 5, 5: 2}, nil
}

// leaguePlayers builds ten players per position over five teams.
func leaguePlayers() []models.Player {
	var players []models.Player
	id := 1
	for _, pos := range models.Positions {
		for i := 0; i < 10; i++ {
			players = append(players, models.Player{
				ID:               id,
				Name:             fmt.Sprintf("%s%d", pos, i),
				TeamID:           i%5 + 1,
				Position:         pos,
				Cost:             4.5 + float64(i)*0.5,
				OwnershipPercent: float64(i * 4),
				Form:             float64(i),
				CeilingProxy:     float64(30 + i*20),
				TotalPoints:      float64(15 + i*5),
				Stats:            map[string]float64{"ict_index": float64(30 + i*20), "threat": float64(i * 10)},
			})
			id++
		}
	}
	return players
}

type response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Meta *struct {
		Total  int  `json:"total"`
		Cached bool `json:"cached"`
	} `json:"meta"`
}

type RouterTestSuite struct {
	suite.Suite
	router  *gin.Engine
	source  *stubSource
	results *services.ResultStore
}

func (s *RouterTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	gormDB, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	s.Require().NoError(err)
	sqlDB, err := gormDB.DB()
	s.Require().NoError(err)
	sqlDB.SetMaxOpenConns(1)
	s.T().Cleanup(func() { sqlDB.Close() })
	db := database.Wrap(gormDB)
	s.Require().NoError(db.AutoMigrate(models.AllModels()...))

	mr := miniredis.RunT(s.T())
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s.T().Cleanup(func() { client.Close() })
	cache := services.NewCacheService(client)

	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)
	entry := logrus.NewEntry(log)

	s.source = &stubSource{players: leaguePlayers()}
	s.results = services.NewResultStore(db)
	cfg := services.DefaultPipelineConfig()
	cfg.Draws = 100
	gameweeks := services.NewGameweekService(s.source, s.results, nil, cfg, entry)

	s.router = gin.New()
	SetupRoutes(s.router, Dependencies{
		DB:        db,
		Cache:     cache,
		Gameweeks: gameweeks,
		Results:   s.results,
		Squads:    services.NewSquadStore(db),
		ResultTTL: time.Minute,
		Logger:    entry,
	})
}

func (s *RouterTestSuite) do(method, path string, body interface{}) (*httptest.ResponseRecorder, response) {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var resp response
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

func uniformScores(players []models.Player) map[int]float64 {
	scores := make(map[int]float64, len(players))
	for _, p := range players {
		scores[p.ID] = p.TotalPoints / 10
	}
	return scores
}

func (s *RouterTestSuite) TestHealthAndReady() {
	w, _ := s.do(http.MethodGet, "/health", nil)
	s.Equal(http.StatusOK, w.Code)

	w, _ = s.do(http.MethodGet, "/ready", nil)
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), `"database":"ok"`)

	w, _ = s.do(http.MethodGet, "/metrics", nil)
	s.Equal(http.StatusOK, w.Code)
}

func (s *RouterTestSuite) TestScoreCPV() {
	players := leaguePlayers()[:3]
	w, resp := s.do(http.MethodPost, "/api/v1/cpv", map[string]interface{}{
		"players":  players,
		"forecast": map[int]float64{1: 2, 2: 6, 3: 4},
		"strategy": "rank_climbing",
	})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var scores []struct {
		PlayerID int     `json:"player_id"`
		Score    float64 `json:"score"`
		Tier     string  `json:"tier"`
	}
	s.Require().NoError(json.Unmarshal(resp.Data, &scores))
	s.Require().Len(scores, 3)
	for i := 1; i < len(scores); i++ {
		s.GreaterOrEqual(scores[i-1].Score, scores[i].Score)
	}

	w, resp = s.do(http.MethodPost, "/api/v1/cpv", map[string]interface{}{"players": players, "strategy": "moonshot"})
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("VALIDATION_ERROR", resp.Error.Code)
}

func (s *RouterTestSuite) TestOptimize() {
	players := leaguePlayers()
	body := map[string]interface{}{"players": players, "scores": uniformScores(players)}

	w, resp := s.do(http.MethodPost, "/api/v1/optimize", body)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var roster models.Roster
	s.Require().NoError(json.Unmarshal(resp.Data, &roster))
	s.Len(roster.Players, 11)
	s.LessOrEqual(roster.TotalCost, 100.0)
	s.False(resp.Meta.Cached)

	w, resp = s.do(http.MethodPost, "/api/v1/optimize", body)
	s.Require().Equal(http.StatusOK, w.Code)
	s.True(resp.Meta.Cached)
	var cached models.Roster
	s.Require().NoError(json.Unmarshal(resp.Data, &cached))
	s.Equal(roster.PlayerIDs(), cached.PlayerIDs())
}

func (s *RouterTestSuite) TestOptimizeErrors() {
	players := leaguePlayers()

	w, resp := s.do(http.MethodPost, "/api/v1/optimize", map[string]interface{}{
		"players": players, "scores": uniformScores(players), "budget": 0,
	})
	s.Equal(http.StatusUnprocessableEntity, w.Code)
	s.Equal("INFEASIBLE", resp.Error.Code)

	dup := append([]models.Player{}, players...)
	dup = append(dup, players[0])
	w, resp = s.do(http.MethodPost, "/api/v1/optimize", map[string]interface{}{
		"players": dup, "scores": uniformScores(players),
	})
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("VALIDATION_ERROR", resp.Error.Code)

	w, _ = s.do(http.MethodPost, "/api/v1/optimize", map[string]interface{}{
		"players": players, "scores": uniformScores(players), "uncertainty_margin": 1.5,
	})
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *RouterTestSuite) TestRecommendTransfers() {
	players := leaguePlayers()
	body := map[string]interface{}{
		"players":       players,
		"scores":        uniformScores(players),
		"current_ids":   []int{1, 11, 12},
		"target_ids":    []int{10, 20, 12},
		"max_transfers": 2,
		"bank":          1.0,
	}
	w, resp := s.do(http.MethodPost, "/api/v1/transfers", body)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var out struct {
		Transfers []models.Transfer `json:"transfers"`
		Summary   struct {
			Count int `json:"count"`
			Hits  int `json:"hits"`
		} `json:"summary"`
	}
	s.Require().NoError(json.Unmarshal(resp.Data, &out))
	s.Len(out.Transfers, 2)
	s.Equal(2, out.Summary.Count)
	s.Equal(1, out.Summary.Hits)

	body["max_transfers"] = -1
	w, resp = s.do(http.MethodPost, "/api/v1/transfers", body)
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("VALIDATION_ERROR", resp.Error.Code)
}

func (s *RouterTestSuite) TestGameweekRunAndResults() {
	w, resp := s.do(http.MethodPost, "/api/v1/gameweeks/run", map[string]interface{}{"method": "simple_average"})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var run struct {
		RunID    string         `json:"run_id"`
		Gameweek int            `json:"gameweek"`
		Roster   *models.Roster `json:"roster"`
	}
	s.Require().NoError(json.Unmarshal(resp.Data, &run))
	s.Equal(10, run.Gameweek)
	s.Len(run.Roster.Players, 11)

	w, resp = s.do(http.MethodGet, "/api/v1/gameweeks/10/results", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal(1, resp.Meta.Total)

	w, _ = s.do(http.MethodPut, "/api/v1/gameweeks/10/results/simple_average/actual", map[string]float64{"points": 72})
	s.Equal(http.StatusOK, w.Code, w.Body.String())

	w, resp = s.do(http.MethodPut, "/api/v1/gameweeks/11/results/simple_average/actual", map[string]float64{"points": 1})
	s.Equal(http.StatusNotFound, w.Code)
	s.Equal("NOT_FOUND", resp.Error.Code)

	w, _ = s.do(http.MethodGet, "/api/v1/gameweeks/99/results", nil)
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *RouterTestSuite) TestGameweekRunErrors() {
	w, resp := s.do(http.MethodPost, "/api/v1/gameweeks/run", map[string]interface{}{"method": "tea_leaves"})
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("VALIDATION_ERROR", resp.Error.Code)

	w, resp = s.do(http.MethodPost, "/api/v1/gameweeks/run", map[string]interface{}{"squad_id": 77})
	s.Equal(http.StatusNotFound, w.Code)

	s.source.err = errors.New("fpl down")
	w, resp = s.do(http.MethodPost, "/api/v1/gameweeks/run", map[string]interface{}{})
	s.Equal(http.StatusBadGateway, w.Code)
	s.Equal("UPSTREAM_ERROR", resp.Error.Code)
}

func (s *RouterTestSuite) TestCompareMethods() {
	w, resp := s.do(http.MethodPost, "/api/v1/gameweeks/compare", map[string]interface{}{
		"methods": []string{"simple_average", "hybrid"},
		"persist": false,
	})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.Equal(2, resp.Meta.Total)

	results, err := s.results.ListByGameweek(context.Background(), 10)
	s.Require().NoError(err)
	s.Empty(results)

	w, _ = s.do(http.MethodPost, "/api/v1/gameweeks/compare", map[string]interface{}{"methods": []string{"astrology"}})
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *RouterTestSuite) TestSquadLifecycle() {
	players := leaguePlayers()
	var squadPlayers []map[string]interface{}
	for _, idx := range []int{0, 1, 10, 11, 12, 13, 14, 20, 21, 22, 23, 24, 30, 31, 32} {
		squadPlayers = append(squadPlayers, map[string]interface{}{
			"name":     players[idx].Name,
			"position": string(players[idx].Position),
		})
	}

	w, _ := s.do(http.MethodPut, "/api/v1/squads/1", map[string]interface{}{
		"name": "Test XV", "bank": 1.5, "free_transfers": 1, "players": squadPlayers,
	})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	w, resp := s.do(http.MethodGet, "/api/v1/squads/1", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var squad models.Squad
	s.Require().NoError(json.Unmarshal(resp.Data, &squad))
	s.Len(squad.Players, 15)

	w, resp = s.do(http.MethodGet, "/api/v1/squads/1/transfers?max_transfers=2&method=simple_average", nil)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var plan struct {
		CurrentIDs []int             `json:"current_ids"`
		Transfers  []models.Transfer `json:"transfers"`
	}
	s.Require().NoError(json.Unmarshal(resp.Data, &plan))
	s.Len(plan.CurrentIDs, 15)
	s.LessOrEqual(len(plan.Transfers), 2)

	w, _ = s.do(http.MethodGet, "/api/v1/squads/2", nil)
	s.Equal(http.StatusNotFound, w.Code)

	w, _ = s.do(http.MethodGet, "/api/v1/squads/abc", nil)
	s.Equal(http.StatusBadRequest, w.Code)

	w, _ = s.do(http.MethodPut, "/api/v1/squads/1", map[string]interface{}{
		"players": []map[string]string{{"name": "X", "position": "GOALIE"}},
	})
	s.Equal(http.StatusBadRequest, w.Code)
}

func TestRouterTestSuite(t *testing.T) {
	suite.Run(t, new(RouterTestSuite))
}

func TestSetupRoutes_OptionalDependencies(t *testing.T) {
	gin.SetMode(gin.TestMode)
	gameweeks := services.NewGameweekService(&stubSource{players: leaguePlayers()}, nil, nil,
		services.DefaultPipelineConfig(), logrus.NewEntry(logrus.New()))

	router := gin.New()
	SetupRoutes(router, Dependencies{Gameweeks: gameweeks, Logger: logrus.NewEntry(logrus.New())})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/squads/1", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	require.Equal(t, http.StatusOK, w.Code)
}

type openBreaker struct{}

func (openBreaker) BreakerState() string { return "open" }

func TestReady_ReportsUpstreamBreaker(t *testing.T) {
	gin.SetMode(gin.TestMode)
	gameweeks := services.NewGameweekService(&stubSource{players: leaguePlayers()}, nil, nil,
		services.DefaultPipelineConfig(), logrus.NewEntry(logrus.New()))

	router := gin.New()
	SetupRoutes(router, Dependencies{Gameweeks: gameweeks, Upstream: openBreaker{}, Logger: logrus.NewEntry(logrus.New())})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "open", body.Checks["upstream"])
}
