package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/stitts-dev/fpl-optimizer/internal/models"
	"github.com/stitts-dev/fpl-optimizer/internal/websocket"
	"github.com/stitts-dev/fpl-optimizer/pkg/database"
)

// fakeSource serves a deterministic 48 player league: twelve per position
// spread over six teams.
type fakeSource struct {
	players     []models.Player
	current     int
	historyErr  map[int]bool
	fixturesErr error
	playersErr  error

	mu               sync.Mutex
	historyCalls     int
	fixtureGameweeks []int
}

func newFakeSource() *fakeSource {
	src := &fakeSource{current: 10, historyErr: map[int]bool{}}
	id := 1
	for _, pos := range models.Positions {
		for i := 0; i < 12; i++ {
			src.players = append(src.players, models.Player{
				ID:               id,
				Name:             fmt.Sprintf("%s-%02d", pos, i),
				FullName:         fmt.Sprintf("Player %s Number %d", pos, i),
				TeamID:           i%6 + 1,
				TeamName:         fmt.Sprintf("Team %d", i%6+1),
				Position:         pos,
				Cost:             4.0 + float64(i)*0.5,
				OwnershipPercent: float64(i * 5),
				Form:             float64(i%10) + 0.5,
				CeilingProxy:     float64(20 + i*15),
				TotalPoints:      float64(10 + i*6),
				Stats: map[string]float64{
					"ict_index":      float64(20 + i*15),
					"influence":      float64(30 + i*7),
					"creativity":     float64(15 + i*4),
					"threat":         float64(10 + i*9),
					"expected_goals": float64(i) * 0.3,
					"starts":         float64(i),
				},
			})
			id++
		}
	}
	return src
}

func (f *fakeSource) Players(ctx context.Context) ([]models.Player, error) {
	if f.playersErr != nil {
		return nil, f.playersErr
	}
	out := make([]models.Player, len(f.players))
	copy(out, f.players)
	return out, nil
}

func (f *fakeSource) CurrentGameweek(ctx context.Context) (int, error) {
	return f.current, nil
}

func (f *fakeSource) PlayerHistory(ctx context.Context, playerID, beforeGameweek int) ([]float64, error) {
	f.mu.Lock()
	f.historyCalls++
	f.mu.Unlock()
	if f.historyErr[playerID] {
		return nil, errors.New("upstream unavailable")
	}
	h := make([]float64, 0, beforeGameweek-1)
	for gw := 1; gw < beforeGameweek; gw++ {
		h = append(h, float64((playerID*7+gw*3)%13))
	}
	return h, nil
}

func (f *fakeSource) FixtureDifficulty(ctx context.Context, gameweek int) (map[int]int, error) {
	f.mu.Lock()
	f.fixtureGameweeks = append(f.fixtureGameweeks, gameweek)
	f.mu.Unlock()
	if f.fixturesErr != nil {
		return nil, f.fixturesErr
	}
	return map[int]int{1: 2, 2: 3, 3: 4, 4: 2, 5: 5, 6: 3}, nil
}

// weakSquad is fifteen of the cheapest, lowest scoring players.
func weakSquad(src *fakeSource) *models.Squad {
	counts := map[models.Position]int{models.PositionGK: 2, models.PositionDEF: 5, models.PositionMID: 5, models.PositionFWD: 3}
	squad := &models.Squad{Name: "Test XV", Bank: 1.5, FreeTransfers: 1}
	for _, p := range src.players {
		if counts[p.Position] == 0 {
			continue
		}
		counts[p.Position]--
		squad.Players = append(squad.Players, models.SquadPlayer{Name: p.Name, Position: string(p.Position), Cost: p.Cost})
	}
	return squad
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []websocket.Event
}

func (r *recordingPublisher) Publish(event websocket.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingPublisher) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

type memoryRecorder struct {
	mu      sync.Mutex
	results []*models.GameweekResult
}

func (m *memoryRecorder) Save(_ context.Context, result *models.GameweekResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, result)
	return nil
}

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetLevel(logrus.WarnLevel)
	return logrus.NewEntry(l)
}

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	gormDB, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	// Every connection to ":memory:" is a separate database.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	db := database.Wrap(gormDB)
	require.NoError(t, db.AutoMigrate(models.AllModels()...))
	return db
}

func newTestService(src *fakeSource, results ResultRecorder, events EventPublisher) *GameweekService {
	cfg := DefaultPipelineConfig()
	cfg.Draws = 200
	cfg.HistoryParallelism = 4
	return NewGameweekService(src, results, events, cfg, testLogger())
}
