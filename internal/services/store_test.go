package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/stitts-dev/fpl-optimizer/internal/models"
	"github.com/stitts-dev/fpl-optimizer/pkg/database"
)

type StoreTestSuite struct {
	suite.Suite
	db      *database.DB
	results *ResultStore
	squads  *SquadStore
	ctx     context.Context
}

func (s *StoreTestSuite) SetupTest() {
	s.db = newTestDB(s.T())
	s.results = NewResultStore(s.db)
	s.squads = NewSquadStore(s.db)
	s.ctx = context.Background()
}

func sampleRoster(score float64) *models.Roster {
	return &models.Roster{
		Players:    []models.Player{{ID: 1, Name: "Raya", Position: models.PositionGK, Cost: 5.5}},
		CaptainID:  1,
		TotalCost:  5.5,
		TotalScore: score,
		Formation:  "4-4-2",
	}
}

func (s *StoreTestSuite) TestSave_UpsertsByGameweekAndMethod() {
	first, err := NewGameweekResult("run-1", 7, "arima", "standard", sampleRoster(50))
	s.Require().NoError(err)
	s.Require().NoError(s.results.Save(s.ctx, first))

	second, err := NewGameweekResult("run-2", 7, "arima", "rank_climbing", sampleRoster(64))
	s.Require().NoError(err)
	s.Require().NoError(s.results.Save(s.ctx, second))

	var count int64
	s.Require().NoError(s.db.Model(&models.GameweekResult{}).Count(&count).Error)
	s.Equal(int64(1), count)

	got, err := s.results.Get(s.ctx, 7, "arima")
	s.Require().NoError(err)
	s.Equal("run-2", got.RunID)
	s.Equal("rank_climbing", got.Strategy)
	s.InDelta(64, got.ExpectedPoints, 1e-9)

	var roster models.Roster
	s.Require().NoError(json.Unmarshal(got.Roster, &roster))
	s.Equal(1, roster.CaptainID)
}

func (s *StoreTestSuite) TestListByGameweek_BestFirst() {
	for method, score := range map[string]float64{"simple_average": 40, "hybrid": 70, "arima": 55} {
		r, err := NewGameweekResult("run-"+method, 3, method, "standard", sampleRoster(score))
		s.Require().NoError(err)
		s.Require().NoError(s.results.Save(s.ctx, r))
	}
	other, err := NewGameweekResult("run-x", 4, "hybrid", "standard", sampleRoster(99))
	s.Require().NoError(err)
	s.Require().NoError(s.results.Save(s.ctx, other))

	results, err := s.results.ListByGameweek(s.ctx, 3)
	s.Require().NoError(err)
	s.Require().Len(results, 3)
	s.Equal("hybrid", results[0].Method)
	s.Equal("arima", results[1].Method)
	s.Equal("simple_average", results[2].Method)
}

func (s *StoreTestSuite) TestRecordActualPointsAndTransfers() {
	r, err := NewGameweekResult("run-1", 9, "weighted_average", "standard", sampleRoster(48))
	s.Require().NoError(err)
	s.Require().NoError(s.results.Save(s.ctx, r))

	s.Require().NoError(s.results.RecordActualPoints(s.ctx, 9, "weighted_average", 61))
	s.Require().NoError(s.results.AttachTransfers(s.ctx, 9, "weighted_average", []models.Transfer{
		{OutID: 1, InID: 2, Position: models.PositionGK, PointsGain: 3},
	}))

	got, err := s.results.Get(s.ctx, 9, "weighted_average")
	s.Require().NoError(err)
	s.Require().NotNil(got.ActualPoints)
	s.InDelta(61, *got.ActualPoints, 1e-9)

	var ts []models.Transfer
	s.Require().NoError(json.Unmarshal(got.Transfers, &ts))
	s.Require().Len(ts, 1)
	s.Equal(2, ts[0].InID)

	s.ErrorIs(s.results.RecordActualPoints(s.ctx, 10, "weighted_average", 1), ErrResultNotFound)
	s.ErrorIs(s.results.AttachTransfers(s.ctx, 10, "weighted_average", nil), ErrResultNotFound)
	_, err = s.results.Get(s.ctx, 10, "weighted_average")
	s.ErrorIs(err, ErrResultNotFound)
}

func (s *StoreTestSuite) TestSquadStore_SaveReplacesPlayers() {
	squad := TemplateSquad()
	s.Require().Len(squad.Players, 15)
	s.Require().NoError(s.squads.Save(s.ctx, squad))
	s.NotZero(squad.ID)

	loaded, err := s.squads.Get(s.ctx, squad.ID)
	s.Require().NoError(err)
	s.Len(loaded.Players, 15)
	s.InDelta(0.5, loaded.Bank, 1e-9)

	loaded.Players = []models.SquadPlayer{{Name: "Saka", Position: "MID", PlayerID: 17}}
	loaded.Bank = 2.1
	s.Require().NoError(s.squads.Save(s.ctx, loaded))

	reloaded, err := s.squads.Get(s.ctx, squad.ID)
	s.Require().NoError(err)
	s.Require().Len(reloaded.Players, 1)
	s.Equal("Saka", reloaded.Players[0].Name)
	s.Equal([]int{17}, reloaded.PlayerIDs())
	s.InDelta(2.1, reloaded.Bank, 1e-9)

	var count int64
	s.Require().NoError(s.db.Model(&models.SquadPlayer{}).Count(&count).Error)
	s.Equal(int64(1), count)
}

func (s *StoreTestSuite) TestSquadStore_CreateTemplateIsIdempotent() {
	created, err := s.squads.CreateTemplate(s.ctx, 1)
	s.Require().NoError(err)
	s.Equal(uint(1), created.ID)

	created.Name = "Renamed"
	s.Require().NoError(s.squads.Save(s.ctx, created))

	again, err := s.squads.CreateTemplate(s.ctx, 1)
	s.Require().NoError(err)
	s.Equal("Renamed", again.Name)

	_, err = s.squads.Get(s.ctx, 42)
	s.ErrorIs(err, ErrSquadNotFound)
}

func TestStoreTestSuite(t *testing.T) {
	suite.Run(t, new(StoreTestSuite))
}

func TestMatchPlayerName(t *testing.T) {
	players := []models.Player{
		{ID: 1, Name: "Salah", FullName: "Mohamed Salah"},
		{ID: 2, Name: "M.Salah", FullName: "Mo Salah Jr"},
		{ID: 3, Name: "Alexander-Arnold", FullName: "Trent Alexander-Arnold"},
		{ID: 4, Name: "Gabriel", FullName: "Gabriel dos Santos Magalhães"},
	}

	cases := []struct {
		name string
		want int
		ok   bool
	}{
		{"salah", 1, true},
		{"  Salah ", 1, true},
		{"Arnold", 3, true},
		{"Trent", 3, true},
		{"Magalhães", 4, true},
		{"Haaland", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			id, ok := MatchPlayerName(tc.name, players)
			if ok != tc.ok || id != tc.want {
				t.Fatalf("MatchPlayerName(%q) = %d, %v; want %d, %v", tc.name, id, ok, tc.want, tc.ok)
			}
		})
	}
}

func TestResolveSquad(t *testing.T) {
	src := newFakeSource()
	catalog, err := models.NewCatalog(src.players)
	if err != nil {
		t.Fatal(err)
	}
	squad := &models.Squad{Players: []models.SquadPlayer{
		{Name: "GK-00"},
		{Name: "whatever", PlayerID: 13},
		{Name: "Number 5"},
		{Name: "Nobody"},
		{Name: "GK-00"},
		{Name: "stale", PlayerID: 9999},
	}}

	ids := ResolveSquad(squad, catalog, testLogger())
	if len(ids) != 3 || ids[0] != 1 || ids[1] != 13 {
		t.Fatalf("unexpected ids %v", ids)
	}
	if squad.Players[0].PlayerID != 0 {
		t.Fatal("ResolveSquad must not modify the squad")
	}
}
