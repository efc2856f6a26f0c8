package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/stitts-dev/fpl-optimizer/internal/models"
	"github.com/stitts-dev/fpl-optimizer/pkg/database"
	"gorm.io/gorm"
)

var ErrSquadNotFound = errors.New("squad not found")

type SquadStore struct {
	db *database.DB
}

func NewSquadStore(db *database.DB) *SquadStore {
	return &SquadStore{db: db}
}

func (s *SquadStore) Get(ctx context.Context, id uint) (*models.Squad, error) {
	var squad models.Squad
	err := s.db.WithContext(ctx).Preload("Players").First(&squad, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSquadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load squad %d: %w", id, err)
	}
	return &squad, nil
}

// Save creates or replaces a squad together with its players.
func (s *SquadStore) Save(ctx context.Context, squad *models.Squad) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		players := squad.Players
		squad.Players = nil

		if err := tx.Save(squad).Error; err != nil {
			return fmt.Errorf("failed to save squad: %w", err)
		}
		if err := tx.Where("squad_id = ?", squad.ID).Delete(&models.SquadPlayer{}).Error; err != nil {
			return fmt.Errorf("failed to clear squad players: %w", err)
		}
		for i := range players {
			players[i].ID = 0
			players[i].SquadID = squad.ID
		}
		if len(players) > 0 {
			if err := tx.Create(&players).Error; err != nil {
				return fmt.Errorf("failed to save squad players: %w", err)
			}
		}
		squad.Players = players
		return nil
	})
}

// CreateTemplate stores an empty squad with the default bank and free transfer,
// unless one already exists with that id.
func (s *SquadStore) CreateTemplate(ctx context.Context, id uint) (*models.Squad, error) {
	existing, err := s.Get(ctx, id)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrSquadNotFound) {
		return nil, err
	}
	squad := TemplateSquad()
	squad.ID = id
	if err := s.Save(ctx, squad); err != nil {
		return nil, err
	}
	return squad, nil
}

// TemplateSquad is the skeleton users fill in with their fifteen players.
func TemplateSquad() *models.Squad {
	squad := &models.Squad{Name: "My Squad", Bank: 0.5, FreeTransfers: 1}
	slots := []struct {
		pos   models.Position
		count int
	}{
		{models.PositionGK, 2}, {models.PositionDEF, 5}, {models.PositionMID, 5}, {models.PositionFWD, 3},
	}
	for _, slot := range slots {
		for i := 1; i <= slot.count; i++ {
			squad.Players = append(squad.Players, models.SquadPlayer{
				Name:     fmt.Sprintf("%s %d", slot.pos, i),
				Position: string(slot.pos),
			})
		}
	}
	return squad
}

// ResolveSquad returns the catalog ids of the squad's players. Members with a
// known PlayerID are taken as is; the others are matched by name: the web name
// exactly, then as a substring of the web name, then of the full name.
func ResolveSquad(squad *models.Squad, catalog *models.Catalog, log *logrus.Entry) []int {
	players := catalog.Players()
	ids := make([]int, 0, len(squad.Players))
	seen := make(map[int]bool, len(squad.Players))

	for _, sp := range squad.Players {
		if sp.PlayerID != 0 && catalog.Has(sp.PlayerID) {
			if !seen[sp.PlayerID] {
				seen[sp.PlayerID] = true
				ids = append(ids, sp.PlayerID)
			}
			continue
		}
		id, ok := MatchPlayerName(sp.Name, players)
		if !ok {
			if log != nil {
				log.WithField("name", sp.Name).Warn("Squad player not found in catalog")
			}
			continue
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}

func MatchPlayerName(name string, players []models.Player) (int, bool) {
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return 0, false
	}
	for _, p := range players {
		if strings.ToLower(p.Name) == needle {
			return p.ID, true
		}
	}
	for _, p := range players {
		if strings.Contains(strings.ToLower(p.Name), needle) {
			return p.ID, true
		}
	}
	for _, p := range players {
		if strings.Contains(strings.ToLower(p.FullName), needle) {
			return p.ID, true
		}
	}
	return 0, false
}
