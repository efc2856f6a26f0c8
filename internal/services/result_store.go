package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stitts-dev/fpl-optimizer/internal/models"
	"github.com/stitts-dev/fpl-optimizer/pkg/database"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrResultNotFound = errors.New("gameweek result not found")

// ResultStore persists one result per (gameweek, method).
type ResultStore struct {
	db *database.DB
}

func NewResultStore(db *database.DB) *ResultStore {
	return &ResultStore{db: db}
}

// Save inserts the result or overwrites the existing row for its gameweek and method.
func (s *ResultStore) Save(ctx context.Context, result *models.GameweekResult) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "gameweek"}, {Name: "method"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"run_id", "strategy", "robust", "formation", "captain_id", "total_cost",
			"expected_points", "objective_value", "roster", "updated_at",
		}),
	}).Create(result).Error
	if err != nil {
		return fmt.Errorf("failed to save gameweek %d result for %s: %w", result.Gameweek, result.Method, err)
	}
	return nil
}

func (s *ResultStore) Get(ctx context.Context, gameweek int, method string) (*models.GameweekResult, error) {
	var result models.GameweekResult
	err := s.db.WithContext(ctx).
		Where("gameweek = ? AND method = ?", gameweek, method).
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrResultNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load gameweek result: %w", err)
	}
	return &result, nil
}

// ListByGameweek returns every method's result for a gameweek, best expected points first.
func (s *ResultStore) ListByGameweek(ctx context.Context, gameweek int) ([]models.GameweekResult, error) {
	var results []models.GameweekResult
	err := s.db.WithContext(ctx).
		Where("gameweek = ?", gameweek).
		Order("expected_points DESC").
		Order("method ASC").
		Find(&results).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list gameweek results: %w", err)
	}
	return results, nil
}

// RecordActualPoints stores the points a stored selection actually scored.
func (s *ResultStore) RecordActualPoints(ctx context.Context, gameweek int, method string, points float64) error {
	res := s.db.WithContext(ctx).Model(&models.GameweekResult{}).
		Where("gameweek = ? AND method = ?", gameweek, method).
		Update("actual_points", points)
	if res.Error != nil {
		return fmt.Errorf("failed to record actual points: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrResultNotFound
	}
	return nil
}

// AttachTransfers stores the transfer recommendation made alongside a result.
func (s *ResultStore) AttachTransfers(ctx context.Context, gameweek int, method string, transfers []models.Transfer) error {
	data, err := json.Marshal(transfers)
	if err != nil {
		return fmt.Errorf("failed to marshal transfers: %w", err)
	}
	res := s.db.WithContext(ctx).Model(&models.GameweekResult{}).
		Where("gameweek = ? AND method = ?", gameweek, method).
		Update("transfers", datatypes.JSON(data))
	if res.Error != nil {
		return fmt.Errorf("failed to attach transfers: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrResultNotFound
	}
	return nil
}

// NewGameweekResult flattens a roster into its persisted form.
func NewGameweekResult(runID string, gameweek int, method, strategy string, roster *models.Roster) (*models.GameweekResult, error) {
	data, err := json.Marshal(roster)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal roster: %w", err)
	}
	return &models.GameweekResult{
		RunID:          runID,
		Gameweek:       gameweek,
		Method:         method,
		Strategy:       strategy,
		Robust:         roster.Robust,
		Formation:      roster.Formation,
		CaptainID:      roster.CaptainID,
		TotalCost:      roster.TotalCost,
		ExpectedPoints: roster.TotalScore,
		ObjectiveValue: roster.ObjectiveValue,
		Roster:         datatypes.JSON(data),
	}, nil
}
