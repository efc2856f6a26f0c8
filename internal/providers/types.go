package providers

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/stitts-dev/fpl-optimizer/internal/models"
)

// DataSource is everything the gameweek pipeline needs from the outside world.
type DataSource interface {
	Players(ctx context.Context) ([]models.Player, error)
	CurrentGameweek(ctx context.Context) (int, error)
	// PlayerHistory returns points per completed gameweek before the given one, oldest first.
	PlayerHistory(ctx context.Context, playerID, beforeGameweek int) ([]float64, error)
	// FixtureDifficulty maps team id to the difficulty of its fixture in the gameweek.
	FixtureDifficulty(ctx context.Context, gameweek int) (map[int]int, error)
}

// CacheProvider is the subset of the cache the client uses.
type CacheProvider interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
}

// flexFloat decodes FPL numbers that arrive as strings ("5.2"), numbers or null.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*f = flexFloat(v)
	return nil
}

type bootstrapResponse struct {
	Elements []fplElement `json:"elements"`
	Teams    []fplTeam    `json:"teams"`
	Events   []fplEvent   `json:"events"`
}

type fplElement struct {
	ID                       int       `json:"id"`
	WebName                  string    `json:"web_name"`
	FirstName                string    `json:"first_name"`
	SecondName               string    `json:"second_name"`
	Team                     int       `json:"team"`
	ElementType              int       `json:"element_type"`
	NowCost                  int       `json:"now_cost"`
	SelectedByPercent        flexFloat `json:"selected_by_percent"`
	Form                     flexFloat `json:"form"`
	TotalPoints              int       `json:"total_points"`
	PointsPerGame            flexFloat `json:"points_per_game"`
	Minutes                  int       `json:"minutes"`
	ChanceOfPlayingNextRound *int      `json:"chance_of_playing_next_round"`
	Influence                flexFloat `json:"influence"`
	Creativity               flexFloat `json:"creativity"`
	Threat                   flexFloat `json:"threat"`
	ICTIndex                 flexFloat `json:"ict_index"`
	ExpectedGoals            flexFloat `json:"expected_goals"`
	ExpectedAssists          flexFloat `json:"expected_assists"`
	ExpectedGoalInvolvements flexFloat `json:"expected_goal_involvements"`
	ExpectedGoalsConceded    flexFloat `json:"expected_goals_conceded"`
	Starts                   flexFloat `json:"starts"`
}

type fplTeam struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	ShortName string `json:"short_name"`
}

type fplEvent struct {
	ID        int  `json:"id"`
	IsCurrent bool `json:"is_current"`
	IsNext    bool `json:"is_next"`
	Finished  bool `json:"finished"`
}

type elementSummaryResponse struct {
	History []struct {
		Round       int `json:"round"`
		TotalPoints int `json:"total_points"`
		Minutes     int `json:"minutes"`
	} `json:"history"`
}

type fplFixture struct {
	ID              int `json:"id"`
	Event           int `json:"event"`
	TeamH           int `json:"team_h"`
	TeamA           int `json:"team_a"`
	TeamHDifficulty int `json:"team_h_difficulty"`
	TeamADifficulty int `json:"team_a_difficulty"`
}

// toPlayer maps an FPL element onto the catalog model. Prices arrive in tenths
// of a million.
func (e fplElement) toPlayer(teams map[int]string) (models.Player, error) {
	pos, err := models.ParsePosition(strconv.Itoa(e.ElementType))
	if err != nil {
		return models.Player{}, err
	}
	p := models.Player{
		ID:               e.ID,
		Name:             e.WebName,
		FullName:         strings.TrimSpace(e.FirstName + " " + e.SecondName),
		TeamID:           e.Team,
		TeamName:         teams[e.Team],
		Position:         pos,
		Cost:             float64(e.NowCost) / 10,
		OwnershipPercent: float64(e.SelectedByPercent),
		Form:             float64(e.Form),
		CeilingProxy:     float64(e.ICTIndex),
		TotalPoints:      float64(e.TotalPoints),
		Stats: map[string]float64{
			"ict_index":                  float64(e.ICTIndex),
			"influence":                  float64(e.Influence),
			"creativity":                 float64(e.Creativity),
			"threat":                     float64(e.Threat),
			"expected_goals":             float64(e.ExpectedGoals),
			"expected_assists":           float64(e.ExpectedAssists),
			"expected_goal_involvements": float64(e.ExpectedGoalInvolvements),
			"expected_goals_conceded":    float64(e.ExpectedGoalsConceded),
			"starts":                     float64(e.Starts),
			"minutes":                    float64(e.Minutes),
			"points_per_game":            float64(e.PointsPerGame),
		},
	}
	if e.ChanceOfPlayingNextRound != nil {
		p.AvailabilityChance = models.Chance(float64(*e.ChanceOfPlayingNextRound))
	}
	return p, nil
}

var _ json.Unmarshaler = (*flexFloat)(nil)
