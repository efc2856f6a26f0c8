package optimizer

import (
	"fmt"
	"math"
	"sort"

	"github.com/stitts-dev/fpl-optimizer/internal/models"
)

// DefaultUncertaintyMargin is the haircut applied to every score in robust mode.
const DefaultUncertaintyMargin = 0.2

// Options control a single optimization.
type Options struct {
	Budget float64 `json:"budget"`
	// Robust maximizes the pessimistic score (1-UncertaintyMargin)*score.
	Robust bool `json:"robust"`
	// UncertaintyMargin defaults to DefaultUncertaintyMargin when zero.
	UncertaintyMargin float64 `json:"uncertainty_margin,omitempty"`
	ForceInclude      []int   `json:"force_include,omitempty"`
	ForceExclude      []int   `json:"force_exclude,omitempty"`
	// NodeLimit caps the relaxations solved; zero uses DefaultNodeLimit.
	NodeLimit int64 `json:"-"`
}

func (o Options) margin() float64 {
	if !o.Robust {
		return 0
	}
	if o.UncertaintyMargin == 0 {
		return DefaultUncertaintyMargin
	}
	return o.UncertaintyMargin
}

// Mode labels the objective for logs and metrics.
func (o Options) Mode() string {
	if o.Robust {
		return "robust"
	}
	return "deterministic"
}

// Variable is one binary selection variable of the model.
type Variable struct {
	Player models.Player
	// Score is the point estimate; Coefficient is what the objective maximizes.
	Score       float64
	Coefficient float64
	Forced      bool
}

// Model is the binary program: choose SquadSize variables and a captain among
// them maximizing the sum of coefficients plus the captain's coefficient.
type Model struct {
	Constraints *RosterConstraints
	Variables   []Variable
	Excluded    []int
	Robust      bool
	Margin      float64
}

// BuildModel validates the inputs and builds the formulation. Variables are
// ordered by coefficient (descending), then cost, then id.
func BuildModel(catalog *models.Catalog, scores map[int]float64, opts Options) (*Model, error) {
	if catalog == nil || catalog.Len() == 0 {
		return nil, fmt.Errorf("%w: %w: empty player catalog", models.ErrInfeasibleModel, models.ErrDegenerateInput)
	}
	margin := opts.margin()
	if margin < 0 || margin >= 1 {
		return nil, fmt.Errorf("%w: uncertainty margin must be in [0, 1), got %v", models.ErrDegenerateInput, margin)
	}
	if opts.Budget < 0 || math.IsNaN(opts.Budget) {
		return nil, fmt.Errorf("%w: budget must be non-negative, got %v", models.ErrInfeasibleModel, opts.Budget)
	}

	excluded := make(map[int]bool, len(opts.ForceExclude))
	for _, id := range opts.ForceExclude {
		excluded[id] = true
	}
	forced := make(map[int]bool, len(opts.ForceInclude))
	for _, id := range opts.ForceInclude {
		if excluded[id] {
			return nil, fmt.Errorf("%w: player %d is both forced in and excluded", models.ErrInfeasibleModel, id)
		}
		if !catalog.Has(id) {
			return nil, fmt.Errorf("%w: forced player %d is not in the catalog", models.ErrInfeasibleModel, id)
		}
		forced[id] = true
	}

	m := &Model{
		Constraints: DefaultConstraints(opts.Budget),
		Robust:      opts.Robust,
		Margin:      margin,
	}
	for _, p := range catalog.Players() {
		if excluded[p.ID] {
			m.Excluded = append(m.Excluded, p.ID)
			continue
		}
		score := scores[p.ID]
		if math.IsNaN(score) || math.IsInf(score, 0) {
			return nil, fmt.Errorf("%w: score for player %d is not finite", models.ErrDegenerateInput, p.ID)
		}
		m.Variables = append(m.Variables, Variable{
			Player:      p,
			Score:       score,
			Coefficient: score * (1 - margin),
			Forced:      forced[p.ID],
		})
	}
	sort.Ints(m.Excluded)

	sort.SliceStable(m.Variables, func(i, j int) bool {
		a, b := m.Variables[i], m.Variables[j]
		if a.Coefficient != b.Coefficient {
			return a.Coefficient > b.Coefficient
		}
		if a.Player.Cost != b.Player.Cost {
			return a.Player.Cost < b.Player.Cost
		}
		return a.Player.ID < b.Player.ID
	})

	return m, nil
}

// Describe lists the named constraints of the model.
func (m *Model) Describe() []string {
	rc := m.Constraints
	lines := []string{
		fmt.Sprintf("squad_size: sum(x) == %d", rc.SquadSize),
		fmt.Sprintf("budget: sum(cost*x) <= %.1f", rc.Budget),
		"captain_count: sum(c) == 1",
		"captain_selected: c[i] <= x[i]",
		fmt.Sprintf("team_limit: sum(x[team]) <= %d for every team", rc.MaxPlayersPerTeam),
	}
	for _, pos := range models.Positions {
		pc := rc.PositionConstraints[pos]
		lines = append(lines, fmt.Sprintf("position_%s: %d <= sum(x[%s]) <= %d", pos, pc.MinRequired, pos, pc.MaxAllowed))
	}
	for _, v := range m.Variables {
		if v.Forced {
			lines = append(lines, fmt.Sprintf("force_include_%d: x == 1", v.Player.ID))
		}
	}
	for _, id := range m.Excluded {
		lines = append(lines, fmt.Sprintf("force_exclude_%d: x == 0", id))
	}
	return lines
}

// ForcedCount reports how many variables are fixed to one.
func (m *Model) ForcedCount() int {
	n := 0
	for _, v := range m.Variables {
		if v.Forced {
			n++
		}
	}
	return n
}
