package forecast

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/stitts-dev/fpl-optimizer/internal/models"
)

// ScoringFeatures are the underlying FPL statistics the hybrid model learns from.
var ScoringFeatures = []string{
	"ict_index",
	"influence",
	"creativity",
	"threat",
	"expected_goals",
	"expected_assists",
	"expected_goal_involvements",
	"expected_goals_conceded",
	"starts",
}

const (
	DefaultRidgeAlpha  = 1.0
	minHybridRows      = 10
	actualWeight       = 2.0
	predictedWeight    = 1.0
	normalizationGuard = 1e-10
)

type positionModel struct {
	means  []float64
	scales []float64
	coef   *mat.VecDense
	yMean  float64
}

// HybridModel is a per-position ridge regression of season points on
// standardized underlying statistics.
type HybridModel struct {
	alpha  float64
	models map[models.Position]*positionModel
	log    *logrus.Entry
}

func NewHybridModel(alpha float64, log *logrus.Entry) *HybridModel {
	if alpha <= 0 {
		alpha = DefaultRidgeAlpha
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &HybridModel{alpha: alpha, models: make(map[models.Position]*positionModel), log: log}
}

// Fit trains one model per position with at least ten players.
func (h *HybridModel) Fit(players []models.Player) error {
	byPos := make(map[models.Position][]models.Player)
	for _, p := range players {
		byPos[p.Position] = append(byPos[p.Position], p)
	}

	for _, pos := range models.Positions {
		rows := byPos[pos]
		if len(rows) < minHybridRows {
			h.log.WithField("position", pos).Warn("Insufficient data for hybrid model")
			continue
		}
		m, err := h.fitPosition(rows)
		if err != nil {
			return fmt.Errorf("failed to fit hybrid model for %s: %w", pos, err)
		}
		h.models[pos] = m
		h.log.WithFields(logrus.Fields{"position": pos, "rows": len(rows)}).Info("Fitted hybrid model")
	}
	return nil
}

func (h *HybridModel) fitPosition(rows []models.Player) (*positionModel, error) {
	n, k := len(rows), len(ScoringFeatures)
	m := &positionModel{means: make([]float64, k), scales: make([]float64, k)}

	col := make([]float64, n)
	for j, f := range ScoringFeatures {
		for i, p := range rows {
			col[i] = p.Stats[f]
		}
		mean, std := stat.PopMeanStdDev(col, nil)
		if std == 0 || math.IsNaN(std) {
			std = 1
		}
		m.means[j], m.scales[j] = mean, std
	}

	x := mat.NewDense(n, k, nil)
	y := make([]float64, n)
	for i, p := range rows {
		for j, f := range ScoringFeatures {
			x.Set(i, j, (p.Stats[f]-m.means[j])/m.scales[j])
		}
		y[i] = p.TotalPoints
	}
	m.yMean = stat.Mean(y, nil)
	for i := range y {
		y[i] -= m.yMean
	}

	// (X'X + alpha*I) beta = X'y
	var gram mat.Dense
	gram.Mul(x.T(), x)
	for j := 0; j < k; j++ {
		gram.Set(j, j, gram.At(j, j)+h.alpha)
	}
	var rhs mat.VecDense
	rhs.MulVec(x.T(), mat.NewVecDense(n, y))

	var coef mat.VecDense
	if err := coef.SolveVec(&gram, &rhs); err != nil {
		return nil, err
	}
	m.coef = &coef
	return m, nil
}

// Predict returns the clipped model prediction, or zero when the player's
// position has no fitted model.
func (h *HybridModel) Predict(p models.Player) float64 {
	m, ok := h.models[p.Position]
	if !ok {
		return 0
	}
	pred := m.yMean
	for j, f := range ScoringFeatures {
		pred += m.coef.AtVec(j) * (p.Stats[f] - m.means[j]) / m.scales[j]
	}
	return math.Max(0, pred)
}

// Score blends actual season points with predictions 2:1 after min-max
// normalizing both, then maps the blend back onto the actual points range.
func (h *HybridModel) Score(players []models.Player) map[int]float64 {
	out := make(map[int]float64, len(players))
	if len(players) == 0 {
		return out
	}

	actual := make([]float64, len(players))
	pred := make([]float64, len(players))
	for i, p := range players {
		actual[i] = p.TotalPoints
		pred[i] = h.Predict(p)
	}
	aMin, aMax := minMax(actual)
	pMin, pMax := minMax(pred)

	for i, p := range players {
		an := (actual[i] - aMin) / (aMax - aMin + normalizationGuard)
		pn := (pred[i] - pMin) / (pMax - pMin + normalizationGuard)
		blend := (actualWeight*an + predictedWeight*pn) / (actualWeight + predictedWeight)
		out[p.ID] = math.Max(0, blend*(aMax-aMin)+aMin)
	}
	return out
}

func (h *HybridModel) Fitted() []models.Position {
	var out []models.Position
	for _, pos := range models.Positions {
		if _, ok := h.models[pos]; ok {
			out = append(out, pos)
		}
	}
	return out
}

func minMax(xs []float64) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, x := range xs {
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
	}
	return lo, hi
}
