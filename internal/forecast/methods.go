// Package forecast estimates a raw expected-points number per player from
// their gameweek history. Every estimate is clipped at zero.
package forecast

import (
	"fmt"
	"math"
	"math/rand"
	"strings"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
)

type Method string

const (
	SimpleAverage        Method = "simple_average"
	WeightedAverage      Method = "weighted_average"
	ExponentialSmoothing Method = "exponential_smoothing"
	MonteCarlo           Method = "monte_carlo"
	Bootstrapping        Method = "bootstrapping"
	ARIMA                Method = "arima"
	LinearRegression     Method = "linear_regression"
	Hybrid               Method = "hybrid"
)

// Methods lists every supported method.
var Methods = []Method{
	SimpleAverage, WeightedAverage, ExponentialSmoothing, MonteCarlo,
	Bootstrapping, ARIMA, LinearRegression, Hybrid,
}

// CompareMethods is the set run side by side when comparing methods.
var CompareMethods = []Method{
	SimpleAverage, WeightedAverage, ExponentialSmoothing, MonteCarlo,
	ARIMA, LinearRegression, Hybrid,
}

func ParseMethod(s string) (Method, error) {
	m := Method(strings.ToLower(strings.TrimSpace(s)))
	if m == "" {
		return WeightedAverage, nil
	}
	for _, known := range Methods {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown forecast method %q", s)
}

// UsesHistory reports whether the method needs per-player gameweek history.
func (m Method) UsesHistory() bool {
	return m != Hybrid
}

const (
	DefaultDraws = 1000

	minSmoothingPoints  = 4
	minARIMAPoints      = 10
	minRegressionPoints = 3
)

// Estimator runs the history-based methods. It is not safe for concurrent use
// because the simulation methods share one random source.
type Estimator struct {
	draws int
	rng   *rand.Rand
	log   *logrus.Entry
}

func NewEstimator(draws int, seed int64, log *logrus.Entry) *Estimator {
	if draws <= 0 {
		draws = DefaultDraws
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Estimator{draws: draws, rng: rand.New(rand.NewSource(seed)), log: log}
}

// Estimate forecasts every player in histories. horizon is the number of
// gameweeks the trend methods average their forecast over.
func (e *Estimator) Estimate(histories map[int][]float64, method Method, horizon int) (map[int]float64, error) {
	if !method.UsesHistory() {
		return nil, fmt.Errorf("method %s does not forecast from history", method)
	}
	if horizon < 1 {
		horizon = 1
	}
	out := make(map[int]float64, len(histories))
	for id, h := range histories {
		out[id] = e.Forecast(h, method, horizon)
	}
	return out, nil
}

// Forecast estimates a single history.
func (e *Estimator) Forecast(history []float64, method Method, horizon int) float64 {
	if len(history) == 0 {
		return 0
	}
	var v float64
	switch method {
	case SimpleAverage:
		v = stat.Mean(history, nil)
	case WeightedAverage:
		v = weightedAverage(history)
	case ExponentialSmoothing:
		v = e.holt(history, horizon)
	case MonteCarlo:
		v = e.monteCarlo(history)
	case Bootstrapping:
		v = e.bootstrap(history)
	case ARIMA:
		v = e.arima(history)
	case LinearRegression:
		v = linearTrend(history, horizon)
	default:
		e.log.WithField("method", method).Warn("Unknown forecast method, using weighted average")
		v = weightedAverage(history)
	}
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// weightedAverage weights gameweek i (1-based) by i / sum(1..n).
func weightedAverage(history []float64) float64 {
	if len(history) == 0 {
		return 0
	}
	weights := make([]float64, len(history))
	for i := range weights {
		weights[i] = float64(i + 1)
	}
	return stat.Mean(history, weights)
}

func (e *Estimator) monteCarlo(history []float64) float64 {
	sum := 0.0
	for i := 0; i < e.draws; i++ {
		sum += history[e.rng.Intn(len(history))]
	}
	return sum / float64(e.draws)
}

// bootstrap averages the means of resampled histories.
func (e *Estimator) bootstrap(history []float64) float64 {
	n := len(history)
	resamples := e.draws / n
	if resamples < 1 {
		resamples = 1
	}
	total := 0.0
	for r := 0; r < resamples; r++ {
		sum := 0.0
		for i := 0; i < n; i++ {
			sum += history[e.rng.Intn(n)]
		}
		total += sum / float64(n)
	}
	return total / float64(resamples)
}

// holt fits Holt's additive-trend smoothing by minimizing the one-step squared
// error over (alpha, beta, initial level, initial trend) and returns the mean
// forecast over the horizon.
func (e *Estimator) holt(history []float64, horizon int) float64 {
	if len(history) < minSmoothingPoints {
		return weightedAverage(history)
	}

	sse := func(x []float64) float64 {
		alpha, beta := sigmoid(x[0]), sigmoid(x[1])
		level, trend := x[2], x[3]
		total := 0.0
		for _, y := range history {
			pred := level + trend
			total += (y - pred) * (y - pred)
			prevLevel := level
			level = alpha*y + (1-alpha)*(level+trend)
			trend = beta*(level-prevLevel) + (1-beta)*trend
		}
		return total
	}

	x0 := []float64{logit(0.5), logit(0.1), history[0], history[1] - history[0]}
	result, err := optimize.Minimize(optimize.Problem{Func: sse}, x0, &optimize.Settings{FuncEvaluations: 2000}, &optimize.NelderMead{})
	if err != nil || result == nil {
		e.log.WithError(err).Debug("Exponential smoothing fit failed, using weighted average")
		return weightedAverage(history)
	}

	alpha, beta := sigmoid(result.X[0]), sigmoid(result.X[1])
	level, trend := result.X[2], result.X[3]
	for _, y := range history {
		prevLevel := level
		level = alpha*y + (1-alpha)*(level+trend)
		trend = beta*(level-prevLevel) + (1-beta)*trend
	}

	sum := 0.0
	for h := 1; h <= horizon; h++ {
		sum += level + float64(h)*trend
	}
	return sum / float64(horizon)
}

// arima fits ARIMA(0,1,1). Its forecast equals simple exponential smoothing
// with alpha = 1 + theta, so the smoothing constant is fitted directly and the
// flat forecast is the final level.
func (e *Estimator) arima(history []float64) float64 {
	if len(history) < minARIMAPoints {
		return weightedAverage(history)
	}
	bestAlpha, bestSSE := 0.0, math.Inf(1)
	for step := 1; step < 100; step++ {
		alpha := float64(step) / 100
		level := history[0]
		sse := 0.0
		for _, y := range history[1:] {
			sse += (y - level) * (y - level)
			level = alpha*y + (1-alpha)*level
		}
		if sse < bestSSE {
			bestAlpha, bestSSE = alpha, sse
		}
	}
	level := history[0]
	for _, y := range history[1:] {
		level = bestAlpha*y + (1-bestAlpha)*level
	}
	return level
}

// linearTrend regresses points on gameweek index and averages the clipped
// forecasts over the horizon.
func linearTrend(history []float64, horizon int) float64 {
	n := len(history)
	if n < minRegressionPoints {
		return weightedAverage(history)
	}
	xs := make([]float64, n)
	for i := range xs {
		xs[i] = float64(i + 1)
	}
	alpha, beta := stat.LinearRegression(xs, history, nil, false)

	sum := 0.0
	for h := 1; h <= horizon; h++ {
		sum += math.Max(0, alpha+beta*float64(n+h))
	}
	return sum / float64(horizon)
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func logit(p float64) float64 {
	return math.Log(p / (1 - p))
}
