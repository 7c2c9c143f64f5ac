package estimation

import (
	"context"
	"math"
	"sort"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/optimize"
)

// BackendAnalytic names the closed-form canonical amplitude estimation backend
const BackendAnalytic = "analytic"

const (
	// candidates below this probability are dropped from the result
	minItemProbability = 1e-6
	// estimates are merged after rounding to this many decimals
	roundingScale = 1e7
	// floor for outcome likelihoods so impossible outcomes stay finite
	minLikelihood = 1e-300
)

// AnalyticEstimator evaluates the outcome distribution of ideal canonical
// amplitude estimation in closed form. With M = 2^m evaluation outcomes and
// a = sin^2(pi*theta), outcome y is measured with probability
// (F(y/M - theta) + F(y/M + theta)) / 2 and read as sin^2(pi*y/M), where F is
// the Fejer kernel of order M.
type AnalyticEstimator struct {
	log      zerolog.Logger
	minimize minimizeFunc
}

type minimizeFunc func(optimize.Problem, []float64, *optimize.Settings, optimize.Method) (*optimize.Result, error)

// NewAnalyticEstimator creates the analytic backend
func NewAnalyticEstimator(log zerolog.Logger) *AnalyticEstimator {
	return &AnalyticEstimator{
		log:      log.With().Str("estimator", BackendAnalytic).Logger(),
		minimize: optimize.Minimize,
	}
}

// Name returns the backend name
func (e *AnalyticEstimator) Name() string {
	return BackendAnalytic
}

// Estimate runs canonical amplitude estimation on the problem
func (e *AnalyticEstimator) Estimate(ctx context.Context, problem Problem) (*Result, error) {
	if err := problem.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a := problem.Amplitude()
	outcomes := outcomeProbabilities(a, problem.EvaluationQubits)
	m := 1 << problem.EvaluationQubits

	merged := make(map[float64]float64, m/2+1)
	for y, p := range outcomes {
		merged[roundEstimate(outcomeAmplitude(y, m))] += p
	}

	values := make([]float64, 0, len(merged))
	for v, p := range merged {
		if p > minItemProbability {
			values = append(values, v)
		}
	}
	sort.Float64s(values)

	result := &Result{
		Values:           values,
		Probabilities:    make([]float64, len(values)),
		MappedValues:     make([]float64, len(values)),
		EvaluationQubits: problem.EvaluationQubits,
		Backend:          BackendAnalytic,
	}
	best := 0.0
	for i, v := range values {
		p := merged[v]
		result.Probabilities[i] = p
		result.MappedValues[i] = problem.Objective.ValueToEstimation(v)
		if p > result.MaxProbability {
			result.MaxProbability = p
			best = v
		}
	}
	result.Estimation = problem.Objective.ValueToEstimation(best)

	ml := e.maximumLikelihood(best, outcomes, problem.EvaluationQubits)
	result.MLEstimation = problem.Objective.ValueToEstimation(ml)

	e.log.Debug().
		Float64("amplitude", a).
		Float64("estimate", best).
		Float64("ml_estimate", ml).
		Float64("max_probability", result.MaxProbability).
		Int("candidates", len(values)).
		Msg("Amplitude estimation completed")

	return result, nil
}

// outcomeAmplitude maps outcome y of M to its amplitude estimate sin^2(pi*y/M)
func outcomeAmplitude(y, m int) float64 {
	s := math.Sin(math.Pi * float64(y) / float64(m))
	return s * s
}

func roundEstimate(v float64) float64 {
	return math.Round(v*roundingScale) / roundingScale
}

// fejer is the normalized Fejer kernel sin^2(M*pi*d) / (M^2 * sin^2(pi*d))
func fejer(d float64, m int) float64 {
	den := math.Sin(math.Pi * d)
	if math.Abs(den) < 1e-12 {
		return 1
	}
	num := math.Sin(float64(m) * math.Pi * d)
	return (num * num) / (float64(m*m) * den * den)
}

// outcomeProbabilities returns the probability of each of the 2^qubits outcomes
// when the true amplitude is a
func outcomeProbabilities(a float64, qubits int) []float64 {
	m := 1 << qubits
	theta := math.Asin(math.Sqrt(a)) / math.Pi
	out := make([]float64, m)
	for y := range out {
		x := float64(y) / float64(m)
		out[y] = 0.5 * (fejer(x-theta, m) + fejer(x+theta, m))
	}
	return out
}

// logLikelihood of amplitude a given the observed outcome frequencies
func logLikelihood(a float64, observed []float64, qubits int) float64 {
	expected := outcomeProbabilities(a, qubits)
	var ll float64
	for y, p := range observed {
		if p <= minItemProbability {
			continue
		}
		ll += p * math.Log(math.Max(expected[y], minLikelihood))
	}
	return ll
}

// maximumLikelihood refines the canonical estimate by maximizing the
// likelihood over the bubbles adjacent to it
func (e *AnalyticEstimator) maximumLikelihood(estimate float64, observed []float64, qubits int) float64 {
	m := 1 << qubits
	y := int(math.Round(float64(m) * math.Asin(math.Sqrt(estimate)) / math.Pi))

	var bubbles []float64
	switch {
	case y <= 0:
		bubbles = []float64{estimate, outcomeAmplitude(1, m)}
	case y >= m/2:
		bubbles = []float64{outcomeAmplitude(m/2-1, m), estimate}
	default:
		bubbles = []float64{outcomeAmplitude(y-1, m), estimate, outcomeAmplitude(y+1, m)}
	}

	best := estimate
	bestLL := logLikelihood(estimate, observed, qubits)
	for i := 0; i+1 < len(bubbles); i++ {
		a, ll := e.maximizeOn(bubbles[i], bubbles[i+1], observed, qubits)
		if ll > bestLL {
			best, bestLL = a, ll
		}
	}
	return best
}

// maximizeOn maximizes the log-likelihood over [lo, hi] with Nelder-Mead on the
// bounded reparametrization a(t) = lo + (hi-lo)*(1+sin t)/2
func (e *AnalyticEstimator) maximizeOn(lo, hi float64, observed []float64, qubits int) (float64, float64) {
	at := func(t float64) float64 {
		return lo + (hi-lo)*(1+math.Sin(t))/2
	}
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			return -logLikelihood(at(x[0]), observed, qubits)
		},
	}

	// A non-converged run still reports the best location found
	res, err := e.minimize(problem, []float64{0}, nil, &optimize.NelderMead{})
	if err != nil {
		e.log.Debug().
			Err(err).
			Float64("lo", lo).
			Float64("hi", hi).
			Bool("has_result", res != nil && len(res.X) > 0).
			Msg("Likelihood refinement did not converge")
	}
	if res == nil || len(res.X) == 0 {
		mid := (lo + hi) / 2
		return mid, logLikelihood(mid, observed, qubits)
	}
	return at(res.X[0]), -res.F
}
