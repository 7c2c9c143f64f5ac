// Package distribution discretizes the log-normal terminal-price distribution
// of the underlying onto a register grid of 2^n points.
package distribution

import (
	"errors"
	"fmt"
	"math"

	"github.com/aristath/qpricing/internal/domain"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// MaxQubits bounds the grid at 1024 points
const MaxQubits = 10

var (
	// ErrDegenerateDistribution is returned when the truncated support collapses
	// to a point (zero days to maturity or an empty [low, high] interval)
	ErrDegenerateDistribution = errors.New("degenerate log-normal distribution")
	// ErrInvalidQubits is returned for a register size outside [1, MaxQubits]
	ErrInvalidQubits = errors.New("invalid number of uncertainty qubits")
)

// Moments holds the log-normal parameters and truncation bounds of a scenario
type Moments struct {
	Mu       float64 `json:"mu" msgpack:"mu"`
	Sigma    float64 `json:"sigma" msgpack:"sigma"`
	Mean     float64 `json:"mean" msgpack:"mean"`
	Variance float64 `json:"variance" msgpack:"variance"`
	StdDev   float64 `json:"stddev" msgpack:"stddev"`
	Low      float64 `json:"low" msgpack:"low"`
	High     float64 `json:"high" msgpack:"high"`
}

// Distribution is a discretized probability mass function over an evenly spaced grid
type Distribution struct {
	Moments       `msgpack:",inline"`
	NumQubits     int       `json:"num_qubits" msgpack:"num_qubits"`
	Values        []float64 `json:"values" msgpack:"values"`
	Probabilities []float64 `json:"probabilities" msgpack:"probabilities"`
}

// ComputeMoments derives the log-normal moments of S_T under the risk-neutral
// drift and truncates the support at three standard deviations around the mean
func ComputeMoments(p domain.OptionParameters) Moments {
	t := p.Maturity()
	vol := p.Volatility

	mu := (p.Rate-0.5*vol*vol)*t + math.Log(p.Spot)
	sigma := vol * math.Sqrt(t)
	mean := math.Exp(mu + sigma*sigma/2)
	variance := (math.Exp(sigma*sigma) - 1) * math.Exp(2*mu+sigma*sigma)
	stddev := math.Sqrt(variance)

	return Moments{
		Mu:       mu,
		Sigma:    sigma,
		Mean:     mean,
		Variance: variance,
		StdDev:   stddev,
		Low:      math.Max(0, mean-3*stddev),
		High:     mean + 3*stddev,
	}
}

// Build computes the moments of p and discretizes the density onto 2^numQubits points
func Build(p domain.OptionParameters, numQubits int) (*Distribution, error) {
	if numQubits < 1 || numQubits > MaxQubits {
		return nil, fmt.Errorf("%w: %d (must be between 1 and %d)", ErrInvalidQubits, numQubits, MaxQubits)
	}
	m := ComputeMoments(p)
	if !(m.Sigma > 0) || !(m.High > m.Low) {
		return nil, fmt.Errorf("%w: sigma=%v low=%v high=%v", ErrDegenerateDistribution, m.Sigma, m.Low, m.High)
	}

	n := 1 << numQubits
	values := make([]float64, n)
	floats.Span(values, m.Low, m.High)

	density := distuv.LogNormal{Mu: m.Mu, Sigma: m.Sigma}
	probabilities := make([]float64, n)
	for i, x := range values {
		if x <= 0 {
			// The log-normal has no mass at or below zero
			continue
		}
		probabilities[i] = density.Prob(x)
	}

	total := floats.Sum(probabilities)
	if !(total > 0) || math.IsInf(total, 0) {
		return nil, fmt.Errorf("%w: density vanishes on the grid", ErrDegenerateDistribution)
	}
	floats.Scale(1/total, probabilities)

	return &Distribution{
		Moments:       m,
		NumQubits:     numQubits,
		Values:        values,
		Probabilities: probabilities,
	}, nil
}

// Len returns the number of grid points
func (d *Distribution) Len() int {
	return len(d.Values)
}

// GridMean returns the mean of the discretized distribution
func (d *Distribution) GridMean() float64 {
	return stat.Mean(d.Values, d.Probabilities)
}

// GridStdDev returns the standard deviation of the discretized distribution
func (d *Distribution) GridStdDev() float64 {
	return stat.PopStdDev(d.Values, d.Probabilities)
}
