// Package exact computes ground-truth values by direct summation over the
// discretized distribution, plus a closed-form Black-Scholes reference.
package exact

import (
	"fmt"
	"math"

	"github.com/aristath/qpricing/internal/domain"
	"github.com/aristath/qpricing/internal/modules/distribution"
	"github.com/aristath/qpricing/internal/modules/payoff"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// Values holds the exact expected payoff and delta on the grid
type Values struct {
	Payoff     []float64 `json:"payoff"` // payoff at each grid value
	Value      float64   `json:"value"`  // undiscounted expected payoff
	Delta      float64   `json:"delta"`
	Discount   float64   `json:"discount"`   // exp(-rT)
	Discounted float64   `json:"discounted"` // Discount * Value
}

// Evaluate computes the exact expected payoff and delta of the option on d.
// The payoff vector comes from enc, which must encode the same option.
func Evaluate(p domain.OptionParameters, d *distribution.Distribution, enc *payoff.Encoder) (*Values, error) {
	if len(d.Values) != len(d.Probabilities) {
		return nil, fmt.Errorf("grid has %d values but %d probabilities", len(d.Values), len(d.Probabilities))
	}
	if enc == nil || enc.Type != p.Type || enc.Strike != p.Strike {
		return nil, fmt.Errorf("encoder does not match %s option with strike %v", p.Type, p.Strike)
	}

	payoffs := enc.PayoffAt(d.Values)

	var exercised float64
	for i, x := range d.Values {
		if p.Type.Exercised(x, p.Strike) {
			exercised += d.Probabilities[i]
		}
	}

	value := floats.Dot(d.Probabilities, payoffs)
	discount := math.Exp(-p.Rate * p.Maturity())

	return &Values{
		Payoff:     payoffs,
		Value:      value,
		Delta:      p.Type.DeltaSign() * exercised,
		Discount:   discount,
		Discounted: discount * value,
	}, nil
}

// Reference is the continuous-model Black-Scholes price and delta
type Reference struct {
	Price float64 `json:"price"`
	Delta float64 `json:"delta"`
}

// BlackScholes prices the option in closed form. It returns false when the
// maturity or volatility is zero and the model degenerates.
func BlackScholes(p domain.OptionParameters) (Reference, bool) {
	t := p.Maturity()
	if !(t > 0) || !(p.Volatility > 0) {
		return Reference{}, false
	}

	sqrtT := math.Sqrt(t)
	d1 := (math.Log(p.Spot/p.Strike) + (p.Rate+0.5*p.Volatility*p.Volatility)*t) / (p.Volatility * sqrtT)
	d2 := d1 - p.Volatility*sqrtT
	n := distuv.UnitNormal
	df := math.Exp(-p.Rate * t)

	if p.Type == domain.OptionTypePut {
		return Reference{
			Price: p.Strike*df*n.CDF(-d2) - p.Spot*n.CDF(-d1),
			Delta: n.CDF(d1) - 1,
		}, true
	}
	return Reference{
		Price: p.Spot*n.CDF(d1) - p.Strike*df*n.CDF(d2),
		Delta: n.CDF(d1),
	}, true
}
