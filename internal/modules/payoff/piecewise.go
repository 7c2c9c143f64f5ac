// Package payoff encodes option payoff and delta as piecewise-linear
// objectives sampled on the distribution grid.
package payoff

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidDescriptor is returned when a descriptor's segment arrays disagree
var ErrInvalidDescriptor = errors.New("invalid piecewise-linear descriptor")

// PiecewiseLinear describes f(x) = Offsets[i] + Slopes[i]*(x - Breakpoints[i])
// on the segment starting at Breakpoints[i], clamped to [FMin, FMax].
// ApproxScale is the fidelity trade-off of the sine-squared amplitude encoding.
type PiecewiseLinear struct {
	Breakpoints []float64 `json:"breakpoints" msgpack:"breakpoints"`
	Slopes      []float64 `json:"slopes" msgpack:"slopes"`
	Offsets     []float64 `json:"offsets" msgpack:"offsets"`
	FMin        float64   `json:"f_min" msgpack:"f_min"`
	FMax        float64   `json:"f_max" msgpack:"f_max"`
	ApproxScale float64   `json:"c_approx" msgpack:"c_approx"`
}

// Validate checks array lengths and the scale factor
func (f PiecewiseLinear) Validate() error {
	if len(f.Breakpoints) == 0 {
		return fmt.Errorf("%w: no breakpoints", ErrInvalidDescriptor)
	}
	if len(f.Slopes) != len(f.Breakpoints) || len(f.Offsets) != len(f.Breakpoints) {
		return fmt.Errorf("%w: %d breakpoints, %d slopes, %d offsets",
			ErrInvalidDescriptor, len(f.Breakpoints), len(f.Slopes), len(f.Offsets))
	}
	if !(f.ApproxScale > 0) || f.ApproxScale > 1 {
		return fmt.Errorf("%w: approximation scale %v must be in (0, 1]", ErrInvalidDescriptor, f.ApproxScale)
	}
	return nil
}

// segment returns the last breakpoint index not above x, or 0 when x lies
// left of every breakpoint
func (f PiecewiseLinear) segment(x float64) int {
	seg := 0
	for i, bp := range f.Breakpoints {
		if x >= bp {
			seg = i
		}
	}
	return seg
}

// Evaluate returns the clamped function value at x. An inverted range
// (FMax < FMin, a strike outside the grid) only clamps from below.
func (f PiecewiseLinear) Evaluate(x float64) float64 {
	i := f.segment(x)
	y := math.Max(f.FMin, f.Offsets[i]+f.Slopes[i]*(x-f.Breakpoints[i]))
	if f.FMax >= f.FMin {
		y = math.Min(f.FMax, y)
	}
	return y
}

// normalized maps f(x) onto [0, 1]; a flat codomain maps to 0
func (f PiecewiseLinear) normalized(x float64) float64 {
	span := f.FMax - f.FMin
	if !(span > 0) {
		return 0
	}
	return (f.Evaluate(x) - f.FMin) / span
}

// Angle returns the rotation angle phi whose sin^2 encodes f(x):
// phi = pi/4*(1-c) + pi*c/2*g(x)
func (f PiecewiseLinear) Angle(x float64) float64 {
	c := f.ApproxScale
	return math.Pi/4*(1-c) + math.Pi*c/2*f.normalized(x)
}

// Amplitude returns the probability of the objective qubit reading 1 at x
func (f PiecewiseLinear) Amplitude(x float64) float64 {
	s := math.Sin(f.Angle(x))
	return s * s
}

// ValueToEstimation inverts the linearized amplitude encoding, mapping an
// estimated amplitude back to the objective's codomain
func (f PiecewiseLinear) ValueToEstimation(a float64) float64 {
	c := f.ApproxScale
	if c >= 1 {
		return a
	}
	g := (a - 0.5 + math.Pi/4*c) * 2 / math.Pi / c
	return f.FMin + (f.FMax-f.FMin)*g
}
