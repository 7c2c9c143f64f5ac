package payoff

import (
	"fmt"

	"github.com/aristath/qpricing/internal/domain"
)

// Default approximation scale factors
const (
	DefaultPayoffApproxScale = 0.25
	DefaultDeltaApproxScale  = 1.0
)

// terms holds the sign and shift conventions of one option variant. Both the
// payoff and the delta indicator descriptors are built from it.
type terms struct {
	payoffSlopes  [2]float64
	payoffOffsets func(strike, low float64) [2]float64
	payoffMax     func(strike, low, high float64) float64
	deltaOffsets  [2]float64
}

var variants = map[domain.OptionType]terms{
	domain.OptionTypeCall: {
		payoffSlopes:  [2]float64{0, 1},
		payoffOffsets: func(_, _ float64) [2]float64 { return [2]float64{0, 0} },
		payoffMax:     func(strike, _, high float64) float64 { return high - strike },
		deltaOffsets:  [2]float64{0, 1},
	},
	domain.OptionTypePut: {
		payoffSlopes:  [2]float64{-1, 0},
		payoffOffsets: func(strike, low float64) [2]float64 { return [2]float64{strike - low, 0} },
		payoffMax:     func(strike, low, _ float64) float64 { return strike - low },
		deltaOffsets:  [2]float64{1, 0},
	},
}

// Encoder builds the payoff and delta descriptors for one option over [Low, High]
type Encoder struct {
	Type   domain.OptionType
	Strike float64
	Low    float64
	High   float64
}

// NewEncoder creates an encoder for the given option and grid bounds
func NewEncoder(optionType domain.OptionType, strike, low, high float64) (*Encoder, error) {
	if _, ok := variants[optionType]; !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownOptionType, optionType)
	}
	return &Encoder{Type: optionType, Strike: strike, Low: low, High: high}, nil
}

func (e *Encoder) breakpoints() []float64 {
	return []float64{e.Low, e.Strike}
}

// Payoff returns the payoff descriptor with approximation scale c
func (e *Encoder) Payoff(c float64) PiecewiseLinear {
	v := variants[e.Type]
	slopes := v.payoffSlopes
	offsets := v.payoffOffsets(e.Strike, e.Low)
	return PiecewiseLinear{
		Breakpoints: e.breakpoints(),
		Slopes:      slopes[:],
		Offsets:     offsets[:],
		FMin:        0,
		FMax:        v.payoffMax(e.Strike, e.Low, e.High),
		ApproxScale: c,
	}
}

// Delta returns the exercise-indicator descriptor with approximation scale c
func (e *Encoder) Delta(c float64) PiecewiseLinear {
	offsets := variants[e.Type].deltaOffsets
	return PiecewiseLinear{
		Breakpoints: e.breakpoints(),
		Slopes:      []float64{0, 0},
		Offsets:     offsets[:],
		FMin:        0,
		FMax:        1,
		ApproxScale: c,
	}
}

// PayoffAt returns the exact terminal payoff at each grid value
func (e *Encoder) PayoffAt(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, x := range values {
		out[i] = e.Type.Payoff(x, e.Strike)
	}
	return out
}
