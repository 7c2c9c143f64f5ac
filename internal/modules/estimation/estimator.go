// Package estimation defines the pluggable amplitude estimation backend
// contract and the backends shipped with qpricing.
package estimation

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/aristath/qpricing/internal/modules/distribution"
	"github.com/aristath/qpricing/internal/modules/payoff"
)

// MaxEvaluationQubits bounds the estimation resolution at 4096 outcomes
const MaxEvaluationQubits = 12

// ErrInvalidProblem is returned when a problem cannot be estimated
var ErrInvalidProblem = errors.New("invalid estimation problem")

// Estimator estimates the expectation of an objective under an uncertainty model.
// Implementations must not retain or mutate the problem.
type Estimator interface {
	Estimate(ctx context.Context, problem Problem) (*Result, error)
	Name() string
}

// Problem is one estimation request: an uncertainty model, the objective encoded
// on top of it and the number of evaluation qubits (log2 of the sample count)
type Problem struct {
	Distribution     *distribution.Distribution `json:"distribution" msgpack:"distribution"`
	Objective        payoff.PiecewiseLinear     `json:"objective" msgpack:"objective"`
	EvaluationQubits int                        `json:"evaluation_qubits" msgpack:"evaluation_qubits"`
}

// Validate checks the problem is well formed
func (p Problem) Validate() error {
	d := p.Distribution
	if d == nil {
		return fmt.Errorf("%w: missing distribution", ErrInvalidProblem)
	}
	if len(d.Values) < 2 || len(d.Values) != len(d.Probabilities) {
		return fmt.Errorf("%w: grid has %d values and %d probabilities",
			ErrInvalidProblem, len(d.Values), len(d.Probabilities))
	}
	if p.EvaluationQubits < 1 || p.EvaluationQubits > MaxEvaluationQubits {
		return fmt.Errorf("%w: evaluation qubits %d must be between 1 and %d",
			ErrInvalidProblem, p.EvaluationQubits, MaxEvaluationQubits)
	}
	if err := p.Objective.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProblem, err)
	}
	return nil
}

// Amplitude is the probability of the objective qubit reading 1 once the
// objective is applied on top of the uncertainty model
func (p Problem) Amplitude() float64 {
	var a float64
	for i, x := range p.Distribution.Values {
		a += p.Distribution.Probabilities[i] * p.Objective.Amplitude(x)
	}
	return math.Min(1, math.Max(0, a))
}

// Result is the outcome of one estimation. Values are the candidate amplitudes,
// MappedValues the same candidates mapped to the objective's codomain.
type Result struct {
	Estimation       float64   `json:"estimation" msgpack:"estimation"`
	MaxProbability   float64   `json:"max_probability" msgpack:"max_probability"`
	Values           []float64 `json:"values" msgpack:"values"`
	Probabilities    []float64 `json:"probabilities" msgpack:"probabilities"`
	MappedValues     []float64 `json:"mapped_values" msgpack:"mapped_values"`
	MLEstimation     float64   `json:"ml_value" msgpack:"ml_value"`
	EvaluationQubits int       `json:"evaluation_qubits" msgpack:"evaluation_qubits"`
	Backend          string    `json:"backend" msgpack:"backend"`
}

// Negated returns a copy with the estimates and candidate values sign-flipped.
// Put deltas are reported this way; probabilities are unchanged.
func (r *Result) Negated() *Result {
	out := *r
	out.Estimation = -r.Estimation
	out.MLEstimation = -r.MLEstimation
	out.Values = negate(r.Values)
	out.MappedValues = negate(r.MappedValues)
	out.Probabilities = append([]float64(nil), r.Probabilities...)
	return &out
}

func negate(in []float64) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = -v
	}
	return out
}
