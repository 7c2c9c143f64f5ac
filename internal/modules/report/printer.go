// Package report writes the console report of a pricing run.
package report

import (
	"fmt"
	"io"

	"github.com/aristath/qpricing/internal/modules/estimation"
	"github.com/aristath/qpricing/internal/modules/exact"
)

const separator = "---------------------------"

// ParametersWrong is printed when option construction rejects the inputs
const ParametersWrong = "Some parameters wrong !!! "

// Progress steps, printed in run order
const (
	StepInitialize       = "Initialize algorithm..."
	StepPlotDistribution = "Plotting probability distribution... "
	StepPlotPayoff       = "Plotting payoff function... "
	StepEvaluatePayoff   = "Evaluating expected payoff... "
	StepPlotEstimation   = "Plotting estimated data values... "
	StepEvaluateDelta    = "Evaluating delta values... "
	StepPlotDelta        = "Plotting delta values... "
)

// Reference collects the figures printed after the two estimation blocks
type Reference struct {
	MLValue       float64
	MLDelta       float64
	Discounted    float64
	BlackScholes  exact.Reference
	HasClosedForm bool
}

// Printer writes report sections to out. The first write error is kept and
// later writes become no-ops.
type Printer struct {
	out io.Writer
	err error
}

// NewPrinter creates a printer writing to out
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// Err returns the first write error, if any
func (p *Printer) Err() error {
	return p.err
}

func (p *Printer) printf(format string, args ...interface{}) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.out, format, args...)
}

// Progress prints a progress step followed by a blank line
func (p *Printer) Progress(step string) {
	p.printf("%s\n\n", step)
}

// InvalidParameters prints the construction failure notice
func (p *Printer) InvalidParameters() {
	p.printf("%s\n", ParametersWrong)
}

// Value prints the exact and estimated expected payoff
func (p *Printer) Value(exactValue float64, result *estimation.Result) {
	p.printf("%s\n", separator)
	p.printf("Exact value:    \t%.4f\n", exactValue)
	p.printf("Estimated value:\t%.4f\n", result.Estimation)
	p.printf("Probability:    \t%.4f\n", result.MaxProbability)
	p.printf("%s\n\n", separator)
}

// Delta prints the exact and estimated delta. Put results must already be
// negated.
func (p *Printer) Delta(exactDelta float64, result *estimation.Result) {
	p.printf("%s\n", separator)
	p.printf("Exact delta:   \t%.4f\n", exactDelta)
	p.printf("Estimated value:\t%.4f\n", result.Estimation)
	p.printf("Probability:   \t%.4f\n", result.MaxProbability)
	p.printf("%s\n\n", separator)
}

// Reference prints the maximum-likelihood estimates and the closed-form figures
func (p *Printer) Reference(ref Reference) {
	p.printf("Reference\n%s\n", separator)
	p.printf("ML value:        \t%.4f\n", ref.MLValue)
	p.printf("ML delta:        \t%.4f\n", ref.MLDelta)
	p.printf("Discounted value:\t%.4f\n", ref.Discounted)
	if ref.HasClosedForm {
		p.printf("Black-Scholes:   \t%.4f\n", ref.BlackScholes.Price)
		p.printf("BS delta:        \t%.4f\n", ref.BlackScholes.Delta)
	} else {
		p.printf("Black-Scholes:   \tn/a\n")
	}
	p.printf("%s\n\n", separator)
}
