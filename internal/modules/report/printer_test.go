package report

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aristath/qpricing/internal/modules/estimation"
	"github.com/aristath/qpricing/internal/modules/exact"
)

func TestPrinter_Value(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.Value(0.16934, &estimation.Result{Estimation: 0.17501, MaxProbability: 0.80999})

	expected := "---------------------------\n" +
		"Exact value:    \t0.1693\n" +
		"Estimated value:\t0.1750\n" +
		"Probability:    \t0.8100\n" +
		"---------------------------\n\n"
	assert.Equal(t, expected, buf.String())
	assert.NoError(t, p.Err())
}

func TestPrinter_Delta(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	result := &estimation.Result{Estimation: 0.8123, MaxProbability: 0.5}
	p.Delta(-0.81, result.Negated())

	expected := "---------------------------\n" +
		"Exact delta:   \t-0.8100\n" +
		"Estimated value:\t-0.8123\n" +
		"Probability:   \t0.5000\n" +
		"---------------------------\n\n"
	assert.Equal(t, expected, buf.String())
}

func TestPrinter_ProgressAndInvalid(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.Progress(StepInitialize)
	p.Progress(StepPlotDistribution)
	p.InvalidParameters()

	assert.Equal(t, "Initialize algorithm...\n\nPlotting probability distribution... \n\nSome parameters wrong !!! \n", buf.String())
}

func TestPrinter_Reference(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.Reference(Reference{
		MLValue:       0.171,
		MLDelta:       0.8,
		Discounted:    0.1683,
		BlackScholes:  exact.Reference{Price: 0.1702, Delta: 0.7987},
		HasClosedForm: true,
	})
	out := buf.String()
	assert.Contains(t, out, "ML value:        \t0.1710\n")
	assert.Contains(t, out, "Black-Scholes:   \t0.1702\n")
	assert.Contains(t, out, "BS delta:        \t0.7987\n")

	buf.Reset()
	p.Reference(Reference{})
	assert.Contains(t, buf.String(), "Black-Scholes:   \tn/a\n")
}

type failingWriter struct{ writes int }

func (w *failingWriter) Write(b []byte) (int, error) {
	w.writes++
	return 0, errors.New("closed pipe")
}

func TestPrinter_KeepsFirstError(t *testing.T) {
	w := &failingWriter{}
	p := NewPrinter(w)

	p.Progress(StepInitialize)
	p.Value(1, &estimation.Result{})

	assert.EqualError(t, p.Err(), "closed pipe")
	assert.Equal(t, 1, w.writes)
}
