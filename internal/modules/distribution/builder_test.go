package distribution

import (
	"math"
	"testing"

	"github.com/aristath/qpricing/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

func atTheMoney() domain.OptionParameters {
	return domain.OptionParameters{
		Type:       domain.OptionTypeCall,
		Spot:       100,
		Volatility: 0.2,
		Rate:       0.05,
		Days:       365,
		Strike:     100,
	}
}

func TestComputeMoments_OneYearAtTheMoney(t *testing.T) {
	m := ComputeMoments(atTheMoney())

	assert.InDelta(t, (0.05-0.02)*1+math.Log(100), m.Mu, 1e-12)
	assert.InDelta(t, 0.2, m.Sigma, 1e-12)
	// E[S_T] = S * exp(rT) under the risk-neutral drift
	assert.InDelta(t, 100*math.Exp(0.05), m.Mean, 1e-9)
	assert.InDelta(t, 100*100*math.Exp(0.1)*(math.Exp(0.04)-1), m.Variance, 1e-6)
	assert.Greater(t, m.StdDev, 0.0)
	assert.GreaterOrEqual(t, m.Low, 0.0)
	assert.Less(t, m.Low, m.High)
	assert.InDelta(t, m.Mean-3*m.StdDev, m.Low, 1e-9)
	assert.InDelta(t, m.Mean+3*m.StdDev, m.High, 1e-9)
}

func TestComputeMoments_LowClampedAtZero(t *testing.T) {
	p := atTheMoney()
	p.Volatility = 1.5
	p.Days = 730

	m := ComputeMoments(p)
	assert.Equal(t, 0.0, m.Low)
	assert.Greater(t, m.High, m.Mean)
}

func TestBuild_ProbabilitiesSumToOne(t *testing.T) {
	scenarios := []domain.OptionParameters{
		atTheMoney(),
		{Type: domain.OptionTypePut, Spot: 2.0, Volatility: 0.4, Rate: 0.04, Days: 40, Strike: 1.9},
		{Type: domain.OptionTypeCall, Spot: 4500, Volatility: 0.15, Rate: -0.005, Days: 7, Strike: 4600},
		{Type: domain.OptionTypePut, Spot: 50, Volatility: 1.5, Rate: 0.1, Days: 730, Strike: 60},
	}

	for _, p := range scenarios {
		for qubits := 1; qubits <= 6; qubits++ {
			d, err := Build(p, qubits)
			require.NoError(t, err)
			require.Equal(t, 1<<qubits, d.Len())
			require.Len(t, d.Probabilities, d.Len())
			assert.InDelta(t, 1.0, floats.Sum(d.Probabilities), 1e-9)
			for _, prob := range d.Probabilities {
				assert.GreaterOrEqual(t, prob, 0.0)
			}
		}
	}
}

func TestBuild_GridSpansBounds(t *testing.T) {
	d, err := Build(atTheMoney(), 3)
	require.NoError(t, err)

	assert.Equal(t, 3, d.NumQubits)
	assert.Equal(t, d.Low, d.Values[0])
	assert.InDelta(t, d.High, d.Values[d.Len()-1], 1e-9)
	step := (d.High - d.Low) / 7
	for i := 1; i < d.Len(); i++ {
		assert.InDelta(t, step, d.Values[i]-d.Values[i-1], 1e-9)
	}
	assert.InDelta(t, d.Mean, d.GridMean(), 0.05*d.Mean)
	assert.Greater(t, d.GridStdDev(), 0.0)
}

func TestDistribution_GridStdDev(t *testing.T) {
	d := &Distribution{
		Values:        []float64{1, 3},
		Probabilities: []float64{0.5, 0.5},
	}
	assert.InDelta(t, 2.0, d.GridMean(), 1e-12)
	assert.InDelta(t, 1.0, d.GridStdDev(), 1e-12)

	skewed := &Distribution{
		Values:        []float64{0, 10},
		Probabilities: []float64{0.9, 0.1},
	}
	// sqrt(0.9*1^2 + 0.1*9^2) = 3
	assert.InDelta(t, 3.0, skewed.GridStdDev(), 1e-12)
}

func TestBuild_ZeroLowBoundHasNoMass(t *testing.T) {
	p := atTheMoney()
	p.Volatility = 1.5
	p.Days = 730

	d, err := Build(p, 3)
	require.NoError(t, err)
	assert.Equal(t, 0.0, d.Values[0])
	assert.Equal(t, 0.0, d.Probabilities[0])
	assert.InDelta(t, 1.0, floats.Sum(d.Probabilities), 1e-9)
}

func TestBuild_Errors(t *testing.T) {
	_, err := Build(atTheMoney(), 0)
	assert.ErrorIs(t, err, ErrInvalidQubits)

	_, err = Build(atTheMoney(), MaxQubits+1)
	assert.ErrorIs(t, err, ErrInvalidQubits)

	expiring := atTheMoney()
	expiring.Days = 0
	_, err = Build(expiring, 3)
	assert.ErrorIs(t, err, ErrDegenerateDistribution)
}

func TestBuild_Deterministic(t *testing.T) {
	a, err := Build(atTheMoney(), 5)
	require.NoError(t, err)
	b, err := Build(atTheMoney(), 5)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
