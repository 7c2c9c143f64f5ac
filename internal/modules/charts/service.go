// Package charts renders the distribution, payoff and estimation charts of a
// pricing run to image files.
package charts

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/aristath/qpricing/internal/modules/distribution"
	"github.com/aristath/qpricing/internal/modules/estimation"
)

// Chart file names, without extension, in render order
const (
	ProbabilityDistribution = "probability_distribution"
	PayoffFunction          = "payoff_function"
	PayoffEstimation        = "payoff_estimation"
	EstimatedOptionPrice    = "estimated_option_price"
	EstimatedOptionDelta    = "estimated_option_delta"
)

// ErrNoData is returned when a chart has nothing to draw
var ErrNoData = errors.New("chart has no data")

var (
	barColor   = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	exactColor = color.RGBA{R: 214, G: 39, B: 40, A: 255}

	unitTicks = plot.ConstantTicks([]plot.Tick{
		{Value: 0, Label: "0"},
		{Value: 0.25, Label: "0.25"},
		{Value: 0.5, Label: "0.5"},
		{Value: 0.75, Label: "0.75"},
		{Value: 1, Label: "1"},
	})
)

// Service writes charts for one run into dir
type Service struct {
	dir    string
	format string
	width  vg.Length
	height vg.Length
	log    zerolog.Logger
}

// NewService creates a chart service writing files with the given extension
// (png, svg or pdf) under dir
func NewService(dir, format string, log zerolog.Logger) *Service {
	if format == "" {
		format = "png"
	}
	return &Service{
		dir:    dir,
		format: format,
		width:  10 * vg.Inch,
		height: 6 * vg.Inch,
		log:    log.With().Str("service", "charts").Logger(),
	}
}

// ProbabilityDistribution plots the grid probabilities as bars
func (s *Service) ProbabilityDistribution(d *distribution.Distribution) (string, error) {
	if d == nil || len(d.Values) == 0 {
		return "", fmt.Errorf("%s: %w", ProbabilityDistribution, ErrNoData)
	}

	p := newPlot("Underlying", "Spot Price at Maturity S_T", "Probability")
	p.Add(bars(d.Values, d.Probabilities, 0.8*gridSpacing(d.Values)))
	p.X.Tick.Marker = valueTicks(d.Values)
	p.X.Tick.Label.Rotation = math.Pi / 2
	p.X.Tick.Label.XAlign = text.XRight
	p.X.Tick.Label.YAlign = text.YCenter
	p.Y.Min = 0

	return s.save(p, ProbabilityDistribution)
}

// PayoffFunction plots the payoff at each grid value as red points joined by lines
func (s *Service) PayoffFunction(values, payoff []float64) (string, error) {
	if len(values) == 0 || len(values) != len(payoff) {
		return "", fmt.Errorf("%s: %w", PayoffFunction, ErrNoData)
	}

	pts := make(plotter.XYs, len(values))
	for i := range values {
		pts[i].X = values[i]
		pts[i].Y = payoff[i]
	}

	p := newPlot("Payoff Function", "Spot Price", "Payoff")
	line, points, err := plotter.NewLinePoints(pts)
	if err != nil {
		return "", fmt.Errorf("failed to build payoff line: %w", err)
	}
	line.Color = exactColor
	points.Color = exactColor
	points.Shape = draw.CircleGlyph{}
	p.Add(line, points)
	p.X.Tick.Marker = valueTicks(values)
	p.X.Tick.Label.Rotation = math.Pi / 2
	p.X.Tick.Label.XAlign = text.XRight
	p.X.Tick.Label.YAlign = text.YCenter

	return s.save(p, PayoffFunction)
}

// PayoffEstimation plots the raw amplitude candidates of the payoff estimation
func (s *Service) PayoffEstimation(result *estimation.Result) (string, error) {
	if result == nil || len(result.Values) == 0 {
		return "", fmt.Errorf("%s: %w", PayoffEstimation, ErrNoData)
	}

	p := newPlot("Payoff", "", "Probability")
	p.Add(bars(result.Values, result.Probabilities, 0.5/float64(len(result.Probabilities))))
	p.X.Tick.Marker = unitTicks
	p.Y.Tick.Marker = unitTicks
	p.X.Min, p.X.Max = math.Min(p.X.Min, 0), math.Max(p.X.Max, 1)
	p.Y.Min, p.Y.Max = 0, 1

	return s.save(p, PayoffEstimation)
}

// EstimatedOptionPrice plots the mapped payoff candidates against the exact value
func (s *Service) EstimatedOptionPrice(result *estimation.Result, exactValue float64) (string, error) {
	if result == nil || len(result.MappedValues) == 0 {
		return "", fmt.Errorf("%s: %w", EstimatedOptionPrice, ErrNoData)
	}

	p := newPlot("Estimated Option Price", "", "Probability")
	p.Add(bars(result.MappedValues, result.Probabilities, 1/float64(len(result.Probabilities))))
	if err := addExactLine(p, exactValue); err != nil {
		return "", err
	}
	p.Y.Tick.Marker = unitTicks
	p.Y.Min, p.Y.Max = 0, 1

	return s.save(p, EstimatedOptionPrice)
}

// EstimatedOptionDelta plots the delta candidates against the exact delta.
// Put results are expected to be negated already.
func (s *Service) EstimatedOptionDelta(result *estimation.Result, exactDelta float64) (string, error) {
	if result == nil || len(result.Values) == 0 {
		return "", fmt.Errorf("%s: %w", EstimatedOptionDelta, ErrNoData)
	}

	p := newPlot("Estimated Option Delta", "", "Probability")
	p.Add(bars(result.Values, result.Probabilities, 0.5/float64(len(result.Probabilities))))
	if err := addExactLine(p, exactDelta); err != nil {
		return "", err
	}
	p.Y.Tick.Marker = unitTicks
	p.Y.Min, p.Y.Max = 0, 1

	return s.save(p, EstimatedOptionDelta)
}

func (s *Service) save(p *plot.Plot, name string) (string, error) {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create chart directory: %w", err)
	}

	path := filepath.Join(s.dir, name+"."+s.format)
	if err := p.Save(s.width, s.height, path); err != nil {
		return "", fmt.Errorf("failed to save %s chart: %w", name, err)
	}

	s.log.Debug().Str("chart", name).Str("path", path).Msg("Chart written")
	return path, nil
}

func newPlot(title, xLabel, yLabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	p.Add(plotter.NewGrid())
	return p
}

// bars draws one bar of the given width centred on each x
func bars(xs, heights []float64, width float64) *plotter.Histogram {
	bins := make([]plotter.HistogramBin, len(xs))
	for i, x := range xs {
		bins[i] = plotter.HistogramBin{Min: x - width/2, Max: x + width/2, Weight: heights[i]}
	}
	h := &plotter.Histogram{
		Bins:      bins,
		FillColor: barColor,
		LineStyle: plotter.DefaultLineStyle,
	}
	h.LineStyle.Width = vg.Points(0.5)
	return h
}

func addExactLine(p *plot.Plot, x float64) error {
	line, err := plotter.NewLine(plotter.XYs{{X: x, Y: 0}, {X: x, Y: 1}})
	if err != nil {
		return fmt.Errorf("failed to build exact value line: %w", err)
	}
	line.Color = exactColor
	line.Width = vg.Points(2)
	line.Dashes = []vg.Length{vg.Points(6), vg.Points(4)}
	p.Add(line)
	return nil
}

func valueTicks(values []float64) plot.ConstantTicks {
	ticks := make([]plot.Tick, len(values))
	for i, v := range values {
		ticks[i] = plot.Tick{Value: v, Label: strconv.FormatFloat(v, 'f', 2, 64)}
	}
	return ticks
}

// gridSpacing is the distance between adjacent grid values, or 1 for a single value
func gridSpacing(values []float64) float64 {
	if len(values) < 2 {
		return 1
	}
	spacing := (values[len(values)-1] - values[0]) / float64(len(values)-1)
	if spacing <= 0 {
		return 1
	}
	return spacing
}
