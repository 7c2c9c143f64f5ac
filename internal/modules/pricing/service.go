// Package pricing runs one option pricing scenario end to end: it builds the
// distribution, encodes payoff and delta, estimates both and reports them next
// to the exact values.
package pricing

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/qpricing/internal/artifacts"
	"github.com/aristath/qpricing/internal/domain"
	"github.com/aristath/qpricing/internal/modules/charts"
	"github.com/aristath/qpricing/internal/modules/distribution"
	"github.com/aristath/qpricing/internal/modules/estimation"
	"github.com/aristath/qpricing/internal/modules/exact"
	"github.com/aristath/qpricing/internal/modules/history"
	"github.com/aristath/qpricing/internal/modules/payoff"
	"github.com/aristath/qpricing/internal/modules/report"
	"github.com/aristath/qpricing/internal/utils"
)

// IsInvalidParameters reports whether err means the option could not be
// constructed from the given inputs
func IsInvalidParameters(err error) bool {
	return errors.Is(err, domain.ErrInvalidParameters) ||
		errors.Is(err, domain.ErrUnknownOptionType) ||
		errors.Is(err, distribution.ErrDegenerateDistribution)
}

// Settings holds register sizes and approximation scales
type Settings struct {
	UncertaintyQubits int
	EvaluationQubits  int
	PayoffApproxScale float64
	DeltaApproxScale  float64
}

// DefaultSettings returns the register sizes and scales used when none are configured
func DefaultSettings() Settings {
	return Settings{
		UncertaintyQubits: 3,
		EvaluationQubits:  6,
		PayoffApproxScale: payoff.DefaultPayoffApproxScale,
		DeltaApproxScale:  payoff.DefaultDeltaApproxScale,
	}
}

// Journal stores completed runs
type Journal interface {
	Save(ctx context.Context, rec history.RunRecord) (history.RunRecord, error)
}

// Publisher uploads the chart directory of a run
type Publisher interface {
	PublishRun(ctx context.Context, runID, dir string) (*artifacts.Manifest, error)
}

// Config holds service dependencies. Journal, Publisher and an empty PlotDir
// disable the matching step.
type Config struct {
	Estimator  estimation.Estimator
	Printer    *report.Printer
	Settings   Settings
	PlotDir    string
	PlotFormat string
	Journal    Journal
	Publisher  Publisher
	Log        zerolog.Logger
}

// Service runs pricing scenarios
type Service struct {
	estimator  estimation.Estimator
	printer    *report.Printer
	settings   Settings
	plotDir    string
	plotFormat string
	journal    Journal
	publisher  Publisher
	log        zerolog.Logger
	newID      func() string
}

// NewService creates a new pricing service
func NewService(cfg Config) *Service {
	settings := cfg.Settings
	if settings == (Settings{}) {
		settings = DefaultSettings()
	}
	return &Service{
		estimator:  cfg.Estimator,
		printer:    cfg.Printer,
		settings:   settings,
		plotDir:    cfg.PlotDir,
		plotFormat: cfg.PlotFormat,
		journal:    cfg.Journal,
		publisher:  cfg.Publisher,
		log:        cfg.Log.With().Str("service", "pricing").Logger(),
		newID:      func() string { return uuid.New().String() },
	}
}

// Outcome is everything computed for one run. Delta is sign-adjusted for puts.
type Outcome struct {
	RunID         string
	Parameters    domain.OptionParameters
	Distribution  *distribution.Distribution
	Exact         *exact.Values
	Value         *estimation.Result
	Delta         *estimation.Result
	Reference     exact.Reference
	HasReference  bool
	ChartDir      string
	Charts        []string
	JournalRecord *history.RunRecord
}

// Run prices the option described by params
func (s *Service) Run(ctx context.Context, params domain.OptionParameters) (*Outcome, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	out := &Outcome{RunID: s.newID(), Parameters: params}
	log := s.log.With().Str("run_id", out.RunID).Str("option_type", params.Type.String()).Logger()

	s.printer.Progress(report.StepInitialize)

	d, err := distribution.Build(params, s.settings.UncertaintyQubits)
	if err != nil {
		return nil, fmt.Errorf("failed to build distribution: %w", err)
	}
	out.Distribution = d
	log.Debug().
		Float64("low", d.Low).
		Float64("high", d.High).
		Float64("grid_mean", d.GridMean()).
		Float64("grid_stddev", d.GridStdDev()).
		Msg("Distribution built")

	encoder, err := payoff.NewEncoder(params.Type, params.Strike, d.Low, d.High)
	if err != nil {
		return nil, err
	}

	var plots *charts.Service
	if s.plotDir != "" {
		out.ChartDir = filepath.Join(s.plotDir, out.RunID)
		plots = charts.NewService(out.ChartDir, s.plotFormat, log)
	}
	plot := func(render func(*charts.Service) (string, error)) error {
		if plots == nil {
			return nil
		}
		path, err := render(plots)
		if err != nil {
			return err
		}
		out.Charts = append(out.Charts, path)
		return nil
	}

	exactValues, err := exact.Evaluate(params, d, encoder)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate exact values: %w", err)
	}
	out.Exact = exactValues

	s.printer.Progress(report.StepPlotDistribution)
	if err := plot(func(c *charts.Service) (string, error) { return c.ProbabilityDistribution(d) }); err != nil {
		return nil, err
	}

	s.printer.Progress(report.StepPlotPayoff)
	if err := plot(func(c *charts.Service) (string, error) { return c.PayoffFunction(d.Values, exactValues.Payoff) }); err != nil {
		return nil, err
	}

	s.printer.Progress(report.StepEvaluatePayoff)
	value, err := s.estimate(ctx, log, "estimate_payoff", estimation.Problem{
		Distribution:     d,
		Objective:        encoder.Payoff(s.settings.PayoffApproxScale),
		EvaluationQubits: s.settings.EvaluationQubits,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to estimate expected payoff: %w", err)
	}
	out.Value = value
	s.printer.Value(exactValues.Value, value)

	s.printer.Progress(report.StepPlotEstimation)
	if err := plot(func(c *charts.Service) (string, error) { return c.PayoffEstimation(value) }); err != nil {
		return nil, err
	}
	if err := plot(func(c *charts.Service) (string, error) { return c.EstimatedOptionPrice(value, exactValues.Value) }); err != nil {
		return nil, err
	}

	s.printer.Progress(report.StepEvaluateDelta)
	delta, err := s.estimate(ctx, log, "estimate_delta", estimation.Problem{
		Distribution:     d,
		Objective:        encoder.Delta(s.settings.DeltaApproxScale),
		EvaluationQubits: s.settings.EvaluationQubits,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to estimate delta: %w", err)
	}
	if params.Type.DeltaSign() < 0 {
		delta = delta.Negated()
	}
	out.Delta = delta
	s.printer.Delta(exactValues.Delta, delta)

	s.printer.Progress(report.StepPlotDelta)
	if err := plot(func(c *charts.Service) (string, error) { return c.EstimatedOptionDelta(delta, exactValues.Delta) }); err != nil {
		return nil, err
	}

	out.Reference, out.HasReference = exact.BlackScholes(params)
	s.printer.Reference(report.Reference{
		MLValue:       value.MLEstimation,
		MLDelta:       delta.MLEstimation,
		Discounted:    exactValues.Discounted,
		BlackScholes:  out.Reference,
		HasClosedForm: out.HasReference,
	})
	if err := s.printer.Err(); err != nil {
		return nil, fmt.Errorf("failed to write report: %w", err)
	}

	s.record(ctx, log, out)
	s.publish(ctx, log, out)

	log.Info().
		Float64("exact_value", exactValues.Value).
		Float64("estimated_value", value.Estimation).
		Float64("exact_delta", exactValues.Delta).
		Float64("estimated_delta", delta.Estimation).
		Str("backend", value.Backend).
		Msg("Pricing run completed")

	return out, nil
}

func (s *Service) estimate(ctx context.Context, log zerolog.Logger, name string, problem estimation.Problem) (*estimation.Result, error) {
	timer := utils.NewTimer(name, log)
	result, err := s.estimator.Estimate(ctx, problem)
	timer.Stop(map[string]interface{}{
		"backend":           s.estimator.Name(),
		"evaluation_qubits": problem.EvaluationQubits,
		"grid_points":       problem.Distribution.Len(),
	})
	return result, err
}

// record journals the run; failures are logged and do not fail the run
func (s *Service) record(ctx context.Context, log zerolog.Logger, out *Outcome) {
	if s.journal == nil {
		return
	}

	rec, err := s.journal.Save(ctx, history.RunRecord{
		ID:                out.RunID,
		Parameters:        out.Parameters,
		UncertaintyQubits: s.settings.UncertaintyQubits,
		EvaluationQubits:  s.settings.EvaluationQubits,
		ExactValue:        out.Exact.Value,
		EstimatedValue:    out.Value.Estimation,
		ValueProbability:  out.Value.MaxProbability,
		ExactDelta:        out.Exact.Delta,
		EstimatedDelta:    out.Delta.Estimation,
		DeltaProbability:  out.Delta.MaxProbability,
		Backend:           out.Value.Backend,
		ChartDir:          out.ChartDir,
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to journal run")
		return
	}
	out.JournalRecord = &rec
}

// publish uploads the charts; failures are logged and do not fail the run
func (s *Service) publish(ctx context.Context, log zerolog.Logger, out *Outcome) {
	if s.publisher == nil || len(out.Charts) == 0 {
		return
	}

	if _, err := s.publisher.PublishRun(ctx, out.RunID, out.ChartDir); err != nil {
		log.Warn().Err(err).Msg("Failed to publish charts")
	}
}
