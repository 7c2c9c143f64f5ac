// Package main is the interactive qpricing command.
//
// It asks for an option's parameters, estimates the option's expected payoff
// and delta with amplitude estimation, prints both next to the exact values
// and writes the charts of the run. Configuration comes from the environment
// (and an optional .env file); see internal/config.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/aristath/qpricing/internal/artifacts"
	"github.com/aristath/qpricing/internal/config"
	"github.com/aristath/qpricing/internal/modules/estimation"
	"github.com/aristath/qpricing/internal/modules/history"
	"github.com/aristath/qpricing/internal/modules/pricing"
	"github.com/aristath/qpricing/internal/modules/prompt"
	"github.com/aristath/qpricing/internal/modules/report"
	"github.com/aristath/qpricing/pkg/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Error().Err(err).Msg("Failed to load configuration")
		return 1
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogPretty,
	})
	logger.SetGlobalLogger(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	printer := report.NewPrinter(os.Stdout)

	params, err := prompt.NewValidator(os.Stdin, os.Stdout).Collect()
	if err != nil {
		if pricing.IsInvalidParameters(err) {
			printer.InvalidParameters()
			return 1
		}
		log.Error().Err(err).Msg("Failed to read option parameters")
		return 1
	}

	estimator, err := newEstimator(cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create estimator")
		return 1
	}

	pricingCfg := pricing.Config{
		Estimator: estimator,
		Printer:   printer,
		Settings: pricing.Settings{
			UncertaintyQubits: cfg.Estimation.UncertaintyQubits,
			EvaluationQubits:  cfg.Estimation.EvaluationQubits,
			PayoffApproxScale: cfg.Estimation.PayoffApproxScale,
			DeltaApproxScale:  cfg.Estimation.DeltaApproxScale,
		},
		PlotDir:    cfg.PlotDir,
		PlotFormat: cfg.PlotFormat,
		Log:        log,
	}

	if cfg.HistoryDB != "" {
		db, err := history.OpenJournal(ctx, cfg.HistoryDB, log)
		if err != nil {
			log.Warn().Err(err).Str("path", cfg.HistoryDB).Msg("Run journal disabled")
		} else {
			defer db.Close()
			pricingCfg.Journal = history.NewRepository(db.Conn(), log)
		}
	}

	if cfg.Artifacts != nil {
		client, err := artifacts.NewR2Client(ctx, cfg.Artifacts, log)
		if err != nil {
			log.Warn().Err(err).Msg("Chart upload disabled")
		} else {
			log.Debug().
				Str("bucket", client.Bucket()).
				Int("retention_runs", cfg.Artifacts.RetentionRuns).
				Msg("Chart upload enabled")
			pricingCfg.Publisher = artifacts.NewPublisher(client, "runs", cfg.Artifacts.RetentionRuns, log)
		}
	}

	outcome, err := pricing.NewService(pricingCfg).Run(ctx, params)
	if err != nil {
		if pricing.IsInvalidParameters(err) {
			printer.InvalidParameters()
			return 1
		}
		log.Error().Err(err).Msg("Pricing run failed")
		return 1
	}

	if outcome.ChartDir != "" {
		fmt.Fprintf(os.Stdout, "Charts written to %s\n", outcome.ChartDir)
	}
	return 0
}

func newEstimator(cfg *config.Config, log zerolog.Logger) (estimation.Estimator, error) {
	switch cfg.Estimator.Backend {
	case config.BackendRemote:
		codec, err := estimation.CodecByName(cfg.Estimator.Codec)
		if err != nil {
			return nil, err
		}
		return estimation.NewRemoteEstimator(cfg.Estimator.URL, codec, cfg.Estimator.Timeout, log), nil
	default:
		return estimation.NewAnalyticEstimator(log), nil
	}
}
