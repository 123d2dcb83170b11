// Command bipe-stress pushes a stream of sequential integers through every
// configured pipe strategy and verifies it arrives intact.
//
// It is configured through the environment:
//
//	BIPE_CAPACITY    pipe capacity (default 9)
//	BIPE_COUNT       integers written per run (default 1000)
//	BIPE_STRATEGIES  comma separated list of ring, buffer, chunk
//	BIPE_RATE        writes per second, 0 for unlimited
//	BIPE_JITTER      upper bound of random pauses, e.g. 50us
//	BIPE_SEED        random seed, 0 picks one from the clock
//	BIPE_TIMEOUT     overall deadline (default 30s)
//	BIPE_METRICS     print Prometheus metrics when done
//	LOG_LEVEL        debug, info, warn, error
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"go.uber.org/zap"

	"github.com/jacoelho/bipe/internal/config"
	"github.com/jacoelho/bipe/internal/logging"
	"github.com/jacoelho/bipe/internal/stress"
	"github.com/jacoelho/bipe/metrics"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "bipe-stress:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Sync()

	strategies, err := cfg.Stress.ParseStrategies()
	if err != nil {
		return err
	}

	seed := cfg.Stress.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.Stress.Timeout)
	defer cancel()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	log.Info("starting stress runs",
		zap.Int("capacity", cfg.Stress.Capacity),
		zap.Int("count", cfg.Stress.Count),
		zap.Uint64("seed", seed),
	)

	var failed error
	for _, s := range strategies {
		res, err := stress.Run(ctx, stress.Options{
			Strategy: s,
			Capacity: cfg.Stress.Capacity,
			Count:    cfg.Stress.Count,
			Rate:     cfg.Stress.Rate,
			Jitter:   cfg.Stress.Jitter,
			Seed:     seed,
			Logger:   log.Named(s.String()),
			Observer: m.Observer(s.String()),
		})
		if err != nil {
			log.Error("stress run failed", zap.Stringer("strategy", s), zap.Error(err))
			failed = errors.Join(failed, fmt.Errorf("%s: %w", s, err))
			continue
		}
		log.Info("stress run passed",
			zap.Stringer("strategy", s),
			zap.Int64("bytes", res.Bytes),
			zap.Int("reads", res.Reads),
			zap.Duration("elapsed", res.Elapsed),
		)
	}

	if cfg.Stress.Metrics {
		if err := writeMetrics(reg, os.Stdout); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}
	return failed
}

func writeMetrics(g prometheus.Gatherer, w io.Writer) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
