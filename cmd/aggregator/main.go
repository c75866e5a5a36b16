package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirillkom/docsim/internal/bootstrap"
	"github.com/kirillkom/docsim/internal/config"
	"github.com/kirillkom/docsim/internal/observability/logging"
	"github.com/kirillkom/docsim/internal/observability/metrics"
)

const serviceName = "aggregator"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_load_failed", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logging.NewJSONLogger(serviceName, cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	aggMetrics := metrics.NewAggregatorMetrics(serviceName)
	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{
		RunObserver: aggMetrics,
		WithGraph:   true,
	})
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	metricsServer := &http.Server{
		Addr:              ":" + cfg.AggregatorMetricsPort,
		Handler:           aggMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics_server_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	slog.Info("aggregator_subscribed", "subject", cfg.NATSRunSubject, "metrics_addr", metricsServer.Addr)
	err = app.Queue.SubscribeRunRequested(ctx, func(handlerCtx context.Context, runID string) error {
		runCtx, cancel := context.WithTimeout(handlerCtx, cfg.AggregationTimeout())
		defer cancel()

		started := time.Now()
		run, err := app.ExecuteUC.Execute(runCtx, runID)
		status := "error"
		if run != nil {
			status = string(run.Status)
		}
		aggMetrics.FinishRun(status, time.Since(started))
		return err
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("aggregator_subscribe_failed", "error", err)
		os.Exit(1)
	}
}
