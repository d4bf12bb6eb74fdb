package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"samplace/internal/cli"
	"samplace/internal/log"
	"samplace/internal/metrics"
	"samplace/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, log.ComponentWorker)
	logger.Info("Starting mirror-worker")

	store := cli.InitSQLite(logger, cfg.SQLiteDBPath)

	startCtx, cancelStart := context.WithTimeout(context.Background(), time.Minute)
	mirror, err := cli.InitMirror(startCtx, logger, cfg)
	if err != nil {
		cancelStart()
		logger.Error("Failed to initialize ledger mirror", log.FieldError, err)
		os.Exit(1)
	}
	client, err := cli.InitAMQP(startCtx, logger, cfg)
	cancelStart()
	if err != nil {
		logger.Error("Failed to connect to AMQP", log.FieldError, err)
		os.Exit(1)
	}

	wcfg := worker.DefaultConfig()
	wcfg.Timeout = cfg.MirrorTimeout
	wcfg.PollInterval = cfg.MirrorPollInterval

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector("samplace")
	if err := collector.RegisterMirror(registry); err != nil {
		logger.Error("Failed to register metrics", log.FieldError, err)
		os.Exit(1)
	}
	mirrorWorker := worker.NewMirrorWorker(store, mirror, collector, logger, wcfg)

	var metricsSrv *http.Server
	if cfg.MirrorMetricsPort != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler(registry))
		metricsSrv = &http.Server{
			Addr:              ":" + cfg.MirrorMetricsPort,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("Serving worker metrics", "port", cfg.MirrorMetricsPort)
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics listener stopped", log.FieldError, err)
			}
		}()
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if metricsSrv != nil {
			_ = metricsSrv.Shutdown(shutdownCtx)
		}
		if client != nil {
			_ = client.Close()
		}
		_ = store.Close()
	})

	// Events missed while the worker was down are covered by a full sync.
	if err := mirrorWorker.StartupSync(ctx); err != nil {
		logger.Error("Startup sync failed", log.FieldError, err)
	}

	if client != nil {
		go func() {
			err := client.ConsumeLedgerChanged(ctx, mirrorWorker.HandleLedgerChanged)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption stopped, relying on polling", log.FieldError, err)
			}
		}()
	} else {
		logger.Info("AMQP disabled - mirroring by polling only", "interval", cfg.MirrorPollInterval.String())
	}

	go mirrorWorker.Run(ctx)

	cli.WaitForShutdown(ctx, done)
}
