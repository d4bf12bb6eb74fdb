package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"samplace/internal/charts"
	"samplace/internal/cli"
	apphttp "samplace/internal/http"
	"samplace/internal/log"
	"samplace/internal/metrics"
	"samplace/internal/services"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, log.ComponentApp)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer store.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector("samplace")
	if err := collector.Register(registry); err != nil {
		logger.Error("Failed to register metrics", log.FieldError, err)
		os.Exit(1)
	}

	opts := []services.Option{
		services.WithLogger(logger.WithComponent(log.ComponentLedger)),
		services.WithMetrics(collector),
		services.WithChart(charts.NewBalanceChart(cfg.CurrencyLabel)),
	}
	publisher, err := cli.InitAMQP(ctx, logger, cfg)
	if err != nil {
		// The ledger works without events; the mirror catches up on its next poll.
		logger.Warn("AMQP unavailable, change events disabled", log.FieldError, err)
	}
	if publisher != nil {
		defer publisher.Close()
		opts = append(opts, services.WithPublisher(publisher))
	}
	ledger := services.NewLedgerService(store, opts...)

	// A crash between a write and its recalculation cannot happen inside one
	// DB transaction, but databases written by older tools may still be stale.
	if _, repaired, err := ledger.Recalculate(ctx); err != nil {
		logger.Error("Startup recalculation failed", log.FieldError, err)
		os.Exit(1)
	} else if repaired {
		logger.Warn("Startup recalculation repaired stale balances")
	}

	srv := apphttp.NewServer(ledger, apphttp.Options{
		Addr:          ":" + cfg.Port,
		CurrencyLabel: cfg.CurrencyLabel,
		Logger:        logger,
		Metrics:       collector,
		Registry:      registry,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting samplace server", "port", cfg.Port, "db", cfg.SQLiteDBPath)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server", log.FieldOperation, log.OpShutdown)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
