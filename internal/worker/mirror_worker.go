package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"samplace/internal/amqp"
	"samplace/internal/core"
	"samplace/internal/log"
	"samplace/internal/metrics"
	"samplace/internal/sheets"
)

// ErrMirrorUnavailable is returned while the mirror circuit breaker is open.
var ErrMirrorUnavailable = errors.New("mirror unavailable: circuit breaker open")

// LedgerSource is the read side of the record store.
type LedgerSource interface {
	ListAll(ctx context.Context) ([]core.Transaction, error)
}

// Config tunes the mirror worker.
type Config struct {
	// Timeout bounds a single ReplaceAll call.
	Timeout time.Duration
	// PollInterval is how often the ledger is compared with the last mirrored
	// snapshot, covering lost events.
	PollInterval time.Duration
	// MaxFailures consecutive failures open the circuit.
	MaxFailures uint32
	// OpenTimeout is how long the circuit stays open before a trial call.
	OpenTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		Timeout:      15 * time.Second,
		PollInterval: 5 * time.Minute,
		MaxFailures:  3,
		OpenTimeout:  time.Minute,
	}
}

// MirrorWorker copies the whole ledger to an external mirror whenever it
// changes. Each sync is a full rewrite, the same policy as balance
// recalculation.
type MirrorWorker struct {
	source  LedgerSource
	mirror  sheets.LedgerMirror
	breaker *gobreaker.CircuitBreaker
	metrics *metrics.Collector
	logger  *log.Logger
	config  Config

	mu       sync.Mutex
	snapshot []core.Transaction
	synced   bool
}

func NewMirrorWorker(source LedgerSource, mirror sheets.LedgerMirror, m *metrics.Collector, logger *log.Logger, cfg Config) *MirrorWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	w := &MirrorWorker{
		source:  source,
		mirror:  mirror,
		metrics: m,
		logger:  logger.WithComponent(log.ComponentWorker),
		config:  cfg,
	}
	w.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "ledger-mirror",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			w.logger.Warn("Circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String())
			w.metrics.RecordCircuitState(circuitState(to))
		},
	})
	return w
}

// HandleLedgerChanged is the AMQP handler: every event triggers a full sync.
func (w *MirrorWorker) HandleLedgerChanged(ctx context.Context, msg *amqp.LedgerChangedMessage) error {
	w.logger.InfoContext(ctx, "Processing ledger changed message",
		log.FieldOperation, msg.Operation,
		log.FieldTransactionID, msg.ID)
	return w.Sync(ctx)
}

// Sync reads the ledger and replaces the mirror with it.
func (w *MirrorWorker) Sync(ctx context.Context) error {
	txs, err := w.source.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("read ledger: %w", err)
	}
	return w.replace(ctx, txs)
}

// SyncIfChanged syncs only when the ledger differs from the last mirrored
// snapshot. It reports whether a sync happened.
func (w *MirrorWorker) SyncIfChanged(ctx context.Context) (bool, error) {
	txs, err := w.source.ListAll(ctx)
	if err != nil {
		return false, fmt.Errorf("read ledger: %w", err)
	}

	w.mu.Lock()
	same := w.synced && sameLedger(w.snapshot, txs)
	w.mu.Unlock()
	if same {
		return false, nil
	}
	return true, w.replace(ctx, txs)
}

// StartupSync mirrors the ledger once when the worker starts, recovering
// from events missed while it was down.
func (w *MirrorWorker) StartupSync(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Performing startup mirror sync")
	if err := w.Sync(ctx); err != nil {
		return fmt.Errorf("startup sync: %w", err)
	}
	return nil
}

// Run polls with SyncIfChanged until ctx is done.
func (w *MirrorWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			synced, err := w.SyncIfChanged(ctx)
			if err != nil {
				w.logger.ErrorContext(ctx, "Periodic mirror sync failed", log.FieldError, err)
				continue
			}
			if synced {
				w.logger.InfoContext(ctx, "Periodic mirror sync applied missed changes")
			}
		}
	}
}

func (w *MirrorWorker) replace(ctx context.Context, txs []core.Transaction) error {
	_, err := w.breaker.Execute(func() (interface{}, error) {
		callCtx := ctx
		if w.config.Timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, w.config.Timeout)
			defer cancel()
		}
		return nil, w.mirror.ReplaceAll(callCtx, txs)
	})

	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		w.metrics.RecordMirrorSync(metrics.ResultError)
		w.logger.WarnContext(ctx, "Mirror sync rejected, circuit open")
		return ErrMirrorUnavailable
	case err != nil:
		w.metrics.RecordMirrorSync(metrics.ResultError)
		return fmt.Errorf("replace mirror: %w", err)
	}

	w.mu.Lock()
	w.snapshot = append(w.snapshot[:0], txs...)
	w.synced = true
	w.mu.Unlock()

	w.metrics.RecordMirrorSync(metrics.ResultSuccess)
	w.logger.InfoContext(ctx, "Ledger mirrored", log.FieldRows, len(txs))
	return nil
}

func sameLedger(a, b []core.Transaction) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		x, y := a[i], b[i]
		if x.ID != y.ID || !x.Date.Equal(y.Date.Time) || x.Description != y.Description ||
			x.Income != y.Income || x.Expenses != y.Expenses || x.Balance != y.Balance {
			return false
		}
	}
	return true
}

func circuitState(s gobreaker.State) int {
	switch s {
	case gobreaker.StateOpen:
		return 1
	case gobreaker.StateHalfOpen:
		return 2
	default:
		return 0
	}
}
