package services

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"samplace/internal/amqp"
	"samplace/internal/cache"
	"samplace/internal/charts"
	"samplace/internal/core"
	"samplace/internal/export"
	"samplace/internal/log"
	"samplace/internal/metrics"
	"samplace/internal/storage"
)

// EventPublisher announces committed ledger changes.
type EventPublisher interface {
	PublishLedgerChanged(ctx context.Context, op string, id int64) error
}

// LedgerService runs every user action as one unit: validate, mutate and
// recalculate inside a single store transaction, then log, record metrics and
// publish. Mutations are serialised so concurrent requests cannot interleave.
type LedgerService struct {
	mu        sync.Mutex
	store     *storage.SQLiteRepository
	publisher EventPublisher
	metrics   *metrics.Collector
	chart     *charts.BalanceChart
	renders   *cache.LRUCache[[]byte]
	logger    *log.Logger
	events    *log.StructuredLogger
}

type Option func(*LedgerService)

// WithPublisher enables ledger.changed events.
func WithPublisher(p EventPublisher) Option {
	return func(s *LedgerService) { s.publisher = p }
}

func WithMetrics(m *metrics.Collector) Option {
	return func(s *LedgerService) { s.metrics = m }
}

func WithLogger(l *log.Logger) Option {
	return func(s *LedgerService) { s.logger = l }
}

func WithChart(c *charts.BalanceChart) Option {
	return func(s *LedgerService) { s.chart = c }
}

func NewLedgerService(store *storage.SQLiteRepository, opts ...Option) *LedgerService {
	s := &LedgerService{
		store:   store,
		chart:   charts.NewBalanceChart(""),
		renders: cache.NewLRUCache[[]byte](8, 10*time.Minute),
		logger:  log.New(log.DefaultConfig()).WithComponent(log.ComponentLedger),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.events = log.NewStructuredLogger(s.logger)
	return s
}

// Add inserts t and returns it with its id and recalculated balance. The id
// and balance carried by t are ignored.
func (s *LedgerService) Add(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	t.ID = 0
	t.Balance = core.Money{}

	saved, err := s.mutate(ctx, amqp.OpAdd, t, func(tr *storage.SQLiteRepository) (int64, error) {
		return tr.Insert(ctx, t)
	})
	if err != nil {
		return core.Transaction{}, err
	}
	s.notify(ctx, amqp.OpAdd, saved.ID)
	return saved, nil
}

// Edit replaces the fields of the transaction identified by t.ID.
func (s *LedgerService) Edit(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	saved, err := s.mutate(ctx, amqp.OpEdit, t, func(tr *storage.SQLiteRepository) (int64, error) {
		return t.ID, tr.Update(ctx, t)
	})
	if err != nil {
		return core.Transaction{}, err
	}
	s.notify(ctx, amqp.OpEdit, saved.ID)
	return saved, nil
}

// Remove deletes id permanently. Removing a missing id fails with
// core.ErrNotFound.
func (s *LedgerService) Remove(ctx context.Context, id int64) error {
	_, err := s.mutate(ctx, amqp.OpDelete, core.Transaction{ID: id}, func(tr *storage.SQLiteRepository) (int64, error) {
		return id, tr.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.notify(ctx, amqp.OpDelete, id)
	return nil
}

// mutate validates t (except for deletes), applies fn and recalculates all
// balances in one transaction. It returns the affected row as stored after
// recalculation; for deletes only the id is set.
func (s *LedgerService) mutate(ctx context.Context, op string, t core.Transaction, fn func(*storage.SQLiteRepository) (int64, error)) (core.Transaction, error) {
	if op != amqp.OpDelete {
		if err := t.Validate(); err != nil {
			s.metrics.RecordMutation(op, resultOf(err))
			return core.Transaction{}, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		id     int64
		ledger []core.Transaction
	)
	err := s.store.WithinTx(ctx, func(tr *storage.SQLiteRepository) error {
		var err error
		if id, err = fn(tr); err != nil {
			return err
		}
		start := time.Now()
		if ledger, err = tr.Recalculate(ctx); err != nil {
			return err
		}
		s.metrics.RecordRecalculation(len(ledger), time.Since(start))
		return nil
	})
	s.metrics.RecordMutation(op, resultOf(err))
	if err != nil {
		if !core.IsValidation(err) && !errors.Is(err, core.ErrNotFound) {
			s.events.LogError(ctx, "Ledger mutation rolled back", err, op,
				log.NewFields().WithTransaction(t.ID, t.Date.String(), t.Income.Cents, t.Expenses.Cents))
		}
		return core.Transaction{}, fmt.Errorf("%s transaction: %w", op, err)
	}

	summary := core.Summarize(ledger)
	saved := core.Transaction{ID: id}
	for _, row := range ledger {
		if row.ID == id {
			saved = row
			break
		}
	}
	s.events.LogMutation(ctx, op, id, saved.Date.String(), saved.Income.Cents, saved.Expenses.Cents,
		summary.Count, summary.CurrentBalance.Cents)
	return saved, nil
}

// notify publishes a change event; failures are logged and never surface
// to the caller, the local commit already succeeded.
func (s *LedgerService) notify(ctx context.Context, op string, id int64) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishLedgerChanged(ctx, op, id); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish ledger change",
			log.FieldOperation, op,
			log.FieldTransactionID, id,
			log.FieldError, err)
	}
}

// List returns the ordered ledger with stored balances.
func (s *LedgerService) List(ctx context.Context) ([]core.Transaction, error) {
	return s.store.ListAll(ctx)
}

func (s *LedgerService) Get(ctx context.Context, id int64) (core.Transaction, error) {
	return s.store.Get(ctx, id)
}

// Summary returns the headline figures for the ledger.
func (s *LedgerService) Summary(ctx context.Context) (core.Summary, error) {
	txs, err := s.store.ListAll(ctx)
	if err != nil {
		return core.Summary{}, err
	}
	return core.Summarize(txs), nil
}

// Recalculate runs a standalone repair pass and reports whether any stored
// balance was wrong.
func (s *LedgerService) Recalculate(ctx context.Context) ([]core.Transaction, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		before, after []core.Transaction
		elapsed       time.Duration
	)
	err := s.store.WithinTx(ctx, func(tr *storage.SQLiteRepository) error {
		var err error
		if before, err = tr.ListAll(ctx); err != nil {
			return err
		}
		start := time.Now()
		after, err = tr.Recalculate(ctx)
		elapsed = time.Since(start)
		return err
	})
	s.metrics.RecordMutation(amqp.OpRecalculate, resultOf(err))
	if err != nil {
		s.events.LogError(ctx, "Recalculation failed", err, log.OpRecalculate, nil)
		return nil, false, err
	}
	s.metrics.RecordRecalculation(len(after), elapsed)

	changed := core.BalancesChanged(before, after)
	s.logger.InfoContext(ctx, "Balances recalculated",
		log.FieldRows, len(after),
		"repaired", changed)
	if changed {
		s.notify(ctx, amqp.OpRecalculate, 0)
	}
	return after, changed, nil
}

// Export renders the current ledger as an xlsx workbook.
func (s *LedgerService) Export(ctx context.Context) ([]byte, error) {
	txs, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	data, err := s.renders.GetOrBuild("xlsx:"+ledgerKey(txs), func() ([]byte, error) {
		return export.XLSX(txs)
	})
	if err != nil {
		return nil, fmt.Errorf("export ledger: %w", err)
	}
	s.logger.DebugContext(ctx, "Ledger exported", log.FieldRows, len(txs), "bytes", len(data))
	return data, nil
}

// BalanceChart renders the running balance as PNG. Fewer than two
// transactions yields charts.ErrNotEnoughData.
func (s *LedgerService) BalanceChart(ctx context.Context) ([]byte, error) {
	txs, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return s.renders.GetOrBuild("png:"+ledgerKey(txs), func() ([]byte, error) {
		return s.chart.Render(txs)
	})
}

// ledgerKey fingerprints every stored field, so a rendered artifact is
// reused only for an identical ledger.
func ledgerKey(txs []core.Transaction) string {
	h := fnv.New64a()
	var buf [8]byte
	put := func(v int64) {
		binary.LittleEndian.PutUint64(buf[:], uint64(v))
		h.Write(buf[:])
	}
	for _, t := range txs {
		put(t.ID)
		put(t.Date.Unix())
		put(t.Income.Cents)
		put(t.Expenses.Cents)
		put(t.Balance.Cents)
		h.Write([]byte(t.Description))
		h.Write([]byte{0})
	}
	return strconv.Itoa(len(txs)) + "-" + strconv.FormatUint(h.Sum64(), 16)
}

// Ping checks the underlying store.
func (s *LedgerService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func resultOf(err error) string {
	switch {
	case err == nil:
		return metrics.ResultSuccess
	case core.IsValidation(err):
		return metrics.ResultValidation
	case errors.Is(err, core.ErrNotFound):
		return metrics.ResultNotFound
	default:
		return metrics.ResultError
	}
}
