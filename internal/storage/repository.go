package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"samplace/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteRepository is the record store for ledger transactions.
//
// A repository returned by NewSQLiteRepository owns the database handle.
// WithinTx hands its callback a repository bound to one open transaction;
// that handle must not be used after the callback returns.
type SQLiteRepository struct {
	db      *sql.DB
	tx      *sql.Tx
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer, one connection: transactions never contend with each other.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.tx != nil {
		return errors.New("close called on a transaction-scoped repository")
	}
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks that the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	if r.db == nil {
		return errors.New("database not initialized")
	}
	return r.db.PingContext(ctx)
}

// WithinTx runs fn inside a single database transaction. The transaction
// commits when fn returns nil and rolls back otherwise. Calls made while
// already inside a transaction join it.
func (r *SQLiteRepository) WithinTx(ctx context.Context, fn func(*SQLiteRepository) error) (err error) {
	if r.tx != nil {
		return fn(r)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return &core.StoreError{Op: "begin", Err: err}
	}
	scoped := &SQLiteRepository{db: r.db, tx: tx, queries: r.queries.WithTx(tx)}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(scoped); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.ErrorContext(ctx, "Transaction rollback failed", "error", rbErr, "cause", err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return &core.StoreError{Op: "commit", Err: err}
	}
	return nil
}

// ListAll returns every transaction ordered by date, ties broken by id.
func (r *SQLiteRepository) ListAll(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactions(ctx)
	if err != nil {
		return nil, &core.StoreError{Op: "list", Err: err}
	}

	txs := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		t, err := fromRow(row)
		if err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	return txs, nil
}

// Get returns a single transaction by id.
func (r *SQLiteRepository) Get(ctx context.Context, id int64) (core.Transaction, error) {
	row, err := r.queries.GetTransaction(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, &core.StoreError{Op: "get", Err: err}
	}
	return fromRow(row)
}

// Count returns the number of stored transactions.
func (r *SQLiteRepository) Count(ctx context.Context) (int64, error) {
	n, err := r.queries.CountTransactions(ctx)
	if err != nil {
		return 0, &core.StoreError{Op: "count", Err: err}
	}
	return n, nil
}

// Insert stores a new transaction with a provisional balance (the current
// last balance plus this record's net) and returns its id. Balances stay
// stale until Recalculate runs.
func (r *SQLiteRepository) Insert(ctx context.Context, t core.Transaction) (int64, error) {
	if err := t.Validate(); err != nil {
		return 0, err
	}

	last, err := r.queries.GetLastBalance(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, &core.StoreError{Op: "insert", Err: err}
	}
	provisional := core.MoneyFromFloat(last).Add(t.Net())

	id, err := r.queries.CreateTransaction(ctx, CreateTransactionParams{
		TransDate:   t.Date.String(),
		Description: strings.TrimSpace(t.Description),
		Income:      t.Income.Float(),
		Expenses:    t.Expenses.Float(),
		Balance:     provisional.Float(),
	})
	if err != nil {
		return 0, &core.StoreError{Op: "insert", Err: err}
	}

	slog.DebugContext(ctx, "Transaction inserted",
		"id", id,
		"trans_date", t.Date.String(),
		"income_cents", t.Income.Cents,
		"expenses_cents", t.Expenses.Cents)
	return id, nil
}

// Update replaces the user-editable fields of t.ID. The stored balance is
// left untouched until Recalculate runs.
func (r *SQLiteRepository) Update(ctx context.Context, t core.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}

	n, err := r.queries.UpdateTransaction(ctx, UpdateTransactionParams{
		TransDate:   t.Date.String(),
		Description: strings.TrimSpace(t.Description),
		Income:      t.Income.Float(),
		Expenses:    t.Expenses.Float(),
		ID:          t.ID,
	})
	if err != nil {
		return &core.StoreError{Op: "update", Err: err}
	}
	if n == 0 {
		return fmt.Errorf("update transaction %d: %w", t.ID, core.ErrNotFound)
	}
	return nil
}

// Delete permanently removes id. Deleting an id that does not exist,
// including one already deleted, fails with core.ErrNotFound.
func (r *SQLiteRepository) Delete(ctx context.Context, id int64) error {
	n, err := r.queries.DeleteTransaction(ctx, id)
	if err != nil {
		return &core.StoreError{Op: "delete", Err: err}
	}
	if n == 0 {
		return fmt.Errorf("delete transaction %d: %w", id, core.ErrNotFound)
	}
	return nil
}

// Recalculate re-fetches the ordered ledger, recomputes every running
// balance and rewrites all rows in one transaction. Cost is O(n) reads and
// O(n) writes per call; the ledger is expected to stay personal-sized.
func (r *SQLiteRepository) Recalculate(ctx context.Context) ([]core.Transaction, error) {
	var out []core.Transaction
	err := r.WithinTx(ctx, func(tr *SQLiteRepository) error {
		txs, err := tr.ListAll(ctx)
		if err != nil {
			return err
		}
		out = core.Recalculate(txs)
		for _, t := range out {
			if err := tr.queries.SetBalance(ctx, SetBalanceParams{Balance: t.Balance.Float(), ID: t.ID}); err != nil {
				return &core.StoreError{Op: "recalculate", Err: fmt.Errorf("set balance of %d: %w", t.ID, err)}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func fromRow(row TransactionRow) (core.Transaction, error) {
	date, err := core.ParseDate(row.TransDate)
	if err != nil {
		return core.Transaction{}, &core.StoreError{
			Op:  "decode",
			Err: fmt.Errorf("transaction %d has invalid trans_date %q", row.ID, row.TransDate),
		}
	}
	return core.Transaction{
		ID:          row.ID,
		Date:        date,
		Description: row.Description,
		Income:      core.MoneyFromFloat(row.Income),
		Expenses:    core.MoneyFromFloat(row.Expenses),
		Balance:     core.MoneyFromFloat(row.Balance),
	}, nil
}
