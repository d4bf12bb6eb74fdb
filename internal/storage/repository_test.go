package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"samplace/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func entry(date string, desc string, income, expenses int64) core.Transaction {
	d, err := core.ParseDate(date)
	if err != nil {
		panic(err)
	}
	return core.Transaction{Date: d, Description: desc, Income: core.Money{Cents: income}, Expenses: core.Money{Cents: expenses}}
}

func balances(txs []core.Transaction) []int64 {
	out := make([]int64, len(txs))
	for i, t := range txs {
		out[i] = t.Balance.Cents
	}
	return out
}

func equal(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestListAllEmpty(t *testing.T) {
	repo := newTestRepo(t)
	txs, err := repo.ListAll(context.Background())
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if txs == nil || len(txs) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", txs)
	}
}

func TestInsertProvisionalBalanceAndOrdering(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	if _, err := repo.Insert(ctx, entry("2024-01-05", "Late", 1000, 0)); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if _, err := repo.Insert(ctx, entry("2024-01-01", "Early", 500, 0)); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	txs, err := repo.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if txs[0].Description != "Early" || txs[1].Description != "Late" {
		t.Fatalf("expected date ascending order, got %q, %q", txs[0].Description, txs[1].Description)
	}
	// Provisional balances are stale: Early was appended after Late's 1000.
	if !equal(balances(txs), []int64{1500, 1000}) {
		t.Fatalf("unexpected provisional balances %v", balances(txs))
	}

	out, err := repo.Recalculate(ctx)
	if err != nil {
		t.Fatalf("Recalculate: %v", err)
	}
	if !equal(balances(out), []int64{500, 1500}) {
		t.Fatalf("unexpected recalculated balances %v", balances(out))
	}
}

func TestOrderingTieBreaksOnID(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	first, _ := repo.Insert(ctx, entry("2024-02-01", "first", 100, 0))
	second, _ := repo.Insert(ctx, entry("2024-02-01", "second", 0, 30))

	txs, err := repo.Recalculate(ctx)
	if err != nil {
		t.Fatalf("Recalculate: %v", err)
	}
	if txs[0].ID != first || txs[1].ID != second {
		t.Fatalf("expected id order %d, %d; got %d, %d", first, second, txs[0].ID, txs[1].ID)
	}
	if !equal(balances(txs), []int64{100, 70}) {
		t.Fatalf("unexpected balances %v", balances(txs))
	}
}

func TestInsertRejectsInvalidWithoutMutation(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	cases := []core.Transaction{
		entry("2024-01-01", "zero amounts", 0, 0),
		entry("2024-01-01", "", 100, 0),
		entry("2024-01-01", "   ", 100, 0),
	}
	for _, c := range cases {
		if _, err := repo.Insert(ctx, c); !core.IsValidation(err) {
			t.Fatalf("expected validation error for %+v, got %v", c, err)
		}
	}

	n, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 0 {
		t.Fatalf("store should be unchanged, found %d rows", n)
	}
}

func TestUpdateAndDeleteNotFound(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	missing := entry("2024-01-01", "ghost", 100, 0)
	missing.ID = 42
	if err := repo.Update(ctx, missing); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on update, got %v", err)
	}
	if err := repo.Delete(ctx, 42); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on delete, got %v", err)
	}
	if _, err := repo.Get(ctx, 42); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on get, got %v", err)
	}
}

func TestDeleteTwiceFails(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	id, err := repo.Insert(ctx, entry("2024-01-01", "once", 100, 0))
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := repo.Delete(ctx, id); err != nil {
		t.Fatalf("first Delete: %v", err)
	}
	if err := repo.Delete(ctx, id); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("second Delete should fail with ErrNotFound, got %v", err)
	}
}

func TestRecalculateIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	for _, e := range []core.Transaction{
		entry("2024-03-01", "a", 10050, 0),
		entry("2024-03-02", "b", 0, 2575),
		entry("2024-03-02", "c", 333, 111),
	} {
		if _, err := repo.Insert(ctx, e); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	first, err := repo.Recalculate(ctx)
	if err != nil {
		t.Fatalf("Recalculate: %v", err)
	}
	second, err := repo.Recalculate(ctx)
	if err != nil {
		t.Fatalf("Recalculate: %v", err)
	}
	if !equal(balances(first), balances(second)) {
		t.Fatalf("recalculation not idempotent: %v vs %v", balances(first), balances(second))
	}

	stored, err := repo.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if !equal(balances(stored), []int64{10050, 7475, 7697}) {
		t.Fatalf("unexpected stored balances %v", balances(stored))
	}
}

func TestWithinTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	boom := errors.New("boom")
	err := repo.WithinTx(ctx, func(tr *SQLiteRepository) error {
		if _, err := tr.Insert(ctx, entry("2024-01-01", "doomed", 100, 0)); err != nil {
			return err
		}
		if _, err := tr.Recalculate(ctx); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	n, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 0 {
		t.Fatalf("rollback failed, %d rows remain", n)
	}
}

func TestCloseOnScopedRepositoryFails(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	err := repo.WithinTx(ctx, func(tr *SQLiteRepository) error {
		return tr.Close()
	})
	if err == nil {
		t.Fatal("expected Close inside a transaction to fail")
	}
}

func TestRunMigrationsIsRepeatable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.db")
	v1, err := RunMigrations(path)
	if err != nil {
		t.Fatalf("first RunMigrations: %v", err)
	}
	v2, err := RunMigrations(path)
	if err != nil {
		t.Fatalf("second RunMigrations: %v", err)
	}
	if v1 != 1 || v2 != 1 {
		t.Fatalf("expected schema version 1, got %d then %d", v1, v2)
	}
}
