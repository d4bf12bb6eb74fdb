package memory

import (
	"context"
	"errors"
	"testing"

	"samplace/internal/core"
)

func TestReplaceAllOverwrites(t *testing.T) {
	s := New()
	ctx := context.Background()

	first := []core.Transaction{
		{ID: 1, Date: core.NewDate(2024, 1, 1), Description: "Opening", Income: core.Money{Cents: 10000}, Balance: core.Money{Cents: 10000}},
		{ID: 2, Date: core.NewDate(2024, 1, 2), Description: "Rent", Expenses: core.Money{Cents: 4000}, Balance: core.Money{Cents: 6000}},
	}
	if err := s.ReplaceAll(ctx, first); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}
	if err := s.ReplaceAll(ctx, first[:1]); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}

	rows, _ := s.ReadAll(ctx)
	if len(rows) != 2 {
		t.Fatalf("expected header plus one row, got %v", rows)
	}
	if rows[0][5] != "balance" || rows[1][1] != "2024-01-01" || rows[1][5] != "100" {
		t.Fatalf("unexpected rows %v", rows)
	}
	if s.Replacements() != 2 {
		t.Fatalf("Replacements = %d, want 2", s.Replacements())
	}
}

func TestFailWith(t *testing.T) {
	s := New()
	boom := errors.New("quota exceeded")
	s.FailWith(boom)
	if err := s.ReplaceAll(context.Background(), nil); !errors.Is(err, boom) {
		t.Fatalf("expected injected error, got %v", err)
	}
	if s.Replacements() != 0 {
		t.Fatal("failed replacement must not count")
	}
	s.FailWith(nil)
	if err := s.ReplaceAll(context.Background(), nil); err != nil {
		t.Fatalf("ReplaceAll after reset: %v", err)
	}
}
