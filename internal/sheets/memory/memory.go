package memory

import (
	"context"
	"fmt"
	"sync"

	"samplace/internal/core"
	"samplace/internal/export"
	ports "samplace/internal/sheets"
)

var (
	_ ports.LedgerMirror = (*Store)(nil)
	_ ports.LedgerReader = (*Store)(nil)
)

// Store is an in-process ledger mirror, used when no spreadsheet is
// configured and in tests.
type Store struct {
	mu           sync.Mutex
	rows         [][]string
	replacements int
	failWith     error
}

func New() *Store {
	return &Store{}
}

// ReplaceAll stores the export table for txs.
func (s *Store) ReplaceAll(_ context.Context, txs []core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}

	table := export.Rows(txs)
	rows := make([][]string, len(table))
	for i, row := range table {
		rows[i] = make([]string, len(row))
		for j, v := range row {
			rows[i][j] = fmt.Sprint(v)
		}
	}
	s.rows = rows
	s.replacements++
	return nil
}

// ReadAll returns a copy of the mirrored rows.
func (s *Store) ReadAll(_ context.Context) ([][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]string, len(s.rows))
	for i, row := range s.rows {
		out[i] = append([]string(nil), row...)
	}
	return out, nil
}

// Replacements reports how many times ReplaceAll succeeded.
func (s *Store) Replacements() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replacements
}

// FailWith makes subsequent ReplaceAll calls return err; nil restores success.
func (s *Store) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWith = err
}
