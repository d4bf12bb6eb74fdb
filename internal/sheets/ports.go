package sheets

import (
	"context"

	"samplace/internal/core"
)

// Ports for outbound adapters.
type (
	// LedgerMirror keeps an external copy of the full ordered ledger.
	LedgerMirror interface {
		// ReplaceAll overwrites the mirror with txs, header row first.
		ReplaceAll(ctx context.Context, txs []core.Transaction) error
	}

	// LedgerReader reads the mirrored rows back, header included.
	LedgerReader interface {
		ReadAll(ctx context.Context) ([][]string, error)
	}
)
