package sheets

import (
	"context"

	"bilancio/internal/ledger"
)

// Ports for outbound adapters.
type (
	// LedgerExporter mirrors a complete ledger snapshot to an external sheet.
	LedgerExporter interface {
		// ExportLedger replaces the mirrored content and returns a reference
		// to what was written.
		ExportLedger(ctx context.Context, snap ledger.Snapshot) (ref string, err error)
	}
)
