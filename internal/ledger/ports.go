package ledger

import (
	"context"

	"botspese/internal/core"
)

// Store is the ledger storage backend: one partition per month, written
// through create-record calls only. A call either creates the whole record
// or fails.
type Store interface {
	CreateRecord(ctx context.Context, partitionID string, rec core.LedgerRecord) (ref string, err error)
}
