// Package ledger files validated expense candidates into the partition of
// the current month.
package ledger

import (
	"context"
	"fmt"
	"time"

	"botspese/internal/core"
	"botspese/internal/log"
	"botspese/internal/partition"
)

// Receipt describes a record that was written.
type Receipt struct {
	Record       core.LedgerRecord
	PartitionKey partition.Key
	PartitionID  string
	Ref          string
}

type Writer struct {
	router *partition.Router
	store  Store
	now    func() time.Time
	logger *log.Logger
	events *log.StructuredLogger
}

// Option customises a Writer.
type Option func(*Writer)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(w *Writer) { w.now = now }
}

func NewWriter(router *partition.Router, store Store, logger *log.Logger, opts ...Option) *Writer {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentLedger)
	w := &Writer{
		router: router,
		store:  store,
		now:    time.Now,
		logger: logger,
		events: log.NewStructuredLogger(logger),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write files c under the current month. The record date is the ingestion
// date, never a date mentioned in the utterance. Nothing is deduplicated:
// the same candidate written twice makes two records.
func (w *Writer) Write(ctx context.Context, c core.ExpenseCandidate) (Receipt, error) {
	if err := c.Validate(); err != nil {
		return Receipt{}, err
	}

	// One instant for both the partition and the record date, so a write
	// at midnight cannot straddle two months.
	now := w.now().In(w.router.Location())
	key, partitionID, ok := w.router.Resolve(now)
	if !ok {
		err := fmt.Errorf("%w for %s", core.ErrPartitionNotConfigured, key)
		w.events.LogError(ctx, "No ledger partition for current month", err, log.OpResolve,
			log.NewFields().WithPartition(key.String(), "").WithErrorType(log.ErrorTypeConfiguration))
		return Receipt{}, err
	}

	rec, err := core.NewLedgerRecord(c, core.DateOf(now))
	if err != nil {
		return Receipt{}, fmt.Errorf("build ledger record: %w", err)
	}

	ref, err := w.store.CreateRecord(ctx, partitionID, rec)
	if err != nil {
		w.events.LogError(ctx, "Ledger write failed", err, log.OpCreate,
			log.NewFields().WithPartition(key.String(), partitionID).WithErrorType(log.ErrorTypeExternal))
		return Receipt{}, fmt.Errorf("create ledger record in %s: %w", key, err)
	}

	w.events.LogRecordCreated(ctx, rec.Title, rec.Amount.StringFixed(2), rec.Category, rec.PaymentMethod,
		key.String(), partitionID, ref)

	return Receipt{Record: rec, PartitionKey: key, PartitionID: partitionID, Ref: ref}, nil
}
