package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"botspese/internal/core"
	"botspese/internal/log"
)

func newRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "ledger.db"), log.Discard())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func record(title, amount string) core.LedgerRecord {
	return core.LedgerRecord{
		Title:         title,
		Amount:        decimal.RequireFromString(amount),
		Date:          core.NewDate(2025, 7, 15),
		Category:      "Cibo",
		PaymentMethod: "Carta",
	}
}

func TestCreateAndListRecords(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	ref, err := repo.CreateRecord(ctx, "07-2025", record("Caffè", "12.50"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if ref != "1" {
		t.Fatalf("unexpected ref %q", ref)
	}
	if _, err := repo.CreateRecord(ctx, "07-2025", record("Pizza", "0.10")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := repo.CreateRecord(ctx, "08-2025", record("Taxi", "15")); err != nil {
		t.Fatalf("create: %v", err)
	}

	recs, err := repo.ListRecords(ctx, "07-2025")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if recs[0].Title != "Caffè" || !recs[0].Amount.Equal(decimal.RequireFromString("12.5")) || recs[0].Date.ISO() != "2025-07-15" {
		t.Fatalf("unexpected first record %+v", recs[0])
	}
	// Amounts round-trip exactly.
	if recs[1].Amount.String() != "0.1" {
		t.Fatalf("amount not exact: %s", recs[1].Amount)
	}

	n, err := repo.CountRecords(ctx, "08-2025")
	if err != nil || n != 1 {
		t.Fatalf("count: %d %v", n, err)
	}
}

func TestCreateRecordValidates(t *testing.T) {
	repo := newRepo(t)
	if _, err := repo.CreateRecord(context.Background(), "", record("x", "1")); err == nil {
		t.Fatalf("expected error for empty partition")
	}
	if _, err := repo.CreateRecord(context.Background(), "07-2025", record(" ", "1")); !errors.Is(err, core.ErrEmptyDescription) {
		t.Fatalf("expected ErrEmptyDescription, got %v", err)
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	for i := 0; i < 2; i++ {
		repo, err := NewSQLiteRepository(path, log.Discard())
		if err != nil {
			t.Fatalf("open %d: %v", i, err)
		}
		repo.Close()
	}
}
