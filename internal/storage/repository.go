// Package storage is the local SQLite ledger.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"botspese/internal/core"
	"botspese/internal/log"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	logger  *log.Logger
}

func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// Writers serialize on one connection; SQLite allows a single writer anyway.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		logger:  logger.WithComponent(log.ComponentStorage),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// CreateRecord implements ledger.Store. The reference is the row id.
func (r *SQLiteRepository) CreateRecord(ctx context.Context, partitionID string, rec core.LedgerRecord) (string, error) {
	if strings.TrimSpace(partitionID) == "" {
		return "", errors.New("empty partition id")
	}
	if err := rec.Validate(); err != nil {
		return "", err
	}
	id, err := r.queries.CreateLedgerRecord(ctx, CreateLedgerRecordParams{
		PartitionID:   partitionID,
		Title:         rec.Title,
		Amount:        rec.Amount,
		RecordDate:    rec.Date.ISO(),
		Category:      rec.Category,
		PaymentMethod: rec.PaymentMethod,
	})
	if err != nil {
		return "", fmt.Errorf("create ledger record: %w", err)
	}

	r.logger.DebugContext(ctx, "Ledger record saved to SQLite",
		"id", id,
		log.FieldPartitionID, partitionID)

	return strconv.FormatInt(id, 10), nil
}

// ListRecords returns the records of one partition in insertion order.
func (r *SQLiteRepository) ListRecords(ctx context.Context, partitionID string) ([]core.LedgerRecord, error) {
	rows, err := r.queries.ListLedgerRecords(ctx, partitionID)
	if err != nil {
		return nil, fmt.Errorf("list ledger records: %w", err)
	}
	out := make([]core.LedgerRecord, 0, len(rows))
	for _, row := range rows {
		d, err := time.Parse("2006-01-02", row.RecordDate)
		if err != nil {
			return nil, fmt.Errorf("record %d: bad date %q: %w", row.ID, row.RecordDate, err)
		}
		out = append(out, core.LedgerRecord{
			Title:         row.Title,
			Amount:        row.Amount,
			Date:          core.DateOf(d),
			Category:      row.Category,
			PaymentMethod: row.PaymentMethod,
		})
	}
	return out, nil
}

// CountRecords is used by readiness checks and tests.
func (r *SQLiteRepository) CountRecords(ctx context.Context, partitionID string) (int64, error) {
	return r.queries.CountLedgerRecords(ctx, partitionID)
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
