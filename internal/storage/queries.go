package storage

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type LedgerRecordRow struct {
	ID            int64
	PartitionID   string
	Title         string
	Amount        decimal.Decimal
	RecordDate    string
	Category      string
	PaymentMethod string
}

type CreateLedgerRecordParams struct {
	PartitionID   string
	Title         string
	Amount        decimal.Decimal
	RecordDate    string
	Category      string
	PaymentMethod string
}

const createLedgerRecord = `
INSERT INTO ledger_records (partition_id, title, amount, record_date, category, payment_method)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING id
`

func (q *Queries) CreateLedgerRecord(ctx context.Context, arg CreateLedgerRecordParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, createLedgerRecord,
		arg.PartitionID,
		arg.Title,
		arg.Amount.String(),
		arg.RecordDate,
		arg.Category,
		arg.PaymentMethod,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const listLedgerRecords = `
SELECT id, partition_id, title, amount, record_date, category, payment_method
FROM ledger_records
WHERE partition_id = ?
ORDER BY id
`

func (q *Queries) ListLedgerRecords(ctx context.Context, partitionID string) ([]LedgerRecordRow, error) {
	rows, err := q.db.QueryContext(ctx, listLedgerRecords, partitionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []LedgerRecordRow
	for rows.Next() {
		var i LedgerRecordRow
		if err := rows.Scan(
			&i.ID,
			&i.PartitionID,
			&i.Title,
			&i.Amount,
			&i.RecordDate,
			&i.Category,
			&i.PaymentMethod,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countLedgerRecords = `SELECT COUNT(*) FROM ledger_records WHERE partition_id = ?`

func (q *Queries) CountLedgerRecords(ctx context.Context, partitionID string) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countLedgerRecords, partitionID).Scan(&n)
	return n, err
}
