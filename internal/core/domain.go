package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	DefaultCategory      = "Altro"
	DefaultPaymentMethod = "Carta"
	FallbackDescription  = "Spesa"
)

type (
	Date struct {
		time.Time
	}

	// ExpenseCandidate is what the extraction pipeline builds from one utterance.
	// Amount is optional until validation; the classifications always carry a label.
	ExpenseCandidate struct {
		Amount        decimal.NullDecimal
		Category      string
		PaymentMethod string
		Description   string
	}

	// LedgerRecord is the persisted form of a validated candidate.
	LedgerRecord struct {
		Title         string
		Amount        decimal.Decimal
		Date          Date
		Category      string
		PaymentMethod string
	}
)

var (
	// ErrAmountNotRecognized means the utterance carries no amount followed by a currency marker.
	ErrAmountNotRecognized = errors.New("amount not recognized")
	// ErrPartitionNotConfigured means the partition table has no entry for the current month.
	ErrPartitionNotConfigured = errors.New("ledger partition not configured")

	ErrInvalidDay       = errors.New("invalid day")
	ErrInvalidMonth     = errors.New("invalid month")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyCategory    = errors.New("empty category")
	ErrEmptyPayment     = errors.New("empty payment method")
)

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Time: time.Date(y, m, d, 0, 0, 0, 0, t.Location())}
}

// ISO returns the date as YYYY-MM-DD.
func (d Date) ISO() string {
	return d.Format("2006-01-02")
}

// Validate reports ErrAmountNotRecognized when the amount is missing.
func (c ExpenseCandidate) Validate() error {
	if !c.Amount.Valid {
		return ErrAmountNotRecognized
	}
	return nil
}

// NewLedgerRecord turns a validated candidate into the record filed on date.
func NewLedgerRecord(c ExpenseCandidate, date Date) (LedgerRecord, error) {
	if err := c.Validate(); err != nil {
		return LedgerRecord{}, err
	}
	rec := LedgerRecord{
		Title:         c.Description,
		Amount:        c.Amount.Decimal,
		Date:          date,
		Category:      c.Category,
		PaymentMethod: c.PaymentMethod,
	}
	return rec, rec.Validate()
}

func (r LedgerRecord) Validate() error {
	if err := r.Date.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(r.Title)) == 0 {
		return ErrEmptyDescription
	}
	if len(r.Title) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if r.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(r.Category) == "" {
		return ErrEmptyCategory
	}
	if strings.TrimSpace(r.PaymentMethod) == "" {
		return ErrEmptyPayment
	}
	return nil
}
