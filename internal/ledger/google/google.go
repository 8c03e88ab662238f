// Package google files ledger records as rows of a per-month tab in a Google
// spreadsheet. The partition id is the tab name.
package google

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"botspese/internal/core"
	"botspese/internal/log"
)

// Credentials selects the service account used to reach the API. JSON wins
// over File; an empty value falls back to GOOGLE_APPLICATION_CREDENTIALS.
type Credentials struct {
	JSON string
	File string
}

type Store struct {
	svc           *gsheet.Service
	spreadsheetID string
}

// New builds a Sheets-backed store using service account credentials.
func New(ctx context.Context, spreadsheetID string, creds Credentials, logger *log.Logger) (*Store, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	svc, err := newSheetsService(ctx, creds, logger.WithComponent(log.ComponentSheets))
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewWithService(svc, spreadsheetID), nil
}

// NewWithService wraps an already configured service.
func NewWithService(svc *gsheet.Service, spreadsheetID string) *Store {
	return &Store{svc: svc, spreadsheetID: spreadsheetID}
}

func newSheetsService(ctx context.Context, creds Credentials, logger *log.Logger) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(creds.JSON)
	serviceAccountFile := strings.TrimSpace(creds.File)
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		logger.DebugContext(ctx, "Using inline service account credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		logger.DebugContext(ctx, "Reading service account credentials", "path", serviceAccountFile)
		b, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope),
		goption.WithHTTPClient(newHTTPClient()))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	logger.InfoContext(ctx, "Google Sheets service created")
	return service, nil
}

// newHTTPClient keeps connections to the API warm between records.
func newHTTPClient() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{Transport: transport, Timeout: 60 * time.Second}
}

// CreateRecord appends one row to the tab named partitionID and returns the
// updated A1 range.
func (s *Store) CreateRecord(ctx context.Context, partitionID string, rec core.LedgerRecord) (string, error) {
	if strings.TrimSpace(partitionID) == "" {
		return "", errors.New("empty sheet name")
	}
	if err := rec.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	if s.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	vr := &gsheet.ValueRange{Values: [][]any{Row(rec)}}
	resp, err := s.svc.Spreadsheets.Values.Append(s.spreadsheetID, sheetRange(partitionID), vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", partitionID, err)
	}
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		return resp.Updates.UpdatedRange, nil
	}
	return resp.TableRange, nil
}

// Row is the column layout of a monthly tab: date, title, amount, category,
// payment method.
func Row(rec core.LedgerRecord) []any {
	return []any{
		rec.Date.ISO(),
		rec.Title,
		rec.Amount.InexactFloat64(),
		rec.Category,
		rec.PaymentMethod,
	}
}

// sheetRange quotes the tab name since month keys contain a dash.
func sheetRange(tab string) string {
	return fmt.Sprintf("'%s'!A:E", strings.ReplaceAll(tab, "'", "''"))
}
