package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"botspese/internal/core"
	"botspese/internal/log"
)

func sample() core.LedgerRecord {
	return core.LedgerRecord{
		Title:         "Caffè",
		Amount:        decimal.RequireFromString("12.50"),
		Date:          core.NewDate(2025, 7, 15),
		Category:      "Cibo",
		PaymentMethod: "Carta",
	}
}

func TestNewMissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), " ", Credentials{}, log.Discard())
	if err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewMissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	_, err := New(context.Background(), "sheet", Credentials{}, log.Discard())
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRow(t *testing.T) {
	row := Row(sample())
	if len(row) != 5 {
		t.Fatalf("unexpected row %v", row)
	}
	if row[0] != "2025-07-15" || row[1] != "Caffè" || row[2] != 12.5 || row[3] != "Cibo" || row[4] != "Carta" {
		t.Fatalf("unexpected row %v", row)
	}
}

func TestSheetRangeQuotesTab(t *testing.T) {
	if got := sheetRange("07-2025"); got != "'07-2025'!A:E" {
		t.Fatalf("got %s", got)
	}
	if got := sheetRange("Luglio'25"); got != "'Luglio''25'!A:E" {
		t.Fatalf("got %s", got)
	}
}

func TestCreateRecordAppendsRow(t *testing.T) {
	var gotPath string
	var gotQuery string
	var gotBody gsheet.ValueRange
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"updates":{"updatedRange":"'07-2025'!A5:E5"}}`))
	}))
	defer srv.Close()

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication(),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	s := NewWithService(svc, "spreadsheet-1")

	ref, err := s.CreateRecord(context.Background(), "07-2025", sample())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if ref != "'07-2025'!A5:E5" {
		t.Fatalf("unexpected ref %q", ref)
	}
	if !strings.Contains(gotPath, "spreadsheet-1") || !strings.HasSuffix(gotPath, ":append") {
		t.Fatalf("unexpected path %s", gotPath)
	}
	if !strings.Contains(gotQuery, "valueInputOption=USER_ENTERED") || !strings.Contains(gotQuery, "insertDataOption=INSERT_ROWS") {
		t.Fatalf("unexpected query %s", gotQuery)
	}
	if len(gotBody.Values) != 1 || len(gotBody.Values[0]) != 5 {
		t.Fatalf("unexpected body %+v", gotBody)
	}
}

func TestCreateRecordWithoutService(t *testing.T) {
	s := &Store{spreadsheetID: "x"}
	if _, err := s.CreateRecord(context.Background(), "07-2025", sample()); err == nil {
		t.Fatalf("expected error without service")
	}
}
