package notion

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jomei/notionapi"
	"github.com/shopspring/decimal"

	"botspese/internal/core"
)

type fakePages struct {
	got  *notionapi.PageCreateRequest
	err  error
	page *notionapi.Page
}

func (f *fakePages) Create(_ context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error) {
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	return f.page, nil
}

func sample() core.LedgerRecord {
	rome := time.FixedZone("CEST", 2*3600)
	return core.LedgerRecord{
		Title:         "Caffè",
		Amount:        decimal.RequireFromString("12.50"),
		Date:          core.DateOf(time.Date(2025, 7, 15, 0, 30, 0, 0, rome)),
		Category:      "Cibo",
		PaymentMethod: "Carta",
	}
}

func TestCreateRecord(t *testing.T) {
	fake := &fakePages{page: &notionapi.Page{ID: "page-1"}}
	s := NewWithPages(fake)

	ref, err := s.CreateRecord(context.Background(), "22b2ddb994ba81dba631d8415085778b", sample())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if ref != "page-1" {
		t.Fatalf("unexpected ref %q", ref)
	}
	if fake.got.Parent.Type != notionapi.ParentTypeDatabaseID ||
		fake.got.Parent.DatabaseID != "22b2ddb994ba81dba631d8415085778b" {
		t.Fatalf("unexpected parent %+v", fake.got.Parent)
	}
}

func TestProperties(t *testing.T) {
	props := Properties(sample())

	title, ok := props[PropName].(notionapi.TitleProperty)
	if !ok || len(title.Title) != 1 || title.Title[0].Text.Content != "Caffè" {
		t.Fatalf("unexpected title %#v", props[PropName])
	}
	price, ok := props[PropPrice].(notionapi.NumberProperty)
	if !ok || price.Number != 12.5 {
		t.Fatalf("unexpected price %#v", props[PropPrice])
	}
	date, ok := props[PropDate].(notionapi.DateProperty)
	if !ok || date.Date == nil || date.Date.Start == nil {
		t.Fatalf("missing date %#v", props[PropDate])
	}
	if got := time.Time(*date.Date.Start).Format("2006-01-02"); got != "2025-07-15" {
		t.Fatalf("date shifted to %s", got)
	}
	cat, ok := props[PropCategory].(notionapi.SelectProperty)
	if !ok || cat.Select.Name != "Cibo" {
		t.Fatalf("unexpected category %#v", props[PropCategory])
	}
	pay, ok := props[PropPayment].(notionapi.SelectProperty)
	if !ok || pay.Select.Name != "Carta" {
		t.Fatalf("unexpected payment %#v", props[PropPayment])
	}
}

func TestCreateRecordErrors(t *testing.T) {
	boom := errors.New("rate limited")
	s := NewWithPages(&fakePages{err: boom})
	if _, err := s.CreateRecord(context.Background(), "db", sample()); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
	if _, err := s.CreateRecord(context.Background(), " ", sample()); err == nil {
		t.Fatalf("expected error for empty database id")
	}
	if _, err := New(""); err == nil {
		t.Fatalf("expected error for missing token")
	}
}
