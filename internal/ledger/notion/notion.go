// Package notion files ledger records as pages of a per-month Notion database.
package notion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jomei/notionapi"

	"botspese/internal/core"
)

// Database property names. They must match the columns of every monthly
// database.
const (
	PropName     = "Name"
	PropPrice    = "Prezzo"
	PropDate     = "Date"
	PropCategory = "Categoria"
	PropPayment  = "Metodo di pagamento"
)

// PageCreator is the subset of the Notion page API the store needs.
type PageCreator interface {
	Create(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error)
}

type Store struct {
	pages PageCreator
}

// New returns a store bound to the Notion API with an integration token.
func New(token string) (*Store, error) {
	if strings.TrimSpace(token) == "" {
		return nil, errors.New("notion token is required")
	}
	client := notionapi.NewClient(notionapi.Token(token))
	return NewWithPages(client.Page), nil
}

// NewWithPages is used by tests to inject a fake page service.
func NewWithPages(pages PageCreator) *Store {
	return &Store{pages: pages}
}

// CreateRecord creates one page in the database identified by partitionID
// and returns the page id.
func (s *Store) CreateRecord(ctx context.Context, partitionID string, rec core.LedgerRecord) (string, error) {
	if strings.TrimSpace(partitionID) == "" {
		return "", errors.New("empty notion database id")
	}
	if err := rec.Validate(); err != nil {
		return "", err
	}

	req := &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(partitionID),
		},
		Properties: Properties(rec),
	}
	page, err := s.pages.Create(ctx, req)
	if err != nil {
		return "", fmt.Errorf("notion create page: %w", err)
	}
	if page == nil {
		return "", nil
	}
	return string(page.ID), nil
}

// Properties maps a record onto the monthly database columns.
func Properties(rec core.LedgerRecord) notionapi.Properties {
	// Notion stores a calendar date; pin it to midnight UTC of the record day
	// so no offset can move it.
	y, m, d := rec.Date.Date()
	day := notionapi.Date(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))

	return notionapi.Properties{
		PropName: notionapi.TitleProperty{
			Title: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{Content: rec.Title},
				},
			},
		},
		PropPrice: notionapi.NumberProperty{
			Number: rec.Amount.InexactFloat64(),
		},
		PropDate: notionapi.DateProperty{
			Date: &notionapi.DateObject{Start: &day},
		},
		PropCategory: notionapi.SelectProperty{
			Select: notionapi.Option{Name: rec.Category},
		},
		PropPayment: notionapi.SelectProperty{
			Select: notionapi.Option{Name: rec.PaymentMethod},
		},
	}
}
