package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"botspese/internal/core"
	"botspese/internal/lexicon"
	"botspese/internal/log"
	"botspese/internal/summarizer"
)

type countingSummarizer struct {
	phrase string
	calls  int
}

func (c *countingSummarizer) Summarize(context.Context, string) summarizer.Result {
	c.calls++
	return summarizer.Result{Phrase: c.phrase}
}

func TestExtract(t *testing.T) {
	s := &countingSummarizer{phrase: "Caffè"}
	e := New(lexicon.Default(), s, log.Discard())

	c, err := e.Extract(context.Background(), "Pagato 12.50€ al bar con carta")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if !c.Amount.Valid || !c.Amount.Decimal.Equal(decimal.RequireFromString("12.50")) {
		t.Fatalf("unexpected amount %+v", c.Amount)
	}
	if c.Category != "Cibo" || c.PaymentMethod != "Carta" || c.Description != "Caffè" {
		t.Fatalf("unexpected candidate %+v", c)
	}
	if s.calls != 1 {
		t.Fatalf("expected one summarizer call, got %d", s.calls)
	}
}

func TestExtractWithoutAmountSkipsSummarizer(t *testing.T) {
	s := &countingSummarizer{phrase: "Caffè"}
	e := New(lexicon.Default(), s, log.Discard())

	_, err := e.Extract(context.Background(), "mi sono comprato un caffè")
	if !errors.Is(err, core.ErrAmountNotRecognized) {
		t.Fatalf("expected ErrAmountNotRecognized, got %v", err)
	}
	if s.calls != 0 {
		t.Fatalf("summarizer called %d times for a non-expense", s.calls)
	}
}

func TestExtractDefaultsAndFallbackDescription(t *testing.T) {
	e := New(nil, summarizer.New(nil, log.Discard()), log.Discard())
	c, err := e.Extract(context.Background(), "regalo 30 euro")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if c.Category != core.DefaultCategory || c.PaymentMethod != core.DefaultPaymentMethod {
		t.Fatalf("expected default labels, got %+v", c)
	}
	if c.Description != core.FallbackDescription {
		t.Fatalf("expected fallback description, got %q", c.Description)
	}
}

func TestExtractBlankPhraseFallsBack(t *testing.T) {
	e := New(nil, &countingSummarizer{phrase: " "}, log.Discard())
	c, err := e.Extract(context.Background(), "taxi 15€")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if c.Description != core.FallbackDescription || c.Category != "Trasporti" {
		t.Fatalf("unexpected candidate %+v", c)
	}
}
