// Package lexicon extracts the amount and classifies category and payment
// method of an utterance with fixed keyword tables.
//
// Everything here is pure: tables are built once and only read afterwards,
// so a Matcher can be shared by concurrent ingestions.
package lexicon

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"botspese/internal/core"
)

// amountPattern matches a number followed by a currency marker: "12.50€",
// "12,5 euro", "40 euros", "3 EUR". Only the first match is used.
var amountPattern = regexp.MustCompile(`(?i)(\d+[.,]?\d*)\s?(?:€|euro?)`)

type (
	// Entry binds a lowercase keyword to a label.
	Entry struct {
		Keyword string `yaml:"keyword"`
		Label   string `yaml:"label"`
	}

	// Table is an ordered keyword table. Order is part of its behavior:
	// the first keyword found in the text wins.
	Table struct {
		entries  []Entry
		fallback string
	}

	// Match is the lexical part of an expense candidate.
	Match struct {
		Amount        decimal.NullDecimal
		Category      string
		PaymentMethod string
	}

	Matcher struct {
		categories Table
		payments   Table
	}
)

// NewTable copies entries so later changes by the caller do not leak in.
func NewTable(fallback string, entries ...Entry) Table {
	cp := make([]Entry, 0, len(entries))
	for _, e := range entries {
		kw := strings.ToLower(strings.TrimSpace(e.Keyword))
		if kw == "" {
			continue
		}
		cp = append(cp, Entry{Keyword: kw, Label: e.Label})
	}
	return Table{entries: cp, fallback: fallback}
}

// Classify returns the label of the first keyword contained in text.
// Keywords match as plain substrings, so "bar" also matches "barca".
func (t Table) Classify(text string) string {
	lower := strings.ToLower(text)
	for _, e := range t.entries {
		if strings.Contains(lower, e.Keyword) {
			return e.Label
		}
	}
	return t.fallback
}

// Entries returns a copy of the table in match order.
func (t Table) Entries() []Entry {
	return append([]Entry(nil), t.entries...)
}

// Fallback is the label returned when no keyword matches.
func (t Table) Fallback() string {
	return t.fallback
}

func NewMatcher(categories, payments Table) *Matcher {
	return &Matcher{categories: categories, payments: payments}
}

// Default returns the matcher with the built-in Italian tables.
func Default() *Matcher {
	return NewMatcher(DefaultCategories(), DefaultPayments())
}

// Amount returns the first number followed by a currency marker, if any.
func (m *Matcher) Amount(text string) decimal.NullDecimal {
	sub := amountPattern.FindStringSubmatch(text)
	if sub == nil {
		return decimal.NullDecimal{}
	}
	d, err := core.ParseAmount(sub[1])
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

func (m *Matcher) Category(text string) string {
	return m.categories.Classify(text)
}

func (m *Matcher) PaymentMethod(text string) string {
	return m.payments.Classify(text)
}

// Match runs the three extractions independently of each other.
func (m *Matcher) Match(text string) Match {
	return Match{
		Amount:        m.Amount(text),
		Category:      m.Category(text),
		PaymentMethod: m.PaymentMethod(text),
	}
}

// DefaultCategories is the built-in category table, in match order.
func DefaultCategories() Table {
	return NewTable(core.DefaultCategory,
		Entry{"supermercato", "Cibo"},
		Entry{"spesa", "Cibo"},
		Entry{"bar", "Cibo"},
		Entry{"ristorante", "Cibo"},
		Entry{"latte", "Cibo"},
		Entry{"amazon", "Shopping"},
		Entry{"scarpe", "Shopping"},
		Entry{"vestiti", "Shopping"},
		Entry{"cinema", "Divertimento"},
		Entry{"concerto", "Divertimento"},
		Entry{"biglietto", "Divertimento"},
		Entry{"palestra", "Sport e salute"},
		Entry{"farmacia", "Sport e salute"},
		Entry{"treno", "Trasporti"},
		Entry{"taxi", "Trasporti"},
		Entry{"benzina", "Trasporti"},
		Entry{"hotel", "Viaggi"},
		Entry{"volo", "Viaggi"},
	)
}

// DefaultPayments is the built-in payment method table, in match order.
func DefaultPayments() Table {
	return NewTable(core.DefaultPaymentMethod,
		Entry{"contanti", "Contanti"},
		Entry{"cash", "Contanti"},
		Entry{"bancomat", "Carta"},
		Entry{"carta", "Carta"},
		Entry{"credito", "Carta"},
		Entry{"debito", "Carta"},
		Entry{"paypal", "Carta"},
		Entry{"satispay", "Carta"},
	)
}
