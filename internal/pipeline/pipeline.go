// Package pipeline builds an expense candidate from the raw text of one
// utterance.
package pipeline

import (
	"context"
	"strings"

	"botspese/internal/core"
	"botspese/internal/lexicon"
	"botspese/internal/log"
	"botspese/internal/summarizer"
)

// Summarizer produces the description; it must never fail.
type Summarizer interface {
	Summarize(ctx context.Context, text string) summarizer.Result
}

type Extractor struct {
	matcher    *lexicon.Matcher
	summarizer Summarizer
	logger     *log.Logger
}

func New(matcher *lexicon.Matcher, s Summarizer, logger *log.Logger) *Extractor {
	if matcher == nil {
		matcher = lexicon.Default()
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Extractor{
		matcher:    matcher,
		summarizer: s,
		logger:     logger.WithComponent(log.ComponentPipeline),
	}
}

// Extract returns a validated candidate, or core.ErrAmountNotRecognized.
// The amount is looked at first so that utterances that are not expenses
// never reach the summarization service.
func (e *Extractor) Extract(ctx context.Context, text string) (core.ExpenseCandidate, error) {
	m := e.matcher.Match(text)
	if !m.Amount.Valid {
		e.logger.InfoContext(ctx, "Amount not recognized", "chars", len(text))
		return core.ExpenseCandidate{}, core.ErrAmountNotRecognized
	}

	c := core.ExpenseCandidate{
		Amount:        m.Amount,
		Category:      m.Category,
		PaymentMethod: m.PaymentMethod,
		Description:   e.describe(ctx, text),
	}
	if err := c.Validate(); err != nil {
		return core.ExpenseCandidate{}, err
	}

	e.logger.DebugContext(ctx, "Candidate extracted",
		log.FieldAmount, c.Amount.Decimal.String(),
		log.FieldCategory, c.Category,
		log.FieldPayment, c.PaymentMethod,
		log.FieldDescription, c.Description)
	return c, nil
}

func (e *Extractor) describe(ctx context.Context, text string) string {
	if e.summarizer == nil {
		return core.FallbackDescription
	}
	res := e.summarizer.Summarize(ctx, text)
	if strings.TrimSpace(res.Phrase) == "" {
		return core.FallbackDescription
	}
	return res.Phrase
}
