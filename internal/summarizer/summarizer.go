// Package summarizer turns an utterance into a short description of the
// purchased item, falling back to a fixed phrase when the generation
// service is unavailable.
package summarizer

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"botspese/internal/core"
	"botspese/internal/log"
)

const (
	// MaxOutputTokens caps the reply; three Italian words fit comfortably.
	MaxOutputTokens = 10
)

// Generator is the external summarization service: a short fixed prompt in,
// a short phrase out. Implementations must be deterministic (temperature 0).
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Result is either the generated phrase or the fallback one. Err keeps the
// cause of a fallback for logging; it is never something callers must handle.
type Result struct {
	Phrase   string
	Fallback bool
	Err      error
}

type Adapter struct {
	gen      Generator
	fallback string
	logger   *log.Logger
}

// New wraps gen. A nil gen makes every call return the fallback phrase.
func New(gen Generator, logger *log.Logger) *Adapter {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Adapter{
		gen:      gen,
		fallback: core.FallbackDescription,
		logger:   logger.WithComponent(log.ComponentSummarizer),
	}
}

// Prompt is the fixed instruction sent for text.
func Prompt(text string) string {
	return fmt.Sprintf(`Testo: "%s". Oggetto acquistato (max 3 parole)?`, normalize(text))
}

// Summarize never fails: an error, an empty reply or blank input all
// yield the fallback phrase.
func (a *Adapter) Summarize(ctx context.Context, text string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("generator panic: %v", r)
			a.logger.WarnContext(ctx, "Summarizer fallback", log.FieldError, err.Error())
			res = Result{Phrase: a.fallback, Fallback: true, Err: err}
		}
	}()

	if strings.TrimSpace(text) == "" {
		return Result{Phrase: a.fallback, Fallback: true}
	}
	if a.gen == nil {
		return Result{Phrase: a.fallback, Fallback: true}
	}

	raw, err := a.gen.Generate(ctx, Prompt(text))
	if err != nil {
		a.logger.WarnContext(ctx, "Summarizer fallback", log.FieldError, err.Error())
		return Result{Phrase: a.fallback, Fallback: true, Err: err}
	}

	phrase := clean(raw)
	if phrase == "" {
		a.logger.WarnContext(ctx, "Summarizer fallback", "reason", "empty reply", "raw", raw)
		return Result{Phrase: a.fallback, Fallback: true}
	}
	return Result{Phrase: phrase}
}

// Description is Summarize without the bookkeeping.
func (a *Adapter) Description(ctx context.Context, text string) string {
	return a.Summarize(ctx, text).Phrase
}

func clean(raw string) string {
	s := strings.Join(strings.Fields(raw), " ")
	s = strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r)
	})
	if s == "" {
		return ""
	}
	// Casers keep state between calls, so one per call.
	return cases.Title(language.Italian).String(s)
}

func normalize(text string) string {
	return strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(text)
}
