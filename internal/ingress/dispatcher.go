// Package ingress is the single entry point every front end uses: it runs an
// utterance through extraction and the ledger writer and maps the outcome to
// the reply the user sees.
package ingress

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"botspese/internal/core"
	"botspese/internal/ledger"
	"botspese/internal/log"
	"botspese/internal/transcriber"
)

type (
	Extractor interface {
		Extract(ctx context.Context, text string) (core.ExpenseCandidate, error)
	}

	Recorder interface {
		Write(ctx context.Context, c core.ExpenseCandidate) (ledger.Receipt, error)
	}

	Transcriber interface {
		Transcribe(ctx context.Context, path string) (string, error)
	}
)

// Outcome is the terminal state of an ingestion that did not fail.
type Outcome string

const (
	OutcomeRecorded            Outcome = "recorded"
	OutcomeAmountNotRecognized Outcome = "amount_not_recognized"
	// OutcomeFailed is only reported by front ends; HandleText and
	// HandleAudio return an error instead.
	OutcomeFailed Outcome = "failed"
)

// Result of one ingestion. Record and the partition fields are set only
// for OutcomeRecorded.
type Result struct {
	ID           string
	Source       string
	Outcome      Outcome
	Text         string
	Record       core.LedgerRecord
	PartitionKey string
	PartitionID  string
	Ref          string
}

type Dispatcher struct {
	extractor   Extractor
	recorder    Recorder
	transcriber Transcriber
	logger      *log.Logger
}

func New(extractor Extractor, recorder Recorder, t Transcriber, logger *log.Logger) *Dispatcher {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Dispatcher{
		extractor:   extractor,
		recorder:    recorder,
		transcriber: t,
		logger:      logger.WithComponent(log.ComponentIngress),
	}
}

// ErrNoTranscriber is returned by HandleAudio when voice input is disabled.
var ErrNoTranscriber = errors.New("voice input not configured")

// HandleText files the expense described by text, if any.
func (d *Dispatcher) HandleText(ctx context.Context, text string) (Result, error) {
	ctx, id := ensureID(ctx)
	return d.handleText(ctx, id, sourceFrom(ctx, "text"), text)
}

// HandleAudio transcribes the voice note read from r and files the expense it
// describes. The staged payload is removed on every exit path.
func (d *Dispatcher) HandleAudio(ctx context.Context, r io.Reader, name string) (Result, error) {
	ctx, id := ensureID(ctx)
	source := sourceFrom(ctx, "voice")
	logger := d.logger.With(log.FieldIngestionID, id, log.FieldSource, source)

	if d.transcriber == nil {
		return Result{ID: id, Source: source}, ErrNoTranscriber
	}

	staged, err := transcriber.Stage(r, name)
	if err != nil {
		logger.ErrorContext(ctx, "Voice note staging failed",
			log.FieldError, err.Error(), log.FieldErrorType, log.ErrorTypeUserInput)
		return Result{ID: id, Source: source}, fmt.Errorf("stage voice note: %w", err)
	}
	defer func() {
		if err := staged.Release(); err != nil {
			logger.WarnContext(ctx, "Failed to remove staged voice note", log.FieldError, err.Error())
		}
	}()

	start := time.Now()
	text, err := d.transcriber.Transcribe(ctx, staged.Path())
	if err != nil {
		logger.ErrorContext(ctx, "Transcription failed",
			log.FieldOperation, log.OpTranscribe,
			log.FieldError, err.Error(),
			log.FieldErrorType, log.ErrorTypeExternal)
		return Result{ID: id, Source: source}, err
	}
	logger.DebugContext(ctx, "Transcription complete", "duration_ms", time.Since(start).Milliseconds())

	return d.handleText(ctx, id, source, text)
}

func (d *Dispatcher) handleText(ctx context.Context, id, source, text string) (Result, error) {
	logger := d.logger.With(log.FieldIngestionID, id, log.FieldSource, source)
	res := Result{ID: id, Source: source, Text: text}

	c, err := d.extractor.Extract(ctx, text)
	if errors.Is(err, core.ErrAmountNotRecognized) {
		res.Outcome = OutcomeAmountNotRecognized
		logger.InfoContext(ctx, "Utterance ignored", log.FieldOutcome, string(res.Outcome))
		return res, nil
	}
	if err != nil {
		logger.ErrorContext(ctx, "Extraction failed",
			log.FieldOperation, log.OpExtract, log.FieldError, err.Error())
		return res, err
	}

	receipt, err := d.recorder.Write(ctx, c)
	if err != nil {
		logger.ErrorContext(ctx, "Expense not recorded",
			log.FieldOperation, log.OpCreate, log.FieldError, err.Error())
		return res, err
	}

	res.Outcome = OutcomeRecorded
	res.Record = receipt.Record
	res.PartitionKey = receipt.PartitionKey.String()
	res.PartitionID = receipt.PartitionID
	res.Ref = receipt.Ref
	logger.InfoContext(ctx, "Expense recorded",
		log.FieldOutcome, string(res.Outcome),
		log.FieldPartitionKey, res.PartitionKey,
		log.FieldLedgerRef, res.Ref)
	return res, nil
}

type ctxKey int

const (
	idKey ctxKey = iota
	sourceKey
)

// WithID makes the next ingestion on ctx reuse id, for front ends that
// already carry a request identifier.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, idKey, id)
}

// WithSource labels the ingestion with the front end that received it.
func WithSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, sourceKey, source)
}

// IDFromContext returns the ingestion id, if one was assigned.
func IDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(idKey).(string)
	return id
}

// SourceFromContext returns the front end label set by WithSource.
func SourceFromContext(ctx context.Context) string {
	return sourceFrom(ctx, "")
}

func ensureID(ctx context.Context) (context.Context, string) {
	if id := IDFromContext(ctx); id != "" {
		return ctx, id
	}
	id := uuid.NewString()
	return WithID(ctx, id), id
}

func sourceFrom(ctx context.Context, fallback string) string {
	if s, ok := ctx.Value(sourceKey).(string); ok && s != "" {
		return s
	}
	return fallback
}
