// Package worker answers ingestion requests delivered over AMQP.
package worker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"botspese/internal/amqp"
	"botspese/internal/cache"
	"botspese/internal/ingress"
	"botspese/internal/log"
	"botspese/internal/transcriber"
)

// Ingester is the ingress dispatcher.
type Ingester interface {
	HandleText(ctx context.Context, text string) (ingress.Result, error)
	HandleAudio(ctx context.Context, r io.Reader, name string) (ingress.Result, error)
}

// ReplyPublisher sends the reply for a handled request.
type ReplyPublisher interface {
	PublishReply(ctx context.Context, reply *amqp.IngestReply) error
}

// Consumer feeds requests to a handler until its context ends.
type Consumer interface {
	ConsumeIngest(ctx context.Context, handler amqp.Handler) error
}

const defaultAudioName = "voice.ogg"

// IngestWorker runs every request through the dispatcher and publishes
// exactly one reply for it.
type IngestWorker struct {
	ingest  Ingester
	replies ReplyPublisher
	timeout time.Duration
	seen    *cache.LRU[amqp.IngestReply]
	logger  *log.Logger
}

// Option customises an IngestWorker.
type Option func(*IngestWorker)

// WithReplayCache remembers the reply of each handled request id. A
// redelivery of the same request, as the broker does for unacked messages
// after a reconnect, gets the remembered reply instead of a second record.
func WithReplayCache(c *cache.LRU[amqp.IngestReply]) Option {
	return func(w *IngestWorker) { w.seen = c }
}

func NewIngestWorker(ingest Ingester, replies ReplyPublisher, timeout time.Duration, logger *log.Logger, opts ...Option) *IngestWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	w := &IngestWorker{
		ingest:  ingest,
		replies: replies,
		timeout: timeout,
		logger:  logger.WithComponent(log.ComponentWorker),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run consumes until ctx is cancelled.
func (w *IngestWorker) Run(ctx context.Context, consumer Consumer) error {
	w.logger.InfoContext(ctx, "Ingest worker started")
	return consumer.ConsumeIngest(ctx, w.HandleRequest)
}

// HandleRequest processes one request. Ingestion failures are answered with
// the failure reply; only an oversized voice note or a reply that cannot be
// published is returned as an error.
func (w *IngestWorker) HandleRequest(ctx context.Context, req *amqp.IngestRequest) error {
	if len(req.Audio) > transcriber.MaxAudioBytes {
		return fmt.Errorf("%w: audio exceeds %d bytes", amqp.ErrMalformed, transcriber.MaxAudioBytes)
	}

	if w.seen != nil {
		if reply, ok := w.seen.Get(req.ID); ok {
			w.logger.WarnContext(ctx, "Redelivered request, replaying reply",
				log.FieldIngestionID, req.ID,
				log.FieldOutcome, reply.Outcome)
			return w.publish(ctx, &reply)
		}
	}

	ctx = ingress.WithSource(ingress.WithID(ctx, req.ID), "amqp")
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	w.logger.InfoContext(ctx, "Processing ingest request",
		log.FieldIngestionID, req.ID,
		log.FieldChatID, req.ChatID,
		"audio", req.IsAudio())

	var (
		res ingress.Result
		err error
	)
	if req.IsAudio() {
		name := req.AudioName
		if name == "" {
			name = defaultAudioName
		}
		res, err = w.ingest.HandleAudio(ctx, bytes.NewReader(req.Audio), name)
	} else {
		res, err = w.ingest.HandleText(ctx, req.Text)
	}
	if err != nil {
		w.logger.ErrorContext(ctx, "Ingestion failed",
			log.FieldIngestionID, req.ID,
			log.FieldError, err.Error())
	}

	reply := &amqp.IngestReply{
		ID:        req.ID,
		ChatID:    req.ChatID,
		Outcome:   string(ingress.OutcomeOf(res, err)),
		Message:   ingress.Reply(res, err),
		Ref:       res.Ref,
		Partition: res.PartitionKey,
	}
	if w.seen != nil {
		w.seen.Set(req.ID, *reply)
	}
	// The reply goes out even when the ingestion deadline has passed.
	return w.publish(context.WithoutCancel(ctx), reply)
}

func (w *IngestWorker) publish(ctx context.Context, reply *amqp.IngestReply) error {
	if err := w.replies.PublishReply(ctx, reply); err != nil {
		return fmt.Errorf("publish reply for %s: %w", reply.ID, err)
	}
	return nil
}
