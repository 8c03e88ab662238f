// Package amqp carries ingestion requests and replies over RabbitMQ. One
// durable direct exchange routes to an ingest queue and a reply queue, each
// bound with its own name as routing key.
package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"botspese/internal/log"
)

// Circuit breaker states.
const (
	StateClosed int32 = iota
	StateOpen
	StateHalfOpen
)

const (
	maxFailures    = 5
	openTimeout    = 30 * time.Second
	maxBackoff     = 30 * time.Second
	publishTimeout = 5 * time.Second
)

var errDeliveriesClosed = errors.New("delivery channel closed")

// Config names the broker topology.
type Config struct {
	URL         string
	Exchange    string
	IngestQueue string
	ReplyQueue  string
	Prefetch    int
}

// Handler processes one decoded request. Returning an error wrapping
// ErrMalformed dead-letters the delivery; any other error is logged and
// the delivery acked, since a retry could file the same expense twice.
type Handler func(ctx context.Context, req *IngestRequest) error

type Client struct {
	url          string
	exchangeName string
	ingestQueue  string
	replyQueue   string
	prefetch     int
	logger       *log.Logger

	mu      sync.RWMutex
	conn    *amqp091.Connection
	channel *amqp091.Channel

	state        int32
	failureCount int64
	failureMu    sync.Mutex
	lastFailure  time.Time
}

func NewClient(cfg Config, logger *log.Logger) (*Client, error) {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	c := &Client{
		url:          cfg.URL,
		exchangeName: cfg.Exchange,
		ingestQueue:  cfg.IngestQueue,
		replyQueue:   cfg.ReplyQueue,
		prefetch:     cfg.Prefetch,
		logger:       logger.WithComponent(log.ComponentAMQP),
	}
	if err := c.connect(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) connect() error {
	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	if err := c.setup(channel); err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("setup exchange and queues: %w", err)
	}

	c.mu.Lock()
	c.conn, c.channel = conn, channel
	c.mu.Unlock()
	return nil
}

func (c *Client) setup(ch *amqp091.Channel) error {
	err := ch.ExchangeDeclare(
		c.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	for _, queue := range []string{c.ingestQueue, c.replyQueue} {
		if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", queue, err)
		}
		// Routing key is the queue name, as usual for a direct exchange.
		if err := ch.QueueBind(queue, queue, c.exchangeName, false, nil); err != nil {
			return fmt.Errorf("bind queue %s: %w", queue, err)
		}
	}

	if c.prefetch > 0 {
		if err := ch.Qos(c.prefetch, 0, false); err != nil {
			return fmt.Errorf("set prefetch: %w", err)
		}
	}
	return nil
}

func (c *Client) reconnect() error {
	c.mu.Lock()
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		c.conn.Close()
	}
	c.conn, c.channel = nil, nil
	c.mu.Unlock()
	return c.connect()
}

// PublishIngest enqueues a request on the ingest queue.
func (c *Client) PublishIngest(ctx context.Context, req *IngestRequest) error {
	if req.Timestamp.IsZero() {
		req.Timestamp = time.Now()
	}
	return c.publish(ctx, c.ingestQueue, req.ToJSON)
}

// PublishReply enqueues a reply on the reply queue.
func (c *Client) PublishReply(ctx context.Context, reply *IngestReply) error {
	if reply.Timestamp.IsZero() {
		reply.Timestamp = time.Now()
	}
	if err := c.publish(ctx, c.replyQueue, reply.ToJSON); err != nil {
		return err
	}
	c.logger.DebugContext(ctx, "Published reply",
		log.FieldIngestionID, reply.ID,
		log.FieldChatID, reply.ChatID,
		log.FieldOutcome, reply.Outcome)
	return nil
}

func (c *Client) publish(ctx context.Context, routingKey string, encode func() ([]byte, error)) error {
	if c.isCircuitOpen() {
		return errors.New("circuit breaker is open: broker unavailable")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := encode()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	c.mu.RLock()
	ch := c.channel
	c.mu.RUnlock()
	if ch == nil {
		c.recordFailure()
		return errors.New("publish message: channel not open")
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = ch.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		routingKey,     // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		c.recordFailure()
		return fmt.Errorf("publish message: %w", err)
	}
	c.recordSuccess()
	return nil
}

// ConsumeIngest delivers ingest requests to handler until ctx is done,
// reconnecting with capped exponential backoff when the broker goes away.
func (c *Client) ConsumeIngest(ctx context.Context, handler Handler) error {
	attempt := 0
	for {
		err := c.consume(ctx, handler)
		if ctx.Err() != nil {
			c.logger.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		}
		if !isConnectionError(err) {
			return err
		}

		wait := exponentialBackoff(attempt)
		attempt++
		c.logger.WarnContext(ctx, "Broker connection lost, reconnecting",
			log.FieldError, err.Error(),
			"attempt", attempt,
			"backoff", wait.String())

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}

		if err := c.reconnect(); err != nil {
			c.logger.ErrorContext(ctx, "Reconnect failed", log.FieldError, err.Error())
			continue
		}
		c.logger.InfoContext(ctx, "Reconnected to broker", "attempt", attempt)
		attempt = 0
	}
}

func (c *Client) consume(ctx context.Context, handler Handler) error {
	c.mu.RLock()
	ch := c.channel
	c.mu.RUnlock()
	if ch == nil {
		return amqp091.ErrClosed
	}

	msgs, err := ch.Consume(
		c.ingestQueue, // queue
		"",            // consumer
		false,         // auto-ack (we want manual ack)
		false,         // exclusive
		false,         // no-local
		false,         // no-wait
		nil,           // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	c.logger.InfoContext(ctx, "Started consuming ingest requests", "queue", c.ingestQueue)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return errDeliveriesClosed
			}
			c.handleDelivery(ctx, delivery, handler)
		}
	}
}

func (c *Client) handleDelivery(ctx context.Context, d amqp091.Delivery, handler Handler) {
	req, err := IngestRequestFromJSON(d.Body)
	if err != nil {
		c.logger.ErrorContext(ctx, "Rejecting malformed message",
			log.FieldError, err.Error(),
			log.FieldErrorType, log.ErrorTypeValidation)
		_ = d.Nack(false, false)
		return
	}

	if err := handler(ctx, req); err != nil {
		if errors.Is(err, ErrMalformed) {
			c.logger.ErrorContext(ctx, "Rejecting unprocessable request",
				log.FieldIngestionID, req.ID,
				log.FieldError, err.Error())
			_ = d.Nack(false, false)
			return
		}
		c.logger.ErrorContext(ctx, "Failed to handle message",
			log.FieldIngestionID, req.ID,
			log.FieldChatID, req.ChatID,
			log.FieldError, err.Error())
	}
	_ = d.Ack(false)
}

func (c *Client) isCircuitOpen() bool {
	if atomic.LoadInt32(&c.state) != StateOpen {
		return false
	}
	c.failureMu.Lock()
	last := c.lastFailure
	c.failureMu.Unlock()
	if time.Since(last) > openTimeout {
		atomic.CompareAndSwapInt32(&c.state, StateOpen, StateHalfOpen)
		return false
	}
	return true
}

func (c *Client) recordFailure() {
	c.failureMu.Lock()
	c.lastFailure = time.Now()
	c.failureMu.Unlock()
	if atomic.AddInt64(&c.failureCount, 1) >= maxFailures {
		atomic.StoreInt32(&c.state, StateOpen)
	}
}

func (c *Client) recordSuccess() {
	atomic.StoreInt64(&c.failureCount, 0)
	atomic.StoreInt32(&c.state, StateClosed)
}

// exponentialBackoff doubles from one second up to maxBackoff.
func exponentialBackoff(attempt int) time.Duration {
	if attempt >= 5 {
		return maxBackoff
	}
	d := time.Second << attempt
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) || errors.Is(err, errDeliveriesClosed) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection", "eof", "broken pipe", "closed network"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
