// Package telegram is the chat front end: long polling, one ingestion and
// one reply per message.
package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"botspese/internal/ingress"
	"botspese/internal/log"
)

// API is the part of the Bot API client the front end drives.
type API interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetFileDirectURL(fileID string) (string, error)
}

type Ingester interface {
	HandleText(ctx context.Context, text string) (ingress.Result, error)
	HandleAudio(ctx context.Context, r io.Reader, name string) (ingress.Result, error)
}

const Usage = "Mandami un messaggio o una nota vocale con l'importo, ad esempio:\n" +
	"\"Pagato 12.50€ al bar con carta\"\n" +
	"Registro la spesa nel foglio del mese corrente."

const (
	pollTimeout    = 60
	defaultTimeout = 90 * time.Second
)

type Bot struct {
	api     API
	ingest  Ingester
	client  *http.Client
	timeout time.Duration
	logger  *log.Logger
	wg      sync.WaitGroup
}

// Connect authenticates with the Bot API.
func Connect(token string) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram login: %w", err)
	}
	return api, nil
}

// New builds the bot. timeout bounds the handling of one message; zero
// means the default.
func New(api API, ingest Ingester, timeout time.Duration, logger *log.Logger) *Bot {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Bot{
		api:     api,
		ingest:  ingest,
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
		logger:  logger.WithComponent(log.ComponentTelegram),
	}
}

// Run polls until ctx is cancelled, then waits for in-flight messages.
func (b *Bot) Run(ctx context.Context) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = pollTimeout
	updates := b.api.GetUpdatesChan(cfg)
	b.logger.InfoContext(ctx, "Telegram polling started")

	defer b.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.logger.InfoContext(ctx, "Telegram polling stopped")
			return nil
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			if u.Message == nil {
				continue
			}
			b.wg.Add(1)
			go func(msg *tgbotapi.Message) {
				defer b.wg.Done()
				b.HandleMessage(ctx, msg)
			}(u.Message)
		}
	}
}

// HandleMessage ingests one message and sends the reply. Messages that are
// neither text nor voice are ignored.
func (b *Bot) HandleMessage(parent context.Context, msg *tgbotapi.Message) {
	// In-flight messages finish even when polling stops.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), b.timeout)
	defer cancel()
	ctx = ingress.WithSource(ctx, "telegram")

	chatID := msg.Chat.ID
	logger := b.logger.With(log.FieldChatID, strconv.FormatInt(chatID, 10))

	var (
		res ingress.Result
		err error
	)
	switch {
	case msg.IsCommand():
		switch msg.Command() {
		case "start", "help":
			b.reply(ctx, logger, msg, Usage)
		}
		return
	case msg.Voice != nil:
		res, err = b.handleVoice(ctx, msg.Voice.FileID)
	case msg.Text != "":
		res, err = b.ingest.HandleText(ctx, msg.Text)
	default:
		return
	}

	if err != nil {
		logger.ErrorContext(ctx, "Message not recorded",
			log.FieldIngestionID, res.ID,
			log.FieldError, err.Error())
	}
	b.reply(ctx, logger, msg, ingress.Reply(res, err))
}

func (b *Bot) handleVoice(ctx context.Context, fileID string) (ingress.Result, error) {
	url, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return ingress.Result{}, fmt.Errorf("resolve voice file: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return ingress.Result{}, fmt.Errorf("build download request: %w", err)
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return ingress.Result{}, fmt.Errorf("download voice file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return ingress.Result{}, fmt.Errorf("download voice file: status %d", resp.StatusCode)
	}
	return b.ingest.HandleAudio(ctx, resp.Body, "voice.ogg")
}

func (b *Bot) reply(ctx context.Context, logger *log.Logger, msg *tgbotapi.Message, text string) {
	out := tgbotapi.NewMessage(msg.Chat.ID, text)
	out.ReplyToMessageID = msg.MessageID
	if _, err := b.api.Send(out); err != nil {
		logger.ErrorContext(ctx, "Reply not delivered",
			log.FieldOperation, log.OpReply,
			log.FieldError, err.Error(),
			log.FieldErrorType, log.ErrorTypeExternal)
	}
}
