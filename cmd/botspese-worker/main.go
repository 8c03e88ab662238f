package main

import (
	"context"
	"errors"
	"os"
	"time"

	_ "time/tzdata"

	"botspese/internal/amqp"
	"botspese/internal/cache"
	"botspese/internal/cli"
	"botspese/internal/config"
	"botspese/internal/log"
	"botspese/internal/worker"
)

type (
	broker interface {
		worker.Consumer
		worker.ReplyPublisher
		Close() error
	}

	dialFunc func(cfg amqp.Config, logger *log.Logger) (broker, error)
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig((*config.Config).RequireAMQP)
	os.Exit(run(cfg, logger, func(c amqp.Config, l *log.Logger) (broker, error) {
		return amqp.NewClient(c, l)
	}))
}

func run(cfg *config.Config, logger *log.Logger, dial dialFunc) int {
	logger.Info("Starting botspese-worker", log.FieldOperation, log.OpStartup, "backend", cfg.DataBackend)

	app, err := cli.NewApp(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize application", log.FieldError, err.Error())
		return 1
	}
	defer app.Close()

	client, err := dial(amqp.Config{
		URL:         cfg.AMQPURL,
		Exchange:    cfg.AMQPExchange,
		IngestQueue: cfg.AMQPIngestQueue,
		ReplyQueue:  cfg.AMQPReplyQueue,
		Prefetch:    cfg.AMQPPrefetch,
	}, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err.Error(),
			log.FieldErrorType, log.ErrorTypeExternal)
		return 1
	}
	defer client.Close()

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	replies := cache.New[amqp.IngestReply](1024, time.Hour)
	w := worker.NewIngestWorker(app.Dispatcher, client, cfg.RequestTimeout, logger,
		worker.WithReplayCache(replies))

	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := replies.CleanExpired(); n > 0 {
					logger.Debug("Expired replay entries removed", "count", n)
				}
			}
		}
	}()

	if err := w.Run(ctx, client); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", log.FieldError, err.Error())
		return 1
	}
	cli.WaitForShutdown(ctx, done)
	return 0
}
