package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	_ "time/tzdata"

	"golang.org/x/sync/errgroup"

	"botspese/internal/cli"
	"botspese/internal/config"
	apphttp "botspese/internal/http"
	"botspese/internal/log"
	"botspese/internal/telegram"
)

// drainTimeout bounds the HTTP drain on shutdown.
const drainTimeout = 30 * time.Second

type (
	runner interface {
		Run(ctx context.Context) error
	}

	frontServer interface {
		ListenAndServe() error
		Shutdown(ctx context.Context) error
	}

	connectFunc func(token string) (telegram.API, error)
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig((*config.Config).RequireTelegram)
	os.Exit(run(cfg, logger, func(token string) (telegram.API, error) {
		return telegram.Connect(token)
	}))
}

func run(cfg *config.Config, logger *log.Logger, connect connectFunc) int {
	logger.Info("Starting botspese", log.FieldOperation, log.OpStartup, "backend", cfg.DataBackend)

	app, err := cli.NewApp(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize application", log.FieldError, err.Error())
		return 1
	}
	defer app.Close()

	api, err := connect(cfg.TelegramToken)
	if err != nil {
		logger.Error("Failed to connect to Telegram", log.FieldError, err.Error(),
			log.FieldErrorType, log.ErrorTypeExternal)
		return 1
	}
	bot := telegram.New(api, app.Dispatcher, cfg.RequestTimeout, logger)

	srv := apphttp.NewServer(":"+cfg.Port, app.Dispatcher, apphttp.Options{
		RateLimit:      cfg.RateLimit,
		RequestTimeout: cfg.RequestTimeout,
		Ready:          app.Ready,
		Logger:         logger,
	})

	ctx, done := cli.GracefulShutdown(logger, drainTimeout, nil)

	logger.Info("Starting HTTP server", "port", cfg.Port)
	if err := serveFrontEnds(ctx, bot, srv, drainTimeout, logger); err != nil {
		logger.Error("Front end stopped with error", log.FieldError, err.Error())
		return 1
	}
	cli.WaitForShutdown(ctx, done)
	return 0
}

// serveFrontEnds runs the bot and the HTTP server until ctx ends or either
// fails. The server drain is bounded by drain in both cases.
func serveFrontEnds(ctx context.Context, bot runner, srv frontServer, drain time.Duration, logger *log.Logger) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := bot.Run(gctx); err != nil {
			return err
		}
		if gctx.Err() == nil {
			return errors.New("telegram updates channel closed")
		}
		return nil
	})
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), drain)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err.Error())
		}
		return nil
	})
	return g.Wait()
}
