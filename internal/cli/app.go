package cli

import (
	"context"
	"fmt"
	"time"

	"botspese/internal/backend"
	"botspese/internal/config"
	"botspese/internal/ingress"
	"botspese/internal/ledger"
	"botspese/internal/lexicon"
	"botspese/internal/log"
	"botspese/internal/partition"
	"botspese/internal/pipeline"
	"botspese/internal/summarizer"
	"botspese/internal/transcriber"
)

// App is the ingestion core every front end drives.
type App struct {
	Router     *partition.Router
	Dispatcher *ingress.Dispatcher

	backend *backend.BackendResult
	now     func() time.Time
}

// NewApp wires partition routing, extraction, transcription and the ledger
// backend selected by cfg.
func NewApp(ctx context.Context, cfg *config.Config, logger *log.Logger) (*App, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}
	table, err := partition.Load(cfg.PartitionsFile, cfg.Partitions)
	if err != nil {
		return nil, fmt.Errorf("load partition table: %w", err)
	}
	router := partition.NewRouter(table, loc)
	logger.Info("Partition table loaded", "partitions", table.Len(), "timezone", loc.String())
	if key, _, ok := router.Resolve(time.Now()); !ok {
		logger.Warn("No ledger partition for the current month, writes will fail",
			log.FieldPartitionKey, key.String(),
			log.FieldErrorType, log.ErrorTypeConfiguration)
	}

	matcher := lexicon.Default()
	if cfg.LexiconFile != "" {
		if matcher, err = lexicon.LoadFile(cfg.LexiconFile); err != nil {
			return nil, fmt.Errorf("load lexicon: %w", err)
		}
		logger.Info("Lexicon loaded", "path", cfg.LexiconFile)
	}

	gen, err := summarizer.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		return nil, fmt.Errorf("init summarizer: %w", err)
	}
	engine, err := transcriber.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		return nil, fmt.Errorf("init transcriber: %w", err)
	}

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("init %s backend: %w", cfg.DataBackend, err)
	}

	extractor := pipeline.New(matcher, summarizer.New(gen, logger), logger)
	writer := ledger.NewWriter(router, res.Store, logger)
	trans := transcriber.New(transcriber.NewFFmpeg(cfg.FFmpegPath), engine, cfg.TranscriptionLanguage, logger)

	return &App{
		Router:     router,
		Dispatcher: ingress.New(extractor, writer, trans, logger),
		backend:    res,
		now:        time.Now,
	}, nil
}

// Ready fails when the current month has no partition or the backend does
// not answer.
func (a *App) Ready(ctx context.Context) error {
	if key, _, ok := a.Router.Resolve(a.now()); !ok {
		return fmt.Errorf("no partition configured for %s", key)
	}
	if p, ok := a.backend.Store.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Close releases the backend.
func (a *App) Close() error {
	return a.backend.Close()
}
