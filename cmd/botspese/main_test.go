package main

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"botspese/internal/config"
	"botspese/internal/log"
	"botspese/internal/telegram"
)

type fakeBot struct{ err error }

func (f fakeBot) Run(ctx context.Context) error {
	if f.err != nil {
		return f.err
	}
	<-ctx.Done()
	return nil
}

type fakeServer struct {
	mu       sync.Mutex
	stop     chan struct{}
	deadline time.Time
	bounded  bool
}

func newFakeServer() *fakeServer { return &fakeServer{stop: make(chan struct{})} }

func (f *fakeServer) ListenAndServe() error {
	<-f.stop
	return http.ErrServerClosed
}

func (f *fakeServer) Shutdown(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deadline, f.bounded = ctx.Deadline()
	close(f.stop)
	return nil
}

func TestServeFrontEndsBoundsDrainOnCancel(t *testing.T) {
	srv := newFakeServer()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	if err := serveFrontEnds(ctx, fakeBot{}, srv, 5*time.Second, log.Discard()); err != nil {
		t.Fatalf("serveFrontEnds: %v", err)
	}
	if !srv.bounded {
		t.Fatal("server drained without a deadline")
	}
	if d := srv.deadline.Sub(start); d > 6*time.Second {
		t.Fatalf("drain deadline %v past the configured bound", d)
	}
}

func TestServeFrontEndsStopsServerWhenBotFails(t *testing.T) {
	srv := newFakeServer()
	cause := errors.New("telegram: unauthorized")
	if err := serveFrontEnds(context.Background(), fakeBot{err: cause}, srv, time.Second, log.Discard()); !errors.Is(err, cause) {
		t.Fatalf("expected bot error, got %v", err)
	}
	if !srv.bounded {
		t.Fatal("server not shut down with a deadline")
	}
}

func TestRunReturnsExitCodeOnConnectFailure(t *testing.T) {
	cfg := &config.Config{
		Port:                  "8081",
		RequestTimeout:        time.Second,
		RateLimit:             30,
		Timezone:              "UTC",
		GeminiAPIKey:          "test-key",
		GeminiModel:           "gemini-2.0-flash",
		TranscriptionLanguage: "it",
		FFmpegPath:            "ffmpeg",
		Partitions:            "07-2025=db-july",
		DataBackend:           "memory",
	}
	connect := func(string) (telegram.API, error) { return nil, errors.New("no network") }

	// A process exit here would abort the test binary instead of returning.
	if code := run(cfg, log.Discard(), connect); code != 1 {
		t.Fatalf("run() = %d, want 1", code)
	}
}
