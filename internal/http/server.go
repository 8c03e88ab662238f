package http

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"botspese/internal/ingress"
	"botspese/internal/log"
	"botspese/internal/middleware/ratelimit"
	"botspese/internal/middleware/security"
	"botspese/internal/middleware/trace"
)

// Ingester is the ingress dispatcher as seen by the HTTP front end.
type Ingester interface {
	HandleText(ctx context.Context, text string) (ingress.Result, error)
	HandleAudio(ctx context.Context, r io.Reader, name string) (ingress.Result, error)
}

// ReadyFunc reports whether the server can take ingestion traffic.
type ReadyFunc func(ctx context.Context) error

type Options struct {
	RateLimit      int
	RequestTimeout time.Duration
	Ready          ReadyFunc
	Logger         *log.Logger
}

type Server struct {
	http.Server
	ingest   Ingester
	ready    ReadyFunc
	timeout  time.Duration
	limiter  *ratelimit.Limiter
	detector *security.Detector
	logger   *log.Logger

	shutdownOnce sync.Once
}

func NewServer(addr string, ingest Ingester, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	s := &Server{
		ingest:   ingest,
		ready:    opts.Ready,
		timeout:  timeout,
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimit}),
		detector: security.NewDetector(logger),
		logger:   logger.WithComponent(log.ComponentHTTP),
	}

	limited := s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		s.logger.WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, s.detector.ExtractClientIP(r))
		ErrorResponse(http.StatusTooManyRequests, "troppe richieste, riprova tra un minuto").Write(w)
	})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("POST /ingest", limited(http.HandlerFunc(s.handleIngestText)))
	mux.Handle("POST /ingest/voice", limited(http.HandlerFunc(s.handleIngestVoice)))

	var handler http.Handler = mux
	handler = log.RequestIDMiddleware(func(r *http.Request) string { return trace.GetRequestID(r.Context()) })(handler)
	handler = log.Middleware(logger)(handler)
	handler = trace.NewMiddleware(logger, s.detector.ExtractClientIP).Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.detector.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       timeout,
		WriteTimeout:      timeout + 10*time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Shutdown stops the limiter and drains the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
