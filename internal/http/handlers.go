package http

import (
	"context"
	"errors"
	"net/http"

	"botspese/internal/core"
	"botspese/internal/ingress"
	"botspese/internal/log"
	"botspese/internal/middleware/trace"
	"botspese/internal/transcriber"
)

// IngestResponse is returned by both ingest endpoints.
type IngestResponse struct {
	ID        string `json:"id"`
	Outcome   string `json:"outcome"`
	Message   string `json:"message"`
	Ref       string `json:"ref,omitempty"`
	Partition string `json:"partition,omitempty"`
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(map[string]string{"status": "ok"}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			s.logger.WarnContext(r.Context(), "Not ready", log.FieldError, err.Error())
			ServiceUnavailableError("not ready").Write(w)
			return
		}
	}
	NewResponse().JSON(map[string]string{"status": "ready"}).Write(w)
}

func (s *Server) handleIngestText(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r, maxTextBody)
	if err := p.Parse(); err != nil {
		if p.TooLarge() {
			TooLargeError("richiesta troppo grande").Write(w)
			return
		}
		BadRequestError("formato richiesta non valido").Write(w)
		return
	}
	text := p.Get("text")
	if text == "" {
		BadRequestError("campo 'text' obbligatorio").Write(w)
		return
	}

	ctx, cancel := s.ingestContext(r)
	defer cancel()
	res, err := s.ingest.HandleText(ctx, text)
	s.writeResult(w, r, res, err)
}

func (s *Server) handleIngestVoice(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, transcriber.MaxAudioBytes+1<<20)
	file, header, err := r.FormFile("audio")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			TooLargeError("nota vocale troppo grande").Write(w)
			return
		}
		BadRequestError("campo 'audio' obbligatorio").Write(w)
		return
	}
	defer file.Close()

	ctx, cancel := s.ingestContext(r)
	defer cancel()
	res, err := s.ingest.HandleAudio(ctx, file, header.Filename)
	s.writeResult(w, r, res, err)
}

func (s *Server) ingestContext(r *http.Request) (context.Context, context.CancelFunc) {
	ctx := ingress.WithSource(r.Context(), "http")
	if id := trace.GetRequestID(ctx); id != "" {
		ctx = ingress.WithID(ctx, id)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *Server) writeResult(w http.ResponseWriter, r *http.Request, res ingress.Result, err error) {
	body := IngestResponse{
		ID:        res.ID,
		Outcome:   string(ingress.OutcomeOf(res, err)),
		Message:   ingress.Reply(res, err),
		Ref:       res.Ref,
		Partition: res.PartitionKey,
	}
	status := http.StatusCreated
	switch {
	case err != nil:
		status = http.StatusInternalServerError
		s.logger.ErrorContext(r.Context(), "Ingestion failed",
			log.FieldIngestionID, res.ID,
			log.FieldError, err.Error(),
			log.FieldErrorType, errorType(err))
	case res.Outcome == ingress.OutcomeAmountNotRecognized:
		status = http.StatusUnprocessableEntity
	}
	NewResponse().Status(status).JSON(body).Write(w)
}

func errorType(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return log.ErrorTypeExternal
	case errors.Is(err, core.ErrPartitionNotConfigured):
		return log.ErrorTypeConfiguration
	default:
		return log.ErrorTypeInternal
	}
}
