// Package transcriber turns a staged voice note into text: the container is
// normalized to MP3, then handed to a speech-to-text engine.
package transcriber

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"botspese/internal/log"
)

type (
	// Normalizer converts src into a widely supported container and returns
	// the new file with its MIME type. Output must stay in src's directory.
	Normalizer interface {
		Normalize(ctx context.Context, src string) (path, mimeType string, err error)
	}

	// Engine is the external speech-to-text service.
	Engine interface {
		Transcribe(ctx context.Context, audio []byte, mimeType, language string) (string, error)
	}
)

// MaxInlineAudioBytes is the largest normalized file sent inline to the
// engine. Gemini rejects inline requests above 20MB, prompt included.
const MaxInlineAudioBytes = 19 << 20

// ErrAudioTooLarge is returned when the normalized audio cannot be sent
// inline.
var ErrAudioTooLarge = errors.New("normalized audio too large for inline transcription")

// Service is the transcription adapter. Its errors are fatal for the ingestion.
type Service struct {
	normalizer Normalizer
	engine     Engine
	language   string
	logger     *log.Logger
}

func New(normalizer Normalizer, engine Engine, language string, logger *log.Logger) *Service {
	if language == "" {
		language = "it"
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Service{
		normalizer: normalizer,
		engine:     engine,
		language:   language,
		logger:     logger.WithComponent(log.ComponentTranscriber),
	}
}

// Transcribe returns the trimmed transcript of the audio file at path.
func (s *Service) Transcribe(ctx context.Context, path string) (string, error) {
	src, mimeType := path, "audio/ogg"
	if s.normalizer != nil {
		var err error
		src, mimeType, err = s.normalizer.Normalize(ctx, path)
		if err != nil {
			return "", fmt.Errorf("normalize audio: %w", err)
		}
	}

	audio, err := os.ReadFile(src)
	if err != nil {
		return "", fmt.Errorf("read audio: %w", err)
	}

	if len(audio) > MaxInlineAudioBytes {
		return "", fmt.Errorf("%w: %d bytes, limit %d", ErrAudioTooLarge, len(audio), MaxInlineAudioBytes)
	}

	text, err := s.engine.Transcribe(ctx, audio, mimeType, s.language)
	if err != nil {
		return "", fmt.Errorf("transcribe audio: %w", err)
	}
	text = strings.TrimSpace(text)

	s.logger.DebugContext(ctx, "Voice note transcribed",
		"bytes", len(audio),
		"mime_type", mimeType,
		"chars", len(text))
	return text, nil
}
