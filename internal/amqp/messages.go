package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrMalformed marks a delivery that can never be processed.
var ErrMalformed = errors.New("malformed ingest request")

// IngestRequest is one utterance forwarded by a chat bridge. Exactly one of
// Text and Audio is set; Audio travels base64-encoded in the JSON body.
type IngestRequest struct {
	ID        string    `json:"id"`
	ChatID    int64     `json:"chat_id"`
	Text      string    `json:"text,omitempty"`
	Audio     []byte    `json:"audio,omitempty"`
	AudioName string    `json:"audio_name,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// IsAudio reports whether the request carries a voice note.
func (r *IngestRequest) IsAudio() bool {
	return len(r.Audio) > 0
}

// Validate checks that the request has an id and exactly one payload.
func (r *IngestRequest) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("%w: missing id", ErrMalformed)
	}
	hasText := strings.TrimSpace(r.Text) != ""
	switch {
	case hasText && r.IsAudio():
		return fmt.Errorf("%w: both text and audio set", ErrMalformed)
	case !hasText && !r.IsAudio():
		return fmt.Errorf("%w: no text or audio", ErrMalformed)
	}
	return nil
}

// ToJSON converts the message to JSON bytes
func (r *IngestRequest) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

// IngestRequestFromJSON decodes and validates a delivery body.
func IngestRequestFromJSON(data []byte) (*IngestRequest, error) {
	var req IngestRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return &req, nil
}

// IngestReply carries the user-facing reply back to the bridge that sent
// the request.
type IngestReply struct {
	ID        string    `json:"id"`
	ChatID    int64     `json:"chat_id"`
	Outcome   string    `json:"outcome"`
	Message   string    `json:"message"`
	Ref       string    `json:"ref,omitempty"`
	Partition string    `json:"partition,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func (r *IngestReply) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

func IngestReplyFromJSON(data []byte) (*IngestReply, error) {
	var reply IngestReply
	if err := json.Unmarshal(data, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}
