package transcriber

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// DefaultModelName is used when no model is configured.
const DefaultModelName = "gemini-2.0-flash"

// Gemini transcribes audio with the Gemini API.
type Gemini struct {
	models *genai.Models
	model  string
}

func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, errors.New("missing Gemini API key")
	}
	if model == "" {
		model = DefaultModelName
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Gemini{models: client.Models, model: model}, nil
}

// Instruction is the transcription request for a language hint.
func Instruction(language string) string {
	return fmt.Sprintf("Trascrivi fedelmente questo messaggio vocale (lingua: %s). "+
		"Rispondi solo con il testo trascritto, senza commenti.", language)
}

func (g *Gemini) Transcribe(ctx context.Context, audio []byte, mimeType, language string) (string, error) {
	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: Instruction(language)},
				{
					InlineData: &genai.Blob{
						MIMEType: mimeType,
						Data:     audio,
					},
				},
			},
		},
	}
	resp, err := g.models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0),
	})
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	return resp.Text(), nil
}
