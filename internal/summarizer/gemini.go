package summarizer

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// DefaultModelName is used when no model is configured.
const DefaultModelName = "gemini-2.0-flash"

// Gemini generates descriptions with the Gemini API.
type Gemini struct {
	models *genai.Models
	model  string
}

// NewGemini creates a Gemini generator authenticated with apiKey.
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

// GenerationConfig pins the request to its most deterministic setting.
func GenerationConfig() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](0),
		MaxOutputTokens: MaxOutputTokens,
		CandidateCount:  1,
	}
}

func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}
	resp, err := g.models.GenerateContent(ctx, g.model, contents, GenerationConfig())
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", errors.New("empty response from model")
	}
	return text, nil
}
