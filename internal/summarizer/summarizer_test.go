package summarizer

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type fakeGen struct {
	reply   string
	err     error
	panics  bool
	prompts []string
}

func (f *fakeGen) Generate(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.panics {
		panic("boom")
	}
	return f.reply, f.err
}

func TestSummarizeCleansReply(t *testing.T) {
	cases := map[string]string{
		"caffè":               "Caffè",
		"  \"scarpe nuove\".": "Scarpe Nuove",
		"«benzina»\n":         "Benzina",
		"CAFFÈ AL BAR!":       "Caffè Al Bar",
		"caffè\n\nlatte":      "Caffè Latte",
		"scarpe \t  nuove":    "Scarpe Nuove",
	}
	for raw, want := range cases {
		a := New(&fakeGen{reply: raw}, nil)
		got := a.Summarize(context.Background(), "Pagato 2€ al bar")
		if got.Fallback || got.Phrase != want {
			t.Fatalf("%q: got %+v, want %q", raw, got, want)
		}
	}
}

func TestSummarizePromptCollapsesLineBreaks(t *testing.T) {
	gen := &fakeGen{reply: "pizza"}
	New(gen, nil).Summarize(context.Background(), "pizza\n12€\r\ncontanti")
	if len(gen.prompts) != 1 {
		t.Fatalf("expected one call, got %d", len(gen.prompts))
	}
	want := `Testo: "pizza 12€ contanti". Oggetto acquistato (max 3 parole)?`
	if gen.prompts[0] != want {
		t.Fatalf("prompt = %q, want %q", gen.prompts[0], want)
	}
}

func TestSummarizeFallsBack(t *testing.T) {
	cases := []struct {
		name  string
		gen   Generator
		input string
	}{
		{"service error", &fakeGen{err: errors.New("quota exceeded")}, "caffè 1€"},
		{"empty reply", &fakeGen{reply: "  ...  "}, "caffè 1€"},
		{"panic", &fakeGen{panics: true}, "caffè 1€"},
		{"blank input", &fakeGen{reply: "x"}, ""},
		{"nil generator", nil, "caffè 1€"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := New(tc.gen, nil).Summarize(context.Background(), tc.input)
			if !got.Fallback || got.Phrase != "Spesa" {
				t.Fatalf("expected fallback, got %+v", got)
			}
		})
	}
}

func TestSummarizeFallbackKeepsCause(t *testing.T) {
	cause := errors.New("network down")
	got := New(&fakeGen{err: cause}, nil).Summarize(context.Background(), "taxi 10€")
	if !errors.Is(got.Err, cause) {
		t.Fatalf("expected cause to be kept, got %v", got.Err)
	}
}

func TestDescriptionNeverEmpty(t *testing.T) {
	a := New(&fakeGen{err: errors.New("x")}, nil)
	for _, in := range []string{"", " ", "\n", "qualcosa"} {
		if strings.TrimSpace(a.Description(context.Background(), in)) == "" {
			t.Fatalf("%q produced an empty description", in)
		}
	}
}

func TestGenerationConfigIsDeterministic(t *testing.T) {
	cfg := GenerationConfig()
	if cfg.Temperature == nil || *cfg.Temperature != 0 {
		t.Fatalf("temperature not pinned to 0: %v", cfg.Temperature)
	}
	if cfg.MaxOutputTokens != MaxOutputTokens {
		t.Fatalf("unexpected output cap %d", cfg.MaxOutputTokens)
	}
}
