package log

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("%q: got %v, want %v", in, got, want)
		}
	}
}

func TestWithComponentTagsEachRecordOnce(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Handler: slog.NewTextHandler(&buf, nil)}).WithComponent(ComponentLedger)
	l.Info("written", FieldPartitionKey, "07-2025")
	out := buf.String()
	if strings.Count(out, "component=") != 1 || !strings.Contains(out, "component=ledger") {
		t.Fatalf("unexpected output: %s", out)
	}
	if !strings.Contains(out, "partition_key=07-2025") {
		t.Fatalf("missing field: %s", out)
	}
}

func TestFromContext(t *testing.T) {
	if got := FromContext(context.Background()); got == nil || got.Component() != "unknown" {
		t.Fatalf("expected fallback logger, got %+v", got)
	}
	l := Discard().WithComponent(ComponentIngress)
	ctx := WithContext(context.Background(), l)
	if got := FromContext(ctx); got != l {
		t.Fatalf("expected stored logger")
	}
}
