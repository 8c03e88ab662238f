package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"botspese/internal/config"
)

func execute(t *testing.T, cfg *config.Config, now time.Time, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(cfg, func() time.Time { return now })
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestCheck(t *testing.T) {
	cfg := &config.Config{Timezone: "UTC", Partitions: "07-2025=db-july,08-2025=db-august"}
	july := time.Date(2025, 7, 20, 12, 0, 0, 0, time.UTC)
	august := time.Date(2025, 8, 20, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		now     time.Time
		args    []string
		want    string
		missing bool
	}{
		{"current covered", july, nil, "07-2025\tdb-july\n", false},
		{"next covered", july, []string{"--next"}, "08-2025\tdb-august\n", false},
		{"next missing", august, []string{"--next"}, "09-2025\tMISSING\n", true},
		{"current missing", time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC), nil, "09-2025\tMISSING\n", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, cfg, tt.now, tt.args...)
			if errors.Is(err, errMissing) != tt.missing {
				t.Fatalf("err = %v", err)
			}
			if out != tt.want {
				t.Fatalf("output %q, want %q", out, tt.want)
			}
		})
	}
}

func TestCheckList(t *testing.T) {
	cfg := &config.Config{Timezone: "UTC", Partitions: "08-2025=b,07-2025=a"}
	out, err := execute(t, cfg, time.Date(2025, 7, 2, 0, 0, 0, 0, time.UTC), "--list")
	if err != nil {
		t.Fatalf("err = %v", err)
	}
	if !strings.HasPrefix(out, "07-2025\ta\n08-2025\tb\n") {
		t.Fatalf("unexpected listing %q", out)
	}
}

func TestCheckBadConfig(t *testing.T) {
	now := time.Now()
	if _, err := execute(t, &config.Config{Timezone: "Mars/Olympus"}, now); err == nil || errors.Is(err, errMissing) {
		t.Fatalf("bad timezone: %v", err)
	}
	if _, err := execute(t, &config.Config{Timezone: "UTC", Partitions: "07-2025"}, now); err == nil || errors.Is(err, errMissing) {
		t.Fatalf("bad partitions: %v", err)
	}
}
