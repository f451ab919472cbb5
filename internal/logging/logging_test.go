package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	testCases := []struct {
		in   string
		want slog.Level
	}{
		{in: "", want: slog.LevelInfo},
		{in: "info", want: slog.LevelInfo},
		{in: " DEBUG ", want: slog.LevelDebug},
		{in: "warn", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := parseLevel(tc.in)
			if err != nil {
				t.Fatalf("parseLevel(%q) error = %v", tc.in, err)
			}
			if got != tc.want {
				t.Fatalf("parseLevel(%q) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}

	if _, err := parseLevel("verbose"); err == nil {
		t.Fatal("parseLevel(verbose) error = nil, want error")
	}
}

func TestNewHandlerJSON(t *testing.T) {
	var buf bytes.Buffer
	h, err := NewHandler(&buf, LevelWarn, FormatJSON)
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	log := slog.New(h)
	log.Info("dropped")
	log.Warn("kept", "container", "abc")

	out := strings.TrimSpace(buf.String())
	if strings.Contains(out, "dropped") {
		t.Fatalf("info record written at warn level: %s", out)
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(out), &rec); err != nil {
		t.Fatalf("decode json record: %v (%s)", err, out)
	}
	if rec["msg"] != "kept" || rec["container"] != "abc" {
		t.Fatalf("record = %v, want msg=kept container=abc", rec)
	}
}

func TestNewHandlerRejectsUnknownFormat(t *testing.T) {
	if _, err := NewHandler(&bytes.Buffer{}, LevelInfo, "xml"); err == nil {
		t.Fatal("NewHandler(xml) error = nil, want error")
	}
	h, err := NewHandler(&bytes.Buffer{}, LevelInfo, "")
	if err != nil {
		t.Fatalf("NewHandler(default) error = %v", err)
	}
	if !h.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatal("default handler should enable info")
	}
}
