package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNewHandlerFormats(t *testing.T) {
	var buf bytes.Buffer
	slog.New(newHandler(&buf, "debug", "json")).Debug("loaded", "frames", 3)
	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("json handler wrote %q: %v", buf.String(), err)
	}
	if line["msg"] != "loaded" || line["frames"].(float64) != 3 {
		t.Errorf("line = %v", line)
	}

	buf.Reset()
	slog.New(newHandler(&buf, "info", "console")).Info("loaded", "frames", 3)
	if !strings.Contains(buf.String(), "loaded") || !strings.Contains(buf.String(), "frames") {
		t.Errorf("console handler wrote %q", buf.String())
	}

	buf.Reset()
	slog.New(newHandler(&buf, "warn", "text")).Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("info should be filtered at warn level, got %q", buf.String())
	}
}

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")
	if RequestID(ctx) != "req-1" {
		t.Errorf("request id = %q", RequestID(ctx))
	}
	if RequestID(context.Background()) != "" {
		t.Error("empty context should have no request id")
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"info":  slog.LevelInfo,
		"":      slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
