package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Source.Kind != SourceHTTP || cfg.Source.URL != "http://localhost:8080/all" {
		t.Errorf("source = %+v", cfg.Source)
	}
	if cfg.Rider.SaddleHeight != 74.5 || cfg.Rider.SaddleForeAft != 20.5 {
		t.Errorf("rider = %+v", cfg.Rider)
	}
	if cfg.Index.DuplicatePolicy != DuplicateKeepFirst || cfg.Index.DefaultLimit != 10 {
		t.Errorf("index = %+v", cfg.Index)
	}
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
source:
  kind: file
  path: /data/frames.json
  watch: true
rider:
  saddleHeight: 70
index:
  reloadInterval: 1m
`)
	t.Setenv("FI_RIDER_SADDLE_FORE_AFT", "18")
	t.Setenv("FI_KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Source.Kind != SourceFile || !cfg.Source.Watch || cfg.Source.Path != "/data/frames.json" {
		t.Errorf("source = %+v", cfg.Source)
	}
	if cfg.Rider.SaddleHeight != 70 || cfg.Rider.SaddleForeAft != 18 {
		t.Errorf("rider = %+v", cfg.Rider)
	}
	if cfg.Index.ReloadInterval != time.Minute {
		t.Errorf("reload interval = %v", cfg.Index.ReloadInterval)
	}
	if len(cfg.Kafka.Brokers) != 2 {
		t.Errorf("brokers = %v", cfg.Kafka.Brokers)
	}
	if cfg.Source.Timeout != 10*time.Second {
		t.Error("unset values should keep their defaults")
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"unknown kind", "source:\n  kind: ftp\n", "source.kind"},
		{"file without path", "source:\n  kind: file\n", "source.path"},
		{"bad policy", "index:\n  duplicatePolicy: newest\n", "duplicatePolicy"},
		{"fore-aft beyond height", "rider:\n  saddleHeight: 20\n  saddleForeAft: 20\n", "saddleForeAft"},
		{"zero height", "rider:\n  saddleHeight: 0\n", "saddleHeight"},
		{"limits", "index:\n  defaultLimit: 50\n  maxLimit: 10\n", "limits"},
		{"negative reload rate", "index:\n  reloadsPerMinute: -1\n", "reloadsPerMinute"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for a missing file")
	}
}
