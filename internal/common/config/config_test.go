package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

const fullConfig = `
# comment
api:
  base_url: "http://localhost:8080/"
  timeout_seconds: 7

realtime:
  url: "ws://localhost:8080/ws"

location:
  high_accuracy: false
  min_distance_m: 25
  min_interval_ms: 4000
  radius_km: 3

server:
  port: 9090
  jwt_secret: "s3cret"

database:
  host: "db"
  port: 5432
  user: "u"
  password: "p"
  database: "workmap"
`

func TestLoadFullConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, fullConfig))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.API.BaseURL != "http://localhost:8080" {
		t.Errorf("base_url = %q, trailing slash should be trimmed", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != 7*time.Second {
		t.Errorf("timeout = %v, want 7s", cfg.API.Timeout)
	}
	if cfg.Realtime.URL != "ws://localhost:8080/ws" {
		t.Errorf("realtime url = %q", cfg.Realtime.URL)
	}
	if cfg.Location.HighAccuracy {
		t.Error("high_accuracy should be overridden to false")
	}
	if cfg.Location.MinDistanceMeters != 25 {
		t.Errorf("min_distance_m = %v, want 25", cfg.Location.MinDistanceMeters)
	}
	if cfg.Location.MinInterval != 4*time.Second {
		t.Errorf("min_interval = %v, want 4s", cfg.Location.MinInterval)
	}
	if cfg.Location.RadiusKm != 3 {
		t.Errorf("radius_km = %d, want 3", cfg.Location.RadiusKm)
	}
	if cfg.Server.Port != 9090 || cfg.Server.JWTSecret != "s3cret" {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.DB.Host != "db" || cfg.DB.Name != "workmap" {
		t.Errorf("database = %+v", cfg.DB)
	}
}

func TestLoadDefaultsPreserved(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
api:
  base_url: "http://x"
realtime:
  url: "ws://x"
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Location.HighAccuracy {
		t.Error("default high_accuracy lost")
	}
	if cfg.Location.MinInterval != 5*time.Second {
		t.Errorf("default min_interval = %v, want 5s", cfg.Location.MinInterval)
	}
	if cfg.Location.FastestInterval != 2*time.Second {
		t.Errorf("default fastest_interval = %v, want 2s", cfg.Location.FastestInterval)
	}
	if cfg.Location.RadiusKm != 5 {
		t.Errorf("default radius_km = %d, want 5", cfg.Location.RadiusKm)
	}
}

func TestLoadRejectsBadInput(t *testing.T) {
	cases := []struct {
		name    string
		content string
		errPart string
	}{
		{"missing api section", "realtime:\n  url: \"ws://x\"\n", "api"},
		{"missing realtime url", "api:\n  base_url: \"http://x\"\nrealtime:\n  timeout: 1\n", "realtime"},
		{"unknown section", "weird:\n  a: b\n", "unknown section"},
		{"unknown field", "api:\n  base_url: \"x\"\n  nope: 1\n", "unknown field"},
		{"duplicate key", "api:\n  base_url: \"x\"\n  base_url: \"y\"\nrealtime:\n  url: \"ws://x\"\n", "duplicate"},
		{"key outside section", "base_url: \"x\"\n", "outside"},
		{"bad int", "api:\n  base_url: \"x\"\n  timeout_seconds: soon\nrealtime:\n  url: \"w\"\n", "timeout_seconds"},
		{"incomplete server", fullServerless + "server:\n  port: 1\n", "server"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.content))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tc.errPart) {
				t.Errorf("error %q does not mention %q", err, tc.errPart)
			}
		})
	}
}

const fullServerless = "api:\n  base_url: \"x\"\nrealtime:\n  url: \"w\"\n"

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
