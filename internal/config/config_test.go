package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("BACKEND_URL", "https://kaede.example.com/")
	t.Setenv("BACKEND_KEY", "test-key")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)
	t.Setenv("CONFIG_FILE", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.ListenAddr != ":8080" {
		t.Fatalf("expected default listen addr, got %q", cfg.ListenAddr)
	}
	if cfg.BackendURL != "https://kaede.example.com" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.BackendURL)
	}
	if cfg.Storage.Type != "local" || cfg.Storage.Bucket != "portfolio-thumbnails" {
		t.Fatalf("unexpected storage defaults: %+v", cfg.Storage)
	}
	if cfg.DatabaseDriver != "sqlite" {
		t.Fatalf("expected sqlite driver, got %q", cfg.DatabaseDriver)
	}
	if cfg.SessionTTL != 7*24*time.Hour {
		t.Fatalf("unexpected session ttl %v", cfg.SessionTTL)
	}
}

func TestLoadRequiresBackendValues(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("BACKEND_URL", "")
	t.Setenv("BACKEND_KEY", "key")

	if _, err := Load(); !errors.Is(err, ErrBackendURLMissing) {
		t.Fatalf("expected ErrBackendURLMissing, got %v", err)
	}

	t.Setenv("BACKEND_URL", "http://localhost:8080")
	t.Setenv("BACKEND_KEY", "  ")
	if _, err := Load(); !errors.Is(err, ErrBackendKeyMissing) {
		t.Fatalf("expected ErrBackendKeyMissing, got %v", err)
	}
}

func TestLoadFileWithEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
backend_url: http://from-file
backend_key: file-key
database_driver: postgres
storage:
  type: s3
  bucket: thumbs
`)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("BACKEND_URL", "")
	t.Setenv("BACKEND_KEY", "")
	t.Setenv("STORAGE_BUCKET", "env-thumbs")
	t.Setenv("SESSION_TTL", "2h")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.BackendURL != "http://from-file" || cfg.BackendKey != "file-key" {
		t.Fatalf("expected backend values from file, got %q %q", cfg.BackendURL, cfg.BackendKey)
	}
	if cfg.DatabaseDriver != "postgres" || cfg.Storage.Type != "s3" {
		t.Fatalf("expected file values, got %+v", cfg)
	}
	if cfg.Storage.Bucket != "env-thumbs" {
		t.Fatalf("expected env to win over file, got %q", cfg.Storage.Bucket)
	}
	if cfg.SessionTTL != 2*time.Hour {
		t.Fatalf("expected 2h ttl, got %v", cfg.SessionTTL)
	}
}

func TestLoadRejectsBadNumbers(t *testing.T) {
	setRequired(t)
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("THUMBNAIL_MAX_WIDTH", "wide")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid THUMBNAIL_MAX_WIDTH")
	}
}
