package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestReadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "# comment\nFOO=bar\nEMPTY=\nQUOTED=\"hello world\"\nSINGLE='x y'\nexport EXPORTED=1\nnot a pair\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	vars, err := ReadDotEnv(path)
	if err != nil {
		t.Fatalf("ReadDotEnv error: %v", err)
	}
	want := map[string]string{
		"FOO":      "bar",
		"EMPTY":    "",
		"QUOTED":   "hello world",
		"SINGLE":   "x y",
		"EXPORTED": "1",
	}
	if len(vars) != len(want) {
		t.Fatalf("got %d vars, want %d: %v", len(vars), len(want), vars)
	}
	for k, v := range want {
		if vars[k] != v {
			t.Fatalf("%s = %q, want %q", k, vars[k], v)
		}
	}
}

func TestReadDotEnvMissingFile(t *testing.T) {
	vars, err := ReadDotEnv(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("missing file should not fail: %v", err)
	}
	if len(vars) != 0 {
		t.Fatalf("expected no vars, got %v", vars)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.StoreMode != "sqlite" || cfg.SessionCache != "store" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.TokenTTL != 12*time.Hour || cfg.FetchMaxAttempts != 3 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadEnvironmentWinsOverFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "STOREFRONT_STORE_MODE=postgres\nSTOREFRONT_LANG=fr\nSTOREFRONT_API_TIMEOUT=3s\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("STOREFRONT_STORE_MODE", "memory")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.StoreMode != "memory" {
		t.Fatalf("StoreMode = %q, want memory", cfg.StoreMode)
	}
	if cfg.Language != "fr" {
		t.Fatalf("Language = %q, want fr", cfg.Language)
	}
	if cfg.APITimeout != 3*time.Second {
		t.Fatalf("APITimeout = %v", cfg.APITimeout)
	}
}

func TestLoadRejectsUnknownStoreMode(t *testing.T) {
	t.Setenv("STOREFRONT_STORE_MODE", "mongo")
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error")
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("STOREFRONT_TOKEN_TTL", "soon")
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error")
	}
}
