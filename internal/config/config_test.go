package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func env(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(nil, env(nil))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DB != "preskrba.sqlite3" || cfg.Addr != ":8080" || cfg.Admin != "Admin" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.Warehouse.Code != "CEN" {
		t.Errorf("expected default warehouse code CEN, got %q", cfg.Warehouse.Code)
	}
}

func TestLoadLayering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preskrba.yaml")
	file := `
db: /var/lib/preskrba/file.sqlite3
addr: ":9000"
admin: root
warehouse:
  name: Osrednje skladišče
  code: OSR
token_ttl: 12h
audit_buffer: 32
`
	if err := os.WriteFile(path, []byte(file), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(
		[]string{"--config", path, "-a", ":9100"},
		env(map[string]string{"PRESKRBA_ADDR": ":9050", "PRESKRBA_ADMIN": "boss"}),
	)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.DB != "/var/lib/preskrba/file.sqlite3" {
		t.Errorf("db from file: got %q", cfg.DB)
	}
	if cfg.Admin != "boss" {
		t.Errorf("env should override file: got %q", cfg.Admin)
	}
	if cfg.Addr != ":9100" {
		t.Errorf("flag should override env: got %q", cfg.Addr)
	}
	if cfg.Warehouse.Code != "OSR" || cfg.TokenTTL != 12*time.Hour || cfg.AuditBuffer != 32 {
		t.Errorf("unexpected file values: %+v", cfg)
	}
	if cfg.ShutdownTimeout != 5*time.Second {
		t.Errorf("unset file values keep defaults: got %v", cfg.ShutdownTimeout)
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.yaml")
	if err := os.WriteFile(path, []byte("db: env.sqlite3\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(nil, env(map[string]string{"PRESKRBA_CONFIG": path}))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DB != "env.sqlite3" {
		t.Errorf("expected db from env-named file, got %q", cfg.DB)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	unknown := filepath.Join(dir, "unknown.yaml")
	os.WriteFile(unknown, []byte("listen: :80\n"), 0o644)
	invalid := filepath.Join(dir, "invalid.yaml")
	os.WriteFile(invalid, []byte("token_ttl: -1h\n"), 0o644)

	if _, err := Load([]string{"-h"}, env(nil)); !errors.Is(err, pflag.ErrHelp) {
		t.Errorf("help: expected ErrHelp, got %v", err)
	}
	if _, err := Load([]string{"serve"}, env(nil)); err == nil {
		t.Error("expected error for positional argument")
	}
	if _, err := Load([]string{"--bogus"}, env(nil)); err == nil {
		t.Error("expected error for unknown flag")
	}
	if _, err := Load([]string{"-c", filepath.Join(dir, "missing.yaml")}, env(nil)); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := Load([]string{"-c", unknown}, env(nil)); err == nil {
		t.Error("expected error for unknown field")
	}
	_, err := Load([]string{"-c", invalid}, env(nil))
	if err == nil || !strings.Contains(err.Error(), "token_ttl") {
		t.Errorf("expected token_ttl validation error, got %v", err)
	}
}
