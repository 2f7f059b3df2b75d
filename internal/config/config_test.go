package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFromYAMLAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
discord_token: yaml-token
database_path: /tmp/test.db
log_level: debug
health:
  enabled: true
  addr: ":9090"
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("DISCORD_TOKEN", "env-token")
	t.Setenv("AUDIT_RETENTION_DAYS", "7")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DiscordToken != "env-token" {
		t.Fatalf("env must win over yaml, got %q", cfg.DiscordToken)
	}
	if cfg.DatabasePath != "/tmp/test.db" {
		t.Fatalf("unexpected database path %q", cfg.DatabasePath)
	}
	if !cfg.Health.Enabled || cfg.Health.Addr != ":9090" {
		t.Fatalf("unexpected health config %+v", cfg.Health)
	}
	if cfg.AuditRetentionDays != 7 {
		t.Fatalf("expected retention 7, got %d", cfg.AuditRetentionDays)
	}
}

func TestLoadRequiresToken(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("DISCORD_TOKEN", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error without token")
	}
}

func TestBuildLoggerLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "bogus"} {
		logger, err := BuildLogger(level)
		if err != nil {
			t.Fatalf("build logger %s: %v", level, err)
		}
		_ = logger.Sync
	}
}
