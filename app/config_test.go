package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/m3rciful/logibot/session"
)

func writeConfig(t *testing.T, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "123:abc"
  run_mode: longpoll
logging:
  level: info
  profile: prod
database:
  host: db.internal
  port: "5432"
  user: logibot
  name: logibot
session:
  timeout_minutes: 45
  cleanup_interval_minutes: 10
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Core.Telegram.Token != "123:abc" {
		t.Fatalf("token = %q", cfg.Core.Telegram.Token)
	}
	if cfg.Database.Host != "db.internal" {
		t.Fatalf("db host = %q", cfg.Database.Host)
	}
	if got := cfg.Session.IdleTimeout(); got != 45*time.Minute {
		t.Fatalf("idle timeout = %s", got)
	}
	if got := cfg.Session.SweepInterval(); got != 10*time.Minute {
		t.Fatalf("sweep interval = %s", got)
	}
}

func TestLoadConfigRequiresToken(t *testing.T) {
	path := writeConfig(t, `
telegram:
  run_mode: longpoll
`)
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("missing token accepted")
	}
}

func TestSessionConfigDefaults(t *testing.T) {
	var c SessionConfig
	if c.IdleTimeout() != session.DefaultIdleTimeout {
		t.Fatalf("default idle timeout = %s", c.IdleTimeout())
	}
	if c.SweepInterval() != session.DefaultSweepInterval {
		t.Fatalf("default sweep interval = %s", c.SweepInterval())
	}
}
