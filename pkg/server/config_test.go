package server

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dkwon/relaychat/pkg/model"
)

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.yaml")
	data := "listen_addr: \"127.0.0.1:9000\"\nmax_sessions: 25\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.ListenAddr != "127.0.0.1:9000" {
		t.Errorf("ListenAddr = %q", cfg.ListenAddr)
	}
	if cfg.MaxSessions != 25 {
		t.Errorf("MaxSessions = %d, want 25", cfg.MaxSessions)
	}
	// Fields absent from the file keep their defaults.
	if cfg.MetricsAddr != DefaultConfig().MetricsAddr {
		t.Errorf("MetricsAddr = %q, want default", cfg.MetricsAddr)
	}
}

func TestLoadConfigBadSessionCap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.yaml")
	if err := os.WriteFile(path, []byte("max_sessions: -3\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.MaxSessions != model.DefaultMaxSessions {
		t.Errorf("MaxSessions = %d, want default %d", cfg.MaxSessions, model.DefaultMaxSessions)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for a missing config file")
	}
}
