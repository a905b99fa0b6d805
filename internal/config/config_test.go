package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("SESSION_IDLE_TIMEOUT", "")
	t.Setenv("SESSION_SWEEP_INTERVAL", "")
	t.Setenv("ALLOWED_ORIGINS", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}

	if cfg.Server.Addr != ":8080" {
		t.Fatalf("unexpected addr: %q", cfg.Server.Addr)
	}
	if cfg.Session.IdleTimeout != 60*time.Minute {
		t.Fatalf("unexpected idle timeout: %s", cfg.Session.IdleTimeout)
	}
	if cfg.Session.SweepInterval != 5*time.Minute {
		t.Fatalf("unexpected sweep interval: %s", cfg.Session.SweepInterval)
	}
	if len(cfg.CORS.AllowedOrigins) != 1 || cfg.CORS.AllowedOrigins[0] != "*" {
		t.Fatalf("unexpected origins: %v", cfg.CORS.AllowedOrigins)
	}
}

func TestLoadServerConfigPortForms(t *testing.T) {
	tests := []struct {
		port string
		want string
	}{
		{"9090", ":9090"},
		{":9090", ":9090"},
		{"127.0.0.1:8080", "127.0.0.1:8080"},
	}

	for _, tt := range tests {
		t.Setenv("PORT", tt.port)
		server, err := loadServerConfig()
		if err != nil {
			t.Fatalf("PORT=%q err: %v", tt.port, err)
		}
		if server.Addr != tt.want {
			t.Fatalf("PORT=%q: got %q want %q", tt.port, server.Addr, tt.want)
		}
	}
}

func TestLoadServerConfigRejectsGarbage(t *testing.T) {
	for _, port := range []string{"80 80", "abc", "-1", "0", "70000", "8080x"} {
		t.Setenv("PORT", port)
		if _, err := loadServerConfig(); err == nil {
			t.Fatalf("expected error for PORT=%q", port)
		}
	}
}

func TestLoadSessionConfigParsesDurations(t *testing.T) {
	t.Setenv("SESSION_IDLE_TIMEOUT", "30m")
	t.Setenv("SESSION_SWEEP_INTERVAL", "90s")

	session, err := loadSessionConfig()
	if err != nil {
		t.Fatalf("loadSessionConfig err: %v", err)
	}
	if session.IdleTimeout != 30*time.Minute {
		t.Fatalf("unexpected idle timeout: %s", session.IdleTimeout)
	}
	if session.SweepInterval != 90*time.Second {
		t.Fatalf("unexpected sweep interval: %s", session.SweepInterval)
	}
}

func TestLoadSessionConfigRejectsInvalidValues(t *testing.T) {
	t.Setenv("SESSION_IDLE_TIMEOUT", "soon")
	if _, err := loadSessionConfig(); err == nil {
		t.Fatal("expected error for unparsable duration")
	}

	t.Setenv("SESSION_IDLE_TIMEOUT", "-5m")
	if _, err := loadSessionConfig(); err == nil {
		t.Fatal("expected error for negative duration")
	}
}

func TestLoadCORSConfigSplitsAndTrims(t *testing.T) {
	t.Setenv("ALLOWED_ORIGINS", "https://a.test, https://b.test ,")

	cors := loadCORSConfig()
	if len(cors.AllowedOrigins) != 2 {
		t.Fatalf("unexpected origins: %v", cors.AllowedOrigins)
	}
	if cors.AllowedOrigins[0] != "https://a.test" || cors.AllowedOrigins[1] != "https://b.test" {
		t.Fatalf("unexpected origins: %v", cors.AllowedOrigins)
	}
}
