package config

import (
	"strings"
	"testing"
	"time"
)

func setSecrets(t *testing.T) {
	t.Helper()
	t.Setenv("ENXERO_JWT_ACCESS_SECRET", "access-secret-value")
	t.Setenv("ENXERO_JWT_REFRESH_SECRET", "refresh-secret-value")
}

func TestLoadDefaults(t *testing.T) {
	setSecrets(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Auth.LockoutThreshold != 5 {
		t.Fatalf("expected lockout threshold 5, got %d", cfg.Auth.LockoutThreshold)
	}
	if cfg.Auth.LockoutWindow != 15*time.Minute || cfg.Auth.LockoutDuration != 15*time.Minute {
		t.Fatalf("unexpected lockout window/duration: %v/%v", cfg.Auth.LockoutWindow, cfg.Auth.LockoutDuration)
	}
	if cfg.Auth.SessionTTL != 24*time.Hour {
		t.Fatalf("expected session ttl 24h, got %v", cfg.Auth.SessionTTL)
	}
	if cfg.JWT.AccessTokenTTL != 15*time.Minute || cfg.JWT.RefreshTokenTTL != 7*24*time.Hour {
		t.Fatalf("unexpected token ttls: %v/%v", cfg.JWT.AccessTokenTTL, cfg.JWT.RefreshTokenTTL)
	}
	if cfg.Events.Driver != "log" {
		t.Fatalf("expected log event driver, got %s", cfg.Events.Driver)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	setSecrets(t)
	t.Setenv("ENXERO_AUTH_LOCKOUT_THRESHOLD", "3")
	t.Setenv("AUTH_DEFAULT_ROLE", "employee")
	t.Setenv("ENXERO_EVENTS_DRIVER", "kafka")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Auth.LockoutThreshold != 3 {
		t.Fatalf("expected threshold override 3, got %d", cfg.Auth.LockoutThreshold)
	}
	if cfg.Auth.DefaultRole != "employee" {
		t.Fatalf("expected unprefixed env to apply, got %s", cfg.Auth.DefaultRole)
	}
	if cfg.Events.Driver != "kafka" {
		t.Fatalf("expected kafka driver, got %s", cfg.Events.Driver)
	}
}

func TestLoadRejectsSharedSecrets(t *testing.T) {
	t.Setenv("ENXERO_JWT_ACCESS_SECRET", "same")
	t.Setenv("ENXERO_JWT_REFRESH_SECRET", "same")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when access and refresh secrets match")
	}
	if !strings.Contains(err.Error(), "must differ") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadRequiresSecrets(t *testing.T) {
	t.Setenv("ENXERO_JWT_ACCESS_SECRET", "")
	t.Setenv("ENXERO_JWT_REFRESH_SECRET", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when secrets are missing")
	}
}

func TestPostgresDSN(t *testing.T) {
	p := PostgresSettings{User: "u", Password: "p", Host: "db", Port: 5432, Database: "enxero", SSLMode: "disable"}
	if got := p.DSN(); got != "postgres://u:p@db:5432/enxero?sslmode=disable" {
		t.Fatalf("unexpected dsn %s", got)
	}
}
