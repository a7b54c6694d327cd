package app

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("BALCAO_HTTP_ADDR", "")
	t.Setenv("BALCAO_LOG_LEVEL", "")
	t.Setenv("BALCAO_LOG_FORMAT", "")
	t.Setenv("BALCAO_DATABASE_URL", "")
	t.Setenv("BALCAO_REDIS_URL", "")
	t.Setenv("BALCAO_CORS_ORIGINS", "")
	t.Setenv("BALCAO_DB_AUTO_MIGRATE", "")
	t.Setenv("BALCAO_METRICS_ENABLED", "")

	cfg := LoadConfig()

	if cfg.HTTPAddr != "0.0.0.0:8080" {
		t.Fatalf("HTTPAddr=%q", cfg.HTTPAddr)
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != "json" {
		t.Fatalf("log defaults: level=%q format=%q", cfg.LogLevel, cfg.LogFormat)
	}
	if cfg.ReadHeaderTimeout != 5*time.Second || cfg.IdleTimeout != 60*time.Second {
		t.Fatalf("timeout defaults: %v %v", cfg.ReadHeaderTimeout, cfg.IdleTimeout)
	}
	if cfg.DatabaseURL != "" || cfg.RedisURL != "" {
		t.Fatalf("expected no backing services by default")
	}
	if !cfg.AutoMigrate {
		t.Fatalf("AutoMigrate should default on")
	}
	if !cfg.MetricsEnabled {
		t.Fatalf("MetricsEnabled should default on")
	}
	if cfg.ReadinessRequireDB {
		t.Fatalf("ReadinessRequireDB should default off")
	}
	if len(cfg.CORSAllowedOrigins) != 0 {
		t.Fatalf("unexpected CORS origins: %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("BALCAO_HTTP_ADDR", "127.0.0.1:9090")
	t.Setenv("BALCAO_LOG_LEVEL", "debug")
	t.Setenv("BALCAO_LOG_FORMAT", "pretty")
	t.Setenv("BALCAO_HTTP_READ_TIMEOUT", "30s")
	t.Setenv("BALCAO_DB_MAX_CONNS", "25")
	t.Setenv("BALCAO_DB_AUTO_MIGRATE", "false")
	t.Setenv("BALCAO_CORS_ORIGINS", "https://app.example.com, https://admin.example.com ,")
	t.Setenv("BALCAO_READINESS_REQUIRE_DB", "true")

	cfg := LoadConfig()

	if cfg.HTTPAddr != "127.0.0.1:9090" {
		t.Fatalf("HTTPAddr=%q", cfg.HTTPAddr)
	}
	if cfg.LogLevel != "debug" || cfg.LogFormat != "pretty" {
		t.Fatalf("log overrides: level=%q format=%q", cfg.LogLevel, cfg.LogFormat)
	}
	if cfg.ReadTimeout != 30*time.Second {
		t.Fatalf("ReadTimeout=%v", cfg.ReadTimeout)
	}
	if cfg.DBMaxConns != 25 {
		t.Fatalf("DBMaxConns=%d", cfg.DBMaxConns)
	}
	if cfg.AutoMigrate {
		t.Fatalf("AutoMigrate should be off")
	}
	if !cfg.ReadinessRequireDB {
		t.Fatalf("ReadinessRequireDB should be on")
	}

	want := []string{"https://app.example.com", "https://admin.example.com"}
	if len(cfg.CORSAllowedOrigins) != len(want) {
		t.Fatalf("CORS origins: %v", cfg.CORSAllowedOrigins)
	}
	for i := range want {
		if cfg.CORSAllowedOrigins[i] != want[i] {
			t.Fatalf("CORS origin[%d]=%q want=%q", i, cfg.CORSAllowedOrigins[i], want[i])
		}
	}
}
