package app

import (
	"strings"
	"time"
)

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr  string
	LogLevel  string
	LogFormat string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32
	AutoMigrate bool

	RedisURL string

	// CORS policy for browser clients.
	CORSAllowedOrigins []string

	// If true, /readyz returns 503 unless the database is reachable.
	ReadinessRequireDB bool

	// If true, /metrics is served (guarded by the admin API key set).
	MetricsEnabled bool
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		HTTPAddr:  EnvString("BALCAO_HTTP_ADDR", "0.0.0.0:8080"),
		LogLevel:  EnvString("BALCAO_LOG_LEVEL", "info"),
		LogFormat: EnvString("BALCAO_LOG_FORMAT", "json"),

		ReadHeaderTimeout: EnvDuration("BALCAO_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("BALCAO_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("BALCAO_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       EnvDuration("BALCAO_HTTP_IDLE_TIMEOUT", 60*time.Second),

		MaxHeaderBytes: EnvInt("BALCAO_HTTP_MAX_HEADER_BYTES", 1<<20),

		DatabaseURL: EnvString("BALCAO_DATABASE_URL", ""),
		DBMaxConns:  EnvInt32("BALCAO_DB_MAX_CONNS", 10),
		DBMinConns:  EnvInt32("BALCAO_DB_MIN_CONNS", 0),
		AutoMigrate: EnvBool("BALCAO_DB_AUTO_MIGRATE", true),

		RedisURL: EnvString("BALCAO_REDIS_URL", ""),

		CORSAllowedOrigins: splitCSV(EnvString("BALCAO_CORS_ORIGINS", "")),

		ReadinessRequireDB: EnvBool("BALCAO_READINESS_REQUIRE_DB", false),

		MetricsEnabled: EnvBool("BALCAO_METRICS_ENABLED", true),
	}
}

func splitCSV(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}
