package authapi

import (
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config controls auth API behavior and security defaults.
type Config struct {
	TrustProxy   bool
	MaxBodyBytes int64

	// Cookie transport for the issued token pair.
	AccessCookieName  string
	RefreshCookieName string
	CookiePath        string
	CookieDomain      string
	CookieSecure      bool
	CookieSameSite    http.SameSite

	// Fixed-window rate limit applied per client IP on the auth routes.
	RateLimitMax    int
	RateLimitWindow time.Duration
}

// LoadConfigFromEnv loads auth API config from environment variables with
// safe defaults.
func LoadConfigFromEnv() Config {
	cfg := Config{
		TrustProxy:        envBool("BALCAO_AUTH_TRUST_PROXY", false),
		MaxBodyBytes:      envInt64("BALCAO_AUTH_MAX_BODY_BYTES", 1<<20), // 1 MiB
		AccessCookieName:  envString("BALCAO_AUTH_ACCESS_COOKIE", "access_token"),
		RefreshCookieName: envString("BALCAO_AUTH_REFRESH_COOKIE", "refresh_token"),
		CookiePath:        envString("BALCAO_AUTH_COOKIE_PATH", "/"),
		CookieDomain:      envString("BALCAO_AUTH_COOKIE_DOMAIN", ""),
		CookieSecure:      envBool("BALCAO_AUTH_COOKIE_SECURE", true),
		CookieSameSite:    envSameSite("BALCAO_AUTH_COOKIE_SAMESITE", http.SameSiteLaxMode),
		RateLimitMax:      envInt("BALCAO_AUTH_RATE_LIMIT_MAX", 16),
		RateLimitWindow:   envDuration("BALCAO_AUTH_RATE_LIMIT_WINDOW", time.Minute),
	}

	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	if cfg.RateLimitMax <= 0 {
		cfg.RateLimitMax = 16
	}
	if cfg.CookiePath == "" {
		cfg.CookiePath = "/"
	}

	return cfg
}

func envString(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envInt64(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func envSameSite(key string, def http.SameSite) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "strict":
		return http.SameSiteStrictMode
	case "lax":
		return http.SameSiteLaxMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return def
	}
}
