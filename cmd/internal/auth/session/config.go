package session

import (
	"os"
	"strconv"
	"strings"
	"time"

	"balcao/cmd/identity"
)

// LoginPolicy selects which authorization rule gates interactive login.
//
// The two observed policies are kept as configurable alternatives:
// PolicyForbiddenRoles rejects principals whose role set lies entirely
// inside a forbidden set; PolicyMinPrivilege rejects principals below a
// minimum privilege level.
type LoginPolicy string

const (
	PolicyForbiddenRoles LoginPolicy = "forbidden_roles"
	PolicyMinPrivilege   LoginPolicy = "min_privilege"
)

// Config defines all runtime configuration for the session subsystem.
//
// Loaded once at startup and immutable thereafter.
type Config struct {
	// Issuer is the value set in the "iss" claim of issued tokens.
	Issuer string

	// Secret is the symmetric HS256 signing key. Required, >= 32 bytes.
	Secret []byte

	// AccessTokenTTL defines the lifetime of access tokens (minutes scale).
	AccessTokenTTL time.Duration

	// RefreshTokenTTL defines the lifetime of refresh tokens (days scale).
	RefreshTokenTTL time.Duration

	// Login authorization policy.
	LoginPolicy       LoginPolicy
	ForbiddenRoles    []identity.Role
	MinPrivilegeLevel int

	// ManagementRoles may create new principals (signup).
	ManagementRoles []identity.Role
}

// DefaultConfig returns defaults suitable for development.
// The signing secret has no default and must come from the environment.
func DefaultConfig() Config {
	return Config{
		Issuer:            "balcao",
		AccessTokenTTL:    15 * time.Minute,
		RefreshTokenTTL:   7 * 24 * time.Hour,
		LoginPolicy:       PolicyForbiddenRoles,
		ForbiddenRoles:    []identity.Role{identity.RoleCliente},
		MinPrivilegeLevel: 1,
		ManagementRoles:   []identity.Role{identity.RoleAdmin, identity.RoleGerente},
	}
}

// LoadConfigFromEnv loads session configuration from environment variables.
//
// Required:
//   - BALCAO_JWT_SECRET (>= 32 bytes)
//
// Optional:
//   - BALCAO_AUTH_ISSUER
//   - BALCAO_AUTH_ACCESS_TTL (Go duration)
//   - BALCAO_AUTH_REFRESH_TTL (Go duration)
//   - BALCAO_AUTH_LOGIN_POLICY ("forbidden_roles" or "min_privilege")
//   - BALCAO_AUTH_FORBIDDEN_ROLES (CSV of role labels)
//   - BALCAO_AUTH_MIN_PRIVILEGE (integer >= 0)
//   - BALCAO_AUTH_MANAGEMENT_ROLES (CSV of role labels)
//
// Returns ErrConfig if configuration is invalid.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	secret := strings.TrimSpace(os.Getenv("BALCAO_JWT_SECRET"))
	if len(secret) < 32 {
		return Config{}, ErrConfig
	}
	cfg.Secret = []byte(secret)

	if v := os.Getenv("BALCAO_AUTH_ISSUER"); v != "" {
		cfg.Issuer = v
	}

	if v := os.Getenv("BALCAO_AUTH_ACCESS_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.AccessTokenTTL = d
	}

	if v := os.Getenv("BALCAO_AUTH_REFRESH_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.RefreshTokenTTL = d
	}

	if v := strings.TrimSpace(os.Getenv("BALCAO_AUTH_LOGIN_POLICY")); v != "" {
		switch LoginPolicy(v) {
		case PolicyForbiddenRoles, PolicyMinPrivilege:
			cfg.LoginPolicy = LoginPolicy(v)
		default:
			return Config{}, ErrConfig
		}
	}

	if v := os.Getenv("BALCAO_AUTH_FORBIDDEN_ROLES"); v != "" {
		roles, err := parseRoleCSV(v)
		if err != nil {
			return Config{}, ErrConfig
		}
		cfg.ForbiddenRoles = roles
	}

	if v := strings.TrimSpace(os.Getenv("BALCAO_AUTH_MIN_PRIVILEGE")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return Config{}, ErrConfig
		}
		cfg.MinPrivilegeLevel = n
	}

	if v := os.Getenv("BALCAO_AUTH_MANAGEMENT_ROLES"); v != "" {
		roles, err := parseRoleCSV(v)
		if err != nil {
			return Config{}, ErrConfig
		}
		cfg.ManagementRoles = roles
	}

	// Refresh tokens must outlive the access tokens they renew.
	if cfg.RefreshTokenTTL <= cfg.AccessTokenTTL {
		return Config{}, ErrConfig
	}

	return cfg, nil
}

// loginAllowed applies the configured authorization policy.
// Fail closed: a principal with no roles is never allowed.
func (c Config) loginAllowed(u identity.User) bool {
	if len(u.Roles) == 0 {
		return false
	}

	switch c.LoginPolicy {
	case PolicyMinPrivilege:
		return u.PrivilegeLevel() >= c.MinPrivilegeLevel
	default:
		// Forbidden when every role the principal holds is in the
		// forbidden set; one role outside it grants access.
		for _, r := range u.Roles {
			forbidden := false
			for _, f := range c.ForbiddenRoles {
				if r == f {
					forbidden = true
					break
				}
			}
			if !forbidden {
				return true
			}
		}
		return false
	}
}

func parseRoleCSV(v string) ([]identity.Role, error) {
	var out []identity.Role
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		r, err := identity.ParseRole(part)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if len(out) == 0 {
		return nil, ErrConfig
	}
	return out, nil
}
