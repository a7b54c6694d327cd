package authapi

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"balcao/cmd/identity"
	"balcao/cmd/internal/auth/session"

	"github.com/redis/go-redis/v9"
)

// Handler wires the HTTP auth endpoints to the session service.
type Handler struct {
	log *slog.Logger
	cfg Config

	sessions *session.Service
	limiter  *rateLimiter
	metrics  *Metrics
}

// NewHandler constructs an auth Handler. redisClient may be nil, which
// disables rate limiting; metrics may be nil, which disables counters.
func NewHandler(log *slog.Logger, cfg Config, sessions *session.Service, redisClient *redis.Client, metrics *Metrics) (*Handler, error) {
	if log == nil {
		log = slog.Default()
	}
	if sessions == nil {
		return nil, errors.New("auth: nil session service")
	}

	return &Handler{
		log:      log,
		cfg:      cfg,
		sessions: sessions,
		limiter:  newRateLimiter(redisClient, cfg.RateLimitMax, cfg.RateLimitWindow),
		metrics:  metrics,
	}, nil
}

// Register wires auth routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("/auth/login", h.handleLogin)
	mux.HandleFunc("/auth/refresh", h.handleRefresh)
	mux.HandleFunc("/auth/logout", h.handleLogout)
	mux.HandleFunc("/auth/logout_all", h.handleLogoutAll)
	mux.HandleFunc("/auth/signup", h.handleSignup)
	mux.HandleFunc("/me", h.handleMe)
}

// ---- handlers ----

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !h.allowRate(w, r) {
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}
	identifier := strings.TrimSpace(req.Identifier)
	if identifier == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "identifier and password are required")
		return
	}

	ctx := r.Context()
	now := time.Now().UTC()
	presented := h.refreshTokenFromRequest(r)

	user, issued, err := h.sessions.Login(ctx, now, identifier, req.Password, presented)
	if err != nil {
		h.count(func(m *Metrics) { m.LoginFailure.Inc() })
		switch {
		case errors.Is(err, session.ErrInvalidCredentials):
			writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials")
		case errors.Is(err, session.ErrStoreUnavailable):
			writeError(w, http.StatusServiceUnavailable, "store_unavailable", "please retry later")
		default:
			h.log.Error("auth.login.fail", "err", err)
			writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		}
		return
	}

	h.count(func(m *Metrics) { m.LoginSuccess.Inc() })
	h.setSessionCookies(w, issued)
	writeJSON(w, http.StatusOK, loginResponse{
		User: toUserResponse(user),
		Session: sessionResponse{
			AccessExpiresAt:  issued.AccessExp,
			RefreshExpiresAt: issued.RefreshExp,
		},
	})
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !h.allowRate(w, r) {
		return
	}

	ctx := r.Context()
	now := time.Now().UTC()
	presented := h.refreshTokenFromRequest(r)

	_, issued, err := h.sessions.Refresh(ctx, now, presented)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrInvalidRefreshToken):
			h.count(func(m *Metrics) { m.RefreshReuse.Inc() })
			h.clearSessionCookies(w)
			writeError(w, http.StatusUnauthorized, "invalid_refresh_token", "invalid refresh token")
		case errors.Is(err, session.ErrStoreUnavailable):
			writeError(w, http.StatusServiceUnavailable, "store_unavailable", "please retry later")
		default:
			h.log.Error("auth.refresh.fail", "err", err)
			writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		}
		return
	}

	h.count(func(m *Metrics) { m.RefreshSuccess.Inc() })
	h.setSessionCookies(w, issued)
	writeJSON(w, http.StatusOK, refreshResponse{
		Session: sessionResponse{
			AccessExpiresAt:  issued.AccessExp,
			RefreshExpiresAt: issued.RefreshExp,
		},
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	now := time.Now().UTC()
	presented := h.refreshTokenFromRequest(r)

	if err := h.sessions.Logout(ctx, now, presented); err != nil {
		if errors.Is(err, session.ErrStoreUnavailable) {
			writeError(w, http.StatusServiceUnavailable, "store_unavailable", "please retry later")
			return
		}
		h.log.Error("auth.logout.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	h.count(func(m *Metrics) { m.Logout.Inc() })
	h.clearSessionCookies(w)
	w.WriteHeader(http.StatusNoContent)
}

// handleLogoutAll revokes every session the caller owns, on all devices.
// Requires a valid access token since there is no single token to present.
func (h *Handler) handleLogoutAll(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	actor, ok := h.requireAuth(w, r)
	if !ok {
		return
	}

	if err := h.sessions.LogoutAll(r.Context(), actor.ID); err != nil {
		if errors.Is(err, session.ErrStoreUnavailable) {
			writeError(w, http.StatusServiceUnavailable, "store_unavailable", "please retry later")
			return
		}
		h.log.Error("auth.logout_all.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	h.count(func(m *Metrics) { m.Logout.Inc() })
	h.clearSessionCookies(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSignup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	actor, ok := h.requireAuth(w, r)
	if !ok {
		return
	}

	var req signupRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	roles, err := identity.ParseRoles(req.Roles)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid roles")
		return
	}

	in := identity.CreateUserInput{
		Name:     strings.TrimSpace(req.Name),
		Nickname: trimPtr(req.Nickname),
		Email:    trimPtr(req.Email),
		CPF:      trimPtr(req.CPF),
		Roles:    roles,
		Notes:    trimPtr(req.Notes),
	}

	ctx := r.Context()
	now := time.Now().UTC()

	user, err := h.sessions.Signup(ctx, now, actor, in, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrInsufficientPrivilege):
			writeError(w, http.StatusForbidden, "insufficient_privilege", "insufficient privilege")
		case identity.IsConflict(err):
			writeError(w, http.StatusConflict, "conflict", "email or cpf already registered")
		case errors.Is(err, identity.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "invalid_request", "invalid input")
		case errors.Is(err, session.ErrStoreUnavailable):
			writeError(w, http.StatusServiceUnavailable, "store_unavailable", "please retry later")
		default:
			h.log.Error("auth.signup.fail", "err", err)
			writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		}
		return
	}

	h.count(func(m *Metrics) { m.Signup.Inc() })
	writeJSON(w, http.StatusCreated, signupResponse{User: toUserResponse(user)})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	user, ok := h.requireAuth(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, meResponse{User: toUserResponse(user)})
}

// ---- helpers ----

func (h *Handler) requireAuth(w http.ResponseWriter, r *http.Request) (identity.User, bool) {
	token := h.accessTokenFromRequest(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing access token")
		return identity.User{}, false
	}

	user, err := h.sessions.Authenticate(r.Context(), time.Now().UTC(), token)
	if err != nil {
		if errors.Is(err, session.ErrStoreUnavailable) {
			writeError(w, http.StatusServiceUnavailable, "store_unavailable", "please retry later")
			return identity.User{}, false
		}
		writeError(w, http.StatusUnauthorized, "unauthorized", "invalid token")
		return identity.User{}, false
	}
	return user, true
}

func (h *Handler) allowRate(w http.ResponseWriter, r *http.Request) bool {
	client := clientKey(r, h.cfg.TrustProxy)
	ok, retryAfter, err := h.limiter.Allow(r.Context(), client, time.Now())
	if err != nil {
		// Fail open on limiter outage, but leave a trace.
		h.log.Warn("auth.rate_limit.unavailable", "err", err)
		return true
	}
	if !ok {
		h.count(func(m *Metrics) { m.RateLimited.Inc() })
		secs := int(retryAfter / time.Second)
		if secs < 1 {
			secs = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(secs))
		writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests")
		return false
	}
	return true
}

func (h *Handler) count(fn func(*Metrics)) {
	if h.metrics != nil {
		fn(h.metrics)
	}
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func clientKey(r *http.Request, trustProxy bool) string {
	if ip := clientIP(r, trustProxy); ip != nil {
		return ip.String()
	}
	return strings.TrimSpace(r.RemoteAddr)
}

func clientIP(r *http.Request, trustProxy bool) net.IP {
	if trustProxy {
		if ip := parseForwardedIP(r.Header.Get("X-Forwarded-For")); ip != nil {
			return ip
		}
		if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil {
		if ip := net.ParseIP(host); ip != nil {
			return ip
		}
	}
	return nil
}

func parseForwardedIP(raw string) net.IP {
	if raw == "" {
		return nil
	}
	for _, p := range strings.Split(raw, ",") {
		if ip := net.ParseIP(strings.TrimSpace(p)); ip != nil {
			return ip
		}
	}
	return nil
}
