package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessClaims is the identity envelope carried by an access token.
// Validity is fully determined by signature and expiry; access tokens are
// never looked up in storage.
type AccessClaims struct {
	UserID    uuid.UUID
	TenantID  uuid.UUID
	ExpiresAt time.Time
	IssuedAt  time.Time
}

// TokenCodec creates and parses signed, expiring tokens. Pure function of
// its inputs; no I/O.
//
// A refresh token's signed payload carries only its opaque record id: all
// authority (ownership, validity, revocation) is resolved by looking that
// id up in the Store, never trusted from the token content.
type TokenCodec interface {
	EncodeAccess(userID, tenantID uuid.UUID, now time.Time) (token string, exp time.Time, err error)
	DecodeAccess(token string, now time.Time) (AccessClaims, error)
	EncodeRefresh(tokenID uuid.UUID, now time.Time) (token string, exp time.Time, err error)
	DecodeRefresh(token string, now time.Time) (uuid.UUID, error)
}

type accessTokenClaims struct {
	jwt.RegisteredClaims
	TenantID string `json:"tid"`
}

type refreshTokenClaims struct {
	jwt.RegisteredClaims
}

type jwtCodec struct {
	issuer     string
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewJWTCodec builds a TokenCodec signing HS256 JWTs with the configured
// symmetric secret.
func NewJWTCodec(cfg Config) (TokenCodec, error) {
	if len(cfg.Secret) < 32 {
		return nil, ErrConfig
	}
	if cfg.AccessTokenTTL <= 0 || cfg.RefreshTokenTTL <= 0 {
		return nil, ErrConfig
	}
	return &jwtCodec{
		issuer:     cfg.Issuer,
		secret:     cfg.Secret,
		accessTTL:  cfg.AccessTokenTTL,
		refreshTTL: cfg.RefreshTokenTTL,
	}, nil
}

func (c *jwtCodec) EncodeAccess(userID, tenantID uuid.UUID, now time.Time) (string, time.Time, error) {
	now = now.UTC()
	exp := now.Add(c.accessTTL)

	claims := accessTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		TenantID: tenantID.String(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

func (c *jwtCodec) DecodeAccess(token string, now time.Time) (AccessClaims, error) {
	claims := &accessTokenClaims{}
	if err := c.parse(token, claims, now); err != nil {
		return AccessClaims{}, ErrInvalidToken
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return AccessClaims{}, ErrInvalidToken
	}
	tenantID, err := uuid.Parse(claims.TenantID)
	if err != nil {
		return AccessClaims{}, ErrInvalidToken
	}

	return AccessClaims{
		UserID:    userID,
		TenantID:  tenantID,
		ExpiresAt: claims.ExpiresAt.Time,
		IssuedAt:  claims.IssuedAt.Time,
	}, nil
}

func (c *jwtCodec) EncodeRefresh(tokenID uuid.UUID, now time.Time) (string, time.Time, error) {
	now = now.UTC()
	exp := now.Add(c.refreshTTL)

	claims := refreshTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			ID:        tokenID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

func (c *jwtCodec) DecodeRefresh(token string, now time.Time) (uuid.UUID, error) {
	claims := &refreshTokenClaims{}
	if err := c.parse(token, claims, now); err != nil {
		return uuid.Nil, ErrInvalidToken
	}

	tokenID, err := uuid.Parse(claims.ID)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}
	return tokenID, nil
}

// parse verifies signature and expiry together; every failure collapses to
// one error so callers cannot tell which check failed.
func (c *jwtCodec) parse(token string, claims jwt.Claims, now time.Time) error {
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (any, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now.UTC() }),
	)
	if err != nil || !parsed.Valid {
		return ErrInvalidToken
	}

	// Fail closed on the boundary instant: expiring exactly "now" is expired.
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil || !exp.Time.After(now.UTC()) {
		return ErrInvalidToken
	}
	return nil
}
