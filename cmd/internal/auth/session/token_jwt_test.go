package session

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func testCodecConfig() Config {
	cfg := DefaultConfig()
	cfg.Secret = []byte("0123456789abcdef0123456789abcdef")
	return cfg
}

func TestNewJWTCodecRejectsShortSecret(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Secret = []byte("too-short")

	if _, err := NewJWTCodec(cfg); !errors.Is(err, ErrConfig) {
		t.Fatalf("NewJWTCodec with short secret: got %v, want ErrConfig", err)
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	codec, err := NewJWTCodec(testCodecConfig())
	if err != nil {
		t.Fatalf("NewJWTCodec: %v", err)
	}

	now := time.Now().UTC()
	userID := uuid.New()
	tenantID := uuid.New()

	token, exp, err := codec.EncodeAccess(userID, tenantID, now)
	if err != nil {
		t.Fatalf("EncodeAccess: %v", err)
	}
	if want := now.Add(15 * time.Minute); !exp.Equal(want.Truncate(time.Second)) && !exp.Equal(want) {
		t.Fatalf("access exp = %v, want about %v", exp, want)
	}

	claims, err := codec.DecodeAccess(token, now)
	if err != nil {
		t.Fatalf("DecodeAccess: %v", err)
	}
	if claims.UserID != userID {
		t.Errorf("UserID = %v, want %v", claims.UserID, userID)
	}
	if claims.TenantID != tenantID {
		t.Errorf("TenantID = %v, want %v", claims.TenantID, tenantID)
	}
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	codec, err := NewJWTCodec(testCodecConfig())
	if err != nil {
		t.Fatalf("NewJWTCodec: %v", err)
	}

	now := time.Now().UTC()
	tokenID := uuid.New()

	token, _, err := codec.EncodeRefresh(tokenID, now)
	if err != nil {
		t.Fatalf("EncodeRefresh: %v", err)
	}

	got, err := codec.DecodeRefresh(token, now)
	if err != nil {
		t.Fatalf("DecodeRefresh: %v", err)
	}
	if got != tokenID {
		t.Errorf("token id = %v, want %v", got, tokenID)
	}
}

func TestDecodeRejectsTamperAndWrongKey(t *testing.T) {
	codec, err := NewJWTCodec(testCodecConfig())
	if err != nil {
		t.Fatalf("NewJWTCodec: %v", err)
	}

	now := time.Now().UTC()
	token, _, err := codec.EncodeRefresh(uuid.New(), now)
	if err != nil {
		t.Fatalf("EncodeRefresh: %v", err)
	}

	otherCfg := testCodecConfig()
	otherCfg.Secret = []byte("ffffffffffffffffffffffffffffffff")
	other, err := NewJWTCodec(otherCfg)
	if err != nil {
		t.Fatalf("NewJWTCodec: %v", err)
	}

	cases := map[string]struct {
		codec TokenCodec
		token string
	}{
		"garbage":      {codec, "not.a.jwt"},
		"empty":        {codec, ""},
		"tampered":     {codec, tamper(token)},
		"wrong secret": {other, token},
	}
	for name, tc := range cases {
		if _, err := tc.codec.DecodeRefresh(tc.token, now); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("%s: got %v, want ErrInvalidToken", name, err)
		}
	}
}

// A token whose lifetime ends exactly now is already expired.
func TestDecodeExpiryBoundaryIsExclusive(t *testing.T) {
	cfg := testCodecConfig()
	cfg.RefreshTokenTTL = time.Hour
	codec, err := NewJWTCodec(cfg)
	if err != nil {
		t.Fatalf("NewJWTCodec: %v", err)
	}

	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	token, exp, err := codec.EncodeRefresh(uuid.New(), issued)
	if err != nil {
		t.Fatalf("EncodeRefresh: %v", err)
	}

	if _, err := codec.DecodeRefresh(token, exp.Add(-time.Second)); err != nil {
		t.Fatalf("decode just before expiry: %v", err)
	}
	if _, err := codec.DecodeRefresh(token, exp); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("decode at exact expiry instant: got %v, want ErrInvalidToken", err)
	}
	if _, err := codec.DecodeRefresh(token, exp.Add(time.Second)); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("decode after expiry: got %v, want ErrInvalidToken", err)
	}
}

func TestDecodeAccessRejectsRefreshToken(t *testing.T) {
	codec, err := NewJWTCodec(testCodecConfig())
	if err != nil {
		t.Fatalf("NewJWTCodec: %v", err)
	}

	now := time.Now().UTC()
	refresh, _, err := codec.EncodeRefresh(uuid.New(), now)
	if err != nil {
		t.Fatalf("EncodeRefresh: %v", err)
	}

	if _, err := codec.DecodeAccess(refresh, now); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("DecodeAccess(refresh token): got %v, want ErrInvalidToken", err)
	}
}

// tamper flips the last payload character, keeping the signature intact.
func tamper(token string) string {
	parts := strings.Split(token, ".")
	if len(parts) != 3 || len(parts[1]) == 0 {
		return token + "x"
	}
	payload := []byte(parts[1])
	last := payload[len(payload)-1]
	if last == 'A' {
		payload[len(payload)-1] = 'B'
	} else {
		payload[len(payload)-1] = 'A'
	}
	parts[1] = string(payload)
	return strings.Join(parts, ".")
}
