package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"balcao/cmd/identity"

	"github.com/google/uuid"
)

// Issued is a freshly minted access/refresh token pair.
type Issued struct {
	AccessToken  string
	AccessExp    time.Time
	RefreshToken string
	RefreshExp   time.Time
}

// Service implements the session lifecycle: credential login, refresh
// rotation with reuse detection, logout and staff registration.
//
// All persistence goes through Store; all signing through TokenCodec.
// Service itself holds no mutable state and is safe for concurrent use.
type Service struct {
	cfg    Config
	codec  TokenCodec
	store  Store
	users  identity.Store
	hasher *identity.Hasher
	log    *slog.Logger
}

// NewService wires a session service.
func NewService(cfg Config, codec TokenCodec, store Store, users identity.Store, hasher *identity.Hasher, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		cfg:    cfg,
		codec:  codec,
		store:  store,
		users:  users,
		hasher: hasher,
		log:    log,
	}
}

// Login verifies credentials and establishes a new session chain.
//
// presentedRefresh is the refresh token cookie the client already holds,
// if any; its family is revoked in the same transaction that creates the
// new chain, so re-login supersedes the previous session.
//
// Every authentication failure, including an unknown identifier, a
// blocked role and a nil stored hash, collapses to ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, now time.Time, identifier, secret string, presentedRefresh string) (identity.User, Issued, error) {
	now = now.UTC()

	// Best effort: an undecodable cookie just means nothing to supersede.
	var superseded *uuid.UUID
	if presentedRefresh != "" {
		if id, err := s.codec.DecodeRefresh(presentedRefresh, now); err == nil {
			superseded = &id
		}
	}

	user, err := s.users.FindByIdentifier(ctx, identifier)
	if err != nil {
		if identity.IsNotFound(err) {
			s.hasher.VerifyDummy(secret)
			return identity.User{}, Issued{}, ErrInvalidCredentials
		}
		return identity.User{}, Issued{}, s.storeFailure("login lookup", err)
	}

	if !s.cfg.loginAllowed(user) {
		// Same error as a bad secret so the policy leaks nothing.
		s.hasher.VerifyDummy(secret)
		return identity.User{}, Issued{}, ErrInvalidCredentials
	}

	if user.PasswordHash == nil {
		s.hasher.VerifyDummy(secret)
		return identity.User{}, Issued{}, ErrInvalidCredentials
	}

	ok, err := s.hasher.Verify(secret, *user.PasswordHash)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidInput) {
			s.log.ErrorContext(ctx, "stored credential hash is malformed", "user_id", user.ID)
			return identity.User{}, Issued{}, ErrInvalidCredentials
		}
		return identity.User{}, Issued{}, s.storeFailure("credential verify", err)
	}
	if !ok {
		return identity.User{}, Issued{}, ErrInvalidCredentials
	}

	// A login roots a fresh family: the record's id is the family id.
	id := uuid.New()
	rec := RefreshToken{
		ID:        id,
		UserID:    user.ID,
		FamilyID:  id,
		ExpiresAt: now.Add(s.cfg.RefreshTokenTTL),
		CreatedAt: now,
	}

	if err := s.store.CreateLogin(ctx, now, rec, superseded); err != nil {
		if errors.Is(err, ErrDuplicateTokenID) {
			s.log.ErrorContext(ctx, "token id collision on login", "token_id", id)
			return identity.User{}, Issued{}, ErrIntegrityViolation
		}
		return identity.User{}, Issued{}, s.storeFailure("login create", err)
	}

	issued, err := s.issue(user, rec.ID, now)
	if err != nil {
		return identity.User{}, Issued{}, err
	}

	s.log.InfoContext(ctx, "session established", "user_id", user.ID, "family_id", rec.FamilyID)
	return user, issued, nil
}

// Refresh rotates a presented refresh token for a new pair.
//
// Presenting a revoked or expired token is treated as evidence of theft:
// the whole family is revoked before the error is returned, so any
// still-active descendant dies with it.
func (s *Service) Refresh(ctx context.Context, now time.Time, presented string) (identity.User, Issued, error) {
	now = now.UTC()

	if presented == "" {
		return identity.User{}, Issued{}, ErrInvalidRefreshToken
	}

	tokenID, err := s.codec.DecodeRefresh(presented, now)
	if err != nil {
		return identity.User{}, Issued{}, ErrInvalidRefreshToken
	}

	rec, err := s.store.Get(ctx, tokenID)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return identity.User{}, Issued{}, ErrInvalidRefreshToken
		}
		return identity.User{}, Issued{}, s.storeFailure("refresh lookup", err)
	}

	if rec.Revoked || rec.ExpiredAt(now) {
		return identity.User{}, Issued{}, s.nukeFamily(ctx, rec, "stale token presented")
	}

	user, err := s.users.FindByID(ctx, rec.UserID)
	if err != nil {
		if identity.IsNotFound(err) {
			// Principal vanished under an open session.
			return identity.User{}, Issued{}, s.nukeFamily(ctx, rec, "token owner no longer exists")
		}
		return identity.User{}, Issued{}, s.storeFailure("refresh owner lookup", err)
	}

	next := RefreshToken{
		ID:        uuid.New(),
		UserID:    rec.UserID,
		FamilyID:  rec.FamilyID,
		ExpiresAt: now.Add(s.cfg.RefreshTokenTTL),
		CreatedAt: now,
	}

	if err := s.store.Rotate(ctx, now, rec.ID, next); err != nil {
		switch {
		case errors.Is(err, ErrTokenReused), errors.Is(err, ErrTokenNotFound):
			// Lost the race to a concurrent rotation of the same token.
			return identity.User{}, Issued{}, s.nukeFamily(ctx, rec, "concurrent reuse during rotation")
		case errors.Is(err, ErrDuplicateTokenID):
			s.log.ErrorContext(ctx, "token id collision on rotation", "token_id", next.ID)
			return identity.User{}, Issued{}, ErrIntegrityViolation
		default:
			return identity.User{}, Issued{}, s.storeFailure("rotate", err)
		}
	}

	issued, err := s.issue(user, next.ID, now)
	if err != nil {
		return identity.User{}, Issued{}, err
	}
	return user, issued, nil
}

// Logout revokes the whole family of the presented refresh token.
//
// Logout is idempotent and never reveals token state: missing, malformed
// and already-revoked tokens all succeed silently.
func (s *Service) Logout(ctx context.Context, now time.Time, presented string) error {
	if presented == "" {
		return nil
	}

	tokenID, err := s.codec.DecodeRefresh(presented, now.UTC())
	if err != nil {
		return nil
	}

	if err := s.store.RevokeFamilyByTokenID(ctx, tokenID); err != nil {
		return s.storeFailure("logout revoke", err)
	}
	return nil
}

// LogoutAll revokes every refresh token the user owns, across all
// devices and families.
func (s *Service) LogoutAll(ctx context.Context, userID uuid.UUID) error {
	if err := s.store.RevokeAllForUser(ctx, userID); err != nil {
		return s.storeFailure("logout all revoke", err)
	}
	return nil
}

// Signup registers a new principal on behalf of actor.
//
// Actor must hold a management role and may not grant a privilege level
// above their own.
func (s *Service) Signup(ctx context.Context, now time.Time, actor identity.User, in identity.CreateUserInput, secret *string) (identity.User, error) {
	now = now.UTC()

	if !identity.HasAny(actor.Roles, s.cfg.ManagementRoles) {
		return identity.User{}, ErrInsufficientPrivilege
	}
	if identity.MaxPrivilege(in.Roles) > actor.PrivilegeLevel() {
		return identity.User{}, ErrInsufficientPrivilege
	}

	if secret != nil {
		hash, err := s.hasher.Hash(*secret)
		if err != nil {
			return identity.User{}, err
		}
		in.PasswordHash = &hash
	}

	in.TenantID = actor.TenantID
	actorID := actor.ID
	in.CreatedBy = &actorID
	in.Now = now

	user, err := s.users.Create(ctx, in)
	if err != nil {
		if identity.IsConflict(err) || errors.Is(err, identity.ErrInvalidInput) {
			return identity.User{}, err
		}
		return identity.User{}, s.storeFailure("signup create", err)
	}

	s.log.InfoContext(ctx, "principal registered", "user_id", user.ID, "created_by", actor.ID)
	return user, nil
}

// Authenticate resolves the principal behind an access token.
func (s *Service) Authenticate(ctx context.Context, now time.Time, accessToken string) (identity.User, error) {
	claims, err := s.codec.DecodeAccess(accessToken, now.UTC())
	if err != nil {
		return identity.User{}, ErrInvalidToken
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if identity.IsNotFound(err) {
			return identity.User{}, ErrInvalidToken
		}
		return identity.User{}, s.storeFailure("authenticate lookup", err)
	}
	return user, nil
}

func (s *Service) issue(user identity.User, refreshID uuid.UUID, now time.Time) (Issued, error) {
	access, accessExp, err := s.codec.EncodeAccess(user.ID, user.TenantID, now)
	if err != nil {
		return Issued{}, err
	}
	refresh, refreshExp, err := s.codec.EncodeRefresh(refreshID, now)
	if err != nil {
		return Issued{}, err
	}
	return Issued{
		AccessToken:  access,
		AccessExp:    accessExp,
		RefreshToken: refresh,
		RefreshExp:   refreshExp,
	}, nil
}

// nukeFamily revokes the family and reports the presentation as invalid.
// Revocation happens before the caller sees the error; a store failure
// during revocation surfaces as unavailability instead, since the family
// may still be alive.
func (s *Service) nukeFamily(ctx context.Context, rec RefreshToken, reason string) error {
	n, err := s.store.RevokeFamily(ctx, rec.FamilyID)
	if err != nil {
		return s.storeFailure("family revoke", err)
	}
	s.log.WarnContext(ctx, "refresh token family revoked",
		"reason", reason,
		"family_id", rec.FamilyID,
		"user_id", rec.UserID,
		"revoked", n,
	)
	return ErrInvalidRefreshToken
}

// storeFailure wraps infrastructure errors as ErrStoreUnavailable so
// callers can distinguish transient faults from auth failures.
func (s *Service) storeFailure(op string, err error) error {
	s.log.Error("session store operation failed", "op", op, "error", err)
	return errors.Join(ErrStoreUnavailable, err)
}
