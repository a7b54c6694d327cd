package session

import "errors"

var (
	// ErrInvalidCredentials is returned when the identifier/secret pair does
	// not match, or the principal's role set is excluded from this surface.
	// Intentionally indistinguishable across those cases.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidRefreshToken is returned when a presented refresh token is
	// missing, malformed, expired, revoked-and-reused, or orphaned.
	// Intentionally indistinguishable across those cases.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")

	// ErrInsufficientPrivilege is returned when the acting principal lacks
	// a management role or tries to grant a higher privilege than its own.
	ErrInsufficientPrivilege = errors.New("insufficient privilege")

	// ErrStoreUnavailable marks a transient infrastructure failure.
	// Callers may retry with backoff.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrIntegrityViolation marks a duplicate token id at insert.
	// Must not happen under correct id generation; never swallowed.
	ErrIntegrityViolation = errors.New("token store integrity violation")

	// ErrInvalidToken is returned by the codec for any decode failure
	// (bad signature, malformed payload, expired). One error kind so no
	// detail leaks about which check failed.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenNotFound is returned by the store when a token id is unknown.
	ErrTokenNotFound = errors.New("refresh token not found")

	// ErrDuplicateTokenID is returned by the store on an id collision.
	ErrDuplicateTokenID = errors.New("duplicate token id")

	// ErrTokenReused is returned by Store.Rotate when the locked predecessor
	// turns out revoked or expired: the caller lost a rotation race or is
	// replaying a captured token.
	ErrTokenReused = errors.New("refresh token reused")

	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("invalid config")
)
