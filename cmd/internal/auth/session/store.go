package session

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RefreshToken mirrors the balcao.refresh_tokens row.
//
// Records are never physically deleted, only marked revoked, which keeps an
// auditable rotation chain. Revoked is monotonic; ID, FamilyID and (once
// set) ReplacedBy are immutable.
type RefreshToken struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	FamilyID uuid.UUID

	ExpiresAt time.Time
	Revoked   bool

	// ReplacedBy points to the successor minted at rotation.
	// Informational only; not an ownership relation.
	ReplacedBy *uuid.UUID

	CreatedAt time.Time
}

// ExpiredAt reports whether the token is expired at instant now.
// The comparison is inclusive-exclusive: a token expiring exactly now is
// already expired.
func (t RefreshToken) ExpiredAt(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}

// Store abstracts persistence for refresh-token state. It is the only
// component of this core touching durable state.
//
// Every op is a single durable transaction. No in-process locking is used
// anywhere in this core: rotation safety comes from the transactional
// guarantees of CreateLogin and Rotate.
type Store interface {
	// Create inserts a new unrevoked record.
	// Returns ErrDuplicateTokenID if the id already exists.
	Create(ctx context.Context, rec RefreshToken) error

	// Get loads a record by id. Returns ErrTokenNotFound when missing.
	Get(ctx context.Context, id uuid.UUID) (RefreshToken, error)

	// Invalidate sets revoked=true and replaced_by for exactly one record.
	// No-op if already revoked (idempotent).
	Invalidate(ctx context.Context, id uuid.UUID, replacedBy uuid.UUID) error

	// RevokeFamily revokes every currently-unrevoked record in the family.
	// Idempotent; returns the count affected (0 is valid).
	RevokeFamily(ctx context.Context, familyID uuid.UUID) (int64, error)

	// RevokeFamilyByTokenID resolves the family of the given token and
	// revokes it. No-op for an unknown token id.
	RevokeFamilyByTokenID(ctx context.Context, id uuid.UUID) error

	// RevokeAllForUser revokes every record owned by the user.
	RevokeAllForUser(ctx context.Context, userID uuid.UUID) error

	// CreateLogin establishes a new chain root in one transaction: revokes
	// the superseded token's family (when a stale cookie was presented at
	// login), touches the user's last-login timestamp, and inserts rec.
	CreateLogin(ctx context.Context, now time.Time, rec RefreshToken, supersededTokenID *uuid.UUID) error

	// Rotate replaces oldID with next in one transaction: it locks the old
	// record, re-checks it is still unrevoked and unexpired, inserts next
	// and invalidates the old record with replaced_by = next.ID.
	//
	// Returns ErrTokenReused when the locked record is already revoked or
	// expired; under concurrent double-refresh exactly one caller commits
	// and the others land here. No observer can see the new token exist
	// while the old one still reads as valid.
	Rotate(ctx context.Context, now time.Time, oldID uuid.UUID, next RefreshToken) error
}
