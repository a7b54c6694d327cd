package session

import (
	"context"
	"sync"
	"time"

	"balcao/cmd/identity"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store used in tests and db-less dev mode.
//
// A single mutex stands in for the database's transaction boundary: the
// composite ops (CreateLogin, Rotate) run entirely under the lock, which
// preserves the same linearization the Postgres store gets from its
// transactions.
type MemoryStore struct {
	mu     sync.Mutex
	tokens map[uuid.UUID]RefreshToken

	// identities, when set, receives the last-login touch that the SQL
	// store performs inside the login transaction.
	identities *identity.MemoryStore
}

// NewMemoryStore creates an empty in-memory token store.
func NewMemoryStore(identities *identity.MemoryStore) *MemoryStore {
	return &MemoryStore{
		tokens:     make(map[uuid.UUID]RefreshToken),
		identities: identities,
	}
}

// Create inserts a new unrevoked record.
func (s *MemoryStore) Create(_ context.Context, rec RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createLocked(rec)
}

// Get loads a record by id.
func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.tokens[id]
	if !ok {
		return RefreshToken{}, ErrTokenNotFound
	}
	return rec, nil
}

// Invalidate revokes one record and links its replacement (idempotent).
func (s *MemoryStore) Invalidate(_ context.Context, id uuid.UUID, replacedBy uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidateLocked(id, replacedBy)
	return nil
}

// RevokeFamily revokes every unrevoked record in the family.
func (s *MemoryStore) RevokeFamily(_ context.Context, familyID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revokeFamilyLocked(familyID), nil
}

// RevokeFamilyByTokenID resolves the family of the token and revokes it.
func (s *MemoryStore) RevokeFamilyByTokenID(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.tokens[id]
	if !ok {
		return nil
	}
	s.revokeFamilyLocked(rec.FamilyID)
	return nil
}

// RevokeAllForUser revokes every record owned by the user.
func (s *MemoryStore) RevokeAllForUser(_ context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, rec := range s.tokens {
		if rec.UserID == userID && !rec.Revoked {
			rec.Revoked = true
			s.tokens[id] = rec
		}
	}
	return nil
}

// CreateLogin establishes a new chain root atomically.
func (s *MemoryStore) CreateLogin(ctx context.Context, now time.Time, rec RefreshToken, supersededTokenID *uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if supersededTokenID != nil {
		if old, ok := s.tokens[*supersededTokenID]; ok {
			s.revokeFamilyLocked(old.FamilyID)
		}
	}

	if s.identities != nil {
		_ = s.identities.TouchLastLogin(ctx, rec.UserID, now)
	}

	return s.createLocked(rec)
}

// Rotate replaces oldID with next atomically.
func (s *MemoryStore) Rotate(_ context.Context, now time.Time, oldID uuid.UUID, next RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.tokens[oldID]
	if !ok {
		return ErrTokenNotFound
	}
	if old.Revoked || old.ExpiredAt(now) {
		return ErrTokenReused
	}

	if err := s.createLocked(next); err != nil {
		return err
	}
	s.invalidateLocked(oldID, next.ID)
	return nil
}

func (s *MemoryStore) createLocked(rec RefreshToken) error {
	if _, exists := s.tokens[rec.ID]; exists {
		return ErrDuplicateTokenID
	}
	s.tokens[rec.ID] = rec
	return nil
}

func (s *MemoryStore) invalidateLocked(id uuid.UUID, replacedBy uuid.UUID) {
	rec, ok := s.tokens[id]
	if !ok || rec.Revoked {
		return
	}
	rec.Revoked = true
	rb := replacedBy
	rec.ReplacedBy = &rb
	s.tokens[id] = rec
}

func (s *MemoryStore) revokeFamilyLocked(familyID uuid.UUID) int64 {
	var n int64
	for id, rec := range s.tokens {
		if rec.FamilyID == familyID && !rec.Revoked {
			rec.Revoked = true
			s.tokens[id] = rec
			n++
		}
	}
	return n
}
