package identity

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store used in tests and db-less dev mode.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[uuid.UUID]User
}

// NewMemoryStore creates an empty in-memory identity store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[uuid.UUID]User)}
}

// FindByIdentifier resolves a user by e-mail or CPF.
func (s *MemoryStore) FindByIdentifier(_ context.Context, identifier string) (User, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return User{}, ErrNotFound
	}

	byCPF := LooksLikeCPF(identifier)
	email := NormalizeEmail(identifier)
	cpf := NormalizeCPF(identifier)

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if byCPF {
			if u.CPF != nil && *u.CPF == cpf {
				return cloneUser(u), nil
			}
			continue
		}
		if u.Email != nil && *u.Email == email {
			return cloneUser(u), nil
		}
	}
	return User{}, ErrNotFound
}

// FindByID loads a user by id.
func (s *MemoryStore) FindByID(_ context.Context, id uuid.UUID) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return cloneUser(u), nil
}

// TouchLastLogin updates last_login_at for a user.
func (s *MemoryStore) TouchLastLogin(_ context.Context, id uuid.UUID, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	t := now
	u.LastLoginAt = &t
	s.users[id] = u
	return nil
}

// Create inserts a new user.
func (s *MemoryStore) Create(_ context.Context, in CreateUserInput) (User, error) {
	const op = "identity.Create"

	if strings.TrimSpace(in.Name) == "" || (in.Email == nil && in.CPF == nil) || len(in.Roles) == 0 {
		return User{}, ErrInvalidInput
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	u := User{
		ID:           uuid.New(),
		Name:         strings.TrimSpace(in.Name),
		Nickname:     in.Nickname,
		Roles:        append([]Role(nil), in.Roles...),
		TenantID:     in.TenantID,
		PasswordHash: in.PasswordHash,
		Notes:        in.Notes,
		CreatedAt:    now,
		UpdatedAt:    now,
		CreatedBy:    in.CreatedBy,
	}
	if in.Email != nil {
		e := NormalizeEmail(*in.Email)
		u.Email = &e
	}
	if in.CPF != nil {
		c := NormalizeCPF(*in.CPF)
		if len(c) != 11 {
			return User{}, ErrInvalidInput
		}
		u.CPF = &c
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if u.Email != nil && existing.Email != nil && *existing.Email == *u.Email {
			return User{}, ConflictError{Op: op, Field: "email"}
		}
		if u.CPF != nil && existing.CPF != nil && *existing.CPF == *u.CPF {
			return User{}, ConflictError{Op: op, Field: "cpf"}
		}
	}

	s.users[u.ID] = u
	return cloneUser(u), nil
}

// Delete removes a user; used by tests to simulate a vanished principal.
func (s *MemoryStore) Delete(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, id)
}

func cloneUser(u User) User {
	u.Roles = append([]Role(nil), u.Roles...)
	return u
}
