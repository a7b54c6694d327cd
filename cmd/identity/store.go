package identity

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// User is Balcão's canonical security principal.
//
// PasswordHash is optional: some principals authenticate only through
// alternate mechanisms (e.g. a quick-access PIN at the point of sale).
type User struct {
	ID       uuid.UUID
	Name     string
	Nickname *string
	Email    *string
	CPF      *string

	Roles    []Role
	TenantID uuid.UUID

	PasswordHash *string
	Notes        *string

	CreatedAt   time.Time
	UpdatedAt   time.Time
	LastLoginAt *time.Time
	CreatedBy   *uuid.UUID
}

// PrivilegeLevel is the highest rank among the user's roles.
func (u User) PrivilegeLevel() int {
	return MaxPrivilege(u.Roles)
}

// CreateUserInput describes a staff registration request.
// At least one of Email or CPF must be provided as a login identifier.
type CreateUserInput struct {
	Name     string
	Nickname *string
	Email    *string
	CPF      *string

	Roles    []Role
	TenantID uuid.UUID

	// PasswordHash is pre-hashed by the caller; nil for principals that
	// only use alternate auth.
	PasswordHash *string
	Notes        *string
	CreatedBy    *uuid.UUID

	Now time.Time
}

// Store is the identity persistence boundary.
type Store interface {
	// FindByIdentifier resolves a user by e-mail or CPF.
	// Returns ErrNotFound when no user matches.
	FindByIdentifier(ctx context.Context, identifier string) (User, error)

	// FindByID loads a user by id. Returns ErrNotFound when missing.
	FindByID(ctx context.Context, id uuid.UUID) (User, error)

	// TouchLastLogin updates the user's last-login timestamp.
	TouchLastLogin(ctx context.Context, id uuid.UUID, now time.Time) error

	// Create inserts a new user. Returns ConflictError on duplicate
	// email/CPF.
	Create(ctx context.Context, in CreateUserInput) (User, error)
}
