package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements identity persistence over PostgreSQL.
//
// The pgx pool is owned by the caller; this store must not close it.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("identity: nil pool")
	}
	return &PostgresStore{pool: pool}, nil
}

const userColumns = `
	id, name, nickname, email, cpf, roles, tenant_id,
	password_hash, notes, created_at, updated_at, last_login_at, created_by
`

// FindByIdentifier resolves a user by e-mail or CPF.
func (s *PostgresStore) FindByIdentifier(ctx context.Context, identifier string) (User, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return User{}, ErrNotFound
	}

	var row pgx.Row
	if LooksLikeCPF(identifier) {
		row = s.pool.QueryRow(ctx, `
			SELECT `+userColumns+`
			FROM balcao.users
			WHERE cpf = $1
		`, NormalizeCPF(identifier))
	} else {
		row = s.pool.QueryRow(ctx, `
			SELECT `+userColumns+`
			FROM balcao.users
			WHERE email = $1
		`, NormalizeEmail(identifier))
	}

	return scanUser(row)
}

// FindByID loads a user by id.
func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (User, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM balcao.users
		WHERE id = $1
	`, id)
	return scanUser(row)
}

// TouchLastLogin updates last_login_at for a user.
func (s *PostgresStore) TouchLastLogin(ctx context.Context, id uuid.UUID, now time.Time) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE balcao.users
		SET last_login_at = $2
		WHERE id = $1
	`, id, now)
	return err
}

// Create inserts a new user.
func (s *PostgresStore) Create(ctx context.Context, in CreateUserInput) (User, error) {
	const op = "identity.Create"

	if strings.TrimSpace(in.Name) == "" {
		return User{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if in.Email == nil && in.CPF == nil {
		return User{}, fmt.Errorf("%w: email or cpf is required", ErrInvalidInput)
	}
	if len(in.Roles) == 0 {
		return User{}, fmt.Errorf("%w: at least one role required", ErrInvalidInput)
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	var email *string
	if in.Email != nil {
		e := NormalizeEmail(*in.Email)
		email = &e
	}
	var cpf *string
	if in.CPF != nil {
		c := NormalizeCPF(*in.CPF)
		if len(c) != 11 {
			return User{}, fmt.Errorf("%w: malformed cpf", ErrInvalidInput)
		}
		cpf = &c
	}

	id := uuid.New()

	_, err := s.pool.Exec(ctx, `
		INSERT INTO balcao.users (
			id, name, nickname, email, cpf, roles, tenant_id,
			password_hash, notes, created_at, updated_at, created_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10, $11)
	`, id, strings.TrimSpace(in.Name), in.Nickname, email, cpf,
		rolesToStrings(in.Roles), in.TenantID, in.PasswordHash, in.Notes,
		now, in.CreatedBy)
	if err != nil {
		if field, ok := classifyUniqueViolation(err); ok {
			return User{}, ConflictError{Op: op, Field: field}
		}
		return User{}, err
	}

	return s.FindByID(ctx, id)
}

func scanUser(row pgx.Row) (User, error) {
	var u User
	var roles []string

	err := row.Scan(
		&u.ID, &u.Name, &u.Nickname, &u.Email, &u.CPF, &roles, &u.TenantID,
		&u.PasswordHash, &u.Notes, &u.CreatedAt, &u.UpdatedAt, &u.LastLoginAt, &u.CreatedBy,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}

	u.Roles = make([]Role, 0, len(roles))
	for _, r := range roles {
		u.Roles = append(u.Roles, Role(r))
	}
	return u, nil
}

func rolesToStrings(roles []Role) []string {
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		out = append(out, string(r))
	}
	return out
}

func classifyUniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return "", false
	}
	switch {
	case strings.Contains(pgErr.ConstraintName, "email"):
		return "email", true
	case strings.Contains(pgErr.ConstraintName, "cpf"):
		return "cpf", true
	default:
		return pgErr.ConstraintName, true
	}
}
