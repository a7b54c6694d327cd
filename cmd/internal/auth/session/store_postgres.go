package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store using PostgreSQL (balcao.refresh_tokens).
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Postgres-backed token store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Create inserts a new unrevoked record.
func (s *PostgresStore) Create(ctx context.Context, rec RefreshToken) error {
	return createTx(ctx, s.pool, rec)
}

// Get loads a record by id.
func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (RefreshToken, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, user_id, family_id, expires_at, revoked, replaced_by, created_at
		FROM balcao.refresh_tokens
		WHERE id = $1
	`, id)
	return scanToken(row)
}

// Invalidate revokes one record and links its replacement (idempotent).
func (s *PostgresStore) Invalidate(ctx context.Context, id uuid.UUID, replacedBy uuid.UUID) error {
	return invalidateTx(ctx, s.pool, id, replacedBy)
}

// RevokeFamily revokes every unrevoked record in the family.
func (s *PostgresStore) RevokeFamily(ctx context.Context, familyID uuid.UUID) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE balcao.refresh_tokens
		SET revoked = TRUE
		WHERE family_id = $1
		  AND revoked = FALSE
	`, familyID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// RevokeFamilyByTokenID resolves the family of the token and revokes it.
func (s *PostgresStore) RevokeFamilyByTokenID(ctx context.Context, id uuid.UUID) error {
	return revokeFamilyByTokenTx(ctx, s.pool, id)
}

// RevokeAllForUser revokes every record owned by the user.
func (s *PostgresStore) RevokeAllForUser(ctx context.Context, userID uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE balcao.refresh_tokens
		SET revoked = TRUE
		WHERE user_id = $1
		  AND revoked = FALSE
	`, userID)
	return err
}

// CreateLogin establishes a new chain root in one transaction.
func (s *PostgresStore) CreateLogin(ctx context.Context, now time.Time, rec RefreshToken, supersededTokenID *uuid.UUID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if supersededTokenID != nil {
		if err := revokeFamilyByTokenTx(ctx, tx, *supersededTokenID); err != nil {
			return err
		}
	}

	// Last-login touch rides the same transaction as record creation so the
	// two can never disagree.
	if _, err := tx.Exec(ctx, `
		UPDATE balcao.users
		SET last_login_at = $2
		WHERE id = $1
	`, rec.UserID, now); err != nil {
		return err
	}

	if err := createTx(ctx, tx, rec); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// Rotate replaces oldID with next in one transaction.
func (s *PostgresStore) Rotate(ctx context.Context, now time.Time, oldID uuid.UUID, next RefreshToken) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Lock the predecessor so concurrent rotations serialize here.
	old, err := getForUpdateTx(ctx, tx, oldID)
	if err != nil {
		return err
	}

	if old.Revoked || old.ExpiredAt(now) {
		return ErrTokenReused
	}

	if err := createTx(ctx, tx, next); err != nil {
		return err
	}
	if err := invalidateTx(ctx, tx, oldID, next.ID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func scanToken(row pgx.Row) (RefreshToken, error) {
	var rec RefreshToken
	err := row.Scan(
		&rec.ID,
		&rec.UserID,
		&rec.FamilyID,
		&rec.ExpiresAt,
		&rec.Revoked,
		&rec.ReplacedBy,
		&rec.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return RefreshToken{}, ErrTokenNotFound
	}
	if err != nil {
		return RefreshToken{}, err
	}
	return rec, nil
}
