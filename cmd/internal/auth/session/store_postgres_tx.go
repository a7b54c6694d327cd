package session

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, so the single-op
// statements below serve standalone ops and the composite transactions.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func createTx(ctx context.Context, q querier, rec RefreshToken) error {
	_, err := q.Exec(ctx, `
		INSERT INTO balcao.refresh_tokens (
			id, user_id, family_id, expires_at, revoked, replaced_by, created_at
		) VALUES (
			$1, $2, $3, $4, FALSE, NULL, $5
		)
	`, rec.ID, rec.UserID, rec.FamilyID, rec.ExpiresAt, rec.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateTokenID
		}
		return err
	}
	return nil
}

func getForUpdateTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (RefreshToken, error) {
	row := tx.QueryRow(ctx, `
		SELECT id, user_id, family_id, expires_at, revoked, replaced_by, created_at
		FROM balcao.refresh_tokens
		WHERE id = $1
		FOR UPDATE
	`, id)
	return scanToken(row)
}

func invalidateTx(ctx context.Context, q querier, id uuid.UUID, replacedBy uuid.UUID) error {
	// revoked is monotonic and replaced_by immutable once set.
	_, err := q.Exec(ctx, `
		UPDATE balcao.refresh_tokens
		SET revoked = TRUE,
		    replaced_by = $2
		WHERE id = $1
		  AND revoked = FALSE
	`, id, replacedBy)
	return err
}

func revokeFamilyByTokenTx(ctx context.Context, q querier, id uuid.UUID) error {
	_, err := q.Exec(ctx, `
		UPDATE balcao.refresh_tokens
		SET revoked = TRUE
		WHERE family_id = (
			SELECT family_id
			FROM balcao.refresh_tokens
			WHERE id = $1
		)
		  AND revoked = FALSE
	`, id)
	return err
}
