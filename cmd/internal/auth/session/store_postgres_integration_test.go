package session

import (
	"context"
	"errors"
	"net"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Integration tests are enabled when BALCAO_DATABASE_URL is set.
// In non-CI runs, unreachable Postgres skips these tests to keep local runs fast.

func TestPostgresStore_RotateAndReuse(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	pool := mustPGXPool(ctx, t)
	defer pool.Close()

	store := NewPostgresStore(pool)
	userID := mustCreateUser(ctx, t, pool)
	t.Cleanup(func() { cleanupUserData(ctx, t, pool, userID) })

	now := time.Now().UTC()
	rootID := uuid.New()
	root := RefreshToken{
		ID:        rootID,
		UserID:    userID,
		FamilyID:  rootID,
		ExpiresAt: now.Add(time.Hour),
		CreatedAt: now,
	}
	if err := store.Create(ctx, root); err != nil {
		t.Fatalf("Create: %v", err)
	}

	next := RefreshToken{
		ID:        uuid.New(),
		UserID:    userID,
		FamilyID:  rootID,
		ExpiresAt: now.Add(2 * time.Hour),
		CreatedAt: now,
	}
	if err := store.Rotate(ctx, now, rootID, next); err != nil {
		t.Fatalf("Rotate: %v", err)
	}

	old, err := store.Get(ctx, rootID)
	if err != nil {
		t.Fatalf("Get(root): %v", err)
	}
	if !old.Revoked {
		t.Fatalf("expected predecessor revoked after rotation")
	}
	if old.ReplacedBy == nil || *old.ReplacedBy != next.ID {
		t.Fatalf("expected replaced_by=%v, got %v", next.ID, old.ReplacedBy)
	}

	// Rotating the revoked predecessor again reports reuse.
	again := RefreshToken{
		ID:        uuid.New(),
		UserID:    userID,
		FamilyID:  rootID,
		ExpiresAt: now.Add(time.Hour),
		CreatedAt: now,
	}
	if err := store.Rotate(ctx, now, rootID, again); !errors.Is(err, ErrTokenReused) {
		t.Fatalf("expected ErrTokenReused, got %v", err)
	}
}

func TestPostgresStore_CreateDuplicateID(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	pool := mustPGXPool(ctx, t)
	defer pool.Close()

	store := NewPostgresStore(pool)
	userID := mustCreateUser(ctx, t, pool)
	t.Cleanup(func() { cleanupUserData(ctx, t, pool, userID) })

	now := time.Now().UTC()
	id := uuid.New()
	rec := RefreshToken{
		ID:        id,
		UserID:    userID,
		FamilyID:  id,
		ExpiresAt: now.Add(time.Hour),
		CreatedAt: now,
	}
	if err := store.Create(ctx, rec); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := store.Create(ctx, rec); !errors.Is(err, ErrDuplicateTokenID) {
		t.Fatalf("expected ErrDuplicateTokenID, got %v", err)
	}
}

func TestPostgresStore_RevokeFamily(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	pool := mustPGXPool(ctx, t)
	defer pool.Close()

	store := NewPostgresStore(pool)
	userID := mustCreateUser(ctx, t, pool)
	t.Cleanup(func() { cleanupUserData(ctx, t, pool, userID) })

	now := time.Now().UTC()
	famID := uuid.New()
	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		id := famID
		if i > 0 {
			id = uuid.New()
		}
		ids = append(ids, id)
		rec := RefreshToken{
			ID:        id,
			UserID:    userID,
			FamilyID:  famID,
			ExpiresAt: now.Add(time.Hour),
			CreatedAt: now,
		}
		if err := store.Create(ctx, rec); err != nil {
			t.Fatalf("Create(%d): %v", i, err)
		}
	}

	n, err := store.RevokeFamily(ctx, famID)
	if err != nil {
		t.Fatalf("RevokeFamily: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 revoked, got %d", n)
	}
	for _, id := range ids {
		rec, err := store.Get(ctx, id)
		if err != nil {
			t.Fatalf("Get(%v): %v", id, err)
		}
		if !rec.Revoked {
			t.Fatalf("token %v still live after family revocation", id)
		}
	}

	// A second pass touches nothing.
	n, err = store.RevokeFamily(ctx, famID)
	if err != nil {
		t.Fatalf("RevokeFamily(2): %v", err)
	}
	if n != 0 {
		t.Fatalf("expected 0 revoked on second pass, got %d", n)
	}
}

func TestPostgresStore_CreateLoginSupersedesAndTouches(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	pool := mustPGXPool(ctx, t)
	defer pool.Close()

	store := NewPostgresStore(pool)
	userID := mustCreateUser(ctx, t, pool)
	t.Cleanup(func() { cleanupUserData(ctx, t, pool, userID) })

	now := time.Now().UTC()
	firstID := uuid.New()
	first := RefreshToken{
		ID:        firstID,
		UserID:    userID,
		FamilyID:  firstID,
		ExpiresAt: now.Add(time.Hour),
		CreatedAt: now,
	}
	if err := store.CreateLogin(ctx, now, first, nil); err != nil {
		t.Fatalf("CreateLogin(first): %v", err)
	}

	secondID := uuid.New()
	second := RefreshToken{
		ID:        secondID,
		UserID:    userID,
		FamilyID:  secondID,
		ExpiresAt: now.Add(time.Hour),
		CreatedAt: now,
	}
	if err := store.CreateLogin(ctx, now, second, &firstID); err != nil {
		t.Fatalf("CreateLogin(second): %v", err)
	}

	old, err := store.Get(ctx, firstID)
	if err != nil {
		t.Fatalf("Get(first): %v", err)
	}
	if !old.Revoked {
		t.Fatalf("expected superseded chain revoked")
	}

	var lastLogin *time.Time
	err = pool.QueryRow(ctx, `SELECT last_login_at FROM balcao.users WHERE id = $1`, userID).Scan(&lastLogin)
	if err != nil {
		t.Fatalf("select last_login_at: %v", err)
	}
	if lastLogin == nil {
		t.Fatalf("expected last_login_at set by login transaction")
	}
}

func TestPostgresStore_GetNotFound(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	pool := mustPGXPool(ctx, t)
	defer pool.Close()

	store := NewPostgresStore(pool)
	if _, err := store.Get(ctx, uuid.New()); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound, got %v", err)
	}
}

func mustPGXPool(ctx context.Context, t *testing.T) *pgxpool.Pool {
	t.Helper()

	dbURL := strings.TrimSpace(os.Getenv("BALCAO_DATABASE_URL"))
	if dbURL == "" {
		t.Skip("BALCAO_DATABASE_URL is not set; skipping Postgres integration test")
	}

	cfg, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		t.Fatalf("pgxpool.ParseConfig: %v", err)
	}

	cfg.MaxConns = 4
	cfg.MinConns = 0
	cfg.MaxConnLifetime = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		t.Fatalf("pgxpool.NewWithConfig: %v", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		if shouldSkipIntegration(err) {
			t.Skipf("integration test skipped: Postgres unreachable (BALCAO_DATABASE_URL set): %v", err)
		}
		t.Fatalf("pool.Ping: %v", err)
	}

	return pool
}

func shouldSkipIntegration(err error) bool {
	if err == nil {
		return false
	}
	if os.Getenv("CI") != "" {
		return false
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "context deadline exceeded") ||
		strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "dial tcp") ||
		strings.Contains(msg, "no such host") {
		return true
	}
	return false
}

func mustCreateUser(ctx context.Context, t *testing.T, pool *pgxpool.Pool) uuid.UUID {
	t.Helper()

	id := uuid.New()
	email := id.String() + "@integration.test"
	_, err := pool.Exec(ctx, `
		INSERT INTO balcao.users (id, name, email, roles, tenant_id, created_at, updated_at)
		VALUES ($1, 'Integration User', $2, '{VENDEDOR}', $3, now(), now())
	`, id, email, uuid.New())
	if err != nil {
		t.Fatalf("insert user: %v", err)
	}
	return id
}

func cleanupUserData(ctx context.Context, t *testing.T, pool *pgxpool.Pool, userID uuid.UUID) {
	t.Helper()

	_, _ = pool.Exec(ctx, `DELETE FROM balcao.refresh_tokens WHERE user_id = $1`, userID)
	_, _ = pool.Exec(ctx, `DELETE FROM balcao.users WHERE id = $1`, userID)
}
