// Package testutil provides a migrated Postgres pool and fixtures for repository tests.
package testutil

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pollsapp/backend/pkg/database"
)

// NewPool connects to TEST_DATABASE_URL (or DATABASE_URL) and applies the
// migrations. The test is skipped when neither is set. Tests share the
// database, so fixtures use fresh ids and assertions stay scoped to them.
func NewPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		dsn = os.Getenv("DATABASE_URL")
	}
	if dsn == "" {
		t.Skip("DATABASE_URL not set; skipping Postgres test")
	}
	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, dsn, 4, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, database.Migrate(ctx, pool, zap.NewNop()))
	return pool
}

// CreateUser inserts a user row and returns its id.
func CreateUser(t *testing.T, pool *pgxpool.Pool, permissions ...string) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	id := uuid.New()
	_, err := pool.Exec(ctx, `INSERT INTO users (id, email) VALUES ($1, $2)`, id, id.String()+"@test.local")
	require.NoError(t, err)
	for _, p := range permissions {
		_, err := pool.Exec(ctx, `INSERT INTO user_permissions (user_id, permission) VALUES ($1, $2)`, id, p)
		require.NoError(t, err)
	}
	return id
}

// CreatePoll inserts a poll owned by owner with one text question per content
// string and returns the poll id and question ids in order.
func CreatePoll(t *testing.T, pool *pgxpool.Pool, owner uuid.UUID, archived bool, contents ...string) (uuid.UUID, []uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	var pollID uuid.UUID
	err := pool.QueryRow(ctx,
		`INSERT INTO polls (title, owner_id, archived, archived_at)
		 VALUES ('fixture', $1, $2, CASE WHEN $2 THEN NOW() END) RETURNING id`,
		owner, archived).Scan(&pollID)
	require.NoError(t, err)
	ids := make([]uuid.UUID, 0, len(contents))
	for _, c := range contents {
		var qid uuid.UUID
		err := pool.QueryRow(ctx,
			`INSERT INTO questions (poll_id, content) VALUES ($1, $2) RETURNING id`, pollID, c).Scan(&qid)
		require.NoError(t, err)
		ids = append(ids, qid)
	}
	return pollID, ids
}

// Count runs a COUNT(*) query.
func Count(t *testing.T, pool *pgxpool.Pool, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, pool.QueryRow(context.Background(), query, args...).Scan(&n))
	return n
}
