//go:build container
// +build container

package outbox

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startPostgres(t *testing.T, ctx context.Context) *pgxpool.Pool {
	t.Helper()
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_PASSWORD": "test",
				"POSTGRES_DB":       "routinedash",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	endpoint, err := c.Endpoint(ctx, "")
	require.NoError(t, err)
	pool, err := pgxpool.New(ctx, fmt.Sprintf("postgres://postgres:test@%s/routinedash?sslmode=disable", endpoint))
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func TestRepositoryLifecycle(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	repo := NewRepository(startPostgres(t, ctx))
	require.NoError(t, repo.EnsureSchema(ctx))

	e, err := NewEntry("u1", "toggle", "t1", map[string]any{"is_completed": true})
	require.NoError(t, err)
	require.NoError(t, repo.Begin(ctx, e))

	pending, err := repo.GetUnpublished(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	require.NoError(t, repo.Settle(ctx, e.ID, StatusCommitted, ""))
	assert.ErrorIs(t, repo.Settle(ctx, e.ID, StatusRolledBack, "late"), ErrNotFound)

	pending, err = repo.GetUnpublished(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "t1", pending[0].TaskID)

	require.NoError(t, repo.MarkAsFailed(ctx, e.ID, 1))
	failed, err := repo.GetFailed(ctx, 10)
	require.NoError(t, err)
	require.Len(t, failed, 1)

	require.NoError(t, repo.ResetForReplay(ctx, e.ID))
	require.NoError(t, repo.MarkAsSent(ctx, e.ID))

	got, err := repo.GetByID(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, PublishSent, got.PublishStatus)

	history, err := repo.ListByUser(ctx, "u1", 5)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
