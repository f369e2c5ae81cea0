package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/iota-crm/modules/crm/domain/entities/importrun"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestImportRunRepository_SaveAndLast(t *testing.T) {
	mr, client := newRedis(t)
	repo := NewImportRunRepository(client, time.Hour)
	ctx := context.Background()
	tenant := uuid.New()

	run := importrun.Run{
		ID:         uuid.New(),
		TenantID:   tenant,
		Entity:     "clients",
		Strategy:   "update",
		Total:      3,
		Created:    2,
		Invalid:    1,
		FinishedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	require.NoError(t, repo.Save(ctx, run))

	got, err := repo.Last(ctx, tenant, "clients")
	require.NoError(t, err)
	require.Equal(t, run, got)
	require.Equal(t, time.Hour, mr.TTL(repo.hashKey(tenant)))

	_, err = repo.Last(ctx, tenant, "suppliers")
	require.ErrorIs(t, err, importrun.ErrNotFound)

	_, err = repo.Last(ctx, uuid.New(), "clients")
	require.ErrorIs(t, err, importrun.ErrNotFound)
}

func TestImportRunRepository_LastOverwrites(t *testing.T) {
	_, client := newRedis(t)
	repo := NewImportRunRepository(client, 0)
	ctx := context.Background()
	tenant := uuid.New()

	require.NoError(t, repo.Save(ctx, importrun.Run{TenantID: tenant, Entity: "clients", Created: 1}))
	require.NoError(t, repo.Save(ctx, importrun.Run{TenantID: tenant, Entity: "clients", Created: 5}))

	got, err := repo.Last(ctx, tenant, "clients")
	require.NoError(t, err)
	require.Equal(t, 5, got.Created)
}

func TestImportRunRepository_RedisDown(t *testing.T) {
	mr, client := newRedis(t)
	repo := NewImportRunRepository(client, 0)
	mr.Close()

	err := repo.Save(context.Background(), importrun.Run{TenantID: uuid.New(), Entity: "clients"})
	require.Error(t, err)
}
