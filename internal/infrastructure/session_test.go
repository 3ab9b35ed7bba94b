package infrastructure

import (
	"context"
	"testing"
	"time"

	"backoffice/internal/entities"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type sessionStore interface {
	Save(ctx context.Context, profile entities.AuthUser) error
	Load(ctx context.Context, userID string) (*entities.AuthUser, error)
	Clear(ctx context.Context, userID string) error
	Subscribe(ctx context.Context) <-chan entities.SessionEvent
}

func newRedisStore(t *testing.T) (*RedisSessionStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisSessionStore(rdb, time.Hour, zap.NewNop()), mr
}

func receiveEvent(t *testing.T, ch <-chan entities.SessionEvent) entities.SessionEvent {
	t.Helper()
	select {
	case evt := <-ch:
		return evt
	case <-time.After(2 * time.Second):
		t.Fatal("no session event received")
	}
	return entities.SessionEvent{}
}

func TestSessionStores(t *testing.T) {
	redisStore, _ := newRedisStore(t)
	stores := map[string]sessionStore{
		"memory": NewMemorySessionStore(),
		"redis":  redisStore,
	}

	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			events := store.Subscribe(ctx)

			missing, err := store.Load(ctx, "u-1")
			require.NoError(t, err)
			require.Nil(t, missing)

			profile := entities.AuthUser{
				ID:          "u-1",
				Email:       "ana@acme.com",
				Company:     "acme",
				Permissions: entities.Permissions{Dashboard: true},
			}
			require.NoError(t, store.Save(ctx, profile))

			evt := receiveEvent(t, events)
			require.Equal(t, "u-1", evt.UserID)
			require.NotNil(t, evt.Profile)
			require.Equal(t, "acme", evt.Profile.Company)

			loaded, err := store.Load(ctx, "u-1")
			require.NoError(t, err)
			require.Equal(t, profile, *loaded)

			profile.Company = "acme-2"
			require.NoError(t, store.Save(ctx, profile))
			receiveEvent(t, events)
			loaded, err = store.Load(ctx, "u-1")
			require.NoError(t, err)
			require.Equal(t, "acme-2", loaded.Company)

			require.NoError(t, store.Clear(ctx, "u-1"))
			evt = receiveEvent(t, events)
			require.Equal(t, "u-1", evt.UserID)
			require.Nil(t, evt.Profile)

			loaded, err = store.Load(ctx, "u-1")
			require.NoError(t, err)
			require.Nil(t, loaded)

			require.Error(t, store.Save(ctx, entities.AuthUser{}))
		})
	}
}

func TestRedisSessionStore_TTLAndCorruptEntry(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, entities.AuthUser{ID: "u-2", Company: "acme"}))
	require.Equal(t, time.Hour, mr.TTL("session:user:u-2"))

	require.NoError(t, mr.Set("session:user:u-3", "{not json"))
	loaded, err := store.Load(ctx, "u-3")
	require.NoError(t, err)
	require.Nil(t, loaded)
	require.False(t, mr.Exists("session:user:u-3"))
}

func TestMemorySessionStore_SubscriptionClosesWithContext(t *testing.T) {
	store := NewMemorySessionStore()
	ctx, cancel := context.WithCancel(context.Background())
	events := store.Subscribe(ctx)
	cancel()

	select {
	case _, ok := <-events:
		require.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("subscription not closed")
	}
}
