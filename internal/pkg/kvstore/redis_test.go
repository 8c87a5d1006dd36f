package kvstore

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	client, err := ConnectRedis(context.Background(), s.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client), s
}

func TestRedisStore_SetGetRemove(t *testing.T) {
	ctx := context.Background()
	store, server := newRedisStore(t)

	_, ok, err := store.Get(ctx, "offline_location_data")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, "offline_location_data", `[{"id":"r1"}]`))
	value, ok, err := store.Get(ctx, "offline_location_data")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"id":"r1"}]`, value)

	// Stored under the tracker prefix without a TTL
	raw, err := server.Get("tracker:offline_location_data")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"r1"}]`, raw)
	assert.Zero(t, server.TTL("tracker:offline_location_data"))

	require.NoError(t, store.Remove(ctx, "offline_location_data"))
	_, ok, err = store.Get(ctx, "offline_location_data")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, store.Remove(ctx, "offline_location_data"))
}

func TestRedisStore_InvalidKey(t *testing.T) {
	store, _ := newRedisStore(t)

	_, _, err := store.Get(context.Background(), "")
	assert.Error(t, err)
	assert.Error(t, store.Set(context.Background(), "../x", "v"))
}

func TestRedisStore_ServerDown(t *testing.T) {
	ctx := context.Background()
	store, server := newRedisStore(t)
	server.Close()

	_, _, err := store.Get(ctx, "active_tracking_session")
	assert.Error(t, err)
	assert.Error(t, store.Set(ctx, "active_tracking_session", "{}"))
}

func TestConnectRedis_Unreachable(t *testing.T) {
	s := miniredis.RunT(t)
	addr := s.Addr()
	s.Close()

	_, err := ConnectRedis(context.Background(), addr, "", 0)
	assert.Error(t, err)
}

var _ Store = (*RedisStore)(nil)
