package cache

import (
	"context"
	"crypto/tls"
	"testing"
	"time"

	"github.com/BaSui01/ragcache/testutil"
	"github.com/BaSui01/ragcache/types"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// =============================================================================
// 🧪 RedisStore 测试
// =============================================================================

func setupRedisStore(t *testing.T, clock *testutil.FakeClock) (*miniredis.Miniredis, *RedisStore) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	store, err := NewRedisStore(RedisConfig{Addr: mr.Addr(), MaxRetries: -1}, zap.NewNop(),
		WithClock(clock.Now), WithKeyPrefix("test:"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return mr, store
}

func TestNewRedisStore_ConnectFailure(t *testing.T) {
	_, err := NewRedisStore(RedisConfig{Addr: "127.0.0.1:1", MaxRetries: -1}, zap.NewNop())
	assert.Error(t, err)
}

func TestRedisOptions_TLS(t *testing.T) {
	plain := redisOptions(RedisConfig{Addr: "localhost:6379", PoolSize: 4})
	assert.Nil(t, plain.TLSConfig)
	assert.Equal(t, 4, plain.PoolSize)

	secure := redisOptions(RedisConfig{Addr: "redis.internal:6380", TLSEnabled: true})
	require.NotNil(t, secure.TLSConfig)
	assert.Equal(t, uint16(tls.VersionTLS12), secure.TLSConfig.MinVersion)
}

func TestRedisStore_PutAndGet(t *testing.T) {
	clock := testutil.NewFakeClock(testEpoch)
	mr, store := setupRedisStore(t, clock)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "k", []byte("v"), time.Hour))
	assert.True(t, mr.Exists("test:k"))
	assert.Equal(t, time.Hour, mr.TTL("test:k"))

	entry, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), entry.Value)
	assert.True(t, entry.CreatedAt.Equal(testEpoch))
	assert.True(t, entry.ExpiresAt.Equal(testEpoch.Add(time.Hour)))
	assert.Equal(t, int64(1), entry.HitCount)

	entry, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, int64(2), entry.HitCount)
	assert.Equal(t, "2", mr.HGet("test:k", fieldHitCount))
}

func TestRedisStore_GetMissing(t *testing.T) {
	_, store := setupRedisStore(t, testutil.NewFakeClock(testEpoch))
	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisStore_ExpiryUsesClock(t *testing.T) {
	clock := testutil.NewFakeClock(testEpoch)
	_, store := setupRedisStore(t, clock)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "k", []byte("v"), time.Minute))

	clock.Advance(time.Minute - time.Nanosecond)
	_, err := store.Get(ctx, "k")
	require.NoError(t, err)

	clock.Advance(time.Nanosecond)
	_, err = store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisStore_NativeTTL(t *testing.T) {
	mr, store := setupRedisStore(t, testutil.NewFakeClock(testEpoch))
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "k", []byte("v"), time.Minute))
	mr.FastForward(2 * time.Minute)

	_, err := store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisStore_UpsertResetsEntry(t *testing.T) {
	clock := testutil.NewFakeClock(testEpoch)
	_, store := setupRedisStore(t, clock)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "k", []byte("old"), time.Minute))
	_, err := store.Get(ctx, "k")
	require.NoError(t, err)

	clock.Advance(10 * time.Second)
	require.NoError(t, store.Put(ctx, "k", []byte("new"), time.Minute))

	entry, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), entry.Value)
	assert.Equal(t, int64(1), entry.HitCount)
	assert.True(t, entry.CreatedAt.Equal(testEpoch.Add(10*time.Second)))
}

func TestRedisStore_CorruptEntryIsUnavailable(t *testing.T) {
	mr, store := setupRedisStore(t, testutil.NewFakeClock(testEpoch))
	ctx := context.Background()

	mr.HSet("test:partial", fieldValue, "x")
	_, err := store.Get(ctx, "partial")
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrCacheUnavailable))

	require.NoError(t, mr.Set("test:plain", "not-a-hash"))
	_, err = store.Get(ctx, "plain")
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrCacheUnavailable))
}

func TestRedisStore_ServerDown(t *testing.T) {
	mr, store := setupRedisStore(t, testutil.NewFakeClock(testEpoch))
	ctx := context.Background()
	mr.Close()

	_, err := store.Get(ctx, "k")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
	assert.True(t, types.IsErrorCode(err, types.ErrCacheUnavailable))

	err = store.Put(ctx, "k", []byte("v"), time.Minute)
	assert.True(t, types.IsErrorCode(err, types.ErrCacheUnavailable))
}

func TestRedisStore_Close(t *testing.T) {
	_, store := setupRedisStore(t, testutil.NewFakeClock(testEpoch))
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())

	_, err := store.Get(context.Background(), "k")
	assert.True(t, types.IsErrorCode(err, types.ErrCacheUnavailable))
	assert.Error(t, store.Ping(context.Background()))
}
