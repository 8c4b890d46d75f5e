package main

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/BaSui01/ragcache/config"
	"github.com/BaSui01/ragcache/rag"
)

func askTwice(t *testing.T, app *App, query string) (first, second *rag.Outcome) {
	t.Helper()
	ctx := context.Background()

	first, err := app.Orchestrator.Handle(ctx, query, "novice")
	require.NoError(t, err)
	second, err = app.Orchestrator.Handle(ctx, query, "novice")
	require.NoError(t, err)
	return first, second
}

func TestProductionDeps_Offline(t *testing.T) {
	cfg := testConfig()

	_, err := productionDeps(cfg, zap.NewNop())
	assert.ErrorIs(t, err, ErrOffline)

	cfg.Embedding.APIKey = "sk-emb"
	_, err = productionDeps(cfg, zap.NewNop())
	assert.ErrorIs(t, err, ErrOffline, "LLM key is still missing")
}

func TestProductionDeps_WithKeys(t *testing.T) {
	cfg := testConfig()
	cfg.Embedding.APIKey = "sk-emb"
	cfg.LLM.APIKey = "sk-llm"

	deps, err := productionDeps(cfg, zap.NewNop())
	require.NoError(t, err)
	assert.NotNil(t, deps.Chat)
	assert.NotNil(t, deps.Embeddings("text-embedding-3-large"))
}

func TestBuildApp_MemoryBackend(t *testing.T) {
	up := newTestUpstream()
	app, err := buildApp(context.Background(), testConfig(), up.deps(), zaptest.NewLogger(t))
	require.NoError(t, err)
	defer app.Close()

	warmup := up.gen.CallCount()
	first, second := askTwice(t, app, "light roast coffee")

	assert.Equal(t, rag.IntentProductRAG, first.Intent)
	assert.Equal(t, testAnswer, first.Answer)
	assert.False(t, first.ResponseCacheHit)
	assert.Greater(t, first.ItemsRetrieved, 0)
	assert.False(t, first.Degraded)
	// 路由与检索默认共用 embedding.model：首个请求只生成一次查询向量，检索阶段复用
	assert.False(t, first.IntentEmbeddingHit)
	assert.True(t, first.RetrievalEmbeddingHit)
	assert.True(t, first.EmbeddingCacheHit)
	assert.Equal(t, warmup+1, up.gen.CallCount())

	assert.True(t, second.ResponseCacheHit)
	assert.True(t, second.EmbeddingCacheHit)
	assert.Equal(t, first.Answer, second.Answer)

	// 第二次请求没有任何上游调用
	assert.Equal(t, 1, up.chat.CallCount())
	assert.Equal(t, warmup+1, up.gen.CallCount())
}

func TestBuildApp_SeparateRetrievalModelIsFullMiss(t *testing.T) {
	cfg := testConfig()
	cfg.Retrieval.EmbeddingModel = "text-embedding-3-large"

	up := newTestUpstream()
	app, err := buildApp(context.Background(), cfg, up.deps(), zaptest.NewLogger(t))
	require.NoError(t, err)
	defer app.Close()

	warmup := up.gen.CallCount()
	first, second := askTwice(t, app, "light roast coffee")

	assert.False(t, first.IntentEmbeddingHit)
	assert.False(t, first.RetrievalEmbeddingHit)
	assert.False(t, first.EmbeddingCacheHit)
	assert.False(t, first.ResponseCacheHit)
	assert.Equal(t, warmup+2, up.gen.CallCount())

	assert.True(t, second.ResponseCacheHit)
	assert.True(t, second.EmbeddingCacheHit)
	assert.Equal(t, warmup+2, up.gen.CallCount())
}

func TestBuildApp_CacheDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Cache.Backend = config.CacheBackendNone

	up := newTestUpstream()
	app, err := buildApp(context.Background(), cfg, up.deps(), zaptest.NewLogger(t))
	require.NoError(t, err)
	defer app.Close()

	first, second := askTwice(t, app, "light roast coffee")
	assert.False(t, first.ResponseCacheHit)
	assert.False(t, second.ResponseCacheHit)
	assert.False(t, second.EmbeddingCacheHit)
	assert.Equal(t, first.Answer, second.Answer)
	assert.Equal(t, 2, up.chat.CallCount())
}

func TestBuildApp_SQLBackend(t *testing.T) {
	cfg := testConfig()
	cfg.Cache.Backend = config.CacheBackendSQL
	cfg.Database.Driver = "sqlite"
	cfg.Database.Name = filepath.Join(t.TempDir(), "cache.db")

	up := newTestUpstream()
	app, err := buildApp(context.Background(), cfg, up.deps(), zaptest.NewLogger(t))
	require.NoError(t, err)
	defer app.Close()

	_, second := askTwice(t, app, "what grind size for a french press")
	assert.True(t, second.ResponseCacheHit)
	assert.Equal(t, 1, up.chat.CallCount())
}

func TestBuildApp_RedisBackend(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := testConfig()
	cfg.Cache.Backend = config.CacheBackendRedis
	cfg.Redis.Addr = mr.Addr()
	cfg.Redis.HealthCheckInterval = 0

	up := newTestUpstream()
	app, err := buildApp(context.Background(), cfg, up.deps(), zaptest.NewLogger(t))
	require.NoError(t, err)

	_, second := askTwice(t, app, "light roast coffee")
	assert.True(t, second.ResponseCacheHit)

	keys := mr.Keys()
	require.NotEmpty(t, keys)
	for _, k := range keys {
		assert.Contains(t, k, cfg.Cache.KeyPrefix)
	}
	require.NoError(t, app.Close())
}

func TestBuildApp_TieredBackendSurvivesRestart(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := testConfig()
	cfg.Cache.Backend = config.CacheBackendTiered
	cfg.Redis.Addr = mr.Addr()
	cfg.Redis.HealthCheckInterval = 0

	up := newTestUpstream()
	app, err := buildApp(context.Background(), cfg, up.deps(), zaptest.NewLogger(t))
	require.NoError(t, err)
	_, err = app.Orchestrator.Handle(context.Background(), "light roast coffee", "novice")
	require.NoError(t, err)
	require.NoError(t, app.Close())

	// 新进程的 L1 为空，仍能从 Redis 命中
	restarted, err := buildApp(context.Background(), cfg, up.deps(), zaptest.NewLogger(t))
	require.NoError(t, err)
	defer restarted.Close()

	out, err := restarted.Orchestrator.Handle(context.Background(), "light roast coffee", "novice")
	require.NoError(t, err)
	assert.True(t, out.ResponseCacheHit)
	assert.Equal(t, 1, up.chat.CallCount())
}

func TestBuildApp_RedisDownIsSoft(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := testConfig()
	cfg.Cache.Backend = config.CacheBackendRedis
	cfg.Redis.Addr = mr.Addr()
	cfg.Redis.HealthCheckInterval = 0
	cfg.Redis.MaxRetries = 0

	up := newTestUpstream()
	app, err := buildApp(context.Background(), cfg, up.deps(), zaptest.NewLogger(t))
	require.NoError(t, err)
	defer app.Close()

	mr.Close()

	first, second := askTwice(t, app, "light roast coffee")
	assert.Equal(t, testAnswer, first.Answer)
	assert.False(t, second.ResponseCacheHit)
	assert.Equal(t, 2, up.chat.CallCount())
}

func TestBuildApp_CustomCatalogAndExemplars(t *testing.T) {
	cfg := testConfig()
	cfg.Retrieval.CatalogPath = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := buildApp(context.Background(), cfg, newTestUpstream().deps(), zap.NewNop())
	require.Error(t, err)

	cfg = testConfig()
	cfg.Router.ExemplarsPath = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = buildApp(context.Background(), cfg, newTestUpstream().deps(), zap.NewNop())
	require.Error(t, err)
}

func TestBuildApp_NoRetrievalIntents(t *testing.T) {
	cfg := testConfig()
	cfg.Retrieval.Intents = nil

	up := newTestUpstream()
	app, err := buildApp(context.Background(), cfg, up.deps(), zap.NewNop())
	require.NoError(t, err)
	defer app.Close()

	// 没有检索意图时不嵌入目录
	assert.Equal(t, len(rag.DefaultExemplarSpecs()), up.gen.CallCount())

	out, err := app.Orchestrator.Handle(context.Background(), "light roast coffee", "novice")
	require.NoError(t, err)
	assert.Zero(t, out.ItemsRetrieved)
}

func TestBuildApp_EmbeddingOutageAtStartup(t *testing.T) {
	up := newTestUpstream()
	up.gen.WithError(errors.New("embedding service down"))

	_, err := buildApp(context.Background(), testConfig(), up.deps(), zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embed intent exemplars")
}

func TestBuildApp_UnknownBackend(t *testing.T) {
	cfg := testConfig()
	cfg.Cache.Backend = "floppy"

	_, err := buildApp(context.Background(), cfg, newTestUpstream().deps(), zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown cache backend")
}

func TestRedisConfigFrom(t *testing.T) {
	in := config.DefaultRedisConfig()
	in.Addr = "redis:6380"
	in.TLSEnabled = true

	out := redisConfigFrom(in)
	assert.Equal(t, "redis:6380", out.Addr)
	assert.True(t, out.TLSEnabled)
	assert.Equal(t, in.PoolSize, out.PoolSize)
	assert.Equal(t, in.HealthCheckInterval, out.HealthCheckInterval)
}
