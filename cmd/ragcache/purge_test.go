package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/ragcache/config"
)

func sqlConfig(t *testing.T) *config.Config {
	cfg := testConfig()
	cfg.Cache.Backend = config.CacheBackendSQL
	cfg.Database.Driver = "sqlite"
	cfg.Database.Name = filepath.Join(t.TempDir(), "cache.db")
	return cfg
}

func TestPurge_RemovesExpiredRows(t *testing.T) {
	cfg := sqlConfig(t)
	ctx := context.Background()

	seed := &App{logger: zap.NewNop()}
	store, err := seed.openSQL(ctx, cfg)
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, "stale", []byte(`"old"`), time.Millisecond))
	require.NoError(t, store.Put(ctx, "fresh", []byte(`"new"`), time.Hour))
	require.NoError(t, seed.Close())

	time.Sleep(10 * time.Millisecond)

	var out bytes.Buffer
	require.NoError(t, purge(ctx, cfg, &out, zap.NewNop()))
	assert.Equal(t, "purged 1 expired entries (1 remaining)\n", out.String())

	out.Reset()
	require.NoError(t, purge(ctx, cfg, &out, zap.NewNop()))
	assert.Equal(t, "purged 0 expired entries (1 remaining)\n", out.String())
}

func TestPurge_RequiresSQLBackend(t *testing.T) {
	var out bytes.Buffer
	err := purge(context.Background(), testConfig(), &out, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sql cache backend")
}

func TestRunPurge_FromConfigFile(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cache.db")
	path := writeTestConfig(t, "cache:\n  backend: sql\ndatabase:\n  driver: sqlite\n  name: "+dbPath+"\n")

	var out bytes.Buffer
	require.NoError(t, runPurge([]string{"--config", path}, &out))
	assert.Contains(t, out.String(), "purged 0 expired entries")
}
