package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/BaSui01/ragcache/config"
)

func TestServe_ShutsDownOnCancel(t *testing.T) {
	path := writeTestConfig(t, "")
	cfg, loader, err := loadConfig(path)
	require.NoError(t, err)
	// 随机端口
	cfg.Server.HTTPPort = 0

	up := newTestUpstream()
	ready := make(chan struct{})
	deps := func(c *config.Config, l *zap.Logger) (*Deps, error) {
		close(ready)
		return up.deps(), nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- serve(ctx, cfg, loader, zap.NewAtomicLevel(), deps, zaptest.NewLogger(t))
	}()

	<-ready
	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}

func TestServe_DepsError(t *testing.T) {
	cfg := testConfig()
	loader := config.NewLoader()
	failing := func(*config.Config, *zap.Logger) (*Deps, error) { return nil, ErrOffline }

	err := serve(context.Background(), cfg, loader, zap.NewAtomicLevel(), failing, zap.NewNop())
	assert.True(t, errors.Is(err, ErrOffline))
}

func TestServe_BuildError(t *testing.T) {
	cfg := testConfig()
	cfg.Cache.Backend = "floppy"

	err := serve(context.Background(), cfg, config.NewLoader(), zap.NewAtomicLevel(), newTestUpstream().depsFunc(), zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown cache backend")
}
