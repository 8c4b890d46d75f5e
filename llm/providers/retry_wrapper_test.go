package providers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/BaSui01/ragcache/llm"
	"github.com/BaSui01/ragcache/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// flakyProvider 前 failures 次调用失败
type flakyProvider struct {
	failures int
	err      error
	calls    int
}

func (p *flakyProvider) Name() string { return "flaky" }

func (p *flakyProvider) HealthCheck(context.Context) (*llm.HealthStatus, error) {
	return &llm.HealthStatus{Healthy: true}, nil
}

func (p *flakyProvider) Completion(_ context.Context, _ *llm.ChatRequest) (*llm.ChatResponse, error) {
	p.calls++
	if p.calls <= p.failures {
		return nil, p.err
	}
	return &llm.ChatResponse{Choices: []llm.ChatChoice{{Message: llm.Message{Content: "ok"}}}}, nil
}

func fastRetryConfig() RetryConfig {
	cfg := DefaultRetryConfig()
	cfg.InitialDelay = time.Millisecond
	cfg.MaxDelay = 5 * time.Millisecond
	return cfg
}

func TestRetryableProvider_RecoversFromTransientErrors(t *testing.T) {
	inner := &flakyProvider{failures: 2, err: MapHTTPError(503, "busy", "flaky")}
	p := NewRetryableProvider(inner, fastRetryConfig(), zap.NewNop())

	resp, err := p.Completion(context.Background(), &llm.ChatRequest{})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.FirstContent())
	assert.Equal(t, 3, inner.calls)
}

func TestRetryableProvider_NonRetryableReturnsImmediately(t *testing.T) {
	inner := &flakyProvider{failures: 5, err: MapHTTPError(401, "bad key", "flaky")}
	p := NewRetryableProvider(inner, fastRetryConfig(), nil)

	_, err := p.Completion(context.Background(), &llm.ChatRequest{})
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrUnauthorized))
	assert.Equal(t, 1, inner.calls)
}

func TestRetryableProvider_GivesUp(t *testing.T) {
	inner := &flakyProvider{failures: 10, err: MapHTTPError(500, "boom", "flaky")}
	p := NewRetryableProvider(inner, fastRetryConfig(), nil)

	_, err := p.Completion(context.Background(), &llm.ChatRequest{})
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrUpstreamError))
	assert.Equal(t, 3, inner.calls)
}

func TestRetryableProvider_ContextCancelled(t *testing.T) {
	inner := &flakyProvider{failures: 10, err: errors.New("transient")}
	cfg := fastRetryConfig()
	cfg.RetryableOnly = false
	cfg.InitialDelay = time.Second
	p := NewRetryableProvider(inner, cfg, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := p.Completion(ctx, &llm.ChatRequest{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, inner.calls)
}

func TestRetryableProvider_CalculateDelay(t *testing.T) {
	p := NewRetryableProvider(&flakyProvider{}, RetryConfig{
		InitialDelay: 100 * time.Millisecond, MaxDelay: time.Second, BackoffFactor: 2,
	}, nil)

	assert.Equal(t, 100*time.Millisecond, p.calculateDelay(1))
	assert.Equal(t, 200*time.Millisecond, p.calculateDelay(2))
	assert.Equal(t, 400*time.Millisecond, p.calculateDelay(3))
	assert.Equal(t, time.Second, p.calculateDelay(10))
}

func TestRetryConfig_Budget(t *testing.T) {
	cfg := RetryConfig{
		MaxRetries: 3, InitialDelay: 500 * time.Millisecond, MaxDelay: time.Second, BackoffFactor: 2,
	}

	// 4 次尝试 + 退避 500ms、1s、1s（封顶）
	assert.Equal(t, 4*30*time.Second+2500*time.Millisecond, cfg.Budget(30*time.Second))

	cfg.MaxRetries = 0
	assert.Equal(t, 30*time.Second, cfg.Budget(30*time.Second))
	assert.Zero(t, cfg.Delay(0))
}
