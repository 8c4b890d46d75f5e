package metrics

import (
	"context"
	"time"

	"github.com/BaSui01/ragcache/llm"
	"github.com/BaSui01/ragcache/llm/embedding"
	"github.com/BaSui01/ragcache/types"
)

// InstrumentedProvider 为 llm.Provider 记录请求指标
type InstrumentedProvider struct {
	inner     llm.Provider
	collector *Collector
}

// NewInstrumentedProvider 包装 provider
func NewInstrumentedProvider(inner llm.Provider, collector *Collector) *InstrumentedProvider {
	return &InstrumentedProvider{inner: inner, collector: collector}
}

func (p *InstrumentedProvider) Name() string { return p.inner.Name() }

func (p *InstrumentedProvider) HealthCheck(ctx context.Context) (*llm.HealthStatus, error) {
	return p.inner.HealthCheck(ctx)
}

// Completion 转发请求并记录耗时、状态与 token 用量
func (p *InstrumentedProvider) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	start := time.Now()
	resp, err := p.inner.Completion(ctx, req)

	var prompt, completion int
	if resp != nil {
		prompt, completion = resp.Usage.PromptTokens, resp.Usage.CompletionTokens
	}
	p.collector.RecordLLMRequest(p.inner.Name(), req.Model, status(err), time.Since(start), prompt, completion)
	return resp, err
}

// InstrumentGenerator 为嵌入生成器记录调用指标
func InstrumentGenerator(inner embedding.Generator, collector *Collector) embedding.Generator {
	return embedding.GeneratorFunc(func(ctx context.Context, text string, inputType embedding.InputType) ([]float64, error) {
		start := time.Now()
		vec, err := inner.Embed(ctx, text, inputType)
		collector.RecordEmbeddingRequest(string(inputType), status(err), time.Since(start))
		return vec, err
	})
}

// status 把错误归类为指标标签
func status(err error) string {
	if err == nil {
		return "success"
	}
	if code := types.GetErrorCode(err); code != "" {
		return string(code)
	}
	return "error"
}
