package mocks

import (
	"context"
	"strings"
	"sync"

	"github.com/BaSui01/ragcache/llm/embedding"
)

// MockGenerator 是嵌入生成器的模拟实现。
// 向量按词表做词袋计数，含相同关键词的文本余弦相似度更高。
type MockGenerator struct {
	mu    sync.Mutex
	vocab []string
	err   error
	calls []string
}

// NewMockGenerator 使用给定词表创建生成器
func NewMockGenerator(vocab ...string) *MockGenerator {
	return &MockGenerator{vocab: vocab}
}

// WithError 之后的每次调用都返回 err
func (g *MockGenerator) WithError(err error) *MockGenerator {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.err = err
	return g
}

// Embed 实现 embedding.Generator
func (g *MockGenerator) Embed(ctx context.Context, text string, _ embedding.InputType) ([]float64, error) {
	g.mu.Lock()
	g.calls = append(g.calls, text)
	err := g.err
	g.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lower := strings.ToLower(text)
	// 最后一维恒为 1，保证向量非零
	vec := make([]float64, len(g.vocab)+1)
	for i, w := range g.vocab {
		vec[i] = float64(strings.Count(lower, w))
	}
	vec[len(g.vocab)] = 1
	return vec, nil
}

// CallCount 返回上游调用次数
func (g *MockGenerator) CallCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

// Calls 返回每次调用的输入文本
func (g *MockGenerator) Calls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, len(g.calls))
	copy(out, g.calls)
	return out
}
