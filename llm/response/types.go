package response

import (
	"context"
	"time"
)

// Request 回答生成请求，同时也是缓存键的全部来源.
type Request struct {
	Query   string `json:"query"`
	Context string `json:"context"`
	Intent  string `json:"intent"`
	Persona string `json:"persona"`
}

// Answer 生成的回答.
type Answer struct {
	Text  string `json:"text"`
	Model string `json:"model,omitempty"`
}

// Generator 回答生成接口.
type Generator interface {
	Generate(ctx context.Context, req Request) (Answer, error)
}

// GeneratorFunc 函数适配器.
type GeneratorFunc func(ctx context.Context, req Request) (Answer, error)

// Generate 实现 Generator.
func (f GeneratorFunc) Generate(ctx context.Context, req Request) (Answer, error) {
	return f(ctx, req)
}

// Config 回答缓存配置
type Config struct {
	TTL             time.Duration `json:"ttl" yaml:"ttl"`
	GenerateTimeout time.Duration `json:"generate_timeout" yaml:"generate_timeout"`
}

// DefaultConfig 默认 TTL 5m，生成超时 60s.
func DefaultConfig() Config {
	return Config{
		TTL:             5 * time.Minute,
		GenerateTimeout: 60 * time.Second,
	}
}
