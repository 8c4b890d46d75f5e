package embedding

import (
	"context"
	"time"
)

// InputType 指定嵌入优化的输入类型，同一文本在不同类型下得到不同向量.
type InputType string

const (
	InputTypeQuery    InputType = "query"    // 用户查询
	InputTypeDocument InputType = "document" // 被索引的文本（意图样例、商品描述）
)

// Generator 上游嵌入生成接口.
type Generator interface {
	Embed(ctx context.Context, text string, inputType InputType) ([]float64, error)
}

// GeneratorFunc 函数适配器.
type GeneratorFunc func(ctx context.Context, text string, inputType InputType) ([]float64, error)

// Embed 实现 Generator.
func (f GeneratorFunc) Embed(ctx context.Context, text string, inputType InputType) ([]float64, error) {
	return f(ctx, text, inputType)
}

// EmbeddingRequest 表示发往上游的批量嵌入请求.
type EmbeddingRequest struct {
	Input      []string  `json:"input"`
	Model      string    `json:"model,omitempty"`
	Dimensions int       `json:"dimensions,omitempty"`
	InputType  InputType `json:"input_type,omitempty"`
}

// EmbeddingResponse 表示上游嵌入响应.
type EmbeddingResponse struct {
	Provider   string          `json:"provider"`
	Model      string          `json:"model"`
	Embeddings []EmbeddingData `json:"embeddings"`
	Usage      EmbeddingUsage  `json:"usage"`
	CreatedAt  time.Time       `json:"created_at,omitempty"`
}

// EmbeddingData 表示单个嵌入结果.
type EmbeddingData struct {
	Index     int       `json:"index"`
	Embedding []float64 `json:"embedding"`
}

// EmbeddingUsage 表示嵌入请求的 Token 用量.
type EmbeddingUsage struct {
	PromptTokens int `json:"prompt_tokens"`
	TotalTokens  int `json:"total_tokens"`
}
