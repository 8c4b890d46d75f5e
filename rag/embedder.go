package rag

import (
	"context"

	"github.com/BaSui01/ragcache/llm/embedding"
	"github.com/BaSui01/ragcache/types"
)

// Embedder 通过嵌入缓存获取向量（由 *embedding.Embedder 实现）
type Embedder interface {
	Embed(ctx context.Context, text string, inputType embedding.InputType) (types.Lookup[[]float64], error)
}

var _ Embedder = (*embedding.Embedder)(nil)
