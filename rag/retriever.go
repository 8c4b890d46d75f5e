package rag

import (
	"context"
	"fmt"
	"time"

	"github.com/BaSui01/ragcache/llm/embedding"
	"go.uber.org/zap"
)

// RetrieverConfig 检索配置
type RetrieverConfig struct {
	TopK          int           `json:"top_k" yaml:"top_k"`
	SearchTimeout time.Duration `json:"search_timeout" yaml:"search_timeout"`
}

// DefaultRetrieverConfig 返回默认配置
func DefaultRetrieverConfig() RetrieverConfig {
	return RetrieverConfig{
		TopK:          3,
		SearchTimeout: 5 * time.Second,
	}
}

// RetrievalResult 检索结果；检索结果本身不做缓存
type RetrievalResult struct {
	Items        []Item `json:"items"`
	EmbeddingHit bool   `json:"embedding_hit"`
}

// Retriever 检索协调器：查询嵌入走嵌入缓存，然后委托给相似度检索
type Retriever struct {
	embedder Embedder
	search   SimilaritySearch
	config   RetrieverConfig
	logger   *zap.Logger
}

// NewRetriever 创建检索协调器
func NewRetriever(embedder Embedder, search SimilaritySearch, config RetrieverConfig, logger *zap.Logger) *Retriever {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultRetrieverConfig()
	if config.TopK <= 0 {
		config.TopK = def.TopK
	}
	if config.SearchTimeout <= 0 {
		config.SearchTimeout = def.SearchTimeout
	}
	return &Retriever{
		embedder: embedder,
		search:   search,
		config:   config,
		logger:   logger.With(zap.String("component", "retriever")),
	}
}

// TopK 默认返回条数
func (r *Retriever) TopK() int {
	return r.config.TopK
}

// Search 检索与查询最相关的 k 个条目，k <= 0 时使用配置的 TopK。
// 嵌入错误原样返回；检索错误包装后返回。
func (r *Retriever) Search(ctx context.Context, query string, k int) (*RetrievalResult, error) {
	if k <= 0 {
		k = r.config.TopK
	}

	emb, err := r.embedder.Embed(ctx, query, embedding.InputTypeQuery)
	if err != nil {
		return nil, err
	}

	searchCtx, cancel := context.WithTimeout(ctx, r.config.SearchTimeout)
	defer cancel()

	items, err := r.search.Search(searchCtx, emb.Value, k)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}

	r.logger.Debug("retrieval done",
		zap.Int("k", k),
		zap.Int("items", len(items)),
		zap.Bool("embedding_hit", emb.Hit),
	)
	return &RetrievalResult{Items: items, EmbeddingHit: emb.Hit}, nil
}
