package rag

import (
	"context"

	"github.com/BaSui01/ragcache/llm/embedding"
	"go.uber.org/zap"
)

// IntentRouterConfig 意图路由配置
type IntentRouterConfig struct {
	// 全局置信度阈值，样例自身阈值 > 0 时优先
	ConfidenceThreshold float64 `json:"confidence_threshold" yaml:"confidence_threshold"`
	DefaultIntent       string  `json:"default_intent" yaml:"default_intent"`
}

// DefaultIntentRouterConfig 返回默认配置
func DefaultIntentRouterConfig() IntentRouterConfig {
	return IntentRouterConfig{
		ConfidenceThreshold: 0.5,
		DefaultIntent:       IntentGeneralConversation,
	}
}

// RouteResult 路由结果
type RouteResult struct {
	Intent          string    `json:"intent"`
	Confidence      float64   `json:"confidence"`
	MatchedExemplar *Exemplar `json:"matched_exemplar,omitempty"`
	EmbeddingHit    bool      `json:"embedding_hit"`
	Fallback        bool      `json:"fallback"`
}

// IntentRouter 最近样例意图分类
type IntentRouter struct {
	embedder  Embedder
	exemplars ExemplarSet
	config    IntentRouterConfig
	logger    *zap.Logger
}

// NewIntentRouter 创建意图路由器
func NewIntentRouter(embedder Embedder, exemplars ExemplarSet, config IntentRouterConfig, logger *zap.Logger) *IntentRouter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.DefaultIntent == "" {
		config.DefaultIntent = IntentGeneralConversation
	}
	return &IntentRouter{
		embedder:  embedder,
		exemplars: exemplars,
		config:    config,
		logger:    logger.With(zap.String("component", "intent_router")),
	}
}

// DefaultIntent 兜底意图
func (r *IntentRouter) DefaultIntent() string {
	return r.config.DefaultIntent
}

// Route 对查询分类。嵌入失败原样返回 EMBEDDING_GENERATION 错误。
func (r *IntentRouter) Route(ctx context.Context, query string) (*RouteResult, error) {
	emb, err := r.embedder.Embed(ctx, query, embedding.InputTypeQuery)
	if err != nil {
		return nil, err
	}

	result := &RouteResult{
		Intent:       r.config.DefaultIntent,
		EmbeddingHit: emb.Hit,
		Fallback:     true,
	}

	best := r.nearest(emb.Value)
	if best < 0 {
		r.logger.Debug("no exemplars configured, using default intent")
		return result, nil
	}

	ex := r.exemplars[best]
	score := cosineSimilarity(emb.Value, ex.Embedding)
	result.Confidence = score
	result.MatchedExemplar = &ex

	threshold := r.config.ConfidenceThreshold
	if ex.ConfidenceThreshold > 0 {
		threshold = ex.ConfidenceThreshold
	}
	if score >= threshold {
		result.Intent = ex.Intent
		result.Fallback = false
	}

	r.logger.Debug("query routed",
		zap.String("intent", result.Intent),
		zap.String("matched_intent", ex.Intent),
		zap.Float64("confidence", score),
		zap.Float64("threshold", threshold),
		zap.Bool("fallback", result.Fallback),
		zap.Bool("embedding_hit", emb.Hit),
	)
	return result, nil
}

// nearest 返回最相似样例的下标。
// 分数相同时阈值更高者优先，仍相同时保留先出现者。
func (r *IntentRouter) nearest(vec []float64) int {
	best := -1
	var bestScore float64
	for i, ex := range r.exemplars {
		score := cosineSimilarity(vec, ex.Embedding)
		switch {
		case best < 0, score > bestScore:
			best, bestScore = i, score
		case score == bestScore && ex.ConfidenceThreshold > r.exemplars[best].ConfidenceThreshold:
			best = i
		}
	}
	return best
}
