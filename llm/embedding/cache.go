package embedding

import (
	"context"
	"errors"
	"time"

	"github.com/BaSui01/ragcache/cache"
	"github.com/BaSui01/ragcache/types"
	"go.uber.org/zap"
)

// CacheName 指标与日志中的缓存名.
const CacheName = "embedding"

// Cache 嵌入缓存
type Cache struct {
	memo       *cache.Memoizer[[]float64]
	normalizer *Normalizer
	timeout    time.Duration
	logger     *zap.Logger
}

// NewCache 创建嵌入缓存
func NewCache(store *cache.SafeStore, cfg Config, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultConfig()
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}
	if cfg.GenerateTimeout <= 0 {
		cfg.GenerateTimeout = def.GenerateTimeout
	}

	memo := cache.NewMemoizer[[]float64](CacheName, store, cfg.TTL, logger)
	memo.Validate = func(v []float64) bool { return len(v) > 0 }

	return &Cache{
		memo:       memo,
		normalizer: NewNormalizer(cfg.MaxInputChars),
		timeout:    cfg.GenerateTimeout,
		logger:     logger.With(zap.String("component", "embedding_cache")),
	}
}

// WithTruncator 使用 token 截断器规范化输入
func (c *Cache) WithTruncator(t Truncator) *Cache {
	c.normalizer.WithTruncator(t)
	return c
}

// WithRecorder 设置指标上报
func (c *Cache) WithRecorder(r cache.Recorder) *Cache {
	c.memo.WithRecorder(r)
	return c
}

// Normalize 返回用于哈希与生成的规范化文本
func (c *Cache) Normalize(text string) string {
	return c.normalizer.Normalize(text)
}

// Key 计算缓存键：规范化文本、模型 ID、输入类型三者缺一不可
func (c *Cache) Key(text, modelID string, inputType InputType) string {
	return cache.HashKey("emb", c.Normalize(text), modelID, string(inputType))
}

// GetOrCreate 返回文本的嵌入向量以及是否命中缓存。
// 生成失败、超时或返回空向量时返回 EMBEDDING_GENERATION 错误，且不写缓存。
func (c *Cache) GetOrCreate(ctx context.Context, text, modelID string, inputType InputType, gen Generator) (types.Lookup[[]float64], error) {
	norm := c.Normalize(text)
	if norm == "" {
		return types.Lookup[[]float64]{}, types.NewError(types.ErrInvalidRequest, "embedding input is empty")
	}
	if gen == nil {
		return types.Lookup[[]float64]{}, types.NewError(types.ErrInvalidRequest, "embedding generator is nil")
	}

	key := cache.HashKey("emb", norm, modelID, string(inputType))
	res, err := c.memo.GetOrCreate(ctx, key, func(ctx context.Context) ([]float64, error) {
		return c.generate(ctx, norm, modelID, inputType, gen)
	})
	if err != nil {
		return res, err
	}

	c.logger.Debug("embedding resolved",
		zap.String("model", modelID),
		zap.String("input_type", string(inputType)),
		zap.Bool("cache_hit", res.Hit),
	)
	return res, nil
}

func (c *Cache) generate(ctx context.Context, text, modelID string, inputType InputType, gen Generator) ([]float64, error) {
	genCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	vec, err := gen.Embed(genCtx, text, inputType)
	if err != nil {
		msg := "embedding generation failed"
		if errors.Is(genCtx.Err(), context.DeadlineExceeded) {
			msg = "embedding generation timed out"
		}
		c.logger.Warn(msg, zap.String("model", modelID), zap.Error(err))
		return nil, types.WrapError(err, types.ErrEmbeddingGeneration, msg)
	}
	if len(vec) == 0 {
		return nil, types.NewError(types.ErrEmbeddingGeneration, "embedding generator returned an empty vector")
	}
	return vec, nil
}

// Embedder 绑定缓存、生成器与模型 ID
type Embedder struct {
	Cache     *Cache
	Generator Generator
	ModelID   string
}

// NewEmbedder 创建 Embedder
func NewEmbedder(c *Cache, gen Generator, modelID string) *Embedder {
	return &Embedder{Cache: c, Generator: gen, ModelID: modelID}
}

// Embed 通过缓存获取文本嵌入
func (e *Embedder) Embed(ctx context.Context, text string, inputType InputType) (types.Lookup[[]float64], error) {
	return e.Cache.GetOrCreate(ctx, text, e.ModelID, inputType, e.Generator)
}
