package response

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/BaSui01/ragcache/cache"
	"github.com/BaSui01/ragcache/types"
	"go.uber.org/zap"
)

// CacheName 指标与日志中的缓存名.
const CacheName = "response"

// Key 计算回答缓存键，字段顺序固定且带长度前缀.
func Key(req Request) string {
	return cache.HashKey("resp", req.Query, req.Context, req.Intent, req.Persona)
}

// Cache 回答缓存
type Cache struct {
	memo    *cache.Memoizer[Answer]
	timeout time.Duration
	logger  *zap.Logger
}

// NewCache 创建回答缓存
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

	memo := cache.NewMemoizer[Answer](CacheName, store, cfg.TTL, logger)
	memo.Validate = func(a Answer) bool { return strings.TrimSpace(a.Text) != "" }

	return &Cache{
		memo:    memo,
		timeout: cfg.GenerateTimeout,
		logger:  logger.With(zap.String("component", "response_cache")),
	}
}

// WithRecorder 设置指标上报
func (c *Cache) WithRecorder(r cache.Recorder) *Cache {
	c.memo.WithRecorder(r)
	return c
}

// GetOrCreate 返回请求对应的回答以及是否命中缓存。
// 生成失败、超时或回答为空时返回 GENERATION 错误，且不写缓存。
func (c *Cache) GetOrCreate(ctx context.Context, req Request, gen Generator) (types.Lookup[Answer], error) {
	if gen == nil {
		return types.Lookup[Answer]{}, types.NewError(types.ErrInvalidRequest, "response generator is nil")
	}

	res, err := c.memo.GetOrCreate(ctx, Key(req), func(ctx context.Context) (Answer, error) {
		return c.generate(ctx, req, gen)
	})
	if err != nil {
		return res, err
	}

	c.logger.Debug("answer resolved",
		zap.String("intent", req.Intent),
		zap.String("persona", req.Persona),
		zap.Bool("cache_hit", res.Hit),
	)
	return res, nil
}

func (c *Cache) generate(ctx context.Context, req Request, gen Generator) (Answer, error) {
	genCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	ans, err := gen.Generate(genCtx, req)
	if err != nil {
		msg := "answer generation failed"
		if errors.Is(genCtx.Err(), context.DeadlineExceeded) {
			msg = "answer generation timed out"
		}
		c.logger.Warn(msg, zap.String("intent", req.Intent), zap.Error(err))
		return Answer{}, types.WrapError(err, types.ErrGeneration, msg)
	}
	if strings.TrimSpace(ans.Text) == "" {
		return Answer{}, types.NewError(types.ErrGeneration, "answer generator returned empty text")
	}
	return ans, nil
}
