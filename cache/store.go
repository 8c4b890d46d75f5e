package cache

import (
	"context"
	"errors"
	"time"

	"github.com/BaSui01/ragcache/types"
	"go.uber.org/zap"
)

// ErrCacheMiss 条目不存在或已过期
var ErrCacheMiss = errors.New("cache miss")

// Entry 缓存条目
type Entry struct {
	Key          string    `json:"key"`
	Value        []byte    `json:"value"`
	CreatedAt    time.Time `json:"created_at"`
	ExpiresAt    time.Time `json:"expires_at"`
	HitCount     int64     `json:"hit_count"`
	LastAccessed time.Time `json:"last_accessed,omitempty"`
}

// Valid 当且仅当 now < ExpiresAt 时条目有效
func (e *Entry) Valid(now time.Time) bool {
	return now.Before(e.ExpiresAt)
}

// Store 键值存储接口
type Store interface {
	// Get 返回未过期的条目；不存在或已过期返回 ErrCacheMiss
	Get(ctx context.Context, key string) (*Entry, error)

	// Put upsert 条目，CreatedAt = now，ExpiresAt = now + ttl
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Option 存储后端的可选配置
type Option func(*options)

type options struct {
	now       func() time.Time
	keyPrefix string
	logger    *zap.Logger
}

// WithClock 注入时钟（测试 TTL 用）
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithKeyPrefix 设置后端键前缀（仅 RedisStore 使用）
func WithKeyPrefix(prefix string) Option {
	return func(o *options) {
		o.keyPrefix = prefix
	}
}

// WithLogger 设置日志
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func newOptions(opts []Option) options {
	o := options{
		now:       time.Now,
		keyPrefix: "ragcache:",
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func unavailable(op string, err error) error {
	return types.NewError(types.ErrCacheUnavailable, "cache "+op+" failed").
		WithCause(err).
		WithRetryable(true)
}

func validateTTL(ttl time.Duration) error {
	if ttl <= 0 {
		return types.NewError(types.ErrInvalidRequest, "cache ttl must be positive")
	}
	return nil
}
