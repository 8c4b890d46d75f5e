package cache

import (
	"context"
	"errors"
	"time"

	"github.com/BaSui01/ragcache/types"
	"go.uber.org/zap"
)

// DefaultOpTimeout 单次存储操作的默认超时
const DefaultOpTimeout = 200 * time.Millisecond

// Recorder 缓存指标上报接口（由 internal/metrics.Collector 实现）
type Recorder interface {
	RecordCacheHit(cacheType string)
	RecordCacheMiss(cacheType string)
	// RecordCacheCollapsed 并入同键进行中 compute 的调用
	RecordCacheCollapsed(cacheType string)
	RecordStoreError(cacheType, op string)
}

type nopRecorder struct{}

func (nopRecorder) RecordCacheHit(string) {}
func (nopRecorder) RecordCacheMiss(string) {}
func (nopRecorder) RecordCacheCollapsed(string) {}
func (nopRecorder) RecordStoreError(string, string) {}

// SafeStore 存储边界：读失败视为未命中，写失败吞掉并记录日志。
// 底层 Store 为 nil 时表示缓存关闭，所有读都未命中、所有写都被丢弃。
type SafeStore struct {
	store    Store
	name     string
	timeout  time.Duration
	logger   *zap.Logger
	recorder Recorder
}

// NewSafeStore 包装 Store。timeout <= 0 时使用 DefaultOpTimeout。
func NewSafeStore(store Store, timeout time.Duration, logger *zap.Logger) *SafeStore {
	if timeout <= 0 {
		timeout = DefaultOpTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SafeStore{
		store:    store,
		name:     "cache",
		timeout:  timeout,
		logger:   logger.With(zap.String("component", "safe_store")),
		recorder: nopRecorder{},
	}
}

// WithName 设置日志与指标中使用的缓存名
func (s *SafeStore) WithName(name string) *SafeStore {
	s.name = name
	return s
}

// WithRecorder 设置指标上报
func (s *SafeStore) WithRecorder(r Recorder) *SafeStore {
	if r != nil {
		s.recorder = r
	}
	return s
}

// Enabled 是否配置了底层存储
func (s *SafeStore) Enabled() bool {
	return s != nil && s.store != nil
}

// Get 读取条目；任何失败都返回 (nil, false)
func (s *SafeStore) Get(ctx context.Context, key string) (*Entry, bool) {
	if !s.Enabled() {
		return nil, false
	}

	opCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	entry, err := s.store.Get(opCtx, key)
	if err == nil {
		return entry, true
	}
	if !errors.Is(err, ErrCacheMiss) {
		s.fail("get", key, err)
	}
	return nil, false
}

// Put 写入条目；失败只记录日志，返回是否写入成功
func (s *SafeStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) bool {
	if !s.Enabled() {
		return false
	}

	opCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.store.Put(opCtx, key, value, ttl); err != nil {
		s.fail("put", key, err)
		return false
	}
	return true
}

func (s *SafeStore) fail(op, key string, err error) {
	code := types.ErrCacheUnavailable
	if c := types.GetErrorCode(err); c != "" {
		code = c
	}
	s.logger.Warn("cache store operation failed, degrading",
		zap.String("cache", s.name),
		zap.String("op", op),
		zap.String("key", key),
		zap.String("code", string(code)),
		zap.Error(err),
	)
	s.recorder.RecordStoreError(s.name, op)
}
