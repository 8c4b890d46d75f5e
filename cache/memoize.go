package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/BaSui01/ragcache/types"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Memoizer 通用 get-or-create：命中直接返回缓存值，未命中调用 compute 并写回。
// 同一个键的并发未命中通过 singleflight 合并为一次 compute。
// 载荷以 JSON 编码存储。
type Memoizer[T any] struct {
	name     string
	store    *SafeStore
	ttl      time.Duration
	group    singleflight.Group
	logger   *zap.Logger
	recorder Recorder

	// Validate 返回 false 的值不会被写入缓存（可选）
	Validate func(T) bool
}

// NewMemoizer 创建 Memoizer。name 用于日志与指标（embedding / response）。
func NewMemoizer[T any](name string, store *SafeStore, ttl time.Duration, logger *zap.Logger) *Memoizer[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Memoizer[T]{
		name:     name,
		store:    store,
		ttl:      ttl,
		logger:   logger.With(zap.String("cache", name)),
		recorder: nopRecorder{},
	}
}

// WithRecorder 设置指标上报
func (m *Memoizer[T]) WithRecorder(r Recorder) *Memoizer[T] {
	if r != nil {
		m.recorder = r
	}
	return m
}

// GetOrCreate 返回键对应的值以及是否命中缓存。
// compute 的错误原样返回且不会写入缓存。
//
// compute 在不随调用方取消的 context 中执行，超时由 compute 自身控制；
// 每个等待者只受自己 ctx 的约束，取消后立即返回 ctx.Err()，进行中的 compute 继续完成并写回。
// 并入他人 compute 的调用者得到 Hit=false（值并非来自存储），指标记为 collapsed 而不是 miss。
func (m *Memoizer[T]) GetOrCreate(ctx context.Context, key string, compute func(context.Context) (T, error)) (types.Lookup[T], error) {
	if err := ctx.Err(); err != nil {
		return types.Lookup[T]{}, err
	}
	if v, ok := m.lookup(ctx, key); ok {
		m.recorder.RecordCacheHit(m.name)
		return types.Hit(v), nil
	}

	detached := context.WithoutCancel(ctx)
	var leader bool
	ch := m.group.DoChan(key, func() (any, error) {
		leader = true
		// 获得执行权后再查一次，避免排队者重复计算
		if v, ok := m.lookup(detached, key); ok {
			return types.Hit(v), nil
		}

		val, err := compute(detached)
		if err != nil {
			return nil, err
		}
		m.save(detached, key, val)
		return types.Miss(val), nil
	})

	var r singleflight.Result
	select {
	case <-ctx.Done():
		m.logger.Debug("caller gave up waiting for compute", zap.String("key", key), zap.Error(ctx.Err()))
		return types.Lookup[T]{}, ctx.Err()
	case r = <-ch:
	}
	if r.Err != nil {
		return types.Lookup[T]{}, r.Err
	}

	res := r.Val.(types.Lookup[T])
	switch {
	case res.Hit:
		m.recorder.RecordCacheHit(m.name)
	case leader:
		m.recorder.RecordCacheMiss(m.name)
	default:
		m.recorder.RecordCacheCollapsed(m.name)
		m.logger.Debug("concurrent miss collapsed", zap.String("key", key))
	}
	return res, nil
}

func (m *Memoizer[T]) lookup(ctx context.Context, key string) (T, bool) {
	var zero T
	entry, ok := m.store.Get(ctx, key)
	if !ok {
		return zero, false
	}
	var v T
	if err := json.Unmarshal(entry.Value, &v); err != nil {
		m.logger.Warn("cached payload undecodable, treating as miss",
			zap.String("key", key), zap.Error(err))
		return zero, false
	}
	if m.Validate != nil && !m.Validate(v) {
		return zero, false
	}
	return v, true
}

func (m *Memoizer[T]) save(ctx context.Context, key string, val T) {
	if m.Validate != nil && !m.Validate(val) {
		m.logger.Debug("value rejected by validator, not cached", zap.String("key", key))
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		m.logger.Warn("payload encode failed, not cached", zap.String("key", key), zap.Error(err))
		return
	}
	m.store.Put(ctx, key, data, m.ttl)
}
