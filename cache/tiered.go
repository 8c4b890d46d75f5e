package cache

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// TieredStore 两级存储：L1 本地 MemoryStore，L2 持久化存储。
// 读：先 L1，未命中再 L2，L2 命中后按剩余 TTL 回填 L1。
// 写：先写 L1，再写 L2，L2 的错误原样返回。
type TieredStore struct {
	local  *MemoryStore
	remote Store
	logger *zap.Logger
}

// NewTieredStore 创建两级存储
func NewTieredStore(local *MemoryStore, remote Store, logger *zap.Logger) *TieredStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TieredStore{
		local:  local,
		remote: remote,
		logger: logger.With(zap.String("component", "tiered_store")),
	}
}

// Get 实现 Store
func (t *TieredStore) Get(ctx context.Context, key string) (*Entry, error) {
	if entry, err := t.local.Get(ctx, key); err == nil {
		t.logger.Debug("local cache hit", zap.String("key", key))
		return entry, nil
	}

	entry, err := t.remote.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	// 回填 L1，保留原始过期时间
	t.local.putEntry(Entry{
		Key:       key,
		Value:     entry.Value,
		CreatedAt: entry.CreatedAt,
		ExpiresAt: entry.ExpiresAt,
	})
	t.logger.Debug("remote cache hit", zap.String("key", key))
	return entry, nil
}

// Put 实现 Store
func (t *TieredStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := t.local.Put(ctx, key, value, ttl); err != nil {
		return err
	}
	return t.remote.Put(ctx, key, value, ttl)
}
