package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/BaSui01/ragcache/internal/tlsutil"
)

// =============================================================================
// 💾 Redis 存储
// =============================================================================

// RedisConfig Redis 连接配置
type RedisConfig struct {
	// Redis 地址
	Addr string `yaml:"addr" json:"addr"`

	// 密码
	Password string `yaml:"password" json:"password"`

	// 数据库编号
	DB int `yaml:"db" json:"db"`

	// 最大重试次数
	MaxRetries int `yaml:"max_retries" json:"max_retries"`

	// 连接池大小
	PoolSize int `yaml:"pool_size" json:"pool_size"`

	// 最小空闲连接数
	MinIdleConns int `yaml:"min_idle_conns" json:"min_idle_conns"`

	// 健康检查间隔，0 表示不检查
	HealthCheckInterval time.Duration `yaml:"health_check_interval" json:"health_check_interval"`

	// 是否使用 TLS 连接
	TLSEnabled bool `yaml:"tls_enabled" json:"tls_enabled"`
}

// DefaultRedisConfig 返回默认 Redis 配置
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:                "localhost:6379",
		MaxRetries:          3,
		PoolSize:            10,
		MinIdleConns:        2,
		HealthCheckInterval: 30 * time.Second,
	}
}

// hash 字段
const (
	fieldValue        = "value"
	fieldCreatedAt    = "created_at"
	fieldExpiresAt    = "expires_at"
	fieldHitCount     = "hit_count"
	fieldLastAccessed = "last_accessed"
)

// RedisStore 每个缓存键对应一个 Redis hash，Redis 原生 TTL 负责回收，
// 读取时再按 expires_at 校验。
type RedisStore struct {
	client *redis.Client
	prefix string
	now    func() time.Time
	logger *zap.Logger

	mu     sync.RWMutex
	closed bool
	stopCh chan struct{}
}

// NewRedisStore 连接 Redis 并创建存储
func NewRedisStore(config RedisConfig, logger *zap.Logger, opts ...Option) (*RedisStore, error) {
	client := redis.NewClient(redisOptions(config))

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	if logger == nil {
		logger = zap.NewNop()
	}
	s := NewRedisStoreFromClient(client, append([]Option{WithLogger(logger)}, opts...)...)

	if config.HealthCheckInterval > 0 {
		go s.healthCheckLoop(config.HealthCheckInterval)
	}

	s.logger.Info("redis cache store initialized",
		zap.String("addr", config.Addr),
		zap.Int("pool_size", config.PoolSize),
	)
	return s, nil
}

func redisOptions(config RedisConfig) *redis.Options {
	opts := &redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		MaxRetries:   config.MaxRetries,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
	}
	if config.TLSEnabled {
		opts.TLSConfig = tlsutil.DefaultTLSConfig()
	}
	return opts
}

// NewRedisStoreFromClient 使用已有客户端创建存储
func NewRedisStoreFromClient(client *redis.Client, opts ...Option) *RedisStore {
	o := newOptions(opts)
	return &RedisStore{
		client: client,
		prefix: o.keyPrefix,
		now:    o.now,
		logger: o.logger.With(zap.String("component", "redis_store")),
		stopCh: make(chan struct{}),
	}
}

// Get 实现 Store
func (s *RedisStore) Get(ctx context.Context, key string) (*Entry, error) {
	if err := s.checkClosed(); err != nil {
		return nil, unavailable("get", err)
	}

	rk := s.redisKey(key)
	vals, err := s.client.HGetAll(ctx, rk).Result()
	if err != nil {
		return nil, unavailable("get", err)
	}
	if len(vals) == 0 {
		return nil, ErrCacheMiss
	}

	entry, err := decodeHash(key, vals)
	if err != nil {
		return nil, unavailable("decode", err)
	}

	now := s.now()
	if !entry.Valid(now) {
		return nil, ErrCacheMiss
	}

	// 命中计数仅用于观测，失败不影响读取结果
	_, err = s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		p.HIncrBy(ctx, rk, fieldHitCount, 1)
		p.HSet(ctx, rk, fieldLastAccessed, now.UnixNano())
		return nil
	})
	if err != nil {
		s.logger.Debug("hit counter update failed", zap.String("key", key), zap.Error(err))
	} else {
		entry.HitCount++
		entry.LastAccessed = now
	}

	return entry, nil
}

// Put 实现 Store
func (s *RedisStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := validateTTL(ttl); err != nil {
		return err
	}
	if err := s.checkClosed(); err != nil {
		return unavailable("put", err)
	}

	now := s.now()
	rk := s.redisKey(key)
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, rk)
		p.HSet(ctx, rk, map[string]any{
			fieldValue:     value,
			fieldCreatedAt: now.UnixNano(),
			fieldExpiresAt: now.Add(ttl).UnixNano(),
			fieldHitCount:  0,
		})
		p.PExpire(ctx, rk, ttl)
		return nil
	})
	if err != nil {
		return unavailable("put", err)
	}
	return nil
}

// Ping 检查 Redis 连接
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.checkClosed(); err != nil {
		return err
	}
	return s.client.Ping(ctx).Err()
}

// Close 关闭存储
func (s *RedisStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	close(s.stopCh)
	s.logger.Info("closing redis cache store")
	return s.client.Close()
}

func (s *RedisStore) checkClosed() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return errors.New("redis store is closed")
	}
	return nil
}

func (s *RedisStore) redisKey(key string) string {
	return s.prefix + key
}

func (s *RedisStore) healthCheckLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := s.Ping(ctx); err != nil {
				s.logger.Error("redis health check failed", zap.Error(err))
			} else {
				s.logger.Debug("redis health check passed")
			}
			cancel()
		}
	}
}

func decodeHash(key string, vals map[string]string) (*Entry, error) {
	value, ok := vals[fieldValue]
	if !ok {
		return nil, fmt.Errorf("entry %q has no value field", key)
	}
	created, err := parseUnixNano(vals[fieldCreatedAt])
	if err != nil {
		return nil, fmt.Errorf("entry %q created_at: %w", key, err)
	}
	expires, err := parseUnixNano(vals[fieldExpiresAt])
	if err != nil {
		return nil, fmt.Errorf("entry %q expires_at: %w", key, err)
	}

	entry := &Entry{
		Key:       key,
		Value:     []byte(value),
		CreatedAt: created,
		ExpiresAt: expires,
	}
	if hc, err := strconv.ParseInt(vals[fieldHitCount], 10, 64); err == nil {
		entry.HitCount = hc
	}
	if la, ok := vals[fieldLastAccessed]; ok {
		if t, err := parseUnixNano(la); err == nil {
			entry.LastAccessed = t
		}
	}
	return entry, nil
}

func parseUnixNano(s string) (time.Time, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(0, n), nil
}
