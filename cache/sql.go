package cache

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CacheRecord cache_entries 表的行
type CacheRecord struct {
	Key          string     `gorm:"column:cache_key;primaryKey;size:191"`
	Value        []byte     `gorm:"column:value;not null"`
	CreatedAt    time.Time  `gorm:"column:created_at;not null"`
	ExpiresAt    time.Time  `gorm:"column:expires_at;not null;index:idx_cache_entries_expires_at"`
	HitCount     int64      `gorm:"column:hit_count;not null"`
	LastAccessed *time.Time `gorm:"column:last_accessed"`
}

// TableName 表名
func (CacheRecord) TableName() string {
	return "cache_entries"
}

// SQLStore 基于 GORM 的持久化存储，过期判断在读取时完成，
// 过期行由 Purge 带外清理。
type SQLStore struct {
	db     *gorm.DB
	now    func() time.Time
	logger *zap.Logger
}

// NewSQLStore 创建 SQL 存储
func NewSQLStore(db *gorm.DB, opts ...Option) *SQLStore {
	o := newOptions(opts)
	return &SQLStore{
		db:     db,
		now:    o.now,
		logger: o.logger.With(zap.String("component", "sql_store")),
	}
}

// AutoMigrate 创建或更新 cache_entries 表（开发环境使用，生产环境走 migrate 命令）
func (s *SQLStore) AutoMigrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&CacheRecord{})
}

// Get 实现 Store
func (s *SQLStore) Get(ctx context.Context, key string) (*Entry, error) {
	var rec CacheRecord
	err := s.db.WithContext(ctx).Where("cache_key = ?", key).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, unavailable("get", err)
	}

	now := s.now().UTC()
	entry := recordToEntry(&rec)
	if !entry.Valid(now) {
		return nil, ErrCacheMiss
	}

	err = s.db.WithContext(ctx).Model(&CacheRecord{}).
		Where("cache_key = ?", key).
		UpdateColumns(map[string]any{
			"hit_count":     gorm.Expr("hit_count + ?", 1),
			"last_accessed": now,
		}).Error
	if err != nil {
		s.logger.Debug("hit counter update failed", zap.String("key", key), zap.Error(err))
	} else {
		entry.HitCount++
		entry.LastAccessed = now
	}

	return entry, nil
}

// Put 实现 Store，同键冲突时整行覆盖
func (s *SQLStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := validateTTL(ttl); err != nil {
		return err
	}

	now := s.now().UTC()
	rec := CacheRecord{
		Key:       key,
		Value:     value,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "cache_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "created_at", "expires_at", "hit_count", "last_accessed"}),
	}).Create(&rec).Error
	if err != nil {
		return unavailable("put", err)
	}
	return nil
}

// Purge 删除已过期的行，返回删除数量
func (s *SQLStore) Purge(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("expires_at <= ?", s.now().UTC()).
		Delete(&CacheRecord{})
	if res.Error != nil {
		return 0, unavailable("purge", res.Error)
	}
	if res.RowsAffected > 0 {
		s.logger.Info("purged expired cache entries", zap.Int64("count", res.RowsAffected))
	}
	return res.RowsAffected, nil
}

// SQLStats 表统计
type SQLStats struct {
	Total   int64 `json:"total"`
	Expired int64 `json:"expired"`
}

// Stats 统计总行数与已过期行数
func (s *SQLStore) Stats(ctx context.Context) (*SQLStats, error) {
	var stats SQLStats
	db := s.db.WithContext(ctx).Model(&CacheRecord{})
	if err := db.Count(&stats.Total).Error; err != nil {
		return nil, unavailable("stats", err)
	}
	err := s.db.WithContext(ctx).Model(&CacheRecord{}).
		Where("expires_at <= ?", s.now().UTC()).
		Count(&stats.Expired).Error
	if err != nil {
		return nil, unavailable("stats", err)
	}
	return &stats, nil
}

func recordToEntry(rec *CacheRecord) *Entry {
	e := &Entry{
		Key:       rec.Key,
		Value:     rec.Value,
		CreatedAt: rec.CreatedAt,
		ExpiresAt: rec.ExpiresAt,
		HitCount:  rec.HitCount,
	}
	if rec.LastAccessed != nil {
		e.LastAccessed = *rec.LastAccessed
	}
	return e
}
