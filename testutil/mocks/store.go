package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/BaSui01/ragcache/cache"
)

// MockStore 包装一个真实 Store，并可注入读写错误。
type MockStore struct {
	mu     sync.Mutex
	inner  cache.Store
	getErr error
	putErr error
	gets   int
	puts   int
}

// NewMockStore 包装 inner；inner 为 nil 时使用内存存储
func NewMockStore(inner cache.Store) *MockStore {
	if inner == nil {
		inner = cache.NewMemoryStore(1000)
	}
	return &MockStore{inner: inner}
}

// WithGetError 让 Get 返回 err
func (s *MockStore) WithGetError(err error) *MockStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getErr = err
	return s
}

// WithPutError 让 Put 返回 err
func (s *MockStore) WithPutError(err error) *MockStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putErr = err
	return s
}

// Get 实现 cache.Store
func (s *MockStore) Get(ctx context.Context, key string) (*cache.Entry, error) {
	s.mu.Lock()
	s.gets++
	err := s.getErr
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.inner.Get(ctx, key)
}

// Put 实现 cache.Store
func (s *MockStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	s.puts++
	err := s.putErr
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.inner.Put(ctx, key, value, ttl)
}

// Counts 返回 Get/Put 调用次数
func (s *MockStore) Counts() (gets, puts int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gets, s.puts
}
