package cache

import (
	"context"
	"sync"
	"time"
)

// ============================================================
// MemoryStore 本地 LRU 存储（双向链表实现 O(1) 操作，按条目 TTL 惰性过期）
// ============================================================

// MemoryStore 进程内存储
type MemoryStore struct {
	mu       sync.Mutex
	capacity int
	items    map[string]*lruNode
	head     *lruNode // 最近使用
	tail     *lruNode // 最久未使用
	now      func() time.Time
}

type lruNode struct {
	entry Entry
	prev  *lruNode
	next  *lruNode
}

// NewMemoryStore 创建内存存储，capacity <= 0 时使用 1000
func NewMemoryStore(capacity int, opts ...Option) *MemoryStore {
	if capacity <= 0 {
		capacity = 1000
	}
	o := newOptions(opts)
	return &MemoryStore{
		capacity: capacity,
		items:    make(map[string]*lruNode),
		now:      o.now,
	}
}

// Get 实现 Store
func (s *MemoryStore) Get(_ context.Context, key string) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	node, ok := s.items[key]
	if !ok {
		return nil, ErrCacheMiss
	}

	now := s.now()
	if !node.entry.Valid(now) {
		s.removeNode(node)
		delete(s.items, key)
		return nil, ErrCacheMiss
	}

	s.moveToHead(node)
	node.entry.HitCount++
	node.entry.LastAccessed = now

	e := node.entry
	return &e, nil
}

// Put 实现 Store
func (s *MemoryStore) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if err := validateTTL(ttl); err != nil {
		return err
	}
	now := s.now()
	s.putEntry(Entry{
		Key:       key,
		Value:     append([]byte(nil), value...),
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	})
	return nil
}

// putEntry 按原样写入条目，保留 CreatedAt/ExpiresAt（分层回填使用）
func (s *MemoryStore) putEntry(e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if node, ok := s.items[e.Key]; ok {
		node.entry = e
		s.moveToHead(node)
		return
	}

	if len(s.items) >= s.capacity {
		s.evictTail()
	}

	node := &lruNode{entry: e}
	s.items[e.Key] = node
	s.addToHead(node)
}

// Len 当前条目数（含尚未清理的过期条目）
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Purge 删除所有已过期条目，返回删除数量
func (s *MemoryStore) Purge(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var removed int64
	for key, node := range s.items {
		if !node.entry.Valid(now) {
			s.removeNode(node)
			delete(s.items, key)
			removed++
		}
	}
	return removed, nil
}

func (s *MemoryStore) addToHead(node *lruNode) {
	node.prev = nil
	node.next = s.head
	if s.head != nil {
		s.head.prev = node
	}
	s.head = node
	if s.tail == nil {
		s.tail = node
	}
}

func (s *MemoryStore) removeNode(node *lruNode) {
	if node.prev != nil {
		node.prev.next = node.next
	} else {
		s.head = node.next
	}
	if node.next != nil {
		node.next.prev = node.prev
	} else {
		s.tail = node.prev
	}
	node.prev = nil
	node.next = nil
}

func (s *MemoryStore) moveToHead(node *lruNode) {
	if node == s.head {
		return
	}
	s.removeNode(node)
	s.addToHead(node)
}

func (s *MemoryStore) evictTail() {
	if s.tail == nil {
		return
	}
	node := s.tail
	s.removeNode(node)
	delete(s.items, node.entry.Key)
}
