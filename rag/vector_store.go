package rag

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Item 检索结果条目.
type Item struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Score       float64 `json:"score"`
}

// SimilaritySearch 最近邻检索接口
type SimilaritySearch interface {
	Search(ctx context.Context, vector []float64, k int) ([]Item, error)
}

// IndexedItem 带向量的待索引条目
type IndexedItem struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Embedding   []float64 `json:"embedding"`
}

// ====== 内存向量索引（暴力余弦，用于测试和小规模目录）======

// InMemoryIndex 内存向量索引
type InMemoryIndex struct {
	items  []IndexedItem
	mu     sync.RWMutex
	logger *zap.Logger
}

// NewInMemoryIndex 创建内存向量索引
func NewInMemoryIndex(logger *zap.Logger) *InMemoryIndex {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InMemoryIndex{
		items:  make([]IndexedItem, 0),
		logger: logger.With(zap.String("component", "memory_index")),
	}
}

// Add 添加条目，同 ID 的条目会被替换
func (s *InMemoryIndex) Add(ctx context.Context, items ...IndexedItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, it := range items {
		if len(it.Embedding) == 0 {
			return fmt.Errorf("item %s has no embedding", it.ID)
		}
		replaced := false
		for i := range s.items {
			if s.items[i].ID == it.ID {
				s.items[i] = it
				replaced = true
				break
			}
		}
		if !replaced {
			s.items = append(s.items, it)
		}
	}

	s.logger.Debug("items added to index",
		zap.Int("count", len(items)),
		zap.Int("total", len(s.items)))

	return nil
}

// Search 返回与 vector 最相似的 k 个条目，按相似度降序，相同分数保持插入顺序
func (s *InMemoryIndex) Search(ctx context.Context, vector []float64, k int) ([]Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k <= 0 {
		return []Item{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]Item, 0, len(s.items))
	for _, it := range s.items {
		results = append(results, Item{
			ID:          it.ID,
			Name:        it.Name,
			Description: it.Description,
			Score:       cosineSimilarity(vector, it.Embedding),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if k > len(results) {
		k = len(results)
	}
	return results[:k], nil
}

// Count 返回条目数量
func (s *InMemoryIndex) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// 余弦相似度，维度不一致或零向量返回 0
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0.0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0.0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
