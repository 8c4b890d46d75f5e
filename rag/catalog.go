package rag

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/BaSui01/ragcache/llm/embedding"
	"gopkg.in/yaml.v3"
)

// Product 目录中的商品
type Product struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
}

// DefaultCatalog 内置咖啡目录
func DefaultCatalog() []Product {
	return []Product{
		{ID: "eth-light", Name: "Ethiopian Light", Description: "floral notes"},
		{ID: "kenya-aa", Name: "Kenya AA", Description: "bright, berry-like acidity"},
		{ID: "colombia-med", Name: "Colombia Supremo", Description: "balanced medium roast with caramel sweetness"},
		{ID: "sumatra-dark", Name: "Sumatra Mandheling", Description: "earthy dark roast, low acidity"},
		{ID: "italian-espresso", Name: "Italian Espresso", Description: "dark roast blend for espresso"},
		{ID: "swiss-decaf", Name: "Swiss Water Decaf", Description: "chemical-free decaf, chocolate finish"},
	}
}

type catalogFile struct {
	Products []Product `yaml:"products"`
}

// LoadCatalog 从 YAML 文件加载商品目录
func LoadCatalog(path string) ([]Product, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}

	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog file: %w", err)
	}

	seen := make(map[string]struct{}, len(f.Products))
	for i, p := range f.Products {
		if strings.TrimSpace(p.ID) == "" || strings.TrimSpace(p.Name) == "" {
			return nil, fmt.Errorf("product %d: id and name are required", i)
		}
		if _, dup := seen[p.ID]; dup {
			return nil, fmt.Errorf("product %d: duplicate id %q", i, p.ID)
		}
		seen[p.ID] = struct{}{}
	}
	return f.Products, nil
}

// IndexCatalog 通过嵌入缓存（document 类型）嵌入商品并写入索引，返回新嵌入（未命中缓存）的数量
func IndexCatalog(ctx context.Context, index *InMemoryIndex, embedder Embedder, products []Product) (int, error) {
	generated := 0
	items := make([]IndexedItem, 0, len(products))
	for _, p := range products {
		res, err := embedder.Embed(ctx, p.Name+": "+p.Description, embedding.InputTypeDocument)
		if err != nil {
			return generated, fmt.Errorf("embed product %s: %w", p.ID, err)
		}
		if !res.Hit {
			generated++
		}
		items = append(items, IndexedItem{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			Embedding:   res.Value,
		})
	}
	return generated, index.Add(ctx, items...)
}
