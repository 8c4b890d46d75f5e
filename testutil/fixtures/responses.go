// =============================================================================
// 📦 测试数据工厂 - LLM 响应与咖啡目录
// =============================================================================
package fixtures

import (
	"time"

	"github.com/BaSui01/ragcache/llm"
	"github.com/BaSui01/ragcache/rag"
)

// =============================================================================
// 🎯 ChatResponse 工厂
// =============================================================================

// SimpleResponse 返回简单的文本响应
func SimpleResponse(content string) *llm.ChatResponse {
	return &llm.ChatResponse{
		ID:       "resp-001",
		Provider: "mock",
		Model:    "gpt-4o-mini",
		Choices: []llm.ChatChoice{
			{
				Index:        0,
				FinishReason: "stop",
				Message: llm.Message{
					Role:    llm.RoleAssistant,
					Content: content,
				},
			},
		},
		Usage: llm.ChatUsage{
			PromptTokens:     10,
			CompletionTokens: 20,
			TotalTokens:      30,
		},
		CreatedAt: time.Now(),
	}
}

// ResponseWithUsage 返回带自定义 Token 使用量的响应
func ResponseWithUsage(content string, promptTokens, completionTokens int) *llm.ChatResponse {
	resp := SimpleResponse(content)
	resp.Usage = llm.ChatUsage{
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		TotalTokens:      promptTokens + completionTokens,
	}
	return resp
}

// EmptyResponse 返回没有选项的响应
func EmptyResponse() *llm.ChatResponse {
	resp := SimpleResponse("")
	resp.Choices = nil
	return resp
}

// =============================================================================
// ☕ 目录与意图样例
// =============================================================================

// CoffeeVocabulary 与默认目录、默认意图样例配套的关键词表，
// 供 mocks.NewMockGenerator 使用
var CoffeeVocabulary = []string{
	"light", "dark", "medium", "roast", "floral", "fruity", "earthy",
	"espresso", "decaf", "brew", "grind", "water", "temperature",
	"hello", "thanks", "coffee", "caramel", "acidity",
}

// SmallCatalog 返回三条商品的小目录
func SmallCatalog() []rag.Product {
	return []rag.Product{
		{ID: "eth-light", Name: "Ethiopian Light", Description: "light roast with floral notes"},
		{ID: "col-medium", Name: "Colombia Supremo", Description: "balanced medium roast with caramel sweetness"},
		{ID: "sum-dark", Name: "Sumatra Mandheling", Description: "earthy dark roast, low acidity"},
	}
}
