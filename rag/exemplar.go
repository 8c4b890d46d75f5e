package rag

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/BaSui01/ragcache/llm/embedding"
	"gopkg.in/yaml.v3"
)

// 内置意图
const (
	IntentProductRAG          = "PRODUCT_RAG"
	IntentBrewingAdvice       = "BREWING_ADVICE"
	IntentGeneralConversation = "GENERAL_CONVERSATION"
)

// ExemplarSpec 未嵌入的意图样例
type ExemplarSpec struct {
	Intent              string  `json:"intent" yaml:"intent"`
	Phrase              string  `json:"phrase" yaml:"phrase"`
	ConfidenceThreshold float64 `json:"confidence_threshold,omitempty" yaml:"confidence_threshold,omitempty"`
}

// Exemplar 已嵌入的意图样例
type Exemplar struct {
	Intent              string    `json:"intent"`
	Phrase              string    `json:"phrase"`
	Embedding           []float64 `json:"-"`
	ConfidenceThreshold float64   `json:"confidence_threshold,omitempty"`
}

// ExemplarSet 启动时嵌入一次、之后只读的样例集合
type ExemplarSet []Exemplar

// DefaultExemplarSpecs 咖啡店场景的内置样例
func DefaultExemplarSpecs() []ExemplarSpec {
	return []ExemplarSpec{
		{Intent: IntentProductRAG, Phrase: "light roast coffee"},
		{Intent: IntentProductRAG, Phrase: "which coffee beans do you sell"},
		{Intent: IntentProductRAG, Phrase: "recommend a dark roast for espresso"},
		{Intent: IntentProductRAG, Phrase: "do you have decaf options"},
		{Intent: IntentBrewingAdvice, Phrase: "how do I brew pour over coffee", ConfidenceThreshold: 0.6},
		{Intent: IntentBrewingAdvice, Phrase: "what grind size for a french press", ConfidenceThreshold: 0.6},
		{Intent: IntentGeneralConversation, Phrase: "hello, how are you"},
		{Intent: IntentGeneralConversation, Phrase: "what are your opening hours"},
	}
}

type exemplarFile struct {
	Exemplars []ExemplarSpec `yaml:"exemplars"`
}

// LoadExemplarSpecs 从 YAML 文件加载样例
//
//	exemplars:
//	  - intent: PRODUCT_RAG
//	    phrase: light roast coffee
//	    confidence_threshold: 0.7
func LoadExemplarSpecs(path string) ([]ExemplarSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read exemplar file: %w", err)
	}

	var f exemplarFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse exemplar file: %w", err)
	}
	for i, s := range f.Exemplars {
		if strings.TrimSpace(s.Intent) == "" || strings.TrimSpace(s.Phrase) == "" {
			return nil, fmt.Errorf("exemplar %d: intent and phrase are required", i)
		}
		if s.ConfidenceThreshold < 0 || s.ConfidenceThreshold > 1 {
			return nil, fmt.Errorf("exemplar %d: confidence_threshold must be within [0, 1]", i)
		}
	}
	return f.Exemplars, nil
}

// EmbedExemplars 通过嵌入缓存（document 类型）嵌入全部样例，任一失败即返回错误
func EmbedExemplars(ctx context.Context, embedder Embedder, specs []ExemplarSpec) (ExemplarSet, error) {
	set := make(ExemplarSet, 0, len(specs))
	for _, s := range specs {
		res, err := embedder.Embed(ctx, s.Phrase, embedding.InputTypeDocument)
		if err != nil {
			return nil, fmt.Errorf("embed exemplar %q: %w", s.Phrase, err)
		}
		set = append(set, Exemplar{
			Intent:              s.Intent,
			Phrase:              s.Phrase,
			Embedding:           res.Value,
			ConfidenceThreshold: s.ConfidenceThreshold,
		})
	}
	return set, nil
}
