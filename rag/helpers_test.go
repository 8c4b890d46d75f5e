package rag

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
	"unicode"

	"github.com/BaSui01/ragcache/cache"
	"github.com/BaSui01/ragcache/llm/embedding"
	"github.com/BaSui01/ragcache/llm/response"
	"github.com/BaSui01/ragcache/types"
	"github.com/stretchr/testify/require"
)

// 关键词词袋向量，便于构造可预期的相似度
var vocab = []string{"light", "roast", "coffee", "dark", "espresso", "decaf", "brew", "grind", "hello", "hours"}

type keywordGenerator struct {
	calls atomic.Int32
}

func (g *keywordGenerator) Embed(ctx context.Context, text string, inputType embedding.InputType) ([]float64, error) {
	g.calls.Add(1)
	return keywordVector(text), nil
}

func keywordVector(text string) []float64 {
	vec := make([]float64, len(vocab))
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool { return !unicode.IsLetter(r) })
	for _, w := range words {
		for i, v := range vocab {
			if w == v {
				vec[i]++
			}
		}
	}
	return vec
}

var errUpstream = errors.New("upstream unavailable")

func failingGenerator() embedding.Generator {
	return embedding.GeneratorFunc(func(ctx context.Context, text string, inputType embedding.InputType) ([]float64, error) {
		return nil, errUpstream
	})
}

// recordingAnswerer 记录生成请求
type recordingAnswerer struct {
	mu    sync.Mutex
	calls int
	reqs  []response.Request
	err   error
}

func (a *recordingAnswerer) Generate(ctx context.Context, req response.Request) (response.Answer, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	a.reqs = append(a.reqs, req)
	if a.err != nil {
		return response.Answer{}, a.err
	}
	return response.Answer{Text: "answer for " + req.Query + " (" + req.Persona + ")", Model: "test-llm"}, nil
}

func (a *recordingAnswerer) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

func (a *recordingAnswerer) last() response.Request {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.reqs[len(a.reqs)-1]
}

// brokenStore 所有操作都失败
type brokenStore struct{}

func (brokenStore) Get(ctx context.Context, key string) (*cache.Entry, error) {
	return nil, types.NewError(types.ErrCacheUnavailable, "connection refused")
}

func (brokenStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return types.NewError(types.ErrCacheUnavailable, "connection refused")
}

type failingSearch struct{ calls atomic.Int32 }

func (s *failingSearch) Search(ctx context.Context, vector []float64, k int) ([]Item, error) {
	s.calls.Add(1)
	return nil, errors.New("index offline")
}

// pipeline 测试用完整管线
type pipeline struct {
	gen          *keywordGenerator
	answerer     *recordingAnswerer
	intentEmbed  *embedding.Embedder
	catalogEmbed *embedding.Embedder
	router       *IntentRouter
	retriever    *Retriever
	orchestrator *Orchestrator
	index        *InMemoryIndex
}

type pipelineOption func(*pipelineConfig)

type pipelineConfig struct {
	store       cache.Store
	intentGen   embedding.Generator
	search      SimilaritySearch
	sharedModel bool
}

func withStore(s cache.Store) pipelineOption {
	return func(c *pipelineConfig) { c.store = s }
}

func withIntentGenerator(g embedding.Generator) pipelineOption {
	return func(c *pipelineConfig) { c.intentGen = g }
}

func withSearch(s SimilaritySearch) pipelineOption {
	return func(c *pipelineConfig) { c.search = s }
}

func withSharedModel() pipelineOption {
	return func(c *pipelineConfig) { c.sharedModel = true }
}

// newPipeline 构建管线：样例和目录在启动时嵌入，之后计数清零
func newPipeline(t *testing.T, opts ...pipelineOption) *pipeline {
	t.Helper()
	cfg := pipelineConfig{store: cache.NewMemoryStore(1000)}
	for _, o := range opts {
		o(&cfg)
	}

	ctx := context.Background()
	gen := &keywordGenerator{}

	embStore := cache.NewSafeStore(cfg.store, 0, nil).WithName(embedding.CacheName)
	embCache := embedding.NewCache(embStore, embedding.DefaultConfig(), nil)

	intentModel, catalogModel := "intent-model", "catalog-model"
	if cfg.sharedModel {
		catalogModel = intentModel
	}

	intentEmbed := embedding.NewEmbedder(embCache, gen, intentModel)
	catalogEmbed := embedding.NewEmbedder(embCache, gen, catalogModel)

	exemplars, err := EmbedExemplars(ctx, intentEmbed, DefaultExemplarSpecs())
	require.NoError(t, err)

	index := NewInMemoryIndex(nil)
	_, err = IndexCatalog(ctx, index, catalogEmbed, DefaultCatalog())
	require.NoError(t, err)

	if cfg.intentGen != nil {
		intentEmbed = embedding.NewEmbedder(embCache, cfg.intentGen, intentModel)
	}
	var search SimilaritySearch = index
	if cfg.search != nil {
		search = cfg.search
	}

	router := NewIntentRouter(intentEmbed, exemplars, DefaultIntentRouterConfig(), nil)
	retriever := NewRetriever(catalogEmbed, search, DefaultRetrieverConfig(), nil)

	respStore := cache.NewSafeStore(cfg.store, 0, nil).WithName(response.CacheName)
	responses := response.NewCache(respStore, response.DefaultConfig(), nil)
	answerer := &recordingAnswerer{}

	gen.calls.Store(0)
	return &pipeline{
		gen:          gen,
		answerer:     answerer,
		intentEmbed:  intentEmbed,
		catalogEmbed: catalogEmbed,
		router:       router,
		retriever:    retriever,
		orchestrator: NewOrchestrator(router, retriever, responses, answerer, DefaultOrchestratorConfig(), nil),
		index:        index,
	}
}
