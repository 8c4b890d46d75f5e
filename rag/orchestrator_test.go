package rag

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/BaSui01/ragcache/internal/ctxkeys"
	"github.com/BaSui01/ragcache/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const coffeeContext = "- Ethiopian Light: floral notes\n" +
	"- Colombia Supremo: balanced medium roast with caramel sweetness\n" +
	"- Sumatra Mandheling: earthy dark roast, low acidity"

func TestOrchestrator_CoffeeScenario(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()

	first, err := p.orchestrator.Handle(ctx, "light roast coffee", "novice")
	require.NoError(t, err)
	assert.Equal(t, IntentProductRAG, first.Intent)
	assert.InDelta(t, 1.0, first.Confidence, 1e-9)
	assert.Equal(t, 3, first.ItemsRetrieved)
	assert.False(t, first.ResponseCacheHit)
	assert.False(t, first.EmbeddingCacheHit)
	assert.False(t, first.IntentEmbeddingHit)
	assert.False(t, first.RetrievalEmbeddingHit)
	assert.False(t, first.Degraded)
	assert.NotEmpty(t, first.RequestID)
	assert.Equal(t, int32(2), p.gen.calls.Load())
	assert.Equal(t, 1, p.answerer.count())

	req := p.answerer.last()
	assert.Equal(t, "light roast coffee", req.Query)
	assert.Equal(t, coffeeContext, req.Context)
	assert.Equal(t, IntentProductRAG, req.Intent)
	assert.Equal(t, "novice", req.Persona)

	second, err := p.orchestrator.Handle(ctx, "light roast coffee", "novice")
	require.NoError(t, err)
	assert.True(t, second.ResponseCacheHit)
	assert.True(t, second.EmbeddingCacheHit)
	assert.True(t, second.IntentEmbeddingHit)
	assert.True(t, second.RetrievalEmbeddingHit)
	assert.Equal(t, first.Answer, second.Answer)
	assert.Equal(t, first.Model, second.Model)
	assert.NotEqual(t, first.RequestID, second.RequestID)

	// 全命中：没有任何上游调用
	assert.Equal(t, int32(2), p.gen.calls.Load())
	assert.Equal(t, 1, p.answerer.count())
}

func TestOrchestrator_SharedEmbeddingModel(t *testing.T) {
	p := newPipeline(t, withSharedModel())

	out, err := p.orchestrator.Handle(context.Background(), "light roast coffee", "novice")
	require.NoError(t, err)

	// 检索阶段的查询嵌入复用分类阶段刚写入的条目
	assert.False(t, out.IntentEmbeddingHit)
	assert.True(t, out.RetrievalEmbeddingHit)
	assert.True(t, out.EmbeddingCacheHit)
	assert.Equal(t, int32(1), p.gen.calls.Load())
}

func TestOrchestrator_CombinedEmbeddingHitFlag(t *testing.T) {
	const query = "light roast coffee"

	tests := []struct {
		name          string
		warmIntent    bool
		warmRetrieval bool
		wantGenerated int32
	}{
		{"miss/miss", false, false, 2},
		{"hit/miss", true, false, 1},
		{"miss/hit", false, true, 1},
		{"hit/hit", true, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newPipeline(t)
			ctx := context.Background()

			if tt.warmIntent {
				_, err := p.router.Route(ctx, query)
				require.NoError(t, err)
			}
			if tt.warmRetrieval {
				_, err := p.retriever.Search(ctx, query, 0)
				require.NoError(t, err)
			}
			p.gen.calls.Store(0)

			out, err := p.orchestrator.Handle(ctx, query, "expert")
			require.NoError(t, err)
			assert.Equal(t, tt.warmIntent, out.IntentEmbeddingHit)
			assert.Equal(t, tt.warmRetrieval, out.RetrievalEmbeddingHit)
			assert.Equal(t, tt.warmIntent || tt.warmRetrieval, out.EmbeddingCacheHit)
			assert.Equal(t, tt.wantGenerated, p.gen.calls.Load())
			assert.False(t, out.ResponseCacheHit)
		})
	}
}

func TestOrchestrator_ResponseHitSkipsGeneration(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()

	first, err := p.orchestrator.Handle(ctx, "light roast coffee", "novice")
	require.NoError(t, err)

	// 生成器此后必然失败；命中时不应被调用
	p.answerer.err = types.NewError(types.ErrUpstreamError, "llm down")

	second, err := p.orchestrator.Handle(ctx, "light roast coffee", "novice")
	require.NoError(t, err)
	assert.True(t, second.ResponseCacheHit)
	assert.Equal(t, first.Answer, second.Answer)
	assert.Equal(t, 1, p.answerer.count())
}

func TestOrchestrator_PersonaChangesResponseKey(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()

	_, err := p.orchestrator.Handle(ctx, "light roast coffee", "novice")
	require.NoError(t, err)

	out, err := p.orchestrator.Handle(ctx, "light roast coffee", "expert")
	require.NoError(t, err)
	assert.False(t, out.ResponseCacheHit)
	assert.True(t, out.EmbeddingCacheHit)
	assert.Equal(t, 2, p.answerer.count())
	assert.Equal(t, "expert", p.answerer.last().Persona)
}

func TestOrchestrator_NonRetrievalIntent(t *testing.T) {
	p := newPipeline(t)

	out, err := p.orchestrator.Handle(context.Background(), "hello, how are you", "")
	require.NoError(t, err)
	assert.Equal(t, IntentGeneralConversation, out.Intent)
	assert.Equal(t, 0, out.ItemsRetrieved)
	assert.False(t, out.Degraded)
	assert.Equal(t, "", p.answerer.last().Context)
	assert.Equal(t, int32(1), p.gen.calls.Load())
}

func TestOrchestrator_LowConfidenceFallsBack(t *testing.T) {
	p := newPipeline(t)

	out, err := p.orchestrator.Handle(context.Background(), "tell me a joke", "")
	require.NoError(t, err)
	assert.Equal(t, IntentGeneralConversation, out.Intent)
	assert.Equal(t, 0.0, out.Confidence)
	assert.Equal(t, 0, out.ItemsRetrieved)
}

func TestOrchestrator_ClassificationFailureDegrades(t *testing.T) {
	search := &failingSearch{}
	p := newPipeline(t, withIntentGenerator(failingGenerator()), withSearch(search))

	out, err := p.orchestrator.Handle(context.Background(), "light roast coffee", "novice")
	require.NoError(t, err)
	assert.True(t, out.Degraded)
	assert.Equal(t, IntentGeneralConversation, out.Intent)
	assert.Equal(t, int32(0), search.calls.Load())
	assert.Equal(t, "", p.answerer.last().Context)
	assert.NotEmpty(t, out.Answer)
}

func TestOrchestrator_RetrievalFailureDegrades(t *testing.T) {
	search := &failingSearch{}
	p := newPipeline(t, withSearch(search))

	out, err := p.orchestrator.Handle(context.Background(), "light roast coffee", "novice")
	require.NoError(t, err)
	assert.True(t, out.Degraded)
	assert.Equal(t, IntentProductRAG, out.Intent)
	assert.Equal(t, int32(1), search.calls.Load())
	assert.Equal(t, 0, out.ItemsRetrieved)
	assert.Equal(t, "", p.answerer.last().Context)
}

func TestOrchestrator_GenerationFailureSurfaces(t *testing.T) {
	p := newPipeline(t)
	p.answerer.err = types.NewError(types.ErrUpstreamTimeout, "deadline")

	out, err := p.orchestrator.Handle(context.Background(), "light roast coffee", "novice")
	require.Error(t, err)
	assert.Nil(t, out)
	assert.Equal(t, types.ErrGeneration, types.GetErrorCode(err))
	assert.Equal(t, "Sorry, I couldn't generate a response. Please retry.", UserMessage(err))

	// 失败不写缓存，恢复后重新生成
	p.answerer.err = nil
	out, err = p.orchestrator.Handle(context.Background(), "light roast coffee", "novice")
	require.NoError(t, err)
	assert.False(t, out.ResponseCacheHit)
}

func TestOrchestrator_StoreFailureDegradesToMiss(t *testing.T) {
	p := newPipeline(t, withStore(brokenStore{}))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		out, err := p.orchestrator.Handle(ctx, "light roast coffee", "novice")
		require.NoError(t, err)
		assert.False(t, out.ResponseCacheHit)
		assert.False(t, out.EmbeddingCacheHit)
		assert.False(t, out.Degraded)
	}
	assert.Equal(t, 2, p.answerer.count())
	assert.Equal(t, int32(4), p.gen.calls.Load())
}

func TestOrchestrator_EmptyQuery(t *testing.T) {
	p := newPipeline(t)

	_, err := p.orchestrator.Handle(context.Background(), "   ", "novice")
	require.Error(t, err)
	assert.Equal(t, types.ErrInvalidRequest, types.GetErrorCode(err))
	assert.Equal(t, "Please enter a question.", UserMessage(err))
	assert.Equal(t, 0, p.answerer.count())
}

func TestOrchestrator_RequestIDFromContext(t *testing.T) {
	p := newPipeline(t)
	ctx := ctxkeys.WithRequestID(context.Background(), "req-42")

	out, err := p.orchestrator.Handle(ctx, "light roast coffee", "novice")
	require.NoError(t, err)
	assert.Equal(t, "req-42", out.RequestID)
}

func TestOrchestrator_WithoutRetriever(t *testing.T) {
	p := newPipeline(t)
	o := NewOrchestrator(p.router, nil, p.orchestrator.responses, p.answerer, DefaultOrchestratorConfig(), nil)

	assert.False(t, o.RequiresRetrieval(IntentProductRAG))
	out, err := o.Handle(context.Background(), "light roast coffee", "novice")
	require.NoError(t, err)
	assert.Equal(t, IntentProductRAG, out.Intent)
	assert.Equal(t, 0, out.ItemsRetrieved)
}

type recordingObserver struct {
	mu      sync.Mutex
	intents []string
	answers []bool
}

func (r *recordingObserver) RecordIntent(intent string, confidence float64, fallback bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.intents = append(r.intents, intent)
}

func (r *recordingObserver) RecordAnswer(intent string, responseHit, embeddingHit, degraded bool, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.answers = append(r.answers, responseHit)
}

func TestOrchestrator_Observer(t *testing.T) {
	p := newPipeline(t)
	obs := &recordingObserver{}
	p.orchestrator.WithObserver(obs)

	for i := 0; i < 2; i++ {
		_, err := p.orchestrator.Handle(context.Background(), "light roast coffee", "novice")
		require.NoError(t, err)
	}
	assert.Equal(t, []string{IntentProductRAG, IntentProductRAG}, obs.intents)
	assert.Equal(t, []bool{false, true}, obs.answers)
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "", UserMessage(nil))
	assert.Contains(t, UserMessage(types.NewError(types.ErrRateLimited, "x")), "Too many requests")
	assert.Contains(t, UserMessage(types.NewError(types.ErrGeneration, "x")), "couldn't generate")
}
