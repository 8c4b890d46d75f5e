package rag

import (
	"context"
	"errors"
	"testing"

	"github.com/BaSui01/ragcache/internal/ctxkeys"
	"github.com/BaSui01/ragcache/llm"
	"github.com/BaSui01/ragcache/llm/response"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	req  *llm.ChatRequest
	resp *llm.ChatResponse
	err  error
}

func (p *stubProvider) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	p.req = req
	return p.resp, p.err
}

func (p *stubProvider) HealthCheck(ctx context.Context) (*llm.HealthStatus, error) {
	return &llm.HealthStatus{Healthy: true}, nil
}

func (p *stubProvider) Name() string { return "stub" }

func TestBuildMessages(t *testing.T) {
	msgs := BuildMessages(response.Request{
		Query:   "light roast coffee",
		Context: "- Ethiopian Light: floral notes",
		Intent:  IntentProductRAG,
		Persona: "Novice",
	})
	require.Len(t, msgs, 2)
	assert.Equal(t, llm.RoleSystem, msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "avoid jargon")
	assert.Contains(t, msgs[0].Content, "Only recommend products")
	assert.Equal(t, llm.RoleUser, msgs[1].Role)
	assert.Equal(t, "Products:\n- Ethiopian Light: floral notes\n\nQuestion: light roast coffee", msgs[1].Content)

	msgs = BuildMessages(response.Request{Query: "hi", Persona: "barista"})
	assert.Contains(t, msgs[0].Content, "suited to a barista customer")
	assert.NotContains(t, msgs[0].Content, "Only recommend")
	assert.Equal(t, "Question: hi", msgs[1].Content)
}

func TestLLMAnswerGenerator(t *testing.T) {
	p := &stubProvider{resp: &llm.ChatResponse{
		Model:   "gpt-4o-mini",
		Choices: []llm.ChatChoice{{Message: llm.Message{Role: llm.RoleAssistant, Content: "  Try the Ethiopian Light.\n"}}},
	}}
	g := NewLLMAnswerGenerator(p, GeneratorConfig{Model: "gpt-4o-mini", Temperature: 0.2})

	ctx := ctxkeys.WithRequestID(context.Background(), "req-7")
	ans, err := g.Generate(ctx, response.Request{Query: "q", Intent: IntentProductRAG, Persona: PersonaExpert})
	require.NoError(t, err)
	assert.Equal(t, response.Answer{Text: "Try the Ethiopian Light.", Model: "gpt-4o-mini"}, ans)

	require.NotNil(t, p.req)
	assert.Equal(t, "req-7", p.req.TraceID)
	assert.Equal(t, 512, p.req.MaxTokens)
	assert.Equal(t, IntentProductRAG, p.req.Metadata["intent"])
	assert.Equal(t, PersonaExpert, p.req.Metadata["persona"])
}

func TestLLMAnswerGenerator_Error(t *testing.T) {
	p := &stubProvider{err: errors.New("boom")}
	_, err := NewLLMAnswerGenerator(p, GeneratorConfig{}).Generate(context.Background(), response.Request{Query: "q"})
	assert.EqualError(t, err, "boom")
}
