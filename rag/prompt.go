package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/BaSui01/ragcache/internal/ctxkeys"
	"github.com/BaSui01/ragcache/llm"
	"github.com/BaSui01/ragcache/llm/response"
)

// 内置人设
const (
	PersonaNovice = "novice"
	PersonaExpert = "expert"
)

var personaStyles = map[string]string{
	PersonaNovice: "Explain simply, avoid jargon, and suggest one clear next step.",
	PersonaExpert: "Be concise and precise; origin, process and roast details are welcome.",
}

const basePrompt = "You are a helpful assistant for a specialty coffee shop."

// GeneratorConfig 回答生成参数
type GeneratorConfig struct {
	Model       string  `json:"model" yaml:"model"`
	MaxTokens   int     `json:"max_tokens" yaml:"max_tokens"`
	Temperature float32 `json:"temperature" yaml:"temperature"`
}

// LLMAnswerGenerator 把 llm.Provider 适配为 response.Generator
type LLMAnswerGenerator struct {
	provider llm.Provider
	config   GeneratorConfig
}

// NewLLMAnswerGenerator 创建回答生成器
func NewLLMAnswerGenerator(provider llm.Provider, config GeneratorConfig) *LLMAnswerGenerator {
	if config.MaxTokens <= 0 {
		config.MaxTokens = 512
	}
	return &LLMAnswerGenerator{provider: provider, config: config}
}

// Generate 实现 response.Generator
func (g *LLMAnswerGenerator) Generate(ctx context.Context, req response.Request) (response.Answer, error) {
	chatReq := &llm.ChatRequest{
		Model:       g.config.Model,
		Messages:    BuildMessages(req),
		MaxTokens:   g.config.MaxTokens,
		Temperature: g.config.Temperature,
		Metadata: map[string]string{
			"intent":  req.Intent,
			"persona": req.Persona,
		},
	}
	if id, ok := ctxkeys.RequestID(ctx); ok {
		chatReq.TraceID = id
	}

	resp, err := g.provider.Completion(ctx, chatReq)
	if err != nil {
		return response.Answer{}, err
	}
	return response.Answer{
		Text:  strings.TrimSpace(resp.FirstContent()),
		Model: resp.Model,
	}, nil
}

// BuildMessages 构造人设相关的 system prompt 和携带上下文的用户消息
func BuildMessages(req response.Request) []llm.Message {
	var sys strings.Builder
	sys.WriteString(basePrompt)
	if style, ok := personaStyles[strings.ToLower(req.Persona)]; ok {
		sys.WriteString(" ")
		sys.WriteString(style)
	} else if req.Persona != "" {
		fmt.Fprintf(&sys, " Answer in a style suited to a %s customer.", req.Persona)
	}
	if req.Context != "" {
		sys.WriteString(" Only recommend products listed in the provided context.")
	}

	var user strings.Builder
	if req.Context != "" {
		user.WriteString("Products:\n")
		user.WriteString(req.Context)
		user.WriteString("\n\n")
	}
	user.WriteString("Question: ")
	user.WriteString(req.Query)

	return []llm.Message{
		{Role: llm.RoleSystem, Content: sys.String()},
		{Role: llm.RoleUser, Content: user.String()},
	}
}
