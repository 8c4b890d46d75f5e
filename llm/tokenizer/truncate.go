package tokenizer

import (
	"go.uber.org/zap"
)

// TokenTruncator 把文本截断到最多 maxTokens 个 token，用于嵌入输入规范化.
// 分词器无法解码时按 token 比例截断字符；无法计数时（编码表加载失败）改用估算器.
type TokenTruncator struct {
	tok       Tokenizer
	fallback  *EstimatorTokenizer
	maxTokens int
	logger    *zap.Logger
}

// NewTokenTruncator 创建截断器，maxTokens <= 0 时使用分词器的 MaxTokens().
func NewTokenTruncator(tok Tokenizer, maxTokens int, logger *zap.Logger) *TokenTruncator {
	if maxTokens <= 0 {
		maxTokens = tok.MaxTokens()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenTruncator{
		tok:       tok,
		fallback:  NewEstimatorTokenizer(tok.Name(), maxTokens),
		maxTokens: maxTokens,
		logger:    logger.With(zap.String("component", "token_truncator"), zap.String("tokenizer", tok.Name())),
	}
}

// MaxTokens 截断上限
func (t *TokenTruncator) MaxTokens() int {
	return t.maxTokens
}

// Truncate 实现 embedding.Truncator.
func (t *TokenTruncator) Truncate(text string) string {
	tok := t.tok
	count, err := tok.CountTokens(text)
	if err != nil {
		t.logger.Warn("token count failed, falling back to estimator", zap.Error(err))
		tok = t.fallback
		count, _ = tok.CountTokens(text)
	}
	if count <= t.maxTokens {
		return text
	}

	tokens, err := tok.Encode(text)
	if err == nil {
		if out, err := tok.Decode(tokens[:t.maxTokens]); err == nil {
			return out
		}
	}

	// 按比例截断字符
	runes := []rune(text)
	keep := len(runes) * t.maxTokens / count
	if keep < 1 {
		keep = 1
	}
	return string(runes[:keep])
}
