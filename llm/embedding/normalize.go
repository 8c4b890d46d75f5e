package embedding

import (
	"strings"
	"unicode/utf8"
)

// Truncator 按模型上下文截断文本（例如按 token 数）.
type Truncator interface {
	Truncate(text string) string
}

// Normalizer 规范化嵌入输入：去除首尾空白，然后截断超长文本.
// 被哈希的文本与发送给上游的文本是同一个规范化结果。
type Normalizer struct {
	maxChars  int
	truncator Truncator
}

// NewNormalizer 创建规范化器，maxChars <= 0 表示不按字符截断.
func NewNormalizer(maxChars int) *Normalizer {
	return &Normalizer{maxChars: maxChars}
}

// WithTruncator 设置 token 截断器，设置后优先于字符截断.
func (n *Normalizer) WithTruncator(t Truncator) *Normalizer {
	n.truncator = t
	return n
}

// Normalize 返回规范化后的文本.
func (n *Normalizer) Normalize(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	if n.truncator != nil {
		return strings.TrimSpace(n.truncator.Truncate(text))
	}
	if n.maxChars > 0 && utf8.RuneCountInString(text) > n.maxChars {
		runes := []rune(text)
		text = strings.TrimSpace(string(runes[:n.maxChars]))
	}
	return text
}
