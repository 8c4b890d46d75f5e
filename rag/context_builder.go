package rag

import (
	"strings"
	"unicode/utf8"
)

// DefaultMaxContextChars 默认上下文长度上限（字符）
const DefaultMaxContextChars = 2000

// BuildContext 把检索结果渲染为 "- {name}: {description}" 行，按行截断到 maxChars 字符以内。
// 只使用名称与描述，分数、ID 和向量不会进入上下文。
func BuildContext(items []Item, maxChars int) string {
	if maxChars <= 0 {
		maxChars = DefaultMaxContextChars
	}

	var b strings.Builder
	used := 0
	for _, it := range items {
		line := "- " + oneLine(it.Name) + ": " + oneLine(it.Description)
		n := utf8.RuneCountInString(line)
		if used > 0 {
			n++ // 换行符
		}
		if used+n > maxChars {
			break
		}
		if used > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
		used += n
	}
	return b.String()
}

// oneLine 折叠空白，避免描述中的换行伪造额外条目
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
