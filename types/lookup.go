package types

// Lookup 是缓存类操作的返回值：载荷加显式的来源标记。
// Hit 为 true 表示载荷来自缓存，昂贵的上游调用被跳过。
type Lookup[T any] struct {
	Value T    `json:"value"`
	Hit   bool `json:"hit"`
}

// Hit 构造命中结果
func Hit[T any](v T) Lookup[T] {
	return Lookup[T]{Value: v, Hit: true}
}

// Miss 构造未命中结果（载荷为新计算值）
func Miss[T any](v T) Lookup[T] {
	return Lookup[T]{Value: v}
}
