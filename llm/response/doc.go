// Package response 提供最终回答的缓存（第二级缓存）.
//
// 键由查询、检索上下文、意图与人设四个字段共同决定，任一字段变化都会得到不同的键。
// 命中时完全跳过回答生成。TTL 默认 5 分钟，远短于嵌入缓存。
package response
