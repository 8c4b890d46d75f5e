// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 embedding 提供带缓存的文本嵌入：同一段文本在同一模型、同一输入类型下
只会向上游请求一次向量，之后直接从缓存读取。

# 概述

嵌入向量由 (规范化文本, 模型 ID, 输入类型) 唯一决定。Cache 以这三者
生成键，命中时跳过上游调用；未命中时调用 Generator，结果非空才写回。
缓存层的任何故障都降级为未命中，不会影响嵌入结果本身。

# 核心接口

  - Generator：上游嵌入接口，Embed(ctx, text, inputType)。
  - Cache：GetOrCreate 返回 types.Lookup[[]float64]，Hit 标记是否来自缓存。
  - Embedder：绑定 Cache、Generator 与模型 ID，供意图路由与检索使用。
  - InputType：query（用户查询）与 document（被索引的文本）。
  - Normalizer：去除首尾空白并截断超长输入（按字符或按 token）。

# 上游实现

  - OpenAIGenerator：OpenAI 兼容的 /v1/embeddings 客户端，带速率限制，
    HTTP 状态码映射为 types.Error。

# 使用方式

	gen := embedding.NewOpenAIGenerator(embedding.DefaultOpenAIConfig())
	c := embedding.NewCache(store, embedding.DefaultConfig(), logger)
	res, err := c.GetOrCreate(ctx, "dark roast", gen.Model(), embedding.InputTypeQuery, gen)
*/
package embedding
