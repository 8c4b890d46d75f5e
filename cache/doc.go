// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 cache 提供嵌入缓存与回答缓存共用的键值存储层：精确匹配查找、
基于时间的过期，以及在存储边界上的失败降级。

# 概述

Store 只关心字节与过期时间，不理解载荷含义。上层（llm/embedding、
llm/response）通过 Memoizer 复用同一套 get-or-create 流程：查缓存，
命中直接返回；未命中调用昂贵的上游计算，成功后写回。

# 核心接口与类型

  - Store：Get/Put 两个操作。过期与不存在都返回 ErrCacheMiss，
    调用方无需也无法区分两者。Put 为 upsert，同键覆盖而不是重复。
  - Entry：缓存条目，CreatedAt/ExpiresAt 决定有效性，HitCount 与
    LastAccessed 仅用于观测。
  - SafeStore：存储边界。读失败降级为未命中，写失败吞掉并记录日志，
    每次操作带短超时。
  - Memoizer：通用 get-or-create，singleflight 合并同键并发未命中。
    compute 不随调用方取消，每个等待者只受自己的 ctx 约束。
  - HashKey：对长度前缀编码的字段做 SHA-256，相邻字段不会因拼接而碰撞。

# 存储后端

  - MemoryStore：本地 LRU（O(1) 操作），按条目 TTL 惰性过期。
  - RedisStore：每个键一个 hash，原生 TTL 加 expires_at 校验。
  - SQLStore：基于 GORM 的 cache_entries 表，支持 postgres/mysql/sqlite，
    Purge 用于带外清理过期行。
  - TieredStore：L1 MemoryStore + L2 持久化存储，读穿透并回填。

# 使用方式

	store := cache.NewSafeStore(cache.NewMemoryStore(1000), 200*time.Millisecond, logger)
	m := cache.NewMemoizer[[]float64]("embedding", store, 24*time.Hour, logger)
	res, err := m.GetOrCreate(ctx, key, compute)
*/
package cache
