// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package testutil 提供 ragcache 测试的共享工具和辅助函数。

# 核心能力

  - 上下文辅助: TestContext / TestContextWithTimeout / CancelledContext，
    自动注册 Cleanup 防止泄漏
  - 可控时钟: FakeClock，配合 cache.WithClock 测试 TTL 过期
  - 异步断言: WaitFor / AssertEventuallyTrue
  - 数据工具: MustJSON / MustParseJSON / AssertJSONEqual

# 子包

  - testutil/mocks: MockProvider（llm.Provider）、MockGenerator（词袋嵌入生成器）、
    MockStore（可注入错误的 cache.Store），均支持 Builder 模式
  - testutil/fixtures: ChatResponse 工厂、咖啡关键词表与小型商品目录

# 使用示例

	gen := mocks.NewMockGenerator(fixtures.CoffeeVocabulary...)
	provider := mocks.NewMockProvider().WithResponse("Try the Ethiopian Light.")
*/
package testutil
