// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 llm 定义回答生成所依赖的大语言模型抽象：聊天消息、请求与响应模型，
以及统一的 Provider 接口。

# 子包

  - llm/embedding：带缓存的文本嵌入
  - llm/response：带缓存的回答生成
  - llm/providers：跨服务商的错误映射、OpenAI 兼容格式与重试包装
  - llm/providers/openaicompat：OpenAI 兼容的聊天补全客户端
  - llm/tokenizer：基于 tiktoken 的 token 计数与截断

# 核心接口

  - [Provider]：Completion / HealthCheck / Name
  - [ChatRequest] / [ChatResponse]：聊天请求与响应
*/
package llm
