// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 server 管理问答 HTTP 服务的生命周期：非阻塞启动、可选 TLS 与优雅关闭。

# 核心类型

  - Manager：封装 http.Server 与 net.Listener，提供 Start/Shutdown/Wait。
  - Config：监听地址、读写超时、优雅关闭超时与证书路径，
    由 ConfigFrom 从 config.ServerConfig 派生。

# 主要能力

  - 同时配置证书与私钥时，Start 以 tlsutil 的加固配置提供 HTTPS。
  - Wait 在 ctx 取消（通常来自 signal.NotifyContext）或服务异常时触发关闭。
*/
package server
