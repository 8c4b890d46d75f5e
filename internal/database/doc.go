// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 database 为 SQL 缓存后端打开 GORM 连接并管理连接池。

# 核心类型

  - PoolManager：连接池管理器，持有 GORM DB 实例与底层 sql.DB，
    提供 DB()、Ping()、Stats()、Close() 等生命周期方法。
  - PoolConfig：最大空闲/打开连接数、连接生命周期与健康检查间隔，
    由 PoolConfigFrom 从 config.DatabaseConfig 派生。

# 主要能力

  - Open：按驱动选择 postgres、mysql 或纯 Go 的 sqlite 方言。
  - 健康检查：StartHealthCheck 定时探活，并把连接数上报给 StatsRecorder。
*/
package database
