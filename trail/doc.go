// Copyright 2026 SchemaFlow Authors
// Use of this source code is governed by the project license.

/*
Package trail 提供诊断轨迹的落盘能力。

# 概述

每次后端调用（无论成败）都会生成一条 Entry，由网关写入配置的 Sink。
轨迹纯粹用于事后排查：控制器只写不读，任何 Sink 失败都只记日志，
绝不影响请求本身的结果。

# 内置 Sink

  - FileSink  — 人类可读的文本转录，固定相对路径，只追加
  - GormSink  — SQLite 表（glebarez 纯 Go 驱动），可按请求 ID 查询历史
  - RedisSink — Redis Stream（XADD，封顶长度），供外部消费者订阅
  - MultiSink — 扇出到多个 Sink
  - NopSink   — 关闭轨迹时的空实现

# 并发约定

FileSink 在进程内加锁保证单写者；跨进程并发写同一文件需要外部串行化，
不在本包职责范围内。GormSink 与 RedisSink 依赖底层存储自身的并发语义。
*/
package trail
