// Copyright 2026 SchemaFlow Authors
// Use of this source code is governed by the project license.

/*
Package main 提供 SchemaFlow 命令行程序入口。

# 概述

cmd/schemaflow 是结构化输出网关的可执行入口，提供单次执行与批量执行
两种模式。程序加载 YAML 配置（支持环境变量覆盖），初始化 zap 日志、
OpenTelemetry 追踪与 Prometheus 指标，并将结果信封以 JSON 形式写到
标准输出；日志一律走标准错误，保证 stdout 可直接通过管道消费。

# 核心类型

  - batchItem — JSONL 输入的一行：{"id", "prompt", "schema"}

# 主要能力

  - 子命令：run（单请求）、batch（JSONL 批量）、version、help
  - schema 目录：skill、gap、advice，按名称选择结果协议
  - batch 并发：errgroup 限流执行，信封按输入顺序写出
  - Metrics 服务器：--metrics-addr 指定端口暴露 /metrics（Prometheus）
  - 优雅关闭：SIGINT / SIGTERM 取消上下文，当前尝试收尾后退出
  - 退出码：任一请求未成功解析则返回 1
  - 构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
