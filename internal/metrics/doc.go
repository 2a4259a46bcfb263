// Copyright 2026 SchemaFlow Authors
// Use of this source code is governed by the project license.

/*
包 metrics 提供基于 Prometheus 的网关指标采集能力。

# 概述

本包通过 Collector 实现 gateway.Recorder，把网关生命周期事件
（请求终态、后端尝试、调用耗时、路由估算）导出为 Prometheus 指标。
使用 promauto 自动注册机制，避免手动管理 Registry；所有指标按
namespace 隔离，便于 Grafana 等工具进行可视化与告警。

# 指标清单

  - requests_total{status}：请求终态计数
    （success / max_retries_reached / quota_exhausted）。
  - request_duration_seconds：端到端请求耗时，含全部重试与退避。
  - attempts_total{backend,outcome}：后端尝试计数，按结果类别分组。
  - backend_call_duration_seconds{backend}：单次后端调用耗时。
  - estimated_tokens：路由时的 Token 估算分布，路由阈值落在桶边界，
    可直接读出高级档分流比例。
*/
package metrics
