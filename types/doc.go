// Copyright (c) SchemaFlow Authors.
// Licensed under the MIT License.

/*
Package types 提供 SchemaFlow 各组件共享的类型契约。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 llm、structured、gateway、
trail 等上层模块提供统一的数据模型。所有跨包共享的结构体、枚举和错误
码均定义于此，以避免循环依赖。

# 核心类型

  - StructuredRequest  — 一次结构化生成请求（Prompt、Schema 描述、后端提示、尝试预算）
  - SchemaDescriptor   — 目标 Schema 描述（根 Schema 或条目 Schema + 包装键）
  - BackendProfile     — 后端画像（层级、成本、是否支持受约束解码）
  - RawResponse        — 后端原始文本响应
  - ExtractedPayload   — 提取结果（协议标记：fenced / bracket / tagged / none）
  - NormalizedPayload  — 规范化载荷（封闭包装键集合：skills / gaps / advice）
  - RecordKind         — 记录判别标签（skill / gap / advice / unknown）
  - ValidationOutcome  — 校验结论（成功标记、消息、失败条目索引）
  - AttemptLog         — 单次尝试记录（只追加，创建后不可变）
  - ResultEnvelope     — 终态信封，永不为 nil；失败时携带空的规范集合
  - Error / ErrorCode  — 结构化错误体系，含 Retryable 与 Cause 链

# 约定

后端错误分类只允许通过错误码进行，禁止对错误消息做字符串匹配。
NormalizedPayload 一经产生，除非请求明确期望多个类别，至多一个包装键非空。
*/
package types
