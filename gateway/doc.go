// Copyright 2026 SchemaFlow Authors
// Use of this source code is governed by the project license.

/*
Package gateway 实现结构化请求的重试控制器，是整个模块的指挥中枢。

# 概述

一次 Execute 驱动一个 types.StructuredRequest 的完整尝试循环：
路由选档 → TPM 预约 → 后端生成 → 提取 → 解析修复 → 规范化 → 校验。
语义失败（解析不出、校验不过）会把纠正指令追加到提示词尾部再试，
基础设施失败原样重试，配额耗尽立即终止。

Execute 永不返回 nil、永不 panic：无论经历什么，调用方都会拿到
一个 types.ResultEnvelope，失败信封里的规范集合也保证可安全迭代。
唯一允许报错的地方是构造函数 New。

# 退避策略

两类失败的等待时长不同：

  - 基础设施失败：base × attempt，给上游留出恢复时间
  - 语义失败：base × attempt × SemanticFactor，纠正性重试尽快进行

延迟受 MaxDelay 封顶，可选 ±25% 抖动，等待期间监听 ctx 取消。

# 典型用法

	gw, err := gateway.New(cfg, economy, premium,
		gateway.WithLogger(logger),
		gateway.WithTrailSink(sink),
	)
	if err != nil {
		return err
	}
	env := gw.Execute(ctx, &types.StructuredRequest{
		Prompt: prompt,
		Schema: structured.SkillDescriptor(),
	})
	for _, rec := range env.Payload.Records(types.WrapperSkills) {
		// ...
	}

# 并发约定

Gateway 实例只持有只读配置与无状态组件，可被多个 goroutine 并发
调用；每次 Execute 的可变状态（提示词缓冲、尝试计数）全部在调用
栈上，调用之间不共享。
*/
package gateway
