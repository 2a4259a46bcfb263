// Copyright 2026 SchemaFlow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package testutil 提供 SchemaFlow 测试的共享工具和辅助函数。

# 概述

testutil 包为整个项目的单元测试提供统一的辅助能力，
避免各包重复实现相似的测试基础设施。所有测试应优先使用此包
中的工具函数和 Mock 实现。

# 核心能力

  - 上下文辅助: TestContext / TestContextWithTimeout / CancelledContext，
    自动注册 Cleanup 防止泄漏
  - 断言工具: AssertRecordsEqual / AssertCollectionSizes / AssertJSONEqual /
    AssertNoError / AssertError / AssertContains 等
  - 异步断言: AssertEventuallyTrue / AssertEventuallyEqual，
    支持超时轮询等待条件满足
  - 数据工具: MustJSON / MustParseJSON / Topics / CopyPayload / CopyRecords，
    简化测试数据构造与深拷贝

# 子包

  - testutil/mocks: Mock 实现，核心是 Backend（llm.Backend 的可编程替身），
    支持 Builder 模式、响应序列、错误注入与调用记录
  - testutil/fixtures: 测试数据工厂，提供各种形状的后端原始响应样例：
    规范 JSON、围栏包裹、别名包装、标签协议、截断与 Python 字面量等

# 使用示例

	ctx := testutil.TestContext(t)
	backend := mocks.NewBackend().WithResponse(fixtures.ConformantSkillJSON())
	resp, err := backend.Generate(ctx, req)
	testutil.AssertNoError(t, err)
*/
package testutil
