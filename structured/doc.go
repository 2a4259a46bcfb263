// Copyright 2026 SchemaFlow Authors
// Use of this source code is governed by the project license.

/*
# 概述

包 structured 负责把不可靠的自由文本整理成规范载荷：
定位（extract）、解析与修复（repair）、规范化（normalize）、校验（validate）。

后端的输出形态是对抗性的：正确数据装错了包装键、该是对象的字段被压成
字符串、JSON 被截断、或者干脆是散文。本包的职责是在不丢失原始文本的
前提下尽量修出一个可校验的结构，修不出来时给出可诊断的失败。

# 主要类型

  - Extractor — 按固定优先级（围栏块 → 外层括号 → 标记协议）定位候选载荷
  - Normalizer — 把未知形状的解析值整理成 types.NormalizedPayload
  - Tables — 包装键别名、指纹规则、标记协议槽位、修复规则，全部为数据
  - Validator — 按 JSONSchema 做整包与逐项双粒度校验

# 典型用法

	tables := structured.DefaultTables()
	ex := structured.NewExtractor(tables)
	norm := structured.NewNormalizer(tables)

	candidate := ex.Extract(rawText)
	value, err := structured.ParseLoose(candidate.Raw)
	payload, err := norm.Normalize(value)
	outcome := structured.ValidatePayload(payload, structured.SkillDescriptor())

# 主要能力

  - 三种提取协议共用一套控制流，新增记录形状只需扩充 Tables
  - 宽松解析：尾逗号、未闭合括号、Python 字面量的分级修复
  - 逐项修复：字符串降级的子对象被提升为最小合法对象，原文不丢
  - 空输入规范化为全部包装键的空列表，下游永远可以安全迭代
*/
package structured
