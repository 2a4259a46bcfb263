package structured

import (
	"regexp"
	"strings"

	"github.com/BaSui01/schemaflow/types"
)

var (
	fencedObjRe = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")
	fencedArrRe = regexp.MustCompile("(?s)```(?:json)?\\s*(\\[.*?\\])\\s*```")
)

// Extractor 在原始响应里定位候选的结构化载荷。
// 提取策略按固定优先级依次尝试，第一条成功的生效：
//
//  1. 围栏代码块（``` 或 ```json）里的 {...} 或 [...] 片段
//  2. 最外层括号对，谁先开口用谁
//  3. @@@ 标记协议段落
//
// 三条都失败时返回去空白的原文并标记 Protocol=none，让下游解析
// 显式失败而不是悄悄丢数据。
type Extractor struct {
	tables *Tables
}

// NewExtractor 创建提取器。tables 为 nil 时使用内置表。
func NewExtractor(tables *Tables) *Extractor {
	if tables == nil {
		tables = DefaultTables()
	}
	return &Extractor{tables: tables}
}

// Extract 定位候选载荷。标记协议直接产出解析好的记录（Value 非空），
// 其余协议只圈定子串，解析交给 ParseLoose。
func (e *Extractor) Extract(raw string) types.ExtractedPayload {
	text := strings.TrimSpace(raw)
	if text == "" {
		return types.ExtractedPayload{Raw: "", Protocol: types.ProtocolNone}
	}

	if m := fencedObjRe.FindStringSubmatch(text); m != nil {
		return types.ExtractedPayload{Raw: strings.TrimSpace(m[1]), Protocol: types.ProtocolFenced}
	}
	if m := fencedArrRe.FindStringSubmatch(text); m != nil {
		return types.ExtractedPayload{Raw: strings.TrimSpace(m[1]), Protocol: types.ProtocolFenced}
	}

	if span, ok := outerBracketSpan(text); ok {
		return types.ExtractedPayload{Raw: span, Protocol: types.ProtocolBracket}
	}

	if payload, ok := parseTagged(text, e.tables.TagKinds); ok {
		return types.ExtractedPayload{Raw: text, Protocol: types.ProtocolTagged, Value: payload}
	}

	return types.ExtractedPayload{Raw: text, Protocol: types.ProtocolNone}
}

// outerBracketSpan 找最先开口的括号类型，匹配到它同类的最后一个
// 闭合符。对象和数组哪个先出现就按哪个切。
func outerBracketSpan(text string) (string, bool) {
	brace := strings.Index(text, "{")
	bracket := strings.Index(text, "[")

	switch {
	case brace >= 0 && (bracket < 0 || brace < bracket):
		if end := strings.LastIndex(text, "}"); end > brace {
			return text[brace : end+1], true
		}
	case bracket >= 0:
		if end := strings.LastIndex(text, "]"); end > bracket {
			return text[bracket : end+1], true
		}
	}
	return "", false
}
