package structured

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/BaSui01/schemaflow/types"
)

var (
	trailingCommaObj = regexp.MustCompile(`,\s*}`)
	trailingCommaArr = regexp.MustCompile(`,\s*\]`)
	pyTrueRe         = regexp.MustCompile(`\bTrue\b`)
	pyFalseRe        = regexp.MustCompile(`\bFalse\b`)
	pyNoneRe         = regexp.MustCompile(`\bNone\b`)
)

// repairSteps 按激进程度排序，逐级尝试。每一步都在上一步的结果上继续，
// 任何一级解析成功即返回。
var repairSteps = []func(string) string{
	stripTrailingCommas,
	balanceBrackets,
	coercePythonLiterals,
	swapSingleQuotes,
}

// ParseLoose 把候选文本解析成 map 或 list。直接解析失败后进入修复
// 阶梯：去尾逗号、补未闭合括号、转换 Python 字面量、换单引号。
// 修不出来时返回 ErrParseFailure，由上层做纠正性重试。
func ParseLoose(raw string) (any, error) {
	candidate := strings.TrimSpace(raw)
	if candidate == "" {
		return nil, types.NewError(types.ErrParseFailure, "empty candidate text")
	}

	if v, ok := tryParse(candidate); ok {
		return v, nil
	}

	fixed := candidate
	for _, step := range repairSteps {
		next := step(fixed)
		if next == fixed {
			continue
		}
		fixed = next
		if v, ok := tryParse(fixed); ok {
			return v, nil
		}
	}

	return nil, types.Errorf(types.ErrParseFailure,
		"no parseable JSON payload in candidate (%d bytes)", len(candidate))
}

// tryParse 只接受对象或数组，其它 JSON 值不算结构化载荷。
// 双重编码的字符串（JSON 里又包了一层 JSON）会被拆开再试一次。
func tryParse(candidate string) (any, bool) {
	var v any
	if err := json.Unmarshal([]byte(candidate), &v); err != nil {
		return nil, false
	}
	if isStructured(v) {
		return v, true
	}
	if s, ok := v.(string); ok {
		var inner any
		if err := json.Unmarshal([]byte(s), &inner); err == nil && isStructured(inner) {
			return inner, true
		}
	}
	return nil, false
}

func isStructured(v any) bool {
	switch v.(type) {
	case map[string]any, []any:
		return true
	}
	return false
}

func stripTrailingCommas(s string) string {
	s = trailingCommaObj.ReplaceAllString(s, "}")
	return trailingCommaArr.ReplaceAllString(s, "]")
}

// balanceBrackets 补齐右括号，应对被截断的输出。只补不删。
func balanceBrackets(s string) string {
	opens := strings.Count(s, "{") - strings.Count(s, "}")
	if opens > 0 {
		s += strings.Repeat("}", opens)
	}
	brackets := strings.Count(s, "[") - strings.Count(s, "]")
	if brackets > 0 {
		s += strings.Repeat("]", brackets)
	}
	return s
}

func coercePythonLiterals(s string) string {
	s = pyTrueRe.ReplaceAllString(s, "true")
	s = pyFalseRe.ReplaceAllString(s, "false")
	return pyNoneRe.ReplaceAllString(s, "null")
}

// swapSingleQuotes 只在文本里完全没有双引号时才把单引号换成双引号，
// 避免破坏值里正常出现的撇号。
func swapSingleQuotes(s string) string {
	if strings.Contains(s, `"`) {
		return s
	}
	return strings.ReplaceAll(s, "'", `"`)
}
