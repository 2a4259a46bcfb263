package structured

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/BaSui01/schemaflow/types"
)

// Normalizer 把未知形状的解析值整理成规范载荷。所有形状知识来自
// Tables，控制流本身不含任何字段名。Normalizer 无状态，可并发使用。
type Normalizer struct {
	tables *Tables
}

// NewNormalizer 创建规范化器。tables 为 nil 时使用内置表。
func NewNormalizer(tables *Tables) *Normalizer {
	if tables == nil {
		tables = DefaultTables()
	}
	return &Normalizer{tables: tables}
}

// Normalize 产出规范载荷或一个可放进纠正性提示的错误。
// 整理是幂等的：规范载荷再过一遍不会变。
func (n *Normalizer) Normalize(value any) (types.NormalizedPayload, error) {
	switch v := value.(type) {
	case types.NormalizedPayload:
		return n.normalizeMap(v.AsMap())
	case map[string]any:
		return n.normalizeMap(v)
	case []any:
		return n.normalizeList(v)
	default:
		return nil, types.Errorf(types.ErrValidationFailure,
			"payload must be an object or a list, got %T", value)
	}
}

// normalizeList 处理顶层就是列表的载荷。
// 空列表 ⇒ 全部包装键的空列表；首项是对象 ⇒ 指纹分类后整体包装；
// 首项是字符串 ⇒ 技能强制转换。
func (n *Normalizer) normalizeList(items []any) (types.NormalizedPayload, error) {
	if len(items) == 0 {
		return types.EmptyPayload(), nil
	}

	switch first := items[0].(type) {
	case map[string]any:
		kind := n.tables.KindOf(first)
		if kind == types.KindUnknown {
			return nil, types.Errorf(types.ErrValidationFailure,
				"unrecognized record shape: fields %v match no fingerprint", fieldNames(first))
		}
		records, err := n.repairAll(kind, types.WrapperForKind(kind), items)
		if err != nil {
			return nil, err
		}
		return types.PayloadOf(types.WrapperForKind(kind), records), nil
	case string:
		records, err := n.repairAll(types.KindSkill, types.WrapperSkills, items)
		if err != nil {
			return nil, err
		}
		return types.PayloadOf(types.WrapperSkills, records), nil
	default:
		return nil, types.Errorf(types.ErrValidationFailure,
			"list items must be objects or strings, got %T", items[0])
	}
}

// normalizeMap 处理顶层是对象的载荷，按特异性递减尝试四条路径：
// 规范键/别名收集 → 有界嵌套搜索 → 单条记录 → 失败。
func (n *Normalizer) normalizeMap(m map[string]any) (types.NormalizedPayload, error) {
	payload, found, err := n.collectWrapped(m)
	if err != nil {
		return nil, err
	}
	if found {
		return payload, nil
	}

	if p, ok := n.searchNested(m, 0); ok {
		return p, nil
	}

	if kind := n.tables.KindOf(m); kind != types.KindUnknown {
		rec := n.repairRecord(kind, m)
		return types.PayloadOf(types.WrapperForKind(kind), []types.Record{rec}), nil
	}

	return nil, types.Errorf(types.ErrValidationFailure,
		"no canonical collection found in object with keys %v", fieldNames(m))
}

// collectWrapped 收集规范键或其别名下的列表。规范键在场时别名不再
// 参与（快路径），否则按别名表顺序改名，每个规范键第一个命中的别名
// 生效。
func (n *Normalizer) collectWrapped(m map[string]any) (types.NormalizedPayload, bool, error) {
	payload := types.EmptyPayload()
	found := false

	for _, key := range types.WrapperKeys() {
		if list, ok := m[key].([]any); ok {
			records, err := n.repairAll(types.KindForWrapper(key), key, list)
			if err != nil {
				return nil, false, err
			}
			payload[key] = records
			found = true
		}
	}
	if found {
		return payload, true, nil
	}

	for _, a := range n.tables.WrapperAliases {
		list, ok := m[a.Alias].([]any)
		if !ok || len(payload[a.Canonical]) > 0 {
			continue
		}
		records, err := n.repairAll(types.KindForWrapper(a.Canonical), a.Alias, list)
		if err != nil {
			return nil, false, err
		}
		payload[a.Canonical] = records
		found = true
	}
	return payload, found, nil
}

// searchNested 在嵌套结构里找一个可归类的非空记录列表。深度上限
// 防御对抗性的深层嵌套；已知包装键和别名优先于任意键。
func (n *Normalizer) searchNested(v any, depth int) (types.NormalizedPayload, bool) {
	if depth >= n.tables.SearchDepth {
		return nil, false
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}

	for _, key := range n.scanOrder(m) {
		switch child := m[key].(type) {
		case []any:
			if len(child) == 0 {
				continue
			}
			if p, err := n.normalizeList(child); err == nil && !p.IsEmpty() {
				return p, true
			}
		case map[string]any:
			if p, ok := n.searchNested(child, depth+1); ok {
				return p, true
			}
		}
	}
	return nil, false
}

// scanOrder 返回确定性的键扫描顺序：规范键、别名、再按字典序补齐
// 其余的键。
func (n *Normalizer) scanOrder(m map[string]any) []string {
	order := make([]string, 0, len(m))
	seen := make(map[string]bool, len(m))

	push := func(key string) {
		if _, ok := m[key]; ok && !seen[key] {
			order = append(order, key)
			seen[key] = true
		}
	}

	for _, key := range types.WrapperKeys() {
		push(key)
	}
	for _, a := range n.tables.WrapperAliases {
		push(a.Alias)
	}

	rest := make([]string, 0, len(m))
	for key := range m {
		if !seen[key] {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)
	return append(order, rest...)
}

// repairAll 把一个列表整理成干净的记录集。对象逐条修复；技能集合里
// 的裸字符串被强制转换成最小技能记录，太短的当垃圾丢掉；其它集合里
// 的非对象项直接报错，错误信息带下标，方便纠正性重试。
func (n *Normalizer) repairAll(kind types.RecordKind, key string, items []any) ([]types.Record, error) {
	records := make([]types.Record, 0, len(items))
	for i, item := range items {
		switch rec := item.(type) {
		case map[string]any:
			records = append(records, n.repairRecord(kind, rec))
		default:
			if kind == types.KindSkill {
				if r, ok := n.coerceString(item); ok {
					records = append(records, r)
				}
				continue
			}
			return nil, types.Errorf(types.ErrValidationFailure,
				"item %d in %q is not an object (got %T)", i, key, item)
		}
	}
	return records, nil
}

// coerceString 把一个裸值变成最小技能记录：原文同时充当主题和引文。
// 低于长度下限的值按垃圾处理。
func (n *Normalizer) coerceString(item any) (types.Record, bool) {
	s := strings.TrimSpace(fmt.Sprint(item))
	if utf8.RuneCountInString(s) < n.tables.CoerceMinLen {
		return nil, false
	}
	return types.Record{
		"topic":    s,
		"analysis": map[string]any{"quote": s},
	}, true
}

// repairRecord 按修复表提升字符串降级的子对象。原值永远保留在
// 语义上最贴近的字段里，其余必填字段用占位文本补齐。
func (n *Normalizer) repairRecord(kind types.RecordKind, rec map[string]any) types.Record {
	out := make(types.Record, len(rec))
	for k, v := range rec {
		out[k] = v
	}

	for _, rule := range n.tables.Repairs[kind] {
		val, present := out[rule.Field]
		switch {
		case present:
			if _, isMap := val.(map[string]any); isMap {
				continue
			}
			promoted := make(map[string]any, len(rule.Fill)+1)
			for k, v := range rule.Fill {
				promoted[k] = v
			}
			promoted[rule.IntoField] = stringify(val)
			out[rule.Field] = promoted
		case rule.Ensure != nil:
			fill := make(map[string]any, len(rule.Ensure))
			for k, v := range rule.Ensure {
				fill[k] = v
			}
			out[rule.Field] = fill
		}
	}
	return out
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	if b, err := json.Marshal(v); err == nil {
		return string(b)
	}
	return fmt.Sprint(v)
}

func fieldNames(m map[string]any) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
