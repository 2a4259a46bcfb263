package structured

import (
	"regexp"
	"strings"

	"github.com/BaSui01/schemaflow/types"
)

// TaggedMarker 是标记协议的段落定界符，每条记录被一对定界符包裹。
const TaggedMarker = "@@@"

var (
	taggedBlockRe = regexp.MustCompile(`(?s)@@@(.*?)@@@`)
	// 键必须全大写并顶行出现，值一直延伸到下一个键行或段尾
	taggedKeyRe = regexp.MustCompile(`(?m)^[ \t]*([A-Z][A-Z_]*)[ \t]*:`)
)

// parseTagged 解析 @@@ 段落并直接产出规范载荷。每个段落按特征标记
// 分类成一种记录形状，再按该形状的槽位表抽取字段。没有成对定界符
// 时返回 false，让提取器落到下一条协议。
//
// 混合形状的段落全部归入最后一个被识别的类别，错放的记录会在逐项
// 校验时带着具体下标暴露出来。
func parseTagged(raw string, rules []TagKindRule) (types.NormalizedPayload, bool) {
	blocks := taggedBlockRe.FindAllStringSubmatch(raw, -1)
	if len(blocks) == 0 {
		return nil, false
	}

	records := make([]types.Record, 0, len(blocks))
	lastKind := types.KindSkill
	for _, m := range blocks {
		block := m[1]
		rule, ok := classifySegment(block, rules)
		if !ok {
			continue
		}
		records = append(records, fillSlots(block, rule.Slots))
		lastKind = rule.Kind
	}
	if len(records) == 0 {
		return nil, false
	}

	payload := types.EmptyPayload()
	payload[types.WrapperForKind(lastKind)] = records
	return payload, true
}

// classifySegment 返回第一条命中的分类规则。规则按特异性排序，
// 无标记的规则兜底。
func classifySegment(block string, rules []TagKindRule) (TagKindRule, bool) {
	for _, rule := range rules {
		if len(rule.Markers) == 0 {
			return rule, true
		}
		for _, marker := range rule.Markers {
			if strings.Contains(block, marker) {
				return rule, true
			}
		}
	}
	return TagKindRule{}, false
}

// fieldsOf 扫描段内所有键的位置并切出对应的值。同名键首次出现生效。
func fieldsOf(block string) map[string]string {
	matches := taggedKeyRe.FindAllStringSubmatchIndex(block, -1)
	fields := make(map[string]string, len(matches))
	for i, m := range matches {
		key := block[m[2]:m[3]]
		valEnd := len(block)
		if i+1 < len(matches) {
			valEnd = matches[i+1][0]
		}
		val := strings.TrimSpace(block[m[1]:valEnd])
		if _, seen := fields[key]; !seen {
			fields[key] = val
		}
	}
	return fields
}

// fillSlots 按槽位表组装一条规范记录。别名按序尝试，缺失时用槽位
// 默认值补齐；默认值为空的槽位直接省略该字段。
func fillSlots(block string, slots []TagSlot) types.Record {
	fields := fieldsOf(block)
	rec := types.Record{}
	for _, slot := range slots {
		val := ""
		for _, alias := range slot.Aliases {
			if v, ok := fields[alias]; ok && v != "" {
				val = v
				break
			}
		}
		if val == "" {
			val = slot.Default
		}
		if val == "" {
			continue
		}
		setPath(rec, slot.Path, val)
	}
	return rec
}

func setPath(rec map[string]any, path []string, val string) {
	for i := 0; i < len(path)-1; i++ {
		next, ok := rec[path[i]].(map[string]any)
		if !ok {
			next = map[string]any{}
			rec[path[i]] = next
		}
		rec = next
	}
	rec[path[len(path)-1]] = val
}
