// =============================================================================
// 📦 测试数据工厂 - 后端原始响应
// =============================================================================
// 提供各种形态的后端输出样本：规范 JSON、围栏块、标记协议、散文、
// 截断 JSON 等，覆盖提取-解析-规范化链路的真实输入分布。
// =============================================================================
package fixtures

import (
	"fmt"
	"strings"
)

// --- 规范响应 ---

// ConformantSkillJSON 返回直接可校验的技能载荷（无包装噪音）。
func ConformantSkillJSON() string {
	return `{
  "skills": [
    {
      "topic": "Rust",
      "priority": "MUST_HAVE",
      "analysis": {
        "quote": "3+ years of systems programming in Rust",
        "hidden_bar": "Production async experience expected."
      }
    },
    {
      "topic": "Kubernetes",
      "priority": "NICE_TO_HAVE",
      "analysis": {
        "quote": "Familiarity with container orchestration",
        "hidden_bar": "None detected."
      }
    }
  ]
}`
}

// ConformantGapJSON 返回直接可校验的差距载荷。
func ConformantGapJSON() string {
	return `{
  "gaps": [
    {
      "topic": "CUDA",
      "evidence": {
        "status": "NOT_FOUND",
        "snippet": "No evidence found."
      },
      "effort": {
        "level": "HIGH",
        "strategy": "Complete an online GPU programming course.",
        "estimated_action": "Update resume."
      }
    }
  ]
}`
}

// ConformantAdviceJSON 返回直接可校验的建议载荷。
func ConformantAdviceJSON() string {
	return `{
  "advice": [
    {
      "topic": "Resume summary",
      "action_type": "RESUME_REWRITE",
      "priority": "MEDIUM",
      "suggestion": {
        "rationale": "The summary buries the strongest signal.",
        "after_text": "Systems engineer with 5 years of Rust in production."
      }
    }
  ]
}`
}

// --- 包装形态变体 ---

// FencedResponse 把载荷包进 markdown 围栏块，前后带闲聊。
func FencedResponse(payload string) string {
	return fmt.Sprintf("Sure! Here is the structured analysis you asked for:\n\n```json\n%s\n```\n\nLet me know if you need anything else.", payload)
}

// BareBracketResponse 把载荷混进散文，无围栏。
func BareBracketResponse(payload string) string {
	return fmt.Sprintf("Based on my review of the job description, %s That concludes the analysis.", payload)
}

// WrongWrapperSkillJSON 返回装错包装键的技能载荷（需要别名修复）。
func WrongWrapperSkillJSON() string {
	return `{"requirements": [{"topic": "Go", "priority": "MUST_HAVE", "analysis": {"quote": "Expert-level Go required"}}]}`
}

// BareListResponse 返回裸字符串列表（需要技能降级修复）。
func BareListResponse() string {
	return `["Rust", "CUDA", "Distributed systems"]`
}

// --- 标记协议 ---

// TaggedSkillResponse 返回标记协议形态的技能输出。
func TaggedSkillResponse() string {
	return strings.TrimSpace(`
Here is what I found.

@@@
TOPIC: Rust
PRIORITY: MUST_HAVE
QUOTE: 3+ years of systems programming
HIDDEN_BAR: Production async experience expected.
@@@

@@@
TOPIC: Kubernetes
PRIORITY: NICE_TO_HAVE
QUOTE: Familiarity with container orchestration
@@@
`)
}

// TaggedGapResponse 返回标记协议形态的差距输出。
func TaggedGapResponse() string {
	return strings.TrimSpace(`
@@@
TOPIC: CUDA
EVIDENCE_STATUS: NOT_FOUND
EVIDENCE: No mention of GPU work in the resume.
EFFORT_LEVEL: HIGH
STRATEGY: Complete an online GPU programming course.
@@@
`)
}

// --- 故障形态 ---

// ProseResponse 返回纯散文：无围栏、无括号、无标记。
func ProseResponse() string {
	return "I carefully reviewed the job description and the resume. " +
		"The candidate shows strong systems programming experience, " +
		"though I could not find any mention of GPU work. Overall this " +
		"looks like a reasonable fit with a few gaps worth addressing."
}

// TruncatedSkillJSON 返回被截断的技能列表（括号不闭合，可修复）。
func TruncatedSkillJSON() string {
	return `[{"topic": "Rust", "analysis": {"quote": "systems programming in Rust"`
}

// TrailingCommaJSON 返回带尾逗号的载荷（可修复）。
func TrailingCommaJSON() string {
	return `{"skills": [{"topic": "Go", "analysis": {"quote": "Expert-level Go"},},]}`
}

// PythonLiteralResponse 返回 Python 字面量风格的载荷（可修复）。
func PythonLiteralResponse() string {
	return `{'skills': [{'topic': 'Terraform', 'analysis': {'quote': 'IaC with Terraform'}, 'verified': True, 'notes': None}]}`
}

// StringFieldGapJSON 返回子对象被压成字符串的差距载荷（需逐项修复）。
func StringFieldGapJSON() string {
	return `{"gaps": [{"topic": "CUDA", "evidence": "no GPU work found in resume", "effort": {"level": "HIGH", "strategy": "Take a course.", "estimated_action": "Update resume."}}]}`
}
