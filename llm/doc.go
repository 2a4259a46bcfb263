// Package llm 定义生成后端的统一契约：Backend 接口、类型化错误码、
// 基于 Token 估算的路由器，以及经济档的令牌速率保护。
//
// 所有适配器必须把厂商错误映射为带真实错误码的 *llm.Error，
// 上层只允许通过错误码分类失败，禁止对错误消息做字符串匹配。
package llm
