// Package factory 提供后端适配器的集中式工厂，
// 按 vendor 名称映射构造函数，打破 providers 包与各 vendor 子包之间的循环依赖。
package factory
