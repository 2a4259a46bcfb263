// Package config 提供 SchemaFlow 的配置管理功能。
//
// 配置在构造时一次性加载（默认值 → YAML 文件 → 环境变量），
// 之后为只读值对象注入各组件，不提供任何运行时修改入口。
package config
