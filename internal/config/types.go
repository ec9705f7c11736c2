package config

import (
	"encoding/json"

	"ltexfrag/pkg/contract"
)

// Config: 运行期只读配置（一次解析，运行期不变）。
// 键使用 snake_case；未知字段在解析期失败。
type Config struct {
	Inputs []string `json:"inputs"`
	// Dialect: 强制方言；空表示按扩展名判定。
	Dialect string  `json:"dialect"`
	Logging Logging `json:"logging"`

	// Settings: 片段化的初始设置（语言、命令分类等）。
	Settings contract.SettingsSpec `json:"settings"`

	// 组件名选择（空则使用默认名）。
	Components Components `json:"components"`

	// 各组件 Options 子树，原样 JSON 传入工厂。
	Options Options `json:"options"`
}

// Logging: 仅保留日志等级可配置；输出路径与轮转策略为固定默认。
type Logging struct {
	Level string `json:"level"`
}

// Components: 组件名选择（注册表中的实现名）。
type Components struct {
	Reader  string `json:"reader"`
	Encoder string `json:"encoder"`
	Writer  string `json:"writer"`
}

// Options: 各组件的原样 JSON Options。
// Fragmentizer 以方言名为键。
type Options struct {
	Reader       json.RawMessage            `json:"reader"`
	Fragmentizer map[string]json.RawMessage `json:"fragmentizer"`
	Encoder      json.RawMessage            `json:"encoder"`
	Writer       json.RawMessage            `json:"writer"`
}
