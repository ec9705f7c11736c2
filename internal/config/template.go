package config

import (
	"encoding/json"

	"ltexfrag/pkg/contract"
)

// DefaultTemplateConfig 返回一个“可运行”的默认配置模板：
// - 默认输入为 STDIN（"-"），Writer 输出到 ./out 目录；
// - 组件名采用仓库内置实现；
// - 选项给出安全中性默认值，并包含全部键。
func DefaultTemplateConfig() Config {
	d := Defaults()
	cfg := Config{
		Inputs:     []string{"-"},
		Logging:    Logging{Level: "info"},
		Components: d.Components,
		Settings: contract.SettingsSpec{
			LanguageShortCode: contract.DefaultLanguageShortCode,
			Commands: map[string]contract.Classification{
				`\cite[]{}`: contract.ClassDummy,
				`\ref{}`:    contract.ClassDummy,
			},
		},
	}
	cfg.Options.Reader = json.RawMessage(`{
  "buf_size": 65536,
  "exclude_dir_names": [".git", "node_modules", "vendor"],
  "extensions": [".tex", ".latex", ".sty", ".cls", ".rnw", ".md", ".markdown", ".txt"]
}`)
	cfg.Options.Fragmentizer = map[string]json.RawMessage{
		"latex":     json.RawMessage(`{"comment_marker": "%", "skip_comments": false}`),
		"rsweave":   json.RawMessage(`{"comment_marker": "%", "skip_comments": false}`),
		"markdown":  json.RawMessage(`{}`),
		"plaintext": json.RawMessage(`{"comment_marker": "#"}`),
	}
	cfg.Options.Encoder = json.RawMessage(`{"skip_disabled": false}`)
	cfg.Options.Writer = json.RawMessage(`{
  "output_dir": "out",
  "atomic": true,
  "flat": false,
  "perm_file": 0,
  "perm_dir": 0,
  "buf_size": 65536,
  "compress": "none",
  "level": 0
}`)
	return cfg
}
