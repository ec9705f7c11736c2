package config

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"ltexfrag/pkg/contract"
)

// Marshal 以指定格式序列化配置；输出可被 Load 以同一格式读回。
// YAML/TOML 经由通用树转换，原样 JSON 子树展开为普通表。
func Marshal(format Format, cfg Config) ([]byte, error) {
	js, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return nil, err
	}
	if format == FormatJSON {
		return append(js, '\n'), nil
	}
	var tree map[string]any
	if err := json.Unmarshal(js, &tree); err != nil {
		return nil, err
	}
	pruneNulls(tree)
	var buf bytes.Buffer
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(tree); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
	case FormatTOML:
		if err := toml.NewEncoder(&buf).Encode(tree); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: config format %q", contract.ErrInvalidInput, format)
	}
	return buf.Bytes(), nil
}

// pruneNulls 删除值为 null 的键（TOML 无空值表示）。
func pruneNulls(m map[string]any) {
	for k, v := range m {
		switch vv := v.(type) {
		case nil:
			delete(m, k)
		case map[string]any:
			pruneNulls(vv)
		}
	}
}
