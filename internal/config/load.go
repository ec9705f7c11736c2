package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"ltexfrag/pkg/contract"
)

// Defaults 返回带有安全默认值的 Config 雏形。
// 输出目录默认 ./out；配置文件给出 writer 选项时整体替换。
func Defaults() Config {
	return Config{
		Logging: Logging{Level: "info"},
		Components: Components{
			Reader:  "fs",
			Encoder: "jsonl",
			Writer:  "fs",
		},
		Options: Options{Writer: json.RawMessage(`{"output_dir":"out"}`)},
	}
}

// Format: 配置文件格式。
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatForPath 按扩展名判定格式；未知扩展名按 JSON（允许注释）处理。
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".toml":
		return FormatTOML
	default:
		return FormatJSON
	}
}

// LoadFile 读取并解析配置文件（严格拒绝未知字段）。
func LoadFile(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg, err := Load(FormatForPath(path), raw)
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Load 按格式解析原始字节。
// YAML/TOML 先解为通用树再转 JSON，统一走严格 JSON 解码，保证三种格式的字段集合一致。
func Load(format Format, raw []byte) (Config, error) {
	var js []byte
	switch format {
	case FormatJSON:
		js = jsonc.ToJSON(raw)
	case FormatYAML:
		var tree map[string]any
		if err := yaml.Unmarshal(raw, &tree); err != nil {
			return Config{}, err
		}
		b, err := json.Marshal(tree)
		if err != nil {
			return Config{}, err
		}
		js = b
	case FormatTOML:
		var tree map[string]any
		if _, err := toml.Decode(string(raw), &tree); err != nil {
			return Config{}, err
		}
		b, err := json.Marshal(tree)
		if err != nil {
			return Config{}, err
		}
		js = b
	default:
		return Config{}, fmt.Errorf("%w: config format %q", contract.ErrInvalidInput, format)
	}
	return LoadJSON(js)
}

// LoadJSON 从原始 JSON 解析 Config（严格拒绝未知字段）。
func LoadJSON(raw []byte) (Config, error) {
	var cfg Config
	if len(bytes.TrimSpace(raw)) == 0 {
		return cfg, errors.New("no config source provided")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Merge 按优先级合并（后者覆盖前者）。
// 标量/字符串/原样 JSON/切片为“替换”；映射按键合并，不做更深的合并。
func Merge(base, over Config) Config {
	out := base
	if len(over.Inputs) > 0 {
		out.Inputs = cloneStrings(over.Inputs)
	}
	if strings.TrimSpace(over.Dialect) != "" {
		out.Dialect = strings.TrimSpace(over.Dialect)
	}
	// Logging（仅 level）
	if strings.TrimSpace(over.Logging.Level) != "" {
		out.Logging.Level = strings.TrimSpace(over.Logging.Level)
	}
	out.Settings = mergeSettings(base.Settings, over.Settings)

	// 组件名（空不覆盖）
	if over.Components.Reader != "" {
		out.Components.Reader = over.Components.Reader
	}
	if over.Components.Encoder != "" {
		out.Components.Encoder = over.Components.Encoder
	}
	if over.Components.Writer != "" {
		out.Components.Writer = over.Components.Writer
	}

	// Options（完整替换对应键）
	if len(over.Options.Reader) > 0 {
		out.Options.Reader = cloneRaw(over.Options.Reader)
	}
	if len(over.Options.Encoder) > 0 {
		out.Options.Encoder = cloneRaw(over.Options.Encoder)
	}
	if len(over.Options.Writer) > 0 {
		out.Options.Writer = cloneRaw(over.Options.Writer)
	}
	if len(over.Options.Fragmentizer) > 0 {
		m := make(map[string]json.RawMessage, len(base.Options.Fragmentizer)+len(over.Options.Fragmentizer))
		for k, v := range base.Options.Fragmentizer {
			m[k] = v
		}
		for k, v := range over.Options.Fragmentizer {
			m[k] = cloneRaw(v)
		}
		out.Options.Fragmentizer = m
	}
	return out
}

func mergeSettings(base, over contract.SettingsSpec) contract.SettingsSpec {
	out := base
	if strings.TrimSpace(over.LanguageShortCode) != "" {
		out.LanguageShortCode = strings.TrimSpace(over.LanguageShortCode)
	}
	if over.Enabled != nil {
		out.Enabled = append([]contract.DialectID(nil), over.Enabled...)
	}
	if len(over.Dictionary) > 0 {
		out.Dictionary = cloneStrings(over.Dictionary)
	}
	if len(over.DisabledRules) > 0 {
		out.DisabledRules = cloneStrings(over.DisabledRules)
	}
	if len(over.EnabledRules) > 0 {
		out.EnabledRules = cloneStrings(over.EnabledRules)
	}
	if len(over.HiddenFalsePositives) > 0 {
		out.HiddenFalsePositives = cloneStrings(over.HiddenFalsePositives)
	}
	out.Commands = mergeClass(base.Commands, over.Commands)
	out.Environments = mergeClass(base.Environments, over.Environments)
	return out
}

func mergeClass(base, over map[string]contract.Classification) map[string]contract.Classification {
	if len(over) == 0 {
		return base
	}
	out := make(map[string]contract.Classification, len(base)+len(over))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range over {
		out[k] = v
	}
	return out
}

// EnvPrefix: 环境变量前缀。
const EnvPrefix = "LTEXFRAG_"

// EnvOverlay 从环境变量构建一个 Config 覆盖（仅解析有限键集合）。
// 支持：INPUTS, DIALECT, LANGUAGE, LOG_LEVEL, COMPONENTS_{READER,ENCODER,WRITER},
// OPTIONS_{READER,ENCODER,WRITER}_JSON 以及 OPTIONS_FRAGMENTIZER__<dialect>_JSON。
func EnvOverlay(environ []string) (Config, error) {
	var over Config
	for _, kv := range environ {
		if !strings.HasPrefix(kv, EnvPrefix) {
			continue
		}
		eq := strings.IndexByte(kv, '=')
		if eq <= len(EnvPrefix) {
			continue
		}
		nk := strings.TrimPrefix(kv[:eq], EnvPrefix)
		val := kv[eq+1:]
		switch nk {
		case "INPUTS":
			if val != "" {
				over.Inputs = splitComma(val)
			}
		case "DIALECT":
			over.Dialect = strings.TrimSpace(val)
		case "LANGUAGE":
			over.Settings.LanguageShortCode = strings.TrimSpace(val)
		case "LOG_LEVEL":
			over.Logging.Level = strings.TrimSpace(val)
		case "COMPONENTS_READER":
			over.Components.Reader = strings.TrimSpace(val)
		case "COMPONENTS_ENCODER":
			over.Components.Encoder = strings.TrimSpace(val)
		case "COMPONENTS_WRITER":
			over.Components.Writer = strings.TrimSpace(val)
		case "OPTIONS_READER_JSON":
			raw, err := envJSON(nk, val)
			if err != nil {
				return Config{}, err
			}
			over.Options.Reader = raw
		case "OPTIONS_ENCODER_JSON":
			raw, err := envJSON(nk, val)
			if err != nil {
				return Config{}, err
			}
			over.Options.Encoder = raw
		case "OPTIONS_WRITER_JSON":
			raw, err := envJSON(nk, val)
			if err != nil {
				return Config{}, err
			}
			over.Options.Writer = raw
		default:
			// OPTIONS_FRAGMENTIZER__<dialect>_JSON
			rest, ok := strings.CutPrefix(nk, "OPTIONS_FRAGMENTIZER__")
			if !ok {
				continue
			}
			dialect, ok := strings.CutSuffix(rest, "_JSON")
			if !ok || dialect == "" {
				continue
			}
			raw, err := envJSON(nk, val)
			if err != nil {
				return Config{}, err
			}
			if raw == nil {
				continue
			}
			if over.Options.Fragmentizer == nil {
				over.Options.Fragmentizer = map[string]json.RawMessage{}
			}
			over.Options.Fragmentizer[strings.ToLower(dialect)] = raw
		}
	}
	return over, nil
}

// envJSON: 原样 JSON；空值视为未设置，避免清空现有配置。
func envJSON(key, val string) (json.RawMessage, error) {
	if strings.TrimSpace(val) == "" {
		return nil, nil
	}
	if !json.Valid([]byte(val)) {
		return nil, fmt.Errorf("%w: %s%s is not valid JSON", contract.ErrInvalidInput, EnvPrefix, key)
	}
	return json.RawMessage(val), nil
}

func cloneStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneRaw(in json.RawMessage) json.RawMessage {
	if len(in) == 0 {
		return nil
	}
	out := make([]byte, len(in))
	copy(out, in)
	return out
}

func splitComma(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
