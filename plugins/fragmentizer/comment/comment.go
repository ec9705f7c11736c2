// Package comment 实现指令注释预处理：识别形如 `% ltex: language=de-DE` 的整行注释，
// 在其位置切分片段并为后续文本应用设置覆盖。输出对每个输入片段构成精确划分。
package comment

import (
	"regexp"
	"strconv"
	"strings"

	"ltexfrag/internal/diag"
	"ltexfrag/internal/langmap"
	"ltexfrag/pkg/contract"
)

// Options: 指令注释的行标记。
type Options struct {
	// Marker: 行注释起始符，如 "%"（LaTeX）、"#"（纯文本）。
	Marker string `json:"marker"`
}

// Pass 为指令注释预处理；构造后只读，可并发复用。
type Pass struct {
	dialect contract.DialectID
	re      *regexp.Regexp
}

// New 以行注释标记构造预处理；空标记按方言取默认值。
func New(dialect contract.DialectID, opts *Options) *Pass {
	marker := ""
	if opts != nil {
		marker = strings.TrimSpace(opts.Marker)
	}
	if marker == "" {
		marker = DefaultMarker(dialect)
	}
	// 标记前后仅允许行内空白；(?i) 仅作用于前缀
	re := regexp.MustCompile(`(?m)^[ \t]*` + regexp.QuoteMeta(marker) + `[ \t]*(?i:ltex):(.*)$`)
	return &Pass{dialect: dialect, re: re}
}

// DefaultMarker 返回方言的行注释标记。
func DefaultMarker(dialect contract.DialectID) string {
	switch dialect {
	case contract.DialectLatex, contract.DialectRSweave:
		return "%"
	default:
		return "#"
	}
}

// Fragmentize 将整篇文档包装为单一片段后执行预处理。
func (p *Pass) Fragmentize(code string, settings contract.Settings) []contract.Fragment {
	return p.Apply([]contract.Fragment{{Dialect: p.dialect, Code: code, Settings: settings}})
}

// Apply 对每个片段按指令行切分；指令行本身归入其后的片段。
func (p *Pass) Apply(frags []contract.Fragment) []contract.Fragment {
	out := make([]contract.Fragment, 0, len(frags))
	for _, frag := range frags {
		settings := frag.Settings
		prev := 0
		for _, loc := range p.re.FindAllStringSubmatchIndex(frag.Code, -1) {
			if loc[0] > prev {
				out = append(out, frag.Sub(prev, loc[0], settings))
				prev = loc[0]
			}
			settings = ApplyDirective(settings, frag.Dialect, frag.Code[loc[2]:loc[3]], "comment")
		}
		out = append(out, frag.Sub(prev, len(frag.Code), settings))
	}
	return out
}

// ApplyDirective 解析一行空白分隔的 key=value 设置并返回更新后的快照。
// 支持 language=<code|长名> 与 enabled=true|false；其余项记 invalid_directive 诊断。
func ApplyDirective(s contract.Settings, dialect contract.DialectID, line, comp string) contract.Settings {
	for _, item := range strings.Fields(line) {
		key, value, ok := strings.Cut(item, "=")
		if !ok || value == "" {
			warnDirective(comp, item)
			continue
		}
		switch strings.ToLower(key) {
		case "language":
			code, ok := resolveLanguage(value)
			if !ok {
				diag.Default().Warn(comp, diag.WarnUnknownLanguage, "unknown language", map[string]string{"language": value})
				diag.IncWarning(comp, diag.WarnUnknownLanguage)
				continue
			}
			s = s.WithLanguageShortCode(code)
		case "enabled":
			on, err := strconv.ParseBool(value)
			if err != nil {
				warnDirective(comp, item)
				continue
			}
			s = s.WithEnabled(dialect, on)
		default:
			warnDirective(comp, item)
		}
	}
	return s
}

// resolveLanguage 接受区域短码或 babel 长名。
func resolveLanguage(v string) (string, bool) {
	if code, ok := langmap.ShortCode(v); ok {
		return code, true
	}
	if _, err := langmap.Tag(v); err != nil {
		return "", false
	}
	return v, true
}

func warnDirective(comp, item string) {
	diag.Default().Warn(comp, diag.WarnInvalidDirective, "invalid directive", map[string]string{"prototype": item})
	diag.IncWarning(comp, diag.WarnInvalidDirective)
}
