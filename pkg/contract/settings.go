package contract

import (
	"reflect"
	"sort"
	"strings"
)

// Classification: 命令/环境原型的处理分类。
type Classification string

const (
	ClassDefault     Classification = "default"
	ClassIgnore      Classification = "ignore"
	ClassDummy       Classification = "dummy"
	ClassPluralDummy Classification = "pluralDummy"
	ClassVowelDummy  Classification = "vowelDummy"
)

// Valid 判断分类是否为已知取值。
func (c Classification) Valid() bool {
	switch c {
	case ClassDefault, ClassIgnore, ClassDummy, ClassPluralDummy, ClassVowelDummy:
		return true
	default:
		return false
	}
}

// SettingsSpec: Settings 的可变载体（用于配置装配与导出）。
// 字段对 Fragmentizer 而言除 LanguageShortCode、Enabled 与 Commands 外均为不透明负载。
type SettingsSpec struct {
	LanguageShortCode    string                    `json:"language" yaml:"language" toml:"language"`
	Enabled              []DialectID               `json:"enabled,omitempty" yaml:"enabled,omitempty" toml:"enabled,omitempty"`
	Dictionary           []string                  `json:"dictionary,omitempty" yaml:"dictionary,omitempty" toml:"dictionary,omitempty"`
	DisabledRules        []string                  `json:"disabled_rules,omitempty" yaml:"disabled_rules,omitempty" toml:"disabled_rules,omitempty"`
	EnabledRules         []string                  `json:"enabled_rules,omitempty" yaml:"enabled_rules,omitempty" toml:"enabled_rules,omitempty"`
	Commands             map[string]Classification `json:"commands,omitempty" yaml:"commands,omitempty" toml:"commands,omitempty"`
	Environments         map[string]Classification `json:"environments,omitempty" yaml:"environments,omitempty" toml:"environments,omitempty"`
	HiddenFalsePositives []string                  `json:"hidden_false_positives,omitempty" yaml:"hidden_false_positives,omitempty" toml:"hidden_false_positives,omitempty"`
}

// Settings: 不可变配置快照。
// 所有更新均为结构化更新（返回新值，共享其余字段）；内部 map/slice 构造后不再修改，
// 因此多个 Fragment 共享同一 Settings 无需同步。
type Settings struct {
	languageShortCode string
	// enabled 为 nil 表示全部方言启用。
	enabled              map[DialectID]struct{}
	dictionary           []string
	disabledRules        []string
	enabledRules         []string
	commands             map[string]Classification
	environments         map[string]Classification
	hiddenFalsePositives []string
	// ignored 由 commands 派生，构造时计算一次。
	ignored map[string]struct{}
}

// DefaultLanguageShortCode 为未配置语言时的默认区域码。
const DefaultLanguageShortCode = "en-US"

// DefaultSettings 返回默认快照（en-US，全部方言启用）。
func DefaultSettings() Settings {
	return NewSettings(SettingsSpec{})
}

// NewSettings 以拷贝方式从 spec 构造不可变 Settings。
// canon 可选：对命令原型做规范化（通常传入 command.CanonicalPrototype）；nil 表示仅去空白。
func NewSettings(spec SettingsSpec, canon ...func(string) string) Settings {
	norm := strings.TrimSpace
	if len(canon) > 0 && canon[0] != nil {
		norm = canon[0]
	}
	s := Settings{
		languageShortCode:    strings.TrimSpace(spec.LanguageShortCode),
		dictionary:           cloneStrings(spec.Dictionary),
		disabledRules:        cloneStrings(spec.DisabledRules),
		enabledRules:         cloneStrings(spec.EnabledRules),
		hiddenFalsePositives: cloneStrings(spec.HiddenFalsePositives),
	}
	if s.languageShortCode == "" {
		s.languageShortCode = DefaultLanguageShortCode
	}
	if spec.Enabled != nil {
		s.enabled = make(map[DialectID]struct{}, len(spec.Enabled))
		for _, d := range spec.Enabled {
			s.enabled[d] = struct{}{}
		}
	}
	if len(spec.Commands) > 0 {
		s.commands = make(map[string]Classification, len(spec.Commands))
		s.ignored = make(map[string]struct{})
		for k, v := range spec.Commands {
			p := norm(k)
			s.commands[p] = v
			if v == ClassIgnore {
				s.ignored[p] = struct{}{}
			}
		}
	}
	if len(spec.Environments) > 0 {
		s.environments = make(map[string]Classification, len(spec.Environments))
		for k, v := range spec.Environments {
			s.environments[strings.TrimSpace(k)] = v
		}
	}
	return s
}

// LanguageShortCode 返回当前生效的区域码。
func (s Settings) LanguageShortCode() string {
	if s.languageShortCode == "" {
		return DefaultLanguageShortCode
	}
	return s.languageShortCode
}

// WithLanguageShortCode 返回仅替换区域码的新快照。
func (s Settings) WithLanguageShortCode(code string) Settings {
	s.languageShortCode = code
	return s
}

// IsEnabled 判断方言是否启用检查。
func (s Settings) IsEnabled(d DialectID) bool {
	if s.enabled == nil {
		return true
	}
	_, ok := s.enabled[d]
	return ok
}

// WithEnabled 返回切换某方言启用状态后的新快照（不修改原 map）。
func (s Settings) WithEnabled(d DialectID, on bool) Settings {
	if s.IsEnabled(d) == on {
		return s
	}
	next := make(map[DialectID]struct{}, len(s.enabled)+1)
	if s.enabled == nil {
		for _, k := range []DialectID{DialectLatex, DialectRSweave, DialectMarkdown, DialectPlaintext} {
			next[k] = struct{}{}
		}
	} else {
		for k := range s.enabled {
			next[k] = struct{}{}
		}
	}
	if on {
		next[d] = struct{}{}
	} else {
		delete(next, d)
	}
	s.enabled = next
	return s
}

// CommandClassification 返回命令原型的分类；未配置时为 ClassDefault。
func (s Settings) CommandClassification(prototype string) Classification {
	if c, ok := s.commands[prototype]; ok {
		return c
	}
	return ClassDefault
}

// IgnoredCommandPrototypes 返回被分类为 ignore 的命令原型集合（只读，调用方不得修改）。
func (s Settings) IgnoredCommandPrototypes() map[string]struct{} {
	return s.ignored
}

// Spec 导出可变副本（用于序列化/调试）。
func (s Settings) Spec() SettingsSpec {
	out := SettingsSpec{
		LanguageShortCode:    s.LanguageShortCode(),
		Dictionary:           cloneStrings(s.dictionary),
		DisabledRules:        cloneStrings(s.disabledRules),
		EnabledRules:         cloneStrings(s.enabledRules),
		HiddenFalsePositives: cloneStrings(s.hiddenFalsePositives),
	}
	if s.enabled != nil {
		out.Enabled = make([]DialectID, 0, len(s.enabled))
		for d := range s.enabled {
			out.Enabled = append(out.Enabled, d)
		}
		sort.Slice(out.Enabled, func(i, j int) bool { return out.Enabled[i] < out.Enabled[j] })
	}
	if len(s.commands) > 0 {
		out.Commands = make(map[string]Classification, len(s.commands))
		for k, v := range s.commands {
			out.Commands[k] = v
		}
	}
	if len(s.environments) > 0 {
		out.Environments = make(map[string]Classification, len(s.environments))
		for k, v := range s.environments {
			out.Environments[k] = v
		}
	}
	return out
}

// Equal 深比较两个快照。
func (s Settings) Equal(o Settings) bool {
	return reflect.DeepEqual(s.Spec(), o.Spec())
}

func cloneStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
