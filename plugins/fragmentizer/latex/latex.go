// Package latex 实现 LaTeX/Rnw 片段化：在指令注释预处理之后依次执行
// 宏包声明、语言切换命令、行内命令、环境与附加命令五趟变换。
// 宏包与切换两趟对输入片段做精确划分；其余三趟在派生子片段之外保留原片段（允许重叠）。
// 环境趟中外层环境的片段覆盖其完整正文，内层正文因此被内外两层各检查一次。
package latex

import (
	"strings"
	"time"

	"ltexfrag/internal/command"
	"ltexfrag/internal/diag"
	"ltexfrag/internal/langmap"
	"ltexfrag/pkg/contract"
	"ltexfrag/plugins/fragmentizer/comment"
)

// Options: LaTeX 片段化选项。
type Options struct {
	// CommentMarker: 指令注释标记，默认 "%"。
	CommentMarker string `json:"comment_marker,omitempty"`
	// SkipComments: 关闭指令注释预处理。
	SkipComments bool `json:"skip_comments,omitempty"`
}

// Fragmentizer 为 LaTeX 方言的片段化器；构造后只读，可并发复用。
type Fragmentizer struct {
	dialect  contract.DialectID
	comments *comment.Pass

	packages     []*command.Signature
	switches     []*command.Signature
	inline       []*command.Signature
	environments []*command.Signature
	extras       []*command.Signature
}

// New 构造片段化器；dialect 为 latex 或 rsweave。
func New(dialect contract.DialectID, opts *Options) *Fragmentizer {
	if dialect == "" {
		dialect = contract.DialectLatex
	}
	f := &Fragmentizer{
		dialect:      dialect,
		packages:     langmap.PackageSignatures,
		switches:     langmap.SwitchSignatures,
		inline:       langmap.InlineSignatures.Signatures(),
		environments: langmap.EnvironmentSignatures.Signatures(),
		extras:       langmap.ExtraSignatures,
	}
	if opts == nil || !opts.SkipComments {
		var co comment.Options
		if opts != nil {
			co.Marker = opts.CommentMarker
		}
		f.comments = comment.New(dialect, &co)
	}
	return f
}

// Passes 返回按执行顺序排列的各趟变换（不含初始包装）。
func (f *Fragmentizer) Passes() []contract.Pass {
	passes := make([]contract.Pass, 0, 6)
	if f.comments != nil {
		passes = append(passes, f.comments.Apply)
	}
	return append(passes, f.packagePass, f.switchPass, f.inlinePass, f.environmentPass, f.extraPass)
}

// Fragmentize 执行完整流水线；永不失败，至少返回一个片段。
func (f *Fragmentizer) Fragmentize(code string, settings contract.Settings) []contract.Fragment {
	t0 := time.Now()
	checkPrototypes(settings)
	frags := []contract.Fragment{{Dialect: f.dialect, Code: code, Settings: settings}}
	for _, pass := range f.Passes() {
		frags = pass(frags)
	}
	diag.IncOp(comp, "fragmentize", "success")
	diag.ObserveDuration(comp, "fragmentize", time.Since(t0).Milliseconds())
	return frags
}

const comp = "latex"

// packagePass: \usepackage[opts]{babel} 一类声明切换此后的区域码。
func (f *Fragmentizer) packagePass(frags []contract.Fragment) []contract.Fragment {
	m := command.NewMatcher(f.packages)
	seen := make(map[int]struct{})
	out := make([]contract.Fragment, 0, len(frags))
	for _, frag := range frags {
		m.OnMiss = missReporter(seen, frag.FromPos)
		settings := frag.Settings
		prev := 0
		m.StartMatching(frag.Code, frag.Settings.IgnoredCommandPrototypes())
		for {
			mt, ok := m.FindNextMatch()
			if !ok {
				break
			}
			if !isMultilingualPackage(mt.ArgumentContent(mt.ArgumentCount() - 1)) {
				continue
			}
			name, resolved := packageLanguage(mt.ArgumentContent(0))
			if !resolved {
				continue
			}
			code, known := langmap.ShortCode(name)
			if !known {
				warnUnknownLanguage(name)
				continue
			}
			if mt.FromPos > prev {
				out = append(out, frag.Sub(prev, mt.FromPos, settings))
				prev = mt.FromPos
			}
			settings = settings.WithLanguageShortCode(code)
		}
		out = append(out, frag.Sub(prev, len(frag.Code), settings))
	}
	return out
}

// isMultilingualPackage 判断宏包参数（可为逗号列表）是否包含多语言宏包。
func isMultilingualPackage(arg string) bool {
	for _, name := range strings.Split(arg, ",") {
		if _, ok := langmap.MultilingualPackages[strings.TrimSpace(name)]; ok {
			return true
		}
	}
	return false
}

// packageLanguage 自宏包选项解析目标语言名：
// 无值且为已知语言名的键设置候选（后者覆盖前者）；main=<已知语言> 直接生效并停止扫描；
// main=<未知语言> 记诊断后继续扫描。
func packageLanguage(options string) (string, bool) {
	candidate := ""
	for _, opt := range command.ParseOptions(options) {
		if opt.Key.Text == "main" && opt.HasValue {
			if _, ok := langmap.ShortCode(opt.Value.Text); ok {
				return opt.Value.Text, true
			}
			warnUnknownLanguage(opt.Value.Text)
			continue
		}
		if opt.HasValue {
			continue
		}
		if _, ok := langmap.ShortCode(opt.Key.Text); ok {
			candidate = opt.Key.Text
		}
	}
	return candidate, candidate != ""
}

// switchPass: \selectlanguage{lang} 一类独立切换命令。
// 未知语言不产生边界，也不推进已记录的边界。
func (f *Fragmentizer) switchPass(frags []contract.Fragment) []contract.Fragment {
	m := command.NewMatcher(f.switches)
	seen := make(map[int]struct{})
	out := make([]contract.Fragment, 0, len(frags))
	for _, frag := range frags {
		m.OnMiss = missReporter(seen, frag.FromPos)
		settings := frag.Settings
		prev := 0
		m.StartMatching(frag.Code, frag.Settings.IgnoredCommandPrototypes())
		for {
			mt, ok := m.FindNextMatch()
			if !ok {
				break
			}
			name := strings.TrimSpace(mt.ArgumentContent(mt.ArgumentCount() - 1))
			code, known := langmap.ShortCode(name)
			if !known {
				warnUnknownLanguage(name)
				continue
			}
			if mt.FromPos > prev {
				out = append(out, frag.Sub(prev, mt.FromPos, settings))
				prev = mt.FromPos
			}
			settings = settings.WithLanguageShortCode(code)
		}
		out = append(out, frag.Sub(prev, len(frag.Code), settings))
	}
	return out
}

// inlinePass: \foreignlanguage{lang}{text}、\textgerman{text} 等行内命令。
// 滚动设置在同一输入片段的多次匹配间传递。
func (f *Fragmentizer) inlinePass(frags []contract.Fragment) []contract.Fragment {
	m := command.NewMatcher(f.inline)
	seen := make(map[int]struct{})
	out := make([]contract.Fragment, 0, len(frags))
	for _, frag := range frags {
		m.OnMiss = missReporter(seen, frag.FromPos)
		rolling := frag.Settings
		m.StartMatching(frag.Code, frag.Settings.IgnoredCommandPrototypes())
		for {
			mt, ok := m.FindNextMatch()
			if !ok {
				break
			}
			rolling = resolve(langmap.InlineSignatures, mt, 2, rolling)
			out = append(out, argumentFragment(frag, mt, rolling))
		}
		out = append(out, frag)
	}
	return out
}

type level struct {
	settings contract.Settings
	start    int
}

// environmentPass: \begin{otherlanguage}{lang}…\end{otherlanguage} 等嵌套环境。
// 孤立的 \end 终止本片段的扫描；未闭合的 \begin 在末尾延伸至文本结束。
func (f *Fragmentizer) environmentPass(frags []contract.Fragment) []contract.Fragment {
	m := command.NewMatcher(f.environments)
	seen := make(map[int]struct{})
	out := make([]contract.Fragment, 0, len(frags))
	for _, frag := range frags {
		m.OnMiss = missReporter(seen, frag.FromPos)
		stack := []level{{settings: frag.Settings}}
		m.StartMatching(frag.Code, frag.Settings.IgnoredCommandPrototypes())
		for {
			mt, ok := m.FindNextMatch()
			if !ok {
				break
			}
			if mt.Signature.IsBegin() {
				top := stack[len(stack)-1].settings
				stack = append(stack, level{settings: resolve(langmap.EnvironmentSignatures, mt, 1, top), start: mt.ToPos})
				continue
			}
			if len(stack) == 1 {
				break
			}
			lv := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			out = append(out, frag.Sub(lv.start, mt.FromPos, lv.settings))
		}
		for len(stack) > 1 {
			lv := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			out = append(out, frag.Sub(lv.start, len(frag.Code), lv.settings))
		}
		out = append(out, frag)
	}
	return out
}

// extraPass: 脚注、待办等需单独检查内容的命令，沿用输入片段的设置。
func (f *Fragmentizer) extraPass(frags []contract.Fragment) []contract.Fragment {
	m := command.NewMatcher(f.extras)
	seen := make(map[int]struct{})
	out := make([]contract.Fragment, 0, len(frags))
	for _, frag := range frags {
		m.OnMiss = missReporter(seen, frag.FromPos)
		for _, mt := range m.FindAll(frag.Code, frag.Settings.IgnoredCommandPrototypes()) {
			out = append(out, argumentFragment(frag, mt, frag.Settings))
		}
		out = append(out, frag)
	}
	return out
}

// resolve 返回匹配生效后的设置：特定语言形式直接取表中区域码；
// 通用形式读取倒数第 fromEnd 个参数作为语言名，未知时记诊断并保持 current。
func resolve(table *langmap.Table, mt command.Match, fromEnd int, current contract.Settings) contract.Settings {
	code, ok := table.Code(mt.Signature)
	if !ok {
		warnInvalidDirective(mt.Signature.Prototype)
		return current
	}
	if code != langmap.FromArgument {
		return current.WithLanguageShortCode(code)
	}
	i := mt.ArgumentCount() - fromEnd
	if i < 0 {
		warnInvalidDirective(mt.Signature.Prototype)
		return current
	}
	name := strings.TrimSpace(mt.ArgumentContent(i))
	if code, ok = langmap.ShortCode(name); !ok {
		warnUnknownLanguage(name)
		return current
	}
	return current.WithLanguageShortCode(code)
}

// argumentFragment 以匹配的最后一个参数内容构造子片段（绝对偏移）。
func argumentFragment(frag contract.Fragment, mt command.Match, s contract.Settings) contract.Fragment {
	last := mt.Argument(mt.ArgumentCount() - 1)
	return contract.Fragment{
		Dialect:  frag.Dialect,
		Code:     last.Content,
		FromPos:  frag.FromPos + last.FromPos,
		Settings: s,
	}
}

// checkPrototypes 对配置中无法解析的命令原型记 invalid_directive 诊断。
func checkPrototypes(s contract.Settings) {
	for proto := range s.Spec().Commands {
		if _, err := command.ParseSignature(proto); err != nil {
			warnInvalidDirective(proto)
		}
	}
}

func warnUnknownLanguage(name string) {
	diag.Default().Warn(comp, diag.WarnUnknownLanguage, "unknown language", map[string]string{"language": name})
	diag.IncWarning(comp, diag.WarnUnknownLanguage)
}

// missReporter 对名称吻合但结构不完整的指令记 invalid_directive 诊断；
// 重叠片段中的同一绝对位置只记一次。
func missReporter(seen map[int]struct{}, base int) func(*command.Signature, int) {
	return func(sig *command.Signature, pos int) {
		if _, dup := seen[base+pos]; dup {
			return
		}
		seen[base+pos] = struct{}{}
		warnInvalidDirective(sig.Prototype)
	}
}

func warnInvalidDirective(prototype string) {
	diag.Default().Warn(comp, diag.WarnInvalidDirective, "invalid directive", map[string]string{"prototype": prototype})
	diag.IncWarning(comp, diag.WarnInvalidDirective)
}
