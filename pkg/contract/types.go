package contract

// FileID: 逻辑文档ID（通常为路径，需规范化，跨平台一致）。
type FileID string

// DialectID: 标记语言方言标识（latex/rsweave/markdown/plaintext）。
// 与编辑器的 languageId 对齐，决定使用哪个 Fragmentizer。
type DialectID string

const (
	DialectLatex     DialectID = "latex"
	DialectRSweave   DialectID = "rsweave"
	DialectMarkdown  DialectID = "markdown"
	DialectPlaintext DialectID = "plaintext"
)

// Fragment: 原文的连续切片 + 绝对偏移 + 适用于该切片的 Settings 快照。
// 约束：
// - FromPos 为原文档中的字节偏移；
// - Code 为原文逐字节切片，不做任何清洗；
// - Settings 不可变，可在多个 Fragment 间共享。
type Fragment struct {
	Dialect  DialectID
	Code     string
	FromPos  int
	Settings Settings
}

// ToPos 返回片段在原文中的结束偏移（开区间）。
func (f Fragment) ToPos() int { return f.FromPos + len(f.Code) }

// Sub 返回 [from,to) 的子片段（相对本片段的偏移），携带给定 settings。
func (f Fragment) Sub(from, to int, s Settings) Fragment {
	return Fragment{Dialect: f.Dialect, Code: f.Code[from:to], FromPos: f.FromPos + from, Settings: s}
}

// Equal 比较文本、偏移、方言与 Settings。
func (f Fragment) Equal(o Fragment) bool {
	return f.Dialect == o.Dialect && f.Code == o.Code && f.FromPos == o.FromPos && f.Settings.Equal(o.Settings)
}
