// Package langmap 提供语言长名到区域短码的静态映射，以及据此派生的命令/环境签名表。
// 所有表在包初始化时确定性地构建一次，此后只读；不提供任何修改入口。
package langmap

import (
	"fmt"
	"sort"
	"strings"

	xlang "golang.org/x/text/language"

	"ltexfrag/internal/command"
)

// FromArgument: 哨兵值，表示区域码需在匹配时从尾部参数读取（通用形式）。
const FromArgument = ""

// longNames: babel/polyglossia 语言名 -> 区域短码。
var longNames = map[string]string{
	"afrikaans":             "af-ZA",
	"american":              "en-US",
	"arabic":                "ar",
	"asturian":              "ast-ES",
	"australian":            "en-AU",
	"austrian":              "de-AT",
	"belarusian":            "be-BY",
	"brazil":                "pt-BR",
	"brazilian":             "pt-BR",
	"breton":                "br-FR",
	"british":               "en-GB",
	"canadian":              "en-CA",
	"canadien":              "fr",
	"catalan":               "ca-ES",
	"chinese":               "zh-CN",
	"chinese-simplified":    "zh-CN",
	"danish":                "da-DK",
	"dutch":                 "nl",
	"english":               "en-US",
	"english-australia":     "en-AU",
	"english-canada":        "en-CA",
	"english-newzealand":    "en-NZ",
	"english-southafrica":   "en-ZA",
	"english-unitedkingdom": "en-GB",
	"english-unitedstates":  "en-US",
	"esperanto":             "eo",
	"francais":              "fr",
	"french":                "fr",
	"french-canada":         "fr-CA",
	"galician":              "gl-ES",
	"german":                "de-DE",
	"german-austria":        "de-AT",
	"german-switzerland":    "de-CH",
	"germanb":               "de-DE",
	"greek":                 "el-GR",
	"irish":                 "ga-IE",
	"italian":               "it",
	"japanese":              "ja-JP",
	"khmer":                 "km-KH",
	"naustrian":             "de-AT",
	"newzealand":            "en-NZ",
	"ngerman":               "de-DE",
	"nswissgerman":          "de-CH",
	"persian":               "fa",
	"polish":                "pl-PL",
	"portuges":              "pt-PT",
	"portuguese":            "pt-PT",
	"portuguese-brazil":     "pt-BR",
	"portuguese-portugal":   "pt-PT",
	"romanian":              "ro-RO",
	"russian":               "ru-RU",
	"slovak":                "sk-SK",
	"slovene":               "sl-SI",
	"spanish":               "es",
	"swedish":               "sv",
	"swissgerman":           "de-CH",
	"tagalog":               "tl-PH",
	"tamil":                 "ta-IN",
	"UKenglish":             "en-GB",
	"ukrainian":             "uk-UA",
	"USenglish":             "en-US",
	"valencian":             "ca-ES-valencia",
}

// MultilingualPackages: 会解析语言选项的宏包名。
var MultilingualPackages = map[string]struct{}{
	"babel":        {},
	"multilingual": {},
}

var (
	// PackageSignatures: 宏包声明原型。
	PackageSignatures []*command.Signature
	// SwitchSignatures: 独立语言切换命令（语言为最后一个参数）。
	SwitchSignatures []*command.Signature
	// InlineSignatures: 行内包裹命令 -> 区域码或 FromArgument。
	InlineSignatures *Table
	// EnvironmentSignatures: 环境起止原型 -> 区域码或 FromArgument。
	EnvironmentSignatures *Table
	// ExtraSignatures: 需单独检查内容的注释类命令（脚注、待办）。
	ExtraSignatures []*command.Signature

	names []string
)

// genericEnvironments: 通用语言环境名（语言取自尾部参数）。
var genericEnvironments = []string{"otherlanguage", "otherlanguage*", "foreignblock", "foreignblock*"}

func init() {
	names = make([]string, 0, len(longNames))
	for name, code := range longNames {
		if _, err := xlang.Parse(code); err != nil {
			panic(fmt.Sprintf("langmap: %s -> %q is not a BCP 47 tag: %v", name, code, err))
		}
		names = append(names, name)
	}
	sort.Strings(names)

	PackageSignatures = parseAll(`\usepackage[]{}`, `\RequirePackage[]{}`)
	SwitchSignatures = parseAll(`\selectlanguage{}`, `\setdefaultlanguage[]{}`, `\setmainlanguage[]{}`)
	ExtraSignatures = parseAll(`\footnote{}`, `\footnote[]{}`, `\todo{}`, `\todo[]{}`)

	InlineSignatures = newTable()
	for _, p := range []string{`\foreignlanguage{}{}`, `\foreignlanguage[]{}{}`} {
		InlineSignatures.add(p, FromArgument)
	}
	EnvironmentSignatures = newTable()
	for _, env := range genericEnvironments {
		for _, p := range []string{`\begin{` + env + `}{}`, `\begin{` + env + `}[]{}`, `\end{` + env + `}`} {
			EnvironmentSignatures.add(p, FromArgument)
		}
	}
	// 按名称排序遍历，保证派生表确定
	for _, name := range names {
		code := longNames[name]
		for _, spelling := range Spellings(name) {
			InlineSignatures.add(`\text`+spelling+`{}`, code)
			EnvironmentSignatures.add(`\begin{`+spelling+`}`, code)
			EnvironmentSignatures.add(`\end{`+spelling+`}`, code)
		}
	}
}

// Table: 签名 -> 区域码（或 FromArgument）的只读表；键为规范原型文本。
type Table struct {
	sigs  []*command.Signature
	codes map[string]string
}

func newTable() *Table { return &Table{codes: make(map[string]string)} }

func (t *Table) add(prototype, code string) {
	sig := command.MustParseSignature(prototype)
	if _, dup := t.codes[sig.Prototype]; dup {
		return
	}
	t.sigs = append(t.sigs, sig)
	t.codes[sig.Prototype] = code
}

// Signatures 返回表内签名（注册顺序，副本）。
func (t *Table) Signatures() []*command.Signature {
	out := make([]*command.Signature, len(t.sigs))
	copy(out, t.sigs)
	return out
}

// Code 返回签名对应的区域码；FromArgument 表示需从参数读取。
func (t *Table) Code(sig *command.Signature) (string, bool) {
	code, ok := t.codes[sig.Prototype]
	return code, ok
}

// Len 返回签名个数。
func (t *Table) Len() int { return len(t.sigs) }

// Spellings 返回语言名用于命令后缀的拼写：去除非字母字符后的形式；
// 若去除改变了长度，再附加原始拼写。
func Spellings(name string) []string {
	stripped := strings.Map(func(r rune) rune {
		if ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') {
			return r
		}
		return -1
	}, name)
	if len(stripped) != len(name) {
		return []string{stripped, name}
	}
	return []string{stripped}
}

// ShortCode 查询语言长名对应的区域码。
func ShortCode(name string) (string, bool) {
	code, ok := longNames[strings.TrimSpace(name)]
	return code, ok
}

// Names 返回全部已知语言长名（已排序，副本）。
func Names() []string {
	out := make([]string, len(names))
	copy(out, names)
	return out
}

// Tag 将区域码解析为 BCP 47 标签。
func Tag(code string) (xlang.Tag, error) {
	return xlang.Parse(code)
}

func parseAll(protos ...string) []*command.Signature {
	out := make([]*command.Signature, 0, len(protos))
	for _, p := range protos {
		out = append(out, command.MustParseSignature(p))
	}
	return out
}
