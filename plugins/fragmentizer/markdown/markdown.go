// Package markdown 实现 Markdown 片段化：HTML 注释块 `<!-- ltex: ... -->` 作为设置指令，
// 在其位置切分文档；代码块中的同形文本不视为指令。
package markdown

import (
	"regexp"
	"sort"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"

	"ltexfrag/pkg/contract"
	"ltexfrag/plugins/fragmentizer/comment"
)

// Options: Markdown 片段化选项（当前无可配置项）。
type Options struct{}

var directive = regexp.MustCompile(`<!--[ \t]*(?i:ltex):(.*?)-->`)

// 解析器配置不变，Parser 可共享；每次 Parse 使用独立状态。
var (
	parserOnce sync.Once
	parser     goldmark.Markdown
)

func getParser() goldmark.Markdown {
	parserOnce.Do(func() {
		parser = goldmark.New(goldmark.WithExtensions(extension.GFM))
	})
	return parser
}

// Fragmentizer 为 Markdown 方言的片段化器。
type Fragmentizer struct{}

// New 构造片段化器。
func New(*Options) *Fragmentizer { return &Fragmentizer{} }

// Fragmentize 以指令注释划分文档；输出为输入的精确划分。
func (f *Fragmentizer) Fragmentize(code string, settings contract.Settings) []contract.Fragment {
	return f.Apply([]contract.Fragment{{Dialect: contract.DialectMarkdown, Code: code, Settings: settings}})
}

type hit struct {
	pos  int
	body string
}

// Apply 对每个片段执行指令划分。
func (f *Fragmentizer) Apply(frags []contract.Fragment) []contract.Fragment {
	out := make([]contract.Fragment, 0, len(frags))
	for _, frag := range frags {
		settings := frag.Settings
		prev := 0
		for _, h := range directives(frag.Code) {
			if h.pos > prev {
				out = append(out, frag.Sub(prev, h.pos, settings))
				prev = h.pos
			}
			settings = comment.ApplyDirective(settings, frag.Dialect, h.body, "markdown")
		}
		out = append(out, frag.Sub(prev, len(frag.Code), settings))
	}
	return out
}

// directives 返回 HTML 块内指令注释的位置（按偏移升序）。
func directives(code string) []hit {
	src := []byte(code)
	doc := getParser().Parser().Parse(text.NewReader(src))
	var hits []hit
	scan := func(seg text.Segment) {
		line := code[seg.Start:seg.Stop]
		for _, loc := range directive.FindAllStringSubmatchIndex(line, -1) {
			hits = append(hits, hit{pos: seg.Start + loc[0], body: line[loc[2]:loc[3]]})
		}
	}
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.HTMLBlock:
			lines := node.Lines()
			for i := 0; i < lines.Len(); i++ {
				scan(lines.At(i))
			}
			if node.HasClosure() {
				scan(node.ClosureLine)
			}
			return ast.WalkSkipChildren, nil
		case *ast.FencedCodeBlock, *ast.CodeBlock, *ast.CodeSpan:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })
	return hits
}
