package comment

import (
	"bytes"
	"strings"
	"testing"

	"ltexfrag/internal/diag"
	"ltexfrag/pkg/contract"
)

func join(frags []contract.Fragment) string {
	var b strings.Builder
	for _, f := range frags {
		b.WriteString(f.Code)
	}
	return b.String()
}

// 指令行切分后精确划分原文
func TestApplyPartition(t *testing.T) {
	code := "Hello.\n% LTeX: language=de-DE\nHallo.\n  %ltex: language=french\nSalut.\n"
	p := New(contract.DialectLatex, nil)
	frags := p.Fragmentize(code, contract.DefaultSettings())
	if len(frags) != 3 {
		t.Fatalf("expect 3 fragments, got %d: %+v", len(frags), frags)
	}
	if join(frags) != code {
		t.Fatalf("拼接不等于原文")
	}
	want := []string{"en-US", "de-DE", "fr"}
	for i, f := range frags {
		if f.Settings.LanguageShortCode() != want[i] {
			t.Fatalf("frag %d: want %s got %s", i, want[i], f.Settings.LanguageShortCode())
		}
		if code[f.FromPos:f.ToPos()] != f.Code {
			t.Fatalf("frag %d 偏移错误", i)
		}
		if i > 0 && f.FromPos <= frags[i-1].FromPos {
			t.Fatalf("偏移不递增")
		}
	}
	if !strings.HasPrefix(frags[1].Code, "% LTeX:") {
		t.Fatalf("指令行应归入其后片段: %q", frags[1].Code)
	}
}

// 转义的百分号与行中注释不是指令
func TestApplyIgnoresNonDirectives(t *testing.T) {
	code := "a \\% ltex: language=de-DE\nb % ltex: language=de-DE\n"
	frags := New(contract.DialectLatex, nil).Fragmentize(code, contract.DefaultSettings())
	if len(frags) != 1 || frags[0].Code != code {
		t.Fatalf("unexpected %+v", frags)
	}
}

// 子片段偏移保持绝对值
func TestApplyOffsets(t *testing.T) {
	base := contract.Fragment{Dialect: contract.DialectPlaintext, Code: "x\n# ltex: language=de-DE\ny", FromPos: 100, Settings: contract.DefaultSettings()}
	frags := New(contract.DialectPlaintext, nil).Apply([]contract.Fragment{base})
	if len(frags) != 2 || frags[1].FromPos != 102 || frags[1].Dialect != contract.DialectPlaintext {
		t.Fatalf("unexpected %+v", frags)
	}
}

// enabled 开关与非法项诊断
func TestApplyDirective(t *testing.T) {
	var buf bytes.Buffer
	diag.SetDefault(diag.NewLoggerTo(&buf, "t", "warn"))
	defer diag.SetDefault(nil)

	s := ApplyDirective(contract.DefaultSettings(), contract.DialectLatex, "enabled=false bogus color=red language=xx-notalang language=ngerman", "comment")
	if s.IsEnabled(contract.DialectLatex) || !s.IsEnabled(contract.DialectMarkdown) {
		t.Fatalf("enabled 未生效")
	}
	if s.LanguageShortCode() != "de-DE" {
		t.Fatalf("language: %s", s.LanguageShortCode())
	}
	out := buf.String()
	if strings.Count(out, diag.WarnInvalidDirective) != 2 || strings.Count(out, diag.WarnUnknownLanguage) != 1 {
		t.Fatalf("诊断数量错误: %s", out)
	}
	if !strings.Contains(out, `"prototype":"bogus"`) {
		t.Fatalf("诊断缺少原型: %s", out)
	}
}

// 自定义标记
func TestCustomMarker(t *testing.T) {
	p := New(contract.DialectPlaintext, &Options{Marker: "//"})
	frags := p.Fragmentize("a\n// ltex: language=es\nb", contract.DefaultSettings())
	if len(frags) != 2 || frags[1].Settings.LanguageShortCode() != "es" {
		t.Fatalf("unexpected %+v", frags)
	}
	if DefaultMarker(contract.DialectRSweave) != "%" || DefaultMarker(contract.DialectMarkdown) != "#" {
		t.Fatalf("默认标记错误")
	}
}
