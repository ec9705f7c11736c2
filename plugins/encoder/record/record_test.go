package record

import (
	"testing"

	"ltexfrag/pkg/contract"
)

func TestFromAndFingerprint(t *testing.T) {
	s := contract.NewSettings(contract.SettingsSpec{
		LanguageShortCode: "de-DE",
		Enabled:           []contract.DialectID{contract.DialectMarkdown},
		Commands:          map[string]contract.Classification{`\b{}`: contract.ClassIgnore, `\a{}`: contract.ClassIgnore, `\c{}`: contract.ClassDummy},
	})
	f := contract.Fragment{Dialect: contract.DialectLatex, Code: "hallo", FromPos: 12, Settings: s}
	r := From("doc.tex", 3, f)
	if r.File != "doc.tex" || r.Index != 3 || r.From != 12 || r.To != 17 || r.Language != "de-DE" || r.Enabled {
		t.Fatalf("unexpected %+v", r)
	}
	if len(r.Ignored) != 2 || r.Ignored[0] != `\a{}` {
		t.Fatalf("ignored: %v", r.Ignored)
	}
	if len(r.Fingerprint) != 32 || r.Fingerprint != Fingerprint(f) {
		t.Fatalf("fingerprint: %q", r.Fingerprint)
	}
	g := f
	g.Settings = s.WithLanguageShortCode("fr")
	if Fingerprint(g) == Fingerprint(f) {
		t.Fatalf("不同区域码应得不同指纹")
	}
	g = f
	g.FromPos++
	if Fingerprint(g) == Fingerprint(f) {
		t.Fatalf("不同偏移应得不同指纹")
	}
}
