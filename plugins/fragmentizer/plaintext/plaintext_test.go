package plaintext

import (
	"testing"

	"ltexfrag/pkg/contract"
)

func TestFragmentize(t *testing.T) {
	code := "one\n# ltex: language=pt-BR\ntwo\n"
	out := New(nil).Fragmentize(code, contract.DefaultSettings())
	if len(out) != 2 || out[0].Code != "one\n" || out[1].FromPos != 4 {
		t.Fatalf("unexpected %+v", out)
	}
	if out[1].Settings.LanguageShortCode() != "pt-BR" || out[1].Dialect != contract.DialectPlaintext {
		t.Fatalf("frag1: %+v", out[1])
	}
}

func TestCustomMarker(t *testing.T) {
	out := New(&Options{CommentMarker: ";"}).Fragmentize("a\n; ltex: language=it\n# ltex: language=es\n", contract.DefaultSettings())
	if len(out) != 2 || out[1].Settings.LanguageShortCode() != "it" {
		t.Fatalf("unexpected %+v", out)
	}
}

func TestNoDirectives(t *testing.T) {
	out := New(nil).Fragmentize("", contract.DefaultSettings())
	if len(out) != 1 || out[0].Code != "" {
		t.Fatalf("unexpected %+v", out)
	}
}
