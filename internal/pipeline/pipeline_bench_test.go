package pipeline

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	"ltexfrag/pkg/contract"
	ecbor "ltexfrag/plugins/encoder/cbor"
	ejsonl "ltexfrag/plugins/encoder/jsonl"
)

// memReader 反复产出同一文档。
type memReader struct {
	doc   string
	files int
}

func (m memReader) Iterate(ctx context.Context, roots []string, yield func(contract.FileID, io.ReadCloser) error) error {
	for i := 0; i < m.files; i++ {
		if err := yield(contract.FileID(fmt.Sprintf("doc%d.tex", i)), io.NopCloser(strings.NewReader(m.doc))); err != nil {
			return err
		}
	}
	return nil
}

// discardWriter 丢弃所有输出，避免磁盘开销。
type discardWriter struct{}

func (discardWriter) Write(ctx context.Context, id contract.ArtifactID, r io.Reader) error {
	_, err := io.Copy(io.Discard, r)
	return err
}

func benchDocument(paragraphs int) string {
	var b strings.Builder
	b.WriteString("\\documentclass{article}\n\\usepackage[main=english,ngerman]{babel}\n\\begin{document}\n")
	for i := 0; i < paragraphs; i++ {
		fmt.Fprintf(&b, "Paragraph %d with \\textgerman{deutsche Wörter} and a note\\footnote{note %d}.\n", i, i)
		if i%10 == 0 {
			b.WriteString("\\begin{otherlanguage}{french}Un bloc \\emph{français}.\\end{otherlanguage}\n")
		}
		if i%25 == 0 {
			b.WriteString("\\selectlanguage{british}\n")
		}
	}
	b.WriteString("\\end{document}\n")
	return b.String()
}

// BenchmarkPipeline 测试完整流水线（片段化 + 编码）的性能。
func BenchmarkPipeline(b *testing.B) {
	doc := benchDocument(500)
	encoders := map[string]contract.Encoder{"jsonl": ejsonl.New(nil), "cbor": ecbor.New(nil)}
	for _, name := range []string{"jsonl", "cbor"} {
		b.Run(name, func(b *testing.B) {
			comp := Components{Reader: memReader{doc: doc, files: 4}, Fragmentizers: fragmentizers(), Encoder: encoders[name], Writer: discardWriter{}}
			set := Settings{Inputs: []string{"mem"}, Settings: contract.DefaultSettings()}
			ctx := context.Background()
			b.SetBytes(int64(len(doc) * 4))
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if err := Run(ctx, comp, set, nil); err != nil {
					b.Fatalf("运行失败: %v", err)
				}
			}
		})
	}
}
