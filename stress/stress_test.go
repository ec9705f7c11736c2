package stress

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	cfgpkg "ltexfrag/internal/config"
	"ltexfrag/internal/pipeline"
)

// baseConfig 构造可运行的最小配置。
func baseConfig(input, outDir string) cfgpkg.Config {
	cfg := cfgpkg.DefaultTemplateConfig()
	cfg.Inputs = []string{input}
	cfg.Logging.Level = "error"
	cfg.Options.Writer = json.RawMessage(fmt.Sprintf(`{"output_dir":%q,"atomic":false,"flat":true,"perm_file":0,"perm_dir":0,"buf_size":65536}`, outDir))
	return cfg
}

// runPipeline 执行完整流水线。
func runPipeline(cfg cfgpkg.Config) error {
	comp, set, err := cfgpkg.Assemble(cfg)
	if err != nil {
		return err
	}
	return pipeline.Run(context.Background(), comp, set, nil)
}

// genCorpus 生成 files 个各含 sections 节的 LaTeX 文档。
func genCorpus(dir string, files, sections int) error {
	var b strings.Builder
	b.WriteString("\\documentclass{article}\n\\usepackage[main=english,ngerman,french]{babel}\n\\begin{document}\n")
	for i := 0; i < sections; i++ {
		fmt.Fprintf(&b, "\\section{Part %d}\nSome text with \\textgerman{etwas Deutsch} and \\cite[p.~%d]{ref%d}.\n", i, i, i)
		b.WriteString("\\begin{otherlanguage}{french}\nUn paragraphe \\textenglish{with English} inside.\n\\end{otherlanguage}\n")
		if i%3 == 0 {
			b.WriteString("\\selectlanguage{ngerman}\nAb hier Deutsch.\n\\selectlanguage{english}\n")
		}
		if i%5 == 0 {
			b.WriteString("% ltex: enabled=false\nskipped\n% ltex: enabled=true\n")
		}
	}
	b.WriteString("\\end{document}\n")
	doc := []byte(b.String())
	for i := 0; i < files; i++ {
		if err := os.WriteFile(filepath.Join(dir, fmt.Sprintf("doc-%03d.tex", i)), doc, 0o644); err != nil {
			return err
		}
	}
	return nil
}

// TestStress 在不同文档规模下运行流水线并记录延迟统计。
func TestStress(t *testing.T) {
	if testing.Short() {
		t.Skip("short mode")
	}
	levels := []struct{ files, sections int }{{1, 10}, {8, 100}, {16, 500}, {4, 5000}}
	for _, lv := range levels {
		t.Run(fmt.Sprintf("files_%d_sections_%d", lv.files, lv.sections), func(t *testing.T) {
			dataDir := t.TempDir()
			if err := genCorpus(dataDir, lv.files, lv.sections); err != nil {
				t.Fatalf("gen: %v", err)
			}
			const runs = 5
			successes := 0
			latencies := make([]time.Duration, 0, runs)
			for i := 0; i < runs; i++ {
				outDir := t.TempDir()
				start := time.Now()
				err := runPipeline(baseConfig(dataDir, outDir))
				dur := time.Since(start)
				if err != nil {
					t.Errorf("run %d: %v", i, err)
					continue
				}
				entries, err := os.ReadDir(outDir)
				if err != nil || len(entries) != lv.files {
					t.Errorf("run %d: 工件数 %d, want %d (%v)", i, len(entries), lv.files, err)
					continue
				}
				successes++
				latencies = append(latencies, dur)
			}
			if successes == 0 {
				t.Fatalf("全部运行失败")
			}
			sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
			var total time.Duration
			for _, d := range latencies {
				total += d
			}
			avg := total / time.Duration(len(latencies))
			idx := int(math.Ceil(float64(len(latencies))*0.95)) - 1
			if idx < 0 {
				idx = 0
			}
			p95 := latencies[idx]
			t.Logf("文件%d 节数%d 成功率%.2f 平均%v 95%%延迟%v", lv.files, lv.sections, float64(successes)/float64(runs), avg, p95)
		})
	}
}

// TestStressUnbalanced 大量未闭合命令的文档：扫描量应随长度线性增长。
func TestStressUnbalanced(t *testing.T) {
	if testing.Short() {
		t.Skip("short mode")
	}
	var prev time.Duration
	for _, n := range []int{5000, 20000, 40000} {
		dataDir := t.TempDir()
		doc := strings.Repeat(`\footnote{x \foreignlanguage{german}{y \begin{otherlanguage}[`, n/4)
		if err := os.WriteFile(filepath.Join(dataDir, "broken.tex"), []byte(doc), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		start := time.Now()
		if err := runPipeline(baseConfig(dataDir, t.TempDir())); err != nil {
			t.Fatalf("run: %v", err)
		}
		dur := time.Since(start)
		t.Logf("字节%d 耗时%v", len(doc), dur)
		if dur > 10*time.Second {
			t.Fatalf("字节%d 耗时过长: %v (上一档 %v)", len(doc), dur, prev)
		}
		prev = dur
	}
}
