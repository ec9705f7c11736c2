package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	cfgpkg "ltexfrag/internal/config"
	"ltexfrag/internal/diag"
	"ltexfrag/internal/pipeline"
	"ltexfrag/pkg/contract"
)

func runArgs(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var out, errb bytes.Buffer
	code := run(args, &out, &errb)
	return code, out.String(), errb.String()
}

func TestVersion(t *testing.T) {
	code, out, _ := runArgs(t, "version")
	if code != 0 || !strings.HasPrefix(out, "ltexfrag dev (") {
		t.Fatalf("version: %d %q", code, out)
	}
}

func TestUnknownCommand(t *testing.T) {
	if code, _, errOut := runArgs(t, "bogus"); code != exitUsage || errOut == "" {
		t.Fatalf("未知子命令应返回 %d, got %d", exitUsage, code)
	}
}

func TestLanguages(t *testing.T) {
	code, out, _ := runArgs(t, "languages", "nger")
	if code != 0 || !strings.Contains(out, "ngerman") || !strings.Contains(out, "de-DE") {
		t.Fatalf("languages: %d %q", code, out)
	}
	if strings.Contains(out, "french") {
		t.Fatalf("前缀过滤失效: %q", out)
	}
	code, out, _ = runArgs(t, "languages", "--json", "british")
	var got []struct{ Name, Code string }
	if code != 0 || json.Unmarshal([]byte(out), &got) != nil || len(got) != 1 || got[0].Code != "en-GB" {
		t.Fatalf("languages --json: %d %q", code, out)
	}
}

func TestSignatures(t *testing.T) {
	code, out, _ := runArgs(t, "signatures", "--kind", "inline")
	if code != 0 || !strings.Contains(out, `\textgerman{}`) || !strings.Contains(out, "<argument>") {
		t.Fatalf("signatures: %d %q", code, out)
	}
	if strings.Contains(out, `\usepackage`) {
		t.Fatalf("kind 过滤失效")
	}
	if code, _, _ := runArgs(t, "signatures", "--kind", "nope"); code != exitUsage {
		t.Fatalf("未知 kind 应失败: %d", code)
	}
	code, out, _ = runArgs(t, "signatures")
	for _, k := range signatureKinds {
		if !strings.Contains(out, k+" ") {
			t.Fatalf("缺少种类 %s", k)
		}
	}
}

func TestInitConfig(t *testing.T) {
	for _, f := range []string{"json", "yaml", "toml"} {
		dir := filepath.Join(t.TempDir(), "conf")
		code, out, errOut := runArgs(t, "init-config", "--format", f, dir)
		if code != 0 {
			t.Fatalf("%s: run return %d: %s", f, code, errOut)
		}
		path := strings.TrimSpace(out)
		cfg, err := cfgpkg.LoadFile(path)
		if err != nil {
			t.Fatalf("%s: 生成的配置无法读回: %v", f, err)
		}
		if err := cfgpkg.Validate(cfg); err != nil {
			t.Fatalf("%s: 生成的配置不合法: %v", f, err)
		}
		env, err := os.ReadFile(filepath.Join(dir, ".env"))
		if err != nil || !strings.Contains(string(env), "LTEXFRAG_DIALECT=") {
			t.Fatalf("%s: .env 未生成: %v", f, err)
		}
		// 已存在时不覆盖
		if code, _, _ := runArgs(t, "init-config", "--format", f, dir); code != exitConfig {
			t.Fatalf("%s: 已存在应失败, got %d", f, code)
		}
	}
	code, out, _ := runArgs(t, "init-config", "-")
	if code != 0 || !strings.Contains(out, `"output_dir": "out"`) {
		t.Fatalf("stdout 输出失败: %d %q", code, out)
	}
	if code, _, _ := runArgs(t, "init-config", "--format", "ini", "-"); code != exitConfig {
		t.Fatalf("未知格式应失败")
	}
}

func TestFragmentEndToEnd(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	in := filepath.Join(dir, "docs")
	if err := os.MkdirAll(in, 0o755); err != nil {
		t.Fatal(err)
	}
	doc := "Hello \\textgerman{Welt}.\n"
	if err := os.WriteFile(filepath.Join(in, "a.tex"), []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	code, _, errOut := runArgs(t, "fragment", "--status=false", "-o", "result", "--compress", "none", in)
	if code != 0 {
		t.Fatalf("run return %d: %s", code, errOut)
	}
	b, err := os.ReadFile(filepath.Join(dir, "result", "a.tex.jsonl"))
	if err != nil {
		t.Fatalf("工件缺失: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	if len(lines) != 2 || !strings.Contains(lines[0], `"code":"Welt"`) || !strings.Contains(lines[0], `"language":"de-DE"`) || !strings.Contains(lines[1], `"language":"en-US"`) {
		t.Fatalf("输出不符: %s", b)
	}
}

func TestFragmentEncoderAndConfigFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	if err := os.WriteFile("x.md", []byte("Hi\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	// 工作目录下的默认配置文件被自动发现
	yml := "components:\n  encoder: cbor\noptions:\n  writer:\n    output_dir: o\n    compress: zstd\n"
	if err := os.WriteFile("ltexfrag.yaml", []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	if code, _, errOut := runArgs(t, "fragment", "--status=false", "x.md"); code != 0 {
		t.Fatalf("run return %d: %s", code, errOut)
	}
	if _, err := os.Stat(filepath.Join(dir, "o", "x.md.cbor.zst")); err != nil {
		t.Fatalf("cbor+zstd 工件缺失: %v", err)
	}
}

func TestFragmentConfigErrors(t *testing.T) {
	chdir(t, t.TempDir())
	if code, _, _ := runArgs(t, "fragment", "--status=false", "--dialect", "asciidoc", "a.tex"); code != exitConfig {
		t.Fatalf("未知方言应返回 %d, got %d", exitConfig, code)
	}
	if code, _, _ := runArgs(t, "fragment", "--status=false", "--config", "missing.toml", "a.tex"); code != exitConfig {
		t.Fatalf("配置文件缺失应返回 %d", exitConfig)
	}
	t.Setenv("LTEXFRAG_CONFIG_JSON", `{"unknown":1}`)
	if code, _, _ := runArgs(t, "fragment", "--status=false", "a.tex"); code != exitConfig {
		t.Fatalf("未知字段应返回 %d", exitConfig)
	}
}

func TestFragmentRunError(t *testing.T) {
	chdir(t, t.TempDir())
	orig := pipelineRun
	defer func() { pipelineRun = orig }()
	var got pipeline.Settings
	pipelineRun = func(ctx context.Context, comp pipeline.Components, set pipeline.Settings, logger *diag.Logger) error {
		got = set
		return contract.ErrInvariantViolation
	}
	t.Setenv("LTEXFRAG_LANGUAGE", "fr")
	code, _, errOut := runArgs(t, "fragment", "--status=false", "--dialect", "markdown", "-")
	if code != exitRun || !strings.Contains(errOut, "运行失败") {
		t.Fatalf("运行错误应返回 %d, got %d %s", exitRun, code, errOut)
	}
	if got.Dialect != contract.DialectMarkdown || got.Settings.LanguageShortCode() != "fr" || got.Inputs[0] != "-" {
		t.Fatalf("设置未按 ENV/CLI 合并: %+v", got)
	}
	// CLI 优先于 ENV
	pipelineRun = func(ctx context.Context, comp pipeline.Components, set pipeline.Settings, logger *diag.Logger) error {
		got = set
		return nil
	}
	if code, _, _ := runArgs(t, "fragment", "--status=false", "-l", "it"); code != 0 || got.Settings.LanguageShortCode() != "it" {
		t.Fatalf("CLI 未覆盖 ENV: %d %s", code, got.Settings.LanguageShortCode())
	}
	if len(got.Inputs) != 1 || got.Inputs[0] != "-" {
		t.Fatalf("无输入时应读取 STDIN: %v", got.Inputs)
	}
}

func TestPatchRaw(t *testing.T) {
	raw, err := patchRaw(json.RawMessage(`{"output_dir":"a","atomic":false}`), map[string]any{"output_dir": "b"})
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	_ = json.Unmarshal(raw, &m)
	if m["output_dir"] != "b" || m["atomic"] != false {
		t.Fatalf("patch 结果错误: %s", raw)
	}
	if raw, err := patchRaw(nil, map[string]any{"k": 1}); err != nil || string(raw) != `{"k":1}` {
		t.Fatalf("空对象 patch: %s %v", raw, err)
	}
	if _, err := patchRaw(json.RawMessage(`[1]`), map[string]any{"k": 1}); err == nil {
		t.Fatalf("非对象应失败")
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, ".env")
	content := "# c\nexport LTEXFRAG_T_A=\"x\\ty\"\nLTEXFRAG_T_B='q'\nLTEXFRAG_T_C=keep\n=bad\n"
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("LTEXFRAG_T_C", "orig")
	for _, k := range []string{"LTEXFRAG_T_A", "LTEXFRAG_T_B"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	if err := loadDotEnv(p); err != nil {
		t.Fatalf("loadDotEnv: %v", err)
	}
	if os.Getenv("LTEXFRAG_T_A") != "x\ty" || os.Getenv("LTEXFRAG_T_B") != "q" || os.Getenv("LTEXFRAG_T_C") != "orig" {
		t.Fatalf("环境变量注入错误")
	}
	if err := loadDotEnv(filepath.Join(dir, "none")); err != nil {
		t.Fatalf("不存在的文件应忽略: %v", err)
	}
}

func TestPreflightCheckOutputDir(t *testing.T) {
	dir := t.TempDir()
	cfg := cfgpkg.Defaults()
	cfg.Options.Writer = json.RawMessage(`{"output_dir":"` + filepath.ToSlash(filepath.Join(dir, "a", "b")) + `"}`)
	if err := preflightCheckOutputDir(cfg); err != nil {
		t.Fatalf("不存在的多级目录应可创建: %v", err)
	}
	file := filepath.Join(dir, "f")
	_ = os.WriteFile(file, []byte("x"), 0o644)
	cfg.Options.Writer = json.RawMessage(`{"output_dir":"` + filepath.ToSlash(file) + `"}`)
	if err := preflightCheckOutputDir(cfg); err == nil {
		t.Fatalf("文件路径应失败")
	}
	var ee *exitError
	if !errors.As(&exitError{code: 3, err: errors.New("x")}, &ee) || ee.code != 3 {
		t.Fatalf("exitError 解包失败")
	}
}

// chdir switches the working directory for the test and restores it on
// cleanup (equivalent of testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(old) })
}
