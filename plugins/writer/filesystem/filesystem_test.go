package filesystem

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"

	"ltexfrag/pkg/contract"
)

func noTmp(t *testing.T, dir string) {
	t.Helper()
	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".tmp-") {
			t.Fatalf("tmp file not cleaned: %s", e.Name())
		}
	}
}

// TestWriteAtomic 原子写入并保留相对目录
func TestWriteAtomic(t *testing.T) {
	dir := t.TempDir()
	w, err := New(&Options{OutputDir: dir})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := w.Write(context.Background(), "chap/intro.tex.jsonl", bytes.NewBufferString("data")); err != nil {
		t.Fatalf("write: %v", err)
	}
	b, err := os.ReadFile(filepath.Join(dir, "chap", "intro.tex.jsonl"))
	if err != nil || string(b) != "data" {
		t.Fatalf("unexpected file %v %q", err, string(b))
	}
	noTmp(t, filepath.Join(dir, "chap"))
}

// 目标已存在时原子写替换为新内容
func TestWriteAtomicReplaceExisting(t *testing.T) {
	dir := t.TempDir()
	w, _ := New(&Options{OutputDir: dir})
	for _, v := range []string{"v1", "v2"} {
		if err := w.Write(context.Background(), "out.jsonl", bytes.NewBufferString(v)); err != nil {
			t.Fatalf("write %s: %v", v, err)
		}
	}
	b, _ := os.ReadFile(filepath.Join(dir, "out.jsonl"))
	if string(b) != "v2" {
		t.Fatalf("expect replaced content v2, got %q", string(b))
	}
	noTmp(t, dir)
}

// TestWriteFlat 扁平化仅保留文件名
func TestWriteFlat(t *testing.T) {
	dir := t.TempDir()
	flat := true
	w, _ := New(&Options{OutputDir: dir, Flat: &flat})
	if err := w.Write(context.Background(), "a/b/c.cbor", bytes.NewBufferString("x")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "c.cbor")); err != nil {
		t.Fatalf("flat file missing: %v", err)
	}
}

// TestWritePathInvalid 路径越界
func TestWritePathInvalid(t *testing.T) {
	w, _ := New(&Options{OutputDir: t.TempDir()})
	err := w.Write(context.Background(), "../bad", bytes.NewBufferString("x"))
	if !errors.Is(err, contract.ErrPathInvalid) {
		t.Fatalf("expect path invalid, got %v", err)
	}
}

// TestWriteNonAtomic 非原子写入
func TestWriteNonAtomic(t *testing.T) {
	dir := t.TempDir()
	a := false
	w, _ := New(&Options{OutputDir: dir, Atomic: &a})
	if err := w.Write(context.Background(), "sub/out.jsonl", bytes.NewBufferString("v")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if b, err := os.ReadFile(filepath.Join(dir, "sub", "out.jsonl")); err != nil || string(b) != "v" {
		t.Fatalf("file not created: %v", err)
	}
}

// TestWriteZstd 压缩输出可解压回原文
func TestWriteZstd(t *testing.T) {
	dir := t.TempDir()
	for _, atomic := range []bool{true, false} {
		a := atomic
		w, err := New(&Options{OutputDir: dir, Atomic: &a, Compress: "zstd", Level: 3})
		if err != nil {
			t.Fatalf("new: %v", err)
		}
		payload := strings.Repeat(`{"code":"\\footnote{hello}"}`+"\n", 200)
		if err := w.Write(context.Background(), "doc.tex.jsonl", strings.NewReader(payload)); err != nil {
			t.Fatalf("write: %v", err)
		}
		f, err := os.Open(filepath.Join(dir, "doc.tex.jsonl.zst"))
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		dec, err := zstd.NewReader(f)
		if err != nil {
			t.Fatalf("decoder: %v", err)
		}
		got, err := io.ReadAll(dec)
		dec.Close()
		f.Close()
		if err != nil || string(got) != payload {
			t.Fatalf("roundtrip mismatch: %v", err)
		}
	}
}

// TestWriteCtxCancel 上下文取消
func TestWriteCtxCancel(t *testing.T) {
	w, _ := New(&Options{OutputDir: t.TempDir()})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := w.Write(ctx, "a.jsonl", strings.NewReader("data")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expect ctx error, got %v", err)
	}
}

// TestNewInvalid 参数缺失或非法
func TestNewInvalid(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Fatalf("expect error for nil opts")
	}
	if _, err := New(&Options{}); err == nil {
		t.Fatalf("expect error for empty output dir")
	}
	if _, err := New(&Options{OutputDir: "x", Compress: "lzma"}); !errors.Is(err, contract.ErrInvalidInput) {
		t.Fatalf("expect invalid compress, got %v", err)
	}
}

type errReader struct{}

func (errReader) Read(p []byte) (int, error) { return 0, errors.New("boom") }

// TestWriteAtomicCopyError 原子写入时拷贝失败不残留临时文件
func TestWriteAtomicCopyError(t *testing.T) {
	for _, compress := range []string{"", "zstd"} {
		dir := t.TempDir()
		w, _ := New(&Options{OutputDir: dir, Compress: compress})
		if err := w.Write(context.Background(), "a.jsonl", errReader{}); err == nil {
			t.Fatalf("expect copy error")
		}
		entries, _ := os.ReadDir(dir)
		if len(entries) != 0 {
			t.Fatalf("temp files left %v", entries)
		}
	}
}

// TestReaderWithCtxCancel reader 在读取前取消
func TestReaderWithCtxCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := readerWithCtx(ctx, strings.NewReader("data"))
	cancel()
	if _, err := r.Read(make([]byte, 1)); err == nil {
		t.Fatalf("expect ctx error")
	}
}
