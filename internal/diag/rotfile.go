package diag

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

const (
	logCurrent   = "ltexfrag.jsonl"
	logSegPrefix = "ltexfrag-"
	logSegSuffix = ".jsonl.zst"
)

// RotatingFile 是 JSON-line 日志的文件 sink：
// 活动段为 <dir>/ltexfrag.jsonl；写入将越过 maxBytes 时，活动段压缩为
// ltexfrag-<UTC 时间戳>.jsonl.zst 并重新开始；压缩段最多保留 keep 个，最旧的先删。
type RotatingFile struct {
	dir      string
	maxBytes int64
	keep     int

	mu   sync.Mutex
	f    *os.File
	size int64
}

// NewRotatingFile 创建惰性打开的 sink；maxBytes<=0 时取 10 MiB，默认保留 5 个压缩段。
func NewRotatingFile(dir string, maxBytes int64) *RotatingFile {
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	return &RotatingFile{dir: dir, maxBytes: maxBytes, keep: 5}
}

// WriteLine 追加一行（含换行）；活动段非空且将超限时先轮转。
func (w *RotatingFile) WriteLine(b []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.open(); err != nil {
		return err
	}
	need := int64(len(b)) + 1
	if w.size > 0 && w.size+need > w.maxBytes {
		if err := w.rotate(); err != nil {
			return err
		}
	}
	n, err := w.f.Write(append(b, '\n'))
	w.size += int64(n)
	return err
}

func (w *RotatingFile) open() error {
	if w.f != nil {
		return nil
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(filepath.Join(w.dir, logCurrent), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	w.f, w.size = f, 0
	if st, err := f.Stat(); err == nil {
		w.size = st.Size()
	}
	return nil
}

// rotate 关闭活动段，压缩为带时间戳的段后删除原文件，再清理多余旧段。
func (w *RotatingFile) rotate() error {
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	cur := filepath.Join(w.dir, logCurrent)
	ts := time.Now().UTC().Format("20060102-150405.000000000")
	seg := filepath.Join(w.dir, logSegPrefix+ts+logSegSuffix)
	if err := compressFile(cur, seg); err != nil {
		return fmt.Errorf("compress log segment: %w", err)
	}
	if err := os.Remove(cur); err != nil && !os.IsNotExist(err) {
		return err
	}
	w.prune()
	return w.open()
}

func compressFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(out, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = out.Close()
		return err
	}
	if _, err := io.Copy(enc, in); err != nil {
		_ = enc.Close()
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	if err := enc.Close(); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// Segments 返回已压缩的日志段（旧到新）。
func (w *RotatingFile) Segments() []string {
	ents, err := os.ReadDir(w.dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range ents {
		name := e.Name()
		if !e.IsDir() && strings.HasPrefix(name, logSegPrefix) && strings.HasSuffix(name, logSegSuffix) {
			out = append(out, filepath.Join(w.dir, name))
		}
	}
	// 时间戳定宽，字典序即时间序
	sort.Strings(out)
	return out
}

func (w *RotatingFile) prune() {
	segs := w.Segments()
	for len(segs) > w.keep {
		_ = os.Remove(segs[0])
		segs = segs[1:]
	}
}

// Close 关闭活动段。
func (w *RotatingFile) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.f == nil {
		return nil
	}
	err := w.f.Close()
	w.f = nil
	return err
}
