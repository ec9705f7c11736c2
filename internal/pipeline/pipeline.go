package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"ltexfrag/internal/diag"
	"ltexfrag/pkg/contract"
)

// - 逐文件顺序处理：Reader → 方言判定 → Fragmentizer → Encoder → Writer。
// - 首错中止：任一阶段出错即返回，不再处理后续文件。
// - 片段化永不失败；其输出在编码前校验划分边界，越界视为不变量破坏。

// Components 聚合运行所需的原子组件。
type Components struct {
	Reader contract.Reader
	// Fragmentizers: 方言 → 片段化器。
	Fragmentizers map[contract.DialectID]contract.Fragmentizer
	Encoder       contract.Encoder
	Writer        contract.Writer
}

// Settings 运行期配置（最小必要）。
type Settings struct {
	Inputs []string
	// Dialect: 强制方言；空表示按扩展名判定。
	Dialect contract.DialectID
	// Fallback: 扩展名无法判定时使用的方言；空表示 plaintext。
	Fallback contract.DialectID
	// Settings: 每个文件的初始片段设置。
	Settings contract.Settings
}

// extDialects: 扩展名（小写）→ 方言。
var extDialects = map[string]contract.DialectID{
	".tex":      contract.DialectLatex,
	".latex":    contract.DialectLatex,
	".sty":      contract.DialectLatex,
	".cls":      contract.DialectLatex,
	".rnw":      contract.DialectRSweave,
	".md":       contract.DialectMarkdown,
	".markdown": contract.DialectMarkdown,
	".txt":      contract.DialectPlaintext,
}

// DialectForPath 按扩展名判定方言。
func DialectForPath(p string) (contract.DialectID, bool) {
	d, ok := extDialects[strings.ToLower(path.Ext(p))]
	return d, ok
}

// Run 执行完整流水线。
func Run(ctx context.Context, comp Components, set Settings, logger *diag.Logger) error {
	if err := sanity(comp, set); err != nil {
		return fmt.Errorf("sanity: %w", err)
	}
	roots := normalizeRoots(set.Inputs)

	var rtimer *diag.Timer
	if logger != nil {
		rtimer = logger.Start("reader", "iterate")
	}
	files := 0
	err := comp.Reader.Iterate(ctx, set.Inputs, func(fid contract.FileID, rc io.ReadCloser) error {
		if err := ctx.Err(); err != nil {
			_ = rc.Close()
			return err
		}
		data, rerr := io.ReadAll(rc)
		_ = rc.Close()
		if rerr != nil {
			stageError(logger, "reader", "read failed", fid, rerr)
			return fmt.Errorf("reader read %s: %w", fid, rerr)
		}
		files++
		if err := perFile(ctx, comp, set, logger, fid, artifactBase(roots, fid), string(data)); err != nil {
			return fmt.Errorf("perFile: %w", err)
		}
		return nil
	})
	if err != nil {
		if logger != nil {
			code := diag.Classify(err)
			logger.Error("reader", string(code), "iterate failed", nil)
			diag.IncOp("reader", "error", "error")
			if code != diag.CodeUnknown {
				diag.IncError("reader", string(code))
			}
		}
		return fmt.Errorf("reader iterate: %w", err)
	}
	if rtimer != nil {
		rtimer.Finish("iterate", int64(files))
		diag.IncOp("reader", "finish", "success")
	}
	return nil
}

// 单文件阶段数（用于终端进度）。
const fileStages = 3

func perFile(ctx context.Context, comp Components, set Settings, logger *diag.Logger, fid contract.FileID, base, code string) (err error) {
	dialect := resolveDialect(set, fid, logger)
	term := diag.GetTerminal()
	if term != nil {
		term.FileStart(string(fid), string(dialect))
	}
	fileStart := time.Now()
	nfrags := 0
	defer func() {
		if term != nil {
			term.FileFinish(err == nil, nfrags, time.Since(fileStart))
		}
		if err == nil {
			diag.IncOp("pipeline", "file", "success")
		} else {
			diag.IncOp("pipeline", "file", "error")
		}
	}()

	// 片段化
	fr := comp.Fragmentizers[dialect]
	if fr == nil {
		err = fmt.Errorf("%w: %q", contract.ErrUnknownDialect, dialect)
		stageError(logger, "fragmentizer", "no fragmentizer", fid, err)
		return err
	}
	var ftimer *diag.Timer
	if logger != nil {
		ftimer = logger.StartWith("fragmentizer", "fragmentize", string(fid))
	}
	frags := fr.Fragmentize(code, set.Settings)
	if err = checkPartition(code, frags); err != nil {
		stageError(logger, "fragmentizer", "fragment out of bounds", fid, err)
		return err
	}
	nfrags = len(frags)
	if ftimer != nil {
		ftimer.Finish("fragmentize", int64(nfrags))
	}
	term.FileProgress(1, fileStages)

	// 编码
	var buf bytes.Buffer
	var etimer *diag.Timer
	if logger != nil {
		etimer = logger.StartWith("encoder", "encode", string(fid))
	}
	if err = comp.Encoder.Encode(&buf, fid, frags); err != nil {
		stageError(logger, "encoder", "encode failed", fid, err)
		return fmt.Errorf("encoder encode: %w", err)
	}
	if etimer != nil {
		etimer.Finish("encode", int64(buf.Len()))
		diag.IncOp("encoder", "finish", "success")
	}
	term.FileProgress(2, fileStages)

	// 写出
	var wtimer *diag.Timer
	if logger != nil {
		wtimer = logger.StartWith("writer", "write", string(fid))
	}
	if err = comp.Writer.Write(ctx, contract.ArtifactID(base+comp.Encoder.Ext()), &buf); err != nil {
		stageError(logger, "writer", "write failed", fid, err)
		return fmt.Errorf("writer write: %w", err)
	}
	if wtimer != nil {
		wtimer.Finish("write", 1)
		diag.IncOp("writer", "finish", "success")
	}
	term.FileProgress(fileStages, fileStages)
	return nil
}

// resolveDialect: 强制方言优先，其次扩展名，最后回落方言（记 warn）。
func resolveDialect(set Settings, fid contract.FileID, logger *diag.Logger) contract.DialectID {
	if set.Dialect != "" {
		return set.Dialect
	}
	if d, ok := DialectForPath(string(fid)); ok {
		return d
	}
	fb := set.Fallback
	if fb == "" {
		fb = contract.DialectPlaintext
	}
	logger.Warn("pipeline", diag.WarnDialectFallback, "dialect not detected from extension", map[string]string{
		"file_id": string(fid),
		"dialect": string(fb),
	})
	diag.IncWarning("pipeline", diag.WarnDialectFallback)
	return fb
}

// checkPartition: 每个片段的 Code 必须等于原文对应区间。
func checkPartition(code string, frags []contract.Fragment) error {
	if len(frags) == 0 {
		return fmt.Errorf("%w: no fragments", contract.ErrInvariantViolation)
	}
	for i, f := range frags {
		if f.FromPos < 0 || f.ToPos() > len(code) || code[f.FromPos:f.ToPos()] != f.Code {
			return fmt.Errorf("%w: fragment %d [%d,%d) does not match source", contract.ErrInvariantViolation, i, f.FromPos, f.ToPos())
		}
	}
	return nil
}

// normalizeRoots 将输入根规范为与 FileID 相同的形式。
func normalizeRoots(inputs []string) []string {
	out := make([]string, 0, len(inputs))
	for _, r := range inputs {
		if r == "-" {
			continue
		}
		out = append(out, string(contract.NormalizeFileID(r)))
	}
	return out
}

// artifactBase 返回工件相对路径：目录根下的文件取相对路径，单文件根取文件名。
func artifactBase(roots []string, fid contract.FileID) string {
	id := string(fid)
	for _, root := range roots {
		if id == root {
			return path.Base(id)
		}
		if root == "." && !path.IsAbs(id) && id != ".." && !strings.HasPrefix(id, "../") {
			return id
		}
		prefix := root + "/"
		if root == "/" {
			prefix = root
		}
		if rest, ok := strings.CutPrefix(id, prefix); ok && rest != "" {
			return rest
		}
	}
	return path.Base(id)
}

func stageError(logger *diag.Logger, comp, msg string, fid contract.FileID, err error) {
	if logger == nil {
		return
	}
	code := diag.Classify(err)
	logger.ErrorWith(comp, string(code), msg, nil, string(fid))
	diag.IncOp(comp, "error", "error")
	if code != diag.CodeUnknown {
		diag.IncError(comp, string(code))
	}
}

func sanity(c Components, s Settings) error {
	if c.Reader == nil || c.Encoder == nil || c.Writer == nil || len(c.Fragmentizers) == 0 {
		return errors.New("pipeline: missing components")
	}
	if len(s.Inputs) == 0 {
		return errors.New("pipeline: empty inputs")
	}
	return nil
}
