// Package jsonl 将片段序列编码为 JSON Lines：每行一个记录。
package jsonl

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"ltexfrag/pkg/contract"
	"ltexfrag/plugins/encoder/record"
)

// Options: JSONL 编码选项。
type Options struct {
	// SkipDisabled: 跳过方言被关闭检查的片段。
	SkipDisabled bool `json:"skip_disabled,omitempty"`
}

// Encoder 实现 contract.Encoder。
type Encoder struct {
	opts Options
}

// New 构造编码器。
func New(opts *Options) *Encoder {
	e := &Encoder{}
	if opts != nil {
		e.opts = *opts
	}
	return e
}

// Ext 返回 ".jsonl"。
func (e *Encoder) Ext() string { return ".jsonl" }

// Encode 按输入顺序逐行写出记录。
func (e *Encoder) Encode(w io.Writer, fileID contract.FileID, frags []contract.Fragment) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	for i, f := range frags {
		rec := record.From(fileID, i, f)
		if e.opts.SkipDisabled && !rec.Enabled {
			continue
		}
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("jsonl encode %s#%d: %w", fileID, i, err)
		}
	}
	return bw.Flush()
}
