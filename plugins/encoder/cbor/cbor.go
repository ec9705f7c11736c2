// Package cbor 将片段序列编码为 CBOR 序列（RFC 8742）：每个记录一个确定性编码的数据项。
package cbor

import (
	"fmt"
	"io"

	fxcbor "github.com/fxamacker/cbor/v2"

	"ltexfrag/pkg/contract"
	"ltexfrag/plugins/encoder/record"
)

// encMode 使用核心确定性编码：同一记录恒得相同字节。
var encMode fxcbor.EncMode

func init() {
	var err error
	encMode, err = fxcbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("cbor: encoder initialization failed: " + err.Error())
	}
}

// Options: CBOR 编码选项。
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

// Ext 返回 ".cbor"。
func (e *Encoder) Ext() string { return ".cbor" }

// Encode 按输入顺序写出记录。
func (e *Encoder) Encode(w io.Writer, fileID contract.FileID, frags []contract.Fragment) error {
	enc := encMode.NewEncoder(w)
	for i, f := range frags {
		rec := record.From(fileID, i, f)
		if e.opts.SkipDisabled && !rec.Enabled {
			continue
		}
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("cbor encode %s#%d: %w", fileID, i, err)
		}
	}
	return nil
}
