package contract

import "io"

// Encoder: 将单文件的片段序列编码为交给检查组件的字节流。
// 约束：按输入顺序输出；不得修改 Fragment 内容。
type Encoder interface {
	// Ext 返回工件扩展名（含点，如 ".jsonl"）。
	Ext() string
	Encode(w io.Writer, fileID FileID, frags []Fragment) error
}
