// Package plaintext 实现纯文本片段化：仅按行注释指令（默认 `#`）划分。
package plaintext

import (
	"ltexfrag/pkg/contract"
	"ltexfrag/plugins/fragmentizer/comment"
)

// Options: 纯文本片段化选项。
type Options struct {
	// CommentMarker: 指令注释标记，默认 "#"。
	CommentMarker string `json:"comment_marker,omitempty"`
}

// Fragmentizer 为纯文本方言的片段化器。
type Fragmentizer struct {
	pass *comment.Pass
}

// New 构造片段化器。
func New(opts *Options) *Fragmentizer {
	var co comment.Options
	if opts != nil {
		co.Marker = opts.CommentMarker
	}
	return &Fragmentizer{pass: comment.New(contract.DialectPlaintext, &co)}
}

// Fragmentize 返回输入的精确划分。
func (f *Fragmentizer) Fragmentize(code string, settings contract.Settings) []contract.Fragment {
	return f.pass.Fragmentize(code, settings)
}
