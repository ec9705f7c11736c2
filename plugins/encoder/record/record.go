// Package record 定义交给检查组件的片段记录及其指纹。
package record

import (
	"encoding/binary"
	"encoding/hex"
	"sort"

	"github.com/zeebo/blake3"

	"ltexfrag/pkg/contract"
)

// Record: 单个片段的序列化形态。
// 重叠片段（行内/环境/附加命令）指纹可能相同，消费方据此去重。
type Record struct {
	File        string   `json:"file" cbor:"file"`
	Index       int      `json:"index" cbor:"index"`
	Dialect     string   `json:"dialect" cbor:"dialect"`
	From        int      `json:"from" cbor:"from"`
	To          int      `json:"to" cbor:"to"`
	Language    string   `json:"language" cbor:"language"`
	Enabled     bool     `json:"enabled" cbor:"enabled"`
	Ignored     []string `json:"ignored,omitempty" cbor:"ignored,omitempty"`
	Code        string   `json:"code" cbor:"code"`
	Fingerprint string   `json:"fingerprint" cbor:"fingerprint"`
}

// From 将片段转为记录。
func From(fileID contract.FileID, index int, f contract.Fragment) Record {
	spec := f.Settings.Spec()
	var ignored []string
	for proto, c := range spec.Commands {
		if c == contract.ClassIgnore {
			ignored = append(ignored, proto)
		}
	}
	sort.Strings(ignored)
	return Record{
		File:        string(fileID),
		Index:       index,
		Dialect:     string(f.Dialect),
		From:        f.FromPos,
		To:          f.ToPos(),
		Language:    f.Settings.LanguageShortCode(),
		Enabled:     f.Settings.IsEnabled(f.Dialect),
		Ignored:     ignored,
		Code:        f.Code,
		Fingerprint: Fingerprint(f),
	}
}

// Fingerprint 以 BLAKE3 摘要标识（方言, 偏移, 区域码, 文本），取前 16 字节十六进制。
func Fingerprint(f contract.Fragment) string {
	h := blake3.New()
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(f.FromPos))
	_, _ = h.Write([]byte(f.Dialect))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write(n[:])
	_, _ = h.Write([]byte(f.Settings.LanguageShortCode()))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(f.Code))
	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:16])
}
