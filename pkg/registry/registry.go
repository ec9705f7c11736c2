package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"ltexfrag/pkg/contract"
	ecbor "ltexfrag/plugins/encoder/cbor"
	ejsonl "ltexfrag/plugins/encoder/jsonl"
	flatex "ltexfrag/plugins/fragmentizer/latex"
	fmd "ltexfrag/plugins/fragmentizer/markdown"
	fplain "ltexfrag/plugins/fragmentizer/plaintext"
	rfs "ltexfrag/plugins/reader/filesystem"
	wfs "ltexfrag/plugins/writer/filesystem"
)

// strictUnmarshal: 使用 DisallowUnknownFields 严格解码，拒绝未知字段。
func strictUnmarshal(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		// 保持零值（默认选项）
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", contract.ErrInvalidInput, err)
	}
	return nil
}

// NewReader 工厂签名：接收原样 JSON Options。
type NewReader func(raw json.RawMessage) (contract.Reader, error)

// NewFragmentizer 工厂签名：接收原样 JSON Options。
type NewFragmentizer func(raw json.RawMessage) (contract.Fragmentizer, error)

// NewEncoder 工厂签名：接收原样 JSON Options。
type NewEncoder func(raw json.RawMessage) (contract.Encoder, error)

// NewWriter 工厂签名：接收原样 JSON Options。
type NewWriter func(raw json.RawMessage) (contract.Writer, error)

// Reader 工厂注册表（显式、零反射）。
var Reader = map[string]NewReader{
	// fs: 文件系统/STDIN Reader
	"fs": func(raw json.RawMessage) (contract.Reader, error) {
		var opts rfs.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return rfs.New(&opts), nil
	},
}

func latexFactory(dialect contract.DialectID) NewFragmentizer {
	return func(raw json.RawMessage) (contract.Fragmentizer, error) {
		var opts flatex.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return flatex.New(dialect, &opts), nil
	}
}

// Fragmentizer 工厂注册表，键为方言名。
var Fragmentizer = map[string]NewFragmentizer{
	string(contract.DialectLatex):   latexFactory(contract.DialectLatex),
	string(contract.DialectRSweave): latexFactory(contract.DialectRSweave),
	string(contract.DialectMarkdown): func(raw json.RawMessage) (contract.Fragmentizer, error) {
		var opts fmd.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return fmd.New(&opts), nil
	},
	string(contract.DialectPlaintext): func(raw json.RawMessage) (contract.Fragmentizer, error) {
		var opts fplain.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return fplain.New(&opts), nil
	},
}

// Encoder 工厂注册表。
var Encoder = map[string]NewEncoder{
	// jsonl: 每行一个片段记录
	"jsonl": func(raw json.RawMessage) (contract.Encoder, error) {
		var opts ejsonl.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return ejsonl.New(&opts), nil
	},
	// cbor: 确定性 CBOR 序列
	"cbor": func(raw json.RawMessage) (contract.Encoder, error) {
		var opts ecbor.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return ecbor.New(&opts), nil
	},
}

// Writer 工厂注册表。
var Writer = map[string]NewWriter{
	// fs: 文件系统 Writer（覆盖写/原子替换可配置，可选 zstd 压缩）
	"fs": func(raw json.RawMessage) (contract.Writer, error) {
		var opts wfs.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return wfs.New(&opts)
	},
}

// Dialects 返回已注册的方言名（已排序）。
func Dialects() []string {
	return sortedKeys(Fragmentizer)
}

// Encoders 返回已注册的编码器名（已排序）。
func Encoders() []string {
	return sortedKeys(Encoder)
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
