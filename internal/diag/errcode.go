package diag

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"ltexfrag/pkg/contract"
)

// Code 是最小错误分类代码。
// 仅用于日志/指标汇总，与退出码解耦。
type Code string

const (
	CodeUnknown   Code = "unknown"
	CodeConfig    Code = "config"
	CodeInvariant Code = "invariant"
	CodeCancel    Code = "cancel"
	CodeIO        Code = "io"
)

// 诊断（warn）代码：片段化过程中不中断处理的旁路事件。
const (
	WarnUnknownLanguage  = "unknown_language"
	WarnDialectFallback  = "dialect_fallback"
	WarnInvalidDirective = "invalid_directive"
)

// Classify 将错误归为最小分类。
// 说明：仅依赖哨兵错误与库错误类型，不做字符串匹配。
func Classify(err error) Code {
	if err == nil {
		return CodeUnknown
	}
	// 取消/超时优先
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return CodeCancel
	}
	// 配置：未知方言/非法原型/配置文件语法
	if errors.Is(err, contract.ErrUnknownDialect) || errors.Is(err, contract.ErrInvalidPrototype) {
		return CodeConfig
	}
	var jsyn *json.SyntaxError
	var jtyp *json.UnmarshalTypeError
	var tperr toml.ParseError
	var yterr *yaml.TypeError
	if errors.As(err, &jsyn) || errors.As(err, &jtyp) || errors.As(err, &tperr) || errors.As(err, &yterr) {
		return CodeConfig
	}
	// 不变量
	if errors.Is(err, contract.ErrInvariantViolation) ||
		errors.Is(err, contract.ErrInvalidInput) ||
		errors.Is(err, contract.ErrPathInvalid) {
		return CodeInvariant
	}
	// I/O
	var perr *os.PathError
	if errors.As(err, &perr) {
		return CodeIO
	}
	return CodeUnknown
}

// NowUTC 返回 RFC3339 UTC 时间字符串（用于结构化日志字段 ts）。
func NowUTC() string { return time.Now().UTC().Format(time.RFC3339) }
