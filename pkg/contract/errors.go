package contract

import "errors"

// 最小错误分类（用于日志分类与上层策略判定）。
var (
	// ErrPathInvalid: 目标标识映射为无效/越界路径（例如绝对路径或 '..' 逃逸）。
	ErrPathInvalid = errors.New("path invalid")
	// ErrInvariantViolation: 领域不变量违例（通用哨兵）。
	ErrInvariantViolation = errors.New("invariant violation")
	// ErrInvalidInput: 调用方输入非法（空路径、非法选项等）。
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidPrototype: 命令原型无法解析（如 "\foo{" 或 "foo{}"）。
	ErrInvalidPrototype = errors.New("invalid command prototype")
	// ErrUnknownDialect: 方言未注册。
	ErrUnknownDialect = errors.New("unknown dialect")
)
