package diag

import (
	"sort"
	"sync"
)

// 进程内最小指标（无导出器）。名称：
// - op_total{comp,stage,result}
// - error_total{comp,code}
// - warn_total{comp,code}
// - op_duration_ms{comp,stage}（累计）

var (
	metricsMu sync.Mutex
	counters  = map[string]int64{}
)

func add(key string, v int64) {
	metricsMu.Lock()
	counters[key] += v
	metricsMu.Unlock()
}

// IncOp 累加操作计数（result=success|error）。
func IncOp(comp, stage, result string) {
	add("op_total{"+comp+","+stage+","+result+"}", 1)
}

// IncError 按分类累加错误计数。
func IncError(comp, code string) {
	add("error_total{"+comp+","+code+"}", 1)
}

// IncWarning 累加诊断计数（unknown_language / invalid_directive）。
func IncWarning(comp, code string) {
	add("warn_total{"+comp+","+code+"}", 1)
}

// ObserveDuration 记录阶段耗时（毫秒，累计）。
func ObserveDuration(comp, stage string, durMS int64) {
	add("op_duration_ms{"+comp+","+stage+"}", durMS)
}

// Counter 为快照中的一项。
type Counter struct {
	Name  string
	Value int64
}

// Snapshot 返回当前全部计数（按名称排序）。
func Snapshot() []Counter {
	metricsMu.Lock()
	out := make([]Counter, 0, len(counters))
	for k, v := range counters {
		out = append(out, Counter{Name: k, Value: v})
	}
	metricsMu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Value 返回单项计数（不存在为 0）。
func Value(name string) int64 {
	metricsMu.Lock()
	defer metricsMu.Unlock()
	return counters[name]
}

// Reset 清空计数（测试与多次运行之间使用）。
func Reset() {
	metricsMu.Lock()
	counters = map[string]int64{}
	metricsMu.Unlock()
}
