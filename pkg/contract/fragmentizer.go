package contract

// Fragmentizer: 将单个文档拆分为有序 Fragment 序列，每个片段携带其适用的 Settings。
// 约束：
// 1) 纯函数：无 I/O、无内部并发、不阻塞；
// 2) 永不失败：畸形输入退化为尽力而为的结果（至少返回一个片段）；
// 3) 诊断经日志旁路输出，不影响返回值；
// 4) 片段偏移均为原文绝对字节偏移。
type Fragmentizer interface {
	Fragmentize(code string, settings Settings) []Fragment
}

// Pass: 片段列表到片段列表的单趟变换（流水线中的一个阶段）。
type Pass func(frags []Fragment) []Fragment
