package command

import "strings"

// Argument: 单个参数槽的匹配结果。
type Argument struct {
	// Content: 定界符内的原文（嵌套定界符保留）。
	Content string
	// FromPos: Content 在扫描文本中的起始偏移；缺省的可选参数为其应出现的位置。
	FromPos int
	// Present: 可选参数是否出现；必选参数恒为 true。
	Present bool
}

// Match: 一次签名匹配（偏移相对 StartMatching 传入的文本）。
type Match struct {
	FromPos   int
	ToPos     int
	Signature *Signature
	args      []Argument
}

// ArgumentCount 返回参数槽个数。
func (m Match) ArgumentCount() int { return len(m.args) }

// ArgumentContent 返回第 i 个参数的内容。
func (m Match) ArgumentContent(i int) string { return m.args[i].Content }

// ArgumentFromPos 返回第 i 个参数内容的起始偏移。
func (m Match) ArgumentFromPos(i int) int { return m.args[i].FromPos }

// ArgumentPresent 判断第 i 个参数是否出现。
func (m Match) ArgumentPresent(i int) bool { return m.args[i].Present }

// Argument 返回第 i 个参数。
func (m Match) Argument(i int) Argument { return m.args[i] }

// Matcher: 在文本中顺序查找已注册签名的下一次出现。
// 约束：
// - 只前进、不可重启：FindNextMatch 一旦返回 false，序列即耗尽；
// - 匹配互不重叠，FromPos 严格递增；
// - 同一位置多个候选：仅完整匹配有效，取 ToPos 最大者，再取原型更长者；
// - 被忽略的原型在该位置完整匹配且覆盖不短于最佳候选时，整处出现被跳过；
// - 单处畸形不影响整体：跳过该处，从控制字之后继续。
type Matcher struct {
	byWord map[string][]*Signature

	// OnMiss: 控制字与某签名名称吻合但参数不完整、且无候选成立时回调。
	OnMiss func(sig *Signature, pos int)

	code    string
	closeAt []int
	pos     int
	ignored map[string]struct{}
	done    bool
}

// NewMatcher 以签名集合构造匹配器；同一原型重复注册时保留首个。
func NewMatcher(signatures []*Signature) *Matcher {
	m := &Matcher{byWord: make(map[string][]*Signature), done: true}
	seen := make(map[string]struct{}, len(signatures))
	for _, s := range signatures {
		if _, ok := seen[s.Prototype]; ok {
			continue
		}
		seen[s.Prototype] = struct{}{}
		m.byWord[s.word] = append(m.byWord[s.word], s)
	}
	return m
}

// StartMatching 重置扫描状态；ignored 中的原型不参与匹配。
func (m *Matcher) StartMatching(code string, ignored map[string]struct{}) {
	m.code = code
	m.closeAt = closeIndex(code)
	m.pos = 0
	m.ignored = ignored
	m.done = false
}

// FindNextMatch 返回下一处匹配；无更多匹配时返回 false。
func (m *Matcher) FindNextMatch() (Match, bool) {
	if m.done {
		return Match{}, false
	}
	code := m.code
	for m.pos < len(code) {
		rel := strings.IndexByte(code[m.pos:], '\\')
		if rel < 0 {
			break
		}
		p := m.pos + rel
		q := p + 1
		if q >= len(code) {
			break
		}
		if !isLetter(code[q]) {
			// 控制符号（\\、\{、\% 等）整体跳过
			m.pos = q + 1
			continue
		}
		for q < len(code) && isLetter(code[q]) {
			q++
		}
		if best, ok := m.matchAt(p, code[p:q]); ok {
			m.pos = best.ToPos
			return best, true
		}
		m.pos = q
	}
	m.done = true
	return Match{}, false
}

// FindAll 为一次性的急切形式，与逐个 FindNextMatch 等价。
func (m *Matcher) FindAll(code string, ignored map[string]struct{}) []Match {
	m.StartMatching(code, ignored)
	var out []Match
	for {
		mt, ok := m.FindNextMatch()
		if !ok {
			return out
		}
		out = append(out, mt)
	}
}

func (m *Matcher) matchAt(p int, word string) (Match, bool) {
	var best Match
	found := false
	ignoredTo := -1
	ignoredHit := false
	var missed *Signature
	for _, sig := range m.byWord[word] {
		cur, res := sig.matchAt(m.code, m.closeAt, p)
		if res == noName {
			continue
		}
		if _, skip := m.ignored[sig.Prototype]; skip {
			ignoredHit = true
			if res == complete && cur.ToPos > ignoredTo {
				ignoredTo = cur.ToPos
			}
			continue
		}
		if res == malformed {
			if missed == nil {
				missed = sig
			}
			continue
		}
		if !found || cur.ToPos > best.ToPos ||
			(cur.ToPos == best.ToPos && len(cur.Signature.Prototype) > len(best.Signature.Prototype)) {
			best = cur
			found = true
		}
	}
	if found && ignoredTo >= best.ToPos {
		return Match{}, false
	}
	if !found && !ignoredHit && missed != nil && m.OnMiss != nil {
		m.OnMiss(missed, p)
	}
	return best, found
}

// attempt: 单个签名在某位置的尝试结果。
type attempt int

const (
	noName    attempt = iota // 名称不吻合
	malformed                // 名称吻合，参数不完整
	complete
)

// matchAt 尝试在 from 处完整匹配本签名；closeAt 为 closeIndex 的结果。
func (s *Signature) matchAt(code string, closeAt []int, from int) (Match, attempt) {
	if !strings.HasPrefix(code[from:], s.Name) {
		return Match{}, noName
	}
	q := from + len(s.Name)
	if q < len(code) {
		last := s.Name[len(s.Name)-1]
		if isLetter(last) && isLetter(code[q]) {
			return Match{}, noName
		}
		// 无星号的原型不匹配星号变体
		if last != '*' && last != '}' && code[q] == '*' {
			return Match{}, noName
		}
	}
	args := make([]Argument, len(s.Slots))
	for i, slot := range s.Slots {
		open, _ := slot.delims()
		r := skipSpace(code, q)
		if r < len(code) && code[r] == open {
			end := closeAt[r]
			if end <= r {
				return Match{}, malformed
			}
			args[i] = Argument{Content: code[r+1 : end], FromPos: r + 1, Present: true}
			q = end + 1
			continue
		}
		if slot == Mandatory {
			return Match{}, malformed
		}
		args[i] = Argument{FromPos: q}
	}
	return Match{FromPos: from, ToPos: q, Signature: s, args: args}, complete
}

// skipSpace 跳过命令与参数之间的空白；最多跨越一个换行（空行结束参数列表）。
func skipSpace(code string, i int) int {
	newlines := 0
	for i < len(code) {
		switch code[i] {
		case ' ', '\t', '\r':
		case '\n':
			newlines++
			if newlines > 1 {
				return i
			}
		default:
			return i
		}
		i++
	}
	return i
}

// closeIndex 以一次栈扫描求出每个 '{' 与 '[' 对应的闭定界符下标，无匹配为 -1。
// 反斜杠转义其后一个字节；方括号只在同一花括号层内配对，
// 因此方括号参数内的花括号组会屏蔽其中的 ']'，方括号参数也不会越出所在的花括号组。
// 总工作量与文本长度成正比，畸形输入上的重复尝试只做查表。
func closeIndex(code string) []int {
	closeAt := make([]int, len(code))
	type group struct {
		open     int
		brackets []int
	}
	stack := []group{{open: -1}}
	for i := 0; i < len(code); i++ {
		switch code[i] {
		case '\\':
			i++
		case '{':
			closeAt[i] = -1
			stack = append(stack, group{open: i})
		case '}':
			if len(stack) > 1 {
				closeAt[stack[len(stack)-1].open] = i
				stack = stack[:len(stack)-1]
			}
		case '[':
			closeAt[i] = -1
			top := &stack[len(stack)-1]
			top.brackets = append(top.brackets, i)
		case ']':
			top := &stack[len(stack)-1]
			if n := len(top.brackets); n > 0 {
				closeAt[top.brackets[n-1]] = i
				top.brackets = top.brackets[:n-1]
			}
		}
	}
	return closeAt
}

// scanArgument 自 code[start]（开定界符）起求匹配的闭定界符下标。
func scanArgument(code string, start int, open, close byte) (int, bool) {
	if start >= len(code) || code[start] != open {
		return -1, false
	}
	end := closeIndex(code[start:])[0]
	if end <= 0 || code[start+end] != close {
		return -1, false
	}
	return start + end, true
}
