package command

import (
	"fmt"
	"strings"

	"ltexfrag/pkg/contract"
)

// ArgumentType: 参数槽类型。
type ArgumentType int

const (
	// Optional: 方括号参数 [..]，可缺省。
	Optional ArgumentType = iota
	// Mandatory: 花括号参数 {..}，必须出现。
	Mandatory
)

func (a ArgumentType) String() string {
	if a == Optional {
		return "[]"
	}
	return "{}"
}

func (a ArgumentType) delims() (open, close byte) {
	if a == Optional {
		return '[', ']'
	}
	return '{', '}'
}

// Signature: 宏/环境语法的声明式描述（原型）。
// 身份以 Prototype（规范文本）为准，可作为 map 键使用。
// 环境原型 \begin{env}/\end{env} 的环境名为 Name 的字面量部分。
type Signature struct {
	// Prototype: 规范文本，如 `\foreignlanguage[]{}{}`、`\begin{otherlanguage*}{}`。
	Prototype string
	// Name: 需逐字匹配的头部，如 `\footnote`、`\begin{otherlanguage*}`。
	Name string
	// Slots: 有序参数槽。
	Slots []ArgumentType

	// word: 控制字（不含星号与环境名），匹配器按此分桶。
	word string
}

// ControlWord 返回原型的控制字（如 `\begin`、`\textgerman`）。
func (s *Signature) ControlWord() string { return s.word }

// IsBegin / IsEnd 判断环境起止原型。
func (s *Signature) IsBegin() bool { return s.word == `\begin` }
func (s *Signature) IsEnd() bool   { return s.word == `\end` }

// Environment 返回环境名（非环境原型返回空串）。
func (s *Signature) Environment() string {
	if !s.IsBegin() && !s.IsEnd() {
		return ""
	}
	return strings.TrimSuffix(strings.TrimPrefix(s.Name, s.word+"{"), "}")
}

func (s *Signature) String() string { return s.Prototype }

// ParseSignature 解析命令原型文本。
// 语法：`\` 控制字（字母/@ 序列，或单个非字母字符）+ 可选 `*`，
// 若控制字为 begin/end 则紧随 `{环境名}` 字面量；其后为任意个 `{}` / `[]` 参数槽。
func ParseSignature(prototype string) (*Signature, error) {
	p := strings.TrimSpace(prototype)
	if len(p) < 2 || p[0] != '\\' {
		return nil, fmt.Errorf("%w: %q", contract.ErrInvalidPrototype, prototype)
	}
	i := 1
	if isLetter(p[i]) {
		for i < len(p) && isLetter(p[i]) {
			i++
		}
	} else {
		i++
	}
	word := p[:i]
	// 连字符拼写（如 \textenglish-australia）：控制字仍为字母前缀，其余作为头部字面量
	for isLetter(word[len(word)-1]) && i+1 < len(p) && p[i] == '-' && isLetter(p[i+1]) {
		i++
		for i < len(p) && isLetter(p[i]) {
			i++
		}
	}
	if i < len(p) && p[i] == '*' {
		i++
	}
	name := p[:i]
	if word == `\begin` || word == `\end` {
		if name != word || i >= len(p) || p[i] != '{' {
			return nil, fmt.Errorf("%w: environment name missing in %q", contract.ErrInvalidPrototype, prototype)
		}
		end := strings.IndexByte(p[i:], '}')
		if end <= 1 {
			return nil, fmt.Errorf("%w: environment name missing in %q", contract.ErrInvalidPrototype, prototype)
		}
		env := p[i+1 : i+end]
		if strings.ContainsAny(env, "{}[] \t\n\\") {
			return nil, fmt.Errorf("%w: bad environment name %q", contract.ErrInvalidPrototype, env)
		}
		i += end + 1
		name = p[:i]
	}
	var slots []ArgumentType
	for i < len(p) {
		if i+1 >= len(p) {
			return nil, fmt.Errorf("%w: trailing %q in %q", contract.ErrInvalidPrototype, p[i:], prototype)
		}
		switch p[i : i+2] {
		case "[]":
			slots = append(slots, Optional)
		case "{}":
			slots = append(slots, Mandatory)
		default:
			return nil, fmt.Errorf("%w: unexpected %q in %q", contract.ErrInvalidPrototype, p[i:], prototype)
		}
		i += 2
	}
	sig := &Signature{Name: name, Slots: slots, word: word}
	var b strings.Builder
	b.WriteString(name)
	for _, s := range slots {
		b.WriteString(s.String())
	}
	sig.Prototype = b.String()
	return sig, nil
}

// MustParseSignature 用于静态表；解析失败直接 panic。
func MustParseSignature(prototype string) *Signature {
	s, err := ParseSignature(prototype)
	if err != nil {
		panic(err)
	}
	return s
}

// CanonicalPrototype 返回用户给定原型的规范形式；无法解析时返回去空白的原文。
func CanonicalPrototype(prototype string) string {
	s, err := ParseSignature(prototype)
	if err != nil {
		return strings.TrimSpace(prototype)
	}
	return s.Prototype
}

func isLetter(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || c == '@'
}
