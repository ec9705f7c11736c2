package command

// OptionText: 选项键或值的文本及其相对被解析串的偏移。
type OptionText struct {
	Text   string
	Offset int
}

// PackageOption: 宏包选项 key[=value]。
type PackageOption struct {
	Key      OptionText
	Value    OptionText
	HasValue bool
}

// ParseOptions 解析 `[...]` 内的逗号分隔选项列表。
// 仅在顶层（不在花括号内）按 ',' 与每项首个 '=' 切分；去首尾空白；
// 值若整体被一对花括号包裹则剥去外层。空项丢弃，保持原顺序。
func ParseOptions(s string) []PackageOption {
	var out []PackageOption
	depth := 0
	start := 0
	eq := -1
	emit := func(end int) {
		var opt PackageOption
		keyEnd := end
		if eq >= 0 {
			keyEnd = eq
		}
		opt.Key = trimText(s, start, keyEnd)
		if eq >= 0 {
			opt.HasValue = true
			opt.Value = unbrace(trimText(s, eq+1, end))
		}
		if opt.Key.Text == "" && !opt.HasValue {
			return
		}
		out = append(out, opt)
	}
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			if i+1 < len(s) {
				i++
			}
		case '{':
			depth++
		case '}':
			if depth > 0 {
				depth--
			}
		case '=':
			if depth == 0 && eq < 0 {
				eq = i
			}
		case ',':
			if depth == 0 {
				emit(i)
				start = i + 1
				eq = -1
			}
		}
	}
	emit(len(s))
	return out
}

func trimText(s string, from, to int) OptionText {
	for from < to && isSpace(s[from]) {
		from++
	}
	for to > from && isSpace(s[to-1]) {
		to--
	}
	return OptionText{Text: s[from:to], Offset: from}
}

func unbrace(t OptionText) OptionText {
	n := len(t.Text)
	if n < 2 || t.Text[0] != '{' || t.Text[n-1] != '}' {
		return t
	}
	end, ok := scanArgument(t.Text, 0, '{', '}')
	if !ok || end != n-1 {
		return t
	}
	return OptionText{Text: t.Text[1 : n-1], Offset: t.Offset + 1}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
