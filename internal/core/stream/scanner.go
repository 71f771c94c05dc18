package stream

// Scanner 在持續增長的文字中尋找第一個語法完整的 JSON 陣列。
// 只在字串外計算中括號深度，字串內處理反斜線跳脫；
// 每次 Scan 只掃描新增的位元組。
type Scanner struct {
	start    int
	pos      int
	depth    int
	inString bool
	escaped  bool
	end      int
}

// NewScanner 建立從位置 0 開始的掃描器
func NewScanner() *Scanner {
	s := &Scanner{}
	s.ResetAt(0)
	return s
}

// ResetAt 捨棄目前進度，從 offset 開始尋找下一個陣列
func (s *Scanner) ResetAt(offset int) {
	*s = Scanner{start: -1, pos: offset, end: -1}
}

// Start 目前陣列起點，尚未找到 '[' 時為 -1
func (s *Scanner) Start() int { return s.start }

// End 完整陣列結尾（不含），尚未完整時為 -1
func (s *Scanner) End() int { return s.end }

// Scan 傳入的 text 必須是前一次呼叫內容的延伸
func (s *Scanner) Scan(text string) (string, bool) {
	if s.end >= 0 {
		return text[s.start:s.end], true
	}

	for ; s.pos < len(text); s.pos++ {
		c := text[s.pos]

		if s.start < 0 {
			if c == '[' {
				s.start = s.pos
				s.depth = 1
			}
			continue
		}

		if s.inString {
			switch {
			case s.escaped:
				s.escaped = false
			case c == '\\':
				s.escaped = true
			case c == '"':
				s.inString = false
			}
			continue
		}

		switch c {
		case '"':
			s.inString = true
		case '[':
			s.depth++
		case ']':
			s.depth--
			if s.depth == 0 {
				s.end = s.pos + 1
				s.pos++
				return text[s.start:s.end], true
			}
		}
	}
	return "", false
}

// FindCompleteJSONArray 回傳 text 中第一個完整的頂層 JSON 陣列
func FindCompleteJSONArray(text string) (string, bool) {
	return NewScanner().Scan(text)
}
