package stream

import (
	"bufio"
	"context"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"recipe-finder/internal/core/recipe"
	"recipe-finder/internal/pkg/common"

	"go.uber.org/zap"
)

// 串流協定的標記
const (
	StatusTag     = "[STATUS]"
	RecipesMarker = "[RECIPES_START]"
)

var statusPattern = regexp.MustCompile(`\[STATUS\]([^\n]+)`)

// Protocol 上游文字串流的格式
type Protocol int

const (
	// Marked 狀態行以 [STATUS] 開頭，JSON 陣列在 [RECIPES_START] 之後
	Marked Protocol = iota
	// Unmarked 自由敘述文字，JSON 陣列可能出現在任何位置
	Unmarked
)

func (p Protocol) String() string {
	if p == Unmarked {
		return "unmarked"
	}
	return "marked"
}

// Update 每次收到片段後對外公開的狀態
type Update struct {
	Status   string          `json:"status"`
	Recipes  []recipe.Recipe `json:"recipes"`
	Complete bool            `json:"complete"`
}

// Parser 單一請求專用的增量解析器，不可跨 goroutine 共用
type Parser struct {
	protocol Protocol
	policy   recipe.Policy

	buf      strings.Builder
	markerAt int
	scanner  *Scanner
	failed   bool
	// skipped 無法解析成食譜的陣列位置，不算入敘述文字
	skipped [][2]int

	state Update
}

// Option 調整 Parser
type Option func(*Parser)

// WithPolicy 指定食譜驗證策略，預設為 recipe.Strict
func WithPolicy(policy recipe.Policy) Option {
	return func(p *Parser) { p.policy = policy }
}

// NewParser 建立空狀態的解析器
func NewParser(protocol Protocol, opts ...Option) *Parser {
	p := &Parser{
		protocol: protocol,
		policy:   recipe.Strict,
		markerAt: -1,
		scanner:  NewScanner(),
		state:    Update{Recipes: []recipe.Recipe{}},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Feed 附加一段文字並回傳最新狀態
func (p *Parser) Feed(chunk string) Update {
	prevLen := p.buf.Len()
	p.buf.WriteString(chunk)
	text := p.buf.String()

	if p.protocol == Unmarked {
		p.feedUnmarked(text)
	} else {
		p.feedMarked(text, prevLen)
	}
	return p.State()
}

func (p *Parser) feedMarked(text string, prevLen int) {
	statusFinal := p.markerAt >= 0
	if p.markerAt < 0 {
		// 標記可能跨越兩個片段
		from := prevLen - len(RecipesMarker) + 1
		if from < 0 {
			from = 0
		}
		if i := strings.Index(text[from:], RecipesMarker); i >= 0 {
			p.markerAt = from + i
		}
	}

	if !statusFinal {
		region := text
		if p.markerAt >= 0 {
			region = text[:p.markerAt]
		}
		if status := lastStatus(region); status != "" {
			p.state.Status = status
		}
	}

	if p.markerAt < 0 || p.state.Complete || p.failed {
		return
	}

	payload := text[p.markerAt+len(RecipesMarker):]
	arr, ok := p.scanner.Scan(payload)
	if !ok {
		return
	}
	recipes, ok := decodeRecipes(arr, p.policy)
	if !ok {
		// 第一個完整陣列已固定，之後的資料不會讓它變成合法 JSON
		p.failed = true
		common.LogDebug("串流食譜 JSON 解析失敗", zap.Int("length", len(arr)))
		return
	}
	p.state.Recipes = recipes
	p.state.Complete = true
}

func (p *Parser) feedUnmarked(text string) {
	if p.state.Complete {
		return
	}

	for {
		arr, ok := p.scanner.Scan(text)
		if !ok {
			break
		}
		if recipes, ok := decodeRecipes(arr, p.policy); ok && len(recipes) > 0 {
			p.state.Recipes = recipes
			p.state.Complete = true
			break
		}
		// 不是食譜陣列，繼續往後找
		p.skipped = append(p.skipped, [2]int{p.scanner.Start(), p.scanner.End()})
		p.scanner.ResetAt(p.scanner.End())
	}

	end := len(text)
	if start := p.scanner.Start(); start >= 0 {
		end = start
	}
	if status := lastLine(p.narration(text[:end])); status != "" {
		p.state.Status = status
	}
}

// narration 去掉已略過的陣列後剩下的文字
func (p *Parser) narration(text string) string {
	if len(p.skipped) == 0 {
		return text
	}
	var b strings.Builder
	from := 0
	for _, span := range p.skipped {
		b.WriteString(text[from:span[0]])
		from = span[1]
	}
	b.WriteString(text[from:])
	return b.String()
}

// State 目前狀態的副本
func (p *Parser) State() Update {
	out := p.state
	out.Recipes = append([]recipe.Recipe(nil), p.state.Recipes...)
	if out.Recipes == nil {
		out.Recipes = []recipe.Recipe{}
	}
	return out
}

// Finish 串流結束時的最終狀態
func (p *Parser) Finish() Update {
	return p.State()
}

// MarkerSeen 是否已收到 [RECIPES_START]
func (p *Parser) MarkerSeen() bool {
	return p.markerAt >= 0
}

// Text 目前累積的全部文字
func (p *Parser) Text() string {
	return p.buf.String()
}

func lastStatus(text string) string {
	matches := statusPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return ""
	}
	return strings.TrimSpace(matches[len(matches)-1][1])
}

func lastLine(text string) string {
	lines := strings.Split(text, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}

// decodeRecipes 解析陣列；元素可以是 {recipe: {...}} 包裝或直接帶 name/title 的物件
func decodeRecipes(arr string, policy recipe.Policy) ([]recipe.Recipe, bool) {
	v, err := recipe.ParseValue(arr)
	if err != nil || v.Kind() != recipe.Array {
		return nil, false
	}

	recipes := []recipe.Recipe{}
	for _, item := range v.Items() {
		if item.Kind() != recipe.Object {
			continue
		}
		candidate := item
		if wrapped := item.Get("recipe"); wrapped.Kind() == recipe.Object {
			candidate = wrapped
		} else if item.Get("name").Text() == "" && item.Get("title").Text() == "" {
			continue
		}
		if r, ok := recipe.Normalize(candidate, policy); ok {
			recipes = append(recipes, r)
		}
	}
	return recipes, true
}

// Consume 依序讀取 r 並餵給 p，每段資料後呼叫 emit。
// 讀取錯誤只記錄，回傳最後的有效狀態；ctx 在兩次讀取之間檢查。
func Consume(ctx context.Context, r io.Reader, p *Parser, emit func(Update)) Update {
	br := bufio.NewReaderSize(r, 4096)
	buf := make([]byte, 4096)
	var pending []byte

	for {
		if err := ctx.Err(); err != nil {
			common.LogDebug("串流讀取已取消", zap.Error(err))
			break
		}

		n, err := br.Read(buf)
		if n > 0 {
			data := append(pending, buf[:n]...)
			cut := completeUTF8Prefix(data)
			if cut > 0 {
				upd := p.Feed(string(data[:cut]))
				if emit != nil {
					emit(upd)
				}
			}
			pending = append([]byte(nil), data[cut:]...)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			common.LogWarn("串流讀取中斷，使用最後狀態", zap.Error(err))
			break
		}
	}

	if len(pending) > 0 {
		upd := p.Feed(string(pending))
		if emit != nil {
			emit(upd)
		}
	}
	return p.Finish()
}

// completeUTF8Prefix 回傳不切斷多位元組字元的最長前綴長度
func completeUTF8Prefix(data []byte) int {
	for i := len(data) - 1; i >= 0 && i >= len(data)-utf8.UTFMax; i-- {
		if utf8.RuneStart(data[i]) {
			if utf8.FullRune(data[i:]) {
				return len(data)
			}
			return i
		}
	}
	return len(data)
}
