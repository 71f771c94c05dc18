package stream

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"recipe-finder/internal/core/recipe"
)

// DefaultRecipeLimit 工具事件模式最多接受的食譜數
const DefaultRecipeLimit = 5

// ToolResult 上游完成一次擷取後送出的事件
type ToolResult struct {
	Tool    string       `json:"tool"`
	URL     string       `json:"url"`
	Success bool         `json:"success"`
	Recipe  recipe.Value `json:"recipe"`
	Error   string       `json:"error,omitempty"`
}

// Collector 依序接收工具事件：以網址去重、驗證、限制數量，
// 最後只輸出一次 [RECIPES_START] 陣列。只能由單一 goroutine 使用。
type Collector struct {
	limit    int
	seen     map[string]struct{}
	recipes  []recipe.Recipe
	finished bool
}

// NewCollector limit <= 0 時使用 DefaultRecipeLimit
func NewCollector(limit int) *Collector {
	if limit <= 0 {
		limit = DefaultRecipeLimit
	}
	return &Collector{
		limit: limit,
		seen:  make(map[string]struct{}),
	}
}

// Accept 回傳事件是否新增了一筆食譜。
// 網址一經出現即記為已見，即使因驗證失敗或超過上限而被忽略。
func (c *Collector) Accept(ev ToolResult) bool {
	if c.finished || !ev.Success || ev.Recipe.Kind() != recipe.Object {
		return false
	}

	key := dedupKey(ev)
	if key == "" {
		return false
	}
	if _, dup := c.seen[key]; dup {
		return false
	}
	c.seen[key] = struct{}{}

	if len(c.recipes) >= c.limit {
		return false
	}

	r, ok := recipe.NormalizeRecipe(ev.Recipe)
	if !ok {
		return false
	}
	c.recipes = append(c.recipes, r)
	return true
}

func dedupKey(ev ToolResult) string {
	if u := strings.TrimSpace(ev.Recipe.Get("url").Text()); u != "" {
		return u
	}
	return strings.TrimSpace(ev.URL)
}

// Full 是否已達上限
func (c *Collector) Full() bool {
	return len(c.recipes) >= c.limit
}

// Count 已接受的食譜數
func (c *Collector) Count() int {
	return len(c.recipes)
}

// Recipes 已接受食譜的副本
func (c *Collector) Recipes() []recipe.Recipe {
	return append([]recipe.Recipe{}, c.recipes...)
}

// Finished 是否已輸出結尾
func (c *Collector) Finished() bool {
	return c.finished
}

// Finish 寫出 [RECIPES_START] 與食譜陣列；重複呼叫不會再寫
func (c *Collector) Finish(w io.Writer) error {
	if c.finished {
		return nil
	}
	c.finished = true

	data, err := json.Marshal(c.Recipes())
	if err != nil {
		return fmt.Errorf("marshal recipes: %w", err)
	}
	if _, err := io.WriteString(w, RecipesMarker+string(data)); err != nil {
		return fmt.Errorf("write recipes: %w", err)
	}
	return nil
}

// WriteStatus 寫出一行狀態，訊息中的換行會被替換為空白
func WriteStatus(w io.Writer, msg string) error {
	msg = strings.Join(strings.Fields(msg), " ")
	_, err := io.WriteString(w, StatusTag+msg+"\n\n")
	return err
}
