package search

import (
	"strings"

	"recipe-finder/internal/pkg/common"
)

// 搜尋模式
const (
	// ModeTools 由服務端抓取並驗證每個候選網頁，以工具事件方式收集食譜
	ModeTools = "tools"
	// ModeNarrated 模型直接輸出 [STATUS] 與 [RECIPES_START] 標記的文字
	ModeNarrated = "narrated"
)

// Preferences 使用者的烹飪偏好
type Preferences struct {
	Dietary string `json:"dietary,omitempty"`
	Cuisine string `json:"cuisine,omitempty"`
	MaxTime int    `json:"maxTime,omitempty"`
}

// Request 食譜搜尋請求
type Request struct {
	Ingredients []string     `json:"ingredients"`
	Preferences *Preferences `json:"preferences,omitempty"`
	Mode        string       `json:"mode,omitempty"`
}

// Validate 清理食材清單並檢查模式
func (r *Request) Validate() error {
	cleaned := make([]string, 0, len(r.Ingredients))
	for _, ing := range r.Ingredients {
		if ing = strings.TrimSpace(ing); ing != "" {
			cleaned = append(cleaned, ing)
		}
	}
	if len(cleaned) == 0 {
		return common.NewValidationError("please provide ingredients")
	}
	r.Ingredients = cleaned

	switch r.Mode {
	case "", ModeTools, ModeNarrated:
	default:
		return common.NewValidationError("mode must be tools or narrated")
	}
	if r.Preferences != nil && r.Preferences.MaxTime < 0 {
		return common.NewValidationError("maxTime must not be negative")
	}
	return nil
}
