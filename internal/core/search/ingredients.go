package search

import (
	"regexp"
	"strings"
)

var (
	fillerPattern    = regexp.MustCompile(`i have|i've got|ingredients:|the following|these`)
	ingredientSplits = regexp.MustCompile(`[,;]`)
)

// IngredientsFromMessage 從聊天訊息取出食材：轉小寫、去掉常見開場白、以逗號或分號切分
func IngredientsFromMessage(text string) []string {
	text = fillerPattern.ReplaceAllString(strings.ToLower(text), "")

	var out []string
	for _, part := range ingredientSplits.Split(text, -1) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
