package extract

import (
	"strings"

	"recipe-finder/internal/core/recipe"
	"recipe-finder/internal/pkg/common"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

const jsonLDSelector = `script[type="application/ld+json"]`

// ExtractStructuredRecipe 在 HTML 中尋找第一個 schema.org Recipe 節點
func ExtractStructuredRecipe(html string) (recipe.Value, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return recipe.Value{}, false
	}
	return structuredRecipe(doc)
}

// structuredRecipe 依文件順序檢查每個 JSON-LD 區塊；無法解析的區塊略過。
// 頂層可以是物件或陣列，並往下找一層 @graph。
func structuredRecipe(doc *goquery.Document) (recipe.Value, bool) {
	var (
		found recipe.Value
		ok    bool
	)

	doc.Find(jsonLDSelector).EachWithBreak(func(i int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())
		if text == "" {
			return true
		}

		data, err := recipe.ParseValue(text)
		if err != nil {
			common.LogDebug("略過無法解析的 JSON-LD 區塊", zap.Int("index", i), zap.Error(err))
			return true
		}

		for _, item := range data.List() {
			if isRecipeNode(item) {
				found, ok = item, true
				return false
			}
			for _, node := range item.Get("@graph").Items() {
				if isRecipeNode(node) {
					found, ok = node, true
					return false
				}
			}
		}
		return true
	})

	return found, ok
}

// isRecipeNode @type 為 "Recipe" 或包含 "Recipe" 的陣列
func isRecipeNode(v recipe.Value) bool {
	if v.Kind() != recipe.Object {
		return false
	}
	for _, t := range v.Get("@type").List() {
		if s, ok := t.Str(); ok && s == "Recipe" {
			return true
		}
	}
	return false
}
