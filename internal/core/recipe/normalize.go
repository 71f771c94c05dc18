package recipe

import (
	"math"
	"net/url"
	"strconv"
	"strings"
	"unicode"
)

// Policy 決定候選食譜必須具備哪些欄位
type Policy struct {
	Name                string
	RequireImage        bool
	RequireIngredients  bool
	RequireInstructions bool
	// Placeholder 非空時，缺少名稱改用此值而不是拒絕
	Placeholder string
}

var (
	// Strict 模型輸出與搜尋流程使用：名稱、網址、圖片、食材、步驟皆必填
	Strict = Policy{Name: "strict", RequireImage: true, RequireIngredients: true, RequireInstructions: true}
	// Lenient 單頁擷取的低信心模式：只要求網址，名稱可用預設值
	Lenient = Policy{Name: "lenient", Placeholder: "Untitled Recipe"}
)

// PolicyByName 依名稱取得策略，未知名稱回傳 Strict
func PolicyByName(name string) Policy {
	if strings.EqualFold(name, Lenient.Name) {
		return Lenient
	}
	return Strict
}

// NormalizeRecipe 以 Strict 策略驗證候選食譜
func NormalizeRecipe(raw Value) (Recipe, bool) {
	return Normalize(raw, Strict)
}

// Normalize 將鬆散的候選物件轉為 Recipe；缺少必要欄位時回傳 false。
// 接受 schema.org 欄位別名（recipeIngredient、recipeInstructions、recipeYield 等）。
func Normalize(raw Value, policy Policy) (Recipe, bool) {
	if raw.Kind() != Object {
		return Recipe{}, false
	}

	r := Recipe{
		Name:          sanitizeString(raw.First("name", "title")),
		URL:           sanitizeURL(raw.Get("url").Text()),
		Image:         sanitizeURL(resolveImage(raw.Get("image"))),
		Description:   sanitizeString(raw.Get("description")),
		PrepTime:      sanitizeString(raw.Get("prepTime")),
		CookTime:      sanitizeString(raw.Get("cookTime")),
		TotalTime:     sanitizeString(raw.Get("totalTime")),
		Servings:      parseServings(raw.First("servings", "recipeYield")),
		Nutrition:     parseNutrition(raw.Get("nutrition")),
		Author:        resolveAuthor(raw.Get("author")),
		DatePublished: sanitizeString(raw.Get("datePublished")),
	}

	if r.Name == "" {
		r.Name = policy.Placeholder
	}
	if r.Name == "" || r.URL == "" {
		return Recipe{}, false
	}
	if policy.RequireImage && r.Image == "" {
		return Recipe{}, false
	}

	r.Ingredients = ParseIngredients(raw.First("ingredients", "recipeIngredient"))
	r.Instructions = ParseInstructions(raw.First("instructions", "recipeInstructions"))

	if policy.RequireIngredients && len(r.Ingredients) == 0 {
		return Recipe{}, false
	}
	if policy.RequireInstructions && len(r.Instructions) == 0 {
		return Recipe{}, false
	}

	return r, true
}

// sanitizeString 純量轉字串並去除空白；非純量視為不存在
func sanitizeString(v Value) string {
	return strings.TrimSpace(v.Text())
}

// sanitizeURL 只接受絕對的 http/https 網址
func sanitizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return raw
	default:
		return ""
	}
}

// ValidURL 是否為絕對的 http/https 網址
func ValidURL(raw string) bool {
	return sanitizeURL(raw) != ""
}

// resolveImage 圖片可以是字串、ImageObject 或其陣列（取第一個）
func resolveImage(v Value) string {
	switch v.Kind() {
	case String:
		s, _ := v.Str()
		return s
	case Object:
		return v.Get("url").Text()
	case Array:
		if items := v.Items(); len(items) > 0 {
			return resolveImage(items[0])
		}
	}
	return ""
}

// resolveAuthor 作者可以是字串、Person 物件或其陣列
func resolveAuthor(v Value) string {
	switch v.Kind() {
	case Object:
		return sanitizeString(v.Get("name"))
	case Array:
		if items := v.Items(); len(items) > 0 {
			return resolveAuthor(items[0])
		}
		return ""
	default:
		return sanitizeString(v)
	}
}

// parseServings 數字直接取整數；字串移除非數字後解析；陣列取第一個
func parseServings(v Value) int {
	switch v.Kind() {
	case Number:
		f, ok := v.Float()
		if !ok || math.IsInf(f, 0) || f < 1 {
			return 0
		}
		return int(f)
	case String:
		s, _ := v.Str()
		digits := strings.Map(func(r rune) rune {
			if unicode.IsDigit(r) && r < unicode.MaxASCII {
				return r
			}
			return -1
		}, s)
		n, err := strconv.Atoi(digits)
		if err != nil || n < 1 {
			return 0
		}
		return n
	case Array:
		if items := v.Items(); len(items) > 0 {
			return parseServings(items[0])
		}
	}
	return 0
}

// parseNutrition 接受標準欄位或 schema.org 的 *Content 欄位
func parseNutrition(v Value) *Nutrition {
	if v.Kind() != Object {
		return nil
	}
	n := Nutrition{
		Calories:      sanitizeString(v.Get("calories")),
		Protein:       sanitizeString(v.First("protein", "proteinContent")),
		Carbohydrates: sanitizeString(v.First("carbohydrates", "carbohydrateContent")),
		Fat:           sanitizeString(v.First("fat", "fatContent")),
	}
	if n == (Nutrition{}) {
		return nil
	}
	return &n
}
