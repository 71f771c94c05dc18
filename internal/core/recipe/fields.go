package recipe

import (
	"regexp"
	"strings"
)

var (
	// 開頭份量：整數、小數、分數或帶分數，後面可接一個單位字
	ingredientAmountPattern = regexp.MustCompile(`^((?:\d+(?:\.\d+)?|\d+\/\d+|\d+\s+\d+\/\d+)(?:\s+\w+)?)\s+(.+)$`)
	// 以換行、句點或步驟編號切分；句中的句點也會被切開
	instructionSplitPattern = regexp.MustCompile(`\n|\.|\d+\.`)
)

// ParseIngredients 將字串、物件或其陣列轉為食材清單。
// 字串以開頭份量切出 amount；物件讀取 name/ingredient 與 amount/quantity。
func ParseIngredients(raw Value) []Ingredient {
	items := raw.List()
	out := make([]Ingredient, 0, len(items))
	for _, item := range items {
		var ing Ingredient
		switch item.Kind() {
		case Object:
			ing = Ingredient{
				Name:   strings.TrimSpace(item.First("name", "ingredient").Text()),
				Amount: strings.TrimSpace(item.First("amount", "quantity").Text()),
			}
		case String, Number, Bool:
			ing = parseIngredientLine(item.Text())
		default:
			continue
		}
		if ing.Name == "" {
			continue
		}
		out = append(out, ing)
	}
	return out
}

func parseIngredientLine(line string) Ingredient {
	line = strings.TrimSpace(line)
	if m := ingredientAmountPattern.FindStringSubmatch(line); m != nil {
		return Ingredient{
			Name:   strings.TrimSpace(m[2]),
			Amount: strings.TrimSpace(m[1]),
		}
	}
	return Ingredient{Name: line}
}

// ParseInstructions 將字串、HowToStep 物件或其陣列轉為步驟清單
func ParseInstructions(raw Value) []string {
	if s, ok := raw.Str(); ok {
		return splitInstructionText(s)
	}

	var out []string
	for _, item := range raw.List() {
		out = appendInstruction(out, item)
	}
	if out == nil {
		out = []string{}
	}
	return out
}

func splitInstructionText(text string) []string {
	parts := instructionSplitPattern.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func appendInstruction(out []string, item Value) []string {
	var text string
	switch item.Kind() {
	case String:
		text, _ = item.Str()
	case Object:
		// HowToSection 展開為其中的步驟
		if steps := item.Get("itemListElement"); steps.Kind() == Array {
			for _, step := range steps.Items() {
				out = appendInstruction(out, step)
			}
			return out
		}
		text = item.First("text", "name").Text()
	case Array:
		for _, nested := range item.Items() {
			out = appendInstruction(out, nested)
		}
		return out
	default:
		text = item.Text()
	}

	if text = strings.TrimSpace(text); text != "" {
		out = append(out, text)
	}
	return out
}
