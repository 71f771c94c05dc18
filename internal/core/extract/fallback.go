package extract

import (
	"strings"

	"recipe-finder/internal/core/recipe"

	"github.com/PuerkitoBio/goquery"
)

const (
	ingredientSelector  = `.recipe-ingredient, .ingredient, [itemprop="recipeIngredient"]`
	instructionSelector = `.recipe-instruction, .instruction, .direction, [itemprop="recipeInstructions"]`
)

// scrapeRecipe 沒有結構化資料時，從常見的 DOM 樣式拼出候選食譜。
// 這一層不做驗證，食材與步驟可以是空的；找不到名稱時不填 name，交給 Policy 決定。
func scrapeRecipe(doc *goquery.Document, pageURL string) recipe.Value {
	fields := map[string]recipe.Value{
		"url": recipe.StringValue(pageURL),
	}
	if name := pageName(doc); name != "" {
		fields["name"] = recipe.StringValue(name)
	}

	description := metaContent(doc, `meta[name="description"]`)
	if description == "" {
		description = metaContent(doc, `meta[property="og:description"]`)
	}
	if description != "" {
		fields["description"] = recipe.StringValue(description)
	}
	if image := metaContent(doc, `meta[property="og:image"]`); image != "" {
		fields["image"] = recipe.StringValue(image)
	}

	var ingredients []recipe.Value
	doc.Find(ingredientSelector).Each(func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			ingredients = append(ingredients, recipe.ObjectValue(map[string]recipe.Value{
				"name": recipe.StringValue(text),
			}))
		}
	})
	fields["ingredients"] = recipe.ArrayValue(ingredients...)

	var instructions []recipe.Value
	doc.Find(instructionSelector).Each(func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			instructions = append(instructions, recipe.StringValue(text))
		}
	})
	fields["instructions"] = recipe.ArrayValue(instructions...)

	return recipe.ObjectValue(fields)
}

// pageName 第一個 h1，其次是 <title> 中 "|" 之前的部分
func pageName(doc *goquery.Document) string {
	if name := strings.TrimSpace(doc.Find("h1").First().Text()); name != "" {
		return name
	}
	title := doc.Find("title").First().Text()
	return strings.TrimSpace(strings.Split(title, "|")[0])
}

func metaContent(doc *goquery.Document, selector string) string {
	content, _ := doc.Find(selector).First().Attr("content")
	return strings.TrimSpace(content)
}
