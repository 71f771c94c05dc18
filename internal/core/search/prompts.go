package search

import (
	"fmt"
	"strings"

	"recipe-finder/internal/core/ai/provider"
)

const candidateSystemPrompt = `You are a recipe search assistant. You only answer with JSON.`

const narratedSystemPrompt = `You are a helpful recipe assistant that finds recipes for the ingredients a user has.
Report progress as you work and finish with the recipes in machine readable form.`

func preferenceLines(p *Preferences) string {
	if p == nil {
		return ""
	}
	var b strings.Builder
	if p.Dietary != "" {
		fmt.Fprintf(&b, "- Dietary preference: %s\n", p.Dietary)
	}
	if p.Cuisine != "" {
		fmt.Fprintf(&b, "- Cuisine preference: %s\n", p.Cuisine)
	}
	if p.MaxTime > 0 {
		fmt.Fprintf(&b, "- Maximum cooking time: %d minutes\n", p.MaxTime)
	}
	return b.String()
}

// candidateMessages 要求模型列出可能含有食譜的網頁
func candidateMessages(req Request, limit int) []provider.Message {
	prompt := fmt.Sprintf(`Find recipe web pages I can cook with these ingredients: %s
%s
Requirements:
1. Return at most %d pages
2. Every url must be an absolute https URL of a single recipe page, not a search or category page
3. Prefer well known recipe sites that publish schema.org Recipe data
4. Prefer recipes that use most of the listed ingredients
5. Do not invent URLs; leave out anything you are unsure about
6. Return only a JSON array, no markdown and no explanation

Format:
[{"title":"Recipe title","url":"https://example.com/recipe","snippet":"one sentence","source":"site name"}]`,
		strings.Join(req.Ingredients, ", "), preferenceLines(req.Preferences), limit)

	return []provider.Message{
		{Role: "system", Content: candidateSystemPrompt},
		{Role: "user", Content: prompt},
	}
}

// narratedMessages 要求模型以 [STATUS] / [RECIPES_START] 格式回答
func narratedMessages(req Request, limit int) []provider.Message {
	prompt := fmt.Sprintf(`I have these ingredients: %s
%s
Please find me some recipes I can make!

Requirements:
1. Before each step write one short progress line starting with [STATUS], for example [STATUS]Searching for chicken recipes...
2. After the last status line write [RECIPES_START] followed immediately by a JSON array
3. The array has at most %d objects with the fields name, url, image, description, ingredients, instructions, prepTime, cookTime, totalTime, servings
4. ingredients is an array of {"name":"...","amount":"..."}; instructions is an array of strings
5. url and image must be absolute https URLs
6. Write nothing after the JSON array`,
		strings.Join(req.Ingredients, ", "), preferenceLines(req.Preferences), limit)

	return []provider.Message{
		{Role: "system", Content: narratedSystemPrompt},
		{Role: "user", Content: prompt},
	}
}
