package recipe

// Recipe 經過驗證的食譜。選填字串以空字串代表不存在，Servings 為 0 代表不存在。
type Recipe struct {
	Name          string       `json:"name"`
	URL           string       `json:"url"`
	Image         string       `json:"image,omitempty"`
	Description   string       `json:"description,omitempty"`
	Ingredients   []Ingredient `json:"ingredients"`
	Instructions  []string     `json:"instructions"`
	PrepTime      string       `json:"prepTime,omitempty"`
	CookTime      string       `json:"cookTime,omitempty"`
	TotalTime     string       `json:"totalTime,omitempty"`
	Servings      int          `json:"servings,omitempty"`
	Nutrition     *Nutrition   `json:"nutrition,omitempty"`
	Author        string       `json:"author,omitempty"`
	DatePublished string       `json:"datePublished,omitempty"`
}

// Ingredient 食材；Amount 為空代表未標示份量
type Ingredient struct {
	Name   string `json:"name"`
	Amount string `json:"amount,omitempty"`
}

// Nutrition 營養資訊
type Nutrition struct {
	Calories      string `json:"calories,omitempty"`
	Protein       string `json:"protein,omitempty"`
	Carbohydrates string `json:"carbohydrates,omitempty"`
	Fat           string `json:"fat,omitempty"`
}

// SearchResult 擷取前的候選網頁
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet,omitempty"`
	Source  string `json:"source,omitempty"`
}

// Value 將已驗證的食譜轉回鬆散值，用於重新驗證或事件傳遞
func (r Recipe) Value() Value {
	fields := map[string]Value{
		"name": StringValue(r.Name),
		"url":  StringValue(r.URL),
	}
	optional := map[string]string{
		"image":         r.Image,
		"description":   r.Description,
		"prepTime":      r.PrepTime,
		"cookTime":      r.CookTime,
		"totalTime":     r.TotalTime,
		"author":        r.Author,
		"datePublished": r.DatePublished,
	}
	for k, s := range optional {
		if s != "" {
			fields[k] = StringValue(s)
		}
	}

	ingredients := make([]Value, 0, len(r.Ingredients))
	for _, ing := range r.Ingredients {
		item := map[string]Value{"name": StringValue(ing.Name)}
		if ing.Amount != "" {
			item["amount"] = StringValue(ing.Amount)
		}
		ingredients = append(ingredients, ObjectValue(item))
	}
	fields["ingredients"] = ArrayValue(ingredients...)

	steps := make([]Value, 0, len(r.Instructions))
	for _, s := range r.Instructions {
		steps = append(steps, StringValue(s))
	}
	fields["instructions"] = ArrayValue(steps...)

	if r.Servings > 0 {
		fields["servings"] = NumberValue(float64(r.Servings))
	}
	if n := r.Nutrition; n != nil {
		nf := map[string]Value{}
		for k, s := range map[string]string{
			"calories":      n.Calories,
			"protein":       n.Protein,
			"carbohydrates": n.Carbohydrates,
			"fat":           n.Fat,
		} {
			if s != "" {
				nf[k] = StringValue(s)
			}
		}
		fields["nutrition"] = ObjectValue(nf)
	}
	return ObjectValue(fields)
}
