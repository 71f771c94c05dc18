package recipe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, s string) Value {
	t.Helper()
	v, err := ParseValue(s)
	require.NoError(t, err)
	return v
}

func TestParseIngredients(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []Ingredient
	}{
		{
			name: "leading quantity with unit",
			raw:  `["2 cups flour", "1/2 tsp salt", "3 eggs", "1.5 lb ground beef"]`,
			want: []Ingredient{
				{Name: "flour", Amount: "2 cups"},
				{Name: "salt", Amount: "1/2 tsp"},
				{Name: "eggs", Amount: "3"},
				{Name: "ground beef", Amount: "1.5 lb"},
			},
		},
		{
			name: "no quantity keeps the whole line",
			raw:  `["  salt to taste  "]`,
			want: []Ingredient{{Name: "salt to taste"}},
		},
		{
			// 帶分數會被第一個整數搶先匹配，保留既有行為
			name: "mixed number splits at the whole part",
			raw:  `["1 1/2 cups sugar"]`,
			want: []Ingredient{{Name: "1/2 cups sugar", Amount: "1"}},
		},
		{
			name: "object keys and aliases",
			raw:  `[{"name":"beef"},{"ingredient":"onion","quantity":"1"},{"name":" rice ","amount":" 2 cups "},{"amount":"3"}]`,
			want: []Ingredient{
				{Name: "beef"},
				{Name: "onion", Amount: "1"},
				{Name: "rice", Amount: "2 cups"},
			},
		},
		{
			name: "single string is wrapped",
			raw:  `"4 tomatoes"`,
			want: []Ingredient{{Name: "tomatoes", Amount: "4"}},
		},
		{
			name: "null is empty",
			raw:  `null`,
			want: []Ingredient{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseIngredients(mustParse(t, tt.raw)))
		})
	}

	assert.Empty(t, ParseIngredients(Value{}))
}

func TestParseInstructions(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{
			name: "string split on newlines and periods",
			raw:  `"Preheat oven.\nMix flour and water. Bake 20 minutes."`,
			want: []string{"Preheat oven", "Mix flour and water", "Bake 20 minutes"},
		},
		{
			name: "numbered string",
			raw:  `"1. Boil water 2. Add pasta"`,
			want: []string{"Boil water", "Add pasta"},
		},
		{
			// 小數點同樣會被切開
			name: "decimal numbers are split",
			raw:  `"Bake 1.5 hours"`,
			want: []string{"Bake", "5 hours"},
		},
		{
			name: "array of strings and steps",
			raw:  `["Chop onions", {"@type":"HowToStep","text":"Fry them"}, {"name":"Serve"}, "  ", {"foo":"bar"}, 42]`,
			want: []string{"Chop onions", "Fry them", "Serve", "42"},
		},
		{
			name: "how-to sections are flattened",
			raw:  `[{"@type":"HowToSection","name":"Sauce","itemListElement":[{"@type":"HowToStep","text":"Simmer"},{"@type":"HowToStep","text":"Season"}]},{"@type":"HowToStep","text":"Plate"}]`,
			want: []string{"Simmer", "Season", "Plate"},
		},
		{
			name: "lone step object",
			raw:  `{"@type":"HowToStep","text":"Stir"}`,
			want: []string{"Stir"},
		},
		{
			name: "null",
			raw:  `null`,
			want: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseInstructions(mustParse(t, tt.raw)))
		})
	}
}
