package recipe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"recipe-finder/internal/api/middleware"
	"recipe-finder/internal/core/extract"
	"recipe-finder/internal/core/recipe"
	"recipe-finder/internal/core/search"
	"recipe-finder/internal/infrastructure/persistence"
	"recipe-finder/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const recipeJSON = `{"name":"Tacos","url":"https://x.com/tacos","image":"https://x.com/t.jpg",` +
	`"ingredients":[{"name":"beef","amount":"1 lb"}],"instructions":["Brown the beef for 5-7 minutes"]}`

const favoriteJSON = `{"name":"Tacos","url":"https://x.com/tacos","image":"https://x.com/t.jpg",` +
	`"ingredients":[{"name":"beef","amount":"1 lb"}],"instructions":["Brown the beef"],` +
	`"prepTime":"PT10M","servings":4,"datePublished":"2024-01-02"}`

// fakeSearcher 寫出固定的標記串流並記錄收到的請求
type fakeSearcher struct {
	output string
	got    *search.Request
}

func (f *fakeSearcher) Run(_ context.Context, req search.Request, w io.Writer) error {
	f.got = &req
	_, err := io.WriteString(w, f.output)
	return err
}

type fakeExtractor struct {
	policy recipe.Policy
	used   recipe.Policy
	result *extract.Result
	err    error
}

func (f *fakeExtractor) ExtractWithPolicy(_ context.Context, _ string, policy recipe.Policy) (*extract.Result, error) {
	f.used = policy
	return f.result, f.err
}

func (f *fakeExtractor) Policy() recipe.Policy {
	return f.policy
}

func markedOutput() string {
	return "[STATUS]Searching for recipes with chicken...\n\n" +
		"[STATUS]Found 1 recipes\n\n" +
		"[RECIPES_START][" + recipeJSON + "]"
}

func newRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.POST("/search", h.HandleSearch)
	r.POST("/search/events", h.HandleSearchEvents)
	r.POST("/chat", h.HandleChat)
	r.POST("/extract", h.HandleExtract)
	return r
}

func post(r http.Handler, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error common.ErrorResponse `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error.Code
}

func TestHandleSearch(t *testing.T) {
	searcher := &fakeSearcher{output: markedOutput()}
	r := newRouter(NewHandler(searcher, &fakeExtractor{}))

	w := post(r, "/search", `{"ingredients":[" chicken ",""],"mode":"tools"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "no-cache", w.Header().Get("Cache-Control"))
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
	assert.Equal(t, markedOutput(), w.Body.String())
	require.NotNil(t, searcher.got)
	assert.Equal(t, []string{"chicken"}, searcher.got.Ingredients)
}

func TestHandleSearchValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "malformed json", body: `{"ingredients":`},
		{name: "no ingredients", body: `{"ingredients":[]}`},
		{name: "blank ingredients", body: `{"ingredients":["  "]}`},
		{name: "unknown mode", body: `{"ingredients":["rice"],"mode":"magic"}`},
		{name: "negative max time", body: `{"ingredients":["rice"],"preferences":{"maxTime":-5}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			searcher := &fakeSearcher{}
			w := post(newRouter(NewHandler(searcher, &fakeExtractor{})), "/search", tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, common.ErrCodeInvalidRequest, errorCode(t, w))
			assert.Nil(t, searcher.got)
		})
	}
}

func TestHandleChat(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		ingredients []string
	}{
		{
			name:        "explicit ingredients",
			body:        `{"messages":[{"role":"user","content":"ignored"}],"ingredients":["eggs"]}`,
			ingredients: []string{"eggs"},
		},
		{
			name: "from last user message",
			body: `{"messages":[{"role":"user","content":"beef"},` +
				`{"role":"assistant","content":"ok"},` +
				`{"role":"user","content":"I have chicken, rice, garlic"}]}`,
			ingredients: []string{"chicken", "rice", "garlic"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			searcher := &fakeSearcher{output: markedOutput()}
			w := post(newRouter(NewHandler(searcher, &fakeExtractor{})), "/chat", tt.body)

			assert.Equal(t, http.StatusOK, w.Code)
			require.NotNil(t, searcher.got)
			assert.Equal(t, tt.ingredients, searcher.got.Ingredients)
		})
	}
}

func TestHandleChatWithoutIngredients(t *testing.T) {
	searcher := &fakeSearcher{}
	w := post(newRouter(NewHandler(searcher, &fakeExtractor{})), "/chat",
		`{"messages":[{"role":"assistant","content":"what do you have?"}]}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, searcher.got)
}

func TestHandleSearchEvents(t *testing.T) {
	searcher := &fakeSearcher{output: markedOutput()}
	w := post(newRouter(NewHandler(searcher, &fakeExtractor{})), "/search/events", `{"ingredients":["chicken"]}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/event-stream"),
		"content type %q", w.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", w.Header().Get("Cache-Control"))

	body := w.Body.String()
	assert.Contains(t, body, "event:update")
	assert.Contains(t, body, "event:done")

	done := body[strings.LastIndex(body, "event:done"):]
	data := strings.TrimSpace(strings.TrimPrefix(strings.SplitN(done, "\n", 3)[1], "data:"))
	var final struct {
		Status   string          `json:"status"`
		Recipes  []recipe.Recipe `json:"recipes"`
		Complete bool            `json:"complete"`
	}
	require.NoError(t, json.Unmarshal([]byte(data), &final))
	assert.True(t, final.Complete)
	assert.Equal(t, "Found 1 recipes", final.Status)
	require.Len(t, final.Recipes, 1)
	assert.Equal(t, "Tacos", final.Recipes[0].Name)
}

func TestHandleExtract(t *testing.T) {
	tacos, ok := recipe.NormalizeRecipe(mustValue(t, recipeJSON))
	require.True(t, ok)

	t.Run("success with timers", func(t *testing.T) {
		ex := &fakeExtractor{
			policy: recipe.Strict,
			result: &extract.Result{Success: true, Recipe: &tacos, ExtractionMethod: extract.MethodSchemaOrg},
		}
		w := post(newRouter(NewHandler(&fakeSearcher{}, ex)), "/extract", `{"url":"https://x.com/tacos"}`)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, recipe.Strict.Name, ex.used.Name)

		var resp struct {
			Success          bool         `json:"success"`
			ExtractionMethod string       `json:"extractionMethod"`
			Timers           []StepTimers `json:"timers"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		assert.Equal(t, extract.MethodSchemaOrg, resp.ExtractionMethod)
		require.Len(t, resp.Timers, 1)
		assert.Equal(t, 0, resp.Timers[0].Step)
		require.Len(t, resp.Timers[0].Cues, 1)
		assert.Equal(t, "5 mins", resp.Timers[0].Cues[0].Label)
		assert.Equal(t, 300, resp.Timers[0].Cues[0].Seconds)
	})

	t.Run("policy override", func(t *testing.T) {
		ex := &fakeExtractor{policy: recipe.Strict, result: &extract.Result{}}
		w := post(newRouter(NewHandler(&fakeSearcher{}, ex)), "/extract", `{"url":"https://x.com","policy":"lenient"}`)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, recipe.Lenient.Name, ex.used.Name)
		assert.Contains(t, w.Body.String(), `"timers":[]`)
	})

	t.Run("unknown policy", func(t *testing.T) {
		w := post(newRouter(NewHandler(&fakeSearcher{}, &fakeExtractor{})), "/extract", `{"url":"https://x.com","policy":"loose"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing url", func(t *testing.T) {
		w := post(newRouter(NewHandler(&fakeSearcher{}, &fakeExtractor{})), "/extract", `{}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, common.ErrCodeInvalidRequest, errorCode(t, w))
	})

	t.Run("upstream failure", func(t *testing.T) {
		ex := &fakeExtractor{err: common.ErrFetchFailed.Wrap(errors.New("status 500"))}
		w := post(newRouter(NewHandler(&fakeSearcher{}, ex)), "/extract", `{"url":"https://x.com"}`)

		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.Equal(t, common.ErrCodeFetchFailed, errorCode(t, w))
	})
}

func mustValue(t *testing.T, raw string) recipe.Value {
	t.Helper()
	v, err := recipe.ParseValue(raw)
	require.NoError(t, err)
	return v
}

// memoryFavorites 以 map 保存收藏
type memoryFavorites struct {
	items map[string][]persistence.Favorite
	err   error
}

func (m *memoryFavorites) List(_ context.Context, userID string) ([]persistence.Favorite, error) {
	return m.items[userID], m.err
}

func (m *memoryFavorites) Add(_ context.Context, userID string, rec recipe.Recipe) (*persistence.Favorite, error) {
	for _, f := range m.items[userID] {
		if f.Name == rec.Name && f.URL == rec.URL {
			return nil, persistence.ErrFavoriteExists
		}
	}
	fav := persistence.FavoriteFromRecipe(userID, rec)
	m.items[userID] = append(m.items[userID], *fav)
	return fav, nil
}

func (m *memoryFavorites) Remove(_ context.Context, userID, name, url string) error {
	for i, f := range m.items[userID] {
		if f.Name == name && f.URL == url {
			m.items[userID] = append(m.items[userID][:i], m.items[userID][i+1:]...)
			return nil
		}
	}
	return persistence.ErrFavoriteNotFound
}

func favoritesRouter(store FavoriteStore) *gin.Engine {
	h := NewFavoritesHandler(store)
	r := gin.New()
	withUser := func(c *gin.Context) {
		c.Set(middleware.ContextUserID, c.GetHeader("X-Test-User"))
		c.Next()
	}
	g := r.Group("/favorites", withUser)
	g.GET("", h.List)
	g.POST("", h.Add)
	g.DELETE("", h.Remove)
	return r
}

func doFavorites(r http.Handler, method, target, user, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Test-User", user)
	r.ServeHTTP(w, req)
	return w
}

func TestFavoritesHandler(t *testing.T) {
	store := &memoryFavorites{items: map[string][]persistence.Favorite{}}
	r := favoritesRouter(store)

	w := doFavorites(r, http.MethodGet, "/favorites", "alice", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"favorites":[]}`, w.Body.String())

	w = doFavorites(r, http.MethodPost, "/favorites", "alice", favoriteJSON)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, favoriteJSON, w.Body.String())

	w = doFavorites(r, http.MethodPost, "/favorites", "alice", favoriteJSON)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, common.ErrCodeConflict, errorCode(t, w))

	w = doFavorites(r, http.MethodGet, "/favorites", "bob", "")
	assert.JSONEq(t, `{"favorites":[]}`, w.Body.String())

	w = doFavorites(r, http.MethodGet, "/favorites", "alice", "")
	assert.JSONEq(t, `{"favorites":[`+favoriteJSON+`]}`, w.Body.String())
	var list struct {
		Favorites []recipe.Recipe `json:"favorites"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Favorites, 1)
	assert.Equal(t, "Tacos", list.Favorites[0].Name)
	assert.Equal(t, "PT10M", list.Favorites[0].PrepTime)
	assert.NotContains(t, w.Body.String(), "user_id")
	assert.NotContains(t, w.Body.String(), "prep_time")

	target := fmt.Sprintf("/favorites?name=%s&url=%s", "Tacos", "https://x.com/tacos")
	w = doFavorites(r, http.MethodDelete, target, "alice", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = doFavorites(r, http.MethodDelete, "/favorites", "alice", `{"name":"Tacos","url":"https://x.com/tacos"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFavoritesValidation(t *testing.T) {
	tests := []struct {
		name   string
		method string
		body   string
		want   int
	}{
		{name: "missing name", method: http.MethodPost, body: `{"url":"https://x.com"}`, want: http.StatusBadRequest},
		{name: "bad url", method: http.MethodPost, body: `{"name":"Soup","url":"ftp://x"}`, want: http.StatusBadRequest},
		{name: "delete without url", method: http.MethodDelete, body: `{"name":"Soup"}`, want: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := favoritesRouter(&memoryFavorites{items: map[string][]persistence.Favorite{}})
			w := doFavorites(r, tt.method, "/favorites", "alice", tt.body)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestFavoritesStoreError(t *testing.T) {
	r := favoritesRouter(&memoryFavorites{err: errors.New("db down")})
	w := doFavorites(r, http.MethodGet, "/favorites", "alice", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
