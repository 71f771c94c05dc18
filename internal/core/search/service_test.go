package search

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"recipe-finder/internal/core/ai/provider"
	aiservice "recipe-finder/internal/core/ai/service"
	"recipe-finder/internal/core/extract"
	"recipe-finder/internal/core/recipe"
	"recipe-finder/internal/core/stream"
	"recipe-finder/internal/infrastructure/config"
	"recipe-finder/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAI struct {
	content   string
	err       error
	chunks    []string
	streamErr error

	mu       sync.Mutex
	messages [][]provider.Message
}

func (f *fakeAI) ProcessRequest(_ context.Context, messages []provider.Message) (*aiservice.Response, error) {
	f.mu.Lock()
	f.messages = append(f.messages, messages)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &aiservice.Response{Content: f.content, Model: "fake"}, nil
}

func (f *fakeAI) StreamRequest(_ context.Context, messages []provider.Message, onDelta provider.DeltaFunc) error {
	f.mu.Lock()
	f.messages = append(f.messages, messages)
	f.mu.Unlock()
	for _, c := range f.chunks {
		if err := onDelta(c); err != nil {
			return err
		}
	}
	return f.streamErr
}

// fakeExtractor 每個網址都回傳同一份合法食譜
type fakeExtractor struct {
	mu    sync.Mutex
	calls int
	fail  map[string]error
}

func (f *fakeExtractor) ExtractWithPolicy(ctx context.Context, pageURL string, policy recipe.Policy) (*extract.Result, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if err := f.fail[pageURL]; err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	candidate, err := recipe.ParseValue(fmt.Sprintf(`{"name":"Dish %s","url":%q,"image":"https://img.example.com/d.jpg","ingredients":["1 egg"],"instructions":["cook"]}`, pageURL[len(pageURL)-1:], pageURL))
	if err != nil {
		return nil, err
	}
	r, ok := recipe.Normalize(candidate, policy)
	return &extract.Result{Success: ok, Recipe: &r, ExtractionMethod: extract.MethodSchemaOrg, Candidate: candidate}, nil
}

type fakeImages struct{ ok bool }

func (f fakeImages) Check(context.Context, string) bool { return f.ok }

func testConfig() config.SearchConfig {
	return config.SearchConfig{
		MaxCandidates: 8,
		MaxRecipes:    5,
		Workers:       3,
		FetchTimeout:  2 * time.Second,
		DefaultMode:   ModeTools,
	}
}

func candidatesJSON(urls ...string) string {
	parts := make([]string, len(urls))
	for i, u := range urls {
		parts[i] = fmt.Sprintf(`{"title":"r%d","url":%q}`, i, u)
	}
	return "```json\n[" + strings.Join(parts, ",") + "]\n```"
}

func finalState(t *testing.T, out string) stream.Update {
	t.Helper()
	assert.Equal(t, 1, strings.Count(out, stream.RecipesMarker), out)
	upd := stream.NewParser(stream.Marked).Feed(out)
	require.True(t, upd.Complete, out)
	return upd
}

const pageTemplate = `<html><head><script type="application/ld+json">
{"@context":"https://schema.org","@type":"Recipe","name":%q,"image":"https://img.example.com/%s.jpg",
 "recipeIngredient":["2 eggs","1 cup milk"],"recipeInstructions":"Whisk. Cook."}
</script></head><body></body></html>`

func TestStreamWithRealExtractor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/omelette", "/crepes":
			name := strings.TrimPrefix(r.URL.Path, "/")
			_, _ = fmt.Fprintf(w, pageTemplate, name, name)
		case "/blog":
			_, _ = w.Write([]byte(`<html><body><h1>Just a blog</h1></body></html>`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	ai := &fakeAI{content: candidatesJSON(
		srv.URL+"/omelette",
		srv.URL+"/omelette",
		"not a url",
		srv.URL+"/missing",
		srv.URL+"/blog",
		srv.URL+"/crepes",
	)}
	ex := extract.NewExtractor(config.ExtractConfig{UserAgent: "test", Timeout: 2 * time.Second, MaxBodyBytes: 1 << 20}, nil, nil)
	svc := NewService(ai, ex, nil, testConfig(), nil)

	var buf bytes.Buffer
	require.NoError(t, svc.Stream(context.Background(), Request{Ingredients: []string{"eggs", "milk"}}, &buf))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "[STATUS]Searching for recipes with eggs, milk...\n\n"))
	assert.Contains(t, out, "[STATUS]Found 4 recipe pages, extracting details...")

	upd := finalState(t, out)
	assert.Equal(t, "Found 2 recipes", upd.Status)
	require.Len(t, upd.Recipes, 2)

	names := []string{upd.Recipes[0].Name, upd.Recipes[1].Name}
	assert.ElementsMatch(t, []string{"omelette", "crepes"}, names)
	for _, r := range upd.Recipes {
		assert.Equal(t, []string{"Whisk", "Cook"}, r.Instructions)
		assert.Len(t, r.Ingredients, 2)
	}

	require.Len(t, ai.messages, 1)
	assert.Contains(t, ai.messages[0][1].Content, "eggs, milk")
}

func TestStreamStopsAtCap(t *testing.T) {
	urls := make([]string, 8)
	for i := range urls {
		urls[i] = fmt.Sprintf("https://site.example.com/r%d", i)
	}
	cfg := testConfig()
	cfg.MaxRecipes = 2
	cfg.Workers = 1

	svc := NewService(&fakeAI{content: candidatesJSON(urls...)}, &fakeExtractor{}, nil, cfg, nil)

	var buf bytes.Buffer
	require.NoError(t, svc.Stream(context.Background(), Request{Ingredients: []string{"egg"}}, &buf))

	upd := finalState(t, buf.String())
	assert.Len(t, upd.Recipes, 2)
	assert.Equal(t, "Found 2 recipes", upd.Status)
}

func TestStreamIsolatesFailures(t *testing.T) {
	ex := &fakeExtractor{fail: map[string]error{
		"https://a.example.com/1": common.ErrFetchFailed,
	}}
	ai := &fakeAI{content: candidatesJSON("https://a.example.com/1", "https://a.example.com/2")}
	svc := NewService(ai, ex, nil, testConfig(), nil)

	var buf bytes.Buffer
	require.NoError(t, svc.Stream(context.Background(), Request{Ingredients: []string{"egg"}}, &buf))

	upd := finalState(t, buf.String())
	require.Len(t, upd.Recipes, 1)
	assert.Equal(t, "https://a.example.com/2", upd.Recipes[0].URL)
}

func TestStreamImageValidation(t *testing.T) {
	cfg := testConfig()
	cfg.ValidateImages = true
	ai := &fakeAI{content: candidatesJSON("https://a.example.com/1")}

	var buf bytes.Buffer
	svc := NewService(ai, &fakeExtractor{}, fakeImages{ok: false}, cfg, nil)
	require.NoError(t, svc.Stream(context.Background(), Request{Ingredients: []string{"egg"}}, &buf))

	upd := finalState(t, buf.String())
	assert.Empty(t, upd.Recipes)
	assert.Equal(t, "No recipes could be extracted from the pages found", upd.Status)
}

func TestStreamUpstreamErrors(t *testing.T) {
	tests := []struct {
		name       string
		ai         *fakeAI
		wantStatus string
	}{
		{
			name:       "model failure",
			ai:         &fakeAI{err: common.ErrAIServiceError.Wrap(errors.New("503"))},
			wantStatus: "Error: " + common.ErrAIServiceError.Message,
		},
		{
			name:       "no array in answer",
			ai:         &fakeAI{content: "Sorry, I could not find anything."},
			wantStatus: "No recipe pages found for these ingredients",
		},
		{
			name:       "malformed array",
			ai:         &fakeAI{content: `[{"url": 1}]`},
			wantStatus: "No recipe pages found for these ingredients",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			svc := NewService(tt.ai, &fakeExtractor{}, nil, testConfig(), nil)
			require.NoError(t, svc.Stream(context.Background(), Request{Ingredients: []string{"egg"}}, &buf))

			out := buf.String()
			assert.True(t, strings.HasSuffix(out, stream.RecipesMarker+"[]"), out)
			upd := finalState(t, out)
			assert.Equal(t, tt.wantStatus, upd.Status)
			assert.Empty(t, upd.Recipes)
		})
	}
}

func TestStreamCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	svc := NewService(&fakeAI{content: candidatesJSON("https://a.example.com/1")}, &fakeExtractor{}, nil, testConfig(), nil)
	require.NoError(t, svc.Stream(ctx, Request{Ingredients: []string{"egg"}}, &buf))

	upd := finalState(t, buf.String())
	assert.Equal(t, "Error: search canceled", upd.Status)
}

type failingWriter struct{ after int }

func (w *failingWriter) Write(p []byte) (int, error) {
	if w.after <= 0 {
		return 0, errors.New("client gone")
	}
	w.after--
	return len(p), nil
}

func TestStreamWriteError(t *testing.T) {
	svc := NewService(&fakeAI{content: candidatesJSON("https://a.example.com/1")}, &fakeExtractor{}, nil, testConfig(), nil)
	err := svc.Stream(context.Background(), Request{Ingredients: []string{"egg"}}, &failingWriter{after: 2})
	assert.Error(t, err)
}

const narratedScenario = "[STATUS]Searching...\n\n|[STATUS]Found 1 recipe\n\n[RECIPES_START][{|\"name\":\"Tacos\",\"url\":\"https://x.com\",\"image\":\"https://x.com/i.jpg\",\"ingredients\":[{\"name\":\"beef\"}],\"instructions\":[\"cook\"]}]"

func TestNarrate(t *testing.T) {
	chunks := strings.Split(narratedScenario, "|")

	t.Run("passes the stream through", func(t *testing.T) {
		var buf bytes.Buffer
		svc := NewService(&fakeAI{chunks: chunks}, &fakeExtractor{}, nil, testConfig(), nil)
		require.NoError(t, svc.Narrate(context.Background(), Request{Ingredients: []string{"beef"}}, &buf))

		assert.Equal(t, strings.Join(chunks, ""), buf.String())
		upd := finalState(t, buf.String())
		assert.Equal(t, "Found 1 recipe", upd.Status)
		assert.Len(t, upd.Recipes, 1)
	})

	t.Run("stream error before marker", func(t *testing.T) {
		var buf bytes.Buffer
		ai := &fakeAI{chunks: chunks[:1], streamErr: context.DeadlineExceeded}
		svc := NewService(ai, &fakeExtractor{}, nil, testConfig(), nil)
		require.NoError(t, svc.Narrate(context.Background(), Request{Ingredients: []string{"beef"}}, &buf))

		upd := finalState(t, buf.String())
		assert.Equal(t, "Error: search timed out", upd.Status)
		assert.Empty(t, upd.Recipes)
	})

	t.Run("stream ends without marker", func(t *testing.T) {
		var buf bytes.Buffer
		svc := NewService(&fakeAI{chunks: []string{"Here are some ideas"}}, &fakeExtractor{}, nil, testConfig(), nil)
		require.NoError(t, svc.Narrate(context.Background(), Request{Ingredients: []string{"beef"}}, &buf))

		out := buf.String()
		assert.True(t, strings.HasSuffix(out, stream.RecipesMarker+"[]"))
		upd := finalState(t, out)
		assert.Contains(t, upd.Status, "Error:")
	})
}

func TestRunSelectsMode(t *testing.T) {
	ai := &fakeAI{
		content: candidatesJSON("https://a.example.com/1"),
		chunks:  strings.Split(narratedScenario, "|"),
	}
	cfg := testConfig()
	cfg.DefaultMode = ModeNarrated
	svc := NewService(ai, &fakeExtractor{}, nil, cfg, nil)

	var narrated bytes.Buffer
	require.NoError(t, svc.Run(context.Background(), Request{Ingredients: []string{"beef"}}, &narrated))
	assert.Equal(t, "Tacos", finalState(t, narrated.String()).Recipes[0].Name)

	var tools bytes.Buffer
	require.NoError(t, svc.Run(context.Background(), Request{Ingredients: []string{"egg"}, Mode: ModeTools}, &tools))
	assert.Equal(t, "Dish 1", finalState(t, tools.String()).Recipes[0].Name)
}
