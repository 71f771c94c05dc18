package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"recipe-finder/internal/api/handlers/health"
	"recipe-finder/internal/api/middleware"
	"recipe-finder/internal/core/extract"
	"recipe-finder/internal/core/recipe"
	"recipe-finder/internal/core/search"
	"recipe-finder/internal/infrastructure/config"
	"recipe-finder/internal/infrastructure/monitoring"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubSearcher struct{}

func (stubSearcher) Run(_ context.Context, _ search.Request, w io.Writer) error {
	_, err := io.WriteString(w, "[STATUS]Found 0 recipes\n\n[RECIPES_START][]")
	return err
}

type stubExtractor struct{}

func (stubExtractor) ExtractWithPolicy(context.Context, string, recipe.Policy) (*extract.Result, error) {
	return &extract.Result{ExtractionMethod: extract.MethodHTML}, nil
}

func (stubExtractor) Policy() recipe.Policy {
	return recipe.Strict
}

func testConfig() *config.Config {
	return &config.Config{
		App:       config.AppConfig{Version: "test"},
		Server:    config.ServerConfig{MaxBodyBytes: 1 << 10},
		RateLimit: config.RateLimitConfig{Enabled: true, Requests: 100, Window: time.Minute},
		Metrics:   config.MetricsConfig{Enabled: true, Path: "/metrics"},
		Auth:      config.AuthConfig{JWTSecret: "secret", Issuer: "recipe-finder"},
	}
}

func setup(t *testing.T, cfg *config.Config, deps Dependencies) *gin.Engine {
	t.Helper()
	if deps.Searcher == nil {
		deps.Searcher = stubSearcher{}
	}
	if deps.Extractor == nil {
		deps.Extractor = stubExtractor{}
	}
	r, err := SetupRouter(cfg, deps)
	require.NoError(t, err)
	return r
}

func do(r http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestSetupRouterRequiresServices(t *testing.T) {
	_, err := SetupRouter(testConfig(), Dependencies{})
	assert.Error(t, err)
}

func TestRoutes(t *testing.T) {
	r := setup(t, testConfig(), Dependencies{Metrics: monitoring.NewMetrics()})

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{name: "health", method: http.MethodGet, path: "/api/v1/health", want: http.StatusOK},
		{name: "ready", method: http.MethodGet, path: "/api/v1/health/ready", want: http.StatusOK},
		{name: "search", method: http.MethodPost, path: "/api/v1/recipes/search", body: `{"ingredients":["egg"]}`, want: http.StatusOK},
		{name: "chat", method: http.MethodPost, path: "/api/v1/recipes/chat", body: `{"messages":[{"role":"user","content":"egg"}]}`, want: http.StatusOK},
		{name: "extract", method: http.MethodPost, path: "/api/v1/recipes/extract", body: `{"url":"https://x.com"}`, want: http.StatusOK},
		{name: "favorites without token", method: http.MethodGet, path: "/api/v1/favorites", want: http.StatusUnauthorized},
		{name: "unknown route", method: http.MethodGet, path: "/api/v1/nope", want: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, tt.method, tt.path, tt.body, nil)
			assert.Equal(t, tt.want, w.Code)
			assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
		})
	}

	w := do(r, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}

func TestFavoritesWithoutStore(t *testing.T) {
	cfg := testConfig()
	r := setup(t, cfg, Dependencies{})

	token, err := middleware.IssueToken(cfg.Auth, "alice", time.Hour)
	require.NoError(t, err)

	w := do(r, http.MethodGet, "/api/v1/favorites", "", map[string]string{"Authorization": "Bearer " + token})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestReadinessFailure(t *testing.T) {
	r := setup(t, testConfig(), Dependencies{
		Checks: map[string]health.Check{
			"database": func(context.Context) error { return errors.New("closed") },
		},
	})

	w := do(r, http.MethodGet, "/api/v1/health/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestBodyLimit(t *testing.T) {
	r := setup(t, testConfig(), Dependencies{})

	body := `{"ingredients":["` + strings.Repeat("a", 2048) + `"]}`
	w := do(r, http.MethodPost, "/api/v1/recipes/search", body, nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestRateLimitApplied(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.Requests = 1
	r := setup(t, cfg, Dependencies{})

	first := do(r, http.MethodPost, "/api/v1/recipes/extract", `{"url":"https://x.com"}`, nil)
	second := do(r, http.MethodPost, "/api/v1/recipes/extract", `{"url":"https://x.com/2"}`, nil)

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)

	w := do(r, http.MethodGet, "/api/v1/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
