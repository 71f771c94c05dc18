package openrouter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"recipe-finder/internal/core/ai/provider"
	"recipe-finder/internal/infrastructure/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(url string) *Client {
	return NewClient(config.OpenRouterConfig{
		APIKey:    "sk-test",
		BaseURL:   url,
		Model:     "test/model",
		MaxTokens: 100,
		Timeout:   5 * time.Second,
	})
}

func TestGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var body chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "test/model", body.Model)
		assert.Equal(t, 100, body.MaxTokens)
		assert.False(t, body.Stream)

		fmt.Fprint(w, `{"model":"test/model","choices":[{"message":{"role":"assistant","content":"hello"}}],"usage":{"total_tokens":7}}`)
	}))
	defer srv.Close()

	resp, err := newTestClient(srv.URL).Generate(context.Background(), &provider.Request{
		Messages: []provider.Message{{Role: "user", Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Content)
	assert.Equal(t, 7, resp.Usage.TotalTokens)
}

func TestGenerateErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"bad key"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Generate(context.Background(), &provider.Request{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.True(t, body.Stream)

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, ": OPENROUTER PROCESSING\n\n")
		fmt.Fprint(w, `data: {"choices":[{"delta":{"content":"[STATUS]Sear"}}]}`+"\n\n")
		fmt.Fprint(w, `data: {"choices":[{"delta":{"content":"ching\n\n"}}]}`+"\n\n")
		fmt.Fprint(w, "data: not json\n\n")
		fmt.Fprint(w, `data: {"choices":[{"delta":{"content":""}}]}`+"\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
		fmt.Fprint(w, `data: {"choices":[{"delta":{"content":"ignored"}}]}`+"\n\n")
	}))
	defer srv.Close()

	var got strings.Builder
	err := newTestClient(srv.URL).Stream(context.Background(), &provider.Request{}, func(delta string) error {
		got.WriteString(delta)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "[STATUS]Searching\n\n", got.String())
}

func TestStreamErrorEvent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `data: {"choices":[{"delta":{"content":"partial"}}]}`+"\n\n")
		fmt.Fprint(w, `data: {"error":{"message":"upstream overloaded"}}`+"\n\n")
	}))
	defer srv.Close()

	var got []string
	err := newTestClient(srv.URL).Stream(context.Background(), &provider.Request{}, func(delta string) error {
		got = append(got, delta)
		return nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream overloaded")
	assert.Equal(t, []string{"partial"}, got)
}

func TestStreamCallbackErrorStops(t *testing.T) {
	stop := fmt.Errorf("client gone")
	err := readEvents(strings.NewReader(
		`data: {"choices":[{"delta":{"content":"a"}}]}`+"\n"+
			`data: {"choices":[{"delta":{"content":"b"}}]}`+"\n"),
		func(string) error { return stop })
	assert.ErrorIs(t, err, stop)
}
