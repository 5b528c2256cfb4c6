package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"demandsight/internal/config"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testClient(url string) *OpenAIClient {
	cfg := DefaultOpenAIConfig("sk-test")
	cfg.BaseURL = url
	cfg.Timeout = 5 * time.Second
	return NewOpenAIClient(cfg)
}

func completionBody(content string) string {
	return fmt.Sprintf(`{"id":"chatcmpl-1","object":"chat.completion","model":"gpt-4o-mini",
		"choices":[{"index":0,"message":{"role":"assistant","content":%q},"finish_reason":"stop"}],
		"usage":{"prompt_tokens":10,"completion_tokens":5,"total_tokens":15}}`, content)
}

func TestChat(t *testing.T) {
	var gotAuth string
	var gotReq chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		fmt.Fprint(w, completionBody("Stock Dallas first."))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	answer, err := c.Chat(context.Background(), []Message{
		{Role: "system", Content: "You are a demand assistant."},
		{Role: "user", Content: "Where should I stock ThinkPads?"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Stock Dallas first.", answer)
	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, "gpt-4o-mini", gotReq.Model)
	assert.Len(t, gotReq.Messages, 2)
	assert.Equal(t, 1000, gotReq.MaxTokens)
	assert.InDelta(t, 0.3, gotReq.Temperature, 0.001)
}

func TestChat_RetryOn429(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, completionBody("ok"))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	answer, err := c.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}})
	require.NoError(t, err)
	assert.Equal(t, "ok", answer)
	assert.Equal(t, 2, calls)
}

func TestChat_APIErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error":{"message":"model overloaded","type":"server_error"}}`)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model overloaded")
}

func TestChat_HTTPErrorNotRetried(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"invalid api key"}}`)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
	assert.Equal(t, 1, calls)
}

func TestChat_MissingAPIKey(t *testing.T) {
	cfg := DefaultOpenAIConfig("")
	c := NewOpenAIClient(cfg)
	_, err := c.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key not configured")
}

func TestChatStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		deltas := []string{"Stock", " Dallas", " first."}
		for _, d := range deltas {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", d)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	contentCh, errCh := c.ChatStream(context.Background(), []Message{{Role: "user", Content: "hi"}})

	var sb strings.Builder
	for delta := range contentCh {
		sb.WriteString(delta)
	}
	require.NoError(t, <-errCh)
	assert.Equal(t, "Stock Dallas first.", sb.String())
}

func TestNewFromConfig_RequiresKey(t *testing.T) {
	_, err := NewFromConfig(&config.LLMConfig{Model: "gpt-4o-mini"})
	require.Error(t, err)
}

func TestNewFromConfig(t *testing.T) {
	c, err := NewFromConfig(&config.LLMConfig{
		APIKey:      "sk-test",
		Model:       "gpt-4o-mini",
		Temperature: 0.3,
		MaxTokens:   1000,
		Timeout:     "30s",
	})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", c.Model())
}
