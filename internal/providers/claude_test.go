package providers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"review_gateway/internal/apperr"
)

func claudeServer(t *testing.T, handler func(w http.ResponseWriter, body map[string]any)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))

		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var body map[string]any
		require.NoError(t, json.Unmarshal(raw, &body))

		w.Header().Set("Content-Type", "application/json")
		handler(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func claudeMessage(text string) string {
	msg := map[string]any{
		"id":            "msg_1",
		"type":          "message",
		"role":          "assistant",
		"model":         DefaultClaudeModel,
		"stop_reason":   "end_turn",
		"stop_sequence": nil,
		"content":       []map[string]any{{"type": "text", "text": text}},
		"usage":         map[string]any{"input_tokens": 10, "output_tokens": 5},
	}
	b, _ := json.Marshal(msg)
	return string(b)
}

func TestClaudeClient_Review(t *testing.T) {
	srv := claudeServer(t, func(w http.ResponseWriter, body map[string]any) {
		assert.Equal(t, DefaultClaudeModel, body["model"])
		assert.EqualValues(t, claudeMaxTokens, body["max_tokens"])
		assert.InDelta(t, reviewTemperature, body["temperature"], 0.0001)

		messages := body["messages"].([]any)
		require.Len(t, messages, 1)
		raw, _ := json.Marshal(messages[0])
		assert.Contains(t, string(raw), "File: main.go")

		_, _ = io.WriteString(w, claudeMessage("Reviewed:\n```go\n// ok\npackage main\n```"))
	})

	client, err := NewClaudeClient(context.Background(), Credentials{APIKey: "test-key"}, Options{BaseURL: srv.URL})
	require.NoError(t, err)

	out, err := client.Review(context.Background(), []CodeFile{{Name: "main.go", Language: "go", Content: "package main"}}, "Review.")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "main.go", out[0].Name)
	assert.Equal(t, "// ok\npackage main", out[0].Content)
}

func TestClaudeClient_RateLimitIsSingleAttempt(t *testing.T) {
	var hits int32
	srv := claudeServer(t, func(w http.ResponseWriter, _ map[string]any) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`)
	})

	client, err := NewClaudeClient(context.Background(), Credentials{APIKey: "test-key", Model: "claude-x"}, Options{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = client.Review(context.Background(), []CodeFile{{Name: "a.py", Language: "python", Content: "x = 1"}}, "p")
	require.Error(t, err)
	assert.Equal(t, ErrorKindRateLimited, KindOf(err))
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))

	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, http.StatusTooManyRequests, pe.Status)
	assert.NotContains(t, err.Error(), "test-key")
}

func TestClaudeClient_MissingKey(t *testing.T) {
	_, err := NewClaudeClient(context.Background(), Credentials{}, Options{})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindConfiguration))
	assert.True(t, strings.Contains(err.Error(), "apiKey"))
}
