package llm

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clickloop/internal/domain"
	"clickloop/internal/infra/config"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOpenAIProviderChat(t *testing.T) {
	var got openaiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"id": "chatcmpl-1",
			"model": "gpt-4o-mini",
			"created": 1700000000,
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "[\"https://a.example\"]"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
		}`)
	}))
	defer srv.Close()

	p := NewOpenAIProvider(config.ProviderConfig{
		BaseURL: srv.URL + "/v1/",
		APIKey:  "sk-test",
		Model:   "gpt-4o-mini",
	}, newTestLogger())

	resp, err := p.Chat(context.Background(), domain.ChatRequest{
		Messages:    []domain.Message{{Role: domain.RoleUser, Content: "hi"}},
		Temperature: 0.4,
		JSONMode:    true,
	})
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o-mini", got.Model, "default model is filled in")
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "hi", got.Messages[0].Content)
	require.NotNil(t, got.Temperature)
	assert.InDelta(t, 0.4, *got.Temperature, 1e-9)
	require.NotNil(t, got.ResponseFormat)
	assert.Equal(t, "json_object", got.ResponseFormat.Type)

	assert.Equal(t, `["https://a.example"]`, resp.Message.Content)
	assert.Equal(t, domain.RoleAssistant, resp.Message.Role)
	assert.Equal(t, 15, resp.Usage.TotalTokens)
	assert.Equal(t, time.Unix(1700000000, 0), resp.CreatedAt)
}

func TestOpenAIProviderNoAPIKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`)
	}))
	defer srv.Close()

	p := NewOpenAIProvider(config.ProviderConfig{BaseURL: srv.URL}, newTestLogger())
	resp, err := p.Chat(context.Background(), domain.ChatRequest{})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Message.Content)
	assert.Equal(t, "openai", p.Name())
}

func TestOpenAIProviderErrorResponses(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"rate limit", http.StatusTooManyRequests, `{"error":"slow down"}`, domain.ErrRateLimit},
		{"unauthorized", http.StatusUnauthorized, `{"error":"bad key"}`, domain.ErrAuthInvalid},
		{"bad request", http.StatusBadRequest, `{"error":"bad"}`, domain.ErrInvalidInput},
		{"server error", http.StatusBadGateway, `oops`, domain.ErrUpstream},
		{"empty choices", http.StatusOK, `{"choices":[]}`, domain.ErrProviderError},
		{"invalid json", http.StatusOK, `not json`, domain.ErrProviderError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			p := NewOpenAIProvider(config.ProviderConfig{BaseURL: srv.URL}, newTestLogger())
			_, err := p.Chat(context.Background(), domain.ChatRequest{})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestOpenAIProviderContextTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	p := NewOpenAIProvider(config.ProviderConfig{BaseURL: srv.URL}, newTestLogger())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := p.Chat(ctx, domain.ChatRequest{})
	assert.ErrorIs(t, err, domain.ErrTimeout)
}

func TestMapHTTPErrorTruncatesBody(t *testing.T) {
	body := make([]byte, 2000)
	for i := range body {
		body[i] = 'x'
	}
	err := mapHTTPError(http.StatusTeapot, body)
	assert.ErrorIs(t, err, domain.ErrProviderError)
	assert.Less(t, len(err.Error()), 600)
}
