package ai

import (
	"browser-pause-agent/internal/config"
	"browser-pause-agent/internal/entity"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestAnthropic(t *testing.T, handler http.HandlerFunc) *AnthropicClient {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := NewAnthropicClient(&config.Config{
		AIConfig: &config.AIConfig{Provider: config.ProviderAnthropic, APIKey: "secret", Model: "claude-test"},
	}, zap.NewNop())
	client.endpoint = srv.URL
	client.httpClient = srv.Client()

	return client
}

func TestAnthropicSendMessage(t *testing.T) {
	var got claudeRequest

	client := newTestAnthropic(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"stop_reason": "tool_use",
			"content": [
				{"type": "text", "text": "need a code"},
				{"type": "tool_use", "name": "request_user_input", "input": {"prompt": "Enter the SMS code"}}
			]
		}`))
	})

	resp, err := client.SendMessage(context.Background(), []entity.AIMessage{{Role: "user", Content: "pay the bill"}})
	require.NoError(t, err)

	assert.Equal(t, "claude-test", got.Model)
	assert.Len(t, got.Tools, len(browserTools))
	assert.False(t, resp.Complete)
	assert.Equal(t, "need a code", resp.Thought)
	require.NotNil(t, resp.Action)
	assert.Equal(t, entity.ActionTypeRequestInput, resp.Action.Type)
	assert.Equal(t, "Enter the SMS code", resp.Action.Value)
}

func TestAnthropicCompleteTask(t *testing.T) {
	client := newTestAnthropic(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"stop_reason":"tool_use","content":[{"type":"tool_use","name":"complete_task","input":{"result":"ordered"}}]}`))
	})

	resp, err := client.SendMessage(context.Background(), []entity.AIMessage{{Role: "user", Content: "x"}})
	require.NoError(t, err)

	assert.True(t, resp.Complete)
	assert.Equal(t, "ordered", resp.Result)
	assert.Nil(t, resp.Action)
}

func TestAnthropicAPIError(t *testing.T) {
	client := newTestAnthropic(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"overloaded"}`, http.StatusServiceUnavailable)
	})

	_, err := client.SendMessage(context.Background(), []entity.AIMessage{{Role: "user", Content: "x"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestNewClientUnknownProvider(t *testing.T) {
	_, err := NewClient(context.Background(), &config.Config{
		AIConfig: &config.AIConfig{Provider: "llama", APIKey: "k"},
	}, zap.NewNop())
	require.Error(t, err)
}

func TestNewClientAnthropic(t *testing.T) {
	client, err := NewClient(context.Background(), &config.Config{
		AIConfig: &config.AIConfig{Provider: config.ProviderAnthropic, APIKey: "k"},
	}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &AnthropicClient{}, client)
}
