package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("AI_API_KEY", "test-key")
	t.Setenv("AI_MODEL", "")
}

func TestGetConfig_Defaults(t *testing.T) {
	setRequiredEnv(t)

	conf, err := GetConfig()
	require.NoError(t, err)

	assert.Equal(t, ProviderGemini, conf.AIConfig.Provider)
	assert.Equal(t, DefaultGeminiModel, conf.AIConfig.Model)
	assert.Equal(t, DriverPlaywright, conf.BrowserConfig.Driver)
	assert.Equal(t, InputConsole, conf.PauseConfig.InputMethod)
	assert.Equal(t, []string{"password_field", "login_page", "captcha"}, conf.PauseConfig.Conditions)
	assert.Equal(t, 16, conf.AppConfig.MaxIterations)
	assert.False(t, conf.ServerEnabled())
}

func TestGetConfig_MissingAPIKey(t *testing.T) {
	for _, key := range []string{"", "   "} {
		t.Setenv("AI_API_KEY", key)

		_, err := GetConfig()
		require.Error(t, err, "key %q", key)
	}
}

func TestGetConfig_ModelFollowsProvider(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("AI_PROVIDER", "anthropic")

	conf, err := GetConfig()
	require.NoError(t, err)
	assert.Equal(t, DefaultAnthropicModel, conf.AIConfig.Model)

	t.Setenv("AI_MODEL", "claude-3-5-haiku-latest")

	conf, err = GetConfig()
	require.NoError(t, err)
	assert.Equal(t, "claude-3-5-haiku-latest", conf.AIConfig.Model)
}

func TestGetConfig_RejectsUnknownValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "provider", key: "AI_PROVIDER", val: "llama"},
		{name: "driver", key: "BROWSER_DRIVER", val: "selenium"},
		{name: "input method", key: "PAUSE_INPUT_METHOD", val: "carrier-pigeon"},
		{name: "iterations", key: "AGENT_MAX_ITERATIONS", val: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tt.key, tt.val)

			_, err := GetConfig()
			assert.Error(t, err)
		})
	}
}

func TestServerEnabled_WebInput(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PAUSE_INPUT_METHOD", "web")

	conf, err := GetConfig()
	require.NoError(t, err)
	assert.True(t, conf.ServerEnabled())
}
