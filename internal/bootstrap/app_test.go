package bootstrap

import (
	"browser-pause-agent/internal/config"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func TestAppGraphIsComplete(t *testing.T) {
	require.NoError(t, fx.ValidateApp(appOptions(Options{}), fx.NopLogger))
}

func TestNewLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.log")

	logger, err := newLogger(&config.Config{AppConfig: &config.AppConfig{
		LogLevel:      "debug",
		LogFile:       path,
		LogMaxSizeMB:  1,
		LogMaxBackups: 1,
	}})
	require.NoError(t, err)

	logger.Debug("pause recorded", zap.String("rule", "captcha"))
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"rule":"captcha"`)
	assert.Contains(t, string(data), "pause recorded")
}

func TestNewInputSelectsWeb(t *testing.T) {
	res, err := newInput(&config.Config{PauseConfig: &config.PauseConfig{InputMethod: config.InputWeb}}, nil)
	require.NoError(t, err)
	require.NotNil(t, res.Web)
	assert.Same(t, res.Web, res.Handler)

	res, err = newInput(&config.Config{PauseConfig: &config.PauseConfig{InputMethod: config.InputConsole}}, nil)
	require.NoError(t, err)
	assert.Nil(t, res.Web)

	_, err = newInput(&config.Config{PauseConfig: &config.PauseConfig{InputMethod: "carrier-pigeon"}}, nil)
	require.Error(t, err)
}
