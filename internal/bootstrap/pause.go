package bootstrap

import (
	"browser-pause-agent/internal/ai"
	"browser-pause-agent/internal/config"
	"browser-pause-agent/internal/metrics"
	"browser-pause-agent/internal/pause"
	"browser-pause-agent/internal/ports"
	"browser-pause-agent/internal/store"
	"context"
	"fmt"
	"os"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

const redisHistoryLimit = 1000

type inputResult struct {
	fx.Out

	Handler pause.InputHandler
	Web     *pause.WebInput
}

// newLineReader owns stdin for the whole process.
func newLineReader(lc fx.Lifecycle) *pause.LineReader {
	lines := pause.NewLineReader(os.Stdin)

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			lines.Close()

			return nil
		},
	})

	return lines
}

func newInput(conf *config.Config, lines *pause.LineReader) (inputResult, error) {
	handler, err := pause.NewInputHandler(conf.PauseConfig.InputMethod, lines, os.Stdout)
	if err != nil {
		return inputResult{}, err
	}

	web, _ := handler.(*pause.WebInput)

	return inputResult{Handler: handler, Web: web}, nil
}

// newHistory keeps pauses in Redis when REDIS_ADDR is set, in memory otherwise.
func newHistory(lc fx.Lifecycle, conf *config.Config, logger *zap.Logger) pause.Recorder {
	rc := conf.RedisConfig
	if rc.Addr == "" {
		return pause.NewMemoryHistory()
	}

	history := store.NewRedisHistory(rc.Addr, rc.Password, rc.DB, rc.Key, store.WithLimit(redisHistoryLimit))

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := history.Ping(ctx); err != nil {
				return fmt.Errorf("connect to redis at %s: %w", rc.Addr, err)
			}

			logger.Info("Pause history stored in Redis", zap.String("addr", rc.Addr), zap.String("key", rc.Key))

			return nil
		},
		OnStop: func(context.Context) error {
			return history.Close()
		},
	})

	return history
}

func newHook(
	conf *config.Config,
	handler pause.InputHandler,
	history pause.Recorder,
	m *metrics.Metrics,
	logger *zap.Logger,
) (*pause.Hook, error) {
	hook := pause.NewHook(handler,
		pause.WithOutput(os.Stdout),
		pause.WithLogger(logger),
		pause.WithHistory(history),
		pause.WithMetrics(m),
	)

	if err := hook.UseBuiltins(conf.PauseConfig.Conditions...); err != nil {
		return nil, err
	}

	return hook, nil
}

func newAIClient(conf *config.Config, logger *zap.Logger) (ports.AIClient, error) {
	return ai.NewClient(context.Background(), conf, logger)
}
