package bootstrap

import (
	"browser-pause-agent/internal/browser"
	"browser-pause-agent/internal/config"
	"browser-pause-agent/internal/console"
	"browser-pause-agent/internal/metrics"
	"browser-pause-agent/internal/server"
	"browser-pause-agent/internal/usecase"
	"time"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// Options tune a single run of the app.
type Options struct {
	// Task runs one task and exits instead of starting the REPL.
	Task string
}

func NewApp(opts Options) *fx.App {
	return fx.New(
		appOptions(opts),
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger.Named("fx")}
		}),
	)
}

func appOptions(opts Options) fx.Option {
	return fx.Options(
		fx.Supply(opts),

		fx.Provide(
			config.GetConfig,
			newLogger,
			newTraceProvider,
			metrics.New,

			newLineReader,
			newInput,
			newHistory,
			newHook,

			browser.New,
			newAIClient,

			usecase.NewUsecase,

			console.NewInterface,
			server.New,
		),

		fx.Invoke(
			startTracing,
			runServer,
			saveHistory,
			runConsole,
		),

		fx.StartTimeout(2*time.Minute),
	)
}
