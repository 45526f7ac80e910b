package bootstrap

import (
	"browser-pause-agent/internal/config"
	"browser-pause-agent/internal/console"
	"browser-pause-agent/internal/pause"
	"browser-pause-agent/internal/ports"
	"browser-pause-agent/internal/server"
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

func runConsole(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	opts Options,
	consoleInterface *console.Interface,
	browser ports.BrowserManager,
	logger *zap.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("Launching browser...")

			if err := browser.Launch(ctx); err != nil {
				logger.Error("Failed to launch browser", zap.Error(err))

				return err
			}

			go func() {
				code := 0

				if opts.Task != "" {
					if _, err := consoleInterface.RunTask(opts.Task); err != nil {
						code = 1
					}
				} else if err := consoleInterface.Start(); err != nil {
					logger.Error("Console interface error", zap.Error(err))
					code = 1
				}

				if err := shutdowner.Shutdown(fx.ExitCode(code)); err != nil {
					logger.Debug("Shutdown already in progress", zap.Error(err))
				}
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Shutting down AI Agent...")

			consoleInterface.Stop()

			if err := browser.Close(ctx); err != nil {
				logger.Error("Failed to close browser", zap.Error(err))
			}

			return nil
		},
	})
}

func runServer(lc fx.Lifecycle, conf *config.Config, srv *server.Server) {
	if !conf.ServerEnabled() {
		return
	}

	lc.Append(fx.Hook{
		OnStart: srv.Start,
		OnStop:  srv.Stop,
	})
}

// saveHistory dumps the session's pauses to PAUSE_HISTORY_FILE on shutdown.
func saveHistory(lc fx.Lifecycle, conf *config.Config, history pause.Recorder, logger *zap.Logger) {
	path := conf.PauseConfig.HistoryFile
	if path == "" {
		return
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			if err := pause.SaveFile(ctx, history, path); err != nil {
				logger.Error("Failed to save pause history", zap.String("path", path), zap.Error(err))

				return err
			}

			logger.Info("Pause history saved", zap.String("path", path))

			return nil
		},
	})
}
