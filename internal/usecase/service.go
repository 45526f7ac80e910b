package usecase

import (
	"browser-pause-agent/internal/config"
	"browser-pause-agent/internal/metrics"
	"browser-pause-agent/internal/pause"
	"browser-pause-agent/internal/ports"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Service groups what the outer layers (console, server) drive.
type Service struct {
	Agent   ports.AgentExecutor
	Browser ports.BrowserManager
	Hook    *pause.Hook
	History pause.Recorder
}

type Params struct {
	fx.In

	Logger  *zap.Logger
	Config  *config.Config
	Browser ports.BrowserManager
	AI      ports.AIClient
	Hook    *pause.Hook
	History pause.Recorder
	Metrics *metrics.Metrics `optional:"true"`
}

func NewUsecase(params Params) *Service {
	factory := newServiceFactory(params)

	return &Service{
		Agent:   factory.CreateAgentService(),
		Browser: params.Browser,
		Hook:    params.Hook,
		History: params.History,
	}
}
