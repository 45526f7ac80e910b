package usecase

import (
	"browser-pause-agent/internal/ports"
)

type serviceFactory struct {
	deps Params
}

func newServiceFactory(deps Params) *serviceFactory {
	return &serviceFactory{
		deps: deps,
	}
}

func (f *serviceFactory) CreateAgentService() ports.AgentExecutor {
	return NewAgentService(AgentServiceParams{
		Browser: f.deps.Browser,
		AI:      f.deps.AI,
		Hook:    f.deps.Hook,
		Metrics: f.deps.Metrics,
		Config:  f.deps.Config,
		Logger:  f.deps.Logger,
	})
}
