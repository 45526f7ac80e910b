package ports

import (
	"browser-pause-agent/internal/entity"
	"context"
)

type BrowserManager interface {
	Launch(ctx context.Context) error
	Close(ctx context.Context) error
	Navigate(ctx context.Context, url string) error
	Click(ctx context.Context, selector string) error
	ClickAtCoordinates(ctx context.Context, x float64, y float64) error
	Fill(ctx context.Context, selector string, value string) error
	Press(ctx context.Context, key string) error
	Scroll(ctx context.Context, direction string, amount int) error
	Screenshot(ctx context.Context) ([]byte, error)
	GetPageState(ctx context.Context) (*entity.PageState, error)
	CurrentURL(ctx context.Context) (string, error)
	PageHTML(ctx context.Context) (string, error)
	IsReady() bool
}

type AIClient interface {
	SendMessage(ctx context.Context, messages []entity.AIMessage) (*entity.AIResponse, error)
}

type AgentExecutor interface {
	Execute(ctx context.Context, task string) (*entity.Task, error)
	Stop()
}
