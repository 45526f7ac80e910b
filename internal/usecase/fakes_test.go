package usecase

import (
	"browser-pause-agent/internal/config"
	"browser-pause-agent/internal/entity"
	"browser-pause-agent/internal/pause"
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"
)

type fill struct {
	selector string
	value    string
}

type fakeBrowser struct {
	mu     sync.Mutex
	ready  bool
	url    string
	html   string
	fills  []fill
	clicks []string
}

func newFakeBrowser(url, html string) *fakeBrowser {
	return &fakeBrowser{ready: true, url: url, html: html}
}

func (b *fakeBrowser) Launch(context.Context) error { return nil }
func (b *fakeBrowser) Close(context.Context) error  { return nil }

func (b *fakeBrowser) Navigate(_ context.Context, url string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.url = url

	return nil
}

func (b *fakeBrowser) Click(_ context.Context, selector string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.clicks = append(b.clicks, selector)

	return nil
}

func (b *fakeBrowser) ClickAtCoordinates(context.Context, float64, float64) error { return nil }

func (b *fakeBrowser) Fill(_ context.Context, selector, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.fills = append(b.fills, fill{selector: selector, value: value})

	return nil
}

func (b *fakeBrowser) Press(context.Context, string) error       { return nil }
func (b *fakeBrowser) Scroll(context.Context, string, int) error { return nil }

func (b *fakeBrowser) Screenshot(context.Context) ([]byte, error) {
	return nil, errors.New("no screenshots in tests")
}

func (b *fakeBrowser) GetPageState(context.Context) (*entity.PageState, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return &entity.PageState{URL: b.url, Title: "fake"}, nil
}

func (b *fakeBrowser) CurrentURL(context.Context) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.url, nil
}

func (b *fakeBrowser) PageHTML(context.Context) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.html, nil
}

func (b *fakeBrowser) IsReady() bool { return b.ready }

func (b *fakeBrowser) setPage(url, html string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.url, b.html = url, html
}

// scriptedAI replays responses in order and keeps every prompt it saw. The
// last response repeats once the script runs out.
type scriptedAI struct {
	mu        sync.Mutex
	responses []*entity.AIResponse
	errs      []error
	calls     int
	seen      [][]entity.AIMessage
}

func (a *scriptedAI) SendMessage(_ context.Context, messages []entity.AIMessage) (*entity.AIResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.seen = append(a.seen, append([]entity.AIMessage(nil), messages...))
	i := a.calls
	a.calls++

	if i < len(a.errs) && a.errs[i] != nil {
		return nil, a.errs[i]
	}

	if i >= len(a.responses) {
		i = len(a.responses) - 1
	}

	return a.responses[i], nil
}

// transcript flattens every prompt sent to the model.
func (a *scriptedAI) transcript() string {
	a.mu.Lock()
	defer a.mu.Unlock()

	var b strings.Builder

	for _, msgs := range a.seen {
		for _, m := range msgs {
			fmt.Fprintf(&b, "%v\n", m.Content)
		}
	}

	return b.String()
}

func testConfig(maxIterations int) *config.Config {
	return &config.Config{
		AppConfig:     &config.AppConfig{MaxIterations: maxIterations},
		BrowserConfig: &config.BrowserConfig{UseScreenshots: false},
	}
}

func newTestAgent(t *testing.T, b *fakeBrowser, ai *scriptedAI, hook *pause.Hook, maxIterations int) *AgentService {
	t.Helper()

	agent := NewAgentService(AgentServiceParams{
		Config:  testConfig(maxIterations),
		Logger:  zap.NewNop(),
		Browser: b,
		AI:      ai,
		Hook:    hook,
		Output:  &bytes.Buffer{},
	})
	agent.pace, agent.retryDelay, agent.navDelay = 0, 0, 0

	return agent
}

func newTestHook(handler pause.InputHandler) *pause.Hook {
	return pause.NewHook(handler, pause.WithOutput(&bytes.Buffer{}))
}

func answer(values ...string) (pause.InputFunc, *[]pause.InputRequest) {
	var (
		mu   sync.Mutex
		seen []pause.InputRequest
	)

	return func(_ context.Context, req pause.InputRequest) (string, error) {
		mu.Lock()
		defer mu.Unlock()

		seen = append(seen, req)

		if len(seen) > len(values) {
			return values[len(values)-1], nil
		}

		return values[len(seen)-1], nil
	}, &seen
}

func complete(result string) *entity.AIResponse {
	return &entity.AIResponse{Complete: true, Result: result}
}

func act(action *entity.BrowserAction) *entity.AIResponse {
	return &entity.AIResponse{Action: action}
}
