package browser

import (
	"browser-pause-agent/internal/config"
	"browser-pause-agent/internal/ports"
	"browser-pause-agent/pkg/apperr"
	"context"
	"testing"

	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig(driver string) *config.Config {
	return &config.Config{
		BrowserConfig: &config.BrowserConfig{Driver: driver, Timeout: 1000},
	}
}

func TestNewSelectsDriver(t *testing.T) {
	mgr, err := New(Params{Config: testConfig(config.DriverPlaywright), Logger: zap.NewNop()})
	require.NoError(t, err)
	assert.IsType(t, &Manager{}, mgr)

	mgr, err = New(Params{Config: testConfig("CHROMEDP"), Logger: zap.NewNop()})
	require.NoError(t, err)
	assert.IsType(t, &CDPManager{}, mgr)

	_, err = New(Params{Config: testConfig("selenium"), Logger: zap.NewNop()})
	require.Error(t, err)
}

func TestCDPAllocatorOptions(t *testing.T) {
	conf := testConfig(config.DriverChromedp)
	base := len(chromedp.DefaultExecAllocatorOptions)

	opts := NewCDPManager(conf, zap.NewNop()).allocatorOptions()
	assert.Len(t, opts, base+6)

	conf.BrowserConfig.UserDataDir = t.TempDir()
	opts = NewCDPManager(conf, zap.NewNop()).allocatorOptions()
	assert.Len(t, opts, base+7)

	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)
	defer cancel()
	assert.NoError(t, allocCtx.Err())
}

func TestManagersRequireLaunch(t *testing.T) {
	managers := map[string]ports.BrowserManager{
		"playwright": NewManager(testConfig(config.DriverPlaywright), zap.NewNop()),
		"chromedp":   NewCDPManager(testConfig(config.DriverChromedp), zap.NewNop()),
	}

	for name, mgr := range managers {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			assert.False(t, mgr.IsReady())

			err := mgr.Navigate(ctx, "https://example.com")
			assert.Equal(t, apperr.CodeBrowserNotReady, apperr.CodeOf(err))

			_, err = mgr.CurrentURL(ctx)
			assert.Equal(t, apperr.CodeBrowserNotReady, apperr.CodeOf(err))

			_, err = mgr.PageHTML(ctx)
			assert.Equal(t, apperr.CodeBrowserNotReady, apperr.CodeOf(err))

			_, err = mgr.Screenshot(ctx)
			require.Error(t, err)

			require.NoError(t, mgr.Close(ctx))
		})
	}
}

func TestDecodeElements(t *testing.T) {
	raw := []any{
		"junk",
		map[string]any{
			"tag":        "input",
			"text":       "  Email  ",
			"selector":   "#email",
			"visible":    true,
			"clickable":  true,
			"x":          float64(10),
			"y":          20,
			"width":      float64(100),
			"height":     float64(30),
			"attributes": map[string]any{"type": "email", "maxlength": 5.0},
		},
	}

	elements := decodeElements(raw)
	require.Len(t, elements, 1)

	el := elements[0]
	assert.Equal(t, "input", el.Tag)
	assert.Equal(t, "Email", el.Text)
	assert.Equal(t, "#email", el.Selector)
	assert.True(t, el.Visible)
	assert.True(t, el.Clickable)
	assert.Equal(t, 10.0, el.BoundingBox.X)
	assert.Equal(t, 20.0, el.BoundingBox.Y)
	assert.Equal(t, map[string]string{"type": "email"}, el.Attributes)
}

func TestScrollScript(t *testing.T) {
	tests := []struct {
		direction string
		amount    int
		want      string
	}{
		{"down", 300, "window.scrollBy(0, 300)"},
		{"up", 0, "window.scrollBy(0, -500)"},
		{"bottom", 10, "window.scrollTo(0, document.body.scrollHeight)"},
		{"top", 10, "window.scrollTo(0, 0)"},
	}

	for _, tt := range tests {
		got, err := scrollScript(tt.direction, tt.amount)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := scrollScript("sideways", 1)
	require.Error(t, err)
}

func TestKeySequence(t *testing.T) {
	assert.Equal(t, kb.Enter, keySequence("Enter"))
	assert.Equal(t, kb.Tab, keySequence("Tab"))
	assert.Equal(t, "a", keySequence("a"))
}

func TestEscapeSelector(t *testing.T) {
	assert.Equal(t, `a[title=\'x\']`, escapeSelector(`a[title='x']`))
}

func TestElementsScriptFormatted(t *testing.T) {
	assert.NotContains(t, elementsScript, "%!")
	assert.Contains(t, elementsScript, "innerHeight + 400")
}
