package browser

import (
	"browser-pause-agent/internal/config"
	"browser-pause-agent/internal/entity"
	"browser-pause-agent/pkg/apperr"
	"browser-pause-agent/pkg/logg"
	"browser-pause-agent/pkg/tracing"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	browserManagerName = "BrowserManager"
	browserTracer      = "browser.manager"
	clickTimeout       = 15000
	fillTimeout        = 5000
	settleDelay        = 300 * time.Millisecond
	userAgent          = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"
)

var errPageClosed = errors.New("browser context is nil")

// Manager drives Chromium through playwright.
type Manager struct {
	config         *config.Config
	logger         *zap.Logger
	tracer         trace.Tracer
	playwright     *playwright.Playwright
	browser        playwright.Browser
	browserContext playwright.BrowserContext
	page           playwright.Page
	ready          bool
}

func NewManager(conf *config.Config, logger *zap.Logger) *Manager {
	return &Manager{
		config: conf,
		logger: logger.With(zap.String(logg.Layer, browserManagerName)),
		tracer: otel.Tracer(browserTracer),
	}
}

func (m *Manager) Launch(ctx context.Context) (err error) {
	const op = "Launch"
	logger := m.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	logger.Info("Launching browser...")
	step.AddEvent("installing playwright")

	if err = playwright.Install(); err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "playwright_install_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}

	pw, err := playwright.Run()
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "playwright_start_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}
	m.playwright = pw

	if m.config.BrowserConfig.UserDataDir != "" {
		err = m.launchPersistent(ctx)
	} else {
		err = m.launchNew(ctx)
	}

	if err != nil {
		return err
	}

	m.ready = true
	logger.Info("Browser launched successfully")

	return nil
}

// launchPersistent reuses a profile directory so cookies survive restarts.
func (m *Manager) launchPersistent(_ context.Context) error {
	const op = "launchPersistent"

	dir := m.config.BrowserConfig.UserDataDir

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "mkdir_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}

	browserContext, err := m.playwright.Chromium.LaunchPersistentContext(dir, playwright.BrowserTypeLaunchPersistentContextOptions{
		Headless:          playwright.Bool(m.config.BrowserConfig.Headless),
		SlowMo:            playwright.Float(float64(m.config.BrowserConfig.SlowMo)),
		Viewport:          &playwright.Size{Width: 1440, Height: 900},
		UserAgent:         playwright.String(userAgent),
		JavaScriptEnabled: playwright.Bool(true),
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			"--disable-dev-shm-usage",
		},
	})
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "launch_persistent_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}

	m.browserContext = browserContext

	if pages := browserContext.Pages(); len(pages) > 0 {
		m.page = pages[0]

		return nil
	}

	return m.openPage(op)
}

func (m *Manager) launchNew(_ context.Context) error {
	const op = "launchNew"

	browser, err := m.playwright.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(m.config.BrowserConfig.Headless),
		SlowMo:   playwright.Float(float64(m.config.BrowserConfig.SlowMo)),
		Args:     []string{"--disable-blink-features=AutomationControlled"},
	})
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "browser_launch_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}
	m.browser = browser

	browserContext, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport:  &playwright.Size{Width: 1280, Height: 720},
		UserAgent: playwright.String(userAgent),
	})
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "context_create_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}

	m.browserContext = browserContext

	return m.openPage(op)
}

func (m *Manager) openPage(op string) error {
	page, err := m.browserContext.NewPage()
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "new_page_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}

	m.page = page

	return nil
}

func (m *Manager) Close(ctx context.Context) (err error) {
	const op = "Close"
	logger := m.logger.With(zap.String(logg.Operation, op))

	_, step := tracing.StartSpan(ctx, m.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	m.ready = false

	if m.browserContext != nil {
		if err := m.browserContext.Close(); err != nil {
			logger.Warn("Failed to close context", zap.Error(err))
		}
	}

	if m.browser != nil {
		if err := m.browser.Close(); err != nil {
			logger.Warn("Failed to close browser", zap.Error(err))
		}
	}

	if m.playwright != nil {
		if err := m.playwright.Stop(); err != nil {
			return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
				apperr.MetaReason: "playwright_stop_failed",
			})
		}
	}

	logger.Info("Browser closed")

	return nil
}

// activePage checks readiness and reattaches to a live tab if the current one
// was closed by the user.
func (m *Manager) activePage(op string) error {
	if !m.ready {
		return apperr.WrapErrorWithReason(op, apperr.CodeBrowserNotReady, "browser_not_ready")
	}

	if m.browserContext == nil {
		return apperr.Wrap(op, apperr.CodeBrowserNotReady, errPageClosed, map[string]any{
			apperr.MetaReason: "page_not_active",
		})
	}

	if m.page != nil && !m.page.IsClosed() {
		return nil
	}

	for _, p := range m.browserContext.Pages() {
		if !p.IsClosed() {
			m.page = p
			m.logger.Info("Reattached to open page")

			return nil
		}
	}

	return m.openPage(op)
}

func (m *Manager) Navigate(ctx context.Context, url string) (err error) {
	const op = "Navigate"
	logger := m.logger.With(zap.String(logg.Operation, op), zap.String(logg.URL, url))

	_, step := tracing.StartSpan(ctx, m.tracer, logger, op, attribute.String("url", url))
	defer func() {
		step.End(err)
	}()

	if err = m.activePage(op); err != nil {
		return err
	}

	_, err = m.page.Goto(url, playwright.PageGotoOptions{
		Timeout:   playwright.Float(float64(m.config.BrowserConfig.Timeout)),
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	})
	if err != nil {
		return apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason: "goto_failed",
			apperr.MetaStage:  apperr.StageNavigation,
			apperr.MetaURL:    url,
		})
	}

	time.Sleep(settleDelay)

	return nil
}

// Click tries a regular click first, then a forced one, then a raw mouse
// click at the element centre.
func (m *Manager) Click(ctx context.Context, selector string) (err error) {
	const op = "Click"
	logger := m.logger.With(zap.String(logg.Operation, op), zap.String(logg.Selector, selector))

	_, step := tracing.StartSpan(ctx, m.tracer, logger, op, attribute.String("selector", selector))
	defer func() {
		step.End(err)
	}()

	if err = m.activePage(op); err != nil {
		return err
	}

	strategies := []struct {
		name string
		fn   func() error
	}{
		{"click", func() error {
			return m.page.Click(selector, playwright.PageClickOptions{Timeout: playwright.Float(clickTimeout)})
		}},
		{"force_click", func() error {
			return m.page.Click(selector, playwright.PageClickOptions{
				Timeout: playwright.Float(clickTimeout),
				Force:   playwright.Bool(true),
			})
		}},
		{"mouse_click", func() error {
			return m.mouseClickCenter(selector)
		}},
	}

	var lastErr error

	for _, s := range strategies {
		step.AddEvent("trying strategy", attribute.String("strategy", s.name))

		if lastErr = s.fn(); lastErr == nil {
			time.Sleep(settleDelay)

			return nil
		}

		logger.Warn("Click strategy failed", zap.String("strategy", s.name), zap.Error(lastErr))
	}

	return apperr.Wrap(op, apperr.CodeActionFailed, lastErr, map[string]any{
		apperr.MetaReason:   "click_failed_all_strategies",
		apperr.MetaStage:    apperr.StageInteraction,
		apperr.MetaSelector: selector,
	})
}

func (m *Manager) mouseClickCenter(selector string) error {
	result, err := m.page.Evaluate(fmt.Sprintf(`(() => {
		const el = document.querySelector('%s');
		if (!el) return null;
		el.scrollIntoView({behavior: 'instant', block: 'center'});
		const r = el.getBoundingClientRect();
		return {x: r.left + r.width / 2, y: r.top + r.height / 2};
	})()`, escapeSelector(selector)))
	if err != nil {
		return fmt.Errorf("locate element: %w", err)
	}

	point, ok := result.(map[string]any)
	if !ok {
		return fmt.Errorf("element not found: %s", selector)
	}

	return m.page.Mouse().Click(getFloat(point, "x"), getFloat(point, "y"))
}

func (m *Manager) ClickAtCoordinates(ctx context.Context, x, y float64) (err error) {
	const op = "ClickAtCoordinates"
	logger := m.logger.With(zap.String(logg.Operation, op))

	_, step := tracing.StartSpan(ctx, m.tracer, logger, op,
		attribute.Float64("x", x),
		attribute.Float64("y", y))
	defer func() {
		step.End(err)
	}()

	if err = m.activePage(op); err != nil {
		return err
	}

	if err = m.page.Mouse().Click(x, y); err != nil {
		return apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason: "click_coordinates_failed",
			apperr.MetaStage:  apperr.StageInteraction,
		})
	}

	time.Sleep(settleDelay)

	return nil
}

// Fill types value into selector. The value is never logged: it may be a
// secret the user supplied during a pause.
func (m *Manager) Fill(ctx context.Context, selector, value string) (err error) {
	const op = "Fill"
	logger := m.logger.With(zap.String(logg.Operation, op), zap.String(logg.Selector, selector))

	_, step := tracing.StartSpan(ctx, m.tracer, logger, op, attribute.String("selector", selector))
	defer func() {
		step.End(err)
	}()

	if err = m.activePage(op); err != nil {
		return err
	}

	if _, err = m.page.WaitForSelector(selector, playwright.PageWaitForSelectorOptions{
		Timeout: playwright.Float(fillTimeout),
		State:   playwright.WaitForSelectorStateVisible,
	}); err == nil {
		err = m.page.Fill(selector, value, playwright.PageFillOptions{Timeout: playwright.Float(fillTimeout)})
	}

	if err != nil {
		logger.Info("Retrying fill with force")

		err = m.page.Fill(selector, value, playwright.PageFillOptions{
			Timeout: playwright.Float(fillTimeout),
			Force:   playwright.Bool(true),
		})
	}

	if err != nil {
		return apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason:   "fill_failed",
			apperr.MetaStage:    apperr.StageInteraction,
			apperr.MetaSelector: selector,
		})
	}

	time.Sleep(settleDelay)

	return nil
}

func (m *Manager) Press(ctx context.Context, key string) (err error) {
	const op = "Press"
	logger := m.logger.With(zap.String(logg.Operation, op))

	_, step := tracing.StartSpan(ctx, m.tracer, logger, op, attribute.String("key", key))
	defer func() {
		step.End(err)
	}()

	if err = m.activePage(op); err != nil {
		return err
	}

	if err = m.page.Keyboard().Press(key); err != nil {
		return apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason: "press_failed",
			apperr.MetaStage:  apperr.StageInteraction,
		})
	}

	if key == "Enter" {
		time.Sleep(time.Second)
	} else {
		time.Sleep(settleDelay)
	}

	return nil
}

func (m *Manager) Scroll(ctx context.Context, direction string, amount int) (err error) {
	const op = "Scroll"
	logger := m.logger.With(zap.String(logg.Operation, op))

	_, step := tracing.StartSpan(ctx, m.tracer, logger, op,
		attribute.String("direction", direction),
		attribute.Int("amount", amount))
	defer func() {
		step.End(err)
	}()

	if err = m.activePage(op); err != nil {
		return err
	}

	script, err := scrollScript(direction, amount)
	if err != nil {
		return apperr.InvalidReqError(op, "direction", err)
	}

	if _, err = m.page.Evaluate(script); err != nil {
		return apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason: "scroll_failed",
			apperr.MetaStage:  apperr.StageInteraction,
		})
	}

	time.Sleep(settleDelay)

	return nil
}

func (m *Manager) Screenshot(ctx context.Context) (data []byte, err error) {
	const op = "Screenshot"
	logger := m.logger.With(zap.String(logg.Operation, op))

	_, step := tracing.StartSpan(ctx, m.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	if err = m.activePage(op); err != nil {
		return nil, err
	}

	data, err = m.page.Screenshot(playwright.PageScreenshotOptions{
		Type:    playwright.ScreenshotTypeJpeg,
		Quality: playwright.Int(60),
	})
	if err != nil {
		return nil, apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "screenshot_failed",
			apperr.MetaStage:  apperr.StageScreenshot,
		})
	}

	return data, nil
}

func (m *Manager) GetPageState(ctx context.Context) (state *entity.PageState, err error) {
	const op = "GetPageState"
	logger := m.logger.With(zap.String(logg.Operation, op))

	_, step := tracing.StartSpan(ctx, m.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	if err = m.activePage(op); err != nil {
		return nil, err
	}

	title, _ := m.page.Title()

	state = &entity.PageState{
		URL:       m.page.URL(),
		Title:     title,
		Elements:  []entity.Element{},
		Timestamp: time.Now(),
	}

	result, evalErr := m.page.Evaluate(elementsScript)
	if evalErr != nil {
		logger.Warn("Failed to collect elements", zap.Error(evalErr))

		return state, nil
	}

	if raw, ok := result.([]any); ok {
		state.Elements = decodeElements(raw)
	}

	step.SetAttributes(attribute.Int("elements", len(state.Elements)))

	return state, nil
}

func (m *Manager) CurrentURL(_ context.Context) (string, error) {
	const op = "CurrentURL"

	if err := m.activePage(op); err != nil {
		return "", err
	}

	return m.page.URL(), nil
}

func (m *Manager) PageHTML(_ context.Context) (string, error) {
	const op = "PageHTML"

	if err := m.activePage(op); err != nil {
		return "", err
	}

	html, err := m.page.Content()
	if err != nil {
		return "", apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "content_failed",
			apperr.MetaStage:  apperr.StagePageState,
		})
	}

	return html, nil
}

func (m *Manager) IsReady() bool {
	return m.ready
}
