package browser

import (
	"browser-pause-agent/internal/config"
	"browser-pause-agent/internal/entity"
	"browser-pause-agent/pkg/apperr"
	"browser-pause-agent/pkg/logg"
	"browser-pause-agent/pkg/tracing"
	"context"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	cdpManagerName = "CDPManager"
	cdpTracer      = "browser.cdp"
	launchTimeout  = 30 * time.Second
)

// namedKeys maps key names the model uses to chromedp key sequences.
var namedKeys = map[string]string{
	"Enter":      kb.Enter,
	"Tab":        kb.Tab,
	"Escape":     kb.Escape,
	"Backspace":  kb.Backspace,
	"Delete":     kb.Delete,
	"ArrowUp":    kb.ArrowUp,
	"ArrowDown":  kb.ArrowDown,
	"ArrowLeft":  kb.ArrowLeft,
	"ArrowRight": kb.ArrowRight,
	"PageDown":   kb.PageDown,
	"PageUp":     kb.PageUp,
}

// CDPManager drives a local Chrome over the DevTools protocol without the
// playwright driver download.
type CDPManager struct {
	config *config.Config
	logger *zap.Logger
	tracer trace.Tracer

	allocCancel context.CancelFunc
	tabCtx      context.Context
	tabCancel   context.CancelFunc
	ready       bool
}

func NewCDPManager(conf *config.Config, logger *zap.Logger) *CDPManager {
	return &CDPManager{
		config: conf,
		logger: logger.With(zap.String(logg.Layer, cdpManagerName)),
		tracer: otel.Tracer(cdpTracer),
	}
}

func (m *CDPManager) allocatorOptions() []chromedp.ExecAllocatorOption {
	// Later flags override the defaults, enable-automation included.
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("headless", m.config.BrowserConfig.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(userAgent),
		chromedp.WindowSize(1280, 720),
	)

	if dir := m.config.BrowserConfig.UserDataDir; dir != "" {
		opts = append(opts, chromedp.UserDataDir(dir))
	}

	return opts
}

func (m *CDPManager) Launch(ctx context.Context) (err error) {
	const op = "Launch"
	logger := m.logger.With(zap.String(logg.Operation, op))

	_, step := tracing.StartSpan(ctx, m.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	logger.Info("Launching Chrome over CDP...")

	// The allocator outlives ctx: the browser stays up until Close.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), m.allocatorOptions()...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(m.logger.Sugar().Debugf))

	// The first Run on tabCtx starts the browser. It must not use a derived
	// timeout context, which would close the tab when cancelled.
	started := make(chan error, 1)
	go func() {
		started <- chromedp.Run(tabCtx, chromedp.Navigate("about:blank"))
	}()

	select {
	case err = <-started:
	case <-time.After(launchTimeout):
		err = context.DeadlineExceeded
	case <-ctx.Done():
		err = ctx.Err()
	}

	if err != nil {
		tabCancel()
		allocCancel()

		return wrapRunErr(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "chrome_start_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}

	m.allocCancel, m.tabCtx, m.tabCancel = allocCancel, tabCtx, tabCancel
	m.ready = true
	logger.Info("Browser launched successfully")

	return nil
}

func (m *CDPManager) Close(ctx context.Context) (err error) {
	const op = "Close"
	logger := m.logger.With(zap.String(logg.Operation, op))

	_, step := tracing.StartSpan(ctx, m.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	m.ready = false

	if m.tabCancel != nil {
		m.tabCancel()
	}

	if m.allocCancel != nil {
		m.allocCancel()
	}

	logger.Info("Browser closed")

	return nil
}

// run executes actions on the tab, bounded by the browser timeout and by ctx.
func (m *CDPManager) run(ctx context.Context, op string, actions ...chromedp.Action) error {
	if !m.ready {
		return apperr.WrapErrorWithReason(op, apperr.CodeBrowserNotReady, "browser_not_ready")
	}

	runCtx, cancel := context.WithTimeout(m.tabCtx, time.Duration(m.config.BrowserConfig.Timeout)*time.Millisecond)
	defer cancel()

	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

func (m *CDPManager) Navigate(ctx context.Context, url string) (err error) {
	const op = "Navigate"
	logger := m.logger.With(zap.String(logg.Operation, op), zap.String(logg.URL, url))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op, attribute.String("url", url))
	defer func() {
		step.End(err)
	}()

	if err = m.run(ctx, op, chromedp.Navigate(url), chromedp.Sleep(settleDelay)); err != nil {
		return wrapRunErr(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason: "navigate_failed",
			apperr.MetaStage:  apperr.StageNavigation,
			apperr.MetaURL:    url,
		})
	}

	return nil
}

func (m *CDPManager) Click(ctx context.Context, selector string) (err error) {
	const op = "Click"
	logger := m.logger.With(zap.String(logg.Operation, op), zap.String(logg.Selector, selector))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op, attribute.String("selector", selector))
	defer func() {
		step.End(err)
	}()

	err = m.run(ctx, op,
		chromedp.ScrollIntoView(selector, chromedp.ByQuery),
		chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible),
		chromedp.Sleep(settleDelay),
	)
	if err != nil {
		return wrapRunErr(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason:   "click_failed",
			apperr.MetaStage:    apperr.StageInteraction,
			apperr.MetaSelector: selector,
		})
	}

	return nil
}

func (m *CDPManager) ClickAtCoordinates(ctx context.Context, x, y float64) (err error) {
	const op = "ClickAtCoordinates"
	logger := m.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op,
		attribute.Float64("x", x),
		attribute.Float64("y", y))
	defer func() {
		step.End(err)
	}()

	err = m.run(ctx, op, chromedp.ActionFunc(func(ctx context.Context) error {
		for _, typ := range []input.MouseType{input.MousePressed, input.MouseReleased} {
			if err := input.DispatchMouseEvent(typ, x, y).
				WithButton(input.Left).
				WithClickCount(1).
				Do(ctx); err != nil {
				return err
			}
		}

		return nil
	}), chromedp.Sleep(settleDelay))
	if err != nil {
		return wrapRunErr(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason: "click_coordinates_failed",
			apperr.MetaStage:  apperr.StageInteraction,
		})
	}

	return nil
}

func (m *CDPManager) Fill(ctx context.Context, selector, value string) (err error) {
	const op = "Fill"
	logger := m.logger.With(zap.String(logg.Operation, op), zap.String(logg.Selector, selector))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op, attribute.String("selector", selector))
	defer func() {
		step.End(err)
	}()

	err = m.run(ctx, op,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Clear(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, value, chromedp.ByQuery),
	)
	if err != nil {
		return wrapRunErr(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason:   "fill_failed",
			apperr.MetaStage:    apperr.StageInteraction,
			apperr.MetaSelector: selector,
		})
	}

	return nil
}

func (m *CDPManager) Press(ctx context.Context, key string) (err error) {
	const op = "Press"
	logger := m.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op, attribute.String("key", key))
	defer func() {
		step.End(err)
	}()

	delay := settleDelay
	if key == "Enter" {
		delay = time.Second
	}

	if err = m.run(ctx, op, chromedp.KeyEvent(keySequence(key)), chromedp.Sleep(delay)); err != nil {
		return wrapRunErr(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason: "press_failed",
			apperr.MetaStage:  apperr.StageInteraction,
		})
	}

	return nil
}

func keySequence(key string) string {
	if seq, ok := namedKeys[key]; ok {
		return seq
	}

	return key
}

func (m *CDPManager) Scroll(ctx context.Context, direction string, amount int) (err error) {
	const op = "Scroll"
	logger := m.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op,
		attribute.String("direction", direction),
		attribute.Int("amount", amount))
	defer func() {
		step.End(err)
	}()

	script, err := scrollScript(direction, amount)
	if err != nil {
		return apperr.InvalidReqError(op, "direction", err)
	}

	var ignored any

	if err = m.run(ctx, op, chromedp.Evaluate(script, &ignored), chromedp.Sleep(settleDelay)); err != nil {
		return wrapRunErr(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason: "scroll_failed",
			apperr.MetaStage:  apperr.StageInteraction,
		})
	}

	return nil
}

func (m *CDPManager) Screenshot(ctx context.Context) (data []byte, err error) {
	const op = "Screenshot"
	logger := m.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	err = m.run(ctx, op, chromedp.ActionFunc(func(ctx context.Context) error {
		var shotErr error

		data, shotErr = page.CaptureScreenshot().
			WithFormat(page.CaptureScreenshotFormatJpeg).
			WithQuality(60).
			Do(ctx)

		return shotErr
	}))
	if err != nil {
		return nil, wrapRunErr(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "screenshot_failed",
			apperr.MetaStage:  apperr.StageScreenshot,
		})
	}

	return data, nil
}

func (m *CDPManager) GetPageState(ctx context.Context) (state *entity.PageState, err error) {
	const op = "GetPageState"
	logger := m.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	state = &entity.PageState{Elements: []entity.Element{}, Timestamp: time.Now()}

	if err = m.run(ctx, op, chromedp.Location(&state.URL), chromedp.Title(&state.Title)); err != nil {
		return nil, wrapRunErr(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "location_failed",
			apperr.MetaStage:  apperr.StagePageState,
		})
	}

	var raw []any

	if evalErr := m.run(ctx, op, chromedp.Evaluate(elementsScript, &raw)); evalErr != nil {
		logger.Warn("Failed to collect elements", zap.Error(evalErr))

		return state, nil
	}

	state.Elements = decodeElements(raw)
	step.SetAttributes(attribute.Int("elements", len(state.Elements)))

	return state, nil
}

func (m *CDPManager) CurrentURL(ctx context.Context) (string, error) {
	const op = "CurrentURL"

	var url string

	if err := m.run(ctx, op, chromedp.Location(&url)); err != nil {
		return "", wrapRunErr(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "location_failed",
			apperr.MetaStage:  apperr.StagePageState,
		})
	}

	return url, nil
}

func (m *CDPManager) PageHTML(ctx context.Context) (string, error) {
	const op = "PageHTML"

	var html string

	if err := m.run(ctx, op, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", wrapRunErr(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "content_failed",
			apperr.MetaStage:  apperr.StagePageState,
		})
	}

	return html, nil
}

func (m *CDPManager) IsReady() bool {
	return m.ready
}

// wrapRunErr keeps the browser_not_ready code from run visible to callers.
func wrapRunErr(op, code string, err error, metadata map[string]any) error {
	if apperr.CodeOf(err) == apperr.CodeBrowserNotReady {
		return err
	}

	return apperr.Wrap(op, code, err, metadata)
}
