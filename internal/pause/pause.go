// Package pause suspends an automation loop at a checkpoint, collects a value
// from a human and hands it back to the loop.
//
// A Hook holds an ordered list of rules. Check evaluates them against the
// current page; the first rule that fires pauses the loop until the configured
// InputHandler returns. Only one pause is in flight at any time.
package pause

import (
	"browser-pause-agent/internal/metrics"
	"browser-pause-agent/pkg/apperr"
	"browser-pause-agent/pkg/logg"
	"browser-pause-agent/pkg/tracing"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	hookName  = "PauseHook"
	hookTrace = "pause.hook"

	DefaultMessage = "User input required"
	InputPrompt    = "Enter your input: "

	bannerWidth = 50
)

var (
	ErrUnknownInputMethod = errors.New("unknown input method")
	ErrNotPaused          = errors.New("not paused")
	ErrAlreadyPaused      = errors.New("another pause is waiting for input")
	ErrInputClosed        = errors.New("input closed")
)

// Page is the read-only view of automation state that conditions inspect.
type Page interface {
	CurrentURL(ctx context.Context) (string, error)
	PageHTML(ctx context.Context) (string, error)
}

// Condition reports whether the loop should pause on the given page.
type Condition func(ctx context.Context, page Page) (bool, error)

type Rule struct {
	Name      string
	Condition Condition
	Message   string
}

// Resume describes a finished pause.
type Resume struct {
	ID      uuid.UUID
	Rule    string
	Message string
	URL     string
	Input   string
	Waited  time.Duration
}

type Hook struct {
	rulesMu sync.RWMutex
	rules   []Rule
	// firedOn is the URL of the last successful checkpoint pause.
	firedOn string

	// pauseMu serializes pauses; paused mirrors whether one is in flight.
	pauseMu sync.Mutex
	paused  atomic.Bool

	inputMu  sync.Mutex
	input    string
	hasInput bool

	handler InputHandler
	out     io.Writer
	logger  *zap.Logger
	tracer  trace.Tracer
	history Recorder
	metrics *metrics.Metrics
	now     func() time.Time
}

type Option func(*Hook)

func WithOutput(w io.Writer) Option {
	return func(h *Hook) {
		h.out = w
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(h *Hook) {
		h.logger = logger.With(zap.String(logg.Layer, hookName))
	}
}

func WithHistory(r Recorder) Option {
	return func(h *Hook) {
		h.history = r
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Hook) {
		h.metrics = m
	}
}

func withClock(now func() time.Time) Option {
	return func(h *Hook) {
		h.now = now
	}
}

// NewHook builds a hook. A nil handler reads from stdin.
func NewHook(handler InputHandler, opts ...Option) *Hook {
	h := &Hook{
		handler:   handler,
		out:       os.Stdout,
		logger:    zap.NewNop(),
		tracer:    otel.Tracer(hookTrace),
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(h)
	}

	if h.handler == nil {
		h.handler = NewConsoleInput(NewLineReader(os.Stdin), h.out)
	}

	return h
}

// AddCondition appends a rule. Rules are evaluated in registration order.
func (h *Hook) AddCondition(name string, cond Condition, message string) {
	if message == "" {
		message = DefaultMessage
	}

	h.rulesMu.Lock()
	defer h.rulesMu.Unlock()

	h.rules = append(h.rules, Rule{Name: name, Condition: cond, Message: message})
}

func (h *Hook) Rules() []Rule {
	h.rulesMu.RLock()
	defer h.rulesMu.RUnlock()

	return append([]Rule(nil), h.rules...)
}

// Paused reports whether the hook is waiting for the human.
func (h *Hook) Paused() bool {
	return h.paused.Load()
}

// TakeInput returns the last captured input once, then forgets it.
func (h *Hook) TakeInput() (string, bool) {
	h.inputMu.Lock()
	defer h.inputMu.Unlock()

	if !h.hasInput {
		return "", false
	}

	value := h.input
	h.input, h.hasInput = "", false

	return value, true
}

// Check is the checkpoint. It returns nil when no rule fired.
func (h *Hook) Check(ctx context.Context, page Page) (resume *Resume, err error) {
	const op = "Check"
	logger := h.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, h.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	snap := newSnapshot(page)

	url, err := snap.CurrentURL(ctx)
	if err != nil {
		logger.Warn("Failed to read current URL", zap.Error(err))
		url = ""
	}

	if h.suppressed(url) {
		logger.Debug("Already paused on this page", zap.String(logg.URL, url))

		return nil, nil
	}

	for _, rule := range h.Rules() {

		fired, condErr := rule.Condition(ctx, snap)
		if condErr != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}

			logger.Warn("Pause condition failed", zap.String(logg.Rule, rule.Name), zap.Error(condErr))

			continue
		}

		if !fired {
			continue
		}

		step.AddEvent("rule fired", attribute.String("rule", rule.Name))

		resume, err = h.pause(ctx, rule.Name, rule.Message, url)
		if err != nil {
			return nil, err
		}

		h.markFired(url)

		return resume, nil
	}

	return nil, nil
}

// Request pauses unconditionally. page may be nil.
func (h *Hook) Request(ctx context.Context, page Page, name, message string) (*Resume, error) {
	if message == "" {
		message = DefaultMessage
	}

	url := ""

	if page != nil {
		if u, err := page.CurrentURL(ctx); err == nil {
			url = u
		}
	}

	return h.pause(ctx, name, message, url)
}

func (h *Hook) pause(ctx context.Context, rule, message, url string) (resume *Resume, err error) {
	const op = "pause"

	h.pauseMu.Lock()
	defer h.pauseMu.Unlock()

	id := uuid.New()
	logger := h.logger.With(
		zap.String(logg.Operation, op),
		zap.String(logg.Rule, rule),
		zap.String(logg.PauseID, id.String()),
		zap.String(logg.URL, url),
	)

	ctx, step := tracing.StartSpan(ctx, h.tracer, logger, op,
		attribute.String("rule", rule),
		attribute.String("url", url))
	defer func() {
		step.End(err)
	}()

	h.paused.Store(true)
	defer h.paused.Store(false)

	logger.Info("Execution paused")
	h.printBanner(message)

	started := h.now()

	value, err := h.handler.GetInput(ctx, InputRequest{
		ID:      id,
		Rule:    rule,
		Message: message,
		URL:     url,
		Prompt:  InputPrompt,
	})

	waited := h.now().Sub(started)
	h.metrics.ObservePause(rule, waited, err)

	if err != nil {
		logger.Warn("Pause ended without input", zap.Error(err))

		return nil, apperr.Wrap(op, apperr.CodePauseInputFailed, err, map[string]any{
			apperr.MetaStage: apperr.StagePause,
			apperr.MetaRule:  rule,
		})
	}

	h.inputMu.Lock()
	h.input, h.hasInput = value, true
	h.inputMu.Unlock()

	if h.history != nil {
		event := Event{
			ID:            id,
			URL:           url,
			Reason:        message,
			Rule:          rule,
			InputProvided: value != "",
			Timestamp:     started,
			Waited:        waited,
		}

		if recErr := h.history.Record(ctx, event); recErr != nil {
			logger.Warn("Failed to record pause", zap.Error(recErr))
		}
	}

	fmt.Fprint(h.out, "Continuing execution...\n\n")
	logger.Info("Execution resumed", zap.Duration("waited", waited), zap.Bool("input_provided", value != ""))

	return &Resume{
		ID:      id,
		Rule:    rule,
		Message: message,
		URL:     url,
		Input:   value,
		Waited:  waited,
	}, nil
}

func (h *Hook) printBanner(message string) {
	line := strings.Repeat("=", bannerWidth)
	fmt.Fprintf(h.out, "\n%s\nEXECUTION PAUSED: %s\n%s\n", line, message, line)
}

// suppressed reports whether a checkpoint already paused on url. Navigating
// away re-arms every rule.
func (h *Hook) suppressed(url string) bool {
	h.rulesMu.Lock()
	defer h.rulesMu.Unlock()

	if h.firedOn == "" {
		return false
	}

	if url != "" && h.firedOn == url {
		return true
	}

	h.firedOn = ""

	return false
}

func (h *Hook) markFired(url string) {
	h.rulesMu.Lock()
	defer h.rulesMu.Unlock()

	h.firedOn = url
}

// Reset re-arms every rule and drops input nobody took. Call it before a new task.
func (h *Hook) Reset() {
	h.rulesMu.Lock()
	h.firedOn = ""
	h.rulesMu.Unlock()

	h.inputMu.Lock()
	h.input, h.hasInput = "", false
	h.inputMu.Unlock()
}

// snapshot memoizes the page reads of one checkpoint so that several rules
// do not fetch the same HTML again.
type snapshot struct {
	page Page

	urlOnce sync.Once
	url     string
	urlErr  error

	htmlOnce sync.Once
	html     string
	htmlErr  error
}

func newSnapshot(page Page) *snapshot {
	return &snapshot{page: page}
}

func (s *snapshot) CurrentURL(ctx context.Context) (string, error) {
	s.urlOnce.Do(func() {
		s.url, s.urlErr = s.page.CurrentURL(ctx)
	})

	return s.url, s.urlErr
}

func (s *snapshot) PageHTML(ctx context.Context) (string, error) {
	s.htmlOnce.Do(func() {
		s.html, s.htmlErr = s.page.PageHTML(ctx)
	})

	return s.html, s.htmlErr
}
