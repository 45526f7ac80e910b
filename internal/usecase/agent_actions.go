package usecase

import (
	"browser-pause-agent/internal/entity"
	"browser-pause-agent/pkg/apperr"
	"browser-pause-agent/pkg/logg"
	"browser-pause-agent/pkg/tracing"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	defaultScrollAmount = 500
	maxClickable        = 40
	maxOtherContent     = 10
	maxElementText      = 200
	maxSelectorLen      = 100
)

// shotPolicy says when observe attaches a screenshot.
type shotPolicy int

const (
	shotNever shotPolicy = iota
	shotOnURLChange
	shotAlways
)

func (s *AgentService) executeAction(ctx context.Context, task *entity.Task, action *entity.BrowserAction) (result string, screenshot []byte, err error) {
	const op = "executeAction"
	logger := s.logger.With(zap.String(logg.Operation, op), zap.String(logg.Action, string(action.Type)))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op,
		attribute.String("action_type", string(action.Type)))
	defer func() {
		step.End(err)
	}()

	switch action.Type {
	case entity.ActionTypeNavigate:
		return s.actionNavigate(ctx, action)
	case entity.ActionTypeClick:
		return s.actionClick(ctx, action)
	case entity.ActionTypeFill:
		return s.actionFill(ctx, task, action)
	case entity.ActionTypeWait:
		return s.actionWait(ctx, action)
	case entity.ActionTypeScroll:
		return s.actionScroll(ctx, action)
	case entity.ActionTypeClickCoordinates:
		return s.actionClickCoordinates(ctx, action)
	case entity.ActionTypePress:
		return s.actionPress(ctx, action)
	default:
		return "", nil, apperr.WrapErrorWithReason(op, apperr.CodeInvalidArgument, "unknown_action_type")
	}
}

func (s *AgentService) actionNavigate(ctx context.Context, action *entity.BrowserAction) (string, []byte, error) {
	const op = "actionNavigate"

	if action.URL == "" {
		return "", nil, apperr.InvalidReqError(op, "url", errors.New("url cannot be empty"))
	}

	if err := s.browser.Navigate(ctx, action.URL); err != nil {
		return "", nil, apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason: "navigation_failed",
			apperr.MetaStage:  apperr.StageNavigation,
			apperr.MetaURL:    action.URL,
		})
	}

	return s.observe(ctx, op, shotAlways)
}

func (s *AgentService) actionClick(ctx context.Context, action *entity.BrowserAction) (string, []byte, error) {
	const op = "actionClick"

	if action.Selector == "" {
		return "", nil, apperr.InvalidReqError(op, "selector", errors.New("selector cannot be empty"))
	}

	if err := s.browser.Click(ctx, action.Selector); err != nil {
		return "", nil, apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason:   "click_failed",
			apperr.MetaStage:    apperr.StageInteraction,
			apperr.MetaSelector: action.Selector,
		})
	}

	return s.observe(ctx, op, shotOnURLChange)
}

// actionFill substitutes collected inputs into the value right before typing.
// The expanded value never leaves this function.
func (s *AgentService) actionFill(ctx context.Context, task *entity.Task, action *entity.BrowserAction) (string, []byte, error) {
	const op = "actionFill"
	logger := s.logger.With(zap.String(logg.Operation, op), zap.String(logg.Selector, action.Selector))

	if action.Selector == "" {
		return "", nil, apperr.InvalidReqError(op, "selector", errors.New("selector cannot be empty"))
	}

	if err := s.browser.Fill(ctx, action.Selector, task.ExpandInputs(action.Value)); err != nil {
		return "", nil, apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason:   "fill_failed",
			apperr.MetaStage:    apperr.StageInteraction,
			apperr.MetaSelector: action.Selector,
		})
	}

	selector := strings.ToLower(action.Selector)
	if !strings.Contains(selector, "search") && !strings.Contains(selector, "query") {
		return "Field filled.", nil, nil
	}

	logger.Info("Auto-pressing Enter for search field")

	if err := s.browser.Press(ctx, "Enter"); err != nil {
		logger.Warn("Failed to auto-press Enter", zap.Error(err))

		return "Field filled (Enter press failed).", nil, nil
	}

	result, shot, err := s.observe(ctx, op, shotOnURLChange)
	if err != nil {
		return "Field filled and Enter pressed.", nil, nil
	}

	return result, shot, nil
}

func (s *AgentService) actionWait(ctx context.Context, action *entity.BrowserAction) (string, []byte, error) {
	s.wait(ctx, time.Duration(action.WaitFor)*time.Millisecond)

	if err := ctx.Err(); err != nil {
		return "", nil, err
	}

	return "Wait completed", nil, nil
}

func scrollParams(action *entity.BrowserAction) (string, int) {
	direction, amount := "down", defaultScrollAmount

	if action.Value != "" {
		direction = action.Value
	}

	if action.WaitFor > 0 {
		amount = action.WaitFor
	}

	return direction, amount
}

func (s *AgentService) actionScroll(ctx context.Context, action *entity.BrowserAction) (string, []byte, error) {
	const op = "actionScroll"

	direction, amount := scrollParams(action)

	if err := s.browser.Scroll(ctx, direction, amount); err != nil {
		return "", nil, apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason: "scroll_failed",
			apperr.MetaStage:  apperr.StageInteraction,
		})
	}

	return s.observe(ctx, op, shotNever)
}

func (s *AgentService) actionClickCoordinates(ctx context.Context, action *entity.BrowserAction) (string, []byte, error) {
	const op = "actionClickCoordinates"

	if err := s.browser.ClickAtCoordinates(ctx, action.X, action.Y); err != nil {
		return "", nil, apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason: "click_coordinates_failed",
			apperr.MetaStage:  apperr.StageInteraction,
		})
	}

	s.wait(ctx, s.navDelay)

	return s.observe(ctx, op, shotAlways)
}

func (s *AgentService) actionPress(ctx context.Context, action *entity.BrowserAction) (string, []byte, error) {
	const op = "actionPress"

	if action.Value == "" {
		return "", nil, apperr.InvalidReqError(op, "key", errors.New("key cannot be empty"))
	}

	if err := s.browser.Press(ctx, action.Value); err != nil {
		return "", nil, apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason: "press_failed",
			apperr.MetaStage:  apperr.StageInteraction,
		})
	}

	if action.Value != "Enter" {
		return fmt.Sprintf("Pressed key: %s", action.Value), nil, nil
	}

	return s.observe(ctx, op, shotOnURLChange)
}

// observe reads the page after an action and renders it for the model.
func (s *AgentService) observe(ctx context.Context, op string, policy shotPolicy) (string, []byte, error) {
	state, err := s.browser.GetPageState(ctx)
	if err != nil {
		return "", nil, apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "page_state_failed",
			apperr.MetaStage:  apperr.StagePageState,
		})
	}

	changed := state.URL != s.lastURL
	s.lastURL = state.URL

	var shot []byte
	if policy == shotAlways || (policy == shotOnURLChange && changed) {
		shot = s.takeScreenshot(ctx)
	}

	return optimizePageState(state), shot, nil
}

func (s *AgentService) takeScreenshot(ctx context.Context) []byte {
	if !s.config.BrowserConfig.UseScreenshots || !s.browser.IsReady() {
		return nil
	}

	data, err := s.browser.Screenshot(ctx)
	if err != nil {
		s.logger.Warn("Failed to take screenshot", zap.Error(err))

		return nil
	}

	return data
}

func truncate(text string, n int) string {
	if len(text) <= n {
		return text
	}

	return text[:n] + "..."
}

func optimizePageState(state *entity.PageState) string {
	var b strings.Builder

	fmt.Fprintf(&b, "URL: %s\n", state.URL)
	fmt.Fprintf(&b, "Title: %s\n\n", state.Title)

	if len(state.Elements) == 0 {
		return b.String()
	}

	var clickable, other []entity.Element

	for _, elem := range state.Elements {
		switch {
		case elem.Clickable:
			clickable = append(clickable, elem)
		case len(elem.Text) >= 3:
			other = append(other, elem)
		}
	}

	b.WriteString("Clickable elements:\n")

	for i, elem := range clickable {
		if i >= maxClickable {
			break
		}

		fmt.Fprintf(&b, "%d. [%s] %s | selector: %s | coords: (%.0f,%.0f) size: %.0fx%.0f\n",
			i+1, elem.Tag, truncate(elem.Text, maxElementText), truncate(elem.Selector, maxSelectorLen),
			elem.BoundingBox.X, elem.BoundingBox.Y, elem.BoundingBox.Width, elem.BoundingBox.Height)
	}

	if len(other) > 0 {
		b.WriteString("\nOther content:\n")

		for i, elem := range other {
			if i >= maxOtherContent {
				break
			}

			fmt.Fprintf(&b, "%d. [%s] %s\n", i+1, elem.Tag, truncate(elem.Text, maxElementText))
		}
	}

	return b.String()
}

func createMessageWithScreenshot(role, text string, screenshot []byte) entity.AIMessage {
	if len(screenshot) == 0 {
		return entity.AIMessage{
			Role:    role,
			Content: text,
		}
	}

	return entity.AIMessage{
		Role: role,
		Content: []entity.MessageContent{
			{
				Type: "image",
				Source: &entity.ImageSource{
					Type:      "base64",
					MediaType: "image/jpeg",
					Data:      base64.StdEncoding.EncodeToString(screenshot),
				},
			},
			{
				Type: "text",
				Text: text,
			},
		},
	}
}
