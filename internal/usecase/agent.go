package usecase

import (
	"browser-pause-agent/internal/config"
	"browser-pause-agent/internal/entity"
	"browser-pause-agent/internal/metrics"
	"browser-pause-agent/internal/pause"
	"browser-pause-agent/internal/ports"
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
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	agentServiceName     = "AgentService"
	agentTracer          = "usecase.agent"
	maxConsecutiveErrors = 3

	requestInputRule  = "request_user_input"
	confirmActionRule = "confirm_action"
)

type AgentService struct {
	config  *config.Config
	logger  *zap.Logger
	browser ports.BrowserManager
	ai      ports.AIClient
	hook    *pause.Hook
	metrics *metrics.Metrics
	tracer  trace.Tracer
	out     io.Writer

	mu       sync.Mutex
	stopChan chan struct{}
	running  bool

	lastURL    string
	lastAction *entity.BrowserAction

	maxIterations int
	pace          time.Duration
	retryDelay    time.Duration
	navDelay      time.Duration
}

type AgentServiceParams struct {
	fx.In

	Config  *config.Config
	Logger  *zap.Logger
	Browser ports.BrowserManager
	AI      ports.AIClient
	Hook    *pause.Hook
	Metrics *metrics.Metrics `optional:"true"`
	Output  io.Writer        `name:"agent_output" optional:"true"`
}

func NewAgentService(params AgentServiceParams) *AgentService {
	out := params.Output
	if out == nil {
		out = os.Stdout
	}

	return &AgentService{
		config:        params.Config,
		logger:        params.Logger.With(zap.String(logg.Layer, agentServiceName)),
		browser:       params.Browser,
		ai:            params.AI,
		hook:          params.Hook,
		metrics:       params.Metrics,
		tracer:        otel.Tracer(agentTracer),
		out:           out,
		maxIterations: params.Config.AppConfig.MaxIterations,
		pace:          500 * time.Millisecond,
		retryDelay:    2 * time.Second,
		navDelay:      800 * time.Millisecond,
	}
}

func (s *AgentService) Execute(ctx context.Context, taskDescription string) (task *entity.Task, err error) {
	const op = "Execute"
	logger := s.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op,
		attribute.String("task_description", taskDescription))
	defer func() {
		step.End(err)

		if task != nil {
			s.metrics.ObserveTask(string(task.Status))
		}
	}()

	if strings.TrimSpace(taskDescription) == "" {
		return nil, apperr.InvalidReqError(op, "task_description", errors.New("task description cannot be empty"))
	}

	task = &entity.Task{
		ID:          uuid.New(),
		Description: taskDescription,
		Status:      entity.TaskStatusInProgress,
		CreatedAt:   time.Now(),
		Steps:       make([]entity.Step, 0),
	}

	logger = step.Logger().With(zap.String(logg.TaskID, task.ID.String()))
	step.AddEvent("task created")

	if !s.browser.IsReady() {
		return fail(task, "browser is not ready"),
			apperr.WrapErrorWithReason(op, apperr.CodeBrowserNotReady, "browser_not_ready")
	}

	messages := []entity.AIMessage{
		{
			Role:    "user",
			Content: s.buildSystemPrompt(taskDescription),
		},
	}

	stop := s.start()
	defer s.finish()

	s.lastAction, s.lastURL = nil, ""
	s.hook.Reset()

	iteration := 0
	consecutiveErrors := 0

	for iteration < s.maxIterations {
		select {
		case <-ctx.Done():
			fmt.Fprintln(s.out, "\n\n⚠️  Task cancelled")

			return fail(task, "context cancelled"), apperr.Wrap(op, apperr.CodeInternal, ctx.Err(), map[string]any{
				apperr.MetaReason: "context_cancelled",
			})
		case <-stop:
			fmt.Fprintln(s.out, "\n\n⚠️  Task stopped by user")

			return fail(task, "stopped by user"), apperr.WrapErrorWithReason(op, apperr.CodeCancelledByUser, "stopped_by_user")
		default:
		}

		iteration++
		fmt.Fprintf(s.out, "\n🔄 Iteration %d: ", iteration)

		if err := s.checkpoint(ctx, task, &messages); err != nil {
			if ctx.Err() != nil {
				return fail(task, "context cancelled"), err
			}

			return fail(task, fmt.Sprintf("pause failed: %v", err)), err
		}

		step.AddEvent("sending message to AI", attribute.Int("iteration", iteration))

		response, err := s.ai.SendMessage(ctx, messages)
		if err != nil {
			logger.Error("AI request failed", zap.Error(err))
			consecutiveErrors++

			if consecutiveErrors >= maxConsecutiveErrors {
				return fail(task, fmt.Sprintf("too many AI errors: %v", err)), apperr.Wrap(op, apperr.CodeAIError, err, map[string]any{
					apperr.MetaReason: "too_many_ai_errors",
					apperr.MetaStage:  apperr.StageAI,
				})
			}

			s.wait(ctx, s.retryDelay)

			continue
		}

		consecutiveErrors = 0

		if response.Thought != "" {
			fmt.Fprintf(s.out, "%s\n", response.Thought)

			messages = append(messages, entity.AIMessage{
				Role:    "assistant",
				Content: response.Thought,
			})
		}

		if response.Complete {
			fmt.Fprintf(s.out, "✅ Task completed: %s\n", response.Result)
			task.Status = entity.TaskStatusCompleted
			task.Result = response.Result
			completedAt := time.Now()
			task.CompletedAt = &completedAt
			step.AddEvent("task completed")

			return task, nil
		}

		if response.Action != nil {
			if err := s.handleAction(ctx, task, response.Action, &messages); err != nil {
				if ctx.Err() != nil {
					return fail(task, "context cancelled"), err
				}

				logger.Error("Action failed", zap.Error(err))
				consecutiveErrors++

				if consecutiveErrors >= maxConsecutiveErrors {
					return fail(task, fmt.Sprintf("too many consecutive action errors: %v", err)), apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
						apperr.MetaReason: "too_many_action_errors",
						apperr.MetaStage:  apperr.StageInteraction,
					})
				}
			} else {
				consecutiveErrors = 0
			}
		}

		s.wait(ctx, s.pace)
	}

	return fail(task, "max iterations reached"), apperr.WrapErrorWithReason(op, apperr.CodeMaxIterations, "max_iterations_reached")
}

// Stop interrupts a running Execute. It is a no-op when nothing runs.
func (s *AgentService) Stop() {
	const op = "Stop"

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	s.logger.Info("Stopping agent...", zap.String(logg.Operation, op))

	s.running = false
	close(s.stopChan)
}

func (s *AgentService) start() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopChan = make(chan struct{})
	s.running = true

	return s.stopChan
}

func (s *AgentService) finish() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.running = false
}

// wait sleeps for d unless ctx ends or Stop is called.
func (s *AgentService) wait(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}

	s.mu.Lock()
	stop := s.stopChan
	s.mu.Unlock()

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-stop:
	case <-timer.C:
	}
}

func fail(task *entity.Task, reason string) *entity.Task {
	task.Status = entity.TaskStatusFailed
	task.Error = reason

	return task
}

// checkpoint runs the pause rules before a step and hands any captured input
// to the task.
func (s *AgentService) checkpoint(ctx context.Context, task *entity.Task, messages *[]entity.AIMessage) (err error) {
	const op = "checkpoint"
	logger := s.logger.With(zap.String(logg.Operation, op), zap.String(logg.TaskID, task.ID.String()))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	resume, err := s.hook.Check(ctx, s.browser)
	if err != nil {
		return err
	}

	if resume == nil {
		return nil
	}

	task.Pauses++
	step.AddEvent("resumed", attribute.String("rule", resume.Rule))

	*messages = append(*messages, entity.AIMessage{
		Role:    "user",
		Content: s.absorbInput(task, resume),
	})

	return nil
}

// absorbInput moves the captured input into the task and returns the note for
// the model. The value itself is never part of the note.
func (s *AgentService) absorbInput(task *entity.Task, resume *pause.Resume) string {
	value, ok := s.hook.TakeInput()
	if !ok || value == "" {
		return fmt.Sprintf("Execution was paused (%s) and the user resumed without input. Continue the task.", resume.Message)
	}

	task.SetInput(resume.Rule, value)

	return fmt.Sprintf(
		"Execution was paused (%s) and the user supplied a value. Do not ask for it again. "+
			"To type it, use fill with the exact value %s.",
		resume.Message, entity.UserInputPlaceholder)
}

func (s *AgentService) handleAction(
	ctx context.Context,
	task *entity.Task,
	action *entity.BrowserAction,
	messages *[]entity.AIMessage,
) (err error) {
	const op = "handleAction"
	logger := s.logger.With(zap.String(logg.Operation, op), zap.String(logg.Action, string(action.Type)))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op,
		attribute.String("action_type", string(action.Type)))
	defer func() {
		step.End(err)
	}()

	taskStep := entity.Step{
		ID:          uuid.New(),
		Action:      string(action.Type),
		Description: formatActionDescription(action),
		Timestamp:   time.Now(),
	}

	fmt.Fprintf(s.out, "🎬 Action: %s - %s\n", action.Type, taskStep.Description)

	if action.Type == entity.ActionTypeRequestInput {
		return s.requestInput(ctx, task, action, taskStep, messages)
	}

	if s.isDuplicateAction(action) {
		taskStep.Error = "duplicate action detected"
		task.Steps = append(task.Steps, taskStep)

		*messages = append(*messages, entity.AIMessage{
			Role:    "user",
			Content: "This action failed on the previous attempt. Try a completely different approach.",
		})

		return apperr.WrapErrorWithReason(op, apperr.CodeDuplicateAction, "duplicate_action")
	}

	currentURL, _ := s.browser.CurrentURL(ctx)

	if shouldConfirm(action, currentURL) {
		confirmed, err := s.confirm(ctx, action)
		if err != nil {
			return err
		}

		if !confirmed {
			taskStep.Error = "action cancelled by user"
			task.Steps = append(task.Steps, taskStep)

			*messages = append(*messages, entity.AIMessage{
				Role:    "user",
				Content: "Action was cancelled by user. Try a different approach.",
			})

			return apperr.WrapErrorWithReason(op, apperr.CodeCancelledByUser, "action_cancelled")
		}
	}

	result, screenshot, err := s.executeAction(ctx, task, action)

	s.lastAction = action

	if err != nil {
		taskStep.Error = err.Error()
		task.Steps = append(task.Steps, taskStep)

		errorMsg := fmt.Sprintf("Action '%s' failed: %v.", action.Type, err)
		if action.Type == entity.ActionTypeClick {
			errorMsg += " Use click_at_coordinates(x, y) with coordinates from the element list instead."
		}

		*messages = append(*messages, entity.AIMessage{
			Role:    "user",
			Content: errorMsg,
		})

		return err
	}

	taskStep.Success = true
	task.Steps = append(task.Steps, taskStep)

	if result != "" {
		if len(screenshot) > 0 {
			fmt.Fprintln(s.out, "📸 Screenshot taken")
		}

		*messages = append(*messages, createMessageWithScreenshot("user", result, screenshot))
	}

	return nil
}

// requestInput serves the model's explicit request for a value only the user has.
func (s *AgentService) requestInput(
	ctx context.Context,
	task *entity.Task,
	action *entity.BrowserAction,
	taskStep entity.Step,
	messages *[]entity.AIMessage,
) error {
	resume, err := s.hook.Request(ctx, s.browser, requestInputRule, action.Value)
	if err != nil {
		taskStep.Error = err.Error()
		task.Steps = append(task.Steps, taskStep)

		return err
	}

	task.Pauses++
	taskStep.Success = true
	task.Steps = append(task.Steps, taskStep)

	*messages = append(*messages, entity.AIMessage{
		Role:    "user",
		Content: s.absorbInput(task, resume),
	})

	return nil
}

// confirm asks the user through the pause hook. Only yes or y approves.
func (s *AgentService) confirm(ctx context.Context, action *entity.BrowserAction) (bool, error) {
	message := fmt.Sprintf("Security confirmation required: %s %s (yes/no)", action.Type, formatActionDescription(action))

	if _, err := s.hook.Request(ctx, s.browser, confirmActionRule, message); err != nil {
		return false, err
	}

	answer, _ := s.hook.TakeInput()
	answer = strings.ToLower(strings.TrimSpace(answer))

	return answer == "yes" || answer == "y", nil
}

func (s *AgentService) isDuplicateAction(action *entity.BrowserAction) bool {
	if s.lastAction == nil || s.lastAction.Type != action.Type {
		return false
	}

	switch action.Type {
	case entity.ActionTypeNavigate:
		return s.lastAction.URL == action.URL
	case entity.ActionTypeClick:
		return s.lastAction.Selector == action.Selector
	case entity.ActionTypeFill:
		return s.lastAction.Selector == action.Selector && s.lastAction.Value == action.Value
	case entity.ActionTypeScroll:
		return s.lastAction.Value == action.Value && s.lastAction.WaitFor == action.WaitFor
	case entity.ActionTypeClickCoordinates:
		return s.lastAction.X == action.X && s.lastAction.Y == action.Y
	default:
		return false
	}
}

// shouldConfirm flags sensitive fills typed by the model itself and
// destructive clicks on payment pages. Values the user supplied through a
// pause are already approved.
func shouldConfirm(action *entity.BrowserAction, currentURL string) bool {
	switch action.Type {
	case entity.ActionTypeFill:
		if strings.Contains(action.Value, "{{") {
			return false
		}

		selector := strings.ToLower(action.Selector)
		if containsAny(selector, "password", "card", "cvv", "pin") ||
			(strings.Contains(selector, "code") && len(action.Value) <= 6) {
			return true
		}

		return containsAny(strings.ToLower(action.Value), "delete", "remove")
	case entity.ActionTypeClick:
		return containsAny(strings.ToLower(action.Selector), "delete", "remove", "pay", "buy") &&
			containsAny(strings.ToLower(currentURL), "payment", "checkout", "cart")
	}

	return false
}

func containsAny(s string, terms ...string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}

	return false
}

func formatActionDescription(action *entity.BrowserAction) string {
	switch action.Type {
	case entity.ActionTypeNavigate:
		return action.URL
	case entity.ActionTypeClick:
		return fmt.Sprintf("selector: %s", action.Selector)
	case entity.ActionTypeFill:
		return fmt.Sprintf("selector: %s, value: %s", action.Selector, action.Value)
	case entity.ActionTypePress:
		return fmt.Sprintf("key: %s", action.Value)
	case entity.ActionTypeWait:
		return fmt.Sprintf("%dms", action.WaitFor)
	case entity.ActionTypeScroll:
		direction, amount := scrollParams(action)

		return fmt.Sprintf("direction: %s, amount: %d", direction, amount)
	case entity.ActionTypeClickCoordinates:
		return fmt.Sprintf("x: %.0f, y: %.0f", action.X, action.Y)
	case entity.ActionTypeRequestInput:
		return action.Value
	default:
		return ""
	}
}

func (s *AgentService) buildSystemPrompt(taskDescription string) string {
	var prompt strings.Builder

	prompt.WriteString("You are a browser automation agent. Complete tasks efficiently.\n\n")
	fmt.Fprintf(&prompt, "Task: %s\n\n", taskDescription)

	prompt.WriteString(`Available actions:
- navigate(url)
- click_at_coordinates(x, y) - PRIMARY method, click at screen position
- click(selector) - backup method if coordinates not available
- fill(selector, value) - auto-submits search fields
- press(key)
- scroll(direction, amount)
- wait(seconds)
- request_user_input(prompt) - ask the user for codes, credentials or choices only they know
- complete_task(result)

IMPORTANT RULES:
1. Clickable elements show: text | selector | coords (x,y) | size WxH
2. Coordinates are CENTER of element - use these for clicking
3. Prefer click_at_coordinates(x,y)
4. NEVER invent passwords, codes or personal data. Call request_user_input instead
5. Execution may pause on login, captcha or payment pages. After a pause, type the
   user's value as ` + entity.UserInputPlaceholder + ` in fill; it is substituted for you
6. NEVER repeat failed actions
7. Only complete when you SEE proof of success
`)
	fmt.Fprintf(&prompt, "\nMax %d iterations.", s.maxIterations)

	return prompt.String()
}
