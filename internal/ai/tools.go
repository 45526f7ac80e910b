package ai

import (
	"browser-pause-agent/internal/entity"
	"fmt"
)

const completeTaskTool = "complete_task"

// toolParam describes one argument of a browser tool.
type toolParam struct {
	Name     string
	Type     string
	Enum     []string
	Required bool
}

type toolSpec struct {
	Name        string
	Description string
	Params      []toolParam
}

var browserTools = []toolSpec{
	{
		Name:        "navigate",
		Description: "Navigate to URL",
		Params:      []toolParam{{Name: "url", Type: "string", Required: true}},
	},
	{
		Name:        "click",
		Description: "Click element by CSS selector. Prefer [data-qa] selectors!",
		Params:      []toolParam{{Name: "selector", Type: "string", Required: true}},
	},
	{
		Name:        "click_at_coordinates",
		Description: "Click at X,Y when selector fails",
		Params: []toolParam{
			{Name: "x", Type: "number", Required: true},
			{Name: "y", Type: "number", Required: true},
		},
	},
	{
		Name:        "fill",
		Description: "Fill input. Type " + entity.UserInputPlaceholder + " to use a value the user supplied",
		Params: []toolParam{
			{Name: "selector", Type: "string", Required: true},
			{Name: "value", Type: "string", Required: true},
		},
	},
	{
		Name:        "press",
		Description: "Press keyboard key (e.g. Enter, Escape, Tab)",
		Params:      []toolParam{{Name: "key", Type: "string", Required: true}},
	},
	{
		Name:        "scroll",
		Description: "Scroll: down/up/bottom/top",
		Params: []toolParam{
			{Name: "direction", Type: "string", Enum: []string{"down", "up", "bottom", "top"}, Required: true},
			{Name: "amount", Type: "number"},
		},
	},
	{
		Name:        "wait",
		Description: "Wait for the page to settle",
		Params:      []toolParam{{Name: "seconds", Type: "number", Required: true}},
	},
	{
		Name:        "request_user_input",
		Description: "Pause and ask the user for information only they have (codes, credentials, confirmation)",
		Params:      []toolParam{{Name: "prompt", Type: "string", Required: true}},
	},
	{
		Name:        completeTaskTool,
		Description: "Complete with result",
		Params:      []toolParam{{Name: "result", Type: "string", Required: true}},
	},
}

// parseToolCall turns a tool invocation into a browser action. complete_task
// yields a nil action.
func parseToolCall(toolName string, input map[string]any) (*entity.BrowserAction, error) {
	action := &entity.BrowserAction{}

	switch toolName {
	case "navigate":
		action.Type = entity.ActionTypeNavigate
		action.URL = stringArg(input, "url")
	case "click":
		action.Type = entity.ActionTypeClick
		action.Selector = stringArg(input, "selector")
	case "click_at_coordinates":
		action.Type = entity.ActionTypeClickCoordinates
		action.X = numberArg(input, "x")
		action.Y = numberArg(input, "y")
	case "fill":
		action.Type = entity.ActionTypeFill
		action.Selector = stringArg(input, "selector")
		action.Value = stringArg(input, "value")
	case "press":
		action.Type = entity.ActionTypePress
		action.Value = stringArg(input, "key")
	case "scroll":
		action.Type = entity.ActionTypeScroll
		action.Value = stringArg(input, "direction")
		action.WaitFor = 500

		if amount := numberArg(input, "amount"); amount > 0 {
			action.WaitFor = int(amount)
		}
	case "wait":
		action.Type = entity.ActionTypeWait
		action.WaitFor = int(numberArg(input, "seconds") * 1000)
	case "request_user_input":
		action.Type = entity.ActionTypeRequestInput
		action.Value = stringArg(input, "prompt")
	case completeTaskTool:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown tool: %s", toolName)
	}

	return action, nil
}

func stringArg(input map[string]any, key string) string {
	if v, ok := input[key].(string); ok {
		return v
	}

	return ""
}

func numberArg(input map[string]any, key string) float64 {
	switch v := input[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}

	return 0
}
