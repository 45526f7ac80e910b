package ai

import (
	"browser-pause-agent/internal/entity"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseToolCall(t *testing.T) {
	tests := []struct {
		name  string
		tool  string
		input map[string]any
		want  *entity.BrowserAction
	}{
		{
			name:  "navigate",
			tool:  "navigate",
			input: map[string]any{"url": "https://example.com"},
			want:  &entity.BrowserAction{Type: entity.ActionTypeNavigate, URL: "https://example.com"},
		},
		{
			name:  "coordinates",
			tool:  "click_at_coordinates",
			input: map[string]any{"x": 10.0, "y": int64(20)},
			want:  &entity.BrowserAction{Type: entity.ActionTypeClickCoordinates, X: 10, Y: 20},
		},
		{
			name:  "fill with placeholder",
			tool:  "fill",
			input: map[string]any{"selector": "#pw", "value": entity.UserInputPlaceholder},
			want:  &entity.BrowserAction{Type: entity.ActionTypeFill, Selector: "#pw", Value: entity.UserInputPlaceholder},
		},
		{
			name:  "scroll default amount",
			tool:  "scroll",
			input: map[string]any{"direction": "down"},
			want:  &entity.BrowserAction{Type: entity.ActionTypeScroll, Value: "down", WaitFor: 500},
		},
		{
			name:  "wait seconds",
			tool:  "wait",
			input: map[string]any{"seconds": 1.5},
			want:  &entity.BrowserAction{Type: entity.ActionTypeWait, WaitFor: 1500},
		},
		{
			name:  "request input",
			tool:  "request_user_input",
			input: map[string]any{"prompt": "SMS code?"},
			want:  &entity.BrowserAction{Type: entity.ActionTypeRequestInput, Value: "SMS code?"},
		},
		{
			name:  "complete",
			tool:  completeTaskTool,
			input: map[string]any{"result": "done"},
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseToolCall(tt.tool, tt.input)

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseToolCall_Unknown(t *testing.T) {
	_, err := parseToolCall("teleport", nil)
	assert.Error(t, err)
}
