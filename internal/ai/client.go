package ai

import (
	"browser-pause-agent/internal/config"
	"browser-pause-agent/internal/entity"
	"browser-pause-agent/pkg/apperr"
	"browser-pause-agent/pkg/logg"
	"browser-pause-agent/pkg/tracing"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	anthropicClientName = "AnthropicClient"
	anthropicTracer     = "ai.anthropic"
	anthropicEndpoint   = "https://api.anthropic.com/v1/messages"
	anthropicVersion    = "2023-06-01"
	anthropicMaxTokens  = 4096
)

// AnthropicClient talks to the Messages API with tool use.
type AnthropicClient struct {
	config     *config.Config
	logger     *zap.Logger
	tracer     trace.Tracer
	httpClient *http.Client
	endpoint   string
}

func NewAnthropicClient(conf *config.Config, logger *zap.Logger) *AnthropicClient {
	return &AnthropicClient{
		config:     conf,
		logger:     logger.With(zap.String(logg.Layer, anthropicClientName)),
		tracer:     otel.Tracer(anthropicTracer),
		httpClient: &http.Client{},
		endpoint:   anthropicEndpoint,
	}
}

type claudeRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	Messages  []claudeMessage `json:"messages"`
	Tools     []claudeTool    `json:"tools,omitempty"`
}

type claudeMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

type claudeTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

type claudeResponse struct {
	Content []struct {
		Type  string         `json:"type"`
		Text  string         `json:"text,omitempty"`
		Name  string         `json:"name,omitempty"`
		Input map[string]any `json:"input,omitempty"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

func (c *AnthropicClient) SendMessage(ctx context.Context, messages []entity.AIMessage) (resp *entity.AIResponse, err error) {
	const op = "SendMessage"
	logger := c.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, c.tracer, logger, op,
		attribute.Int("messages_count", len(messages)))
	defer func() {
		step.End(err)
	}()

	logger.Debug("Sending message to AI", zap.Int("messages_count", len(messages)))

	claudeMessages := make([]claudeMessage, len(messages))
	for i, msg := range messages {
		claudeMessages[i] = claudeMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	jsonData, err := json.Marshal(claudeRequest{
		Model:     c.config.AIConfig.Model,
		MaxTokens: anthropicMaxTokens,
		Messages:  claudeMessages,
		Tools:     claudeTools(),
	})
	if err != nil {
		return nil, apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "marshal_failed",
			apperr.MetaStage:  apperr.StageAI,
		})
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return nil, apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "request_create_failed",
			apperr.MetaStage:  apperr.StageAI,
		})
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.config.AIConfig.APIKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	step.AddEvent("sending HTTP request")

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperr.Wrap(op, apperr.CodeUnavailable, err, map[string]any{
			apperr.MetaReason: "http_request_failed",
			apperr.MetaStage:  apperr.StageAI,
		})
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "read_body_failed",
			apperr.MetaStage:  apperr.StageAI,
		})
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, apperr.Wrap(op, apperr.CodeAIError, fmt.Errorf("API error (status %d): %s", httpResp.StatusCode, string(body)), map[string]any{
			apperr.MetaReason: "api_error",
			apperr.MetaStage:  apperr.StageAI,
			"status_code":     httpResp.StatusCode,
		})
	}

	var claudeResp claudeResponse

	if err := json.Unmarshal(body, &claudeResp); err != nil {
		return nil, apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "unmarshal_failed",
			apperr.MetaStage:  apperr.StageAI,
		})
	}

	return parseClaudeResponse(&claudeResp)
}

func claudeTools() []claudeTool {
	tools := make([]claudeTool, 0, len(browserTools))

	for _, spec := range browserTools {
		properties := make(map[string]any, len(spec.Params))
		required := make([]string, 0, len(spec.Params))

		for _, p := range spec.Params {
			prop := map[string]any{"type": p.Type}
			if len(p.Enum) > 0 {
				prop["enum"] = p.Enum
			}

			properties[p.Name] = prop

			if p.Required {
				required = append(required, p.Name)
			}
		}

		tools = append(tools, claudeTool{
			Name:        spec.Name,
			Description: spec.Description,
			InputSchema: map[string]any{
				"type":       "object",
				"properties": properties,
				"required":   required,
			},
		})
	}

	return tools
}

func parseClaudeResponse(resp *claudeResponse) (*entity.AIResponse, error) {
	aiResp := &entity.AIResponse{
		Complete: resp.StopReason == "end_turn",
	}

	for _, content := range resp.Content {
		switch content.Type {
		case "text":
			aiResp.Thought = content.Text
		case "tool_use":
			action, err := parseToolCall(content.Name, content.Input)
			if err != nil {
				return nil, err
			}

			aiResp.Action = action

			if content.Name == completeTaskTool {
				aiResp.Complete = true
				aiResp.Result = stringArg(content.Input, "result")
			}
		}
	}

	return aiResp, nil
}
