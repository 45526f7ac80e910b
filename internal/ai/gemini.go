package ai

import (
	"browser-pause-agent/internal/config"
	"browser-pause-agent/internal/entity"
	"browser-pause-agent/pkg/apperr"
	"browser-pause-agent/pkg/logg"
	"browser-pause-agent/pkg/tracing"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	geminiClientName = "GeminiClient"
	geminiTracer     = "ai.gemini"
	geminiTemp       = 0.2
)

// contentGenerator is the slice of *genai.Models the client needs.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type GeminiClient struct {
	model     string
	logger    *zap.Logger
	tracer    trace.Tracer
	generator contentGenerator
	tools     []*genai.Tool
}

func NewGeminiClient(ctx context.Context, conf *config.Config, logger *zap.Logger) (*GeminiClient, error) {
	if conf.AIConfig.APIKey == "" {
		return nil, errors.New("gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  conf.AIConfig.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return newGeminiClient(conf.AIConfig.Model, client.Models, logger), nil
}

func newGeminiClient(model string, generator contentGenerator, logger *zap.Logger) *GeminiClient {
	return &GeminiClient{
		model:     model,
		logger:    logger.With(zap.String(logg.Layer, geminiClientName)),
		tracer:    otel.Tracer(geminiTracer),
		generator: generator,
		tools:     geminiTools(),
	}
}

func (c *GeminiClient) SendMessage(ctx context.Context, messages []entity.AIMessage) (resp *entity.AIResponse, err error) {
	const op = "SendMessage"
	logger := c.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, c.tracer, logger, op,
		attribute.Int("messages_count", len(messages)),
		attribute.String("model", c.model))
	defer func() {
		step.End(err)
	}()

	contents, err := toGeminiContents(messages)
	if err != nil {
		return nil, apperr.Wrap(op, apperr.CodeInvalidArgument, err, map[string]any{
			apperr.MetaReason: "convert_messages_failed",
			apperr.MetaStage:  apperr.StageAI,
		})
	}

	step.AddEvent("generating content")

	genResp, err := c.generator.GenerateContent(ctx, c.model, contents, &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](geminiTemp),
		Tools:       c.tools,
	})
	if err != nil {
		return nil, apperr.Wrap(op, apperr.CodeAIError, err, map[string]any{
			apperr.MetaReason: "generate_content_failed",
			apperr.MetaStage:  apperr.StageAI,
		})
	}

	if genResp.UsageMetadata != nil {
		logger.Debug("LLM generation complete",
			zap.Int32("prompt_tokens", genResp.UsageMetadata.PromptTokenCount),
			zap.Int32("completion_tokens", genResp.UsageMetadata.CandidatesTokenCount),
			zap.Int32("total_tokens", genResp.UsageMetadata.TotalTokenCount))
	}

	return parseGeminiResponse(genResp)
}

func geminiTools() []*genai.Tool {
	decls := make([]*genai.FunctionDeclaration, 0, len(browserTools))

	for _, spec := range browserTools {
		schema := &genai.Schema{
			Type:       genai.TypeObject,
			Properties: make(map[string]*genai.Schema, len(spec.Params)),
		}

		for _, p := range spec.Params {
			prop := &genai.Schema{Type: genai.TypeString, Enum: p.Enum}
			if p.Type == "number" {
				prop.Type = genai.TypeNumber
			}

			schema.Properties[p.Name] = prop

			if p.Required {
				schema.Required = append(schema.Required, p.Name)
			}
		}

		decls = append(decls, &genai.FunctionDeclaration{
			Name:        spec.Name,
			Description: spec.Description,
			Parameters:  schema,
		})
	}

	return []*genai.Tool{{FunctionDeclarations: decls}}
}

func toGeminiContents(messages []entity.AIMessage) ([]*genai.Content, error) {
	contents := make([]*genai.Content, 0, len(messages))

	for _, msg := range messages {
		role := genai.Role(genai.RoleUser)
		if msg.Role == "assistant" || msg.Role == genai.RoleModel {
			role = genai.RoleModel
		}

		switch content := msg.Content.(type) {
		case string:
			contents = append(contents, genai.NewContentFromText(content, role))
		case []entity.MessageContent:
			parts := make([]*genai.Part, 0, len(content))

			for _, item := range content {
				switch {
				case item.Type == "text":
					parts = append(parts, genai.NewPartFromText(item.Text))
				case item.Type == "image" && item.Source != nil:
					data, err := base64.StdEncoding.DecodeString(item.Source.Data)
					if err != nil {
						return nil, fmt.Errorf("decode image: %w", err)
					}

					parts = append(parts, genai.NewPartFromBytes(data, item.Source.MediaType))
				}
			}

			contents = append(contents, genai.NewContentFromParts(parts, role))
		default:
			return nil, fmt.Errorf("unsupported message content %T", msg.Content)
		}
	}

	return contents, nil
}

func parseGeminiResponse(resp *genai.GenerateContentResponse) (*entity.AIResponse, error) {
	const op = "parseGeminiResponse"

	if resp == nil || len(resp.Candidates) == 0 {
		return nil, apperr.WrapErrorWithReason(op, apperr.CodeAIError, "no_candidates")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return nil, apperr.Wrap(op, apperr.CodeAIError, fmt.Errorf("empty content (finish reason %s)", candidate.FinishReason), map[string]any{
			apperr.MetaReason: "empty_content",
			apperr.MetaStage:  apperr.StageAI,
		})
	}

	aiResp := &entity.AIResponse{}

	var thoughts []string

	called := false

	for _, part := range candidate.Content.Parts {
		if part.Text != "" {
			thoughts = append(thoughts, part.Text)
		}

		if part.FunctionCall == nil || called {
			continue
		}

		called = true

		action, err := parseToolCall(part.FunctionCall.Name, part.FunctionCall.Args)
		if err != nil {
			return nil, apperr.Wrap(op, apperr.CodeAIError, err, map[string]any{
				apperr.MetaReason: "unknown_tool",
				apperr.MetaStage:  apperr.StageAI,
			})
		}

		aiResp.Action = action

		if part.FunctionCall.Name == completeTaskTool {
			aiResp.Complete = true
			aiResp.Result = stringArg(part.FunctionCall.Args, "result")
		}
	}

	aiResp.Thought = strings.Join(thoughts, "\n")

	// A plain-text answer without a tool call ends the task.
	if !called {
		aiResp.Complete = true
		aiResp.Result = aiResp.Thought
	}

	return aiResp, nil
}
