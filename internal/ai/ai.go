// Package ai adapts LLM providers to ports.AIClient. Both providers expose the
// same browser tool set and decode a tool call into an entity.BrowserAction.
package ai

import (
	"browser-pause-agent/internal/config"
	"browser-pause-agent/internal/ports"
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// NewClient picks the provider named by AI_PROVIDER.
func NewClient(ctx context.Context, conf *config.Config, logger *zap.Logger) (ports.AIClient, error) {
	switch strings.ToLower(conf.AIConfig.Provider) {
	case config.ProviderGemini:
		return NewGeminiClient(ctx, conf, logger)
	case config.ProviderAnthropic:
		return NewAnthropicClient(conf, logger), nil
	default:
		return nil, fmt.Errorf("unsupported AI provider %q", conf.AIConfig.Provider)
	}
}
