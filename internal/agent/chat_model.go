package agent

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	einomodel "github.com/cloudwego/eino/components/model"
	"google.golang.org/genai"

	"github.com/ucp-agent-poc/server/internal/agent/model"
	logx "github.com/ucp-agent-poc/server/pkg/logger"
)

// GeminiConfig holds what is needed to construct the Gemini-backed chat model.
type GeminiConfig struct {
	APIKey  string
	BaseURL string
	Model   model.AgentModelConfig
}

// NewGeminiChatModel creates the tool-calling chat model backing the agent.
func NewGeminiChatModel(ctx context.Context, config GeminiConfig) (einomodel.ToolCallingChatModel, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = config.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	chatModel, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       config.Model.Model,
		Temperature: &config.Model.Temperature,
		MaxTokens:   &config.Model.MaxTokens,
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating chat model")
		return nil, fmt.Errorf("error creating chat model: %w", err)
	}

	return chatModel, nil
}
