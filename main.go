package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/ucp-agent-poc/server/internal/agent"
	"github.com/ucp-agent-poc/server/internal/agent/dispatch"
	"github.com/ucp-agent-poc/server/internal/agent/model"
	"github.com/ucp-agent-poc/server/internal/catalog"
	"github.com/ucp-agent-poc/server/internal/checkout"
	"github.com/ucp-agent-poc/server/internal/core"
	"github.com/ucp-agent-poc/server/internal/repo"
	"github.com/ucp-agent-poc/server/internal/server"
	logx "github.com/ucp-agent-poc/server/pkg/logger"
	pkgredis "github.com/ucp-agent-poc/server/pkg/redis"
)

// AppConfig defines all configurable parameters for the server, sourced from
// environment variables (loaded from .env for local runs).
type AppConfig struct {
	// Infrastructure
	Redis  pkgredis.Config
	Server server.Config

	// LLM provider. APIKey is optional: without it the commerce endpoints
	// still serve and the chat endpoint reports the agent as unconfigured.
	APIKey  string `envconfig:"GEMINI_API_KEY"`
	BaseURL string `envconfig:"GEMINI_BASE_URL"`

	// Agent configs
	Agent        model.AgentModelConfig
	Conversation model.ConversationConfig
	Prompt       model.PromptConfig
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	logx.Init(logx.LoggerOpts{Environment: core.FromSystem()})

	// Load structured config from env
	var envCfg AppConfig
	if err := envconfig.Process("", &envCfg); err != nil {
		logx.Fatal().Err(err).Msg("Failed to process environment config")
	}

	rdb, err := envCfg.Redis.New(ctx)
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to initialise Redis client")
	}
	defer rdb.Close()
	logx.Info().Msg("Connected to Redis")

	cat, err := catalog.Load()
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to load product catalog")
	}

	checkoutSvc := checkout.NewService(cat, checkout.NewMemoryStore())

	ttl, err := time.ParseDuration(envCfg.Conversation.TTL)
	if err != nil {
		logx.Fatal().Str("ttl", envCfg.Conversation.TTL).Err(err).Msg("Invalid CONVERSATION_TTL")
	}
	conversations := repo.NewRedisConversationRepository(rdb, ttl)

	ag := buildAgent(ctx, envCfg, cat, checkoutSvc)

	srvCfg := envCfg.Server
	srvCfg.BusinessName = envCfg.Prompt.BusinessName
	srvCfg.ModelName = envCfg.Agent.Model
	srvCfg.APIKeyConfigured = envCfg.APIKey != ""

	srv := server.New(srvCfg, cat, checkoutSvc, ag, conversations, conversations)
	if err := srv.Run(ctx); err != nil {
		logx.Fatal().Err(err).Msg("HTTP server failed")
	}

	logx.Info().Msg("Server exited")
}

// buildAgent wires the chat model and the tool dispatcher. Returns nil when
// no API key is configured so the rest of the server can run without it.
func buildAgent(ctx context.Context, envCfg AppConfig, cat catalog.Catalog, checkoutSvc *checkout.Service) *agent.Agent {
	if envCfg.APIKey == "" {
		logx.Warn().Msg("GEMINI_API_KEY not set, chat agent disabled")
		return nil
	}

	chatModel, err := agent.NewGeminiChatModel(ctx, agent.GeminiConfig{
		APIKey:  envCfg.APIKey,
		BaseURL: envCfg.BaseURL,
		Model:   envCfg.Agent,
	})
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to create chat model")
	}

	modelTimeout, err := time.ParseDuration(envCfg.Conversation.Loop.ModelTimeout)
	if err != nil {
		logx.Fatal().Str("timeout", envCfg.Conversation.Loop.ModelTimeout).Err(err).Msg("Invalid AGENT_MODEL_TIMEOUT")
	}

	ag, err := agent.New(agent.Config{
		ChatModel:       chatModel,
		ModelName:       envCfg.Agent.Model,
		Dispatcher:      dispatch.New(cat, checkoutSvc),
		Catalog:         cat,
		Prompt:          envCfg.Prompt,
		MaxRounds:       envCfg.Conversation.Loop.MaxRounds,
		HistoryMaxTurns: envCfg.Conversation.History.MaxTurns,
		ModelTimeout:    modelTimeout,
	})
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to build agent")
	}

	logx.Info().Str("model", envCfg.Agent.Model).Msg("Chat agent ready")
	return ag
}
