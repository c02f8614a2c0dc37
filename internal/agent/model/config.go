package model

// ================ Config ================
type AgentModelConfig struct {
	Model       string  `envconfig:"AGENT_MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int     `envconfig:"AGENT_MAX_TOKENS" default:"2000"`
	Temperature float32 `envconfig:"AGENT_TEMPERATURE" default:"0.4"`
}

type ConversationConfig struct {
	TTL string `envconfig:"CONVERSATION_TTL" default:"15m"`
	History struct {
		MaxTurns int `envconfig:"CONVERSATION_HISTORY_MAX_TURNS" default:"10"`
	}
	Loop struct {
		MaxRounds    int    `envconfig:"AGENT_MAX_ROUNDS" default:"5"`
		ModelTimeout string `envconfig:"AGENT_MODEL_TIMEOUT" default:"30s"`
	}
}

type PromptConfig struct {
	BusinessType string `envconfig:"PROMPT_BUSINESS_TYPE" default:"online store"`
	BusinessName string `envconfig:"PROMPT_BUSINESS_NAME" default:"Demo Store"`
}
