package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/ucp-agent-poc/server/internal/agent/dispatch"
	"github.com/ucp-agent-poc/server/internal/agent/model"
	"github.com/ucp-agent-poc/server/internal/agent/prompts"
	"github.com/ucp-agent-poc/server/internal/agent/tools"
	"github.com/ucp-agent-poc/server/internal/behavior"
	"github.com/ucp-agent-poc/server/internal/catalog"
	errx "github.com/ucp-agent-poc/server/internal/core/error"
	logx "github.com/ucp-agent-poc/server/pkg/logger"
)

const (
	// DefaultMaxRounds bounds model calls per incoming message, a safety
	// valve against a model that perpetually requests tools.
	DefaultMaxRounds = 5

	// DefaultHistoryMaxTurns is the conversation window passed to the model.
	DefaultHistoryMaxTurns = 10

	fallbackResponse = "I'm here to help you shop! How can I assist you today?"
)

// Config wires the agent's collaborators.
type Config struct {
	ChatModel       einomodel.ToolCallingChatModel
	ModelName       string
	Dispatcher      *dispatch.Dispatcher
	Catalog         catalog.Catalog
	Prompt          model.PromptConfig
	MaxRounds       int
	HistoryMaxTurns int
	ModelTimeout    time.Duration
}

// Agent drives the bounded, synchronous exchange between the chat model and
// the dispatcher for one conversation turn at a time.
type Agent struct {
	chatModel       einomodel.ToolCallingChatModel
	modelName       string
	dispatcher      *dispatch.Dispatcher
	catalog         catalog.Catalog
	prompt          model.PromptConfig
	maxRounds       int
	historyMaxTurns int
	modelTimeout    time.Duration
}

// New binds the tool catalog to the chat model and returns the agent.
func New(cfg Config) (*Agent, error) {
	if cfg.ChatModel == nil {
		return nil, errx.Configuration("chat model is not configured")
	}
	if cfg.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is nil")
	}
	if cfg.Catalog == nil {
		return nil, fmt.Errorf("catalog is nil")
	}

	bound, err := cfg.ChatModel.WithTools(tools.Infos())
	if err != nil {
		return nil, fmt.Errorf("failed to bind tools to chat model: %w", err)
	}

	maxRounds := cfg.MaxRounds
	if maxRounds <= 0 {
		maxRounds = DefaultMaxRounds
	}
	historyMaxTurns := cfg.HistoryMaxTurns
	if historyMaxTurns <= 0 {
		historyMaxTurns = DefaultHistoryMaxTurns
	}

	return &Agent{
		chatModel:       bound,
		modelName:       cfg.ModelName,
		dispatcher:      cfg.Dispatcher,
		catalog:         cfg.Catalog,
		prompt:          cfg.Prompt,
		maxRounds:       maxRounds,
		historyMaxTurns: historyMaxTurns,
		modelTimeout:    cfg.ModelTimeout,
	}, nil
}

// HandleChatTurn runs the tool-calling protocol for one user message.
//
// Per round the model either requests tool calls, which run sequentially in
// the order received against the threaded (cart, session) pair, or produces
// the final plain-text answer. The round cap bounds attempts; when it is
// exhausted the last accumulated state is returned without further model
// calls. A model failure on the very first round surfaces as the response
// with no state change; on later rounds partial progress is preserved.
func (a *Agent) HandleChatTurn(ctx context.Context, req model.TurnRequest) (model.TurnResult, error) {
	tracker := behavior.FromConversation(req.History, req.Cart, a.catalog)
	summary, _ := tracker.Summary()

	systemPrompt, err := prompts.RenderSystem(ctx, a.prompt, summary, req.Cart.Digest())
	if err != nil {
		return model.TurnResult{}, fmt.Errorf("render system prompt: %w", err)
	}

	messages := make([]*schema.Message, 0, a.historyMaxTurns+2)
	messages = append(messages, schema.SystemMessage(systemPrompt))
	messages = append(messages, model.Window(req.History, a.historyMaxTurns)...)
	messages = append(messages, schema.UserMessage(req.Message))

	cart := req.Cart.Clone()
	session := req.Session
	var records []model.ToolCallRecord
	var final string
	toolCallIDSeq := 0

	for round := 1; round <= a.maxRounds; round++ {
		out, err := a.generate(ctx, messages)
		if err != nil {
			if round == 1 {
				logx.Error().Err(err).Str("conversation_id", req.ConversationID).Msg("Model call failed on first round")
				return model.TurnResult{
					Response: fmt.Sprintf("I encountered an error: %v. Please try again in a moment.", err),
					Cart:     req.Cart,
					Session:  req.Session,
				}, nil
			}
			// Partial progress from earlier rounds is preserved, not discarded.
			logx.Warn().Err(err).Int("round", round).Str("conversation_id", req.ConversationID).
				Msg("Model call failed mid-conversation, returning accumulated state")
			break
		}

		// Some providers omit tool_call ids; synthesize them so tool results
		// can be keyed back to their request.
		for i := range out.ToolCalls {
			if strings.TrimSpace(out.ToolCalls[i].ID) == "" {
				toolCallIDSeq++
				out.ToolCalls[i].ID = fmt.Sprintf("call_%d", toolCallIDSeq)
			}
		}

		messages = append(messages, out)

		if len(out.ToolCalls) == 0 {
			final = out.Content
			break
		}

		logx.Debug().Int("tool_count", len(out.ToolCalls)).Int("round", round).Msg("Calling tools")

		for _, tc := range out.ToolCalls {
			res := a.dispatcher.Dispatch(ctx, tc.Function.Name, tc.Function.Arguments, cart, session)
			cart, session = res.Cart, res.Session

			a.trackOutcome(tracker, tc.Function.Name, res)
			records = append(records, toRecord(tc, res))
			messages = append(messages, schema.ToolMessage(toolResultJSON(res), tc.ID))
		}
	}

	if strings.TrimSpace(final) == "" {
		final = fallbackResponse
	}

	return model.TurnResult{
		Response:  final,
		Cart:      cart,
		Session:   session,
		ToolCalls: records,
	}, nil
}

// generate invokes the chat model under the configured timeout and logs
// token usage cost when the provider reports it.
func (a *Agent) generate(ctx context.Context, messages []*schema.Message) (*schema.Message, error) {
	if a.modelTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.modelTimeout)
		defer cancel()
	}

	out, err := a.chatModel.Generate(ctx, messages)
	if err != nil {
		return nil, errx.Upstream(err)
	}
	if out == nil {
		return nil, errx.Upstream(fmt.Errorf("model returned no message"))
	}

	if out.ResponseMeta != nil && out.ResponseMeta.Usage != nil {
		usage := out.ResponseMeta.Usage
		inC, outC, totalC := model.ComputeCost(usage, model.ResolvePricing(a.modelName))
		logx.Debug().
			Str("model", a.modelName).
			Int("prompt_tokens", usage.PromptTokens).
			Int("completion_tokens", usage.CompletionTokens).
			Int("total_tokens", usage.TotalTokens).
			Float64("input_cost_usd", inC).
			Float64("output_cost_usd", outC).
			Float64("total_cost_usd", totalC).
			Msg("LLM usage")
	}

	return out, nil
}

// trackOutcome feeds behavior telemetry from successful tool results. These
// signals bias future recommendations and never alter control flow.
func (a *Agent) trackOutcome(tracker *behavior.Tracker, name string, res dispatch.Result) {
	if !res.Success {
		return
	}
	switch name {
	case tools.ToolSearchProducts:
		if data, ok := res.Data.(dispatch.SearchData); ok {
			tracker.TrackSearch(data.Query, data.Category, data.Products)
			for _, p := range data.Products {
				tracker.TrackView(p.ID)
			}
		}
	case tools.ToolAddToCart:
		if data, ok := res.Data.(dispatch.AddToCartData); ok {
			tracker.TrackCartAddition(data.ProductID)
		}
	}
}

func toRecord(tc schema.ToolCall, res dispatch.Result) model.ToolCallRecord {
	record := model.ToolCallRecord{
		Function: tc.Function.Name,
		Success:  res.Success,
		Data:     res.Data,
	}
	if res.Err != nil {
		record.Error = res.Err.Message
	}

	var args map[string]any
	if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err == nil {
		record.Arguments = args
	}

	return record
}

// toolResultJSON serializes the structured result relayed to the model.
// Dispatcher errors are captured here so the model can self-correct; they
// never abort the loop.
func toolResultJSON(res dispatch.Result) string {
	payload := struct {
		Success bool   `json:"success"`
		Data    any    `json:"data,omitempty"`
		Error   string `json:"error,omitempty"`
	}{Success: res.Success, Data: res.Data}
	if res.Err != nil {
		payload.Error = res.Err.Message
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprintf(`{"success":false,"error":%q}`, "result serialization failed")
	}
	return string(b)
}
