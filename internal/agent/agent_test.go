package agent

import (
	"context"
	"errors"
	"testing"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ucp-agent-poc/server/internal/agent/dispatch"
	"github.com/ucp-agent-poc/server/internal/agent/model"
	"github.com/ucp-agent-poc/server/internal/agent/tools"
	"github.com/ucp-agent-poc/server/internal/catalog"
	"github.com/ucp-agent-poc/server/internal/checkout"
)

// scriptedModel replays a fixed sequence of responses. A nil entry in errs
// means the matching response is returned; otherwise the error is.
type scriptedModel struct {
	responses []*schema.Message
	errs      []error

	calls    int
	received [][]*schema.Message
	bound    []*schema.ToolInfo
}

func (m *scriptedModel) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	snapshot := make([]*schema.Message, len(input))
	copy(snapshot, input)
	m.received = append(m.received, snapshot)

	i := m.calls
	m.calls++
	if i < len(m.errs) && m.errs[i] != nil {
		return nil, m.errs[i]
	}
	if i < len(m.responses) {
		return m.responses[i], nil
	}
	return nil, errors.New("scripted model exhausted")
}

func (m *scriptedModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("streaming not supported")
}

func (m *scriptedModel) WithTools(infos []*schema.ToolInfo) (einomodel.ToolCallingChatModel, error) {
	m.bound = infos
	return m, nil
}

var _ einomodel.ToolCallingChatModel = (*scriptedModel)(nil)

func testCatalog() catalog.Catalog {
	return catalog.FromProducts([]catalog.Product{
		{ID: "prod-1", Title: "Wireless Headphones", Description: "Noise cancelling headphones", Price: 1000, Currency: "USD", Category: "Electronics", AverageRating: 4.5},
		{ID: "prod-2", Title: "Yoga Mat", Description: "Non-slip exercise mat", Price: 2500, Currency: "USD", Category: "Sports & Fitness", AverageRating: 4.2},
	})
}

func newTestAgent(t *testing.T, chatModel *scriptedModel) *Agent {
	t.Helper()
	cat := testCatalog()
	svc := checkout.NewService(cat, checkout.NewMemoryStore())

	ag, err := New(Config{
		ChatModel:  chatModel,
		ModelName:  "gemini-2.5-flash",
		Dispatcher: dispatch.New(cat, svc),
		Catalog:    cat,
		Prompt:     model.PromptConfig{BusinessType: "online store", BusinessName: "Demo Store"},
	})
	require.NoError(t, err)
	return ag
}

func toolCallMessage(calls ...schema.ToolCall) *schema.Message {
	return &schema.Message{Role: schema.Assistant, ToolCalls: calls}
}

func addToCartCall(id, args string) schema.ToolCall {
	return schema.ToolCall{ID: id, Function: schema.FunctionCall{Name: tools.ToolAddToCart, Arguments: args}}
}

// ============================================
// Happy paths
// ============================================

func TestHandleChatTurn_PlainAnswer(t *testing.T) {
	chatModel := &scriptedModel{
		responses: []*schema.Message{schema.AssistantMessage("Hello! How can I help?", nil)},
	}
	ag := newTestAgent(t, chatModel)

	result, err := ag.HandleChatTurn(context.Background(), model.TurnRequest{
		ConversationID: "conv-1",
		Message:        "hi",
	})

	require.NoError(t, err)
	assert.Equal(t, "Hello! How can I help?", result.Response)
	assert.Empty(t, result.Cart)
	assert.Nil(t, result.Session)
	assert.Empty(t, result.ToolCalls)
	assert.Equal(t, 1, chatModel.calls)
	assert.NotEmpty(t, chatModel.bound)
}

func TestHandleChatTurn_ToolRoundThenAnswer(t *testing.T) {
	chatModel := &scriptedModel{
		responses: []*schema.Message{
			toolCallMessage(addToCartCall("call_a", `{"product_id":"prod-1","quantity":2}`)),
			schema.AssistantMessage("Added the headphones to your cart.", nil),
		},
	}
	ag := newTestAgent(t, chatModel)

	result, err := ag.HandleChatTurn(context.Background(), model.TurnRequest{
		ConversationID: "conv-1",
		Message:        "add the headphones please",
	})

	require.NoError(t, err)
	assert.Equal(t, "Added the headphones to your cart.", result.Response)
	require.Len(t, result.Cart, 1)
	assert.Equal(t, "prod-1", result.Cart[0].ProductID)
	assert.Equal(t, 2, result.Cart[0].Quantity)

	require.Len(t, result.ToolCalls, 1)
	assert.Equal(t, tools.ToolAddToCart, result.ToolCalls[0].Function)
	assert.True(t, result.ToolCalls[0].Success)

	// Second model call must see the assistant tool request and its result.
	require.Equal(t, 2, chatModel.calls)
	second := chatModel.received[1]
	last := second[len(second)-1]
	assert.Equal(t, schema.Tool, last.Role)
	assert.Equal(t, "call_a", last.ToolCallID)
	assert.Contains(t, last.Content, `"success":true`)
}

func TestHandleChatTurn_SequentialToolsThreadState(t *testing.T) {
	chatModel := &scriptedModel{
		responses: []*schema.Message{
			toolCallMessage(
				addToCartCall("call_a", `{"product_id":"prod-1","quantity":1}`),
				addToCartCall("call_b", `{"product_id":"prod-1","quantity":2}`),
			),
			schema.AssistantMessage("Done.", nil),
		},
	}
	ag := newTestAgent(t, chatModel)

	result, err := ag.HandleChatTurn(context.Background(), model.TurnRequest{Message: "add twice"})

	require.NoError(t, err)
	// The second call observed the cart produced by the first: quantities merge.
	require.Len(t, result.Cart, 1)
	assert.Equal(t, 3, result.Cart[0].Quantity)
	assert.Len(t, result.ToolCalls, 2)
}

func TestHandleChatTurn_SynthesizesMissingToolCallIDs(t *testing.T) {
	chatModel := &scriptedModel{
		responses: []*schema.Message{
			toolCallMessage(addToCartCall("", `{"product_id":"prod-1","quantity":1}`)),
			schema.AssistantMessage("Done.", nil),
		},
	}
	ag := newTestAgent(t, chatModel)

	_, err := ag.HandleChatTurn(context.Background(), model.TurnRequest{Message: "add it"})

	require.NoError(t, err)
	second := chatModel.received[1]
	last := second[len(second)-1]
	assert.Equal(t, "call_1", last.ToolCallID)
}

// ============================================
// Bounds and failure policy
// ============================================

func TestHandleChatTurn_RoundCap(t *testing.T) {
	// The model insists on calling tools forever.
	loop := toolCallMessage(addToCartCall("call_a", `{"product_id":"prod-1","quantity":1}`))
	chatModel := &scriptedModel{
		responses: []*schema.Message{loop, loop, loop, loop, loop, loop, loop},
	}
	ag := newTestAgent(t, chatModel)

	result, err := ag.HandleChatTurn(context.Background(), model.TurnRequest{Message: "go wild"})

	require.NoError(t, err)
	assert.Equal(t, DefaultMaxRounds, chatModel.calls)
	assert.Equal(t, fallbackResponse, result.Response)
	// Work done inside the cap is kept.
	require.Len(t, result.Cart, 1)
	assert.Equal(t, DefaultMaxRounds, result.Cart[0].Quantity)
	assert.Len(t, result.ToolCalls, DefaultMaxRounds)
}

func TestHandleChatTurn_FirstRoundModelFailure(t *testing.T) {
	chatModel := &scriptedModel{
		errs: []error{errors.New("rate limited")},
	}
	ag := newTestAgent(t, chatModel)

	cart := model.Cart{{ProductID: "prod-2", Title: "Yoga Mat", Price: 2500, Quantity: 1}}
	result, err := ag.HandleChatTurn(context.Background(), model.TurnRequest{
		Message: "hello",
		Cart:    cart,
	})

	require.NoError(t, err)
	assert.Contains(t, result.Response, "I encountered an error")
	assert.Equal(t, cart, result.Cart)
	assert.Empty(t, result.ToolCalls)
}

func TestHandleChatTurn_MidConversationFailureKeepsProgress(t *testing.T) {
	chatModel := &scriptedModel{
		responses: []*schema.Message{
			toolCallMessage(addToCartCall("call_a", `{"product_id":"prod-1","quantity":1}`)),
			nil,
		},
		errs: []error{nil, errors.New("upstream blew up")},
	}
	ag := newTestAgent(t, chatModel)

	result, err := ag.HandleChatTurn(context.Background(), model.TurnRequest{Message: "add it"})

	require.NoError(t, err)
	assert.Equal(t, fallbackResponse, result.Response)
	require.Len(t, result.Cart, 1)
	assert.Equal(t, "prod-1", result.Cart[0].ProductID)
	assert.Len(t, result.ToolCalls, 1)
}

func TestHandleChatTurn_FailedToolReportedNotFatal(t *testing.T) {
	chatModel := &scriptedModel{
		responses: []*schema.Message{
			toolCallMessage(schema.ToolCall{
				ID:       "call_a",
				Function: schema.FunctionCall{Name: tools.ToolGetProductDetails, Arguments: `{"product_id":"nope"}`},
			}),
			schema.AssistantMessage("That product does not exist.", nil),
		},
	}
	ag := newTestAgent(t, chatModel)

	result, err := ag.HandleChatTurn(context.Background(), model.TurnRequest{Message: "details for nope"})

	require.NoError(t, err)
	assert.Equal(t, "That product does not exist.", result.Response)

	require.Len(t, result.ToolCalls, 1)
	assert.False(t, result.ToolCalls[0].Success)
	assert.NotEmpty(t, result.ToolCalls[0].Error)

	// The failure is relayed to the model as tool output.
	second := chatModel.received[1]
	last := second[len(second)-1]
	assert.Contains(t, last.Content, `"success":false`)
}

func TestHandleChatTurn_EmptyFinalContentFallsBack(t *testing.T) {
	chatModel := &scriptedModel{
		responses: []*schema.Message{schema.AssistantMessage("", nil)},
	}
	ag := newTestAgent(t, chatModel)

	result, err := ag.HandleChatTurn(context.Background(), model.TurnRequest{Message: "hi"})

	require.NoError(t, err)
	assert.Equal(t, fallbackResponse, result.Response)
}

func TestHandleChatTurn_SystemPromptCarriesCart(t *testing.T) {
	chatModel := &scriptedModel{
		responses: []*schema.Message{schema.AssistantMessage("ok", nil)},
	}
	ag := newTestAgent(t, chatModel)

	cart := model.Cart{{ProductID: "prod-1", Title: "Wireless Headphones", Price: 1000, Quantity: 2}}
	_, err := ag.HandleChatTurn(context.Background(), model.TurnRequest{Message: "what's in my cart?", Cart: cart})

	require.NoError(t, err)
	first := chatModel.received[0]
	require.NotEmpty(t, first)
	assert.Equal(t, schema.System, first[0].Role)
	assert.Contains(t, first[0].Content, "Wireless Headphones (x2)")
}

func TestNew_RequiresChatModel(t *testing.T) {
	cat := testCatalog()
	svc := checkout.NewService(cat, checkout.NewMemoryStore())

	_, err := New(Config{
		Dispatcher: dispatch.New(cat, svc),
		Catalog:    cat,
	})

	require.Error(t, err)
}
