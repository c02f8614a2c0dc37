package model

import (
	"context"

	"github.com/cloudwego/eino/schema"
)

type ConversationRepository interface {
	// AddMessage adds a message to the conversation history for the given conversation
	AddMessage(ctx context.Context, conversationID string, message *schema.Message) error

	// LoadHistory retrieves the conversation history for a conversation
	LoadHistory(ctx context.Context, conversationID string) (*ConversationHistory, error)

	// ClearHistory removes all conversation history for a conversation
	ClearHistory(ctx context.Context, conversationID string) error

	// GetMessageCount returns the number of messages in the conversation
	GetMessageCount(ctx context.Context, conversationID string) (int, error)
}

// ConversationStateRepository persists the shopping state of a conversation
// between chat turns.
type ConversationStateRepository interface {
	SaveState(ctx context.Context, conversationID string, state ConversationState) error
	LoadState(ctx context.Context, conversationID string) (ConversationState, error)
}

// ConversationHistory represents loaded conversation data with metadata.
type ConversationHistory struct {
	ConversationID string
	Messages       []*schema.Message
}

// ConversationState is the durable shopping state of one conversation: the
// cart contents plus the id of the active checkout session, if any.
type ConversationState struct {
	Cart      Cart   `json:"cart,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}
