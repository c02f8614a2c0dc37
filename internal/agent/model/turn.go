package model

import (
	"github.com/cloudwego/eino/schema"

	"github.com/ucp-agent-poc/server/internal/checkout"
)

// TurnRequest carries one incoming user message plus the state threaded
// between turns. The loop owns this state for the duration of the turn; no
// other component holds a reference.
type TurnRequest struct {
	ConversationID string
	Message        string
	History        []*schema.Message
	Cart           Cart
	Session        *checkout.Session
}

// ToolCallRecord is the audit entry produced for each dispatched tool call.
// It is returned to the caller and never persisted.
type ToolCallRecord struct {
	Function  string         `json:"function"`
	Arguments map[string]any `json:"arguments"`
	Success   bool           `json:"success"`
	Data      any            `json:"data,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// TurnResult is the outcome of one chat turn: the assistant's answer and the
// updated state to thread into the next turn.
type TurnResult struct {
	Response  string
	Cart      Cart
	Session   *checkout.Session
	ToolCalls []ToolCallRecord
}
