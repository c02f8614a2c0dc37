package model

import (
	"github.com/cloudwego/eino/schema"
)

// Window returns the last maxTurns messages as a fresh slice. The input is
// never mutated. This is the explicit history-windowing policy for the loop;
// conversation growth is bounded here, not inline at call sites.
func Window(messages []*schema.Message, maxTurns int) []*schema.Message {
	if maxTurns <= 0 {
		return []*schema.Message{}
	}
	if len(messages) <= maxTurns {
		result := make([]*schema.Message, len(messages))
		copy(result, messages)
		return result
	}
	source := messages[len(messages)-maxTurns:]
	result := make([]*schema.Message, len(source))
	copy(result, source)
	return result
}
