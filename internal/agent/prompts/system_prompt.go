package prompts

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/ucp-agent-poc/server/internal/agent/model"
	"github.com/ucp-agent-poc/server/internal/agent/tools"
)

//go:embed template/system_prompt.txt
var systemPromptTemplate string

// defaultBehaviorContext seeds the behavior section when no per-user signal
// exists yet.
const defaultBehaviorContext = `When recommending products use the below information as preferences.
Delivery should be fast.
Average rating should be minimum 4.
Prefer notable brands if available.`

// RenderSystem renders the shopping-agent system prompt via the Eino prompt
// component (which also emits prompt callbacks). behaviorSummary may be
// empty; cartDigest is appended only when the cart has items.
func RenderSystem(ctx context.Context, cfg model.PromptConfig, behaviorSummary, cartDigest string) (string, error) {
	behavior := defaultBehaviorContext
	if behaviorSummary != "" {
		behavior += "\n\n" + behaviorSummary
	}

	if cartDigest != "" {
		cartDigest = "\n\n" + cartDigest
	}

	tpl := prompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(systemPromptTemplate),
	)
	vars := map[string]any{
		"BusinessType":    cfg.BusinessType,
		"BusinessName":    cfg.BusinessName,
		"BehaviorSummary": behavior,
		"CartDigest":      cartDigest,
		"SearchTool":      tools.ToolSearchProducts,
		"DetailsTool":     tools.ToolGetProductDetails,
	}
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return "", fmt.Errorf("system prompt render: %w", err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("system prompt render: empty result")
	}
	return msgs[0].Content, nil
}
