package risk

import (
	"context"
	"fmt"
	"log"

	"github.com/aquasense/aquasense/internal/inference"
)

// ChatResult is the assistant's reply. Structured is populated only when the
// response happens to contain a JSON object; it is advisory and unvalidated,
// unlike the analysis pipeline's Determination.
type ChatResult struct {
	Response   string
	Structured map[string]any
	Model      string
}

// Assistant is the free-form chat counterpart of the Analyzer. It shares the
// cascade mechanics but applies no schema validation to what comes back.
type Assistant struct {
	cascade Invoker
}

func NewAssistant(cascade Invoker) *Assistant {
	return &Assistant{cascade: cascade}
}

func (as *Assistant) Respond(ctx context.Context, message string, history []ChatMessage, fileCtx *FileContext) (ChatResult, error) {
	if as.cascade == nil {
		return ChatResult{Response: demoChatResponse(message), Model: DemoModelVersion}, nil
	}

	prompt := BuildChatPrompt(message, history, fileCtx)
	outcome, err := as.cascade.Invoke(ctx, prompt)
	if err != nil {
		return ChatResult{}, fmt.Errorf("chat: %w", err)
	}

	result := ChatResult{Response: outcome.Text, Model: outcome.Model}
	if parsed, err := inference.ExtractJSONObject(outcome.Text); err == nil {
		result.Structured = parsed
	} else {
		log.Printf("risk chat_no_structured_payload model=%s", outcome.Model)
	}
	return result, nil
}
