package inference

import (
	"context"
	"errors"
	"os"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const systemPrompt = "You are an expert in wastewater epidemiology and public-health data analysis. " +
	"You produce conservative, structured assessments and do not invent facts."

// TextGenerator produces text for a prompt using a specific model. The model
// identifier is an opaque string understood by the backend.
type TextGenerator interface {
	Generate(ctx context.Context, model, prompt string) (string, error)
}

type AnthropicGenerator struct {
	messages AnthropicMessager
}

type AnthropicMessager interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

type AnthropicClientCreator func(apiKey string) AnthropicMessager

func defaultAnthropicCreator(apiKey string) AnthropicMessager {
	c := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &c.Messages
}

var newAnthropicClient AnthropicClientCreator = defaultAnthropicCreator

func NewAnthropicGenerator(apiKey string) (*AnthropicGenerator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("anthropic api key not configured")
	}
	return &AnthropicGenerator{messages: newAnthropicClient(apiKey)}, nil
}

func NewAnthropicGeneratorFromEnv() (*AnthropicGenerator, error) {
	return NewAnthropicGenerator(os.Getenv("ANTHROPIC_API_KEY"))
}

func (a *AnthropicGenerator) Generate(ctx context.Context, model, prompt string) (string, error) {
	resp, err := a.messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(model),
		MaxTokens:   4096,
		System:      []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(prompt))},
		Temperature: anthropic.Float(0),
	})
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, b := range resp.Content {
		if b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	return sb.String(), nil
}
