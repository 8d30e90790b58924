package inference

import (
	"context"
	"testing"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

type fakeMessager struct {
	gotModel string
	blocks   []anthropic.ContentBlockUnion
}

func (f *fakeMessager) New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error) {
	f.gotModel = string(params.Model)
	return &anthropic.Message{Content: f.blocks}, nil
}

func TestNewAnthropicGeneratorRequiresKey(t *testing.T) {
	if _, err := NewAnthropicGenerator("  "); err == nil {
		t.Fatal("expected error for blank api key")
	}
}

func TestAnthropicGeneratorConcatenatesTextBlocks(t *testing.T) {
	fake := &fakeMessager{blocks: []anthropic.ContentBlockUnion{
		{Type: "text", Text: "part one "},
		{Type: "tool_use"},
		{Type: "text", Text: "part two"},
	}}
	orig := newAnthropicClient
	newAnthropicClient = func(apiKey string) AnthropicMessager { return fake }
	defer func() { newAnthropicClient = orig }()

	gen, err := NewAnthropicGenerator("test-key")
	if err != nil {
		t.Fatal(err)
	}
	out, err := gen.Generate(context.Background(), "some-model", "prompt")
	if err != nil {
		t.Fatal(err)
	}
	if out != "part one part two" {
		t.Fatalf("unexpected output %q", out)
	}
	if fake.gotModel != "some-model" {
		t.Fatalf("model identifier not forwarded, got %q", fake.gotModel)
	}
}
