package inference

import (
	"context"
	"errors"
	"testing"
	"time"
)

type scriptedGenerator struct {
	responses map[string]string
	errs      map[string]error
	calls     []string
}

func (g *scriptedGenerator) Generate(ctx context.Context, model, prompt string) (string, error) {
	g.calls = append(g.calls, model)
	if err, ok := g.errs[model]; ok {
		return "", err
	}
	return g.responses[model], nil
}

func TestNewCascadeRequiresCandidates(t *testing.T) {
	if _, err := NewCascade(&scriptedGenerator{}, nil, 0); err == nil {
		t.Fatal("expected error for empty candidate list")
	}
}

func TestCascadeStopsAtFirstSuccess(t *testing.T) {
	gen := &scriptedGenerator{
		responses: map[string]string{"model-b": "hello"},
		errs:      map[string]error{"model-a": errors.New("overloaded")},
	}
	c, err := NewCascade(gen, []string{"model-a", "model-b", "model-c"}, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	out, err := c.Invoke(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if out.Model != "model-b" {
		t.Fatalf("expected model-b to answer, got %q", out.Model)
	}
	if out.Text != "hello" {
		t.Fatalf("unexpected text %q", out.Text)
	}
	if len(out.Attempts) != 1 || out.Attempts[0].Model != "model-a" {
		t.Fatalf("expected one recorded failure for model-a, got %+v", out.Attempts)
	}
	if len(gen.calls) != 2 {
		t.Fatalf("model-c must never be attempted, calls: %v", gen.calls)
	}
}

func TestCascadeTreatsEmptyResponseAsFailure(t *testing.T) {
	gen := &scriptedGenerator{
		responses: map[string]string{"model-a": "   \n", "model-b": "ok"},
	}
	c, _ := NewCascade(gen, []string{"model-a", "model-b"}, time.Second)
	out, err := c.Invoke(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if out.Model != "model-b" {
		t.Fatalf("expected fallback to model-b, got %q", out.Model)
	}
	if len(out.Attempts) != 1 || !errors.Is(out.Attempts[0].Err, ErrEmptyResponse) {
		t.Fatalf("expected empty-response failure recorded, got %+v", out.Attempts)
	}
}

func TestCascadeExhaustionReportsAllAttemptsInOrder(t *testing.T) {
	gen := &scriptedGenerator{
		errs: map[string]error{
			"model-a": errors.New("quota exceeded"),
			"model-b": errors.New("not found"),
		},
	}
	c, _ := NewCascade(gen, []string{"model-a", "model-b"}, time.Second)
	_, err := c.Invoke(context.Background(), "prompt")
	var nme *NoModelAvailableError
	if !errors.As(err, &nme) {
		t.Fatalf("expected NoModelAvailableError, got %v", err)
	}
	if len(nme.Attempts) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(nme.Attempts))
	}
	if nme.Attempts[0].Model != "model-a" || nme.Attempts[1].Model != "model-b" {
		t.Fatalf("attempts out of order: %+v", nme.Attempts)
	}
}

type hangingGenerator struct{}

func (hangingGenerator) Generate(ctx context.Context, model, prompt string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestCascadeTimeoutCountsAsCandidateFailure(t *testing.T) {
	c, _ := NewCascade(hangingGenerator{}, []string{"slow-model"}, 10*time.Millisecond)
	_, err := c.Invoke(context.Background(), "prompt")
	var nme *NoModelAvailableError
	if !errors.As(err, &nme) {
		t.Fatalf("expected NoModelAvailableError, got %v", err)
	}
	if !errors.Is(nme.Attempts[0].Err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline failure, got %v", nme.Attempts[0].Err)
	}
}
