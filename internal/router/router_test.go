package router

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.uber.org/zap"

	"github.com/veloute/server/domain/entities"
)

type fakeHandler struct {
	name     string
	matches  bool
	result   Result
	err      error
	executed int
}

func (f *fakeHandler) Name() string                 { return f.name }
func (f *fakeHandler) CanHandle(transcript string) bool { return f.matches }
func (f *fakeHandler) Execute(ctx context.Context, transcript string, rctx Context) (Result, error) {
	f.executed++
	return f.result, f.err
}

type fakeModel struct {
	reply string
	err   error
	calls int
}

func (f *fakeModel) Reply(ctx context.Context, prompt string, history []entities.Turn) (string, error) {
	f.calls++
	return f.reply, f.err
}

func TestFirstMatchingHandlerWins(t *testing.T) {
	model := &fakeModel{reply: "fallback"}
	r := New(model, zap.NewNop())

	first := &fakeHandler{name: "first", matches: true, result: Result{Text: "from first"}}
	second := &fakeHandler{name: "second", matches: true, result: Result{Text: "from second"}}
	r.Register(first)
	r.Register(second)

	result, err := r.Route(context.Background(), "anything", Context{})
	if err != nil {
		t.Fatalf("Route failed: %v", err)
	}
	if result.Text != "from first" {
		t.Errorf("Expected first handler's reply, got %q", result.Text)
	}
	if second.executed != 0 {
		t.Error("Second handler must not execute when the first matches")
	}
	if model.calls != 0 {
		t.Error("Model must not be called when a handler completes")
	}
}

func TestFallbackWhenNothingMatches(t *testing.T) {
	model := &fakeModel{reply: "the model answers"}
	r := New(model, zap.NewNop())
	r.Register(&fakeHandler{name: "never", matches: false})

	result, err := r.Route(context.Background(), "tell me a joke", Context{})
	if err != nil {
		t.Fatalf("Route failed: %v", err)
	}
	if result.Text != "the model answers" {
		t.Errorf("Expected model reply, got %q", result.Text)
	}
	if model.calls != 1 {
		t.Errorf("Expected 1 model call, got %d", model.calls)
	}
}

func TestFallbackWhenHandlerCannotComplete(t *testing.T) {
	model := &fakeModel{reply: "the model answers"}
	r := New(model, zap.NewNop())
	matched := &fakeHandler{name: "matched", matches: true, err: ErrCannotComplete}
	skipped := &fakeHandler{name: "skipped", matches: true, result: Result{Text: "unused"}}
	r.Register(matched)
	r.Register(skipped)

	result, err := r.Route(context.Background(), "something", Context{})
	if err != nil {
		t.Fatalf("Route failed: %v", err)
	}
	if result.Text != "the model answers" {
		t.Errorf("Expected fallback to the model, got %q", result.Text)
	}
	// A failed match falls through to the model, not to later handlers.
	if skipped.executed != 0 {
		t.Error("Later handlers must not run after a matched handler fails")
	}
}

func TestModelFailurePropagates(t *testing.T) {
	model := &fakeModel{err: fmt.Errorf("model is down")}
	r := New(model, zap.NewNop())

	_, err := r.Route(context.Background(), "anything", Context{})
	if err == nil {
		t.Fatal("Expected an error when the model fails")
	}
}

func TestEmptyTranscriptRejected(t *testing.T) {
	r := New(&fakeModel{reply: "unused"}, zap.NewNop())

	if _, err := r.Route(context.Background(), "   ", Context{}); !errors.Is(err, ErrEmptyTranscript) {
		t.Errorf("Expected ErrEmptyTranscript, got %v", err)
	}
}

func TestHandlersReportsDispatchOrder(t *testing.T) {
	r := New(&fakeModel{}, zap.NewNop())
	r.Register(&fakeHandler{name: "a"})
	r.Register(&fakeHandler{name: "b"})

	names := r.Handlers()
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("Expected [a b], got %v", names)
	}
}
