package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/RichardoC/thinkstream/internal/chat"
	"github.com/RichardoC/thinkstream/internal/db"
	"github.com/RichardoC/thinkstream/internal/llm"
)

type scriptedAdapter struct {
	deltas []llm.Delta
	err    error
}

func (a scriptedAdapter) Name() string { return "scripted" }

func (a scriptedAdapter) Stream(ctx context.Context, req llm.Request) (*llm.Stream, error) {
	return llm.StreamOf(a.deltas, a.err), nil
}

func newOrchestrator(a llm.Adapter) *chat.Orchestrator {
	reg := llm.NewRegistry()
	reg.Register(llm.FamilyCompletions, a)
	return chat.NewOrchestrator(db.NewMemoryStore(), reg, chat.NewLocalLocker(), chat.Config{}, zap.NewNop())
}

func TestAskSplitsReasoningAndContent(t *testing.T) {
	orch := newOrchestrator(scriptedAdapter{deltas: []llm.Delta{
		{Kind: llm.DeltaReasoning, Text: "thinking"},
		{Kind: llm.DeltaContent, Text: "4"},
	}})

	var out, errOut bytes.Buffer
	if err := ask(context.Background(), orch, chat.Input{Content: "2+2?"}, &out, &errOut); err != nil {
		t.Fatalf("ask() error = %v", err)
	}
	if out.String() != "4\n" {
		t.Errorf("stdout = %q", out.String())
	}
	if errOut.String() != "thinking\n" {
		t.Errorf("stderr = %q", errOut.String())
	}
}

func TestAskReportsFailedTurn(t *testing.T) {
	orch := newOrchestrator(scriptedAdapter{err: &llm.AdapterError{Provider: "scripted", Message: "boom"}})

	var out, errOut bytes.Buffer
	err := ask(context.Background(), orch, chat.Input{Content: "hi"}, &out, &errOut)
	if !llm.IsAdapterError(err) {
		t.Fatalf("ask() error = %v, want adapter error", err)
	}
	if !strings.Contains(errOut.String(), "error: ") {
		t.Errorf("stderr = %q, want the error event", errOut.String())
	}
	if out.Len() != 0 {
		t.Errorf("stdout = %q, want nothing", out.String())
	}
}

func TestAskRejectsEmptyQuestion(t *testing.T) {
	orch := newOrchestrator(scriptedAdapter{})
	if err := ask(context.Background(), orch, chat.Input{Content: "  "}, &bytes.Buffer{}, &bytes.Buffer{}); !db.IsValidation(err) {
		t.Fatalf("ask() error = %v, want validation error", err)
	}
}

func TestModelsCommand(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"models"})
	if err := root.Execute(); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != len(llm.Models()) {
		t.Fatalf("got %d lines, want %d:\n%s", len(lines), len(llm.Models()), out.String())
	}
	if !strings.HasPrefix(lines[0], "* "+llm.DefaultModelID) {
		t.Errorf("default model not marked first: %q", lines[0])
	}
}

func TestAskRequiresQuestion(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"ask"})
	if err := root.Execute(); err == nil {
		t.Fatal("ask without a question succeeded")
	}
}
