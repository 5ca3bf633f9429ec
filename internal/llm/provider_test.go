package llm

import (
	"errors"
	"testing"

	"github.com/RichardoC/thinkstream/internal/models"
)

func TestDrain(t *testing.T) {
	s := StreamOf([]Delta{
		{Kind: DeltaReasoning, Text: " R1"},
		{Kind: DeltaReasoning, Text: "R2 "},
		{Kind: DeltaContent, Text: "  C1 "},
		{Kind: DeltaContent, Text: ""},
		{Kind: DeltaContent, Text: " C2  "},
	}, nil)

	var seen []string
	res, err := Drain(s, func(d Delta) error {
		seen = append(seen, string(d.Kind)+":"+d.Text)
		return nil
	})
	if err != nil {
		t.Fatalf("Drain() error = %v", err)
	}
	if res.Reasoning != "R1R2" {
		t.Errorf("Reasoning = %q, want %q", res.Reasoning, "R1R2")
	}
	if res.Content != "C1  C2" {
		t.Errorf("Content = %q, want %q", res.Content, "C1  C2")
	}
	if len(seen) != 4 {
		t.Errorf("callback invoked %d times, want 4 (empty deltas skipped)", len(seen))
	}
}

func TestDrainStopsOnCallbackError(t *testing.T) {
	stop := errors.New("stop")
	var released bool
	s := NewStream(func(yield func(Delta, error) bool) {
		defer func() { released = true }()
		for i := 0; i < 10; i++ {
			if !yield(Delta{Kind: DeltaContent, Text: "x"}, nil) {
				return
			}
		}
	})

	calls := 0
	_, err := Drain(s, func(Delta) error {
		calls++
		if calls == 2 {
			return stop
		}
		return nil
	})
	if !errors.Is(err, stop) {
		t.Fatalf("Drain() error = %v, want %v", err, stop)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
	if !released {
		t.Error("stream was not released after the consumer stopped")
	}
}

func TestDrainReturnsStreamError(t *testing.T) {
	upstream := &AdapterError{Provider: "test", Message: "boom"}
	_, err := Drain(StreamOf([]Delta{{Kind: DeltaContent, Text: "partial"}}, upstream), nil)
	if !IsAdapterError(err) {
		t.Fatalf("Drain() error = %v, want AdapterError", err)
	}
}

func TestValidateRequest(t *testing.T) {
	tests := []struct {
		name    string
		turns   []Turn
		wantErr bool
	}{
		{"empty", nil, true},
		{"ends with assistant", []Turn{{Role: models.RoleUser, Content: "q"}, {Role: models.RoleAssistant, Content: "a"}}, true},
		{"ends with user", []Turn{{Role: models.RoleUser, Content: "q"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateRequest("test", Request{Turns: tt.turns})
			if (err != nil) != tt.wantErr {
				t.Fatalf("validateRequest() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEmbedReasoning(t *testing.T) {
	if got := EmbedReasoning("", "answer"); got != "answer" {
		t.Errorf("EmbedReasoning(empty) = %q", got)
	}
	want := "<reasoning>think</reasoning>\n\nanswer"
	if got := EmbedReasoning("think", "answer"); got != want {
		t.Errorf("EmbedReasoning() = %q, want %q", got, want)
	}
}
