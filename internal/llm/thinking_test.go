package llm

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"testing"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/RichardoC/thinkstream/internal/models"
)

type fakeGenerator struct {
	responses []*genai.GenerateContentResponse
	err       error

	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
}

func (f *fakeGenerator) generate(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error] {
	f.model, f.contents, f.config = model, contents, config
	return func(yield func(*genai.GenerateContentResponse, error) bool) {
		for _, r := range f.responses {
			if !yield(r, nil) {
				return
			}
		}
		if f.err != nil {
			yield(nil, f.err)
		}
	}
}

func chunk(parts ...*genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Role: string(genai.RoleModel), Parts: parts}}},
	}
}

func newTestThinkingAdapter(g *fakeGenerator) *ThinkingAdapter {
	return &ThinkingAdapter{
		cfg:      ThinkingConfig{Temperature: 0.7, MaxOutputTokens: 8192},
		generate: g.generate,
		logger:   zap.NewNop(),
	}
}

func TestThinkingAdapterRoutesThoughts(t *testing.T) {
	g := &fakeGenerator{responses: []*genai.GenerateContentResponse{
		chunk(&genai.Part{Text: "pondering", Thought: true}),
		chunk(&genai.Part{Text: ""}, &genai.Part{Text: "Result", Thought: false}),
		{},
		chunk(&genai.Part{Text: " more", Thought: true}, &genai.Part{Text: "!"}),
	}}
	a := newTestThinkingAdapter(g)

	model, _ := LookupModel("gemini-2.5-pro")
	s, err := a.Stream(context.Background(), Request{Model: model, Turns: userTurns("why?")})
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}
	got, err := collect(t, s)
	if err != nil {
		t.Fatalf("stream error = %v", err)
	}

	want := []Delta{
		{DeltaReasoning, "pondering"},
		{DeltaContent, "Result"},
		{DeltaReasoning, " more"},
		{DeltaContent, "!"},
	}
	if len(got) != len(want) {
		t.Fatalf("deltas = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("delta[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}

	if g.model != "gemini-2.5-pro" {
		t.Errorf("model = %q", g.model)
	}
	cfg := g.config
	if cfg.ThinkingConfig == nil || !cfg.ThinkingConfig.IncludeThoughts || cfg.ThinkingConfig.ThinkingBudget == nil || *cfg.ThinkingConfig.ThinkingBudget != -1 {
		t.Errorf("ThinkingConfig = %+v", cfg.ThinkingConfig)
	}
	if cfg.MaxOutputTokens != 8192 || cfg.Temperature == nil || *cfg.Temperature != float32(0.7) {
		t.Errorf("sampling config = %+v", cfg)
	}
	if cfg.SystemInstruction == nil || cfg.SystemInstruction.Parts[0].Text != SystemPrompt {
		t.Error("system instruction missing")
	}
}

func TestThinkingAdapterCapsContext(t *testing.T) {
	var turns []Turn
	for i := 0; i < 15; i++ {
		role := models.RoleUser
		if i%2 == 1 {
			role = models.RoleAssistant
		}
		turns = append(turns, Turn{Role: role, Content: fmt.Sprintf("turn %d", i)})
	}

	g := &fakeGenerator{}
	a := newTestThinkingAdapter(g)
	s, err := a.Stream(context.Background(), Request{Model: DefaultModel(), Turns: turns})
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}
	if _, err := collect(t, s); err != nil {
		t.Fatalf("stream error = %v", err)
	}

	if len(g.contents) != thinkingContextTurns {
		t.Fatalf("len(contents) = %d, want %d", len(g.contents), thinkingContextTurns)
	}
	if first := g.contents[0].Parts[0].Text; first != "turn 5" {
		t.Errorf("first kept turn = %q, want turn 5", first)
	}
	if g.contents[0].Role != string(genai.RoleModel) {
		t.Errorf("assistant turn role = %q, want model", g.contents[0].Role)
	}
	if last := g.contents[len(g.contents)-1]; last.Role != string(genai.RoleUser) {
		t.Errorf("last turn role = %q, want user", last.Role)
	}
}

func TestThinkingAdapterError(t *testing.T) {
	g := &fakeGenerator{
		responses: []*genai.GenerateContentResponse{chunk(&genai.Part{Text: "partial"})},
		err:       errors.New("503 unavailable"),
	}
	a := newTestThinkingAdapter(g)

	s, err := a.Stream(context.Background(), Request{Model: DefaultModel(), Turns: userTurns("hi")})
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}
	got, err := collect(t, s)
	if !IsAdapterError(err) {
		t.Fatalf("stream error = %v, want AdapterError", err)
	}
	if len(got) != 1 {
		t.Errorf("deltas before failure = %+v", got)
	}
}
