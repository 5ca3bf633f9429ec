package llm

import (
	"context"
	"iter"
	"net/http"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/RichardoC/thinkstream/internal/models"
)

// thinkingContextTurns caps the context sent to the thinking model.
const thinkingContextTurns = 10

type ThinkingConfig struct {
	APIKey          string  `mapstructure:"api_key"`
	BaseURL         string  `mapstructure:"base_url"`
	Temperature     float64 `mapstructure:"temperature"`
	MaxOutputTokens int     `mapstructure:"max_output_tokens"`
}

type generateStreamFunc func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error]

// ThinkingAdapter serves Gemini models with thought summaries enabled. Parts
// flagged as thoughts become reasoning deltas.
type ThinkingAdapter struct {
	cfg      ThinkingConfig
	generate generateStreamFunc
	logger   *zap.Logger
}

func NewThinkingAdapter(ctx context.Context, cfg ThinkingConfig, client *http.Client, logger *zap.Logger) (*ThinkingAdapter, error) {
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  client,
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.BaseURL},
	})
	if err != nil {
		return nil, &AdapterError{Provider: string(FamilyThinking), Message: "create client", Err: err}
	}
	return &ThinkingAdapter{cfg: cfg, generate: gc.Models.GenerateContentStream, logger: logger}, nil
}

func (a *ThinkingAdapter) Name() string { return string(FamilyThinking) }

func (a *ThinkingAdapter) config() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(SystemPrompt, genai.RoleUser),
		Temperature:       genai.Ptr(float32(a.cfg.Temperature)),
		MaxOutputTokens:   int32(a.cfg.MaxOutputTokens),
		ThinkingConfig: &genai.ThinkingConfig{
			IncludeThoughts: true,
			// -1 lets the model pick its own thinking budget.
			ThinkingBudget: genai.Ptr[int32](-1),
		},
	}
}

func thinkingContents(turns []Turn) []*genai.Content {
	turns = lastTurns(turns, thinkingContextTurns)
	contents := make([]*genai.Content, 0, len(turns))
	for _, t := range turns {
		role := genai.Role(genai.RoleUser)
		if t.Role == models.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(t.Content, role))
	}
	return contents
}

func (a *ThinkingAdapter) Stream(ctx context.Context, req Request) (*Stream, error) {
	if err := validateRequest(a.Name(), req); err != nil {
		return nil, err
	}

	contents := thinkingContents(req.Turns)
	a.logger.Debug("Starting thinking stream",
		zap.String("model", req.Model.Upstream()),
		zap.Int("turns", len(contents)))

	responses := a.generate(ctx, req.Model.Upstream(), contents, a.config())

	return NewStream(func(yield func(Delta, error) bool) {
		for resp, err := range responses {
			if err != nil {
				yield(Delta{}, &AdapterError{Provider: a.Name(), Message: "generate content stream", Err: err})
				return
			}
			if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
				continue
			}
			for _, part := range resp.Candidates[0].Content.Parts {
				if part == nil || part.Text == "" {
					continue
				}
				kind := DeltaContent
				if part.Thought {
					kind = DeltaReasoning
				}
				if !yield(Delta{Kind: kind, Text: part.Text}, nil) {
					return
				}
			}
		}
	}), nil
}
