package llm

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

type CompletionsConfig struct {
	BaseURL     string  `mapstructure:"base_url"`
	APIKey      string  `mapstructure:"api_key"`
	Temperature float64 `mapstructure:"temperature"`
	TopP        float64 `mapstructure:"top_p"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// CompletionsAdapter serves reasoning models behind an OpenAI-compatible
// endpoint that reports thinking tokens in delta.reasoning_content.
type CompletionsAdapter struct {
	cfg    CompletionsConfig
	client *http.Client
	logger *zap.Logger
}

func NewCompletionsAdapter(cfg CompletionsConfig, client *http.Client, logger *zap.Logger) *CompletionsAdapter {
	if client == nil {
		client = http.DefaultClient
	}
	return &CompletionsAdapter{cfg: cfg, client: client, logger: logger}
}

func (a *CompletionsAdapter) Name() string { return string(FamilyCompletions) }

func (a *CompletionsAdapter) Stream(ctx context.Context, req Request) (*Stream, error) {
	if err := validateRequest(a.Name(), req); err != nil {
		return nil, err
	}

	a.logger.Debug("Starting completions stream",
		zap.String("model", req.Model.Upstream()),
		zap.Int("turns", len(req.Turns)))

	return streamCompletions(ctx, a.client, completionsCall{
		provider: a.Name(),
		url:      strings.TrimRight(a.cfg.BaseURL, "/") + "/chat/completions",
		apiKey:   a.cfg.APIKey,
		body: chatCompletionRequest{
			Model:       req.Model.Upstream(),
			Messages:    chatMessages(req.Turns),
			Stream:      true,
			Temperature: a.cfg.Temperature,
			TopP:        a.cfg.TopP,
			MaxTokens:   a.cfg.MaxTokens,
		},
		reasoning: func(d chunkDelta) string { return d.ReasoningContent },
	}, a.logger)
}
