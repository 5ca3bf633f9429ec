package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"

	"github.com/RichardoC/thinkstream/internal/models"
)

type RouterConfig struct {
	BaseURL     string  `mapstructure:"base_url"`
	APIKey      string  `mapstructure:"api_key"`
	Referer     string  `mapstructure:"referer"`
	Title       string  `mapstructure:"title"`
	Temperature float64 `mapstructure:"temperature"`
}

// RouterAdapter fans out to the many models of an OpenRouter-style gateway.
// Reasoning-capable models are streamed directly so that delta.reasoning
// can be read; the rest go through langchaingo and only ever produce
// content.
type RouterAdapter struct {
	cfg    RouterConfig
	client *http.Client
	logger *zap.Logger
}

func NewRouterAdapter(cfg RouterConfig, client *http.Client, logger *zap.Logger) *RouterAdapter {
	if client == nil {
		client = http.DefaultClient
	}
	return &RouterAdapter{cfg: cfg, client: client, logger: logger}
}

func (a *RouterAdapter) Name() string { return string(FamilyRouter) }

func (a *RouterAdapter) headers() map[string]string {
	h := make(map[string]string, 2)
	if a.cfg.Referer != "" {
		h["HTTP-Referer"] = a.cfg.Referer
	}
	if a.cfg.Title != "" {
		h["X-Title"] = a.cfg.Title
	}
	return h
}

func (a *RouterAdapter) Stream(ctx context.Context, req Request) (*Stream, error) {
	if err := validateRequest(a.Name(), req); err != nil {
		return nil, err
	}
	if req.Model.Reasoning {
		return a.streamReasoning(ctx, req)
	}
	return a.streamContent(ctx, req)
}

func (a *RouterAdapter) streamReasoning(ctx context.Context, req Request) (*Stream, error) {
	a.logger.Debug("Starting router reasoning stream", zap.String("model", req.Model.Upstream()))

	return streamCompletions(ctx, a.client, completionsCall{
		provider: a.Name(),
		url:      strings.TrimRight(a.cfg.BaseURL, "/") + "/chat/completions",
		apiKey:   a.cfg.APIKey,
		headers:  a.headers(),
		body: chatCompletionRequest{
			Model:       req.Model.Upstream(),
			Messages:    chatMessages(req.Turns),
			Stream:      true,
			Temperature: a.cfg.Temperature,
			Reasoning:   &reasoningParams{MaxTokens: 2000, Effort: "high"},
		},
		reasoning: func(d chunkDelta) string { return d.Reasoning },
	}, a.logger)
}

func (a *RouterAdapter) streamContent(ctx context.Context, req Request) (*Stream, error) {
	llm, err := openai.New(
		openai.WithToken(a.cfg.APIKey),
		openai.WithBaseURL(a.cfg.BaseURL),
		openai.WithModel(req.Model.Upstream()),
		openai.WithHTTPClient(&http.Client{
			Transport: &routerTransport{base: a.client.Transport, headers: a.headers(), logger: a.logger},
			Timeout:   a.client.Timeout,
		}),
	)
	if err != nil {
		return nil, &AdapterError{Provider: a.Name(), Message: "create client", Err: err}
	}

	messages := make([]llms.MessageContent, 0, len(req.Turns)+1)
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, SystemPrompt))
	for _, t := range req.Turns {
		messages = append(messages, llms.TextParts(messageType(t.Role), t.Content))
	}

	a.logger.Debug("Starting router content stream", zap.String("model", req.Model.Upstream()))

	return NewStream(func(yield func(Delta, error) bool) {
		callCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		// Once the consumer stops, the request is canceled and the remaining
		// chunks are discarded so that langchaingo's reader can run to the end.
		stopped := false
		_, err := llm.GenerateContent(callCtx, messages,
			llms.WithModel(req.Model.Upstream()),
			llms.WithTemperature(a.cfg.Temperature),
			llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
				if stopped || len(chunk) == 0 {
					return nil
				}
				if !yield(Delta{Kind: DeltaContent, Text: string(chunk)}, nil) {
					stopped = true
					cancel()
				}
				return nil
			}),
		)
		if stopped {
			return
		}
		if err != nil {
			yield(Delta{}, &AdapterError{Provider: a.Name(), Message: "generate content", Err: err})
		}
	}), nil
}

func messageType(role models.Role) llms.ChatMessageType {
	switch role {
	case models.RoleAssistant:
		return llms.ChatMessageTypeAI
	case models.RoleSystem:
		return llms.ChatMessageTypeSystem
	default:
		return llms.ChatMessageTypeHuman
	}
}

// routerTransport adds the attribution headers to every request and cleans
// successful event streams before langchaingo parses them.
type routerTransport struct {
	base    http.RoundTripper
	headers map[string]string
	logger  *zap.Logger
}

func (t *routerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	if len(t.headers) > 0 {
		req = req.Clone(req.Context())
		for k, v := range t.headers {
			req.Header.Set(k, v)
		}
	}

	resp, err := base.RoundTrip(req)
	if err != nil || resp.StatusCode != http.StatusOK || resp.Body == nil {
		return resp, err
	}
	resp.Body = &sseFilterBody{r: bufio.NewReader(resp.Body), body: resp.Body, logger: t.logger}
	return resp, nil
}

// sseFilterBody passes through blank lines, "data: [DONE]" and data lines
// holding valid JSON. Comments such as keepalives, other SSE fields and
// malformed payloads are dropped, since langchaingo ends the stream on the
// first line it cannot decode.
type sseFilterBody struct {
	r      *bufio.Reader
	body   io.Closer
	logger *zap.Logger
	buf    []byte
	err    error
}

func (b *sseFilterBody) Read(p []byte) (int, error) {
	for len(b.buf) == 0 && b.err == nil {
		line, err := b.r.ReadBytes('\n')
		if len(line) > 0 && b.keep(line) {
			b.buf = append(b.buf, line...)
		}
		b.err = err
	}
	if len(b.buf) == 0 {
		return 0, b.err
	}
	n := copy(p, b.buf)
	b.buf = b.buf[n:]
	return n, nil
}

func (b *sseFilterBody) keep(line []byte) bool {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 {
		return true
	}
	data, ok := bytes.CutPrefix(trimmed, []byte("data:"))
	if !ok {
		return false
	}
	data = bytes.TrimSpace(data)
	if string(data) == "[DONE]" || json.Valid(data) {
		return true
	}
	b.logger.Debug("Skipping malformed stream chunk", zap.ByteString("data", data))
	return false
}

func (b *sseFilterBody) Close() error {
	return b.body.Close()
}
