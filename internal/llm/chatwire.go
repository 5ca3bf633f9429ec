package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/RichardoC/thinkstream/internal/models"
)

// Wire types for OpenAI-compatible /chat/completions streaming endpoints.

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type reasoningParams struct {
	MaxTokens int    `json:"max_tokens"`
	Effort    string `json:"effort"`
}

type chatCompletionRequest struct {
	Model       string           `json:"model"`
	Messages    []chatMessage    `json:"messages"`
	Stream      bool             `json:"stream"`
	Temperature float64          `json:"temperature"`
	TopP        float64          `json:"top_p,omitempty"`
	MaxTokens   int              `json:"max_tokens,omitempty"`
	Reasoning   *reasoningParams `json:"reasoning,omitempty"`
}

type chunkDelta struct {
	Content          string `json:"content"`
	ReasoningContent string `json:"reasoning_content"`
	Reasoning        string `json:"reasoning"`
}

type chatCompletionChunk struct {
	Choices []struct {
		Delta chunkDelta `json:"delta"`
	} `json:"choices"`
}

// reasoningField picks the provider-specific reasoning text out of a delta.
// A nil selector means the model is not asked for reasoning.
type reasoningField func(chunkDelta) string

func chatMessages(turns []Turn) []chatMessage {
	msgs := make([]chatMessage, 0, len(turns)+1)
	msgs = append(msgs, chatMessage{Role: string(models.RoleSystem), Content: SystemPrompt})
	for _, t := range turns {
		msgs = append(msgs, chatMessage{Role: string(t.Role), Content: t.Content})
	}
	return msgs
}

// completionsCall describes one streaming POST to a /chat/completions endpoint.
type completionsCall struct {
	provider  string
	url       string
	apiKey    string
	headers   map[string]string
	body      chatCompletionRequest
	reasoning reasoningField
}

// streamCompletions sends the request and returns a stream over its SSE
// body. Undecodable lines are skipped; transport failures end the stream
// with an *AdapterError.
func streamCompletions(ctx context.Context, client *http.Client, call completionsCall, logger *zap.Logger) (*Stream, error) {
	payload, err := json.Marshal(call.body)
	if err != nil {
		return nil, &AdapterError{Provider: call.provider, Message: "encode request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, call.url, bytes.NewReader(payload))
	if err != nil {
		return nil, &AdapterError{Provider: call.provider, Message: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	if call.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+call.apiKey)
	}
	for k, v := range call.headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &AdapterError{Provider: call.provider, Message: "request failed", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &AdapterError{
			Provider: call.provider,
			Message:  fmt.Sprintf("upstream returned %d %s: %s", resp.StatusCode, http.StatusText(resp.StatusCode), strings.TrimSpace(string(body))),
		}
	}
	if resp.Body == nil || resp.Body == http.NoBody {
		return nil, &AdapterError{Provider: call.provider, Message: "missing response body"}
	}

	return NewStream(func(yield func(Delta, error) bool) {
		defer resp.Body.Close()

		scanner := newSSEScanner(resp.Body)
		for {
			data, err := scanner.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(Delta{}, &AdapterError{Provider: call.provider, Message: "stream interrupted", Err: err})
				return
			}

			var chunk chatCompletionChunk
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				logger.Debug("Skipping malformed stream chunk",
					zap.String("provider", call.provider),
					zap.String("data", data),
					zap.Error(err))
				continue
			}
			if len(chunk.Choices) == 0 {
				continue
			}

			delta := chunk.Choices[0].Delta
			if call.reasoning != nil {
				if r := call.reasoning(delta); r != "" {
					if !yield(Delta{Kind: DeltaReasoning, Text: r}, nil) {
						return
					}
				}
			}
			if delta.Content != "" {
				if !yield(Delta{Kind: DeltaContent, Text: delta.Content}, nil) {
					return
				}
			}
		}
	}), nil
}
