// Package llm talks to the upstream model providers. Every provider family is
// wrapped in an Adapter that turns its native stream into a sequence of
// reasoning and content deltas.
package llm

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/RichardoC/thinkstream/internal/models"
)

type DeltaKind string

const (
	DeltaReasoning DeltaKind = "reasoning"
	DeltaContent   DeltaKind = "content"
)

// Delta is one classified fragment of streamed text.
type Delta struct {
	Kind DeltaKind
	Text string
}

// Turn is one provider-neutral conversation entry.
type Turn struct {
	Role    models.Role
	Content string
}

// Request is what the orchestrator hands to an adapter. Turns must be
// non-empty and end with a user turn.
type Request struct {
	Model Model
	Turns []Turn
}

// Adapter translates a Request into one provider's wire call.
type Adapter interface {
	Name() string
	// Stream starts the upstream call. Connection-level failures that occur
	// before the first chunk are returned directly; later ones are yielded by
	// the stream as its final element.
	Stream(ctx context.Context, req Request) (*Stream, error)
}

// Stream is a lazy, non-restartable sequence of deltas. It ends either
// normally or with exactly one non-nil error. Breaking out of the range loop
// releases the underlying connection.
type Stream struct {
	seq iter.Seq2[Delta, error]
}

func NewStream(seq iter.Seq2[Delta, error]) *Stream {
	return &Stream{seq: seq}
}

// StreamOf returns a stream that yields the given deltas and then err, if
// non-nil. Useful for fakes.
func StreamOf(deltas []Delta, err error) *Stream {
	return NewStream(func(yield func(Delta, error) bool) {
		for _, d := range deltas {
			if !yield(d, nil) {
				return
			}
		}
		if err != nil {
			yield(Delta{}, err)
		}
	})
}

func (s *Stream) Iter() iter.Seq2[Delta, error] {
	return s.seq
}

// Result holds the aggregated, trimmed text of a finished stream.
type Result struct {
	Content   string
	Reasoning string
}

// Drain consumes the stream, handing every delta to fn in arrival order.
// Fragments are concatenated untouched; only the aggregates are trimmed. If
// fn returns an error the stream is abandoned and that error is returned.
func Drain(s *Stream, fn func(Delta) error) (Result, error) {
	var content, reasoning strings.Builder
	for d, err := range s.Iter() {
		if err != nil {
			return Result{}, err
		}
		if d.Text == "" {
			continue
		}
		switch d.Kind {
		case DeltaReasoning:
			reasoning.WriteString(d.Text)
		default:
			content.WriteString(d.Text)
		}
		if fn != nil {
			if err := fn(d); err != nil {
				return Result{}, err
			}
		}
	}
	return Result{
		Content:   strings.TrimSpace(content.String()),
		Reasoning: strings.TrimSpace(reasoning.String()),
	}, nil
}

// AdapterError reports an upstream failure that aborted a stream.
type AdapterError struct {
	Provider string
	Message  string
	Err      error
}

func (e *AdapterError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *AdapterError) Unwrap() error {
	return e.Err
}

// IsAdapterError reports whether err is or wraps an *AdapterError.
func IsAdapterError(err error) bool {
	var ae *AdapterError
	return errors.As(err, &ae)
}

func validateRequest(provider string, req Request) error {
	if len(req.Turns) == 0 {
		return &AdapterError{Provider: provider, Message: "empty conversation context"}
	}
	if last := req.Turns[len(req.Turns)-1]; last.Role != models.RoleUser {
		return &AdapterError{Provider: provider, Message: fmt.Sprintf("context must end with a user turn, got %q", last.Role)}
	}
	return nil
}
