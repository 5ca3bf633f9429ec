package chat

import (
	"context"
	"sync"

	"github.com/RichardoC/thinkstream/internal/models"
)

// Sink consumes the ordered events of one turn. The orchestrator closes it
// when the turn ends.
type Sink interface {
	Emit(ctx context.Context, ev models.Event) error
	Close() error
}

// ChannelSink delivers events over a channel, for in-process consumers.
type ChannelSink struct {
	ch   chan models.Event
	once sync.Once
}

func NewChannelSink(buffer int) *ChannelSink {
	return &ChannelSink{ch: make(chan models.Event, buffer)}
}

// Events is closed after the turn's last event.
func (s *ChannelSink) Events() <-chan models.Event {
	return s.ch
}

func (s *ChannelSink) Emit(ctx context.Context, ev models.Event) error {
	select {
	case s.ch <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *ChannelSink) Close() error {
	s.once.Do(func() { close(s.ch) })
	return nil
}
