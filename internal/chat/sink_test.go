package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/RichardoC/thinkstream/internal/models"
)

func TestChannelSink(t *testing.T) {
	s := NewChannelSink(4)
	ctx := context.Background()

	if err := s.Emit(ctx, models.ContentEvent("a")); err != nil {
		t.Fatal(err)
	}
	if err := s.Emit(ctx, models.CompleteEvent()); err != nil {
		t.Fatal(err)
	}
	s.Close()
	s.Close()

	var got []models.EventType
	for ev := range s.Events() {
		got = append(got, ev.Type)
	}
	if len(got) != 2 || got[0] != models.EventContent || got[1] != models.EventComplete {
		t.Errorf("events = %v", got)
	}
}

func TestChannelSinkRespectsContext(t *testing.T) {
	s := NewChannelSink(0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.Emit(ctx, models.ContentEvent("a")); !errors.Is(err, context.Canceled) {
		t.Errorf("Emit() error = %v, want context.Canceled", err)
	}
}
