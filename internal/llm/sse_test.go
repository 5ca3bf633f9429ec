package llm

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func TestSSEScanner(t *testing.T) {
	input := strings.Join([]string{
		": keep-alive",
		"event: message",
		`data: {"a":1}`,
		"",
		"data:",
		`data:{"b":2}`,
		"",
		"data: [DONE]",
		`data: {"after":"done"}`,
	}, "\n")

	s := newSSEScanner(strings.NewReader(input))
	var got []string
	for {
		data, err := s.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		got = append(got, data)
	}

	want := []string{`{"a":1}`, `{"b":2}`}
	if len(got) != len(want) {
		t.Fatalf("payloads = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("payload[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSSEScannerEndsWithoutDone(t *testing.T) {
	s := newSSEScanner(strings.NewReader("data: x\n"))
	if data, err := s.Next(); err != nil || data != "x" {
		t.Fatalf("Next() = %q, %v", data, err)
	}
	if _, err := s.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("Next() at end error = %v, want io.EOF", err)
	}
}
