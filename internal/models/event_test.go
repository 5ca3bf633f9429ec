package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestEventJSON(t *testing.T) {
	reasoning := "because"
	msg := &Message{
		ID:        7,
		SessionID: 3,
		Role:      RoleAssistant,
		Content:   "answer",
		Reasoning: &reasoning,
		Timestamp: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	tests := []struct {
		name  string
		event Event
		want  string
	}{
		{"content", ContentEvent("C1"), `{"type":"content","data":"C1"}`},
		{"reasoning", ReasoningEvent("R1"), `{"type":"reasoning","data":"R1"}`},
		{"complete has no data", CompleteEvent(), `{"type":"complete"}`},
		{"error", ErrorEvent("boom"), `{"type":"error","data":"boom"}`},
		{
			"assistant message",
			AssistantMessageEvent(msg),
			`{"type":"assistantMessage","data":{"id":7,"sessionId":3,"role":"assistant","content":"answer","reasoning":"because","timestamp":"2025-01-02T03:04:05Z"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(tt.event)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("Marshal() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestEventTerminal(t *testing.T) {
	if !CompleteEvent().Terminal() || !ErrorEvent("x").Terminal() {
		t.Error("complete and error events must be terminal")
	}
	if ContentEvent("x").Terminal() || AssistantMessageEvent(nil).Terminal() {
		t.Error("content and assistantMessage events must not be terminal")
	}
}

func TestUserMessageHasNoReasoning(t *testing.T) {
	m := Message{Role: RoleUser, Content: "hi"}
	if m.HasReasoning() {
		t.Error("HasReasoning() = true for message without reasoning")
	}
	b, _ := json.Marshal(m)
	var decoded map[string]any
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded["reasoning"] != nil {
		t.Errorf("reasoning = %v, want null", decoded["reasoning"])
	}
}
