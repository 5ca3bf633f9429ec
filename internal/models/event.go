package models

// EventType tags a ChatEvent on the wire.
type EventType string

const (
	EventUserMessage      EventType = "userMessage"
	EventReasoning        EventType = "reasoning"
	EventContent          EventType = "content"
	EventAssistantMessage EventType = "assistantMessage"
	EventComplete         EventType = "complete"
	EventError            EventType = "error"
)

// Event is one frame of a streamed turn. Data holds a string for reasoning,
// content and error events, a *Message for userMessage and assistantMessage
// events, and nothing for complete.
type Event struct {
	Type EventType `json:"type"`
	Data any       `json:"data,omitempty"`
}

// Terminal reports whether the event ends a turn.
func (e Event) Terminal() bool {
	return e.Type == EventComplete || e.Type == EventError
}

func UserMessageEvent(m *Message) Event      { return Event{Type: EventUserMessage, Data: m} }
func ReasoningEvent(text string) Event       { return Event{Type: EventReasoning, Data: text} }
func ContentEvent(text string) Event         { return Event{Type: EventContent, Data: text} }
func AssistantMessageEvent(m *Message) Event { return Event{Type: EventAssistantMessage, Data: m} }
func CompleteEvent() Event                   { return Event{Type: EventComplete} }
func ErrorEvent(text string) Event           { return Event{Type: EventError, Data: text} }
