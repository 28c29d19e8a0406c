package stream

import (
	"encoding/json"
)

// Event types written by the agent service.
const (
	TypeMessage = "message"
	TypeToken   = "token"
	TypeError   = "error"
)

// Event is a JSON object decoded from a stream line, tagged by Type.
type Event struct {
	Type    string          `json:"type"`
	Content json.RawMessage `json:"content,omitempty"`
}

// ToolCall is a tool invocation requested by the agent.
type ToolCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
	ID   string         `json:"id,omitempty"`
}

// Message is the content of a "message" event.
type Message struct {
	Type       string     `json:"type"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	RunID      string     `json:"run_id,omitempty"`
}

// Fragment returns the display fragment carried by a "message" event. It
// reports false for any other type, or when content.content is missing or
// not a string.
func (e *Event) Fragment() (string, bool) {
	if e == nil || e.Type != TypeMessage {
		return "", false
	}

	var content struct {
		Content *string `json:"content"`
	}
	if err := json.Unmarshal(e.Content, &content); err != nil || content.Content == nil {
		return "", false
	}

	return *content.Content, true
}

// Message decodes the content of a "message" event.
func (e *Event) Message() (*Message, bool) {
	if e == nil || e.Type != TypeMessage {
		return nil, false
	}

	var m Message
	if err := json.Unmarshal(e.Content, &m); err != nil {
		return nil, false
	}
	return &m, true
}

// Token returns the text of a "token" event.
func (e *Event) Token() (string, bool) {
	if e == nil || e.Type != TypeToken {
		return "", false
	}
	return e.stringContent()
}

// ErrorText returns the description carried by an "error" event. Non-string
// content is returned as its raw JSON.
func (e *Event) ErrorText() (string, bool) {
	if e == nil || e.Type != TypeError {
		return "", false
	}
	if s, ok := e.stringContent(); ok {
		return s, true
	}
	return string(e.Content), len(e.Content) > 0
}

func (e *Event) stringContent() (string, bool) {
	var s string
	if err := json.Unmarshal(e.Content, &s); err != nil {
		return "", false
	}
	return s, true
}
