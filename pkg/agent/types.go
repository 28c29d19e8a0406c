package agent

import (
	"encoding/json"

	"github.com/papercomputeco/agentchat/pkg/stream"
)

// Request is the body of /invoke and /stream. Only Message is required; the
// remaining fields are omitted from the JSON body when empty.
type Request struct {
	Message      string         `json:"message"`
	ThreadID     string         `json:"thread_id,omitempty"`
	UserID       string         `json:"user_id,omitempty"`
	Model        string         `json:"model,omitempty"`
	AgentConfig  map[string]any `json:"agent_config,omitempty"`
	StreamTokens bool           `json:"stream_tokens,omitempty"`
}

// ChatMessage is a message as returned by /invoke and /history.
type ChatMessage = stream.Message

// ToolCall is a tool invocation carried by a ChatMessage.
type ToolCall = stream.ToolCall

// AgentInfo describes one agent offered by the service.
type AgentInfo struct {
	Key         string `json:"key"`
	Description string `json:"description"`
}

// ServiceMetadata is the response of GET /info.
type ServiceMetadata struct {
	Agents       []AgentInfo `json:"agents"`
	Models       []string    `json:"models"`
	DefaultAgent string      `json:"default_agent"`
	DefaultModel string      `json:"default_model"`
}

// ChatHistory is the response of POST /history.
type ChatHistory struct {
	Messages []ChatMessage `json:"messages"`
}

// Feedback is the body of POST /feedback.
type Feedback struct {
	RunID  string         `json:"run_id"`
	Key    string         `json:"key"`
	Score  float64        `json:"score"`
	Kwargs map[string]any `json:"kwargs,omitempty"`
}

// FeedbackResponse is the response of POST /feedback.
type FeedbackResponse struct {
	Status string `json:"status"`
}

// InvokeResult is the decoded body of a non-streaming invocation. Raw keeps
// the exact response so it can be displayed when no text field is present.
type InvokeResult struct {
	Raw json.RawMessage

	fields map[string]json.RawMessage
}

// DecodeInvokeResult parses an /invoke response body.
func DecodeInvokeResult(body []byte) (*InvokeResult, error) {
	res := &InvokeResult{Raw: json.RawMessage(body)}

	// Non-object bodies are valid; DisplayText falls back to Raw.
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err == nil {
		res.fields = fields
	} else if !json.Valid(body) {
		return nil, err
	}

	return res, nil
}

// DisplayText returns the text to show for the result: the "content" field
// (a string, or the "content" string of a nested object), else the
// "response" field, else the full JSON.
func (r *InvokeResult) DisplayText() string {
	if s, ok := r.stringField("content"); ok {
		return s
	}

	if raw, ok := r.fields["content"]; ok {
		var nested struct {
			Content *string `json:"content"`
		}
		if err := json.Unmarshal(raw, &nested); err == nil && nested.Content != nil {
			return *nested.Content
		}
	}

	if s, ok := r.stringField("response"); ok {
		return s
	}

	return string(r.Raw)
}

// Message decodes the result as a ChatMessage.
func (r *InvokeResult) Message() (*ChatMessage, error) {
	var m ChatMessage
	if err := json.Unmarshal(r.Raw, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// RunID returns the "run_id" field when present.
func (r *InvokeResult) RunID() string {
	s, _ := r.stringField("run_id")
	return s
}

func (r *InvokeResult) stringField(key string) (string, bool) {
	raw, ok := r.fields[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}
