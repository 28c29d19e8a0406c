// Package testutils holds fakes shared by agentchat package tests.
package testutils

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

// RecordedRequest is a request received by AgentService.
type RecordedRequest struct {
	Method        string
	Path          string
	Authorization string
	ContentType   string
	Body          []byte
}

// JSON decodes the recorded body into a generic map.
func (r RecordedRequest) JSON() map[string]any {
	out := map[string]any{}
	_ = json.Unmarshal(r.Body, &out)
	return out
}

// AgentService is a fake agent service backed by httptest. Fields may be
// changed between requests but not while one is in flight.
type AgentService struct {
	Server *httptest.Server

	// StreamBody is written by /stream in chunks of ChunkSize bytes, each
	// flushed separately. Zero ChunkSize writes it in one piece.
	StreamBody string
	ChunkSize  int

	// StreamGate, when non-nil, is received from after the first chunk is
	// flushed and before the rest of the stream is written.
	StreamGate chan struct{}

	InvokeBody  string
	InfoBody    string
	HistoryBody string

	// Status, when non-zero, is returned for every request with StatusBody.
	Status     int
	StatusBody string

	// Token, when set, is required as the bearer token.
	Token string

	mu       sync.Mutex
	requests []RecordedRequest
}

// NewAgentService starts a fake agent service. Call Close when done.
func NewAgentService() *AgentService {
	s := &AgentService{
		StreamBody:  MessageLine("Hel") + MessageLine("lo") + DoneLine,
		InvokeBody:  `{"type":"ai","content":"Hello","run_id":"run-1"}`,
		InfoBody:    `{"agents":[{"key":"chatbot","description":"A simple chatbot"}],"models":["gpt-4o"],"default_agent":"chatbot","default_model":"gpt-4o"}`,
		HistoryBody: `{"messages":[{"type":"human","content":"hi"},{"type":"ai","content":"Hello"}]}`,
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// URL returns the base URL of the fake service.
func (s *AgentService) URL() string {
	return s.Server.URL
}

// Close shuts the fake service down.
func (s *AgentService) Close() {
	s.Server.Close()
}

// Requests returns a copy of every request received so far.
func (s *AgentService) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]RecordedRequest(nil), s.requests...)
}

// LastRequest returns the most recent request, or the zero value.
func (s *AgentService) LastRequest() RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return RecordedRequest{}
	}
	return s.requests[len(s.requests)-1]
}

func (s *AgentService) handle(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	s.mu.Lock()
	s.requests = append(s.requests, RecordedRequest{
		Method:        r.Method,
		Path:          r.URL.Path,
		Authorization: r.Header.Get("Authorization"),
		ContentType:   r.Header.Get("Content-Type"),
		Body:          body,
	})
	s.mu.Unlock()

	if s.Token != "" && r.Header.Get("Authorization") != "Bearer "+s.Token {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"detail":"Not authenticated"}`)
		return
	}

	if s.Status != 0 {
		w.WriteHeader(s.Status)
		_, _ = io.WriteString(w, s.StatusBody)
		return
	}

	path := r.URL.Path
	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(path, "/stream"):
		s.writeStream(w)
	case r.Method == http.MethodPost && strings.HasSuffix(path, "/invoke"):
		writeJSON(w, s.InvokeBody)
	case r.Method == http.MethodGet && path == "/info":
		writeJSON(w, s.InfoBody)
	case r.Method == http.MethodPost && path == "/history":
		writeJSON(w, s.HistoryBody)
	case r.Method == http.MethodPost && path == "/feedback":
		writeJSON(w, `{"status":"success"}`)
	case r.Method == http.MethodGet && path == "/health":
		writeJSON(w, `{"status":"ok"}`)
	default:
		http.NotFound(w, r)
	}
}

func (s *AgentService) writeStream(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)

	data := s.StreamBody
	size := s.ChunkSize
	if size <= 0 {
		size = len(data)
	}

	first := true
	for len(data) > 0 {
		n := min(size, len(data))
		_, _ = io.WriteString(w, data[:n])
		data = data[n:]
		if flusher != nil {
			flusher.Flush()
		}
		if first && s.StreamGate != nil {
			<-s.StreamGate
		}
		first = false
	}
}

func writeJSON(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, body)
}

// DoneLine is the sentinel line the agent service ends every stream with.
const DoneLine = "data: [DONE]\n\n"

// MessageLine returns a stream line carrying an AI message fragment.
func MessageLine(content string) string {
	return EventLine("message", map[string]any{"type": "ai", "content": content, "run_id": "run-1"})
}

// EventLine returns a "data: " prefixed stream line for an arbitrary event.
func EventLine(typ string, content any) string {
	data, _ := json.Marshal(map[string]any{"type": typ, "content": content})
	return "data: " + string(data) + "\n\n"
}
