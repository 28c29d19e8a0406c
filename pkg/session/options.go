package session

import (
	"log/slog"
	"time"

	"github.com/papercomputeco/agentchat/pkg/stream"
)

// Option configures a Session.
type Option func(*Session)

// WithPublisher sets a callback invoked with a snapshot after every state
// change. It runs on the goroutine that made the change, one call at a time
// and in generation order. fn must not wait on a goroutine that calls Cancel
// or NewThread.
func WithPublisher(fn func(State)) Option {
	return func(s *Session) {
		s.publish = fn
	}
}

// WithStreaming selects /stream (true, the default) or /invoke.
func WithStreaming(streaming bool) Option {
	return func(s *Session) {
		s.streaming = streaming
	}
}

// WithStreamTokens asks the agent service to stream "token" events ahead of
// each complete message. Tokens reach WithEventHandler; the display text is
// still built from message events.
func WithStreamTokens(tokens bool) Option {
	return func(s *Session) {
		s.streamTokens = tokens
	}
}

// WithThreadID resumes an existing conversation thread.
func WithThreadID(id string) Option {
	return func(s *Session) {
		s.threadID = id
	}
}

// WithUserID sends id as the request "user_id" field.
func WithUserID(id string) Option {
	return func(s *Session) {
		s.userID = id
	}
}

// WithModel overrides the agent's default model.
func WithModel(model string) Option {
	return func(s *Session) {
		s.model = model
	}
}

// WithTimeout bounds each request. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithEventHandler receives every streamed event, e.g. to show tool calls.
func WithEventHandler(fn func(*stream.Event)) Option {
	return func(s *Session) {
		s.onEvent = fn
	}
}

// WithObserver receives the Result of every submission that was not
// canceled, after the session state is final.
func WithObserver(fn func(Result)) Option {
	return func(s *Session) {
		s.observer = fn
	}
}

// WithLogger sets the logger. A nil l keeps the default, which discards.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}
