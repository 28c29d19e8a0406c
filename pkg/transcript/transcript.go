// Package transcript records completed exchanges with the agent service: one
// prompt and the display text it produced.
package transcript

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Exchange is one prompt and the response text shown for it.
type Exchange struct {
	ID       string `json:"id"`
	ThreadID string `json:"thread_id"`
	RunID    string `json:"run_id,omitempty"`
	Agent    string `json:"agent,omitempty"`
	Prompt   string `json:"prompt"`
	Response string `json:"response"`
	Streamed bool   `json:"streamed"`
	Failed   bool   `json:"failed"`

	// Error is the transport error of a failed exchange.
	Error string `json:"error,omitempty"`

	Duration  time.Duration `json:"duration_ns"`
	CreatedAt time.Time     `json:"created_at"`
}

// EnsureID assigns a random ID and a creation time when they are unset.
func (e *Exchange) EnsureID() {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
}

// ThreadSummary describes the exchanges recorded for one thread.
type ThreadSummary struct {
	ThreadID  string    `json:"thread_id"`
	Exchanges int       `json:"exchanges"`
	LastAt    time.Time `json:"last_at"`
}

// Driver persists exchanges.
type Driver interface {
	// Put stores an exchange, assigning an ID and creation time when unset.
	Put(ctx context.Context, ex *Exchange) error

	// Get returns the exchange with the given ID or a NotFoundError.
	Get(ctx context.Context, id string) (*Exchange, error)

	// List returns up to limit exchanges, newest first. A non-positive
	// limit returns all of them.
	List(ctx context.Context, limit int) ([]*Exchange, error)

	// ListByThread returns the exchanges of one thread, oldest first.
	ListByThread(ctx context.Context, threadID string) ([]*Exchange, error)

	// Threads summarizes every thread, most recently active first.
	Threads(ctx context.Context) ([]ThreadSummary, error)

	// Close releases the driver's resources.
	Close() error
}
