package dotdir

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	threadFile = "thread.json"
)

// ThreadState is the persisted pointer to the agent conversation thread that
// "agentchat chat" resumes. The agent service keeps the message history; only
// the thread identity lives locally.
type ThreadState struct {
	// ThreadID is the agent service thread_id sent with every request.
	ThreadID string `json:"thread_id"`

	// Agent is the agent the thread was started with. Empty means the
	// service default agent.
	Agent string `json:"agent,omitempty"`

	// UpdatedAt is the time of the last exchange on the thread.
	UpdatedAt time.Time `json:"updated_at"`
}

// LoadThreadState loads the thread state from .agentchat/thread.json.
// Returns nil, nil if no thread state exists.
func (m *Manager) LoadThreadState(overrideDir string) (*ThreadState, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(dir, threadFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading thread state: %w", err)
	}

	state := &ThreadState{}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("parsing thread state: %w", err)
	}

	return state, nil
}

// SaveThreadState persists the thread state to .agentchat/thread.json.
func (m *Manager) SaveThreadState(state *ThreadState, overrideDir string) error {
	if state == nil {
		return errors.New("cannot save nil thread state")
	}
	if state.ThreadID == "" {
		return errors.New("cannot save thread state without a thread id")
	}

	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling thread state: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, threadFile), data, 0o600); err != nil {
		return fmt.Errorf("writing thread state: %w", err)
	}

	return nil
}

// ClearThreadState removes the thread state so the next chat starts a fresh
// thread. Returns nil if the file doesn't exist.
func (m *Manager) ClearThreadState(overrideDir string) error {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(dir, threadFile)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("removing thread state: %w", err)
	}

	return nil
}
