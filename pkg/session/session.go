// Package session owns the state of one chat front-end: the display text,
// the loading flag and the generation counter that keeps a superseded
// request from writing into a newer request's display text.
package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/agentchat/pkg/agent"
	"github.com/papercomputeco/agentchat/pkg/logger"
	"github.com/papercomputeco/agentchat/pkg/stream"
)

var (
	// ErrEmptyInput is returned by Submit for empty or whitespace-only input.
	ErrEmptyInput = errors.New("input is empty")

	// ErrBusy is returned by Submit while a request is in flight.
	ErrBusy = errors.New("a request is already in flight")

	// ErrCanceled is returned by Submit when its request was abandoned by
	// Cancel or superseded before it finished.
	ErrCanceled = errors.New("request canceled")
)

// ErrorPrefix starts the display text of a failed request.
const ErrorPrefix = "Error: "

// Client is the subset of *agent.Client a Session needs.
type Client interface {
	Stream(ctx context.Context, req agent.Request) (io.ReadCloser, error)
	Invoke(ctx context.Context, req agent.Request) (*agent.InvokeResult, error)
}

// State is a snapshot of the session.
type State struct {
	Text       string
	Loading    bool
	Generation uint64
	Err        error
}

// Result describes a finished submission.
type Result struct {
	Prompt   string
	Text     string
	ThreadID string
	RunID    string
	Streamed bool
	Failed   bool
	Err      error

	// AgentError is the last "error" event the agent streamed, if any.
	AgentError string

	Stats     stream.Stats
	StartedAt time.Time
	Duration  time.Duration
}

// Session serializes submissions against one agent service client. All
// methods are safe for concurrent use.
type Session struct {
	client Client

	streaming    bool
	streamTokens bool
	threadID     string
	userID       string
	model        string
	timeout      time.Duration

	publish  func(State)
	onEvent  func(*stream.Event)
	observer func(Result)
	logger   *slog.Logger

	// pubMu orders publications; published is the newest generation sent.
	pubMu     sync.Mutex
	published uint64

	mu      sync.Mutex
	text    string
	loading bool
	gen     uint64
	err     error
	cancel  context.CancelFunc
}

// New returns an idle Session. Without WithThreadID a random thread id is
// generated so consecutive submissions share the agent's conversation state.
func New(client Client, opts ...Option) *Session {
	s := &Session{
		client:    client,
		streaming: true,
		timeout:   agent.DefaultTimeout,
		logger:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.threadID == "" {
		s.threadID = uuid.NewString()
	}
	return s
}

// ThreadID returns the thread id sent with every request.
func (s *Session) ThreadID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.threadID
}

// NewThread starts a fresh conversation thread and clears the display text.
// It returns ErrBusy while a request is in flight.
func (s *Session) NewThread() (string, error) {
	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		return "", ErrBusy
	}
	s.threadID = uuid.NewString()
	s.text = ""
	s.err = nil
	id := s.threadID
	state := s.snapshotLocked()
	s.mu.Unlock()

	s.emit(state)
	return id, nil
}

// State returns a snapshot of the session.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Submit sends input to the agent service and blocks until the response is
// complete, failed or canceled. The display text is cleared before the
// request is issued. A transport failure replaces the display text with
// "Error: <description>" and is returned in both Result.Err and the error.
func (s *Session) Submit(ctx context.Context, input string) (Result, error) {
	if strings.TrimSpace(input) == "" {
		return Result{}, ErrEmptyInput
	}

	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		return Result{}, ErrBusy
	}
	s.gen++
	gen := s.gen
	s.text = ""
	s.err = nil
	s.loading = true
	reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
	s.cancel = cancel
	threadID := s.threadID
	state := s.snapshotLocked()
	s.mu.Unlock()

	defer cancel()
	s.emit(state)

	res := Result{
		Prompt:    input,
		ThreadID:  threadID,
		Streamed:  s.streaming,
		StartedAt: time.Now(),
	}
	req := agent.Request{
		Message:      input,
		ThreadID:     threadID,
		UserID:       s.userID,
		Model:        s.model,
		StreamTokens: s.streaming && s.streamTokens,
	}

	var err error
	if s.streaming {
		err = s.runStream(reqCtx, gen, req, &res)
	} else {
		err = s.runInvoke(reqCtx, gen, req, &res)
	}
	res.Duration = time.Since(res.StartedAt)

	return s.finish(gen, res, err)
}

// Cancel abandons the in-flight request, if any. Its display text is left
// as is and later writes from it are dropped.
func (s *Session) Cancel() {
	s.mu.Lock()
	if !s.loading {
		s.mu.Unlock()
		return
	}
	s.gen++
	s.loading = false
	cancel := s.cancel
	s.cancel = nil
	state := s.snapshotLocked()
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.logger.Debug("request canceled", "generation", state.Generation)
	s.emit(state)
}

func (s *Session) runStream(ctx context.Context, gen uint64, req agent.Request, res *Result) error {
	body, err := s.client.Stream(ctx, req)
	if err != nil {
		return err
	}
	defer body.Close()

	asm := stream.NewAssembler(
		stream.WithGuard(func() bool { return s.current(gen) }),
		stream.WithPublisher(func(text string) { s.setText(gen, text) }),
		stream.WithEventHandler(func(ev *stream.Event) {
			if msg, ok := ev.Message(); ok && msg.RunID != "" {
				res.RunID = msg.RunID
			}
			if text, ok := ev.ErrorText(); ok {
				res.AgentError = text
				s.logger.Warn("agent streamed an error event", "error", text)
			}
			if s.onEvent != nil {
				s.onEvent(ev)
			}
		}),
		stream.WithLogger(s.logger),
	)

	err = asm.Consume(ctx, body)
	res.Stats = asm.Stats()
	return err
}

func (s *Session) runInvoke(ctx context.Context, gen uint64, req agent.Request, res *Result) error {
	out, err := s.client.Invoke(ctx, req)
	if err != nil {
		return err
	}

	res.RunID = out.RunID()
	s.setText(gen, out.DisplayText())
	return nil
}

// finish clears the loading flag for gen and records a failure. A stale
// generation leaves the session untouched.
func (s *Session) finish(gen uint64, res Result, err error) (Result, error) {
	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		res.Err = ErrCanceled
		return res, ErrCanceled
	}

	s.loading = false
	s.cancel = nil
	if err != nil {
		s.err = err
		s.text = ErrorPrefix + err.Error()
		res.Failed = true
		res.Err = err
	}
	res.Text = s.text
	state := s.snapshotLocked()
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("request failed", "thread_id", res.ThreadID, "error", err)
	}

	s.emit(state)
	if s.observer != nil {
		s.observer(res)
	}
	return res, err
}

func (s *Session) setText(gen uint64, text string) {
	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return
	}
	s.text = text
	state := s.snapshotLocked()
	s.mu.Unlock()

	s.emit(state)
}

func (s *Session) current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen == gen
}

func (s *Session) snapshotLocked() State {
	return State{
		Text:       s.text,
		Loading:    s.loading,
		Generation: s.gen,
		Err:        s.err,
	}
}

// emit publishes state unless a newer generation has already been
// published. A state computed by a superseded request can lose the race for
// pubMu against Cancel and the next Submit; it is dropped rather than sent
// after them.
func (s *Session) emit(state State) {
	if s.publish == nil {
		return
	}
	s.pubMu.Lock()
	defer s.pubMu.Unlock()
	if state.Generation < s.published {
		return
	}
	s.published = state.Generation
	s.publish(state)
}
