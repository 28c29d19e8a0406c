package stream

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/papercomputeco/agentchat/pkg/logger"
	"github.com/papercomputeco/agentchat/pkg/utils"
)

// readSize is the buffer size Consume reads the transport with.
const readSize = 4096

// ErrStale is returned once the Assembler's liveness guard reports that the
// request it serves has been superseded. No further text is appended.
var ErrStale = errors.New("stream superseded by a newer request")

// Stats counts what an Assembler has seen.
type Stats struct {
	Lines     int
	Fragments int
	Malformed int
	Ignored   int
	Sentinels int
}

// Assembler accumulates the display text of one streamed response. It is
// not safe for concurrent use; one Assembler serves one response.
type Assembler struct {
	dec  *Decoder
	text strings.Builder

	publish func(string)
	onEvent func(*Event)
	live    func() bool
	logger  *slog.Logger

	stats  Stats
	closed bool
	stale  bool
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithPublisher sets a callback invoked with the full display text after
// every accepted fragment.
func WithPublisher(fn func(text string)) Option {
	return func(a *Assembler) {
		a.publish = fn
	}
}

// WithEventHandler sets a callback invoked with every parsed event, including
// those that contribute no display text.
func WithEventHandler(fn func(*Event)) Option {
	return func(a *Assembler) {
		a.onEvent = fn
	}
}

// WithGuard sets a liveness check consulted before every mutation of the
// display text. Once it returns false the Assembler stops and returns ErrStale.
func WithGuard(live func() bool) Option {
	return func(a *Assembler) {
		a.live = live
	}
}

// WithLogger sets the logger. Malformed lines are logged at warn level.
func WithLogger(l *slog.Logger) Option {
	return func(a *Assembler) {
		if l != nil {
			a.logger = l
		}
	}
}

// NewAssembler returns an Assembler with an empty display text.
func NewAssembler(opts ...Option) *Assembler {
	a := &Assembler{
		dec:    NewDecoder(),
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Write feeds a transport chunk. It returns ErrStale once the guard has
// tripped and io.ErrClosedPipe after Close.
func (a *Assembler) Write(p []byte) (int, error) {
	if a.closed {
		return 0, io.ErrClosedPipe
	}
	if a.stale {
		return 0, ErrStale
	}

	for _, raw := range a.dec.Feed(p) {
		if err := a.handle(raw); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

// Close processes a trailing line left without a newline at end of stream.
// It is safe to call more than once.
func (a *Assembler) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true

	if a.stale {
		return ErrStale
	}

	for _, raw := range a.dec.Flush() {
		if err := a.handle(raw); err != nil {
			return err
		}
	}
	return nil
}

// Consume reads r until EOF, feeding every chunk through Write, then calls
// Close. ctx is checked before each read. A transport error is returned
// as-is and the trailing partial line is discarded.
func (a *Assembler) Consume(ctx context.Context, r io.Reader) error {
	buf := make([]byte, readSize)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := r.Read(buf)
		if n > 0 {
			if _, werr := a.Write(buf[:n]); werr != nil {
				return werr
			}
		}

		if errors.Is(err, io.EOF) {
			return a.Close()
		}
		if err != nil {
			return err
		}
	}
}

// Text returns the display text accumulated so far.
func (a *Assembler) Text() string {
	return a.text.String()
}

// Stats returns counters for the lines processed so far.
func (a *Assembler) Stats() Stats {
	return a.stats
}

func (a *Assembler) handle(raw string) error {
	line := ParseLine(raw)

	switch line.Kind {
	case KindBlank:
		return nil

	case KindSentinel:
		a.stats.Lines++
		a.stats.Sentinels++
		return nil

	case KindMalformed:
		a.stats.Lines++
		a.stats.Malformed++
		a.logger.Warn("skipping malformed stream line",
			"error", line.Err,
			"line", utils.Truncate(line.Raw, 200),
		)
		return nil

	case KindEvent:
		a.stats.Lines++
		if a.onEvent != nil {
			a.onEvent(line.Event)
		}

		fragment, ok := line.Event.Fragment()
		if !ok {
			a.stats.Ignored++
			a.logger.Debug("ignoring stream event", "type", line.Event.Type)
			return nil
		}

		if a.live != nil && !a.live() {
			a.stale = true
			return ErrStale
		}

		a.text.WriteString(fragment)
		a.stats.Fragments++
		if a.publish != nil {
			a.publish(a.text.String())
		}
	}

	return nil
}
