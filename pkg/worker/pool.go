// Package worker provides an asynchronous worker pool that records completed
// exchanges using the provided transcript.Driver and publishes them through
// the provided eventstream.Publisher.
//
// The pool keeps storage and publishing off the hot path: the chat session
// and the relay hand an exchange over and return immediately.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/papercomputeco/agentchat/pkg/eventstream"
	"github.com/papercomputeco/agentchat/pkg/logger"
	"github.com/papercomputeco/agentchat/pkg/session"
	"github.com/papercomputeco/agentchat/pkg/transcript"
)

var (
	defaultNumWorkers   uint = 2
	defaultJobQueueSize uint = 256
	defaultJobTimeout        = 30 * time.Second
)

// Job is a unit of work for the worker pool to execute against.
type Job struct {
	Exchange *transcript.Exchange
	Source   eventstream.EventSource
}

// Config is the configuration options for the worker pool.
type Config struct {
	// Driver is the transcript backend for persisting exchanges.
	Driver transcript.Driver

	// Publisher is the optional event stream publisher.
	Publisher eventstream.Publisher

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	// JobTimeout bounds storing and publishing one job (defaults to 30s).
	JobTimeout time.Duration

	Logger *slog.Logger
}

// Pool processes recording jobs asynchronously via a worker pool.
type Pool struct {
	config *Config
	queue  chan Job
	wg     sync.WaitGroup
	logger *slog.Logger

	closeOnce sync.Once
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.Driver == nil {
		return nil, errors.New("worker pool requires a transcript driver")
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.JobTimeout <= 0 {
		c.JobTimeout = defaultJobTimeout
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	if c.Logger == nil {
		c.Logger = logger.Nop()
	}

	wp := &Pool{
		config: c,
		queue:  make(chan Job, c.QueueSize),
		logger: c.Logger,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits a job for processing by the worker pool.
// Returns true if enqueued, false if the queue is full, resulting in the job being dropped
func (p *Pool) Enqueue(job Job) bool {
	if job.Exchange == nil {
		p.logger.Warn("job not queued, nil exchange")
		return false
	}

	select {
	case p.queue <- job:
		p.logger.Debug("job queued",
			"thread_id", job.Exchange.ThreadID,
			"component", job.Source.Component,
		)
		return true
	default:
		p.logger.Error("job not queued, queue full, job dropped",
			"thread_id", job.Exchange.ThreadID,
			"component", job.Source.Component,
		)
		return false
	}
}

// Observer returns a session observer that enqueues every finished
// submission as an exchange.
func (p *Pool) Observer(source eventstream.EventSource) func(session.Result) {
	return func(res session.Result) {
		p.Enqueue(Job{Exchange: ExchangeFromResult(res, source.Agent), Source: source})
	}
}

// Close signals workers to stop and waits for in-flight jobs to drain.
// Call this during graceful shutdown after the relay HTTP server has stopped.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		close(p.queue)
		p.wg.Wait()
	})
}

// worker is the inner worker thread that continuously pulls jobs off the jobs queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", "worker_id", id)

	for job := range p.queue {
		p.processJob(job)
	}

	p.logger.Debug("recording worker stopped", "worker_id", id)
}

// processJob stores the exchange and then publishes it. A publish failure
// is logged and does not undo the stored exchange.
func (p *Pool) processJob(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), p.config.JobTimeout)
	defer cancel()

	if err := p.config.Driver.Put(ctx, job.Exchange); err != nil {
		p.logger.Error("async transcript storage failed",
			"thread_id", job.Exchange.ThreadID,
			"error", err,
		)
		return
	}

	p.logger.Info("exchange stored",
		"id", job.Exchange.ID,
		"thread_id", job.Exchange.ThreadID,
		"failed", job.Exchange.Failed,
	)

	if p.config.Publisher == nil {
		return
	}

	event := eventstream.NewExchangeCompletedEvent(job.Exchange, job.Source)
	if err := p.config.Publisher.PublishExchange(ctx, event); err != nil {
		p.logger.Warn("failed to publish exchange event",
			"id", job.Exchange.ID,
			"error", err,
		)
	}
}

// ExchangeFromResult converts a finished session submission to an exchange.
func ExchangeFromResult(res session.Result, agent string) *transcript.Exchange {
	ex := &transcript.Exchange{
		ThreadID:  res.ThreadID,
		RunID:     res.RunID,
		Agent:     agent,
		Prompt:    res.Prompt,
		Response:  res.Text,
		Streamed:  res.Streamed,
		Failed:    res.Failed,
		Duration:  res.Duration,
		CreatedAt: res.StartedAt.UTC(),
	}
	if res.Err != nil {
		ex.Error = res.Err.Error()
	}
	return ex
}
