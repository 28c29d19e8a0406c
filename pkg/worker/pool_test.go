package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/agentchat/pkg/eventstream"
	"github.com/papercomputeco/agentchat/pkg/session"
	"github.com/papercomputeco/agentchat/pkg/transcript"
	"github.com/papercomputeco/agentchat/pkg/transcript/inmemory"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*eventstream.ExchangeCompletedEvent
	err    error
}

func (p *recordingPublisher) PublishExchange(_ context.Context, event *eventstream.ExchangeCompletedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) Events() []*eventstream.ExchangeCompletedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*eventstream.ExchangeCompletedEvent(nil), p.events...)
}

type failingDriver struct {
	transcript.Driver
}

func (failingDriver) Put(context.Context, *transcript.Exchange) error {
	return errors.New("disk full")
}

// newTestPool creates a worker pool backed by an in-memory driver.
// Callers should "wp.Close()" to drain enqueued jobs before asserting storage state.
func newTestPool(pub eventstream.Publisher) (*Pool, *inmemory.Driver) {
	driver := inmemory.NewDriver()

	wp, err := NewPool(&Config{
		Driver:    driver,
		Publisher: pub,
	})
	Expect(err).NotTo(HaveOccurred())

	return wp, driver
}

func exchange(thread, prompt string) *transcript.Exchange {
	return &transcript.Exchange{
		ThreadID:  thread,
		Agent:     "research-assistant",
		Prompt:    prompt,
		Response:  "Hello",
		Streamed:  true,
		CreatedAt: time.Now().UTC(),
	}
}

var _ = Describe("Worker Pool", func() {
	var (
		wp     *Pool
		driver *inmemory.Driver
		pub    *recordingPublisher
		ctx    context.Context
	)

	BeforeEach(func() {
		pub = &recordingPublisher{}
		wp, driver = newTestPool(pub)
		ctx = context.Background()
	})

	Describe("NewPool", func() {
		It("requires a driver", func() {
			_, err := NewPool(&Config{})
			Expect(err).To(HaveOccurred())
			wp.Close()
		})

		It("applies defaults", func() {
			Expect(wp.config.NumWorkers).To(Equal(defaultNumWorkers))
			Expect(cap(wp.queue)).To(Equal(int(defaultJobQueueSize)))
			Expect(wp.config.JobTimeout).To(Equal(defaultJobTimeout))
			wp.Close()
		})
	})

	Describe("Enqueue", func() {
		It("returns true when the queue has capacity", func() {
			Expect(wp.Enqueue(Job{Exchange: exchange("t-1", "hi")})).To(BeTrue())
			wp.Close()
		})

		It("rejects a job without an exchange", func() {
			Expect(wp.Enqueue(Job{})).To(BeFalse())
			wp.Close()
		})

		It("drops jobs when the queue is full", func() {
			wp.Close()

			blocked := &Pool{queue: make(chan Job, 1), logger: wp.logger}
			Expect(blocked.Enqueue(Job{Exchange: exchange("t-1", "one")})).To(BeTrue())
			Expect(blocked.Enqueue(Job{Exchange: exchange("t-1", "two")})).To(BeFalse())
		})
	})

	Describe("processing", func() {
		It("stores and publishes every enqueued exchange", func() {
			source := eventstream.EventSource{Component: "chat", Agent: "research-assistant"}
			Expect(wp.Enqueue(Job{Exchange: exchange("t-1", "first"), Source: source})).To(BeTrue())
			Expect(wp.Enqueue(Job{Exchange: exchange("t-1", "second"), Source: source})).To(BeTrue())
			wp.Close()

			stored, err := driver.ListByThread(ctx, "t-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(stored).To(HaveLen(2))

			events := pub.Events()
			Expect(events).To(HaveLen(2))
			Expect(events[0].Source.Component).To(Equal("chat"))
			Expect(events[0].EventType).To(Equal(eventstream.EventTypeExchangeCompleted))
		})

		It("keeps the stored exchange when publishing fails", func() {
			pub.err = errors.New("broker down")
			Expect(wp.Enqueue(Job{Exchange: exchange("t-2", "hi")})).To(BeTrue())
			wp.Close()

			stored, err := driver.ListByThread(ctx, "t-2")
			Expect(err).NotTo(HaveOccurred())
			Expect(stored).To(HaveLen(1))
		})

		It("does not publish when storage fails", func() {
			wp.Close()

			failing, err := NewPool(&Config{Driver: failingDriver{}, Publisher: pub})
			Expect(err).NotTo(HaveOccurred())
			Expect(failing.Enqueue(Job{Exchange: exchange("t-3", "hi")})).To(BeTrue())
			failing.Close()

			Expect(pub.Events()).To(BeEmpty())
		})

		It("works without a publisher", func() {
			wp.Close()

			d := inmemory.NewDriver()
			p, err := NewPool(&Config{Driver: d})
			Expect(err).NotTo(HaveOccurred())
			Expect(p.Enqueue(Job{Exchange: exchange("t-4", "hi")})).To(BeTrue())
			p.Close()

			stored, err := d.List(ctx, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored).To(HaveLen(1))
		})
	})

	Describe("Close", func() {
		It("is safe to call twice", func() {
			wp.Close()
			Expect(wp.Close).NotTo(Panic())
		})
	})

	Describe("Observer", func() {
		It("records session results", func() {
			observe := wp.Observer(eventstream.EventSource{Component: "chat", Agent: "chatbot"})
			observe(session.Result{
				Prompt:    "hi",
				Text:      "Error: boom",
				ThreadID:  "t-5",
				Failed:    true,
				Err:       errors.New("boom"),
				StartedAt: time.Now(),
				Duration:  time.Second,
			})
			wp.Close()

			stored, err := driver.ListByThread(ctx, "t-5")
			Expect(err).NotTo(HaveOccurred())
			Expect(stored).To(HaveLen(1))
			Expect(stored[0].Agent).To(Equal("chatbot"))
			Expect(stored[0].Failed).To(BeTrue())
			Expect(stored[0].Error).To(Equal("boom"))
			Expect(stored[0].Duration).To(Equal(time.Second))
		})
	})
})
