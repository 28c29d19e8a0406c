package kafka_test

import (
	"context"
	"encoding/json"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/papercomputeco/agentchat/pkg/eventstream"
	"github.com/papercomputeco/agentchat/pkg/eventstream/kafka"
	"github.com/papercomputeco/agentchat/pkg/transcript"
)

type fakeWriter struct {
	msgs   []kafkago.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

var _ = Describe("Publisher", func() {
	var (
		w *fakeWriter
		p *kafka.Publisher
	)

	BeforeEach(func() {
		w = &fakeWriter{}
		p = kafka.NewPublisherWithWriter(w, "agentchat.exchanges", nil)
	})

	It("requires brokers and a topic", func() {
		_, err := kafka.NewPublisher(kafka.Config{Topic: "t"})
		Expect(err).To(HaveOccurred())
		_, err = kafka.NewPublisher(kafka.Config{Brokers: []string{"localhost:9092"}})
		Expect(err).To(HaveOccurred())
	})

	It("creates a lazy writer without contacting brokers", func() {
		pub, err := kafka.NewPublisher(kafka.Config{Brokers: []string{"localhost:9092"}, Topic: "t"})
		Expect(err).NotTo(HaveOccurred())
		Expect(pub.Close()).To(Succeed())
	})

	It("writes the event keyed by thread ID", func() {
		event := eventstream.NewExchangeCompletedEvent(
			&transcript.Exchange{ID: "ex-1", ThreadID: "thread-1", Prompt: "hi", Response: "Hello"},
			eventstream.EventSource{Component: "cli"},
		)
		Expect(p.PublishExchange(context.Background(), event)).To(Succeed())

		Expect(w.msgs).To(HaveLen(1))
		msg := w.msgs[0]
		Expect(string(msg.Key)).To(Equal("thread-1"))
		Expect(msg.Headers).To(ContainElement(kafkago.Header{Key: "event_type", Value: []byte(eventstream.EventTypeExchangeCompleted)}))

		var decoded eventstream.ExchangeCompletedEvent
		Expect(json.Unmarshal(msg.Value, &decoded)).To(Succeed())
		Expect(decoded.EventID).To(Equal(event.EventID))
		Expect(decoded.Exchange.Response).To(Equal("Hello"))
	})

	It("rejects nil events", func() {
		Expect(p.PublishExchange(context.Background(), nil)).To(MatchError(eventstream.ErrNilExchangeEvent))
	})

	It("wraps writer errors", func() {
		w.err = errors.New("leader not available")
		err := p.PublishExchange(context.Background(), eventstream.NewExchangeCompletedEvent(&transcript.Exchange{}, eventstream.EventSource{}))
		Expect(err).To(MatchError(ContainSubstring("leader not available")))
	})

	It("closes the writer", func() {
		Expect(p.Close()).To(Succeed())
		Expect(w.closed).To(BeTrue())
	})
})
