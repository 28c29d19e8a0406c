package provider_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/agentchat/pkg/config"
	"github.com/papercomputeco/agentchat/pkg/eventstream/kafka"
	"github.com/papercomputeco/agentchat/pkg/eventstream/nop"
	"github.com/papercomputeco/agentchat/pkg/eventstream/provider"
)

var _ = Describe("Open", func() {
	It("defaults to the nop publisher", func() {
		p, err := provider.Open(config.EventStreamConfig{}, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(p).To(BeAssignableToTypeOf(&nop.Publisher{}))
	})

	It("opens a kafka publisher", func() {
		p, err := provider.Open(config.EventStreamConfig{Provider: "kafka", Brokers: "localhost:9092", Topic: "t"}, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(p).To(BeAssignableToTypeOf(&kafka.Publisher{}))
		Expect(p.Close()).To(Succeed())
	})

	It("requires brokers for kafka", func() {
		_, err := provider.Open(config.EventStreamConfig{Provider: "kafka", Topic: "t"}, nil)
		Expect(err).To(HaveOccurred())
	})

	It("rejects unknown providers", func() {
		_, err := provider.Open(config.EventStreamConfig{Provider: "nats"}, nil)
		Expect(err).To(HaveOccurred())
	})
})
