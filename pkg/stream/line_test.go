package stream_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/agentchat/pkg/stream"
)

var _ = Describe("ParseLine", func() {
	DescribeTable("classifies lines",
		func(raw string, kind stream.Kind) {
			Expect(stream.ParseLine(raw).Kind).To(Equal(kind))
		},
		Entry("empty", "", stream.KindBlank),
		Entry("whitespace", "   \t", stream.KindBlank),
		Entry("bare sentinel", "[DONE]", stream.KindSentinel),
		Entry("sentinel with surrounding whitespace", "  [DONE] ", stream.KindSentinel),
		Entry("prefixed sentinel", "data: [DONE]", stream.KindSentinel),
		Entry("bare event", `{"type":"message","content":{"content":"hi"}}`, stream.KindEvent),
		Entry("prefixed event", `data: {"type":"token","content":"hi"}`, stream.KindEvent),
		Entry("not json", "not json", stream.KindMalformed),
		Entry("truncated json", `data: {"type":"mess`, stream.KindMalformed),
		Entry("json array", `data: [1,2]`, stream.KindMalformed),
		Entry("prefix without space", `data:{"type":"message"}`, stream.KindMalformed),
	)

	It("strips the data prefix exactly once", func() {
		line := stream.ParseLine(`data: data: {}`)
		Expect(line.Payload).To(Equal(`data: {}`))
		Expect(line.Kind).To(Equal(stream.KindMalformed))
	})

	It("retains the parse error for malformed lines", func() {
		line := stream.ParseLine("not json")
		Expect(line.Err).To(HaveOccurred())
		Expect(line.Event).To(BeNil())
		Expect(line.Raw).To(Equal("not json"))
	})

	It("decodes the event for event lines", func() {
		line := stream.ParseLine(`data: {"type":"message","content":{"content":"Hel"}}`)
		Expect(line.Err).NotTo(HaveOccurred())
		Expect(line.Event.Type).To(Equal("message"))
	})

	It("names each kind", func() {
		Expect(stream.KindBlank.String()).To(Equal("blank"))
		Expect(stream.KindSentinel.String()).To(Equal("sentinel"))
		Expect(stream.KindEvent.String()).To(Equal("event"))
		Expect(stream.KindMalformed.String()).To(Equal("malformed"))
	})
})
