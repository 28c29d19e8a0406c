package stream_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/agentchat/pkg/stream"
)

func mustEvent(raw string) *stream.Event {
	line := stream.ParseLine(raw)
	ExpectWithOffset(1, line.Kind).To(Equal(stream.KindEvent))
	return line.Event
}

var _ = Describe("Event", func() {
	Describe("Fragment", func() {
		It("returns content.content of message events", func() {
			frag, ok := mustEvent(`{"type":"message","content":{"type":"ai","content":"Hello"}}`).Fragment()
			Expect(ok).To(BeTrue())
			Expect(frag).To(Equal("Hello"))
		})

		It("accepts an empty fragment", func() {
			frag, ok := mustEvent(`{"type":"message","content":{"content":""}}`).Fragment()
			Expect(ok).To(BeTrue())
			Expect(frag).To(BeEmpty())
		})

		DescribeTable("rejects events without a string fragment",
			func(raw string) {
				_, ok := mustEvent(raw).Fragment()
				Expect(ok).To(BeFalse())
			},
			Entry("tool_call type", `{"type":"tool_call","content":{"content":"x"}}`),
			Entry("token type", `{"type":"token","content":"x"}`),
			Entry("missing type", `{"content":{"content":"x"}}`),
			Entry("missing content", `{"type":"message"}`),
			Entry("string content", `{"type":"message","content":"x"}`),
			Entry("numeric fragment", `{"type":"message","content":{"content":42}}`),
			Entry("null fragment", `{"type":"message","content":{"content":null}}`),
		)
	})

	Describe("Message", func() {
		It("decodes tool calls and the run id", func() {
			msg, ok := mustEvent(`{"type":"message","content":{"type":"ai","content":"","tool_calls":[{"name":"Calculator","args":{"expression":"2+2"},"id":"call_1"}],"run_id":"run-9"}}`).Message()
			Expect(ok).To(BeTrue())
			Expect(msg.Type).To(Equal("ai"))
			Expect(msg.RunID).To(Equal("run-9"))
			Expect(msg.ToolCalls).To(HaveLen(1))
			Expect(msg.ToolCalls[0].Name).To(Equal("Calculator"))
			Expect(msg.ToolCalls[0].Args).To(HaveKeyWithValue("expression", "2+2"))
		})
	})

	Describe("Token", func() {
		It("returns the token text", func() {
			tok, ok := mustEvent(`{"type":"token","content":"Hel"}`).Token()
			Expect(ok).To(BeTrue())
			Expect(tok).To(Equal("Hel"))
		})
	})

	Describe("ErrorText", func() {
		It("returns string error content", func() {
			text, ok := mustEvent(`{"type":"error","content":"Unexpected error"}`).ErrorText()
			Expect(ok).To(BeTrue())
			Expect(text).To(Equal("Unexpected error"))
		})

		It("returns structured error content as JSON", func() {
			text, ok := mustEvent(`{"type":"error","content":{"code":500}}`).ErrorText()
			Expect(ok).To(BeTrue())
			Expect(text).To(Equal(`{"code":500}`))
		})

		It("rejects other types", func() {
			_, ok := mustEvent(`{"type":"message","content":{}}`).ErrorText()
			Expect(ok).To(BeFalse())
		})
	})
})
