package agent_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/agentchat/pkg/agent"
)

var _ = Describe("InvokeResult", func() {
	DescribeTable("DisplayText",
		func(body, want string) {
			res, err := agent.DecodeInvokeResult([]byte(body))
			Expect(err).NotTo(HaveOccurred())
			Expect(res.DisplayText()).To(Equal(want))
		},
		Entry("string content", `{"type":"ai","content":"Hello"}`, "Hello"),
		Entry("nested content", `{"content":{"content":"Nested"}}`, "Nested"),
		Entry("response field", `{"response":"From response"}`, "From response"),
		Entry("content preferred over response", `{"content":"c","response":"r"}`, "c"),
		Entry("non-string content falls through to response", `{"content":42,"response":"r"}`, "r"),
		Entry("full JSON fallback", `{"output":{"text":"x"}}`, `{"output":{"text":"x"}}`),
		Entry("non-object JSON", `"just a string"`, `"just a string"`),
	)

	It("rejects invalid JSON", func() {
		_, err := agent.DecodeInvokeResult([]byte("not json"))
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("StatusError", func() {
	It("uses the detail field of JSON bodies", func() {
		err := &agent.StatusError{Code: 500, Body: `{"detail":"Unexpected error"}`}
		Expect(err.Error()).To(Equal("agent service returned status 500: Unexpected error"))
	})

	It("falls back to the raw body", func() {
		err := &agent.StatusError{Code: 502, Body: "bad gateway\n"}
		Expect(err.Error()).To(Equal("agent service returned status 502: bad gateway"))
	})

	It("omits an empty body", func() {
		err := &agent.StatusError{Code: 503}
		Expect(err.Error()).To(Equal("agent service returned status 503"))
	})
})
