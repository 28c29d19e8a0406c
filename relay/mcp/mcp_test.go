package mcp

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/agentchat/pkg/agent"
	"github.com/papercomputeco/agentchat/pkg/logger"
	"github.com/papercomputeco/agentchat/pkg/transcript"
	"github.com/papercomputeco/agentchat/pkg/transcript/inmemory"
	testutils "github.com/papercomputeco/agentchat/pkg/utils/test"
)

func resultText(res *mcp.CallToolResult) string {
	Expect(res.Content).To(HaveLen(1))
	text, ok := res.Content[0].(*mcp.TextContent)
	Expect(ok).To(BeTrue())
	return text.Text
}

var _ = Describe("MCP Server", func() {
	var (
		service  *testutils.AgentService
		client   *agent.Client
		driver   *inmemory.Driver
		recorded []*transcript.Exchange
		server   *Server
		ctx      context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		service = testutils.NewAgentService()
		driver = inmemory.NewDriver()
		recorded = nil

		var err error
		client, err = agent.New(agent.Config{BaseURL: service.URL(), Agent: "chatbot"})
		Expect(err).NotTo(HaveOccurred())

		server, err = NewServer(Config{
			Client: client,
			Driver: driver,
			Record: func(ex *transcript.Exchange) { recorded = append(recorded, ex) },
			Logger: logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		service.Close()
	})

	Describe("NewServer", func() {
		It("returns an error when the agent client is nil", func() {
			_, err := NewServer(Config{Driver: driver, Logger: logger.Nop()})
			Expect(err).To(MatchError(ContainSubstring("agent client is required")))
		})

		It("returns an error when the driver is nil", func() {
			_, err := NewServer(Config{Client: client, Logger: logger.Nop()})
			Expect(err).To(MatchError(ContainSubstring("transcript driver is required")))
		})

		It("returns an error when logger is nil", func() {
			_, err := NewServer(Config{Client: client, Driver: driver})
			Expect(err).To(MatchError(ContainSubstring("logger is required")))
		})

		It("builds an empty server in noop mode", func() {
			s, err := NewServer(Config{Noop: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Handler()).NotTo(BeNil())
		})

		It("returns an HTTP handler", func() {
			Expect(server.Handler()).NotTo(BeNil())
		})
	})

	Describe("ask_agent", func() {
		It("invokes the agent and records the exchange", func() {
			res, out, err := server.handleAsk(ctx, nil, AskInput{Message: "hi", ThreadID: "t-1"})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeFalse())
			Expect(out.Reply).To(Equal("Hello"))
			Expect(out.RunID).To(Equal("run-1"))
			Expect(resultText(res)).To(ContainSubstring(`"reply":"Hello"`))

			req := service.LastRequest()
			Expect(req.Path).To(Equal("/chatbot/invoke"))
			Expect(req.JSON()).To(HaveKeyWithValue("thread_id", "t-1"))

			Expect(recorded).To(HaveLen(1))
			Expect(recorded[0].Prompt).To(Equal("hi"))
			Expect(recorded[0].Response).To(Equal("Hello"))
			Expect(recorded[0].Agent).To(Equal("chatbot"))
		})

		It("targets another agent when asked", func() {
			_, _, err := server.handleAsk(ctx, nil, AskInput{Message: "hi", Agent: "research-assistant"})
			Expect(err).NotTo(HaveOccurred())
			Expect(service.LastRequest().Path).To(Equal("/research-assistant/invoke"))
		})

		It("rejects an empty message without calling the agent", func() {
			res, _, err := server.handleAsk(ctx, nil, AskInput{Message: "   "})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeTrue())
			Expect(service.Requests()).To(BeEmpty())
			Expect(recorded).To(BeEmpty())
		})

		It("reports agent failures as tool errors", func() {
			service.Status = http.StatusInternalServerError
			service.StatusBody = `{"detail":"boom"}`

			res, _, err := server.handleAsk(ctx, nil, AskInput{Message: "hi"})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeTrue())
			Expect(resultText(res)).To(ContainSubstring("Agent request failed"))
			Expect(recorded).To(HaveLen(1))
			Expect(recorded[0].Failed).To(BeTrue())
		})
	})

	Describe("list_transcripts", func() {
		BeforeEach(func() {
			base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
			for i := range 3 {
				Expect(driver.Put(ctx, &transcript.Exchange{
					ThreadID:  "t-1",
					Prompt:    fmt.Sprintf("question %d", i),
					Response:  "answer",
					CreatedAt: base.Add(time.Duration(i) * time.Minute),
				})).To(Succeed())
			}
			Expect(driver.Put(ctx, &transcript.Exchange{
				ThreadID:  "t-2",
				Prompt:    "other",
				CreatedAt: base.Add(time.Hour),
			})).To(Succeed())
		})

		It("lists recent exchanges newest first", func() {
			res, out, err := server.handleListTranscripts(ctx, nil, ListTranscriptsInput{Limit: 2})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeFalse())
			Expect(out.Count).To(Equal(2))
			Expect(out.Exchanges[0].Prompt).To(Equal("other"))
		})

		It("lists the tail of one thread in order", func() {
			_, out, err := server.handleListTranscripts(ctx, nil, ListTranscriptsInput{ThreadID: "t-1", Limit: 2})
			Expect(err).NotTo(HaveOccurred())
			Expect(out.Count).To(Equal(2))
			Expect(out.Exchanges[0].Prompt).To(Equal("question 1"))
			Expect(out.Exchanges[1].Prompt).To(Equal("question 2"))
		})
	})
})
