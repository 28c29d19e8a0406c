// Package transcripttest holds behavior specs shared by every
// transcript.Driver implementation.
package transcripttest

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/agentchat/pkg/transcript"
)

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// NewExchange returns an exchange created offset minutes after a fixed base time.
func NewExchange(thread, prompt string, offset int) *transcript.Exchange {
	return &transcript.Exchange{
		ThreadID:  thread,
		RunID:     "run-" + prompt,
		Agent:     "chatbot",
		Prompt:    prompt,
		Response:  "answer to " + prompt,
		Streamed:  true,
		Duration:  1500 * time.Millisecond,
		CreatedAt: base.Add(time.Duration(offset) * time.Minute),
	}
}

// DescribeDriver registers the shared driver specs. newDriver is called
// before each spec; the returned driver is closed after it.
func DescribeDriver(newDriver func() transcript.Driver) {
	var (
		driver transcript.Driver
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		driver = newDriver()
	})

	AfterEach(func() {
		if driver != nil {
			Expect(driver.Close()).To(Succeed())
		}
	})

	Describe("Put and Get", func() {
		It("round trips every field", func() {
			ex := NewExchange("thread-1", "hi", 0)
			ex.Failed = true
			ex.Error = "agent service returned status 500"
			Expect(driver.Put(ctx, ex)).To(Succeed())
			Expect(ex.ID).NotTo(BeEmpty())

			got, err := driver.Get(ctx, ex.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ThreadID).To(Equal("thread-1"))
			Expect(got.RunID).To(Equal("run-hi"))
			Expect(got.Agent).To(Equal("chatbot"))
			Expect(got.Prompt).To(Equal("hi"))
			Expect(got.Response).To(Equal("answer to hi"))
			Expect(got.Streamed).To(BeTrue())
			Expect(got.Failed).To(BeTrue())
			Expect(got.Error).To(Equal("agent service returned status 500"))
			Expect(got.Duration).To(Equal(1500 * time.Millisecond))
			Expect(got.CreatedAt.Equal(ex.CreatedAt)).To(BeTrue())
		})

		It("keeps multi-byte text intact", func() {
			ex := NewExchange("thread-1", "Grüße", 0)
			ex.Response = "世界 🎉"
			Expect(driver.Put(ctx, ex)).To(Succeed())

			got, err := driver.Get(ctx, ex.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Response).To(Equal("世界 🎉"))
		})

		It("assigns a creation time when unset", func() {
			ex := &transcript.Exchange{ThreadID: "t", Prompt: "p", Response: "r"}
			Expect(driver.Put(ctx, ex)).To(Succeed())
			Expect(ex.CreatedAt).NotTo(BeZero())
		})

		It("rejects a duplicate ID", func() {
			ex := NewExchange("thread-1", "hi", 0)
			Expect(driver.Put(ctx, ex)).To(Succeed())

			dup := NewExchange("thread-1", "again", 1)
			dup.ID = ex.ID
			Expect(driver.Put(ctx, dup)).To(HaveOccurred())
		})

		It("rejects a nil exchange", func() {
			Expect(driver.Put(ctx, nil)).To(HaveOccurred())
		})

		It("returns NotFoundError for unknown IDs", func() {
			_, err := driver.Get(ctx, "missing")
			var nf transcript.NotFoundError
			Expect(errors.As(err, &nf)).To(BeTrue())
			Expect(nf.ID).To(Equal("missing"))
		})
	})

	Describe("List", func() {
		BeforeEach(func() {
			Expect(driver.Put(ctx, NewExchange("thread-1", "first", 0))).To(Succeed())
			Expect(driver.Put(ctx, NewExchange("thread-2", "second", 1))).To(Succeed())
			Expect(driver.Put(ctx, NewExchange("thread-1", "third", 2))).To(Succeed())
		})

		It("returns exchanges newest first", func() {
			all, err := driver.List(ctx, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(prompts(all)).To(Equal([]string{"third", "second", "first"}))
		})

		It("honors the limit", func() {
			some, err := driver.List(ctx, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(prompts(some)).To(Equal([]string{"third", "second"}))
		})

		It("lists one thread oldest first", func() {
			thread, err := driver.ListByThread(ctx, "thread-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(prompts(thread)).To(Equal([]string{"first", "third"}))

			none, err := driver.ListByThread(ctx, "thread-9")
			Expect(err).NotTo(HaveOccurred())
			Expect(none).To(BeEmpty())
		})

		It("summarizes threads by most recent activity", func() {
			threads, err := driver.Threads(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(threads).To(HaveLen(2))
			Expect(threads[0].ThreadID).To(Equal("thread-1"))
			Expect(threads[0].Exchanges).To(Equal(2))
			Expect(threads[0].LastAt.Equal(base.Add(2 * time.Minute))).To(BeTrue())
			Expect(threads[1].ThreadID).To(Equal("thread-2"))
			Expect(threads[1].Exchanges).To(Equal(1))
		})
	})
}

func prompts(exs []*transcript.Exchange) []string {
	out := make([]string, 0, len(exs))
	for _, ex := range exs {
		out = append(out, ex.Prompt)
	}
	return out
}
