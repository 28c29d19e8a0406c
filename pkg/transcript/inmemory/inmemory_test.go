package inmemory_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/agentchat/pkg/transcript"
	"github.com/papercomputeco/agentchat/pkg/transcript/inmemory"
	"github.com/papercomputeco/agentchat/pkg/transcript/transcripttest"
)

var _ = Describe("Driver", func() {
	transcripttest.DescribeDriver(func() transcript.Driver {
		return inmemory.NewDriver()
	})

	It("returns copies so callers cannot mutate stored exchanges", func() {
		ctx := context.Background()
		d := inmemory.NewDriver()
		ex := transcripttest.NewExchange("t", "p", 0)
		Expect(d.Put(ctx, ex)).To(Succeed())

		got, err := d.Get(ctx, ex.ID)
		Expect(err).NotTo(HaveOccurred())
		got.Response = "changed"

		again, err := d.Get(ctx, ex.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(again.Response).To(Equal("answer to p"))
	})
})
