package sqlite_test

import (
	"context"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/agentchat/pkg/transcript"
	"github.com/papercomputeco/agentchat/pkg/transcript/sqlite"
	"github.com/papercomputeco/agentchat/pkg/transcript/transcripttest"
)

var _ = Describe("Driver", func() {
	transcripttest.DescribeDriver(func() transcript.Driver {
		d, err := sqlite.NewDriver(context.Background(), ":memory:")
		Expect(err).NotTo(HaveOccurred())
		return d
	})

	Describe("NewDriver", func() {
		It("persists to a database file across reopen", func() {
			ctx := context.Background()
			dbPath := filepath.Join(GinkgoT().TempDir(), "agentchat.db")

			d, err := sqlite.NewDriver(ctx, dbPath)
			Expect(err).NotTo(HaveOccurred())
			ex := transcripttest.NewExchange("thread-1", "hi", 0)
			Expect(d.Put(ctx, ex)).To(Succeed())
			Expect(d.Close()).To(Succeed())

			reopened, err := sqlite.NewDriver(ctx, dbPath)
			Expect(err).NotTo(HaveOccurred())
			defer reopened.Close()

			got, err := reopened.Get(ctx, ex.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Prompt).To(Equal("hi"))
		})

		It("fails for an unwritable path", func() {
			_, err := sqlite.NewDriver(context.Background(), "/nonexistent-dir/sub/agentchat.db")
			Expect(err).To(HaveOccurred())
		})
	})
})
