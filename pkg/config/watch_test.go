package config_test

import (
	"context"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/agentchat/pkg/config"
)

var _ = Describe("Watch", func() {
	It("reloads the config when the file changes", func() {
		dir := GinkgoT().TempDir()
		path := filepath.Join(dir, "config.toml")
		Expect(os.WriteFile(path, []byte("[relay]\nupstream = \"http://a:8080\"\n"), 0o600)).To(Succeed())

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		changes := make(chan *config.Config, 8)
		done := make(chan error, 1)
		go func() {
			done <- config.Watch(ctx, path, func(cfg *config.Config, err error) {
				if err == nil {
					changes <- cfg
				}
			})
		}()

		// Give the watcher time to register before writing.
		time.Sleep(100 * time.Millisecond)
		Expect(os.WriteFile(path, []byte("[relay]\nupstream = \"http://b:8080\"\n"), 0o600)).To(Succeed())

		Eventually(changes, 2*time.Second).Should(Receive(WithTransform(func(c *config.Config) string {
			return c.Relay.Upstream
		}, Equal("http://b:8080"))))

		cancel()
		Eventually(done, 2*time.Second).Should(Receive(MatchError(context.Canceled)))
	})

	It("rejects an empty path", func() {
		Expect(config.Watch(context.Background(), "", func(*config.Config, error) {})).To(HaveOccurred())
	})
})
