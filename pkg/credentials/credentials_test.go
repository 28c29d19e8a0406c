package credentials_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/agentchat/pkg/credentials"
)

var _ = Describe("Manager", func() {
	var (
		tmpDir string
		mgr    *credentials.Manager
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()

		var err error
		mgr, err = credentials.NewManager(tmpDir)
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("NewManager", func() {
		It("creates a manager with an override directory", func() {
			Expect(mgr.GetTarget()).To(Equal(filepath.Join(tmpDir, "credentials.toml")))
		})
	})

	Describe("Load", func() {
		It("returns empty credentials when no file exists", func() {
			creds, err := mgr.Load()
			Expect(err).NotTo(HaveOccurred())
			Expect(creds.Version).To(Equal(0))
			Expect(creds.Targets).To(BeEmpty())
		})

		It("loads existing credentials", func() {
			data := `version = 0

[targets.agent]
token = "secret-123"
`
			Expect(os.WriteFile(filepath.Join(tmpDir, "credentials.toml"), []byte(data), 0o600)).To(Succeed())

			creds, err := mgr.Load()
			Expect(err).NotTo(HaveOccurred())
			Expect(creds.Targets).To(HaveKey("agent"))
			Expect(creds.Targets["agent"].Token).To(Equal("secret-123"))
		})

		It("returns error for malformed TOML", func() {
			Expect(os.WriteFile(filepath.Join(tmpDir, "credentials.toml"), []byte("[[[bad"), 0o600)).To(Succeed())

			_, err := mgr.Load()
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Save", func() {
		It("persists credentials to disk with restricted permissions", func() {
			Expect(mgr.SetToken("agent", "secret")).To(Succeed())

			info, err := os.Stat(mgr.GetTarget())
			Expect(err).NotTo(HaveOccurred())
			Expect(info.Mode().Perm()).To(Equal(os.FileMode(0o600)))
		})

		It("returns error for nil credentials", func() {
			Expect(mgr.Save(nil)).To(HaveOccurred())
		})
	})

	Describe("SetToken", func() {
		It("overwrites an existing token and preserves other targets", func() {
			Expect(mgr.SetToken("agent", "first")).To(Succeed())
			Expect(mgr.SetToken("relay", "relay-secret")).To(Succeed())
			Expect(mgr.SetToken("agent", "second")).To(Succeed())

			token, err := mgr.GetToken("agent")
			Expect(err).NotTo(HaveOccurred())
			Expect(token).To(Equal("second"))

			token, err = mgr.GetToken("relay")
			Expect(err).NotTo(HaveOccurred())
			Expect(token).To(Equal("relay-secret"))
		})

		It("rejects unknown targets", func() {
			Expect(mgr.SetToken("openai", "sk-123")).To(HaveOccurred())
		})
	})

	Describe("RemoveToken", func() {
		It("removes an existing token", func() {
			Expect(mgr.SetToken("agent", "secret")).To(Succeed())
			Expect(mgr.RemoveToken("agent")).To(Succeed())

			token, err := mgr.GetToken("agent")
			Expect(err).NotTo(HaveOccurred())
			Expect(token).To(BeEmpty())
		})

		It("is a no-op for a target with no token", func() {
			Expect(mgr.RemoveToken("relay")).To(Succeed())
		})
	})

	Describe("ListTargets", func() {
		It("returns stored targets in sorted order", func() {
			Expect(mgr.SetToken("relay", "b")).To(Succeed())
			Expect(mgr.SetToken("agent", "a")).To(Succeed())

			targets, err := mgr.ListTargets()
			Expect(err).NotTo(HaveOccurred())
			Expect(targets).To(Equal([]string{"agent", "relay"}))
		})
	})

	Describe("Resolve", func() {
		BeforeEach(func() {
			GinkgoT().Setenv("AGENTCHAT_TOKEN", "")
		})

		It("prefers the explicit value", func() {
			GinkgoT().Setenv("AGENTCHAT_TOKEN", "from-env")
			Expect(mgr.SetToken("agent", "stored")).To(Succeed())

			token, src, err := mgr.Resolve("agent", "from-flag")
			Expect(err).NotTo(HaveOccurred())
			Expect(token).To(Equal("from-flag"))
			Expect(src).To(Equal(credentials.SourceFlag))
		})

		It("falls back to the environment", func() {
			GinkgoT().Setenv("AGENTCHAT_TOKEN", "from-env")
			Expect(mgr.SetToken("agent", "stored")).To(Succeed())

			token, src, err := mgr.Resolve("agent", "")
			Expect(err).NotTo(HaveOccurred())
			Expect(token).To(Equal("from-env"))
			Expect(src).To(Equal(credentials.SourceEnv))
		})

		It("falls back to the stored token", func() {
			Expect(mgr.SetToken("agent", "stored")).To(Succeed())

			token, src, err := mgr.Resolve("agent", "")
			Expect(err).NotTo(HaveOccurred())
			Expect(token).To(Equal("stored"))
			Expect(src).To(Equal(credentials.SourceStored))
		})

		It("returns no token when nothing is configured", func() {
			token, src, err := mgr.Resolve("agent", "")
			Expect(err).NotTo(HaveOccurred())
			Expect(token).To(BeEmpty())
			Expect(src).To(Equal(credentials.SourceNone))
		})
	})
})

var _ = Describe("EnvVarForTarget", func() {
	It("maps targets to environment variables", func() {
		Expect(credentials.EnvVarForTarget("agent")).To(Equal("AGENTCHAT_TOKEN"))
		Expect(credentials.EnvVarForTarget("relay")).To(Equal("AGENTCHAT_RELAY_TOKEN"))
		Expect(credentials.EnvVarForTarget("openai")).To(BeEmpty())
	})
})

var _ = Describe("IsSupportedTarget", func() {
	It("accepts agent and relay only", func() {
		Expect(credentials.IsSupportedTarget("agent")).To(BeTrue())
		Expect(credentials.IsSupportedTarget("relay")).To(BeTrue())
		Expect(credentials.IsSupportedTarget("anthropic")).To(BeFalse())
	})
})
