package chatcmder_test

import (
	"bytes"
	"io"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	chatcmder "github.com/papercomputeco/agentchat/cmd/agentchat/chat"
	"github.com/papercomputeco/agentchat/pkg/dotdir"
	testutils "github.com/papercomputeco/agentchat/pkg/utils/test"
)

var _ = Describe("NewChatCmd", func() {
	It("creates a command with expected properties", func() {
		cmd := chatcmder.NewChatCmd()
		Expect(cmd.Use).To(Equal("chat"))
		Expect(cmd.Flags().Lookup("new")).NotTo(BeNil())
		Expect(cmd.Flags().Lookup("no-record")).NotTo(BeNil())
	})
})

var _ = Describe("Chat command execution", func() {
	var (
		svc       *testutils.AgentService
		configDir string
	)

	BeforeEach(func() {
		svc = testutils.NewAgentService()
		DeferCleanup(svc.Close)
		configDir = GinkgoT().TempDir()
	})

	execute := func(stdin string, args ...string) (string, error) {
		cmd := chatcmder.NewChatCmd()
		cmd.PersistentFlags().String("config-dir", "", "Override the .agentchat/ directory")
		cmd.PersistentFlags().Bool("debug", false, "Enable debug logging")

		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetErr(io.Discard)
		cmd.SetIn(strings.NewReader(stdin))
		cmd.SetArgs(append(args, "--config-dir", configDir, "--base-url", svc.URL()))
		err := cmd.Execute()
		return out.String(), err
	}

	It("streams replies and saves the thread", func() {
		out, err := execute("hello\n/exit\n")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("Hello"))

		state, err := dotdir.NewManager().LoadThreadState(configDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(state).NotTo(BeNil())
		Expect(svc.LastRequest().JSON()).To(HaveKeyWithValue("thread_id", state.ThreadID))
	})

	It("resumes the saved thread", func() {
		_, err := execute("first\n/exit\n")
		Expect(err).NotTo(HaveOccurred())
		first := svc.LastRequest().JSON()["thread_id"]

		_, err = execute("second\n/exit\n")
		Expect(err).NotTo(HaveOccurred())
		Expect(svc.LastRequest().JSON()).To(HaveKeyWithValue("thread_id", first))
	})

	It("starts a new thread with --new", func() {
		_, err := execute("first\n/exit\n")
		Expect(err).NotTo(HaveOccurred())
		first := svc.LastRequest().JSON()["thread_id"]

		_, err = execute("second\n/exit\n", "--new")
		Expect(err).NotTo(HaveOccurred())
		Expect(svc.LastRequest().JSON()["thread_id"]).NotTo(Equal(first))
	})

	It("prints the thread id", func() {
		out, err := execute("/thread\n/exit\n", "--new")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("Thread:"))
		Expect(svc.Requests()).To(BeEmpty())
	})
})
