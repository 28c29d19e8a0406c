package tuicmder

import (
	"context"
	"errors"
	"sync"

	bubbletea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/agentchat/pkg/session"
)

type fakeSession struct {
	mu       sync.Mutex
	inputs   []string
	canceled int
	result   session.Result
	err      error
	thread   string
}

func (f *fakeSession) Submit(_ context.Context, input string) (session.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, input)
	res := f.result
	res.Prompt = input
	return res, f.err
}

func (f *fakeSession) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.canceled++
}

func (f *fakeSession) NewThread() (string, error) {
	f.thread = "thread-2"
	return f.thread, nil
}

func (f *fakeSession) ThreadID() string {
	return f.thread
}

func plainRender(text string, width int) string {
	return ansi.Wrap(text, width, "")
}

func update(m model, msg bubbletea.Msg) (model, bubbletea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(model), cmd
}

// collect runs cmd and every command it batches, returning the messages.
func collect(cmd bubbletea.Cmd) []bubbletea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(bubbletea.BatchMsg); ok {
		var out []bubbletea.Msg
		for _, c := range batch {
			out = append(out, collect(c)...)
		}
		return out
	}
	return []bubbletea.Msg{msg}
}

func resultOf(msgs []bubbletea.Msg) (resultMsg, bool) {
	for _, msg := range msgs {
		if r, ok := msg.(resultMsg); ok {
			return r, true
		}
	}
	return resultMsg{}, false
}

var enter = bubbletea.KeyMsg{Type: bubbletea.KeyEnter}

var _ = Describe("model", func() {
	var (
		sess *fakeSession
		m    model
	)

	BeforeEach(func() {
		sess = &fakeSession{thread: "thread-1", result: session.Result{Text: "Hello **there**"}}
		m = newModel(context.Background(), sess, "chatbot")
		m.render = plainRender
		m, _ = update(m, bubbletea.WindowSizeMsg{Width: 80, Height: 24})
	})

	typeText := func(text string) {
		m.input.SetValue(text)
	}

	It("sizes the viewport around the chrome", func() {
		Expect(m.ready).To(BeTrue())
		Expect(m.viewport.Width).To(Equal(80))
		Expect(m.viewport.Height).To(Equal(24 - chrome))
	})

	It("submits the input and shows the reply", func() {
		typeText("  hi  ")
		var cmd bubbletea.Cmd
		m, cmd = update(m, enter)

		Expect(m.loading).To(BeTrue())
		Expect(m.input.Value()).To(BeEmpty())
		Expect(m.entries).To(HaveLen(1))
		Expect(m.entries[0]).To(Equal(entry{role: roleUser, text: "hi"}))

		res, ok := resultOf(collect(cmd))
		Expect(ok).To(BeTrue())
		Expect(sess.inputs).To(Equal([]string{"hi"}))

		m, _ = update(m, res)
		Expect(m.loading).To(BeFalse())
		Expect(m.exchanges).To(Equal(1))
		Expect(m.entries).To(HaveLen(2))
		Expect(m.entries[1].text).To(Equal("Hello **there**"))
		Expect(m.View()).To(ContainSubstring("Hello **there**"))
	})

	It("ignores empty input", func() {
		typeText("   ")
		var cmd bubbletea.Cmd
		m, cmd = update(m, enter)
		Expect(cmd).To(BeNil())
		Expect(m.loading).To(BeFalse())
		Expect(m.entries).To(BeEmpty())
	})

	It("ignores Enter while a reply is in flight", func() {
		typeText("first")
		m, _ = update(m, enter)

		typeText("second")
		var cmd bubbletea.Cmd
		m, cmd = update(m, enter)
		Expect(cmd).To(BeNil())
		Expect(m.input.Value()).To(Equal("second"))
		Expect(m.entries).To(HaveLen(1))
	})

	It("shows streamed text while loading", func() {
		typeText("hi")
		m, _ = update(m, enter)

		m, _ = update(m, stateMsg{Text: "Hel", Loading: true})
		Expect(m.streaming).To(Equal("Hel"))
		Expect(m.View()).To(ContainSubstring("Hel"))
		Expect(m.View()).To(ContainSubstring("esc to cancel"))
	})

	It("ignores session states when idle", func() {
		m, _ = update(m, stateMsg{Text: "stale", Loading: true})
		Expect(m.streaming).To(BeEmpty())
	})

	It("cancels the reply in flight on Esc", func() {
		typeText("hi")
		m, _ = update(m, enter)
		m, _ = update(m, stateMsg{Text: "partial", Loading: true})

		var cmd bubbletea.Cmd
		m, cmd = update(m, bubbletea.KeyMsg{Type: bubbletea.KeyEsc})
		Expect(sess.canceled).To(BeZero())
		collect(cmd)
		Expect(sess.canceled).To(Equal(1))

		m, _ = update(m, resultMsg{err: session.ErrCanceled})
		Expect(m.loading).To(BeFalse())
		Expect(m.exchanges).To(Equal(0))
		last := m.entries[len(m.entries)-1]
		Expect(last.canceled).To(BeTrue())
		Expect(last.text).To(Equal("partial"))
		Expect(m.View()).To(ContainSubstring("(canceled)"))
	})

	It("does not cancel when idle", func() {
		var cmd bubbletea.Cmd
		m, cmd = update(m, bubbletea.KeyMsg{Type: bubbletea.KeyEsc})
		Expect(cmd).To(BeNil())
		Expect(sess.canceled).To(BeZero())
	})

	It("drops states from an abandoned request", func() {
		typeText("hi")
		m, _ = update(m, enter)
		m, _ = update(m, stateMsg{Text: "", Loading: true, Generation: 3})

		m, _ = update(m, stateMsg{Text: "old", Loading: true, Generation: 1})
		Expect(m.streaming).To(BeEmpty())

		m, _ = update(m, stateMsg{Text: "new", Loading: true, Generation: 3})
		Expect(m.streaming).To(Equal("new"))
	})

	It("shows failures", func() {
		typeText("hi")
		m, _ = update(m, enter)

		m, _ = update(m, resultMsg{
			res: session.Result{Text: session.ErrorPrefix + "connection refused", Failed: true},
			err: errors.New("connection refused"),
		})
		last := m.entries[len(m.entries)-1]
		Expect(last.failed).To(BeTrue())
		Expect(m.View()).To(ContainSubstring("Error: connection refused"))
	})

	It("starts a new thread on /new", func() {
		typeText("/new")
		var cmd bubbletea.Cmd
		m, cmd = update(m, enter)
		Expect(cmd).To(BeNil())
		Expect(sess.inputs).To(BeEmpty())
		Expect(m.entries).To(HaveLen(1))
		Expect(m.entries[0].text).To(ContainSubstring("thread-2"))
		Expect(m.View()).To(ContainSubstring("thread thread-2"))
	})

	It("cancels and quits on ctrl+c", func() {
		typeText("hi")
		m, _ = update(m, enter)

		var cmd bubbletea.Cmd
		m, cmd = update(m, bubbletea.KeyMsg{Type: bubbletea.KeyCtrlC})
		Expect(cmd).NotTo(BeNil())
		Expect(collect(cmd)).To(ContainElement(bubbletea.QuitMsg{}))
		Expect(sess.canceled).To(Equal(1))
	})
})
