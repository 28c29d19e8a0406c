package tuicmder

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	bubbletea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/papercomputeco/agentchat/pkg/cliui"
	"github.com/papercomputeco/agentchat/pkg/session"
)

// submitter is the part of *session.Session the model drives.
type submitter interface {
	Submit(ctx context.Context, input string) (session.Result, error)
	Cancel()
	NewThread() (string, error)
	ThreadID() string
}

// stateMsg carries a session snapshot published while a reply streams in.
type stateMsg session.State

type resultMsg struct {
	res session.Result
	err error
}

type entryRole int

const (
	roleUser entryRole = iota
	roleAgent
	roleSystem
)

type entry struct {
	role     entryRole
	text     string
	failed   bool
	canceled bool
}

type keyMap struct {
	Send     key.Binding
	Cancel   key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Quit     key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Send, k.Cancel, k.PageUp, k.PageDown, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

func defaultKeyMap() keyMap {
	return keyMap{
		Send:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
		Cancel:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel reply")),
		PageUp:   key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "scroll up")),
		PageDown: key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdn", "scroll down")),
		Quit:     key.NewBinding(key.WithKeys("ctrl+c", "ctrl+d"), key.WithHelp("ctrl+c", "quit")),
	}
}

var (
	tuiTitleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	tuiStatusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	tuiRuleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("237"))
)

// chrome is the number of rows outside the viewport: title, rule, status,
// input and help.
const chrome = 5

type model struct {
	ctx  context.Context
	sess submitter

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	help     help.Model
	keys     keyMap

	agentName string
	entries   []entry
	streaming string
	loading   bool
	exchanges int

	// generation is the newest session generation seen; older states
	// belong to an abandoned request.
	generation uint64

	width  int
	height int
	ready  bool

	render func(text string, width int) string
}

func newModel(ctx context.Context, sess submitter, agentName string) model {
	input := textinput.New()
	input.Placeholder = "Message the agent"
	input.Prompt = "› "
	input.Focus()

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))

	return model{
		ctx:       ctx,
		sess:      sess,
		input:     input,
		spinner:   sp,
		help:      help.New(),
		keys:      defaultKeyMap(),
		agentName: agentName,
		render:    renderMarkdown,
	}
}

func (m model) Init() bubbletea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg bubbletea.Msg) (bubbletea.Model, bubbletea.Cmd) {
	switch msg := msg.(type) {
	case bubbletea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		height := max(msg.Height-chrome, 1)
		if !m.ready {
			m.viewport = viewport.New(msg.Width, height)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = height
		}
		m.input.Width = max(msg.Width-4, 10)
		m.help.Width = msg.Width
		m.refresh()
		return m, nil

	case bubbletea.KeyMsg:
		return m.handleKey(msg)

	case stateMsg:
		if msg.Generation < m.generation {
			return m, nil
		}
		m.generation = msg.Generation
		if m.loading && msg.Loading {
			m.streaming = msg.Text
			m.refresh()
		}
		return m, nil

	case resultMsg:
		return m.finish(msg), nil

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd bubbletea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd bubbletea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) handleKey(msg bubbletea.KeyMsg) (bubbletea.Model, bubbletea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.loading {
			return m, bubbletea.Batch(m.cancel(), bubbletea.Quit)
		}
		return m, bubbletea.Quit

	case key.Matches(msg, m.keys.Cancel):
		if m.loading {
			return m, m.cancel()
		}
		return m, nil

	case key.Matches(msg, m.keys.Send):
		if m.loading {
			return m, nil
		}
		text := strings.TrimSpace(m.input.Value())
		if text == "" {
			return m, nil
		}
		m.input.Reset()

		if text == "/new" {
			return m.newThread(), nil
		}

		m.entries = append(m.entries, entry{role: roleUser, text: text})
		m.loading = true
		m.streaming = ""
		m.refresh()
		return m, bubbletea.Batch(m.spinner.Tick, m.submit(text))

	case key.Matches(msg, m.keys.PageUp), key.Matches(msg, m.keys.PageDown):
		var cmd bubbletea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd bubbletea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) submit(text string) bubbletea.Cmd {
	ctx, sess := m.ctx, m.sess
	return func() bubbletea.Msg {
		res, err := sess.Submit(ctx, text)
		return resultMsg{res: res, err: err}
	}
}

// cancel runs Session.Cancel off the event loop: it waits for any
// publication in progress, which may itself be waiting on the loop.
func (m model) cancel() bubbletea.Cmd {
	sess := m.sess
	return func() bubbletea.Msg {
		sess.Cancel()
		return nil
	}
}

func (m model) finish(msg resultMsg) model {
	m.loading = false

	switch {
	case errors.Is(msg.err, session.ErrCanceled):
		m.entries = append(m.entries, entry{role: roleAgent, text: m.streaming, canceled: true})
	case msg.err != nil:
		m.entries = append(m.entries, entry{role: roleAgent, text: msg.res.Text, failed: true})
	default:
		m.entries = append(m.entries, entry{role: roleAgent, text: msg.res.Text, failed: msg.res.AgentError != ""})
		m.exchanges++
	}

	m.streaming = ""
	m.refresh()
	return m
}

func (m model) newThread() model {
	id, err := m.sess.NewThread()
	if err != nil {
		m.entries = append(m.entries, entry{role: roleSystem, text: err.Error(), failed: true})
	} else {
		m.entries = nil
		m.exchanges = 0
		m.entries = append(m.entries, entry{role: roleSystem, text: "Started thread " + id})
	}
	m.refresh()
	return m
}

// refresh re-renders the transcript into the viewport and keeps the newest
// text in view.
func (m *model) refresh() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.transcript())
	m.viewport.GotoBottom()
}

func (m model) transcript() string {
	width := max(m.width, 20)
	var b strings.Builder

	for _, e := range m.entries {
		switch e.role {
		case roleUser:
			b.WriteString(cliui.PromptStyle.Render("you"))
			b.WriteString("\n")
			b.WriteString(ansi.Wrap(e.text, width, ""))
		case roleAgent:
			label := cliui.AgentStyle.Render("agent")
			if e.failed {
				label = cliui.ErrorStyle.Render("agent")
			}
			b.WriteString(label)
			b.WriteString("\n")
			if e.failed || e.canceled {
				b.WriteString(ansi.Wrap(e.text, width, ""))
			} else {
				b.WriteString(strings.TrimRight(m.render(e.text, width), "\n"))
			}
			if e.canceled {
				b.WriteString("\n")
				b.WriteString(cliui.DimStyle.Render("(canceled)"))
			}
		case roleSystem:
			b.WriteString(cliui.DimStyle.Render(ansi.Wrap(e.text, width, "")))
		}
		b.WriteString("\n\n")
	}

	if m.loading {
		b.WriteString(cliui.AgentStyle.Render("agent"))
		b.WriteString("\n")
		b.WriteString(ansi.Wrap(m.streaming, width, ""))
	}

	return b.String()
}

func (m model) View() string {
	if !m.ready {
		return "\n  Starting..."
	}

	agentName := m.agentName
	if agentName == "" {
		agentName = "service default"
	}
	title := tuiTitleStyle.Render("agentchat") + " " +
		cliui.DimStyle.Render(agentName+" · thread "+m.sess.ThreadID())

	status := ""
	if m.loading {
		status = m.spinner.View() + tuiStatusStyle.Render(" waiting for the agent (esc to cancel)")
	}

	return strings.Join([]string{
		ansi.Truncate(title, m.width, "…"),
		tuiRuleStyle.Render(strings.Repeat("─", max(m.width, 1))),
		m.viewport.View(),
		status,
		m.input.View(),
		m.help.View(m.keys),
	}, "\n")
}

// renderMarkdown renders a finished reply with glamour, falling back to
// plain wrapped text.
func renderMarkdown(text string, width int) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return ansi.Wrap(text, width, "")
	}
	out, err := r.Render(text)
	if err != nil {
		return ansi.Wrap(text, width, "")
	}
	return out
}
