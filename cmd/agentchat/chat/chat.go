// Package chatcmder provides the chat command for interactive chat with an
// agent service.
package chatcmder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/agentchat/cmd/agentchat/cmdenv"
	"github.com/papercomputeco/agentchat/pkg/cliui"
	"github.com/papercomputeco/agentchat/pkg/config"
	"github.com/papercomputeco/agentchat/pkg/dotdir"
	"github.com/papercomputeco/agentchat/pkg/session"
)

var (
	userPrompt      = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true).Render("you> ")
	assistantPrompt = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render("agent> ")
)

type chatCommander struct {
	env       *cmdenv.Env
	newThread bool
	noRecord  bool

	in     io.Reader
	out    io.Writer
	errOut io.Writer
}

const chatLongDesc string = `Start an interactive chat session with the agent service.

Each message is sent to the agent with the conversation's thread id, so the
agent keeps the history. The reply is printed as it streams in.

The thread id is saved in the .agentchat/ directory and the next
"agentchat chat" resumes the same thread. Use --new, or type /new during a
session, to start a fresh thread.

Exchanges are recorded in the local transcript store unless --no-record is set.

Commands:
  /new      Start a new thread
  /thread   Show the current thread id
  /exit     Quit (Ctrl+D also quits, Ctrl+C cancels a reply in flight)

Examples:
  agentchat chat
  agentchat chat --agent research-assistant --model gpt-4o
  agentchat chat --base-url http://localhost:8080 --mode invoke`

const chatShortDesc string = "Interactive chat with the agent service"

// chatFlagKeys are the registry flags bound for chat.
var chatFlagKeys = append(append([]string{}, config.ClientFlagKeys...), config.StorageFlagKeys...)

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			env, err := cmdenv.Load(cmd, chatFlagKeys...)
			if err != nil {
				return err
			}
			cmder.env = env
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.in = cmd.InOrStdin()
			cmder.out = cmd.OutOrStdout()
			cmder.errOut = cmd.ErrOrStderr()
			return cmder.run(cmd.Context())
		},
	}

	cmdenv.AddClientFlags(cmd)
	cmdenv.AddStorageFlags(cmd)
	cmd.Flags().BoolVar(&cmder.newThread, "new", false, "Start a new thread instead of resuming the saved one")
	cmd.Flags().BoolVar(&cmder.noRecord, "no-record", false, "Do not record exchanges in the transcript store")

	return cmd
}

func (c *chatCommander) run(ctx context.Context) error {
	client, err := c.env.NewClient()
	if err != nil {
		return err
	}

	agentName := c.env.Config.Client.Agent
	ddm := dotdir.NewManager()

	threadID := ""
	if !c.newThread {
		state, err := ddm.LoadThreadState(c.env.ConfigDir)
		if err != nil {
			return fmt.Errorf("loading thread state: %w", err)
		}
		if state != nil && state.Agent == agentName {
			threadID = state.ThreadID
		}
	}

	printer := cliui.NewStreamPrinter(c.out)
	opts := []session.Option{
		session.WithStreaming(c.env.Config.Client.Streaming()),
		session.WithThreadID(threadID),
		session.WithModel(c.env.Config.Client.Model),
		session.WithUserID(c.env.Config.Client.UserID),
		session.WithTimeout(c.env.Timeout),
		session.WithPublisher(func(s session.State) { printer.Update(s.Text) }),
		session.WithLogger(c.env.Logger),
	}

	if !c.noRecord {
		rec, err := c.env.NewRecorder(ctx, "chat")
		if err != nil {
			c.env.Logger.Warn("transcript recording disabled", "error", err)
		} else {
			defer rec.Close()
			opts = append(opts, session.WithObserver(rec.Observe()))
		}
	}

	sess := session.New(client, opts...)

	fmt.Fprintln(c.out)
	if threadID != "" {
		fmt.Fprintf(c.out, "  %s Resuming thread %s\n", cliui.SuccessMark, cliui.ValueStyle.Render(threadID))
	} else {
		fmt.Fprintf(c.out, "  %s New conversation\n", cliui.DimStyle.Render("●"))
	}
	fmt.Fprintf(c.out, "  %s %s\n", cliui.KeyStyle.Render("Agent:"), cliui.AgentStyle.Render(displayAgent(agentName)))
	if c.env.Config.Client.Model != "" {
		fmt.Fprintf(c.out, "  %s %s\n", cliui.KeyStyle.Render("Model:"), cliui.ValueStyle.Render(c.env.Config.Client.Model))
	}
	fmt.Fprintf(c.out, "\n  %s\n\n", cliui.DimStyle.Render("Type your message and press Enter. /exit or Ctrl+D to quit."))

	scanner := bufio.NewScanner(c.in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for {
		fmt.Fprint(c.out, userPrompt)
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		switch input {
		case "":
			continue
		case "/exit":
			fmt.Fprintln(c.out)
			return nil
		case "/thread":
			fmt.Fprintf(c.out, "  %s %s\n\n", cliui.KeyStyle.Render("Thread:"), sess.ThreadID())
			continue
		case "/new":
			id, err := sess.NewThread()
			if err != nil {
				fmt.Fprintf(c.errOut, "  %s %v\n", cliui.FailMark, err)
				continue
			}
			c.saveThread(ddm, id, agentName)
			fmt.Fprintf(c.out, "  %s New thread %s\n\n", cliui.SuccessMark, cliui.ValueStyle.Render(id))
			continue
		}

		fmt.Fprint(c.out, assistantPrompt)
		_, err := c.submit(ctx, sess, input)
		fmt.Fprint(c.out, "\n\n")

		switch {
		case errors.Is(err, session.ErrCanceled):
			fmt.Fprintf(c.errOut, "  %s reply canceled\n\n", cliui.WarnStyle.Render("!"))
		case err != nil:
			c.env.Logger.Debug("chat request failed", "error", err)
		}

		c.saveThread(ddm, sess.ThreadID(), agentName)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Fprintln(c.out)
	return nil
}

// submit runs one request, canceling it on Ctrl+C.
func (c *chatCommander) submit(ctx context.Context, sess *session.Session, input string) (session.Result, error) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	defer signal.Stop(sigCh)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-sigCh:
			sess.Cancel()
		case <-done:
		}
	}()

	return sess.Submit(ctx, input)
}

func (c *chatCommander) saveThread(ddm *dotdir.Manager, threadID, agentName string) {
	err := ddm.SaveThreadState(&dotdir.ThreadState{
		ThreadID:  threadID,
		Agent:     agentName,
		UpdatedAt: time.Now().UTC(),
	}, c.env.ConfigDir)
	if err != nil {
		c.env.Logger.Warn("could not save thread state", "error", err)
	}
}

func displayAgent(name string) string {
	if name == "" {
		return "service default"
	}
	return name
}
