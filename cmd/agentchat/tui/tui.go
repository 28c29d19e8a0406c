// Package tuicmder provides the tui command, a full-screen chat with the
// agent service.
package tuicmder

import (
	"context"
	"fmt"
	"io"
	"time"

	bubbletea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/agentchat/cmd/agentchat/cmdenv"
	"github.com/papercomputeco/agentchat/pkg/config"
	"github.com/papercomputeco/agentchat/pkg/dotdir"
	"github.com/papercomputeco/agentchat/pkg/logger"
	"github.com/papercomputeco/agentchat/pkg/session"
)

type tuiCommander struct {
	env       *cmdenv.Env
	newThread bool
	noRecord  bool

	in  io.Reader
	out io.Writer
}

const tuiLongDesc string = `Start a full-screen chat with the agent service.

Replies stream into the transcript as they arrive and are rendered as
markdown once complete. Press Esc to cancel a reply in flight. Typing /new
starts a fresh thread.

Like "agentchat chat", the thread is resumed from the .agentchat/ directory
and exchanges are recorded unless --no-record is set.

Examples:
  agentchat tui
  agentchat tui --agent research-assistant --new`

const tuiShortDesc string = "Full-screen chat with the agent service"

var tuiFlagKeys = append(append([]string{}, config.ClientFlagKeys...), config.StorageFlagKeys...)

func NewTUICmd() *cobra.Command {
	cmder := &tuiCommander{}

	cmd := &cobra.Command{
		Use:   "tui",
		Short: tuiShortDesc,
		Long:  tuiLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			env, err := cmdenv.Load(cmd, tuiFlagKeys...)
			if err != nil {
				return err
			}
			cmder.env = env
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.in = cmd.InOrStdin()
			cmder.out = cmd.OutOrStdout()
			return cmder.run(cmd.Context())
		},
	}

	cmdenv.AddClientFlags(cmd)
	cmdenv.AddStorageFlags(cmd)
	cmd.Flags().BoolVar(&cmder.newThread, "new", false, "Start a new thread instead of resuming the saved one")
	cmd.Flags().BoolVar(&cmder.noRecord, "no-record", false, "Do not record exchanges in the transcript store")

	return cmd
}

func (c *tuiCommander) run(ctx context.Context) error {
	lipgloss.SetColorProfile(termenv.EnvColorProfile())

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

	var program *bubbletea.Program

	// The terminal belongs to the program, so the session logs nowhere.
	opts := []session.Option{
		session.WithStreaming(c.env.Config.Client.Streaming()),
		session.WithThreadID(threadID),
		session.WithModel(c.env.Config.Client.Model),
		session.WithUserID(c.env.Config.Client.UserID),
		session.WithTimeout(c.env.Timeout),
		// Idle states are published by Cancel and NewThread on the event
		// loop itself, where Send would block; the model ignores them anyway.
		session.WithPublisher(func(s session.State) {
			if s.Loading {
				program.Send(stateMsg(s))
			}
		}),
		session.WithLogger(logger.Nop()),
	}

	if !c.noRecord {
		rec, err := c.env.NewRecorder(ctx, "tui")
		if err != nil {
			c.env.Logger.Warn("transcript recording disabled", "error", err)
		} else {
			defer rec.Close()
			opts = append(opts, session.WithObserver(rec.Observe()))
		}
	}

	sess := session.New(client, opts...)

	program = bubbletea.NewProgram(newModel(ctx, sess, agentName),
		bubbletea.WithContext(ctx),
		bubbletea.WithAltScreen(),
		bubbletea.WithInput(c.in),
		bubbletea.WithOutput(c.out),
	)

	final, err := program.Run()
	if err != nil {
		return fmt.Errorf("running tui: %w", err)
	}

	if m, ok := final.(model); ok && m.exchanges > 0 {
		err := ddm.SaveThreadState(&dotdir.ThreadState{
			ThreadID:  sess.ThreadID(),
			Agent:     agentName,
			UpdatedAt: time.Now().UTC(),
		}, c.env.ConfigDir)
		if err != nil {
			return fmt.Errorf("saving thread state: %w", err)
		}
	}

	return nil
}
