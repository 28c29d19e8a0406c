// Package historycmder provides the history command, which prints the
// messages of a thread from the agent service or from local transcripts.
package historycmder

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/agentchat/cmd/agentchat/cmdenv"
	"github.com/papercomputeco/agentchat/pkg/cliui"
	"github.com/papercomputeco/agentchat/pkg/config"
	"github.com/papercomputeco/agentchat/pkg/dotdir"
	"github.com/papercomputeco/agentchat/pkg/transcript"
	"github.com/papercomputeco/agentchat/pkg/utils"
)

type historyCommander struct {
	env      *cmdenv.Env
	threadID string
	local    bool
	threads  bool
}

const historyLongDesc string = `Print the messages of a conversation thread.

By default the thread saved by "agentchat chat" is fetched from the agent
service. Use --local to read the exchanges recorded in the local transcript
store instead, and --threads to list every locally recorded thread.

Examples:
  agentchat history
  agentchat history --thread 6f1c...
  agentchat history --local
  agentchat history --threads`

const historyShortDesc string = "Print the messages of a thread"

func NewHistoryCmd() *cobra.Command {
	cmder := &historyCommander{}

	cmd := &cobra.Command{
		Use:   "history",
		Short: historyShortDesc,
		Long:  historyLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			keys := append([]string{}, config.ClientFlagKeys...)
			keys = append(keys, config.StorageFlagKeys...)
			env, err := cmdenv.Load(cmd, keys...)
			if err != nil {
				return err
			}
			cmder.env = env
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context(), cmd.OutOrStdout())
		},
	}

	cmdenv.AddClientFlags(cmd)
	cmdenv.AddStorageFlags(cmd)
	cmd.Flags().StringVarP(&cmder.threadID, "thread", "t", "", "Thread id (default: the saved chat thread)")
	cmd.Flags().BoolVar(&cmder.local, "local", false, "Read the local transcript store instead of the agent service")
	cmd.Flags().BoolVar(&cmder.threads, "threads", false, "List the locally recorded threads")

	return cmd
}

func (c *historyCommander) run(ctx context.Context, out io.Writer) error {
	if c.threads {
		return c.listThreads(ctx, out)
	}

	threadID, err := c.resolveThread()
	if err != nil {
		return err
	}

	if c.local {
		return c.printLocal(ctx, out, threadID)
	}
	return c.printRemote(ctx, out, threadID)
}

func (c *historyCommander) resolveThread() (string, error) {
	if c.threadID != "" {
		return c.threadID, nil
	}

	state, err := dotdir.NewManager().LoadThreadState(c.env.ConfigDir)
	if err != nil {
		return "", err
	}
	if state == nil || state.ThreadID == "" {
		return "", errors.New("no saved thread: pass --thread or start one with \"agentchat chat\"")
	}
	return state.ThreadID, nil
}

func (c *historyCommander) printRemote(ctx context.Context, out io.Writer, threadID string) error {
	client, err := c.env.NewClient()
	if err != nil {
		return err
	}

	history, err := client.History(ctx, threadID)
	if err != nil {
		return fmt.Errorf("fetching history: %w", err)
	}

	fmt.Fprintf(out, "\n  %s %s\n\n", cliui.HeaderStyle.Render("Thread"), cliui.DimStyle.Render(threadID))
	if len(history.Messages) == 0 {
		fmt.Fprintln(out, cliui.DimStyle.Render("  (no messages)"))
		return nil
	}

	for _, m := range history.Messages {
		switch m.Type {
		case "human":
			fmt.Fprintf(out, "%s %s\n", cliui.PromptStyle.Render("you>"), m.Content)
		case "ai":
			if m.Content == "" && len(m.ToolCalls) > 0 {
				for _, tc := range m.ToolCalls {
					fmt.Fprintln(out, cliui.DimStyle.Render("  tool call: "+tc.Name))
				}
				continue
			}
			fmt.Fprintf(out, "%s %s\n", cliui.AgentStyle.Render("agent>"), m.Content)
		case "tool":
			fmt.Fprintln(out, cliui.DimStyle.Render("  tool result: "+utils.Truncate(m.Content, 120)))
		default:
			fmt.Fprintf(out, "%s %s\n", cliui.DimStyle.Render(m.Type+">"), m.Content)
		}
	}
	fmt.Fprintln(out)
	return nil
}

func (c *historyCommander) printLocal(ctx context.Context, out io.Writer, threadID string) error {
	driver, err := c.env.OpenStore(ctx)
	if err != nil {
		return err
	}
	defer driver.Close()

	exchanges, err := driver.ListByThread(ctx, threadID)
	if err != nil {
		return fmt.Errorf("listing transcripts: %w", err)
	}

	fmt.Fprintf(out, "\n  %s %s\n\n", cliui.HeaderStyle.Render("Thread"), cliui.DimStyle.Render(threadID))
	if len(exchanges) == 0 {
		fmt.Fprintln(out, cliui.DimStyle.Render("  (no recorded exchanges)"))
		return nil
	}

	for _, ex := range exchanges {
		printExchange(out, ex)
	}
	return nil
}

func printExchange(out io.Writer, ex *transcript.Exchange) {
	fmt.Fprintf(out, "%s %s\n", cliui.PromptStyle.Render("you>"), ex.Prompt)
	if ex.Failed {
		fmt.Fprintf(out, "%s %s\n", cliui.ErrorStyle.Render("agent>"), ex.Response)
	} else {
		fmt.Fprintf(out, "%s %s\n", cliui.AgentStyle.Render("agent>"), ex.Response)
	}

	meta := ex.CreatedAt.Local().Format("2006-01-02 15:04:05") + "  " + cliui.FormatDuration(ex.Duration)
	if ex.RunID != "" {
		meta += "  run " + ex.RunID
	}
	fmt.Fprintln(out, cliui.DimStyle.Render("  "+meta))
	fmt.Fprintln(out)
}

func (c *historyCommander) listThreads(ctx context.Context, out io.Writer) error {
	driver, err := c.env.OpenStore(ctx)
	if err != nil {
		return err
	}
	defer driver.Close()

	threads, err := driver.Threads(ctx)
	if err != nil {
		return fmt.Errorf("listing threads: %w", err)
	}

	if len(threads) == 0 {
		fmt.Fprintln(out, "No recorded threads.")
		return nil
	}

	for _, t := range threads {
		fmt.Fprintf(out, "%s  %d exchanges  %s\n",
			t.ThreadID, t.Exchanges, cliui.DimStyle.Render(t.LastAt.Local().Format("2006-01-02 15:04:05")))
	}
	return nil
}
