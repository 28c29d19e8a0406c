// Package statuscmder provides the status command, which shows the resolved
// client configuration, the saved chat thread and whether the agent service
// is reachable.
package statuscmder

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/agentchat/cmd/agentchat/cmdenv"
	"github.com/papercomputeco/agentchat/pkg/cliui"
	"github.com/papercomputeco/agentchat/pkg/config"
	"github.com/papercomputeco/agentchat/pkg/credentials"
	"github.com/papercomputeco/agentchat/pkg/dotdir"
)

type statusCommander struct {
	env     *cmdenv.Env
	offline bool
}

const statusLongDesc string = `Show the current agentchat state.

Prints the resolved agent service settings, where the bearer token comes
from, the transcript storage and the thread "agentchat chat" will resume,
then checks that the agent service is reachable.

Examples:
  agentchat status
  agentchat status --offline`

const statusShortDesc string = "Show configuration, saved thread and service health"

const keyWidth = 12

func NewStatusCmd() *cobra.Command {
	cmder := &statusCommander{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: statusShortDesc,
		Long:  statusLongDesc,
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
	cmd.Flags().BoolVar(&cmder.offline, "offline", false, "Skip the agent service health check")

	return cmd
}

func (c *statusCommander) run(ctx context.Context, out io.Writer) error {
	cfg := c.env.Config

	agentName := cfg.Client.Agent
	if agentName == "" {
		agentName = "<service default>"
	}

	fmt.Fprintf(out, "\n  %s\n\n", cliui.HeaderStyle.Render("Agent service"))
	fmt.Fprintln(out, cliui.KeyValue("URL", cfg.Client.BaseURL, keyWidth))
	fmt.Fprintln(out, cliui.KeyValue("Agent", agentName, keyWidth))
	if cfg.Client.Model != "" {
		fmt.Fprintln(out, cliui.KeyValue("Model", cfg.Client.Model, keyWidth))
	}
	fmt.Fprintln(out, cliui.KeyValue("Mode", cfg.Client.Mode, keyWidth))
	fmt.Fprintln(out, cliui.KeyValue("Timeout", c.env.Timeout.String(), keyWidth))
	fmt.Fprintln(out, cliui.KeyValue("Token", tokenSource(c.env.TokenSource), keyWidth))

	fmt.Fprintf(out, "\n  %s\n\n", cliui.HeaderStyle.Render("Local state"))
	fmt.Fprintln(out, cliui.KeyValue("Directory", c.env.DotDir, keyWidth))
	fmt.Fprintln(out, cliui.KeyValue("Storage", cfg.Storage.Driver, keyWidth))

	state, err := dotdir.NewManager().LoadThreadState(c.env.ConfigDir)
	if err != nil {
		return fmt.Errorf("loading thread state: %w", err)
	}
	if state == nil {
		fmt.Fprintln(out, cliui.KeyValue("Thread", "none, next chat starts a new thread", keyWidth))
	} else {
		fmt.Fprintln(out, cliui.KeyValue("Thread", state.ThreadID, keyWidth))
		fmt.Fprintln(out, cliui.KeyValue("Updated", state.UpdatedAt.Local().Format("2006-01-02 15:04:05"), keyWidth))
	}
	fmt.Fprintln(out)

	if c.offline {
		return nil
	}

	client, err := c.env.NewClient()
	if err != nil {
		return err
	}

	err = cliui.Step(out, "Checking "+client.BaseURL(), func() error {
		_, err := client.Health(ctx)
		return err
	})
	fmt.Fprintln(out)
	if err != nil {
		return fmt.Errorf("agent service unreachable: %w", err)
	}
	return nil
}

func tokenSource(src credentials.Source) string {
	switch src {
	case credentials.SourceFlag:
		return "--token flag"
	case credentials.SourceEnv:
		return credentials.EnvVarForTarget(credentials.TargetAgent)
	case credentials.SourceStored:
		return "credentials.toml"
	default:
		return "none"
	}
}
