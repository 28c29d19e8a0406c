// Package infocmder provides the info command listing the agents and models
// an agent service offers.
package infocmder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/agentchat/cmd/agentchat/cmdenv"
	"github.com/papercomputeco/agentchat/pkg/agent"
	"github.com/papercomputeco/agentchat/pkg/cliui"
	"github.com/papercomputeco/agentchat/pkg/config"
)

type infoCommander struct {
	env    *cmdenv.Env
	asJSON bool
}

const infoLongDesc string = `Show the agents and models offered by the agent service.

Examples:
  agentchat info
  agentchat info --json`

const infoShortDesc string = "Show the agents and models the service offers"

func NewInfoCmd() *cobra.Command {
	cmder := &infoCommander{}

	cmd := &cobra.Command{
		Use:   "info",
		Short: infoShortDesc,
		Long:  infoLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			env, err := cmdenv.Load(cmd, config.ClientFlagKeys...)
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
	cmd.Flags().BoolVar(&cmder.asJSON, "json", false, "Print the raw service metadata as JSON")

	return cmd
}

func (c *infoCommander) run(ctx context.Context, out io.Writer) error {
	client, err := c.env.NewClient()
	if err != nil {
		return err
	}

	info, err := client.Info(ctx)
	if err != nil {
		return fmt.Errorf("fetching service info: %w", err)
	}

	if c.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}

	printInfo(out, client.BaseURL(), info)
	return nil
}

func printInfo(out io.Writer, baseURL string, info *agent.ServiceMetadata) {
	fmt.Fprintf(out, "\n  %s\n\n", cliui.HeaderStyle.Render("Agent service"))
	fmt.Fprintln(out, cliui.KeyValue("URL", baseURL, 15))
	fmt.Fprintln(out, cliui.KeyValue("Default agent", info.DefaultAgent, 15))
	fmt.Fprintln(out, cliui.KeyValue("Default model", info.DefaultModel, 15))

	fmt.Fprintf(out, "\n  %s\n\n", cliui.HeaderStyle.Render("Agents"))
	for _, a := range info.Agents {
		marker := " "
		if a.Key == info.DefaultAgent {
			marker = "*"
		}
		fmt.Fprintf(out, "  %s %s  %s\n", marker, cliui.AgentStyle.Render(a.Key), cliui.DimStyle.Render(a.Description))
	}

	fmt.Fprintf(out, "\n  %s\n\n", cliui.HeaderStyle.Render("Models"))
	for _, m := range info.Models {
		marker := " "
		if m == info.DefaultModel {
			marker = "*"
		}
		fmt.Fprintf(out, "  %s %s\n", marker, cliui.ValueStyle.Render(m))
	}
	fmt.Fprintln(out)
}
