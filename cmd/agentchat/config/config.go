// Package configcmder provides the config command for managing persistent
// agentchat configuration stored in the .agentchat/ directory.
package configcmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/agentchat/pkg/cliui"
	"github.com/papercomputeco/agentchat/pkg/config"
)

const configLongDesc string = `Manage persistent agentchat configuration.

Configuration is stored as config.toml in the .agentchat/ directory and
provides default values for command flags. CLI flags and AGENTCHAT_*
environment variables take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  client.base_url, client.agent, client.model, client.mode, client.timeout,
  storage.driver, storage.sqlite_path, storage.postgres_dsn,
  relay.listen, relay.upstream,
  eventstream.provider, eventstream.brokers, eventstream.topic

Use subcommands to get, set, or list configuration values:
  agentchat config set <key> <value>    Set a configuration value
  agentchat config get <key>            Get a configuration value
  agentchat config list                 List all configuration values

Examples:
  agentchat config set client.base_url http://localhost:8080
  agentchat config set client.agent research-assistant
  agentchat config get client.mode
  agentchat config list`

const configShortDesc string = "Manage persistent agentchat configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

func validateKey(key string) error {
	if !config.IsValidConfigKey(key) {
		return fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
			key, strings.Join(config.ValidConfigKeys(), ", "))
	}
	return nil
}

func completeKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

func printTarget(out io.Writer, cfger *config.Configer) {
	target := cfger.GetTarget()
	if target != "" {
		fmt.Fprintf(out, "\n  %s %s\n\n",
			cliui.KeyStyle.Render("Config file:"),
			cliui.DimStyle.Render(target),
		)
	} else {
		fmt.Fprintf(out, "\n  %s\n\n", cliui.DimStyle.Render("No config file found. Using defaults."))
	}
}
