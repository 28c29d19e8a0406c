// Package authcmder provides the auth command for storing bearer tokens.
package authcmder

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/papercomputeco/agentchat/pkg/cliui"
	"github.com/papercomputeco/agentchat/pkg/credentials"
)

const authLongDesc string = `Store bearer tokens.

Tokens are stored in credentials.toml in the .agentchat/ directory.

  agent   Sent to the agent service as "Authorization: Bearer <token>".
  relay   Required from clients of "agentchat serve".

A --token flag or the AGENTCHAT_TOKEN / AGENTCHAT_RELAY_TOKEN environment
variables take precedence over stored tokens.

Examples:
  agentchat auth agent              Prompt for the agent service token
  agentchat auth relay              Prompt for the relay token
  agentchat auth --list             List stored tokens
  agentchat auth --remove agent     Remove the stored agent token
  echo $TOKEN | agentchat auth agent  Pipe the token from stdin`

const authShortDesc string = "Store bearer tokens for the agent service and relay"

func NewAuthCmd() *cobra.Command {
	var listFlag bool
	var removeFlag string

	cmd := &cobra.Command{
		Use:   "auth [target]",
		Short: authShortDesc,
		Long:  authLongDesc,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			out := cmd.OutOrStdout()

			switch {
			case listFlag:
				return runList(out, configDir)
			case removeFlag != "":
				return runRemove(out, removeFlag, configDir)
			default:
				if len(args) == 0 {
					return fmt.Errorf("target argument required\n\nSupported targets: %s",
						strings.Join(credentials.SupportedTargets(), ", "))
				}
				return runAuth(cmd.InOrStdin(), out, args[0], configDir)
			}
		},
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) == 0 {
				return credentials.SupportedTargets(), cobra.ShellCompDirectiveNoFileComp
			}
			return nil, cobra.ShellCompDirectiveNoFileComp
		},
	}

	cmd.Flags().BoolVar(&listFlag, "list", false, "List stored tokens")
	cmd.Flags().StringVar(&removeFlag, "remove", "", "Remove the stored token for a target")

	return cmd
}

func runAuth(in io.Reader, out io.Writer, target, configDir string) error {
	target = strings.ToLower(strings.TrimSpace(target))

	if !credentials.IsSupportedTarget(target) {
		return fmt.Errorf("unsupported target: %q\n\nSupported targets: %s",
			target, strings.Join(credentials.SupportedTargets(), ", "))
	}

	token, err := readToken(in, out, target)
	if err != nil {
		return err
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("token cannot be empty")
	}

	mgr, err := credentials.NewManager(configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	if err := mgr.SetToken(target, token); err != nil {
		return err
	}

	fmt.Fprintf(out, "\n  %s Stored %s token %s\n\n",
		cliui.SuccessMark,
		cliui.AgentStyle.Render(target),
		cliui.DimStyle.Render("(overridden by "+credentials.EnvVarForTarget(target)+")"),
	)
	return nil
}

func runList(out io.Writer, configDir string) error {
	mgr, err := credentials.NewManager(configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	targets, err := mgr.ListTargets()
	if err != nil {
		return err
	}

	if len(targets) == 0 {
		fmt.Fprintf(out, "\n  %s No stored tokens.\n", cliui.DimStyle.Render("●"))
		fmt.Fprintf(out, "  Use 'agentchat auth <target>' to store a token.\n")
		fmt.Fprintf(out, "  Supported targets: %s\n\n", strings.Join(credentials.SupportedTargets(), ", "))
		return nil
	}

	fmt.Fprintf(out, "\n  %s\n\n", cliui.HeaderStyle.Render("Stored tokens"))
	for _, t := range targets {
		if envVar := credentials.EnvVarForTarget(t); envVar != "" {
			fmt.Fprintf(out, "  %s  %s  %s\n",
				cliui.SuccessMark,
				cliui.AgentStyle.Render(t),
				cliui.DimStyle.Render("← "+envVar),
			)
		} else {
			fmt.Fprintf(out, "  %s  %s\n", cliui.SuccessMark, cliui.AgentStyle.Render(t))
		}
	}
	fmt.Fprintln(out)

	return nil
}

func runRemove(out io.Writer, target, configDir string) error {
	target = strings.ToLower(strings.TrimSpace(target))

	mgr, err := credentials.NewManager(configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	if err := mgr.RemoveToken(target); err != nil {
		return err
	}

	fmt.Fprintf(out, "\n  %s Removed %s token.\n\n", cliui.SuccessMark, cliui.AgentStyle.Render(target))

	return nil
}

// readToken reads a token from in. A terminal gets a hidden prompt; anything
// else is read up to the first newline.
func readToken(in io.Reader, out io.Writer, target string) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprintf(out, "Enter %s token (%s): ", target, credentials.EnvVarForTarget(target))

		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("reading token: %w", err)
		}
		return string(b), nil
	}

	scanner := bufio.NewScanner(in)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return "", errors.New("no input received on stdin")
}
