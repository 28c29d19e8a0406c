// Package agentchatcmder
package agentchatcmder

import (
	"github.com/spf13/cobra"

	askcmder "github.com/papercomputeco/agentchat/cmd/agentchat/ask"
	authcmder "github.com/papercomputeco/agentchat/cmd/agentchat/auth"
	chatcmder "github.com/papercomputeco/agentchat/cmd/agentchat/chat"
	configcmder "github.com/papercomputeco/agentchat/cmd/agentchat/config"
	feedbackcmder "github.com/papercomputeco/agentchat/cmd/agentchat/feedback"
	historycmder "github.com/papercomputeco/agentchat/cmd/agentchat/history"
	infocmder "github.com/papercomputeco/agentchat/cmd/agentchat/info"
	servecmder "github.com/papercomputeco/agentchat/cmd/agentchat/serve"
	statuscmder "github.com/papercomputeco/agentchat/cmd/agentchat/status"
	tuicmder "github.com/papercomputeco/agentchat/cmd/agentchat/tui"
	versioncmder "github.com/papercomputeco/agentchat/cmd/version"
)

const agentchatLongDesc string = `agentchat is a terminal client for LangGraph agent services.

Talk to an agent:
  agentchat chat       Interactive chat that streams the agent's reply
  agentchat tui        Full screen chat
  agentchat ask        Send one message and print the reply

Run the relay:
  agentchat serve      Forward browser clients to the agent service and
                       record every exchange`

const agentchatShortDesc string = "agentchat - chat with LangGraph agent services"

func NewAgentchatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "agentchat",
		Short:        agentchatShortDesc,
		Long:         agentchatLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .agentchat/ directory")

	// Add subcommands
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(tuicmder.NewTUICmd())
	cmd.AddCommand(askcmder.NewAskCmd())
	cmd.AddCommand(infocmder.NewInfoCmd())
	cmd.AddCommand(historycmder.NewHistoryCmd())
	cmd.AddCommand(feedbackcmder.NewFeedbackCmd())
	cmd.AddCommand(statuscmder.NewStatusCmd())
	cmd.AddCommand(authcmder.NewAuthCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
