package main

import (
	"os"

	agentchatcmder "github.com/papercomputeco/agentchat/cmd/agentchat"
)

func main() {
	cmd := agentchatcmder.NewAgentchatCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
