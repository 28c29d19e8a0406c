// Package feedbackcmder provides the feedback command, which scores a
// previous agent run.
package feedbackcmder

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/agentchat/cmd/agentchat/cmdenv"
	"github.com/papercomputeco/agentchat/pkg/agent"
	"github.com/papercomputeco/agentchat/pkg/cliui"
	"github.com/papercomputeco/agentchat/pkg/config"
)

type feedbackCommander struct {
	env   *cmdenv.Env
	score float64
	key   string
}

const feedbackLongDesc string = `Record feedback for an agent run.

The run id is printed by "agentchat ask" and stored with each local
transcript ("agentchat history --local").

Examples:
  agentchat feedback 847c6285-8fc9-4560-a83f-4e6285809254 --score 1
  agentchat feedback 847c6285-8fc9-4560-a83f-4e6285809254 --score 0 --key accuracy`

const feedbackShortDesc string = "Record feedback for an agent run"

const defaultFeedbackKey = "human-feedback-stars"

func NewFeedbackCmd() *cobra.Command {
	cmder := &feedbackCommander{}

	cmd := &cobra.Command{
		Use:   "feedback <run-id>",
		Short: feedbackShortDesc,
		Long:  feedbackLongDesc,
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			env, err := cmdenv.Load(cmd, config.ClientFlagKeys...)
			if err != nil {
				return err
			}
			cmder.env = env
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd.OutOrStdout(), args[0])
		},
	}

	cmdenv.AddClientFlags(cmd)
	cmd.Flags().Float64Var(&cmder.score, "score", 1, "Feedback score")
	cmd.Flags().StringVar(&cmder.key, "key", defaultFeedbackKey, "Feedback metric key")

	return cmd
}

func (c *feedbackCommander) run(ctx context.Context, out io.Writer, runID string) error {
	if runID == "" {
		return errors.New("run id must not be empty")
	}

	client, err := c.env.NewClient()
	if err != nil {
		return err
	}

	resp, err := client.Feedback(ctx, agent.Feedback{
		RunID: runID,
		Key:   c.key,
		Score: c.score,
	})
	if err != nil {
		return fmt.Errorf("sending feedback: %w", err)
	}

	status := resp.Status
	if status == "" {
		status = "recorded"
	}
	fmt.Fprintf(out, "%s Feedback %s for run %s\n", cliui.SuccessMark, status, runID)
	return nil
}
