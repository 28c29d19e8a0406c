// Package askcmder provides the ask command for one-shot questions to an
// agent service.
package askcmder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/agentchat/cmd/agentchat/cmdenv"
	"github.com/papercomputeco/agentchat/pkg/agent"
	"github.com/papercomputeco/agentchat/pkg/cliui"
	"github.com/papercomputeco/agentchat/pkg/config"
	"github.com/papercomputeco/agentchat/pkg/session"
	"github.com/papercomputeco/agentchat/pkg/stream"
)

type askCommander struct {
	env      *cmdenv.Env
	threadID string
	markdown bool
	tokens   bool
	noRecord bool
}

const askLongDesc string = `Send one message to the agent service and print the reply.

The message is taken from the arguments, or from stdin when no arguments
are given. The reply is printed as it streams in; with --markdown it is
printed once complete and rendered as markdown on a terminal. With --tokens
the agent streams individual LLM tokens, which are printed as they arrive.

The command fails when the request fails.

Examples:
  agentchat ask "What is the capital of France?"
  agentchat ask --thread 3f0c... "And its population?"
  agentchat ask --tokens "Write a haiku"
  echo "Summarize this" | agentchat ask --mode invoke`

const askShortDesc string = "Send one message and print the reply"

var askFlagKeys = append(append([]string{}, config.ClientFlagKeys...), config.StorageFlagKeys...)

func NewAskCmd() *cobra.Command {
	cmder := &askCommander{}

	cmd := &cobra.Command{
		Use:   "ask [message...]",
		Short: askShortDesc,
		Long:  askLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			env, err := cmdenv.Load(cmd, askFlagKeys...)
			if err != nil {
				return err
			}
			cmder.env = env
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			message := strings.Join(args, " ")
			if strings.TrimSpace(message) == "" {
				var err error
				message, err = readMessage(cmd.InOrStdin())
				if err != nil {
					return err
				}
			}
			return cmder.run(cmd.Context(), cmd.OutOrStdout(), message)
		},
	}

	cmdenv.AddClientFlags(cmd)
	cmdenv.AddStorageFlags(cmd)
	cmd.Flags().StringVarP(&cmder.threadID, "thread", "t", "", "Thread id to continue (default: a new thread)")
	cmd.Flags().BoolVar(&cmder.markdown, "markdown", false, "Render the complete reply as markdown")
	cmd.Flags().BoolVar(&cmder.tokens, "tokens", false, "Print LLM tokens as they are generated (stream mode only)")
	cmd.Flags().BoolVar(&cmder.noRecord, "no-record", false, "Do not record the exchange in the transcript store")

	return cmd
}

func (c *askCommander) run(ctx context.Context, out io.Writer, message string) error {
	client, err := c.env.NewClient()
	if err != nil {
		return err
	}

	opts := []session.Option{
		session.WithStreaming(c.env.Config.Client.Streaming()),
		session.WithThreadID(c.threadID),
		session.WithModel(c.env.Config.Client.Model),
		session.WithUserID(c.env.Config.Client.UserID),
		session.WithTimeout(c.env.Timeout),
		session.WithLogger(c.env.Logger),
	}

	switch {
	case c.markdown:
	case c.tokens && c.env.Config.Client.Streaming():
		tp := &tokenPrinter{out: out}
		opts = append(opts,
			session.WithStreamTokens(true),
			session.WithEventHandler(tp.handle),
		)
	default:
		printer := cliui.NewStreamPrinter(out)
		opts = append(opts, session.WithPublisher(func(s session.State) {
			if s.Err == nil {
				printer.Update(s.Text)
			}
		}))
	}

	if !c.noRecord {
		rec, err := c.env.NewRecorder(ctx, "ask")
		if err != nil {
			c.env.Logger.Warn("transcript recording disabled", "error", err)
		} else {
			defer rec.Close()
			opts = append(opts, session.WithObserver(rec.Observe()))
		}
	}

	sess := session.New(client, opts...)

	res, err := sess.Submit(ctx, message)
	if err != nil {
		if errors.Is(err, session.ErrEmptyInput) {
			return errors.New("message cannot be empty")
		}
		if agent.IsUnauthorized(err) {
			return fmt.Errorf("asking agent: %w (store a token with \"agentchat auth agent\" or pass --token)", err)
		}
		return fmt.Errorf("asking agent: %w", err)
	}

	if c.markdown {
		fmt.Fprintln(out, cliui.RenderMarkdownFor(out, res.Text))
		return nil
	}

	fmt.Fprintln(out)
	if res.AgentError != "" {
		return fmt.Errorf("agent reported an error: %s", res.AgentError)
	}
	return nil
}

// tokenPrinter prints token events as they arrive. A message that follows
// tokens repeats them and is skipped; a message without tokens is printed.
type tokenPrinter struct {
	out     io.Writer
	pending bool
}

func (p *tokenPrinter) handle(ev *stream.Event) {
	if tok, ok := ev.Token(); ok {
		fmt.Fprint(p.out, tok)
		p.pending = true
		return
	}
	if frag, ok := ev.Fragment(); ok {
		if !p.pending {
			fmt.Fprint(p.out, frag)
		}
		p.pending = false
	}
}

// readMessage reads the whole of r as the message.
func readMessage(r io.Reader) (string, error) {
	var b strings.Builder
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return b.String(), nil
}
