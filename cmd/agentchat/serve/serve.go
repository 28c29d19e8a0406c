// Package servecmder provides the serve command, which runs the recording
// relay in front of an agent service.
package servecmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/agentchat/cmd/agentchat/cmdenv"
	"github.com/papercomputeco/agentchat/pkg/config"
	"github.com/papercomputeco/agentchat/pkg/credentials"
	"github.com/papercomputeco/agentchat/pkg/eventstream/provider"
	"github.com/papercomputeco/agentchat/pkg/logger"
	"github.com/papercomputeco/agentchat/relay"
)

type serveCommander struct {
	env *cmdenv.Env

	relayToken string
	logJSON    bool
	logFile    string
	disableMCP bool
	noWatch    bool

	upstreamPinned bool
	logger         *slog.Logger
}

const serveLongDesc string = `Run the agentchat relay.

The relay forwards /invoke, /stream, /info, /history and /feedback to the
agent service, relaying SSE streams to the client unchanged while recording
every exchange to the transcript store. Recorded exchanges are served at
/transcripts and /threads, and agents can be driven over MCP at /mcp.

The relay presents the agent token (--token, AGENTCHAT_TOKEN or the stored
"agent" credential) upstream. When a relay token is configured (--relay-token,
AGENTCHAT_RELAY_TOKEN or the stored "relay" credential) clients must send it
as a bearer token.

Changes to relay.upstream in config.toml are applied without a restart.
--log-file appends JSON logs to a file alongside the console output.

Examples:
  agentchat serve
  agentchat serve --listen :9000 --upstream http://agents:8080
  agentchat serve --storage postgres --postgres-dsn postgres://localhost/agentchat
  agentchat serve --eventstream kafka --kafka-brokers localhost:9092
  agentchat serve --log-file relay.log`

const serveShortDesc string = "Run the recording relay in front of the agent service"

var relayFlagKeys = []string{
	config.FlagRelayListen,
	config.FlagUpstream,
	config.FlagEventStream,
	config.FlagKafkaBrokers,
	config.FlagKafkaTopic,
}

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			keys := append([]string{}, config.ClientFlagKeys...)
			keys = append(keys, config.StorageFlagKeys...)
			keys = append(keys, relayFlagKeys...)
			env, err := cmdenv.Load(cmd, keys...)
			if err != nil {
				return err
			}
			cmder.env = env
			cmder.upstreamPinned = cmd.Flags().Changed(config.Flags[config.FlagUpstream].Name)
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmder.logFile == "" {
				cmder.logger = relayLogger(cmd.ErrOrStderr(), nil, cmder.env.Debug, cmder.logJSON)
				return cmder.run(cmd.Context())
			}

			f, err := os.OpenFile(cmder.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
			if err != nil {
				return fmt.Errorf("opening log file: %w", err)
			}
			defer f.Close()

			cmder.logger = relayLogger(cmd.ErrOrStderr(), f, cmder.env.Debug, cmder.logJSON)
			return cmder.run(cmd.Context())
		},
	}

	cmdenv.AddClientFlags(cmd)
	cmdenv.AddStorageFlags(cmd)
	config.AddStringFlags(cmd, config.Flags, relayFlagKeys)
	cmd.Flags().StringVar(&cmder.relayToken, "relay-token", "", "Bearer token clients must present (default: "+
		credentials.EnvVarForTarget(credentials.TargetRelay)+" or stored credentials)")
	cmd.Flags().BoolVar(&cmder.logJSON, "log-json", false, "Write JSON logs")
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also append JSON logs to this file")
	cmd.Flags().BoolVar(&cmder.disableMCP, "no-mcp", false, "Serve /mcp without tools")
	cmd.Flags().BoolVar(&cmder.noWatch, "no-watch", false, "Do not reload relay.upstream when config.toml changes")

	return cmd
}

// relayLogger logs to console, pretty or as JSON, and as JSON to file when
// file is non-nil.
func relayLogger(console, file io.Writer, debug, jsonConsole bool) *slog.Logger {
	if jsonConsole {
		writers := []io.Writer{console}
		if file != nil {
			writers = append(writers, file)
		}
		return logger.New(logger.WithDebug(debug), logger.WithJSON(true), logger.WithWriters(writers...))
	}

	pretty := logger.New(logger.WithDebug(debug), logger.WithPretty(true), logger.WithWriter(console))
	if file == nil {
		return pretty
	}
	return logger.Multi(pretty, logger.New(logger.WithDebug(debug), logger.WithJSON(true), logger.WithWriter(file)))
}

// upstreamFor returns the relay upstream for cfg.
func upstreamFor(cfg *config.Config) string {
	if cfg.Relay.Upstream != "" {
		return cfg.Relay.Upstream
	}
	return cfg.Client.BaseURL
}

func (c *serveCommander) run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := c.env.Config

	clientToken, source, err := c.env.Credentials.Resolve(credentials.TargetRelay, c.relayToken)
	if err != nil {
		return fmt.Errorf("resolving relay token: %w", err)
	}
	if source == credentials.SourceNone {
		c.logger.Warn("relay accepts unauthenticated clients")
	}

	driver, err := c.env.OpenStore(ctx)
	if err != nil {
		return err
	}
	defer driver.Close()

	publisher, err := provider.Open(cfg.EventStream, c.logger)
	if err != nil {
		return fmt.Errorf("opening event publisher: %w", err)
	}
	defer publisher.Close()

	r, err := relay.New(relay.Config{
		ListenAddr:    cfg.Relay.Listen,
		UpstreamURL:   upstreamFor(cfg),
		UpstreamToken: c.env.Token,
		ClientToken:   clientToken,
		DefaultAgent:  cfg.Client.Agent,
		Timeout:       c.env.Timeout,
		Publisher:     publisher,
		DisableMCP:    c.disableMCP,
	}, driver, c.logger)
	if err != nil {
		return fmt.Errorf("creating relay: %w", err)
	}

	if !c.noWatch && !c.upstreamPinned {
		go c.watchUpstream(ctx, r)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- r.Run()
	}()

	select {
	case err := <-errCh:
		r.Close()
		return err
	case <-ctx.Done():
		c.logger.Info("shutting down relay")
		if err := r.Close(); err != nil {
			return fmt.Errorf("shutting down relay: %w", err)
		}
		return nil
	}
}

func (c *serveCommander) watchUpstream(ctx context.Context, r *relay.Relay) {
	cfger, err := config.NewConfiger(c.env.ConfigDir)
	if err != nil || cfger.GetTarget() == "" {
		return
	}

	err = config.Watch(ctx, cfger.GetTarget(), func(cfg *config.Config, err error) {
		if err != nil {
			c.logger.Warn("ignoring invalid config change", "error", err)
			return
		}
		r.SetUpstream(upstreamFor(cfg))
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Warn("config watcher stopped", "error", err)
	}
}
