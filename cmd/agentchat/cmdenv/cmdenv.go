// Package cmdenv resolves what every agentchat command needs before it runs:
// the layered configuration, the bearer token, the logger and the
// .agentchat/ directory.
package cmdenv

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/agentchat/pkg/agent"
	"github.com/papercomputeco/agentchat/pkg/config"
	"github.com/papercomputeco/agentchat/pkg/credentials"
	"github.com/papercomputeco/agentchat/pkg/dotdir"
	"github.com/papercomputeco/agentchat/pkg/eventstream"
	"github.com/papercomputeco/agentchat/pkg/eventstream/provider"
	"github.com/papercomputeco/agentchat/pkg/logger"
	"github.com/papercomputeco/agentchat/pkg/session"
	"github.com/papercomputeco/agentchat/pkg/transcript"
	"github.com/papercomputeco/agentchat/pkg/transcript/store"
	"github.com/papercomputeco/agentchat/pkg/worker"
)

// FlagToken is the per-command bearer token override.
const FlagToken = "token"

// Env is the resolved environment of one command invocation.
type Env struct {
	ConfigDir string
	DotDir    string
	Debug     bool

	Config  *config.Config
	Timeout time.Duration

	// Token is the agent service bearer token and TokenSource where it came from.
	Token       string
	TokenSource credentials.Source

	Credentials *credentials.Manager
	Logger      *slog.Logger
}

// AddClientFlags registers the flags of commands that talk to the agent service.
func AddClientFlags(cmd *cobra.Command) {
	config.AddStringFlags(cmd, config.Flags, config.ClientFlagKeys)
	cmd.Flags().String(FlagToken, "", "Agent service bearer token (default: "+
		credentials.EnvVarForTarget(credentials.TargetAgent)+" or stored credentials)")
}

// AddStorageFlags registers the transcript storage flags.
func AddStorageFlags(cmd *cobra.Command) {
	config.AddStringFlags(cmd, config.Flags, config.StorageFlagKeys)
}

// Load resolves the environment for cmd. keys names the registry flags cmd
// registered so they take precedence over env vars and config.toml.
func Load(cmd *cobra.Command, keys ...string) (*Env, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")
	debug, _ := cmd.Flags().GetBool("debug")

	v, err := config.InitViper(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	config.BindRegisteredFlags(v, cmd, config.Flags, keys)
	cfg := config.FromViper(v)

	timeout, err := cfg.Client.TimeoutDuration()
	if err != nil {
		return nil, err
	}

	dir, err := dotdir.NewManager().Target(configDir)
	if err != nil {
		return nil, err
	}

	creds, err := credentials.NewManager(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading credentials: %w", err)
	}

	explicit, _ := cmd.Flags().GetString(FlagToken)
	token, source, err := creds.Resolve(credentials.TargetAgent, explicit)
	if err != nil {
		return nil, fmt.Errorf("resolving agent token: %w", err)
	}

	return &Env{
		ConfigDir:   configDir,
		DotDir:      dir,
		Debug:       debug,
		Config:      cfg,
		Timeout:     timeout,
		Token:       token,
		TokenSource: source,
		Credentials: creds,
		Logger: logger.New(
			logger.WithDebug(debug),
			logger.WithPretty(true),
			logger.WithWriter(cmd.ErrOrStderr()),
		),
	}, nil
}

// NewClient returns an agent service client for the resolved configuration.
func (e *Env) NewClient() (*agent.Client, error) {
	client, err := agent.New(agent.Config{
		BaseURL: e.Config.Client.BaseURL,
		Token:   e.Token,
		Agent:   e.Config.Client.Agent,
		Timeout: e.Timeout,
		Logger:  e.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating agent client: %w", err)
	}
	return client, nil
}

// OpenStore opens the configured transcript driver.
func (e *Env) OpenStore(ctx context.Context) (transcript.Driver, error) {
	driver, err := store.Open(ctx, e.Config.Storage, e.DotDir)
	if err != nil {
		return nil, fmt.Errorf("opening transcript store: %w", err)
	}
	return driver, nil
}

// Recorder stores and publishes exchanges finished by a session.
type Recorder struct {
	pool      *worker.Pool
	driver    transcript.Driver
	publisher eventstream.Publisher
	source    eventstream.EventSource
}

// NewRecorder opens the transcript store and event publisher and starts a
// worker pool over them. component names the command in published events.
func (e *Env) NewRecorder(ctx context.Context, component string) (*Recorder, error) {
	driver, err := e.OpenStore(ctx)
	if err != nil {
		return nil, err
	}

	publisher, err := provider.Open(e.Config.EventStream, e.Logger)
	if err != nil {
		driver.Close()
		return nil, fmt.Errorf("opening event publisher: %w", err)
	}

	pool, err := worker.NewPool(&worker.Config{
		Driver:     driver,
		Publisher:  publisher,
		NumWorkers: 1,
		Logger:     e.Logger,
	})
	if err != nil {
		publisher.Close()
		driver.Close()
		return nil, err
	}

	return &Recorder{
		pool:      pool,
		driver:    driver,
		publisher: publisher,
		source: eventstream.EventSource{
			Component: component,
			Agent:     e.Config.Client.Agent,
			Upstream:  e.Config.Client.BaseURL,
		},
	}, nil
}

// Observe is a session observer recording every finished submission.
func (r *Recorder) Observe() func(session.Result) {
	return r.pool.Observer(r.source)
}

// Close drains pending exchanges and releases the store and publisher.
func (r *Recorder) Close() error {
	r.pool.Close()
	perr := r.publisher.Close()
	derr := r.driver.Close()
	if perr != nil {
		return perr
	}
	return derr
}
