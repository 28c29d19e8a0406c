// Package relay provides a local HTTP relay in front of the agent service.
// The relay forwards chat requests upstream with its own credentials, streams
// responses back unchanged and records every exchange it sees.
package relay

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"

	"github.com/papercomputeco/agentchat/pkg/agent"
	"github.com/papercomputeco/agentchat/pkg/eventstream"
	"github.com/papercomputeco/agentchat/pkg/transcript"
	"github.com/papercomputeco/agentchat/pkg/worker"
	"github.com/papercomputeco/agentchat/relay/header"
	"github.com/papercomputeco/agentchat/relay/mcp"
)

const componentName = "relay"

// ErrorResponse is the error body the relay returns, shaped like the agent
// service's own errors.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// Relay is a transparent HTTP relay to the agent service.
type Relay struct {
	config        Config
	driver        transcript.Driver
	workerPool    *worker.Pool
	logger        *slog.Logger
	httpClient    *http.Client
	server        *fiber.App
	headerHandler *header.Handler
	mcpServer     *mcp.Server

	mu       sync.RWMutex
	upstream string
}

// New creates a new Relay. The driver is injected so exchanges can be shared
// with other components.
func New(config Config, driver transcript.Driver, logger *slog.Logger) (*Relay, error) {
	if config.UpstreamURL == "" {
		return nil, errors.New("upstream URL is required")
	}
	if driver == nil {
		return nil, errors.New("transcript driver is required")
	}
	if config.Timeout <= 0 {
		config.Timeout = agent.DefaultTimeout
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		StreamRequestBody:     true,
	})

	// Streams are sent chunk by chunk and never compressed.
	app.Use(compress.New(compress.Config{
		Next: func(c *fiber.Ctx) bool {
			return strings.HasSuffix(c.Path(), "/stream")
		},
	}))

	wp, err := worker.NewPool(&worker.Config{
		Driver:    driver,
		Publisher: config.Publisher,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create worker pool: %w", err)
	}

	r := &Relay{
		config:        config,
		driver:        driver,
		workerPool:    wp,
		logger:        logger,
		server:        app,
		headerHandler: header.NewHandler(config.UpstreamToken),
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		upstream: strings.TrimRight(config.UpstreamURL, "/"),
	}

	client, err := agent.New(agent.Config{
		BaseURL: r.upstream,
		Token:   config.UpstreamToken,
		Agent:   config.DefaultAgent,
		Timeout: config.Timeout,
		Logger:  logger,
	})
	if err != nil {
		wp.Close()
		return nil, fmt.Errorf("could not create agent client: %w", err)
	}

	r.mcpServer, err = mcp.NewServer(mcp.Config{
		Client: client,
		Driver: driver,
		Record: r.recorder("mcp", config.DefaultAgent),
		Noop:   config.DisableMCP,
		Logger: logger,
	})
	if err != nil {
		wp.Close()
		return nil, fmt.Errorf("could not create MCP server: %w", err)
	}

	app.Get("/ping", r.handlePing)
	app.All("/mcp", r.authorize, adaptor.HTTPHandler(r.mcpServer.Handler()))

	app.Get("/transcripts", r.authorize, r.handleListTranscripts)
	app.Get("/transcripts/:id", r.authorize, r.handleGetTranscript)
	app.Get("/threads", r.authorize, r.handleListThreads)

	app.Get("/info", r.authorize, r.handleForward)
	app.Get("/health", r.authorize, r.handleForward)
	app.Post("/history", r.authorize, r.handleForward)
	app.Post("/feedback", r.authorize, r.handleForward)

	app.Post("/invoke", r.authorize, r.handleInvoke)
	app.Post("/stream", r.authorize, r.handleStream)
	app.Post("/:agent/invoke", r.authorize, r.handleInvoke)
	app.Post("/:agent/stream", r.authorize, r.handleStream)

	return r, nil
}

// Run starts the relay server on the configured listening address
func (r *Relay) Run() error {
	r.logger.Info("starting relay server",
		"listen", r.config.ListenAddr,
		"upstream", r.Upstream(),
	)

	return r.server.Listen(r.config.ListenAddr)
}

// RunWithListener starts the relay server using the provided listener.
func (r *Relay) RunWithListener(listener net.Listener) error {
	r.logger.Info("starting relay server",
		"listen", listener.Addr().String(),
		"upstream", r.Upstream(),
	)

	return r.server.Listener(listener)
}

// Close gracefully shuts down the relay and waits for the worker pool to drain
func (r *Relay) Close() error {
	err := r.server.Shutdown()
	r.workerPool.Close()
	return err
}

// Upstream returns the agent service URL requests are forwarded to.
func (r *Relay) Upstream() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.upstream
}

// SetUpstream changes the agent service URL for subsequent requests. The
// MCP tools keep the URL the relay was created with.
func (r *Relay) SetUpstream(upstream string) {
	upstream = strings.TrimRight(upstream, "/")
	if upstream == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if upstream != r.upstream {
		r.logger.Info("relay upstream changed", "from", r.upstream, "to", upstream)
		r.upstream = upstream
	}
}

// authorize rejects requests without the configured client token.
func (r *Relay) authorize(c *fiber.Ctx) error {
	if r.config.ClientToken == "" {
		return c.Next()
	}

	if header.BearerToken(c.Get(fiber.HeaderAuthorization)) != r.config.ClientToken {
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{Detail: "Not authenticated"})
	}
	return c.Next()
}

// recorder returns a function enqueueing exchanges from component.
func (r *Relay) recorder(component, agentName string) func(*transcript.Exchange) {
	return func(ex *transcript.Exchange) {
		r.workerPool.Enqueue(worker.Job{
			Exchange: ex,
			Source: eventstream.EventSource{
				Component: component,
				Agent:     agentName,
				Upstream:  r.Upstream(),
			},
		})
	}
}

// record enqueues an exchange seen on a forwarded route.
func (r *Relay) record(ex *transcript.Exchange) {
	r.recorder(componentName, ex.Agent)(ex)
}

// since returns the elapsed time rounded for logging.
func since(start time.Time) time.Duration {
	return time.Since(start).Round(time.Millisecond)
}
