package relay

import (
	"time"

	"github.com/papercomputeco/agentchat/pkg/eventstream"
)

// Config is the relay server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8090")
	ListenAddr string

	// UpstreamURL is the agent service URL (e.g., "http://localhost:8080")
	UpstreamURL string

	// UpstreamToken is the bearer token the relay presents to the agent
	// service. Clients never see it.
	UpstreamToken string

	// ClientToken, when set, must be presented by clients as a bearer token.
	ClientToken string

	// DefaultAgent is recorded for requests to the unprefixed routes.
	DefaultAgent string

	// Timeout bounds each upstream request. Defaults to 5 minutes.
	Timeout time.Duration

	// Publisher is an optional event stream publisher for recorded exchanges.
	Publisher eventstream.Publisher

	// DisableMCP serves an MCP endpoint with no tools.
	DisableMCP bool
}
