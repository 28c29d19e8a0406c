// Package header provides header filtering for the agentchat relay.
//
// The relay sits between a chat client and the agent service like so:
//
//	Client <--> Relay <--> Agent Service
//
// and each leg carries its own credentials: clients authenticate to the
// relay with the relay token, the relay authenticates upstream with the
// agent token, which never leaves the relay.
package header

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// AgentNameHeader is the optional header used to tag the agent of requests
// sent to the unprefixed /invoke and /stream routes.
const AgentNameHeader = "X-Agentchat-Agent"

const bearerPrefix = "Bearer "

// Handler manages headers between relay connections.
type Handler struct {
	token string
}

// NewHandler creates a new header Handler that authenticates upstream
// requests with token. An empty token sends no Authorization header.
func NewHandler(token string) *Handler {
	return &Handler{token: token}
}

// skipRequest is the set of request headers (client --> relay --> upstream)
// that are not forwarded to the agent service.
var skipRequest = map[string]struct{}{
	"Connection": {},

	// Rewritten by http.Transport to match the upstream URL.
	"Host": {},

	// Stripped so http.Transport negotiates and decodes gzip itself.
	"Accept-Encoding": {},

	// The client's credential is for the relay only.
	"Authorization": {},

	"Content-Length": {},

	AgentNameHeader: {},
}

// skipResponse is the set of upstream response headers (client <-- relay <-- upstream)
// that are not copied back to the downstream client.
var skipResponse = map[string]struct{}{
	"Connection": {},

	// fasthttp manages chunked transfer encoding for the client leg.
	"Transfer-Encoding": {},

	// The relay reads a decoded body; the upstream values no longer apply.
	"Content-Encoding": {},
	"Content-Length":   {},
}

// SetUpstreamRequestHeaders copies request headers from the Fiber context to
// the outgoing http.Request, dropping headers that belong to the client leg
// and setting the relay's own bearer token.
func (h *Handler) SetUpstreamRequestHeaders(c *fiber.Ctx, req *http.Request) {
	c.Request().Header.VisitAll(func(key, value []byte) {
		k := http.CanonicalHeaderKey(string(key))
		if _, skip := skipRequest[k]; !skip {
			req.Header.Set(k, string(value))
		}
	})

	if h.token != "" {
		req.Header.Set("Authorization", bearerPrefix+h.token)
	}
}

// SetClientResponseHeaders copies response headers from the upstream
// http.Response to the Fiber context, filtering headers that the relay should
// not forward back down to the client.
func (h *Handler) SetClientResponseHeaders(c *fiber.Ctx, resp *http.Response) {
	for k, v := range resp.Header {
		if _, skip := skipResponse[k]; !skip {
			c.Set(k, strings.Join(v, ", "))
		}
	}
}

// BearerToken returns the token of an "Authorization: Bearer" header value,
// or "" when the value is not a bearer credential.
func BearerToken(value string) string {
	if len(value) < len(bearerPrefix) || !strings.EqualFold(value[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(value[len(bearerPrefix):])
}
