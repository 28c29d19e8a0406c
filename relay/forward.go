package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/agentchat/pkg/agent"
	"github.com/papercomputeco/agentchat/pkg/stream"
	"github.com/papercomputeco/agentchat/pkg/transcript"
	"github.com/papercomputeco/agentchat/relay/header"
)

// handleForward relays a request upstream and returns the response as is.
func (r *Relay) handleForward(c *fiber.Ctx) error {
	httpResp, err := r.doUpstream(c.Context(), c, c.Method(), c.Body())
	if err != nil {
		return r.upstreamFailed(c, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		r.logger.Error("failed to read upstream response", "error", err)
		return c.Status(fiber.StatusBadGateway).JSON(ErrorResponse{Detail: "failed to read upstream response"})
	}

	r.headerHandler.SetClientResponseHeaders(c, httpResp)
	return c.Status(httpResp.StatusCode).Send(respBody)
}

// handleInvoke relays a non-streaming invocation and records the exchange
// when the agent answers.
func (r *Relay) handleInvoke(c *fiber.Ctx) error {
	startTime := time.Now()
	body := c.Body()
	ex := r.newExchange(c, body, false, startTime)

	httpResp, err := r.doUpstream(c.Context(), c, fiber.MethodPost, body)
	if err != nil {
		return r.upstreamFailed(c, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		r.logger.Error("failed to read upstream response", "error", err)
		return c.Status(fiber.StatusBadGateway).JSON(ErrorResponse{Detail: "failed to read upstream response"})
	}

	r.headerHandler.SetClientResponseHeaders(c, httpResp)

	if httpResp.StatusCode == http.StatusOK && ex != nil {
		res, err := agent.DecodeInvokeResult(respBody)
		if err != nil {
			r.logger.Warn("failed to parse invoke response", "error", err, "agent", ex.Agent)
		} else {
			ex.Response = res.DisplayText()
			ex.RunID = res.RunID()
			ex.Duration = time.Since(startTime)
			r.logger.Debug("received response from upstream",
				"agent", ex.Agent,
				"thread_id", ex.ThreadID,
				"duration", since(startTime),
			)
			r.record(ex)
		}
	}

	return c.Status(httpResp.StatusCode).Send(respBody)
}

// handleStream relays a streaming invocation. Upstream bytes are passed to
// the client unchanged while a stream.Assembler rebuilds the display text
// for the recorded exchange.
func (r *Relay) handleStream(c *fiber.Ctx) error {
	startTime := time.Now()
	body := c.Body()
	ex := r.newExchange(c, body, true, startTime)

	// fasthttp recycles the request context once the handler returns, but the
	// stream keeps running in its own goroutine.
	ctx, cancel := context.WithTimeout(context.Background(), r.config.Timeout)

	httpResp, err := r.doUpstream(ctx, c, fiber.MethodPost, body)
	if err != nil {
		cancel()
		return r.upstreamFailed(c, err)
	}
	if httpResp.StatusCode != http.StatusOK {
		defer cancel()
		respBody, _ := io.ReadAll(httpResp.Body)
		httpResp.Body.Close()
		r.logger.Error("upstream returned error",
			"status", httpResp.StatusCode,
			"body", string(respBody),
		)
		r.headerHandler.SetClientResponseHeaders(c, httpResp)
		return c.Status(httpResp.StatusCode).Send(respBody)
	}

	r.headerHandler.SetClientResponseHeaders(c, httpResp)

	// pw.Write blocks until fasthttp has flushed the previous chunk to the
	// client, so each upstream chunk goes out as its own HTTP chunk.
	pr, pw := io.Pipe()
	go r.pipeStream(ctx, cancel, httpResp, pw, ex, startTime)

	c.Context().Response.SetBodyStream(pr, -1)
	return nil
}

// pipeStream copies the upstream stream to pw, assembling the display text
// on the way, and records the exchange before closing pw.
func (r *Relay) pipeStream(ctx context.Context, cancel context.CancelFunc, httpResp *http.Response, pw *io.PipeWriter, ex *transcript.Exchange, startTime time.Time) {
	defer cancel()
	defer httpResp.Body.Close()

	var agentErr string
	asm := stream.NewAssembler(
		stream.WithLogger(r.logger),
		stream.WithEventHandler(func(ev *stream.Event) {
			if ex == nil {
				return
			}
			if msg, ok := ev.Message(); ok && msg.RunID != "" {
				ex.RunID = msg.RunID
			}
			if text, ok := ev.ErrorText(); ok {
				agentErr = text
			}
		}),
	)

	err := asm.Consume(ctx, io.TeeReader(httpResp.Body, pw))
	if err != nil {
		r.logger.Error("error relaying stream", "error", err)
	}

	if ex != nil {
		ex.Response = asm.Text()
		ex.Duration = time.Since(startTime)
		switch {
		case err != nil:
			ex.Failed = true
			ex.Error = err.Error()
		case agentErr != "":
			ex.Error = agentErr
		}

		stats := asm.Stats()
		r.logger.Debug("streaming complete",
			"agent", ex.Agent,
			"thread_id", ex.ThreadID,
			"fragments", stats.Fragments,
			"malformed", stats.Malformed,
			"duration", since(startTime),
		)
		r.record(ex)
	}

	if err != nil {
		pw.CloseWithError(err)
		return
	}
	pw.Close()
}

// newExchange starts the exchange for a chat request body. It returns nil
// when the body is not a chat request.
func (r *Relay) newExchange(c *fiber.Ctx, body []byte, streamed bool, startTime time.Time) *transcript.Exchange {
	var req agent.Request
	if err := json.Unmarshal(body, &req); err != nil || strings.TrimSpace(req.Message) == "" {
		r.logger.Warn("failed to parse chat request", "error", err, "path", c.Path())
		return nil
	}

	return &transcript.Exchange{
		ThreadID:  req.ThreadID,
		Agent:     r.agentName(c),
		Prompt:    req.Message,
		Streamed:  streamed,
		CreatedAt: startTime.UTC(),
	}
}

// agentName resolves the agent of a request from its path, the agent header
// or the configured default, in that order.
func (r *Relay) agentName(c *fiber.Ctx) string {
	if name := c.Params("agent"); name != "" {
		return name
	}
	if name := strings.TrimSpace(c.Get(header.AgentNameHeader)); name != "" {
		return name
	}
	return r.config.DefaultAgent
}

// doUpstream sends the current request's method, path and query upstream.
func (r *Relay) doUpstream(ctx context.Context, c *fiber.Ctx, method string, body []byte) (*http.Response, error) {
	upstreamURL := r.Upstream() + c.Path()
	if q := c.Request().URI().QueryString(); len(q) > 0 {
		upstreamURL += "?" + string(q)
	}

	var reqBody io.Reader
	if len(body) > 0 {
		reqBody = bytes.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, upstreamURL, reqBody)
	if err != nil {
		return nil, err
	}
	r.headerHandler.SetUpstreamRequestHeaders(c, httpReq)

	r.logger.Debug("forwarding request to upstream",
		"method", method,
		"url", upstreamURL,
	)

	return r.httpClient.Do(httpReq)
}

func (r *Relay) upstreamFailed(c *fiber.Ctx, err error) error {
	r.logger.Error("upstream request failed", "error", err)

	status := fiber.StatusBadGateway
	if errors.Is(err, context.DeadlineExceeded) {
		status = fiber.StatusGatewayTimeout
	}
	return c.Status(status).JSON(ErrorResponse{Detail: "upstream request failed"})
}
