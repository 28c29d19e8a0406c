package relay

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/agentchat/pkg/transcript"
)

// defaultListLimit bounds GET /transcripts without a limit query.
const defaultListLimit = 50

// handlePing returns a simple health check response.
func (r *Relay) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleListTranscripts returns recorded exchanges, newest first, or the
// exchanges of one thread in order when ?thread= is given.
func (r *Relay) handleListTranscripts(c *fiber.Ctx) error {
	ctx := c.Context()

	var (
		exchanges []*transcript.Exchange
		err       error
	)
	if thread := c.Query("thread"); thread != "" {
		exchanges, err = r.driver.ListByThread(ctx, thread)
	} else {
		exchanges, err = r.driver.List(ctx, c.QueryInt("limit", defaultListLimit))
	}
	if err != nil {
		r.logger.Error("failed to list transcripts", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Detail: "failed to list transcripts"})
	}

	return c.JSON(map[string]any{
		"count":     len(exchanges),
		"exchanges": exchanges,
	})
}

// handleGetTranscript returns a single exchange by its ID.
func (r *Relay) handleGetTranscript(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Detail: "id parameter required"})
	}

	ex, err := r.driver.Get(c.Context(), id)
	if err != nil {
		var notFound transcript.NotFoundError
		if errors.As(err, &notFound) {
			return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Detail: "exchange not found"})
		}
		r.logger.Error("failed to get transcript", "id", id, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Detail: "failed to get exchange"})
	}

	return c.JSON(ex)
}

// handleListThreads summarizes the recorded threads.
func (r *Relay) handleListThreads(c *fiber.Ctx) error {
	threads, err := r.driver.Threads(c.Context())
	if err != nil {
		r.logger.Error("failed to list threads", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Detail: "failed to list threads"})
	}

	return c.JSON(map[string]any{
		"count":   len(threads),
		"threads": threads,
	})
}
