package header

import (
	"net/http"
	"net/http/httptest"

	"github.com/gofiber/fiber/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// upstreamHeaders runs SetUpstreamRequestHeaders inside a fiber handler and
// returns the headers the upstream request would carry.
func upstreamHeaders(hh *Handler, req *http.Request) http.Header {
	app := fiber.New()
	defer app.Shutdown()

	var got http.Header
	app.Post("/test", func(c *fiber.Ctx) error {
		out, _ := http.NewRequest(http.MethodPost, "http://upstream/test", nil)
		hh.SetUpstreamRequestHeaders(c, out)
		got = out.Header
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(req)
	Expect(err).NotTo(HaveOccurred())
	resp.Body.Close()
	return got
}

var _ = Describe("SetUpstreamRequestHeaders", func() {
	It("forwards standard headers to the upstream request", func() {
		req := httptest.NewRequest(http.MethodPost, "/test", nil)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Request-Id", "abc-123")

		got := upstreamHeaders(NewHandler(""), req)
		Expect(got.Get("Content-Type")).To(Equal("application/json"))
		Expect(got.Get("X-Request-Id")).To(Equal("abc-123"))
	})

	It("replaces the client credential with the relay token", func() {
		req := httptest.NewRequest(http.MethodPost, "/test", nil)
		req.Header.Set("Authorization", "Bearer relay-client-token")

		got := upstreamHeaders(NewHandler("agent-secret"), req)
		Expect(got.Get("Authorization")).To(Equal("Bearer agent-secret"))
	})

	It("drops the client credential when no token is configured", func() {
		req := httptest.NewRequest(http.MethodPost, "/test", nil)
		req.Header.Set("Authorization", "Bearer relay-client-token")

		got := upstreamHeaders(NewHandler(""), req)
		Expect(got.Get("Authorization")).To(BeEmpty())
	})

	It("strips hop and routing headers", func() {
		req := httptest.NewRequest(http.MethodPost, "/test", nil)
		req.Header.Set("Connection", "keep-alive")
		req.Header.Set("Accept-Encoding", "gzip, deflate, br")
		req.Header.Set(AgentNameHeader, "research-assistant")

		got := upstreamHeaders(NewHandler(""), req)
		Expect(got.Get("Connection")).To(BeEmpty())
		Expect(got.Get("Accept-Encoding")).To(BeEmpty())
		Expect(got.Get("Host")).To(BeEmpty())
		Expect(got.Get(AgentNameHeader)).To(BeEmpty())
	})
})

var _ = Describe("SetClientResponseHeaders", func() {
	var (
		app *fiber.App
		hh  *Handler
	)

	BeforeEach(func() {
		app = fiber.New()
		hh = NewHandler("")
	})

	AfterEach(func() {
		app.Shutdown()
	})

	It("forwards upstream headers and strips per-leg ones", func() {
		app.Get("/test", func(c *fiber.Ctx) error {
			resp := &http.Response{
				Header: http.Header{
					"Content-Type":     {"text/event-stream"},
					"X-Request-Id":     {"abc-123"},
					"Connection":       {"keep-alive"},
					"Content-Encoding": {"gzip"},
				},
			}
			hh.SetClientResponseHeaders(c, resp)
			return c.SendStatus(fiber.StatusOK)
		})

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/test", nil))
		Expect(err).NotTo(HaveOccurred())
		resp.Body.Close()

		Expect(resp.Header.Get("Content-Type")).To(Equal("text/event-stream"))
		Expect(resp.Header.Get("X-Request-Id")).To(Equal("abc-123"))
		Expect(resp.Header.Get("Content-Encoding")).To(BeEmpty())
	})
})

var _ = Describe("BearerToken", func() {
	It("extracts bearer tokens case-insensitively", func() {
		Expect(BearerToken("Bearer abc")).To(Equal("abc"))
		Expect(BearerToken("bearer  abc ")).To(Equal("abc"))
	})

	It("rejects other schemes", func() {
		Expect(BearerToken("Basic dXNlcjpwYXNz")).To(BeEmpty())
		Expect(BearerToken("")).To(BeEmpty())
	})
})
