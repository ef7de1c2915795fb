package handlers_test

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/philipxlee/bazingamart/internal/http/handlers"
	"github.com/philipxlee/bazingamart/web"
)

func TestHealthAndMetrics(t *testing.T) {
	env := newTestApp(t, nil)

	resp := env.do(t, httptest.NewRequest("GET", "/healthz", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	env.do(t, httptest.NewRequest("GET", "/api/v1/listings", nil))
	resp = env.do(t, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), `bazingamart_http_requests_total{route="/api/v1/listings",status="200"}`)
}

func TestNotFoundAnswersInKind(t *testing.T) {
	env := newTestApp(t, nil)

	resp, out := env.api(t, "GET", "/api/v1/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not found", out["error"])

	resp = env.do(t, httptest.NewRequest("GET", "/nope", nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "Page not found")
}

func TestErrorHandlerFriendlyMessage(t *testing.T) {
	app := fiber.New(fiber.Config{Views: web.Engine(), ErrorHandler: handlers.ErrorHandler})
	app.Get("/err", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusInternalServerError, "db timeout: secret trace")
	})
	app.Get("/api/v1/err", func(c *fiber.Ctx) error {
		return io.ErrUnexpectedEOF
	})

	var entries []logEntry
	var bodies []string
	entries = captureLogs(t, func() {
		for _, path := range []string{"/err", "/api/v1/err"} {
			resp, err := app.Test(httptest.NewRequest("GET", path, nil))
			require.NoError(t, err)
			assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
			b, _ := io.ReadAll(resp.Body)
			bodies = append(bodies, string(b))
		}
	})
	for _, s := range bodies {
		assert.Contains(t, s, "Something went wrong")
		assert.NotContains(t, s, "secret")
		assert.NotContains(t, s, "unexpected EOF")
	}
	logged, ok := findLog(entries, "server.error")
	require.True(t, ok)
	assert.Equal(t, "error", logged.Level)
}

func TestBodySizeLimit(t *testing.T) {
	env := newTestApp(t, nil)
	tok := env.token(t, "buyer@buyer.com")

	oversize := bytes.Repeat([]byte("A"), (1<<20)+10)
	req := httptest.NewRequest("POST", "/api/v1/cart/items", bytes.NewReader(oversize))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+tok)
	resp, err := env.app.Test(req, -1)
	// fasthttp may drop the connection instead of answering
	if err != nil {
		if strings.Contains(err.Error(), "body size exceeds") || strings.Contains(err.Error(), "too large") {
			return
		}
		t.Fatalf("unexpected error: %v", err)
	}
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}
