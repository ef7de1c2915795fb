package log

import (
	"bytes"
	"encoding/json"
	"errors"
	stdlog "log"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/philipxlee/bazingamart/internal/domain"
)

func capture(t *testing.T, fn func()) []entry {
	t.Helper()
	var buf bytes.Buffer
	oldW, oldFlags := stdlog.Writer(), stdlog.Flags()
	stdlog.SetOutput(&buf)
	stdlog.SetFlags(0)
	defer func() {
		stdlog.SetOutput(oldW)
		stdlog.SetFlags(oldFlags)
	}()

	fn()

	var out []entry
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var e entry
		if err := json.Unmarshal([]byte(line), &e); err == nil {
			out = append(out, e)
		}
	}
	return out
}

func TestWriteWithoutContext(t *testing.T) {
	entries := capture(t, func() {
		Error(nil, "seed.fail", errors.New("boom"), map[string]any{"table": "users"})
	})
	require.Len(t, entries, 1)
	assert.Equal(t, "error", entries[0].Level)
	assert.Equal(t, "seed.fail", entries[0].Action)
	assert.Equal(t, "boom", entries[0].Err)
	assert.Equal(t, "users", entries[0].Fields["table"])
	assert.Empty(t, entries[0].Path)
}

func TestWriteCarriesRequestAndUser(t *testing.T) {
	app := fiber.New()
	app.Use(requestid.New())
	app.Get("/x", func(c *fiber.Ctx) error {
		c.Locals("user", &domain.User{ID: "u-1"})
		Audit(c, "checkout.success", map[string]any{"order_id": "o-1"})
		return c.SendStatus(fiber.StatusOK)
	})

	entries := capture(t, func() {
		_, err := app.Test(httptest.NewRequest("GET", "/x", nil))
		require.NoError(t, err)
	})
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, "audit", e.Level)
	assert.Equal(t, "/x", e.Path)
	assert.Equal(t, "GET", e.Method)
	assert.Equal(t, "u-1", e.UserID)
	assert.NotEmpty(t, e.ReqID)
}
