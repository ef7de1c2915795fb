package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/philipxlee/bazingamart/internal/config"
	"github.com/philipxlee/bazingamart/internal/http/handlers"
	"github.com/philipxlee/bazingamart/internal/metrics"
	"github.com/philipxlee/bazingamart/internal/repos"
)

type testEnv struct {
	app     *fiber.App
	db      *sqlx.DB
	metrics *metrics.Metrics
}

// newTestApp builds the real app over a seeded temp database. tweak may
// adjust the config before the app is built.
func newTestApp(t *testing.T, tweak func(*config.Config)) *testEnv {
	t.Helper()
	cfg := config.Config{
		DBDSN:         repos.FileDSN(filepath.Join(t.TempDir(), "test.db")),
		JWTSecret:     "test-secret",
		BcryptCost:    bcrypt.MinCost,
		LoginLimit:    100,
		CheckoutLimit: 100,
	}
	if tweak != nil {
		tweak(&cfg)
	}
	db, err := repos.OpenDB(cfg.DBDSN)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, repos.SeedDemo(context.Background(), db, cfg.BcryptCost))

	m := metrics.New()
	app := handlers.NewApp(handlers.NewDeps(db, cfg, m), cfg)
	return &testEnv{app: app, db: db, metrics: m}
}

func (e *testEnv) do(t *testing.T, req *http.Request) *http.Response {
	t.Helper()
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

// api sends a JSON request with an optional bearer token and decodes a JSON
// object reply, if any.
func (e *testEnv) api(t *testing.T, method, path, token string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := e.do(t, req)
	raw, _ := io.ReadAll(resp.Body)
	out := map[string]any{}
	_ = json.Unmarshal(raw, &out)
	return resp, out
}

func (e *testEnv) token(t *testing.T, email string) string {
	t.Helper()
	resp, out := e.api(t, "POST", "/api/v1/token", "", map[string]string{"email": email, "password": repos.DemoPassword})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	tok, _ := out["access_token"].(string)
	require.NotEmpty(t, tok)
	return tok
}

func cookieValue(resp *http.Response, name string) string {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

// browser carries the csrf and session cookies across form posts.
type browser struct {
	env  *testEnv
	csrf string
	sid  string
}

func (e *testEnv) browser(t *testing.T) *browser {
	t.Helper()
	resp := e.do(t, httptest.NewRequest("GET", "/login", nil))
	b := &browser{env: e, csrf: cookieValue(resp, "csrf_")}
	require.NotEmpty(t, b.csrf, "csrf cookie missing")
	return b
}

func (b *browser) cookies(req *http.Request) {
	req.AddCookie(&http.Cookie{Name: "csrf_", Value: b.csrf})
	if b.sid != "" {
		req.AddCookie(&http.Cookie{Name: "sid", Value: b.sid})
	}
}

func (b *browser) get(t *testing.T, path string) *http.Response {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	b.cookies(req)
	return b.env.do(t, req)
}

func (b *browser) post(t *testing.T, path string, form url.Values) *http.Response {
	t.Helper()
	if form == nil {
		form = url.Values{}
	}
	if form.Get("csrf") == "" {
		form.Set("csrf", b.csrf)
	}
	req := httptest.NewRequest("POST", path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	b.cookies(req)
	resp := b.env.do(t, req)
	if sid := cookieValue(resp, "sid"); sid != "" {
		b.sid = sid
	}
	return resp
}

func (b *browser) login(t *testing.T, email, password string) *http.Response {
	t.Helper()
	return b.post(t, "/login", url.Values{"email": {email}, "password": {password}})
}

type logEntry struct {
	Level  string         `json:"level"`
	Action string         `json:"action"`
	UserID string         `json:"user_id"`
	Fields map[string]any `json:"fields"`
}

type lockedBuf struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (l *lockedBuf) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.b.Write(p)
}

// captureLogs collects the JSON log lines written while fn runs.
func captureLogs(t *testing.T, fn func()) []logEntry {
	t.Helper()
	buf := &lockedBuf{}
	oldW, oldFlags := log.Writer(), log.Flags()
	log.SetOutput(buf)
	log.SetFlags(0)
	defer func() {
		log.SetOutput(oldW)
		log.SetFlags(oldFlags)
	}()

	fn()

	var entries []logEntry
	for _, line := range strings.Split(strings.TrimSpace(buf.b.String()), "\n") {
		var e logEntry
		if err := json.Unmarshal([]byte(strings.TrimSpace(line)), &e); err == nil && e.Action != "" {
			entries = append(entries, e)
		}
	}
	return entries
}

func findLog(entries []logEntry, action string) (logEntry, bool) {
	for _, e := range entries {
		if e.Action == action {
			return e, true
		}
	}
	return logEntry{}, false
}
