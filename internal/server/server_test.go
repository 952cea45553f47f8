package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/storefront-dev/storefront/internal/auth"
	"github.com/storefront-dev/storefront/internal/config"
	"github.com/storefront-dev/storefront/internal/database"
	"github.com/storefront-dev/storefront/internal/models"
	"github.com/storefront-dev/storefront/internal/sessions"
	"github.com/storefront-dev/storefront/internal/testhelpers"
)

const testPassword = "secret123"

type recordingEnqueuer struct {
	mu    sync.Mutex
	tasks []*asynq.Task
}

func (r *recordingEnqueuer) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks = append(r.tasks, task)
	return &asynq.TaskInfo{ID: "task", Type: task.Type()}, nil
}

type testEnv struct {
	server   *Server
	db       *gorm.DB
	enqueuer *recordingEnqueuer
	revoker  *sessions.MemoryRevoker
}

func testConfig() *config.Config {
	return &config.Config{
		HTTP: config.HTTPConfig{
			Port:               "5000",
			LoginRatePerSecond: 100,
			LoginBurst:         100,
		},
		Session: config.SessionConfig{
			Secret: "test-secret",
			TTL:    time.Hour,
		},
		Worker: config.WorkerConfig{
			PendingOrderTTL: 30 * time.Minute,
		},
	}
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithConfig(t, testConfig())
}

func newTestEnvWithConfig(t *testing.T, cfg *config.Config) *testEnv {
	t.Helper()
	auth.InitializeJWT(cfg.Session.Secret, cfg.Session.TTL)

	db := testhelpers.NewDB(t)
	env := &testEnv{
		db:       db,
		enqueuer: &recordingEnqueuer{},
		revoker:  sessions.NewMemoryRevoker(),
	}
	env.server = newServer(cfg, zerolog.Nop(), "test", Dependencies{
		Connector: database.Connected(db, zerolog.Nop()),
		Enqueuer:  env.enqueuer,
		Revoker:   env.revoker,
	})
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}

	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

// login signs the user in and returns the session cookie
func (e *testEnv) login(t *testing.T, email string) *http.Cookie {
	t.Helper()

	rec := e.do(t, http.MethodPost, "/api/auth/login", LoginRequest{Email: email, Password: testPassword})
	require.Equal(t, http.StatusOK, rec.Code)

	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == sessionCookie && cookie.Value != "" {
			return cookie
		}
	}
	t.Fatalf("login for %s did not set a session cookie: %s", email, rec.Body.String())
	return nil
}

func (e *testEnv) createUser(t *testing.T, userName, email, role string) *models.User {
	return testhelpers.CreateUser(t, e.db, userName, email, testPassword, role)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

type envelope[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[map[string]any](t, rec)
	assert.Equal(t, "online", body["status"])
	assert.Equal(t, true, body["database"])
}

func TestDatabaseUnavailable(t *testing.T) {
	cfg := testConfig()
	auth.InitializeJWT(cfg.Session.Secret, cfg.Session.TTL)

	// never started, so the connection is never ready
	connector := database.NewConnector("unused", zerolog.Nop())
	srv := newServer(cfg, zerolog.Nop(), "test", Dependencies{Connector: connector})
	env := &testEnv{server: srv}

	rec := env.do(t, http.MethodGet, "/api/shop/products/get", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decode[Response](t, rec)
	assert.False(t, body.Success)
	assert.Equal(t, "Database unavailable", body.Message)

	rec = env.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "degraded", decode[map[string]any](t, rec)["status"])

	// logout does not need the database
	rec = env.do(t, http.MethodPost, "/api/auth/logout", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORSReflectsOriginWithCredentials(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/auth/check-auth", nil)
	req.Header.Set("Origin", "http://shop.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "http://shop.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORSAllowlist(t *testing.T) {
	cfg := testConfig()
	cfg.HTTP.CORSOrigins = []string{"http://allowed.example.com"}
	env := newTestEnvWithConfig(t, cfg)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://evil.example.com")
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodGet, "/health", nil)

	rec := env.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "storefront_http_requests_total")
}

func TestRateLimiter(t *testing.T) {
	limiter := NewRateLimiter(1, 2)
	assert.True(t, limiter.Allow("a"))
	assert.True(t, limiter.Allow("a"))
	assert.False(t, limiter.Allow("a"))
	assert.True(t, limiter.Allow("b"), "limits are per client")
}

func TestLoginRateLimit_IgnoresForwardedForFromUntrustedPeer(t *testing.T) {
	cfg := testConfig()
	cfg.HTTP.LoginRatePerSecond = 1
	cfg.HTTP.LoginBurst = 2
	env := newTestEnvWithConfig(t, cfg)

	attempt := func(forwardedFor string) int {
		payload, err := json.Marshal(LoginRequest{Email: "nobody@example.com", Password: "wrong-password"})
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		req.RemoteAddr = "192.0.2.10:40000"
		if forwardedFor != "" {
			req.Header.Set("X-Forwarded-For", forwardedFor)
		}
		rec := httptest.NewRecorder()
		env.server.Handler().ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, attempt(""))
	assert.Equal(t, http.StatusOK, attempt(""))
	assert.Equal(t, http.StatusTooManyRequests, attempt(""))

	for i := 1; i <= 5; i++ {
		assert.Equal(t, http.StatusTooManyRequests, attempt(fmt.Sprintf("10.0.0.%d", i)))
	}
}

func TestLoginRateLimit_TrustedProxy(t *testing.T) {
	cfg := testConfig()
	cfg.HTTP.LoginRatePerSecond = 1
	cfg.HTTP.LoginBurst = 1
	cfg.HTTP.TrustedProxies = []string{"192.0.2.10"}
	env := newTestEnvWithConfig(t, cfg)

	attempt := func(forwardedFor string) int {
		payload, err := json.Marshal(LoginRequest{Email: "nobody@example.com", Password: "wrong-password"})
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		req.RemoteAddr = "192.0.2.10:40000"
		req.Header.Set("X-Forwarded-For", forwardedFor)
		rec := httptest.NewRecorder()
		env.server.Handler().ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, attempt("203.0.113.1"))
	assert.Equal(t, http.StatusTooManyRequests, attempt("203.0.113.1"))
	assert.Equal(t, http.StatusOK, attempt("203.0.113.2"), "clients behind a trusted proxy are limited separately")
}
