package server

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/timecard-be/internal/config"
	"github.com/hongminglow/timecard-be/internal/storage/memory"
)

func testConfig() config.Config {
	return config.Config{
		Port:           "0",
		StorageDriver:  config.DriverMemory,
		JWTSecret:      "server-test-secret",
		JWTIssuer:      "timecard-test",
		JWTTTL:         time.Hour,
		BcryptCost:     4,
		CORSOrigins:    []string{"*"},
		AuthRateLimit:  "3-M",
		MetricsEnabled: true,
		Development:    true,
	}
}

func newTestServer(t *testing.T, cfg config.Config) *httptest.Server {
	t.Helper()
	h, err := NewHandler(cfg, Deps{Store: memory.New(), Log: zerolog.Nop()})
	require.NoError(t, err)
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return ts
}

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestNewHandlerRequiresStore(t *testing.T) {
	_, err := NewHandler(testConfig(), Deps{Log: zerolog.Nop()})
	assert.Error(t, err)
}

func TestNewHandlerRejectsBadRate(t *testing.T) {
	cfg := testConfig()
	cfg.AuthRateLimit = "lots"
	_, err := NewHandler(cfg, Deps{Store: memory.New(), Log: zerolog.Nop()})
	assert.Error(t, err)
}

func TestRoutes(t *testing.T) {
	ts := newTestServer(t, testConfig())

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))

	resp = post(t, ts.URL+"/api/signup", `{"username":"alice","email":"alice@example.com","password":"secret1"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/api/entries")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(buf.String(), "timecard_http_request_duration_seconds"))
}

func TestAuthRoutesAreRateLimited(t *testing.T) {
	ts := newTestServer(t, testConfig())

	body := `{"email":"nobody@example.com","password":"x"}`
	for i := 0; i < 3; i++ {
		resp := post(t, ts.URL+"/api/login", body)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}
	resp := post(t, ts.URL+"/api/login", body)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	// The limiter guards credentials only.
	health, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	health.Body.Close()
	assert.Equal(t, http.StatusOK, health.StatusCode)
}

func TestMetricsDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.MetricsEnabled = false
	ts := newTestServer(t, cfg)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStaticBundle(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>timecard</html>"), 0o644))
	cfg := testConfig()
	cfg.StaticDir = dir
	ts := newTestServer(t, cfg)

	resp, err := http.Get(ts.URL + "/profile")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	apiResp, err := http.Get(ts.URL + "/api/nope")
	require.NoError(t, err)
	apiResp.Body.Close()
	assert.Equal(t, http.StatusNotFound, apiResp.StatusCode)
}
