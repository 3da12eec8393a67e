// Package server_test provides unit tests for the HTTP server package.
package server_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/retainhq/retain/internal/config"
	"github.com/retainhq/retain/internal/scheduler"
	"github.com/retainhq/retain/internal/server"
	"github.com/retainhq/retain/internal/storage/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startTestServer is a helper that starts a test server with an in-memory SQLite store.
// It returns the base URL and registers cleanup with t.Cleanup.
func startTestServer(t *testing.T, cfg *config.Config) string {
	t.Helper()

	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	cfg.Server.Port = 0 // Use random port for tests

	store, err := sqlite.New(":memory:")
	require.NoError(t, err, "failed to create in-memory SQLite store")

	sched, err := scheduler.New(scheduler.Config{DisableFuzzing: true})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())

	addrChan := make(chan string, 1)
	go func() {
		addr, _ := server.Start(ctx, cfg, store, server.Dependencies{Scheduler: sched})
		addrChan <- addr
	}()

	var addr string
	select {
	case addr = <-addrChan:
	case <-time.After(5 * time.Second):
		cancel()
		_ = store.Close()
		t.Fatal("server did not start within timeout")
	}

	// Give server a moment to be fully ready for connections
	time.Sleep(100 * time.Millisecond)

	t.Cleanup(func() {
		cancel()
		time.Sleep(100 * time.Millisecond) // Give server time to shut down
		_ = store.Close()
	})

	return "http://" + addr
}

func devConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Server: config.ServerConfig{
			Host: "127.0.0.1",
			Port: 0,
		},
		Storage: config.StorageConfig{
			DataPath: t.TempDir(),
		},
		Security: config.SecurityConfig{
			SecurityMode: "development",
		},
	}
}

func TestServer_StartsOnRandomPort(t *testing.T) {
	baseURL := startTestServer(t, devConfig(t))

	assert.True(t, strings.HasPrefix(baseURL, "http://"), "baseURL should have http:// prefix")

	parts := strings.Split(baseURL, "://")
	require.Len(t, parts, 2)

	host, port, err := net.SplitHostPort(parts[1])
	assert.NoError(t, err, "address should be valid host:port format")
	assert.NotEmpty(t, host)
	assert.NotEqual(t, "0", port, "port should not be 0 in actual address")
}

func TestServer_HealthEndpoint(t *testing.T) {
	baseURL := startTestServer(t, devConfig(t))

	resp, err := http.Get(baseURL + "/api/health")
	require.NoError(t, err, "failed to GET /api/health")
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var healthResp map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&healthResp))
	assert.Equal(t, "healthy", healthResp["status"])
}

func TestServer_SecurityHeaders(t *testing.T) {
	baseURL := startTestServer(t, devConfig(t))

	resp, err := http.Get(baseURL + "/api/health")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	expectedHeaders := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"X-XSS-Protection":       "1; mode=block",
		"Referrer-Policy":        "strict-origin-when-cross-origin",
	}

	for headerName, expectedValue := range expectedHeaders {
		assert.Equal(t, expectedValue, resp.Header.Get(headerName), "header %q", headerName)
	}
}

func TestServer_RouteRegistration(t *testing.T) {
	baseURL := startTestServer(t, devConfig(t))

	apiPaths := []string{
		"/api/health",
		"/api/questions",
		"/api/contexts",
		"/api/review/due",
		"/api/stats",
		"/api/config",
	}

	for _, path := range apiPaths {
		t.Run(path, func(t *testing.T) {
			resp, err := http.Get(baseURL + path)
			require.NoError(t, err, "failed to GET %s", path)
			defer func() { _ = resp.Body.Close() }()

			assert.NotEqual(t, http.StatusNotFound, resp.StatusCode,
				"route %s should be registered (got 404)", path)
			assert.True(t, resp.StatusCode < 500,
				"route %s should not return 5xx (got %d)", path, resp.StatusCode)
		})
	}
}

func TestServer_GracefulShutdown(t *testing.T) {
	cfg := devConfig(t)

	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	sched, err := scheduler.New(scheduler.Config{DisableFuzzing: true})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addrChan := make(chan string, 1)
	go func() {
		addr, _ := server.Start(ctx, cfg, store, server.Dependencies{Scheduler: sched})
		addrChan <- addr
	}()

	var addr string
	select {
	case addr = <-addrChan:
	case <-time.After(5 * time.Second):
		t.Fatal("server did not start")
	}

	time.Sleep(100 * time.Millisecond)
	baseURL := "http://" + addr

	resp, err := http.Get(baseURL + "/api/health")
	require.NoError(t, err, "server should be responding before shutdown")
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	time.Sleep(200 * time.Millisecond)

	shutdownCheckCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer shutdownCancel()

	req, _ := http.NewRequestWithContext(shutdownCheckCtx, "GET", baseURL+"/api/health", nil)
	_, err = http.DefaultClient.Do(req)
	assert.Error(t, err, "server should stop responding after shutdown")
}

func TestServer_DevelopmentMode_NoAuth(t *testing.T) {
	baseURL := startTestServer(t, devConfig(t))

	resp, err := http.Get(baseURL + "/api/questions")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode,
		"in development mode, /api/questions should be accessible without auth")
}

func TestServer_ProductionMode_RequiresAuth(t *testing.T) {
	testToken := "test-secret-token-xyz123"
	cfg := devConfig(t)
	cfg.Security = config.SecurityConfig{
		SecurityMode: "production",
		APIToken:     testToken,
	}

	baseURL := startTestServer(t, cfg)

	t.Run("without_auth_header", func(t *testing.T) {
		resp, err := http.Get(baseURL + "/api/questions")
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("with_valid_auth_header", func(t *testing.T) {
		req, err := http.NewRequest("GET", baseURL+"/api/questions", nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+testToken)

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("with_invalid_auth_header", func(t *testing.T) {
		req, err := http.NewRequest("GET", baseURL+"/api/questions", nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer wrong-token")

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("health_is_open", func(t *testing.T) {
		resp, err := http.Get(baseURL + "/api/health")
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		assert.Equal(t, http.StatusOK, resp.StatusCode,
			"/api/health should be accessible without auth even in production mode")
	})
}

func TestServer_HTTPMethods(t *testing.T) {
	baseURL := startTestServer(t, devConfig(t))

	tests := []struct {
		method   string
		path     string
		body     string
		expectOK bool
	}{
		{"POST", "/api/health", "", false},
		{"DELETE", "/api/health", "", false},
		{"GET", "/api/questions", "", true},
		{"POST", "/api/questions", `{"prompt":"q","answer":"a"}`, true},
		{"DELETE", "/api/review/due", "", false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s_%s", tt.method, tt.path), func(t *testing.T) {
			req, err := http.NewRequest(tt.method, baseURL+tt.path, strings.NewReader(tt.body))
			require.NoError(t, err)
			if tt.body != "" {
				req.Header.Set("Content-Type", "application/json")
			}

			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			if tt.expectOK {
				assert.NotEqual(t, http.StatusMethodNotAllowed, resp.StatusCode,
					"%s %s should be allowed", tt.method, tt.path)
			} else {
				assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode,
					"%s %s should not be allowed", tt.method, tt.path)
			}
		})
	}
}
