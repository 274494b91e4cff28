//go:build e2e

package e2e

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestHealth_Endpoints tests all health check endpoints
func TestHealth_Endpoints(t *testing.T) {
	for _, path := range []string{"/health", "/healthz", "/readyz"} {
		t.Run(path+" returns 200", func(t *testing.T) {
			req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, testCtx.TestServer.URL+path, nil)
			require.NoError(t, err)

			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
		})
	}
}

// TestCORS_Headers tests that CORS headers are set correctly
func TestCORS_Headers(t *testing.T) {
	t.Run("OPTIONS request returns CORS headers", func(t *testing.T) {
		req, err := http.NewRequestWithContext(context.Background(), http.MethodOptions, testCtx.TestServer.URL+"/api/v1/campaigns", nil)
		require.NoError(t, err)
		req.Header.Set("Origin", "https://example.com")

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
		assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), "GET")
		assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), "POST")
		assert.Contains(t, resp.Header.Get("Access-Control-Allow-Headers"), "X-API-Key")
	})

	t.Run("GET request has CORS headers", func(t *testing.T) {
		req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, testCtx.TestServer.URL+"/api/v1/campaigns", nil)
		require.NoError(t, err)

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	})
}

// TestNotFoundPaths tests that non-existent paths return 404
func TestNotFoundPaths(t *testing.T) {
	paths := []string{
		"/api/v1/nonexistent",
		"/api/v2/campaigns",
	}

	for _, path := range paths {
		t.Run("path "+path+" returns 404", func(t *testing.T) {
			req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, testCtx.TestServer.URL+path, nil)
			require.NoError(t, err)

			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		})
	}
}
