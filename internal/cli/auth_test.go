package cli

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newAuthServer answers the wallet status probe used for key validation.
func newAuthServer(t *testing.T, validKey string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/wallet/status" {
			if r.Header.Get("X-API-Key") == validKey {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte(`{"walletConnected":false,"state":"idle"}`))
			} else {
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":{"code":"UNAUTHORIZED"}}`))
			}
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
}

func TestAuthLoginWithFlags(t *testing.T) {
	server := newAuthServer(t, "valid-key")
	defer server.Close()

	tmpDir := t.TempDir()
	origHome := os.Getenv("HOME")
	defer os.Setenv("HOME", origHome)
	os.Setenv("HOME", tmpDir)

	t.Run("successful login with valid key", func(t *testing.T) {
		err := runAuthLogin(server.URL, "valid-key")
		require.NoError(t, err)

		// Verify credential was saved
		key := getCredential(server.URL)
		assert.Equal(t, "valid-key", key)
	})

	t.Run("failed login with invalid key", func(t *testing.T) {
		err := runAuthLogin(server.URL, "invalid-key")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid API key")
	})

	t.Run("empty API key rejected", func(t *testing.T) {
		origStdin := os.Stdin
		defer func() { os.Stdin = origStdin }()

		// Empty piped stdin simulates an empty interactive answer
		r, w, _ := os.Pipe()
		w.Close()
		os.Stdin = r

		err := runAuthLogin(server.URL, "")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "API key cannot be empty")
	})
}

func TestAuthLoginFromStdin(t *testing.T) {
	server := newAuthServer(t, "piped-key")
	defer server.Close()

	tmpDir := t.TempDir()
	origHome := os.Getenv("HOME")
	defer os.Setenv("HOME", origHome)
	os.Setenv("HOME", tmpDir)

	t.Run("read key from piped stdin", func(t *testing.T) {
		origStdin := os.Stdin
		defer func() { os.Stdin = origStdin }()

		r, w, err := os.Pipe()
		require.NoError(t, err)

		go func() {
			defer w.Close()
			io.WriteString(w, "piped-key\n")
		}()

		os.Stdin = r

		err = runAuthLogin(server.URL, "")
		require.NoError(t, err)

		key := getCredential(server.URL)
		assert.Equal(t, "piped-key", key)
	})

	t.Run("read key with trailing whitespace", func(t *testing.T) {
		origStdin := os.Stdin
		defer func() { os.Stdin = origStdin }()

		r, w, err := os.Pipe()
		require.NoError(t, err)

		go func() {
			defer w.Close()
			io.WriteString(w, "  piped-key  \n")
		}()

		os.Stdin = r

		err = runAuthLogin(server.URL, "")
		require.NoError(t, err)

		key := getCredential(server.URL)
		assert.Equal(t, "piped-key", key)
	})
}

func TestAuthLogout(t *testing.T) {
	tmpDir := t.TempDir()
	origHome := os.Getenv("HOME")
	defer os.Setenv("HOME", origHome)
	os.Setenv("HOME", tmpDir)

	t.Run("logout removes credential", func(t *testing.T) {
		require.NoError(t, saveCredential("http://one:8080", "key-one"))
		require.NoError(t, saveCredential("http://two:8080", "key-two"))

		require.NoError(t, runAuthLogout("http://one:8080", false))

		assert.Equal(t, "", getCredential("http://one:8080"))
		assert.Equal(t, "key-two", getCredential("http://two:8080"))
	})

	t.Run("logout unknown server is not an error", func(t *testing.T) {
		assert.NoError(t, runAuthLogout("http://unknown:8080", false))
	})

	t.Run("logout all removes the file", func(t *testing.T) {
		require.NoError(t, saveCredential("http://three:8080", "key-three"))

		require.NoError(t, runAuthLogout("", true))

		_, err := os.Stat(credentialsFilePath())
		assert.True(t, os.IsNotExist(err))
	})
}

func TestAuthStatus(t *testing.T) {
	tmpDir := t.TempDir()
	origHome := os.Getenv("HOME")
	defer os.Setenv("HOME", origHome)
	os.Setenv("HOME", tmpDir)

	t.Run("no credentials file", func(t *testing.T) {
		assert.NoError(t, runAuthStatus())
	})

	t.Run("with stored credentials", func(t *testing.T) {
		require.NoError(t, saveCredential("http://test:8080", "cfd_key_1234567890abcdef"))
		assert.NoError(t, runAuthStatus())
	})
}

func TestValidateAPIKey(t *testing.T) {
	server := newAuthServer(t, "valid-key")
	defer server.Close()

	t.Run("valid key", func(t *testing.T) {
		valid, err := validateAPIKey(server.URL, "valid-key")
		require.NoError(t, err)
		assert.True(t, valid)
	})

	t.Run("invalid key", func(t *testing.T) {
		valid, err := validateAPIKey(server.URL, "bad-key")
		require.NoError(t, err)
		assert.False(t, valid)
	})

	t.Run("unreachable server", func(t *testing.T) {
		_, err := validateAPIKey("http://127.0.0.1:1", "any-key")
		assert.Error(t, err)
	})
}

func TestCredentialFilePermissions(t *testing.T) {
	tmpDir := t.TempDir()
	origHome := os.Getenv("HOME")
	defer os.Setenv("HOME", origHome)
	os.Setenv("HOME", tmpDir)

	require.NoError(t, saveCredential("http://test:8080", "secret-key"))

	info, err := os.Stat(credentialsFilePath())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	dirInfo, err := os.Stat(credentialsDir())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0700), dirInfo.Mode().Perm())
}

func TestAuthCommandStructure(t *testing.T) {
	cmd := createAuthCmd()
	assert.Equal(t, "auth", cmd.Use)

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.Contains(t, names, "login")
	assert.Contains(t, names, "logout")
	assert.Contains(t, names, "status")
}
