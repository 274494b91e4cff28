package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/etherian3/crowd-fundapp/internal/storage"
)

type mockAPIKeyStore struct {
	keys map[string]*storage.APIKey
}

func (m *mockAPIKeyStore) CreateAPIKey(ctx context.Context, name string) (string, error) {
	return "", nil
}

func (m *mockAPIKeyStore) ValidateAPIKey(ctx context.Context, key string) (*storage.APIKey, error) {
	if apiKey, ok := m.keys[key]; ok {
		return apiKey, nil
	}
	return nil, storage.ErrNotFound
}

func (m *mockAPIKeyStore) ListAPIKeys(ctx context.Context) ([]storage.APIKey, error) {
	return nil, nil
}

func (m *mockAPIKeyStore) RevokeAPIKey(ctx context.Context, id string) error {
	return nil
}

func writeStatus(w http.ResponseWriter, status int, code, message string) {
	w.WriteHeader(status)
}

func TestMiddleware_ValidKey(t *testing.T) {
	store := &mockAPIKeyStore{
		keys: map[string]*storage.APIKey{
			"cfd_key_valid": {ID: "key-123", Name: "test"},
		},
	}

	var capturedCtx context.Context
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedCtx = r.Context()
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest("POST", "/", nil)
	req.Header.Set("X-API-Key", "cfd_key_valid")
	rec := httptest.NewRecorder()

	Middleware(store, writeStatus)(handler).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	key := GetAPIKeyFromContext(capturedCtx)
	require.NotNil(t, key)
	assert.Equal(t, "key-123", key.ID)
}

func TestMiddleware_BearerToken(t *testing.T) {
	store := &mockAPIKeyStore{
		keys: map[string]*storage.APIKey{
			"cfd_key_valid": {ID: "key-123", Name: "test"},
		},
	}

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest("POST", "/", nil)
	req.Header.Set("Authorization", "Bearer cfd_key_valid")
	rec := httptest.NewRecorder()

	Middleware(store, writeStatus)(handler).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMiddleware_MissingKey(t *testing.T) {
	store := &mockAPIKeyStore{}

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called")
	})

	req := httptest.NewRequest("POST", "/", nil)
	rec := httptest.NewRecorder()

	Middleware(store, writeStatus)(handler).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddleware_InvalidKey(t *testing.T) {
	store := &mockAPIKeyStore{keys: map[string]*storage.APIKey{}}

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called")
	})

	req := httptest.NewRequest("POST", "/", nil)
	req.Header.Set("X-API-Key", "cfd_key_wrong")
	rec := httptest.NewRecorder()

	Middleware(store, writeStatus)(handler).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetAPIKeyFromContext_Empty(t *testing.T) {
	assert.Nil(t, GetAPIKeyFromContext(context.Background()))
}
