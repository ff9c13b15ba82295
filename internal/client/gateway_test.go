package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *CredentialStore) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	creds := NewCredentialStore(filepath.Join(t.TempDir(), "credentials.json"))
	return New(server.URL, creds), creds
}

func TestGatewayNormalizesHTMLErrorPage(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("<html><body><h1>502 Bad Gateway</h1></body></html>"))
	}))

	_, err := c.Me(context.Background())
	require.Error(t, err)
	apiErr, ok := err.(*APIError)
	require.True(t, ok, "expected *APIError, got %T", err)
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.Contains(t, apiErr.Message, "HTML")
}

func TestGatewaySniffsHTMLWithoutContentType(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<!DOCTYPE html><html></html>"))
	}))

	_, err := c.Me(context.Background())
	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Contains(t, apiErr.Message, "HTML")
}

func TestGatewayPreservesServerMessage(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"message":"cannot cancel a completed reservation"}`))
	}))

	_, err := c.CancelReservation(context.Background(), "res_1")
	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "cannot cancel a completed reservation", apiErr.Message)
}

func TestGatewayMalformedJSONIsStatusZero(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"reservation":`))
	}))

	_, err := c.GetReservation(context.Background(), "res_1")
	require.Error(t, err)
	assert.True(t, IsNetworkError(err))
	assert.Contains(t, err.Error(), "malformed")
}

func TestGatewayNetworkErrorIsStatusZero(t *testing.T) {
	creds := NewCredentialStore(filepath.Join(t.TempDir(), "credentials.json"))
	c := New("http://127.0.0.1:1", creds) // nothing listens here

	_, err := c.Locations(context.Background())
	require.Error(t, err)
	assert.True(t, IsNetworkError(err))
}

func TestGatewayUnauthorizedClearsCredentials(t *testing.T) {
	c, creds := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer stale-token", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"invalid or expired token"}`))
	}))
	require.NoError(t, creds.Save("stale-token", nil))

	_, err := c.MyReservations(context.Background())
	require.Error(t, err)
	assert.True(t, IsAuthError(err))

	token, err := creds.Token()
	require.NoError(t, err)
	assert.Empty(t, token, "401 must clear stored credentials")
}

func TestGatewayOmitsAuthorizationWhenSignedOut(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		w.Write([]byte(`{"locations":[]}`))
	}))

	_, err := c.Locations(context.Background())
	assert.NoError(t, err)
}

func TestCredentialStoreRoundTrip(t *testing.T) {
	creds := NewCredentialStore(filepath.Join(t.TempDir(), "nested", "credentials.json"))

	token, err := creds.Token()
	require.NoError(t, err)
	assert.Empty(t, token)

	require.NoError(t, creds.Save("tok-1", nil))
	token, err = creds.Token()
	require.NoError(t, err)
	assert.Equal(t, "tok-1", token)

	require.NoError(t, creds.Clear())
	require.NoError(t, creds.Clear(), "clearing twice is not an error")
	token, err = creds.Token()
	require.NoError(t, err)
	assert.Empty(t, token)
}
