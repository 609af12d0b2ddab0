package tokenmanager

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"threejsmcp/internal/credstore"
)

func testCreds() credstore.Credentials {
	return credstore.Credentials{
		RefreshToken: "refresh-123",
		ClientID:     "client-abc",
		ClientSecret: "secret-xyz",
	}
}

func TestOAuthRefresherSuccess(t *testing.T) {
	var gotForm map[string]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotForm = map[string]string{
			"grant_type":    r.PostForm.Get("grant_type"),
			"refresh_token": r.PostForm.Get("refresh_token"),
			"client_id":     r.PostForm.Get("client_id"),
			"client_secret": r.PostForm.Get("client_secret"),
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"access_token": "new-access",
			"token_type": "Bearer",
			"refresh_token": "new-refresh",
			"expires_in": 3600
		}`))
	}))
	defer server.Close()

	refresher, err := NewOAuthRefresher(server.URL)
	require.NoError(t, err)

	result, err := refresher.Refresh(context.Background(), testCreds())
	require.NoError(t, err)

	assert.Equal(t, "new-access", result.AccessToken)
	assert.Equal(t, "new-refresh", result.RefreshToken)
	require.NotNil(t, result.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(time.Hour), *result.ExpiresAt, time.Minute)

	assert.Equal(t, "refresh_token", gotForm["grant_type"])
	assert.Equal(t, "refresh-123", gotForm["refresh_token"])
	assert.Equal(t, "client-abc", gotForm["client_id"])
	assert.Equal(t, "secret-xyz", gotForm["client_secret"])
}

func TestOAuthRefresherNoExpiry(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token": "new-access", "token_type": "Bearer"}`))
	}))
	defer server.Close()

	refresher, err := NewOAuthRefresher(server.URL)
	require.NoError(t, err)

	result, err := refresher.Refresh(context.Background(), testCreds())
	require.NoError(t, err)
	assert.Equal(t, "new-access", result.AccessToken)
	assert.Nil(t, result.ExpiresAt)
}

func TestOAuthRefresherRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": "invalid_grant"}`))
	}))
	defer server.Close()

	refresher, err := NewOAuthRefresher(server.URL)
	require.NoError(t, err)

	_, err = refresher.Refresh(context.Background(), testCreds())
	var rejected *RejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, http.StatusUnauthorized, rejected.StatusCode)
	assert.Contains(t, rejected.Body, "invalid_grant")
}

func TestOAuthRefresherServerErrorIsNotRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	refresher, err := NewOAuthRefresher(server.URL)
	require.NoError(t, err)

	_, err = refresher.Refresh(context.Background(), testCreds())
	require.Error(t, err)
	var rejected *RejectedError
	assert.False(t, errors.As(err, &rejected), "5xx must stay retryable")
}

func TestNewOAuthRefresherValidation(t *testing.T) {
	_, err := NewOAuthRefresher("")
	require.Error(t, err)
}
