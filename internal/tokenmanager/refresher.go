package tokenmanager

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"threejsmcp/internal/credstore"
)

// RefresherOption configures an OAuthRefresher.
type RefresherOption func(*OAuthRefresher)

// WithHTTPClient sets a custom HTTP client for token refresh requests
// (e.g., for proxies or custom timeouts).
func WithHTTPClient(client *http.Client) RefresherOption {
	return func(r *OAuthRefresher) {
		r.httpClient = client
	}
}

// OAuthRefresher performs token refreshes against Sketchfab's OAuth2 token
// endpoint. Sketchfab follows standard form-encoded refresh_token grants with
// client_id and client_secret sent as body parameters.
type OAuthRefresher struct {
	tokenURL   string
	httpClient *http.Client
}

// Compile-time check that OAuthRefresher implements Refresher.
var _ Refresher = (*OAuthRefresher)(nil)

// NewOAuthRefresher creates a refresher for the given token endpoint URL.
func NewOAuthRefresher(tokenURL string, opts ...RefresherOption) (*OAuthRefresher, error) {
	if tokenURL == "" {
		return nil, fmt.Errorf("token URL cannot be empty")
	}

	r := &OAuthRefresher{
		tokenURL: tokenURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second, // Bounds the refresh call even without caller deadlines
		},
	}
	for _, opt := range opts {
		opt(r)
	}

	return r, nil
}

// Refresh exchanges the refresh token for a new access token. Credential
// rejections (4xx from the token endpoint) are returned as *RejectedError;
// transport failures and 5xx responses as plain errors.
func (r *OAuthRefresher) Refresh(ctx context.Context, creds credstore.Credentials) (*RefreshResult, error) {
	cfg := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  r.tokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	// oauth2 injects custom HTTP clients via context (oauth2.HTTPClient key).
	ctx = context.WithValue(ctx, oauth2.HTTPClient, r.httpClient)

	// A token with no access token is immediately stale, so Token() performs
	// the refresh grant right away.
	stale := &oauth2.Token{RefreshToken: creds.RefreshToken}
	token, err := cfg.TokenSource(ctx, stale).Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil &&
			retrieveErr.Response.StatusCode >= 400 && retrieveErr.Response.StatusCode < 500 {
			return nil, &RejectedError{
				StatusCode: retrieveErr.Response.StatusCode,
				Body:       string(retrieveErr.Body),
			}
		}
		return nil, fmt.Errorf("requesting token refresh: %w", err)
	}

	result := &RefreshResult{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
	}
	if !token.Expiry.IsZero() {
		expiry := token.Expiry
		result.ExpiresAt = &expiry
	}

	return result, nil
}
