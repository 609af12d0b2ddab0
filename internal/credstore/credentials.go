package credstore

import (
	"time"
)

// Credentials is the complete OAuth2 credential set for the Sketchfab API.
// ExpiresAt is nil when the upstream never reported a token lifetime.
type Credentials struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
	ClientID     string     `json:"client_id"`
	ClientSecret string     `json:"client_secret"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

// Merge returns a copy of c with non-empty fields from seed taking precedence.
// Seed values are explicit caller-supplied configuration and win over
// persisted state field by field.
func (c Credentials) Merge(seed Credentials) Credentials {
	if seed.AccessToken != "" {
		c.AccessToken = seed.AccessToken
		// A caller-supplied token replaces the persisted one wholesale, so a
		// stale persisted expiry must not condemn it.
		c.ExpiresAt = seed.ExpiresAt
	}
	if seed.RefreshToken != "" {
		c.RefreshToken = seed.RefreshToken
	}
	if seed.ClientID != "" {
		c.ClientID = seed.ClientID
	}
	if seed.ClientSecret != "" {
		c.ClientSecret = seed.ClientSecret
	}
	return c
}

// CanRefresh reports whether the set carries everything a token refresh
// request needs: refresh token, client id and client secret.
func (c Credentials) CanRefresh() bool {
	return c.RefreshToken != "" && c.ClientID != "" && c.ClientSecret != ""
}

// Empty reports whether the set holds no token material at all.
func (c Credentials) Empty() bool {
	return c.AccessToken == "" && c.RefreshToken == ""
}

// ExpiredAt reports whether the access token must be treated as expired at
// the given instant. The margin preempts tokens that would expire mid-flight.
// A nil ExpiresAt means the lifetime is unknown and the token is trusted.
func (c Credentials) ExpiredAt(now time.Time, margin time.Duration) bool {
	if c.ExpiresAt == nil {
		return false
	}
	return !now.Add(margin).Before(*c.ExpiresAt)
}
