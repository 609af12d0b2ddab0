package credstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCredentialsMerge(t *testing.T) {
	persistedExpiry := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	persisted := Credentials{
		AccessToken:  "persisted-access",
		RefreshToken: "persisted-refresh",
		ClientID:     "persisted-id",
		ClientSecret: "persisted-secret",
		ExpiresAt:    &persistedExpiry,
	}

	tests := []struct {
		name string
		seed Credentials
		want Credentials
	}{
		{
			name: "empty seed keeps persisted values",
			seed: Credentials{},
			want: persisted,
		},
		{
			name: "seed access token replaces token and expiry",
			seed: Credentials{AccessToken: "seed-access"},
			want: Credentials{
				AccessToken:  "seed-access",
				RefreshToken: "persisted-refresh",
				ClientID:     "persisted-id",
				ClientSecret: "persisted-secret",
				ExpiresAt:    nil,
			},
		},
		{
			name: "seed overrides field by field",
			seed: Credentials{RefreshToken: "seed-refresh", ClientSecret: "seed-secret"},
			want: Credentials{
				AccessToken:  "persisted-access",
				RefreshToken: "seed-refresh",
				ClientID:     "persisted-id",
				ClientSecret: "seed-secret",
				ExpiresAt:    &persistedExpiry,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, persisted.Merge(tt.seed))
		})
	}
}

func TestCredentialsExpiredAt(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	margin := time.Minute

	at := func(d time.Duration) *time.Time {
		ts := now.Add(d)
		return &ts
	}

	tests := []struct {
		name      string
		expiresAt *time.Time
		want      bool
	}{
		{name: "nil expiry never expires", expiresAt: nil, want: false},
		{name: "well before expiry", expiresAt: at(time.Hour), want: false},
		{name: "inside safety margin", expiresAt: at(30 * time.Second), want: true},
		{name: "exactly at margin boundary", expiresAt: at(margin), want: true},
		{name: "already past", expiresAt: at(-time.Second), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Credentials{AccessToken: "a", ExpiresAt: tt.expiresAt}
			assert.Equal(t, tt.want, c.ExpiredAt(now, margin))
		})
	}
}

func TestCredentialsCanRefresh(t *testing.T) {
	assert.True(t, Credentials{RefreshToken: "r", ClientID: "i", ClientSecret: "s"}.CanRefresh())
	assert.False(t, Credentials{RefreshToken: "r", ClientID: "i"}.CanRefresh())
	assert.False(t, Credentials{RefreshToken: "r"}.CanRefresh())
	assert.False(t, Credentials{}.CanRefresh())
}
