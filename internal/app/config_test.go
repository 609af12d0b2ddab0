package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig(t *testing.T) *Config {
	t.Helper()
	cfg, err := Default()
	require.NoError(t, err)
	return cfg
}

func TestConfigDefaults(t *testing.T) {
	cfg := validConfig(t)

	assert.Equal(t, TransportStdio, cfg.Transport)
	assert.Equal(t, DefaultConfigUpstreamBaseURL, cfg.Upstream.BaseURL)
	assert.Equal(t, DefaultConfigUpstreamTokenURL, cfg.Upstream.TokenURL)
	assert.Equal(t, CredentialStorageTypeFile, cfg.Auth.Storage)
	assert.NotEmpty(t, cfg.Auth.File, "file storage must get a default path")
	assert.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "unknown transport",
			mutate:  func(c *Config) { c.Transport = "carrier-pigeon" },
			wantErr: "Transport",
		},
		{
			name:    "unknown log format",
			mutate:  func(c *Config) { c.LogFormat = "xml" },
			wantErr: "LogFormat",
		},
		{
			name:    "missing upstream base URL",
			mutate:  func(c *Config) { c.Upstream.BaseURL = "" },
			wantErr: "BaseURL",
		},
		{
			name:    "token URL must be a URL",
			mutate:  func(c *Config) { c.Upstream.TokenURL = "not a url" },
			wantErr: "TokenURL",
		},
		{
			name: "refresh token without client credentials",
			mutate: func(c *Config) {
				c.Auth.RefreshToken = "refresh"
				c.Auth.ClientID = ""
				c.Auth.ClientSecret = ""
			},
			wantErr: "client_id",
		},
		{
			name: "refresh token with client credentials",
			mutate: func(c *Config) {
				c.Auth.RefreshToken = "refresh"
				c.Auth.ClientID = "id"
				c.Auth.ClientSecret = "secret"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestAuthConfigSeed(t *testing.T) {
	auth := AuthConfig{
		AccessToken:  "a",
		RefreshToken: "r",
		ClientID:     "i",
		ClientSecret: "s",
	}
	seed := auth.Seed()
	assert.Equal(t, "a", seed.AccessToken)
	assert.Equal(t, "r", seed.RefreshToken)
	assert.Equal(t, "i", seed.ClientID)
	assert.Equal(t, "s", seed.ClientSecret)
	assert.Nil(t, seed.ExpiresAt)
}
