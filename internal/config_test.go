package internal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	require.NoError(t, cfg.Validate(), "disabled mode should pass")
	assert.False(t, cfg.AuthEnabled(), "disabled mode should not be enabled")
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	require.NoError(t, cfg.Validate(), "empty mode should default to disabled")
	assert.Equal(t, AuthModeDisabled, cfg.Mode)
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	require.NoError(t, cfg.Validate(), "token mode with token should pass")
	assert.True(t, cfg.AuthEnabled(), "token mode should be enabled")
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	require.Error(t, err, "token mode with empty token should fail")
	assert.Contains(t, err.Error(), "token is empty")
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	assert.Error(t, cfg.Validate(), "invalid mode should fail validation")
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	assert.Error(t, cfg.Validate(), "full config validate should catch auth error")
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := NewDefaultConfig()
	require.NoError(t, cfg.Validate(), "default config should be valid")
	assert.Equal(t, "./documents", cfg.Store.Path)
	assert.Equal(t, 2*time.Second, cfg.Events.CatalogThrottle)
}

func TestFullConfig_SectionValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty store path", func(c *Config) { c.Store.Path = "" }},
		{"empty sqlite path", func(c *Config) { c.SQLite.Path = "" }},
		{"port out of range", func(c *Config) { c.App.HTTP.Port = 70000 }},
		{"negative throttle", func(c *Config) { c.Events.CatalogThrottle = -time.Second }},
		{"export depth too large", func(c *Config) { c.Export.MaxDepth = 1000 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
