package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validSecret = "0123456789abcdef0123456789abcdef"

func TestNewConfig_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", validSecret)

	cfg := NewConfig()

	assert.Equal(t, int32(5000), cfg.HTTP.Port)
	assert.Equal(t, "0.0.0.0", cfg.HTTP.Host)
	assert.Equal(t, "/api", cfg.HTTP.APIPrefix)
	assert.Equal(t, 168*time.Hour, cfg.JWT.ExpiresIn)
	assert.Equal(t, "access_token", cfg.Cookie.Name)
	assert.True(t, cfg.Cookie.Secure)
	assert.Equal(t, "none", cfg.Cookie.SameSite)
	assert.Equal(t, 168*time.Hour, cfg.Cookie.MaxAge)
	assert.Equal(t, "http://localhost:3000", cfg.CORS.ClientOrigin)
	assert.Equal(t, 0, cfg.Auth.MinPasswordLength)
	assert.Empty(t, cfg.HTTP.TrustedProxies)
	assert.Equal(t, 5, cfg.Auth.MaxLoginAttempts)
	assert.Equal(t, 15*time.Minute, cfg.Auth.RateLimitWindow)
	assert.Equal(t, 30*time.Minute, cfg.Auth.LockoutDuration)
	assert.False(t, cfg.Auth.RevokeOnLogout)
	assert.Equal(t, "public", cfg.Auth.ListUsers)
	assert.False(t, cfg.CSRF.Enabled)
	assert.Equal(t, "memory", cfg.Store.Kind)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "@every 5m", cfg.Maintenance.Schedule)

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "0.0.0.0:5000", cfg.Addr())
	assert.Equal(t, "localhost:3000", cfg.ClientOriginHost())
}

func TestNewConfig_FromEnvironment(t *testing.T) {
	t.Setenv("JWT_SECRET", validSecret)
	t.Setenv("PORT", "8080")
	t.Setenv("API_PREFIX", "v1/")
	t.Setenv("COOKIE_SAMESITE", "Lax")
	t.Setenv("COOKIE_SECURE", "false")
	t.Setenv("CLIENT_ORIGIN", "https://app.example.com/")
	t.Setenv("JWT_EXPIRES_IN", "30m")

	cfg := NewConfig()

	assert.Equal(t, int32(8080), cfg.HTTP.Port)
	assert.Equal(t, "/v1", cfg.HTTP.APIPrefix)
	assert.Equal(t, "lax", cfg.Cookie.SameSite)
	assert.False(t, cfg.Cookie.Secure)
	assert.Equal(t, "https://app.example.com", cfg.CORS.ClientOrigin)
	assert.Equal(t, 30*time.Minute, cfg.JWT.ExpiresIn)
	assert.NoError(t, cfg.Validate())
}

func TestNewConfig_TrustedProxies(t *testing.T) {
	t.Setenv("JWT_SECRET", validSecret)
	t.Setenv("TRUSTED_PROXIES", " 10.0.0.1, 172.16.0.0/12 ,")

	cfg := NewConfig()

	assert.Equal(t, []string{"10.0.0.1", "172.16.0.0/12"}, cfg.HTTP.TrustedProxies)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"missing secret", map[string]string{}, "JWT_SECRET is required"},
		{"short secret", map[string]string{"JWT_SECRET": "short"}, "at least 32 bytes"},
		{"none without secure", map[string]string{"JWT_SECRET": validSecret, "COOKIE_SECURE": "false"}, "requires COOKIE_SECURE"},
		{"unknown samesite", map[string]string{"JWT_SECRET": validSecret, "COOKIE_SAMESITE": "sometimes"}, "COOKIE_SAMESITE"},
		{"wildcard origin", map[string]string{"JWT_SECRET": validSecret, "CLIENT_ORIGIN": "*"}, "exactly one origin"},
		{"origin with path", map[string]string{"JWT_SECRET": validSecret, "CLIENT_ORIGIN": "https://app.example.com/login"}, "must not carry a path"},
		{"bad list policy", map[string]string{"JWT_SECRET": validSecret, "AUTH_LIST_USERS": "everyone"}, "AUTH_LIST_USERS"},
		{"csrf without secret", map[string]string{"JWT_SECRET": validSecret, "AUTH_CSRF_ENABLED": "true"}, "AUTH_CSRF_SECRET"},
		{"unknown store", map[string]string{"JWT_SECRET": validSecret, "USER_STORE": "redis"}, "USER_STORE"},
		{"bad trusted proxy", map[string]string{"JWT_SECRET": validSecret, "TRUSTED_PROXIES": "10.0.0.1, proxy.local"}, "TRUSTED_PROXIES"},
		{"zero lifetime", map[string]string{"JWT_SECRET": validSecret, "JWT_EXPIRES_IN": "0s"}, "JWT_EXPIRES_IN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			err := NewConfig().Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("USER_STORE", "redis")

	err := NewConfig().Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingSecret)
	assert.True(t, strings.Contains(err.Error(), "USER_STORE"))
}
