package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCookieOptions_Validate(t *testing.T) {
	tests := []struct {
		name    string
		opts    CookieOptions
		wantErr bool
	}{
		{"none with secure", CookieOptions{Secure: true, SameSite: http.SameSiteNoneMode, MaxAge: time.Hour}, false},
		{"none without secure", CookieOptions{Secure: false, SameSite: http.SameSiteNoneMode, MaxAge: time.Hour}, true},
		{"lax without secure", CookieOptions{SameSite: http.SameSiteLaxMode, MaxAge: time.Hour}, false},
		{"zero max age", CookieOptions{SameSite: http.SameSiteLaxMode}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSetSessionCookie(t *testing.T) {
	opts := CookieOptions{
		Name:     "sid",
		Domain:   "example.com",
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
		MaxAge:   7 * 24 * time.Hour,
	}

	rr := httptest.NewRecorder()
	SetSessionCookie(rr, "token-value", opts)

	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]

	assert.Equal(t, "sid", c.Name)
	assert.Equal(t, "token-value", c.Value)
	assert.Equal(t, "/", c.Path)
	assert.Equal(t, "example.com", c.Domain)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteNoneMode, c.SameSite)
	assert.Equal(t, 7*24*60*60, c.MaxAge)
}

func TestClearSessionCookie_MatchesSetAttributes(t *testing.T) {
	opts := CookieOptions{
		Domain:   "example.com",
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
		MaxAge:   time.Hour,
	}

	set := httptest.NewRecorder()
	SetSessionCookie(set, "token-value", opts)
	clear := httptest.NewRecorder()
	ClearSessionCookie(clear, opts)

	setCookie := set.Result().Cookies()[0]
	clearCookie := clear.Result().Cookies()[0]

	assert.Equal(t, setCookie.Name, clearCookie.Name)
	assert.Equal(t, setCookie.Path, clearCookie.Path)
	assert.Equal(t, setCookie.Domain, clearCookie.Domain)
	assert.Equal(t, setCookie.Secure, clearCookie.Secure)
	assert.Equal(t, setCookie.HttpOnly, clearCookie.HttpOnly)
	assert.Equal(t, setCookie.SameSite, clearCookie.SameSite)
	assert.Empty(t, clearCookie.Value)
	assert.Less(t, clearCookie.MaxAge, 0)
}

func TestParseSameSite(t *testing.T) {
	tests := []struct {
		in      string
		want    http.SameSite
		wantErr bool
	}{
		{"lax", http.SameSiteLaxMode, false},
		{"Strict", http.SameSiteStrictMode, false},
		{" none ", http.SameSiteNoneMode, false},
		{"sometimes", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSameSite(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
