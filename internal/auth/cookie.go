package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// DefaultCookieName is the session cookie name used when none is configured.
const DefaultCookieName = "access_token"

var errSameSiteNoneInsecure = errors.New("SameSite=None requires Secure cookies")

// CookieOptions describes the session cookie. The same options must be used
// to set and to clear it, or browsers will ignore the clear.
type CookieOptions struct {
	Name     string
	Path     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
	MaxAge   time.Duration
}

// Validate rejects attribute combinations browsers refuse.
func (o CookieOptions) Validate() error {
	if o.SameSite == http.SameSiteNoneMode && !o.Secure {
		return errSameSiteNoneInsecure
	}
	if o.MaxAge <= 0 {
		return errors.New("cookie max age must be positive")
	}
	return nil
}

func (o CookieOptions) normalize() CookieOptions {
	if o.Name == "" {
		o.Name = DefaultCookieName
	}
	if o.Path == "" {
		o.Path = "/"
	}
	if o.SameSite == 0 {
		o.SameSite = http.SameSiteLaxMode
	}
	return o
}

// SetSessionCookie issues the session cookie carrying token.
func SetSessionCookie(w http.ResponseWriter, token string, opts CookieOptions) {
	opts = opts.normalize()

	http.SetCookie(w, &http.Cookie{
		Name:     opts.Name,
		Value:    token,
		Path:     opts.Path,
		Domain:   opts.Domain,
		MaxAge:   int(opts.MaxAge / time.Second),
		Expires:  time.Now().Add(opts.MaxAge),
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: opts.SameSite,
	})
}

// ClearSessionCookie expires the session cookie using the attributes it was
// set with.
func ClearSessionCookie(w http.ResponseWriter, opts CookieOptions) {
	opts = opts.normalize()

	http.SetCookie(w, &http.Cookie{
		Name:     opts.Name,
		Value:    "",
		Path:     opts.Path,
		Domain:   opts.Domain,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: opts.SameSite,
	})
}

// ParseSameSite maps "lax", "strict" and "none" to http.SameSite.
func ParseSameSite(value string) (http.SameSite, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "lax":
		return http.SameSiteLaxMode, nil
	case "strict":
		return http.SameSiteStrictMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	default:
		return 0, fmt.Errorf("invalid SameSite value %q", value)
	}
}
