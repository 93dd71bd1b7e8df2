package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/csrf"
)

// CSRFTokenHeader is the request header the SPA echoes the token in.
const CSRFTokenHeader = "X-CSRF-Token"

// CSRFCookieName is the cookie gorilla/csrf keeps its masked secret in.
const CSRFCookieName = "_csrf"

// CSRFConfig configures CSRFMiddleware.
type CSRFConfig struct {
	Secret []byte
	// Secure must match the session cookie. When false the request is
	// treated as plaintext HTTP and Referer checks are relaxed.
	Secure   bool
	SameSite http.SameSite
	Domain   string
	// TrustedOrigins lists hosts (host[:port]) allowed to send cross-origin
	// unsafe requests, normally the client origin.
	TrustedOrigins []string
}

// CSRFMiddleware creates a Gin middleware for double-submit CSRF protection.
// Safe methods pass through and receive a token; unsafe methods must carry
// it in the X-CSRF-Token header.
func CSRFMiddleware(cfg CSRFConfig) gin.HandlerFunc {
	csrfProtect := csrf.Protect(
		cfg.Secret,
		csrf.Secure(cfg.Secure),
		csrf.HttpOnly(true),
		csrf.SameSite(csrfSameSite(cfg.SameSite)),
		csrf.Path("/"),
		csrf.Domain(cfg.Domain),
		csrf.CookieName(CSRFCookieName),
		csrf.RequestHeader(CSRFTokenHeader),
		csrf.TrustedOrigins(cfg.TrustedOrigins),
		csrf.ErrorHandler(http.HandlerFunc(csrfErrorHandler)),
	)

	return func(c *gin.Context) {
		r := c.Request
		if !cfg.Secure {
			r = csrf.PlaintextHTTPRequest(r)
		}

		passed := false
		handler := csrfProtect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			passed = true
			c.Request = r
			c.Next()
		}))

		handler.ServeHTTP(c.Writer, r)
		if !passed {
			c.Abort()
		}
	}
}

// CSRFToken handles GET /auth/csrf and returns a token for the next
// unsafe request.
func CSRFToken(c *gin.Context) {
	token := csrf.Token(c.Request)
	c.Header(CSRFTokenHeader, token)
	c.JSON(http.StatusOK, gin.H{"csrf_token": token})
}

func csrfErrorHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusForbidden)
	_, _ = w.Write([]byte(`{"message":"CSRF token invalid or missing"}`))
}

func csrfSameSite(mode http.SameSite) csrf.SameSiteMode {
	switch mode {
	case http.SameSiteNoneMode:
		return csrf.SameSiteNoneMode
	case http.SameSiteStrictMode:
		return csrf.SameSiteStrictMode
	default:
		return csrf.SameSiteLaxMode
	}
}
