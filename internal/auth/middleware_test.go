package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifehub/authapi/internal/entities"
	"github.com/lifehub/authapi/internal/metrics"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// identityRouter echoes the resolved identity so tests can observe it.
func identityRouter(m *Middleware, guards ...gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(m.Handler())
	handlers := append(guards, func(c *gin.Context) {
		claims := CurrentUser(c)
		if claims == nil {
			c.JSON(http.StatusOK, gin.H{"authenticated": false})
			return
		}
		c.JSON(http.StatusOK, gin.H{"authenticated": IsAuthenticated(c), "id": claims.ID})
	})
	router.GET("/whoami", handlers...)
	return router
}

func scrapeMetrics(t *testing.T, m *metrics.Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	return rr.Body.String()
}

func requestWithCookie(name, value string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	if name != "" {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}
	return req
}

func TestMiddleware_FailOpen(t *testing.T) {
	tokens := newTestTokens(t)
	valid, _, err := tokens.Issue(3, "a@x.com", entities.RoleUser)
	require.NoError(t, err)

	tests := []struct {
		name       string
		req        *http.Request
		wantAuthed bool
	}{
		{"no cookie", requestWithCookie("", ""), false},
		{"empty cookie", requestWithCookie(DefaultCookieName, ""), false},
		{"garbage cookie", requestWithCookie(DefaultCookieName, "garbage"), false},
		{"other cookie name", requestWithCookie("session", valid), false},
		{"valid cookie", requestWithCookie(DefaultCookieName, valid), true},
	}

	router := identityRouter(NewMiddleware(tokens, ""))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, tt.req)

			assert.Equal(t, http.StatusOK, rr.Code)
			if tt.wantAuthed {
				assert.JSONEq(t, `{"authenticated":true,"id":3}`, rr.Body.String())
			} else {
				assert.JSONEq(t, `{"authenticated":false}`, rr.Body.String())
			}
		})
	}
}

func TestMiddleware_ExpiredTokenIsAnonymous(t *testing.T) {
	now := time.Now()
	tokens := newTestTokens(t, WithClock(func() time.Time { return now }))
	token, _, err := tokens.Issue(1, "a@x.com", entities.RoleUser)
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)

	rr := httptest.NewRecorder()
	identityRouter(NewMiddleware(tokens, "")).ServeHTTP(rr, requestWithCookie(DefaultCookieName, token))
	assert.JSONEq(t, `{"authenticated":false}`, rr.Body.String())
}

func TestMiddleware_RevokedTokenIsAnonymous(t *testing.T) {
	tokens := newTestTokens(t)
	token, claims, err := tokens.Issue(1, "a@x.com", entities.RoleUser)
	require.NoError(t, err)

	denylist := NewDenylist()
	m := metrics.New()
	router := identityRouter(NewMiddleware(tokens, "", WithDenylist(denylist), WithSessionMetrics(m)))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, requestWithCookie(DefaultCookieName, token))
	assert.JSONEq(t, `{"authenticated":true,"id":1}`, rr.Body.String())

	denylist.Revoke(claims.RegisteredClaims.ID, tokens.Remaining(claims))

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, requestWithCookie(DefaultCookieName, token))
	assert.JSONEq(t, `{"authenticated":false}`, rr.Body.String())

	exposition := scrapeMetrics(t, m)
	assert.Contains(t, exposition, `authapi_session_resolutions_total{result="valid"} 1`)
	assert.Contains(t, exposition, `authapi_session_resolutions_total{result="revoked"} 1`)
}

func TestRequireAuth(t *testing.T) {
	tokens := newTestTokens(t)
	valid, _, err := tokens.Issue(1, "a@x.com", entities.RoleUser)
	require.NoError(t, err)

	router := identityRouter(NewMiddleware(tokens, ""), RequireAuth())

	t.Run("anonymous", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, requestWithCookie("", ""))
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.JSONEq(t, `{"message":"Unauthorized"}`, rr.Body.String())
	})

	t.Run("invalid token", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, requestWithCookie(DefaultCookieName, valid+"x"))
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("authenticated", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, requestWithCookie(DefaultCookieName, valid))
		assert.Equal(t, http.StatusOK, rr.Code)
	})
}

func TestRequireRole(t *testing.T) {
	tokens := newTestTokens(t)
	user, _, err := tokens.Issue(1, "u@x.com", entities.RoleUser)
	require.NoError(t, err)
	admin, _, err := tokens.Issue(2, "a@x.com", entities.RoleAdmin)
	require.NoError(t, err)

	router := identityRouter(NewMiddleware(tokens, ""), RequireRole(entities.RoleAdmin))

	tests := []struct {
		name     string
		req      *http.Request
		wantCode int
	}{
		{"anonymous", requestWithCookie("", ""), http.StatusUnauthorized},
		{"user", requestWithCookie(DefaultCookieName, user), http.StatusForbidden},
		{"admin", requestWithCookie(DefaultCookieName, admin), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, tt.req)
			assert.Equal(t, tt.wantCode, rr.Code)
		})
	}
}

func TestCurrentUser_IgnoresForeignValues(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Set(ContextKeyClaims, "not claims")

	assert.Nil(t, CurrentUser(c))
	assert.False(t, IsAuthenticated(c))
}
