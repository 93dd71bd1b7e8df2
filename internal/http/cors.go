package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/lifehub/authapi/internal/auth"
)

const (
	corsAllowHeaders  = "Content-Type, Accept, Origin, X-Requested-With, " + auth.CSRFTokenHeader
	corsAllowMethods  = "GET, POST, OPTIONS"
	corsExposeHeaders = "Retry-After, " + auth.CSRFTokenHeader
)

// CORSMiddleware allows credentialed requests from exactly one origin.
// Other origins get no CORS headers and are left to the browser to block.
// Preflight requests are answered directly with 204.
func CORSMiddleware(allowedOrigin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Add("Vary", "Origin")

		origin := c.GetHeader("Origin")
		if origin != "" && allowedOrigin != "" && strings.EqualFold(origin, allowedOrigin) {
			h := c.Writer.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
			h.Set("Access-Control-Allow-Methods", corsAllowMethods)
			h.Set("Access-Control-Expose-Headers", corsExposeHeaders)
			h.Set("Access-Control-Max-Age", "600")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
