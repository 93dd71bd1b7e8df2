package http

import (
	"go.uber.org/zap"

	"github.com/lifehub/authapi/internal/auth"
	"github.com/lifehub/authapi/internal/database"
	"github.com/lifehub/authapi/internal/metrics"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	Version   string
	APIPrefix string
	Logger    *zap.Logger
	Metrics   *metrics.Metrics // nil disables /metrics and request timing

	// ClientOrigin is the single browser origin allowed to call the API
	// with credentials.
	ClientOrigin string

	AuthService    *auth.Service
	AuthMiddleware *auth.Middleware
	AuthController auth.ControllerConfig
	CSRF           *auth.CSRFConfig // nil disables CSRF protection
	HSTS           bool

	// TrustedProxies are the peers allowed to set X-Forwarded-For. Empty
	// means ClientIP is always the socket peer.
	TrustedProxies []string

	// Health checks
	Store    UserCounter
	Database *database.Database // only set for the sqlite store

	EnablePprof bool
}
