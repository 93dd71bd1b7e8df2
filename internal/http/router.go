package http

import (
	"net/http"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lifehub/authapi/internal/auth"
)

// NewRouter creates and configures the HTTP router with all endpoints.
//
// Middleware order matters: CORS headers must be present on CSRF and auth
// failures, and the session middleware must run before any RequireAuth.
func NewRouter(cfg RouterConfig) *gin.Engine {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	router := gin.New()
	if err := router.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		log.Error("Invalid trusted proxies, trusting none", zap.Error(err))
		_ = router.SetTrustedProxies(nil)
	}
	router.Use(RequestLogger(log))
	router.Use(Recovery(log))
	if cfg.Metrics != nil {
		router.Use(RequestMetrics(cfg.Metrics))
	}

	router.Use(auth.SecurityHeadersMiddleware())
	if cfg.HSTS {
		router.Use(auth.StrictTransportSecurityMiddleware())
	}
	router.Use(CORSMiddleware(cfg.ClientOrigin))
	if cfg.CSRF != nil {
		router.Use(auth.CSRFMiddleware(*cfg.CSRF))
	}
	router.Use(cfg.AuthMiddleware.Handler())

	router.GET("/", Root)
	if cfg.Metrics != nil {
		router.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}
	if cfg.EnablePprof {
		pprof.Register(router)
	}

	api := router.Group(cfg.APIPrefix)

	health := NewHealthController(cfg.Store, cfg.Database, cfg.Version)
	api.GET("/public/health", health.Status)

	if cfg.AuthController.Logger == nil {
		cfg.AuthController.Logger = log
	}
	if cfg.AuthController.Metrics == nil {
		cfg.AuthController.Metrics = cfg.Metrics
	}
	auth.NewAuthController(cfg.AuthService, cfg.AuthController).RegisterRoutes(api)
	if cfg.CSRF != nil {
		api.GET("/auth/csrf", auth.NoStoreMiddleware(), auth.CSRFToken)
	}

	protected := api.Group("/protected", auth.RequireAuth())
	protected.GET("/profile", Profile)

	return router
}

// Root handles GET / as a liveness probe.
func Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "API is running"})
}

// Profile handles GET /protected/profile. RequireAuth guarantees an identity.
func Profile(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "This is a protected profile route",
		"user":    auth.CurrentUser(c),
	})
}
