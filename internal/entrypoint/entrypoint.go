package entrypoint

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lifehub/authapi/internal/auth"
	"github.com/lifehub/authapi/internal/config"
	"github.com/lifehub/authapi/internal/database"
	"github.com/lifehub/authapi/internal/database/users"
	http_controllers "github.com/lifehub/authapi/internal/http"
	"github.com/lifehub/authapi/internal/logger"
	"github.com/lifehub/authapi/internal/metrics"
	"github.com/lifehub/authapi/internal/scheduler"
)

// App is the wired service, ready to serve.
type App struct {
	Router    *gin.Engine
	Scheduler *scheduler.MaintenanceScheduler

	cleanup []func() error
}

// Close releases resources opened by Build.
func (a *App) Close() error {
	var errs []error
	for i := len(a.cleanup) - 1; i >= 0; i-- {
		errs = append(errs, a.cleanup[i]())
	}
	return errors.Join(errs...)
}

// Build wires the store, the auth components and the router from cfg.
// cfg must already be valid.
func Build(cfg *config.Config, version string, log *zap.Logger) (*App, error) {
	if err := scheduler.ValidateSchedule(cfg.Maintenance.Schedule); err != nil {
		return nil, fmt.Errorf("invalid MAINTENANCE_SCHEDULE: %w", err)
	}

	app := &App{}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	var (
		store users.Store
		db    *database.Database
	)
	switch cfg.Store.Kind {
	case "sqlite":
		var err error
		db, err = database.NewDatabase(cfg.Store.DSN)
		if err != nil {
			return nil, err
		}
		app.cleanup = append(app.cleanup, db.Close)
		store = users.NewRepository(db.DB)
		log.Info("Using SQLite user store")
	default:
		store = users.NewMemoryStore()
		log.Info("Using in-memory user store; users are lost on restart")
	}

	tokens, err := auth.NewTokenManager([]byte(cfg.JWT.Secret), cfg.JWT.ExpiresIn, cfg.JWT.Issuer)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to create token manager: %w", err)
	}

	sameSite, err := auth.ParseSameSite(cfg.Cookie.SameSite)
	if err != nil {
		app.Close()
		return nil, err
	}
	cookie := auth.CookieOptions{
		Name:     cfg.Cookie.Name,
		Domain:   cfg.Cookie.Domain,
		Secure:   cfg.Cookie.Secure,
		SameSite: sameSite,
		MaxAge:   cfg.Cookie.MaxAge,
	}
	if err := cookie.Validate(); err != nil {
		app.Close()
		return nil, err
	}

	listUsers, err := auth.ParseListUsersPolicy(cfg.Auth.ListUsers)
	if err != nil {
		app.Close()
		return nil, err
	}

	var denylist *auth.Denylist
	if cfg.Auth.RevokeOnLogout {
		denylist = auth.NewDenylist()
		log.Info("Token revocation on logout enabled")
	}

	limiter := auth.NewRateLimiter(auth.RateLimitConfig{
		MaxAttempts:     cfg.Auth.MaxLoginAttempts,
		WindowDuration:  cfg.Auth.RateLimitWindow,
		LockoutDuration: cfg.Auth.LockoutDuration,
	})

	service := auth.NewService(store,
		auth.NewHasher(cfg.Auth.BcryptCost, cfg.Auth.MinPasswordLength),
		tokens,
		auth.WithServiceMetrics(m),
		auth.WithServiceLogger(log.Named("auth")),
	)

	var csrfConfig *auth.CSRFConfig
	if cfg.CSRF.Enabled {
		csrfConfig = &auth.CSRFConfig{
			Secret:         []byte(cfg.CSRF.Secret),
			Secure:         cfg.Cookie.Secure,
			SameSite:       sameSite,
			Domain:         cfg.Cookie.Domain,
			TrustedOrigins: []string{cfg.ClientOriginHost()},
		}
		log.Info("CSRF protection enabled")
	}

	app.Router = http_controllers.NewRouter(http_controllers.RouterConfig{
		Version:      version,
		APIPrefix:    cfg.HTTP.APIPrefix,
		Logger:       log.Named("http"),
		Metrics:      m,
		ClientOrigin: cfg.CORS.ClientOrigin,
		AuthService:  service,
		AuthMiddleware: auth.NewMiddleware(tokens, cookie.Name,
			auth.WithDenylist(denylist),
			auth.WithSessionMetrics(m),
			auth.WithSessionLogger(log.Named("session")),
		),
		AuthController: auth.ControllerConfig{
			Cookie:      cookie,
			ListUsers:   listUsers,
			RateLimiter: limiter,
			Denylist:    denylist,
		},
		CSRF:           csrfConfig,
		HSTS:           cfg.HTTP.HSTS,
		TrustedProxies: cfg.HTTP.TrustedProxies,
		Store:          store,
		Database:       db,
		EnablePprof:    cfg.HTTP.Pprof,
	})

	app.Scheduler = scheduler.NewMaintenanceScheduler(cfg.Maintenance.Schedule, log.Named("maintenance"),
		scheduler.Task{Name: "rate-limit-cleanup", Run: func(context.Context) error {
			limiter.Cleanup()
			return nil
		}},
		scheduler.Task{Name: "denylist-purge", Run: func(context.Context) error {
			denylist.Purge()
			return nil
		}},
		scheduler.Task{Name: "user-gauge", Run: func(ctx context.Context) error {
			n, err := service.CountUsers(ctx)
			if err != nil {
				return err
			}
			m.SetRegisteredUsers(n)
			return nil
		}},
	)

	return app, nil
}

// Serve runs srv and the scheduler until ctx is cancelled, then shuts both
// down within timeout.
func Serve(ctx context.Context, srv *http.Server, app *App, timeout time.Duration, log *zap.Logger) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("Starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return app.Scheduler.Start(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server", zap.Duration("timeout", timeout))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		app.Scheduler.Stop()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		log.Info("Server exiting")
		return nil
	})

	return g.Wait()
}

// Run validates cfg, builds the service and serves until SIGINT or SIGTERM.
func Run(cfg *config.Config, version string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, zap.String("version", version))
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if !cfg.Cookie.Secure {
		log.Warn("COOKIE_SECURE is false; session cookies will be sent over plain HTTP")
	}

	gin.SetMode(gin.ReleaseMode)
	app, err := Build(cfg, version, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Error("Error closing resources", zap.Error(err))
		}
	}()

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second
	return Serve(ctx, srv, app, timeout, log)
}
