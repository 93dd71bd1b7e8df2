package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// MinSecretLength is the shortest accepted JWT_SECRET and AUTH_CSRF_SECRET.
const MinSecretLength = 32

var ErrMissingSecret = errors.New("JWT_SECRET is required")

type (
	Config struct {
		HTTP
		Global
		JWT
		Cookie
		CORS
		Auth
		CSRF
		Store
		Log
		Metrics
		Maintenance
	}

	HTTP struct {
		Port      int32
		Host      string
		APIPrefix string
		HSTS      bool // Only behind TLS
		Pprof     bool // Mounts /debug/pprof; never in production

		// TrustedProxies lists the IPs or CIDRs whose X-Forwarded-For is
		// believed. Empty means the socket peer is the client.
		TrustedProxies []string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	JWT struct {
		Secret    string
		ExpiresIn time.Duration
		Issuer    string
	}
	Cookie struct {
		Name     string
		Domain   string
		Secure   bool
		SameSite string // lax, strict or none
		MaxAge   time.Duration
	}
	CORS struct {
		ClientOrigin string // Exactly one origin, echoed back with credentials
	}
	Auth struct {
		BcryptCost        int
		MinPasswordLength int

		// Rate limiting configuration
		MaxLoginAttempts int           // Max failed attempts before lockout (default: 5)
		RateLimitWindow  time.Duration // Time window for counting attempts (default: 15m)
		LockoutDuration  time.Duration // How long to lock out (default: 30m)

		RevokeOnLogout bool   // Denylist tokens presented at logout
		ListUsers      string // public, admin or disabled
	}
	CSRF struct {
		Enabled bool
		Secret  string
	}
	Store struct {
		Kind string // memory or sqlite
		DSN  string
	}
	Log struct {
		Level  string
		Format string
	}
	Metrics struct {
		Enabled bool
	}
	Maintenance struct {
		Schedule string // Cron spec or descriptor, e.g. "@every 5m"
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 5000)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("api_prefix", "/api")
	v.SetDefault("shutdown_timeout_in_seconds", 5)
	v.SetDefault("http_hsts", false)
	v.SetDefault("pprof_enabled", false)
	v.SetDefault("trusted_proxies", "")

	// Token defaults. JWT_SECRET deliberately has none.
	v.SetDefault("jwt_expires_in", "168h")
	v.SetDefault("jwt_issuer", "lifehub-authapi")

	// Cookie defaults target a cross-site SPA over HTTPS
	v.SetDefault("cookie_name", "access_token")
	v.SetDefault("cookie_domain", "")
	v.SetDefault("cookie_secure", true)
	v.SetDefault("cookie_samesite", "none")
	v.SetDefault("cookie_max_age", "168h")
	v.SetDefault("client_origin", "http://localhost:3000")

	// Auth defaults
	v.SetDefault("auth_bcrypt_cost", 12)
	v.SetDefault("auth_min_password_length", 0)
	v.SetDefault("auth_max_login_attempts", 5)
	v.SetDefault("auth_rate_limit_window", "15m")
	v.SetDefault("auth_lockout_duration", "30m")
	v.SetDefault("auth_revoke_on_logout", false)
	v.SetDefault("auth_list_users", "public")
	v.SetDefault("auth_csrf_enabled", false)
	v.SetDefault("auth_csrf_secret", "")

	v.SetDefault("user_store", "memory")
	v.SetDefault("user_store_dsn", "file:authapi?mode=memory&cache=shared")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("metrics_enabled", true)
	v.SetDefault("maintenance_schedule", "@every 5m")

	return &Config{
		HTTP: HTTP{
			Port:      v.GetInt32("PORT"),
			Host:      v.GetString("HOST"),
			APIPrefix: normalizePrefix(v.GetString("API_PREFIX")),
			HSTS:      v.GetBool("HTTP_HSTS"),
			Pprof:     v.GetBool("PPROF_ENABLED"),

			TrustedProxies: splitList(v.GetString("TRUSTED_PROXIES")),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		JWT: JWT{
			Secret:    v.GetString("JWT_SECRET"),
			ExpiresIn: v.GetDuration("JWT_EXPIRES_IN"),
			Issuer:    v.GetString("JWT_ISSUER"),
		},
		Cookie: Cookie{
			Name:     v.GetString("COOKIE_NAME"),
			Domain:   v.GetString("COOKIE_DOMAIN"),
			Secure:   v.GetBool("COOKIE_SECURE"),
			SameSite: strings.ToLower(v.GetString("COOKIE_SAMESITE")),
			MaxAge:   v.GetDuration("COOKIE_MAX_AGE"),
		},
		CORS: CORS{
			ClientOrigin: strings.TrimSuffix(v.GetString("CLIENT_ORIGIN"), "/"),
		},
		Auth: Auth{
			BcryptCost:        v.GetInt("AUTH_BCRYPT_COST"),
			MinPasswordLength: v.GetInt("AUTH_MIN_PASSWORD_LENGTH"),
			MaxLoginAttempts:  v.GetInt("AUTH_MAX_LOGIN_ATTEMPTS"),
			RateLimitWindow:   v.GetDuration("AUTH_RATE_LIMIT_WINDOW"),
			LockoutDuration:   v.GetDuration("AUTH_LOCKOUT_DURATION"),
			RevokeOnLogout:    v.GetBool("AUTH_REVOKE_ON_LOGOUT"),
			ListUsers:         strings.ToLower(v.GetString("AUTH_LIST_USERS")),
		},
		CSRF: CSRF{
			Enabled: v.GetBool("AUTH_CSRF_ENABLED"),
			Secret:  v.GetString("AUTH_CSRF_SECRET"),
		},
		Store: Store{
			Kind: strings.ToLower(v.GetString("USER_STORE")),
			DSN:  v.GetString("USER_STORE_DSN"),
		},
		Log: Log{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Metrics: Metrics{
			Enabled: v.GetBool("METRICS_ENABLED"),
		},
		Maintenance: Maintenance{
			Schedule: v.GetString("MAINTENANCE_SCHEDULE"),
		},
	}
}

// Validate reports every setting the server cannot start with.
func (c *Config) Validate() error {
	var errs []error

	switch {
	case c.JWT.Secret == "":
		errs = append(errs, ErrMissingSecret)
	case len(c.JWT.Secret) < MinSecretLength:
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d bytes", MinSecretLength))
	}
	for _, proxy := range c.HTTP.TrustedProxies {
		if net.ParseIP(proxy) == nil {
			if _, _, err := net.ParseCIDR(proxy); err != nil {
				errs = append(errs, fmt.Errorf("TRUSTED_PROXIES entry %q is not an IP or CIDR", proxy))
			}
		}
	}
	if c.JWT.ExpiresIn <= 0 {
		errs = append(errs, errors.New("JWT_EXPIRES_IN must be positive"))
	}

	switch c.Cookie.SameSite {
	case "lax", "strict":
	case "none":
		if !c.Cookie.Secure {
			errs = append(errs, errors.New("COOKIE_SAMESITE=none requires COOKIE_SECURE=true"))
		}
	default:
		errs = append(errs, fmt.Errorf("COOKIE_SAMESITE must be lax, strict or none, got %q", c.Cookie.SameSite))
	}
	if c.Cookie.MaxAge <= 0 {
		errs = append(errs, errors.New("COOKIE_MAX_AGE must be positive"))
	}

	if err := validateOrigin(c.CORS.ClientOrigin); err != nil {
		errs = append(errs, err)
	}

	switch c.Auth.ListUsers {
	case "public", "admin", "disabled":
	default:
		errs = append(errs, fmt.Errorf("AUTH_LIST_USERS must be public, admin or disabled, got %q", c.Auth.ListUsers))
	}

	if c.CSRF.Enabled && len(c.CSRF.Secret) < MinSecretLength {
		errs = append(errs, fmt.Errorf("AUTH_CSRF_SECRET must be at least %d bytes when CSRF is enabled", MinSecretLength))
	}

	switch c.Store.Kind {
	case "memory", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("USER_STORE must be memory or sqlite, got %q", c.Store.Kind))
	}

	return errors.Join(errs...)
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.HTTP.Host, c.HTTP.Port)
}

// ClientOriginHost returns the host[:port] of the client origin.
func (c *Config) ClientOriginHost() string {
	u, err := url.Parse(c.CORS.ClientOrigin)
	if err != nil {
		return ""
	}
	return u.Host
}

func validateOrigin(origin string) error {
	if origin == "" || origin == "*" {
		return errors.New("CLIENT_ORIGIN must name exactly one origin")
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("CLIENT_ORIGIN %q is not an http(s) origin", origin)
	}
	if u.Path != "" || u.RawQuery != "" {
		return fmt.Errorf("CLIENT_ORIGIN %q must not carry a path", origin)
	}
	return nil
}

func normalizePrefix(prefix string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return ""
	}
	return "/" + prefix
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
