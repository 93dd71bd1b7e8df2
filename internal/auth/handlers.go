package auth

import (
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lifehub/authapi/internal/database/users"
	"github.com/lifehub/authapi/internal/entities"
	"github.com/lifehub/authapi/internal/metrics"
)

// ListUsersPolicy controls exposure of the diagnostic user listing.
type ListUsersPolicy string

const (
	ListUsersPublic   ListUsersPolicy = "public"
	ListUsersAdmin    ListUsersPolicy = "admin"
	ListUsersDisabled ListUsersPolicy = "disabled"
)

// ParseListUsersPolicy validates a configured policy name.
func ParseListUsersPolicy(value string) (ListUsersPolicy, error) {
	switch p := ListUsersPolicy(strings.ToLower(strings.TrimSpace(value))); p {
	case ListUsersPublic, ListUsersAdmin, ListUsersDisabled:
		return p, nil
	default:
		return "", fmt.Errorf("invalid list users policy %q", value)
	}
}

// ControllerConfig carries the collaborators of AuthController. Only Cookie
// is required.
type ControllerConfig struct {
	Cookie      CookieOptions
	ListUsers   ListUsersPolicy
	RateLimiter *RateLimiter
	Denylist    *Denylist
	Metrics     *metrics.Metrics
	Logger      *zap.Logger
}

// AuthController handles the register, login, logout and user listing endpoints.
type AuthController struct {
	service *Service
	cfg     ControllerConfig
	log     *zap.Logger
}

// NewAuthController creates a new authentication controller.
func NewAuthController(service *Service, cfg ControllerConfig) *AuthController {
	cfg.Cookie = cfg.Cookie.normalize()
	if cfg.ListUsers == "" {
		cfg.ListUsers = ListUsersPublic
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthController{service: service, cfg: cfg, log: log}
}

// RegisterRoutes mounts the auth endpoints under rg + "/auth".
func (ac *AuthController) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/auth", NoStoreMiddleware())
	group.POST("/register", ac.Register)
	group.POST("/login", ac.Login)
	group.POST("/logout", ac.Logout)

	switch ac.cfg.ListUsers {
	case ListUsersAdmin:
		group.GET("/users", RequireRole(entities.RoleAdmin), ac.ListUsers)
	case ListUsersDisabled:
	default:
		group.GET("/users", ac.ListUsers)
	}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type userResponse struct {
	ID    uint64 `json:"id"`
	Email string `json:"email"`
}

// Register handles POST /auth/register.
func (ac *AuthController) Register(c *gin.Context) {
	req, ok := ac.bindCredentials(c, "register")
	if !ok {
		return
	}

	session, err := ac.service.Register(c.Request.Context(), req.Email, req.Password, req.Role)
	if err != nil {
		ac.fail(c, "register", err)
		return
	}

	SetSessionCookie(c.Writer, session.Token, ac.cfg.Cookie)
	ac.cfg.Metrics.AuthAttempt("register", metrics.OutcomeSuccess)

	c.JSON(http.StatusOK, gin.H{
		"message": "User registered successfully",
		"user":    userResponse{ID: session.User.ID, Email: session.User.Email},
	})
}

// Login handles POST /auth/login.
func (ac *AuthController) Login(c *gin.Context) {
	req, ok := ac.bindCredentials(c, "login")
	if !ok {
		return
	}

	clientIP := c.ClientIP()
	email := users.NormalizeEmail(req.Email)

	if ac.cfg.RateLimiter != nil {
		allowed, retryAfter := ac.cfg.RateLimiter.Allow(clientIP, email)
		if !allowed {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
			ac.cfg.Metrics.AuthAttempt("login", metrics.OutcomeRateLimited)
			c.JSON(http.StatusTooManyRequests, gin.H{"message": "Too many login attempts. Please try again later."})
			return
		}
	}

	session, err := ac.service.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) && ac.cfg.RateLimiter != nil {
			if locked, _ := ac.cfg.RateLimiter.RecordFailure(clientIP, email); locked {
				ac.log.Warn("Login locked out", zap.String("client_ip", clientIP))
			}
		}
		ac.fail(c, "login", err)
		return
	}

	if ac.cfg.RateLimiter != nil {
		ac.cfg.RateLimiter.RecordSuccess(clientIP, email)
	}

	SetSessionCookie(c.Writer, session.Token, ac.cfg.Cookie)
	ac.cfg.Metrics.AuthAttempt("login", metrics.OutcomeSuccess)

	c.JSON(http.StatusOK, gin.H{
		"message": "Logged in successfully",
		"user":    userResponse{ID: session.User.ID, Email: session.User.Email},
	})
}

// Logout handles POST /auth/logout. It always succeeds. The presented token
// stays valid until expiry unless a denylist is configured.
func (ac *AuthController) Logout(c *gin.Context) {
	if claims := CurrentUser(c); claims != nil && ac.cfg.Denylist != nil {
		ac.cfg.Denylist.Revoke(claims.RegisteredClaims.ID, ac.service.tokens.Remaining(claims))
	}

	ClearSessionCookie(c.Writer, ac.cfg.Cookie)
	ac.cfg.Metrics.AuthAttempt("logout", metrics.OutcomeSuccess)

	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// ListUsers handles GET /auth/users. Diagnostic only.
func (ac *AuthController) ListUsers(c *gin.Context) {
	list, err := ac.service.ListUsers(c.Request.Context())
	if err != nil {
		ac.log.Error("Failed to list users", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": list})
}

// bindCredentials decodes the JSON body. An empty body decodes to empty
// fields so that it is reported as missing credentials.
func (ac *AuthController) bindCredentials(c *gin.Context, action string) (credentialsRequest, bool) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		ac.cfg.Metrics.AuthAttempt(action, metrics.OutcomeBadRequest)
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return req, false
	}
	return req, true
}

func (ac *AuthController) fail(c *gin.Context, action string, err error) {
	status, message, outcome := classifyError(err)
	if status == http.StatusInternalServerError {
		ac.log.Error("Auth request failed", zap.String("action", action), zap.Error(err))
	}
	ac.cfg.Metrics.AuthAttempt(action, outcome)
	c.JSON(status, gin.H{"message": message})
}

func classifyError(err error) (int, string, string) {
	switch {
	case errors.Is(err, ErrMissingCredentials):
		return http.StatusBadRequest, "Email and password are required", metrics.OutcomeBadRequest
	case errors.Is(err, ErrPasswordTooShort):
		return http.StatusBadRequest, "Password is too short", metrics.OutcomeBadRequest
	case errors.Is(err, ErrPasswordTooLong):
		return http.StatusBadRequest, "Password must be at most 72 bytes", metrics.OutcomeBadRequest
	case errors.Is(err, ErrUserExists):
		return http.StatusConflict, "User already exists", metrics.OutcomeConflict
	case errors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid credentials", metrics.OutcomeInvalid
	default:
		return http.StatusInternalServerError, "Internal server error", metrics.OutcomeError
	}
}
