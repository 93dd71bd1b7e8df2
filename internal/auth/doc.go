// Package auth implements cookie-carried token authentication.
//
// The flow is split into stages that compose as gin middleware:
//
//   - Middleware.Handler resolves the session cookie into request identity on
//     every request. It never rejects: a missing, malformed, expired or
//     tampered token simply leaves the request anonymous.
//   - RequireAuth rejects anonymous requests with 401 on the routes that opt in.
//   - AuthController serves register, login, logout and the diagnostic user
//     listing, and sets or clears the session cookie.
//
// Tokens are stateless HS256 JWTs. Logging out clears the cookie but does not
// invalidate a copied token before it expires, unless a Denylist is configured
// (AUTH_REVOKE_ON_LOGOUT=true).
//
// # Usage
//
//	tokens, err := auth.NewTokenManager(secret, 7*24*time.Hour, "authapi")
//	service := auth.NewService(store, auth.NewHasher(12, 6), tokens)
//	router.Use(auth.NewMiddleware(tokens, cookie.Name).Handler())
//	auth.NewAuthController(service, auth.ControllerConfig{Cookie: cookie}).RegisterRoutes(api)
//	protected := api.Group("/protected", auth.RequireAuth())
//
// Extract identity in handlers:
//
//	claims := auth.CurrentUser(c) // nil when anonymous
package auth
