package router // package router defines how HTTP routes are registered for the API

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticket-registry/internal/handler"
	"github.com/iliyamo/event-ticket-registry/internal/middleware"
	"github.com/iliyamo/event-ticket-registry/internal/model"
)

// RegisterRoutes registers routes that need no session: the health check.
// db may be nil when the service runs without a database.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health(db))
}

// RegisterAuth registers the account endpoints.  Register, login, refresh
// and logout live under /v1/auth; the profile needs an access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1", authenticated(jwtSecret)...)
	auth.GET("/me", a.Me)
}

// RegisterGraphQL mounts the read-only query endpoint for GET and POST.
func RegisterGraphQL(e *echo.Echo, h http.Handler) {
	e.GET("/graphql", echo.WrapHandler(h))
	e.POST("/graphql", echo.WrapHandler(h))
}

// authenticated is the middleware chain of every protected group: a valid
// access token carrying a known role.
func authenticated(jwtSecret string) []echo.MiddlewareFunc {
	return []echo.MiddlewareFunc{
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleHolder, model.RoleAdmin),
	}
}
