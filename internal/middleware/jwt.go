package middleware // middleware holds the Echo middleware shared by the route groups

import (
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/event-ticket-registry/internal/utils"
)

// Context keys set by JWTAuth.
const (
    CtxAccountID = "account_id"
    CtxRole      = "role"
)

// JWTAuth validates a Bearer access token and stores the caller's account
// ID and role in the Echo context.  Handlers read them back with AccountID
// and Role.
func JWTAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            auth := c.Request().Header.Get("Authorization")
            if !strings.HasPrefix(auth, "Bearer ") {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token", "code": "unauthorized"})
            }
            claims, err := utils.ParseAccessToken(secret, strings.TrimPrefix(auth, "Bearer "))
            if err != nil {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token", "code": "unauthorized"})
            }
            c.Set(CtxAccountID, claims.AccountID)
            c.Set(CtxRole, claims.Role)
            return next(c)
        }
    }
}
