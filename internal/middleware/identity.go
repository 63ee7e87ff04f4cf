package middleware

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/event-ticket-registry/internal/model"
)

// AccountID returns the authenticated caller, or "" on public routes.
func AccountID(c echo.Context) model.AccountID {
    if s, ok := c.Get(CtxAccountID).(string); ok {
        return model.AccountID(s)
    }
    return ""
}

// Role returns the role claim of the authenticated caller.
func Role(c echo.Context) string {
    s, _ := c.Get(CtxRole).(string)
    return s
}
