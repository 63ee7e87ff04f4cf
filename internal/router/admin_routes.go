package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticket-registry/internal/handler"
)

// RegisterAdmin registers the administrator endpoints under /v1/admin.
// Any authenticated account may reach them; the engine rejects callers
// other than the current administrator with 403.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	g := e.Group("/v1/admin", authenticated(jwtSecret)...)
	g.PUT("/price", h.SetPrice, limiter)
	g.POST("/withdraw", h.Withdraw, limiter)
	g.POST("/transfer", h.TransferAdmin, limiter)
	g.GET("/custody", h.Custody)
	g.GET("/withdrawals", h.ListWithdrawals)
}
