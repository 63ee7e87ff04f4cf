package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticket-registry/internal/handler"
)

// RegisterTickets registers the ticket API.  Reads are public; metadata
// reads go through cache.  Writes need an access token and pass limiter.
func RegisterTickets(e *echo.Echo, h *handler.TicketHandler, jwtSecret string, cache, limiter echo.MiddlewareFunc) {
	e.GET("/v1/policy", h.Policy)
	e.GET("/v1/tickets/:id", h.Get)
	e.GET("/v1/tickets/:id/metadata", h.Metadata, cache)

	g := e.Group("/v1/tickets", authenticated(jwtSecret)...)
	g.GET("/mine", h.Mine)
	g.POST("", h.Issue, limiter)
	g.POST("/:id/redeem", h.Redeem, limiter)
	g.POST("/:id/transfer", h.Transfer, limiter)
}
