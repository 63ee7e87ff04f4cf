package handler

import (
    "context"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/event-ticket-registry/internal/middleware"
    "github.com/iliyamo/event-ticket-registry/internal/model"
    "github.com/iliyamo/event-ticket-registry/internal/registry"
    "github.com/iliyamo/event-ticket-registry/internal/ticket"
)

// requestTimeout bounds the registry and database work of one request.
const requestTimeout = 5 * time.Second

// TicketHandler serves the holder-facing ticket API.
type TicketHandler struct {
    Engine   *ticket.Engine
    Holdings registry.Lister
}

func NewTicketHandler(e *ticket.Engine, holdings registry.Lister) *TicketHandler {
    if e == nil || holdings == nil {
        panic("nil dependency passed to NewTicketHandler")
    }
    return &TicketHandler{Engine: e, Holdings: holdings}
}

type policyResp struct {
    Name       string `json:"name"`
    Symbol     string `json:"symbol"`
    Price      string `json:"price"`
    MaxTickets uint64 `json:"max_tickets"`
    Issued     uint64 `json:"issued"`
    Remaining  uint64 `json:"remaining"`
    Admin      string `json:"admin"`
}

type issueReq struct {
    MetadataURI string `json:"metadata_uri"`
    Payment     string `json:"payment"`
}

type transferReq struct {
    To string `json:"to"`
}

// Policy: GET /v1/policy
func (h *TicketHandler) Policy(c echo.Context) error {
    p := h.Engine.Snapshot()
    return c.JSON(http.StatusOK, policyResp{
        Name:       p.Name,
        Symbol:     p.Symbol,
        Price:      p.Price.String(),
        MaxTickets: p.MaxTickets,
        Issued:     p.Issued,
        Remaining:  p.MaxTickets - p.Issued,
        Admin:      string(p.Admin),
    })
}

// Get: GET /v1/tickets/:id
func (h *TicketHandler) Get(c echo.Context) error {
    id, err := model.ParseTicketID(c.Param("id"))
    if err != nil {
        return badRequest(c, "invalid ticket id")
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()
    t, err := h.Engine.Ticket(ctx, id)
    if err != nil {
        return engineError(c, err)
    }
    return c.JSON(http.StatusOK, t)
}

// Metadata: GET /v1/tickets/:id/metadata.  The response never changes once
// the ticket exists, which is what makes it safe to cache.
func (h *TicketHandler) Metadata(c echo.Context) error {
    id, err := model.ParseTicketID(c.Param("id"))
    if err != nil {
        return badRequest(c, "invalid ticket id")
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()
    uri, err := h.Engine.MetadataOf(ctx, id)
    if err != nil {
        return engineError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"id": id, "metadata_uri": uri})
}

// Issue: POST /v1/tickets.  The caller pays and becomes the holder.
func (h *TicketHandler) Issue(c echo.Context) error {
    var req issueReq
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }
    payment, err := model.ParseAmount(req.Payment)
    if err != nil {
        return badRequest(c, "payment must be a base-unit integer string")
    }
    caller := middleware.AccountID(c)

    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()
    id, err := h.Engine.Issue(ctx, caller, req.MetadataURI, payment)
    if err != nil {
        return engineError(c, err)
    }
    return c.JSON(http.StatusCreated, model.Ticket{ID: id, Owner: caller, MetadataURI: req.MetadataURI})
}

// Redeem: POST /v1/tickets/:id/redeem
func (h *TicketHandler) Redeem(c echo.Context) error {
    id, err := model.ParseTicketID(c.Param("id"))
    if err != nil {
        return badRequest(c, "invalid ticket id")
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()
    if err := h.Engine.Redeem(ctx, middleware.AccountID(c), id); err != nil {
        return engineError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"id": id, "used": true})
}

// Transfer: POST /v1/tickets/:id/transfer
func (h *TicketHandler) Transfer(c echo.Context) error {
    id, err := model.ParseTicketID(c.Param("id"))
    if err != nil {
        return badRequest(c, "invalid ticket id")
    }
    var req transferReq
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()
    to := model.AccountID(req.To)
    if err := h.Engine.TransferTicket(ctx, middleware.AccountID(c), to, id); err != nil {
        return engineError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"id": id, "owner": to})
}

// Mine: GET /v1/tickets/mine lists the caller's tickets with their used flag.
func (h *TicketHandler) Mine(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()
    caller := middleware.AccountID(c)
    ids, err := h.Holdings.TokensOf(ctx, caller)
    if err != nil {
        return engineError(c, err)
    }
    out := make([]model.Ticket, 0, len(ids))
    for _, id := range ids {
        used, err := h.Engine.IsUsed(id)
        if err != nil {
            return engineError(c, err)
        }
        uri, err := h.Engine.MetadataOf(ctx, id)
        if err != nil {
            return engineError(c, err)
        }
        out = append(out, model.Ticket{ID: id, Owner: caller, MetadataURI: uri, Used: used})
    }
    return c.JSON(http.StatusOK, echo.Map{"tickets": out})
}
