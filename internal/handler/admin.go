package handler

import (
    "context"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/event-ticket-registry/internal/middleware"
    "github.com/iliyamo/event-ticket-registry/internal/model"
    "github.com/iliyamo/event-ticket-registry/internal/ticket"
)

// WithdrawalLister reads the payout history.
type WithdrawalLister interface {
    ListWithdrawals(ctx context.Context, limit int) ([]model.Withdrawal, error)
}

// AdminHandler serves the administrator API.  Authorization is the
// engine's: every operation passes the caller through and the engine
// refuses anyone but the current administrator.
type AdminHandler struct {
    Engine      *ticket.Engine
    Withdrawals WithdrawalLister
}

func NewAdminHandler(e *ticket.Engine, w WithdrawalLister) *AdminHandler {
    if e == nil || w == nil {
        panic("nil dependency passed to NewAdminHandler")
    }
    return &AdminHandler{Engine: e, Withdrawals: w}
}

type priceReq struct {
    Price string `json:"price"`
}

type transferAdminReq struct {
    NewAdmin string `json:"new_admin"`
}

type withdrawalResp struct {
    ID        uint64    `json:"id"`
    Admin     string    `json:"admin"`
    Amount    string    `json:"amount"`
    CreatedAt time.Time `json:"created_at"`
}

// SetPrice: PUT /v1/admin/price
func (h *AdminHandler) SetPrice(c echo.Context) error {
    var req priceReq
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }
    price, err := model.ParseAmount(req.Price)
    if err != nil {
        return badRequest(c, "price must be a base-unit integer string")
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()
    if err := h.Engine.SetPrice(ctx, middleware.AccountID(c), price); err != nil {
        return engineError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"price": price.String()})
}

// Withdraw: POST /v1/admin/withdraw pays the whole custody out.
func (h *AdminHandler) Withdraw(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()
    caller := middleware.AccountID(c)
    amount, err := h.Engine.Withdraw(ctx, caller)
    if err != nil {
        return engineError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"admin": caller, "amount": amount.String()})
}

// TransferAdmin: POST /v1/admin/transfer
func (h *AdminHandler) TransferAdmin(c echo.Context) error {
    var req transferAdminReq
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()
    newAdmin := model.AccountID(req.NewAdmin)
    if err := h.Engine.TransferAdmin(ctx, middleware.AccountID(c), newAdmin); err != nil {
        return engineError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"admin": newAdmin})
}

// Custody: GET /v1/admin/custody
func (h *AdminHandler) Custody(c echo.Context) error {
    p := h.Engine.Snapshot()
    if middleware.AccountID(c) != p.Admin {
        return engineError(c, ticket.ErrNotAuthorized)
    }
    return c.JSON(http.StatusOK, echo.Map{"custody": p.Custody.String(), "issued": p.Issued})
}

// ListWithdrawals: GET /v1/admin/withdrawals?limit=N, newest first.
func (h *AdminHandler) ListWithdrawals(c echo.Context) error {
    if middleware.AccountID(c) != h.Engine.Admin() {
        return engineError(c, ticket.ErrNotAuthorized)
    }
    limit := 50
    if s := c.QueryParam("limit"); s != "" {
        n, err := strconv.Atoi(s)
        if err != nil || n < 1 || n > 500 {
            return badRequest(c, "limit must be between 1 and 500")
        }
        limit = n
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()
    ws, err := h.Withdrawals.ListWithdrawals(ctx, limit)
    if err != nil {
        return engineError(c, err)
    }
    out := make([]withdrawalResp, 0, len(ws))
    for _, w := range ws {
        out = append(out, withdrawalResp{ID: w.ID, Admin: string(w.Admin), Amount: w.Amount.String(), CreatedAt: w.CreatedAt})
    }
    return c.JSON(http.StatusOK, echo.Map{"withdrawals": out})
}
