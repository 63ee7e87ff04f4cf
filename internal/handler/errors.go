package handler

import (
    "errors"
    "net/http"

    "github.com/labstack/echo/v4"
    log "github.com/sirupsen/logrus"

    "github.com/iliyamo/event-ticket-registry/internal/ticket"
)

type errorMapping struct {
    err    error
    status int
    code   string
}

// engineErrors maps engine failure kinds to HTTP responses.  The body
// carries the sentinel's own message, never the wrapped cause.
var engineErrors = []errorMapping{
    {ticket.ErrSupplyExhausted, http.StatusConflict, "supply_exhausted"},
    {ticket.ErrInsufficientPayment, http.StatusPaymentRequired, "insufficient_payment"},
    {ticket.ErrUnknownTicket, http.StatusNotFound, "unknown_ticket"},
    {ticket.ErrNotTicketOwner, http.StatusForbidden, "not_ticket_owner"},
    {ticket.ErrAlreadyUsed, http.StatusConflict, "already_used"},
    {ticket.ErrNotAuthorized, http.StatusForbidden, "not_authorized"},
    {ticket.ErrNothingToWithdraw, http.StatusConflict, "nothing_to_withdraw"},
    {ticket.ErrTransferFailed, http.StatusBadGateway, "transfer_failed"},
    {ticket.ErrInvalidAccount, http.StatusBadRequest, "invalid_account"},
    {ticket.ErrCustodyOverflow, http.StatusUnprocessableEntity, "custody_overflow"},
}

// engineError writes the response for an error returned by the engine.
func engineError(c echo.Context, err error) error {
    for _, m := range engineErrors {
        if errors.Is(err, m.err) {
            if m.status == http.StatusBadGateway {
                log.WithError(err).Warn("payout failed")
            }
            return c.JSON(m.status, echo.Map{"error": m.err.Error(), "code": m.code})
        }
    }
    log.WithError(err).WithField("path", c.Path()).Error("request failed")
    return internalError(c)
}

func badRequest(c echo.Context, msg string) error {
    return c.JSON(http.StatusBadRequest, echo.Map{"error": msg, "code": "invalid_request"})
}

func internalError(c echo.Context) error {
    return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error", "code": "internal"})
}
