package ticket

import "errors"

// Failure kinds reported by the engine.  Every operation that returns one
// of these leaves the engine state exactly as it was before the call.
var (
    ErrSupplyExhausted     = errors.New("all tickets have been sold")
    ErrInsufficientPayment = errors.New("insufficient payment")
    ErrUnknownTicket       = errors.New("unknown ticket")
    ErrNotTicketOwner      = errors.New("not ticket owner")
    ErrAlreadyUsed         = errors.New("ticket already used")
    ErrNotAuthorized       = errors.New("caller is not the administrator")
    ErrNothingToWithdraw   = errors.New("nothing to withdraw")
    ErrTransferFailed      = errors.New("payout transfer failed")
    ErrInvalidAccount      = errors.New("invalid account")
    ErrCustodyOverflow     = errors.New("custody balance overflow")
)
