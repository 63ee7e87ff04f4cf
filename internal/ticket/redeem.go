package ticket

import (
    "context"
    "fmt"

    "github.com/iliyamo/event-ticket-registry/internal/model"
)

// Redeem marks ticket id as used on behalf of its current owner.  A ticket
// redeems exactly once; every later attempt fails with ErrAlreadyUsed.
func (e *Engine) Redeem(ctx context.Context, caller model.AccountID, id model.TicketID) error {
    e.mu.Lock()
    err := e.redeemLocked(ctx, caller, id)
    var seq uint64
    if err == nil {
        seq = e.commitSeq()
    }
    e.mu.Unlock()
    if err != nil {
        return err
    }

    e.logger.WithField("ticket_id", id).WithField("owner", caller).Info("ticket redeemed")
    e.publish(ctx, seq, Event{Type: EventTicketRedeemed, TicketID: ticketRef(id), From: caller})
    return nil
}

func (e *Engine) redeemLocked(ctx context.Context, caller model.AccountID, id model.TicketID) error {
    if !e.known(id) {
        return ErrUnknownTicket
    }
    owner, err := e.registry.OwnerOf(ctx, id)
    if err != nil {
        return registryErr("owner of", id, err)
    }
    // Ownership is checked before the used flag.
    if owner != caller {
        return ErrNotTicketOwner
    }
    if e.used[id] == model.Used {
        return ErrAlreadyUsed
    }
    err = e.store.WithTx(ctx, func(ctx context.Context) error {
        return e.store.RecordRedeem(ctx, id)
    })
    if err != nil {
        return fmt.Errorf("record redeem of ticket %s: %w", id, err)
    }
    e.used[id] = model.Used
    return nil
}

// TransferTicket moves ticket id from caller to to.  The used flag stays
// with the ticket.
func (e *Engine) TransferTicket(ctx context.Context, caller, to model.AccountID, id model.TicketID) error {
    if to == "" {
        return ErrInvalidAccount
    }
    e.mu.Lock()
    err := e.transferLocked(ctx, caller, to, id)
    var seq uint64
    if err == nil {
        seq = e.commitSeq()
    }
    e.mu.Unlock()
    if err != nil {
        return err
    }
    e.publish(ctx, seq, Event{Type: EventTicketTransferred, TicketID: ticketRef(id), From: caller, To: to})
    return nil
}

func (e *Engine) transferLocked(ctx context.Context, caller, to model.AccountID, id model.TicketID) error {
    if !e.known(id) {
        return ErrUnknownTicket
    }
    return e.store.WithTx(ctx, func(ctx context.Context) error {
        if err := e.registry.Transfer(ctx, caller, to, id); err != nil {
            return registryErr("transfer", id, err)
        }
        return nil
    })
}
