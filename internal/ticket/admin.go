package ticket

import (
    "context"
    "fmt"

    log "github.com/sirupsen/logrus"

    "github.com/iliyamo/event-ticket-registry/internal/model"
)

// SetPrice replaces the ticket price.  Tickets already issued are not
// affected; the price is not stored per ticket.
func (e *Engine) SetPrice(ctx context.Context, caller model.AccountID, price model.Amount) error {
    e.mu.Lock()
    old, err := e.setPriceLocked(ctx, caller, price)
    var seq uint64
    if err == nil {
        seq = e.commitSeq()
    }
    e.mu.Unlock()
    if err != nil {
        return err
    }
    e.logger.WithFields(log.Fields{"old": old.String(), "new": price.String()}).Info("ticket price changed")
    e.publish(ctx, seq, Event{Type: EventPriceChanged, From: caller, Amount: price.String()})
    return nil
}

func (e *Engine) setPriceLocked(ctx context.Context, caller model.AccountID, price model.Amount) (model.Amount, error) {
    if caller != e.admin {
        return 0, ErrNotAuthorized
    }
    err := e.store.WithTx(ctx, func(ctx context.Context) error {
        return e.store.SavePrice(ctx, price)
    })
    if err != nil {
        return 0, fmt.Errorf("save price: %w", err)
    }
    old := e.price
    e.price = price
    return old, nil
}

// Withdraw pays the whole custody balance out to the administrator and
// returns the amount paid.  An empty custody fails with
// ErrNothingToWithdraw.  If the payout fails the custody is kept intact.
func (e *Engine) Withdraw(ctx context.Context, caller model.AccountID) (model.Amount, error) {
    e.mu.Lock()
    amount, err := e.withdrawLocked(ctx, caller)
    var seq uint64
    if err == nil {
        seq = e.commitSeq()
    }
    e.mu.Unlock()
    if err != nil {
        return 0, err
    }
    e.logger.WithFields(log.Fields{"admin": caller, "amount": amount.String()}).Info("custody withdrawn")
    e.publish(ctx, seq, Event{Type: EventFundsWithdrawn, To: caller, Amount: amount.String()})
    return amount, nil
}

func (e *Engine) withdrawLocked(ctx context.Context, caller model.AccountID) (model.Amount, error) {
    if caller != e.admin {
        return 0, ErrNotAuthorized
    }
    amount := e.custody
    if amount == 0 {
        return 0, ErrNothingToWithdraw
    }
    w := model.Withdrawal{Admin: e.admin, Amount: amount, CreatedAt: e.now()}
    err := e.store.WithTx(ctx, func(ctx context.Context) error {
        if err := e.store.RecordWithdrawal(ctx, w); err != nil {
            return fmt.Errorf("record withdrawal: %w", err)
        }
        if err := e.payout.Transfer(ctx, e.admin, amount); err != nil {
            return fmt.Errorf("%w: %v", ErrTransferFailed, err)
        }
        return nil
    })
    if err != nil {
        return 0, err
    }
    e.custody = 0
    return amount, nil
}

// TransferAdmin hands administrative rights to newAdmin.  Only one account
// is ever authorized.
func (e *Engine) TransferAdmin(ctx context.Context, caller, newAdmin model.AccountID) error {
    if newAdmin == "" {
        return ErrInvalidAccount
    }
    e.mu.Lock()
    err := e.transferAdminLocked(ctx, caller, newAdmin)
    var seq uint64
    if err == nil {
        seq = e.commitSeq()
    }
    e.mu.Unlock()
    if err != nil {
        return err
    }
    e.logger.WithFields(log.Fields{"from": caller, "to": newAdmin}).Info("administrator transferred")
    e.publish(ctx, seq, Event{Type: EventAdminTransferred, From: caller, To: newAdmin})
    return nil
}

func (e *Engine) transferAdminLocked(ctx context.Context, caller, newAdmin model.AccountID) error {
    if caller != e.admin {
        return ErrNotAuthorized
    }
    err := e.store.WithTx(ctx, func(ctx context.Context) error {
        return e.store.SaveAdmin(ctx, newAdmin)
    })
    if err != nil {
        return fmt.Errorf("save admin: %w", err)
    }
    e.admin = newAdmin
    return nil
}
