package ticket

import (
    "context"
    "fmt"
    "math/bits"

    log "github.com/sirupsen/logrus"

    "github.com/iliyamo/event-ticket-registry/internal/model"
)

// Issue mints the next ticket to caller against payment.  Payment must
// cover the current price; any excess is kept in custody.
func (e *Engine) Issue(ctx context.Context, caller model.AccountID, metadataURI string, payment model.Amount) (model.TicketID, error) {
    if caller == "" {
        return 0, ErrInvalidAccount
    }

    e.mu.Lock()
    id, err := e.issueLocked(ctx, caller, metadataURI, payment)
    var seq uint64
    if err == nil {
        seq = e.commitSeq()
    }
    e.mu.Unlock()
    if err != nil {
        return 0, err
    }

    e.logger.WithFields(log.Fields{
        "ticket_id": id,
        "owner":     caller,
        "payment":   payment.String(),
    }).Info("ticket issued")
    e.publish(ctx, seq, Event{
        Type:        EventTicketIssued,
        TicketID:    ticketRef(id),
        To:          caller,
        MetadataURI: metadataURI,
        Amount:      payment.String(),
    })
    return id, nil
}

func (e *Engine) issueLocked(ctx context.Context, caller model.AccountID, uri string, payment model.Amount) (model.TicketID, error) {
    if e.issued >= e.maxTickets {
        return 0, ErrSupplyExhausted
    }
    if payment < e.price {
        return 0, ErrInsufficientPayment
    }
    custody, carry := bits.Add64(uint64(e.custody), uint64(payment), 0)
    if carry != 0 {
        return 0, ErrCustodyOverflow
    }

    id := model.TicketID(e.issued)
    rec := IssueRecord{
        ID:      id,
        Owner:   caller,
        Payment: payment,
        Issued:  e.issued + 1,
        Custody: model.Amount(custody),
    }
    err := e.store.WithTx(ctx, func(ctx context.Context) error {
        if err := e.store.RecordIssue(ctx, rec); err != nil {
            return fmt.Errorf("record issue of ticket %s: %w", id, err)
        }
        // Mint goes last: a failed mint rolls the record back, a failed
        // record never reaches the registry.
        if err := e.registry.Mint(ctx, caller, id, uri); err != nil {
            return registryErr("mint", id, err)
        }
        return nil
    })
    if err != nil {
        return 0, err
    }

    e.used = append(e.used, model.Unused)
    e.issued = rec.Issued
    e.custody = rec.Custody
    return id, nil
}
