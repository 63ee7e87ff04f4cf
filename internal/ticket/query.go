package ticket

import (
    "context"

    "github.com/iliyamo/event-ticket-registry/internal/model"
)

func (e *Engine) Price() model.Amount {
    e.mu.RLock()
    defer e.mu.RUnlock()
    return e.price
}

func (e *Engine) MaxTickets() uint64 {
    e.mu.RLock()
    defer e.mu.RUnlock()
    return e.maxTickets
}

func (e *Engine) IssuedCount() uint64 {
    e.mu.RLock()
    defer e.mu.RUnlock()
    return e.issued
}

func (e *Engine) Admin() model.AccountID {
    e.mu.RLock()
    defer e.mu.RUnlock()
    return e.admin
}

func (e *Engine) Custody() model.Amount {
    e.mu.RLock()
    defer e.mu.RUnlock()
    return e.custody
}

// Snapshot returns all policy fields read under one lock.
func (e *Engine) Snapshot() model.Policy {
    e.mu.RLock()
    defer e.mu.RUnlock()
    return model.Policy{
        Name:       e.name,
        Symbol:     e.symbol,
        Price:      e.price,
        MaxTickets: e.maxTickets,
        Issued:     e.issued,
        Custody:    e.custody,
        Admin:      e.admin,
    }
}

// IsUsed reports whether ticket id was redeemed.
func (e *Engine) IsUsed(id model.TicketID) (bool, error) {
    e.mu.RLock()
    defer e.mu.RUnlock()
    if !e.known(id) {
        return false, ErrUnknownTicket
    }
    return e.used[id] == model.Used, nil
}

// MetadataOf returns the URI bound to ticket id.
func (e *Engine) MetadataOf(ctx context.Context, id model.TicketID) (string, error) {
    if !e.isKnown(id) {
        return "", ErrUnknownTicket
    }
    uri, err := e.registry.MetadataOf(ctx, id)
    if err != nil {
        return "", registryErr("metadata of", id, err)
    }
    return uri, nil
}

// OwnerOf returns the current holder of ticket id.
func (e *Engine) OwnerOf(ctx context.Context, id model.TicketID) (model.AccountID, error) {
    if !e.isKnown(id) {
        return "", ErrUnknownTicket
    }
    owner, err := e.registry.OwnerOf(ctx, id)
    if err != nil {
        return "", registryErr("owner of", id, err)
    }
    return owner, nil
}

// Ticket assembles the full read model of ticket id.
func (e *Engine) Ticket(ctx context.Context, id model.TicketID) (model.Ticket, error) {
    used, err := e.IsUsed(id)
    if err != nil {
        return model.Ticket{}, err
    }
    owner, err := e.OwnerOf(ctx, id)
    if err != nil {
        return model.Ticket{}, err
    }
    uri, err := e.MetadataOf(ctx, id)
    if err != nil {
        return model.Ticket{}, err
    }
    return model.Ticket{ID: id, Owner: owner, MetadataURI: uri, Used: used}, nil
}

func (e *Engine) isKnown(id model.TicketID) bool {
    e.mu.RLock()
    defer e.mu.RUnlock()
    return e.known(id)
}
