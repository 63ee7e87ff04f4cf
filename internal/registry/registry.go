// Package registry defines the non-fungible ledger the ticket engine issues
// into.  The ledger owns per-ticket ownership and metadata; the engine only
// asks it to mint, transfer and answer ownership queries.
package registry

import (
    "context"
    "errors"

    "github.com/iliyamo/event-ticket-registry/internal/model"
)

var (
    // ErrNonexistentToken is returned for an ID that was never minted.
    ErrNonexistentToken = errors.New("registry: nonexistent token")
    // ErrTokenExists is returned when minting an ID that is already owned.
    ErrTokenExists = errors.New("registry: token already minted")
    // ErrNotOwner is returned when a transfer names a from account that
    // does not own the token.
    ErrNotOwner = errors.New("registry: transfer from incorrect owner")
    // ErrInvalidReceiver is returned when minting or transferring to the
    // empty account.
    ErrInvalidReceiver = errors.New("registry: invalid receiver")
)

// Registry is the ownership ledger consumed by the ticket engine.
type Registry interface {
    // Mint creates token id owned by to and binds uri to it in one step.
    Mint(ctx context.Context, to model.AccountID, id model.TicketID, uri string) error
    OwnerOf(ctx context.Context, id model.TicketID) (model.AccountID, error)
    MetadataOf(ctx context.Context, id model.TicketID) (string, error)
    Transfer(ctx context.Context, from, to model.AccountID, id model.TicketID) error
}

// Lister is implemented by registries that can enumerate holdings.
type Lister interface {
    TokensOf(ctx context.Context, owner model.AccountID) ([]model.TicketID, error)
}
