package ticket

import (
    "context"
    "time"

    "github.com/iliyamo/event-ticket-registry/internal/model"
)

// Event types published after a committed state change.
const (
    EventTicketIssued      = "ticket.issued"
    EventTicketRedeemed    = "ticket.redeemed"
    EventTicketTransferred = "ticket.transferred"
    EventPriceChanged      = "policy.price_changed"
    EventFundsWithdrawn    = "custody.withdrawn"
    EventAdminTransferred  = "policy.admin_transferred"
)

// Event describes a committed change.  Fields that do not apply to a type
// are left empty.  Seq numbers changes in commit order within one process;
// events are handed to the Publisher in Seq order.
type Event struct {
    Seq         uint64          `json:"seq,omitempty"`
    Type        string          `json:"type"`
    TicketID    *model.TicketID `json:"ticket_id,omitempty"`
    From        model.AccountID `json:"from,omitempty"`
    To          model.AccountID `json:"to,omitempty"`
    MetadataURI string          `json:"metadata_uri,omitempty"`
    Amount      string          `json:"amount,omitempty"`
    At          time.Time       `json:"at"`
}

// Publisher delivers events to downstream consumers.
type Publisher interface {
    Publish(ctx context.Context, ev Event) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

func ticketRef(id model.TicketID) *model.TicketID { return &id }
