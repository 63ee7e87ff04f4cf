package model

import (
    "strconv"
    "time"
)

// TicketID identifies a ticket.  IDs are dense: the n-th ticket ever issued
// carries ID n-1 and an ID is never handed out twice.
type TicketID uint64

// String renders the ID in base 10, the form used in URLs and log lines.
func (id TicketID) String() string { return strconv.FormatUint(uint64(id), 10) }

// ParseTicketID parses a base-10 ticket ID as it appears in a request path.
func ParseTicketID(s string) (TicketID, error) {
    n, err := strconv.ParseUint(s, 10, 64)
    if err != nil {
        return 0, err
    }
    return TicketID(n), nil
}

// AccountID identifies a ticket holder or the administrator.  It is the
// subject claim of the caller's access token.
type AccountID string

// Amount is a quantity of money in the smallest currency denomination.
type Amount uint64

// String renders the amount in base units.  JSON payloads carry amounts as
// strings because uint64 exceeds the range JSON numbers represent safely.
func (a Amount) String() string { return strconv.FormatUint(uint64(a), 10) }

// ParseAmount parses a base-10 amount in base units.
func ParseAmount(s string) (Amount, error) {
    n, err := strconv.ParseUint(s, 10, 64)
    if err != nil {
        return 0, err
    }
    return Amount(n), nil
}

// Redemption is the one-way state of a ticket.
type Redemption uint8

const (
    Unused Redemption = iota
    Used
)

func (r Redemption) String() string {
    if r == Used {
        return "USED"
    }
    return "UNUSED"
}

// Ticket is the read model of a single ticket as returned by the query
// surface.  Ownership and metadata live in the registry; Used lives in the
// engine.
//
// Fields:
//  ID          – dense ticket identifier.
//  Owner       – current holder according to the registry.
//  MetadataURI – opaque URI bound at issuance, never changed.
//  Used        – whether the ticket has been redeemed.
type Ticket struct {
    ID          TicketID  `json:"id"`
    Owner       AccountID `json:"owner"`
    MetadataURI string    `json:"metadata_uri"`
    Used        bool      `json:"used"`
}

// Policy is a consistent snapshot of the issuance policy and custody.
//
// Fields:
//  Name, Symbol – collection identity fixed at bootstrap.
//  Price        – current ticket price in base units.
//  MaxTickets   – immutable supply cap.
//  Issued       – number of tickets issued so far.
//  Custody      – funds held pending withdrawal.
//  Admin        – the single authorized administrator.
type Policy struct {
    Name       string
    Symbol     string
    Price      Amount
    MaxTickets uint64
    Issued     uint64
    Custody    Amount
    Admin      AccountID
}

// Withdrawal records a payout of the custody balance to the administrator.
type Withdrawal struct {
    ID        uint64    // withdrawals.id
    Admin     AccountID // withdrawals.admin_account
    Amount    Amount    // withdrawals.amount
    CreatedAt time.Time // withdrawals.created_at
}
