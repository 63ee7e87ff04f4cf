package model

import "time"

// Account roles.  Every registered account is a HOLDER; the current ticket
// administrator is reported as ADMIN.  Administrative rights are checked
// by the ticket engine against its own administrator, not against the role.
const (
    RoleHolder = "HOLDER"
    RoleAdmin  = "ADMIN"
)

// Account represents a row in the `accounts` table.
//
// Fields:
//  ID           – primary key; its decimal form is the AccountID.
//  Email        – unique email address.
//  PasswordHash – bcrypt hashed password.
//  Role         – HOLDER or ADMIN.
//  Balance      – funds paid out to this account, in base units.
//  CreatedAt    – timestamp of creation.
type Account struct {
    ID           uint64    // accounts.id
    Email        string    // accounts.email
    PasswordHash string    // accounts.password_hash
    Role         string    // accounts.role
    Balance      Amount    // accounts.balance
    CreatedAt    time.Time // accounts.created_at
}
