// Package repository implements the MySQL side of the service: the ticket
// registry, the engine ledger and account balances.  All three share the
// transaction carried in the context, so a single engine operation commits
// or rolls back as one unit.  MemoryAccounts covers accounts and refresh
// tokens when the service runs without a database.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrConflict is returned when a guarded update finds the row in a state
// other than the one the engine expected, for example when a second
// service instance wrote to the same ledger.
var ErrConflict = errors.New("conflict")

// ErrAccountNotFound is returned when a payout or lookup names an account
// that does not exist.
var ErrAccountNotFound = errors.New("account not found")

// isDuplicateKey reports a MySQL duplicate entry error (1062).
func isDuplicateKey(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == 1062
}
