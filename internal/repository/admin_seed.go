package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/iliyamo/event-ticket-registry/internal/model"
)

// AdminAccounts is the part of an account store EnsureAdmin needs.  Both
// AccountRepo and MemoryAccounts satisfy it.
type AdminAccounts interface {
	Create(ctx context.Context, email, password, role string, cost int) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.Account, error)
	GetByID(ctx context.Context, id uint64) (model.Account, error)
}

// AdminSeed names the first administrator: an existing account ID, an
// email to look up or create, or both (then they must agree).
type AdminSeed struct {
	Account    model.AccountID
	Email      string
	Password   string
	BcryptCost int
}

// EnsureAdmin returns the ID of a registered account to bootstrap the
// ticket policy with.  An account named by email is created when missing;
// an account named only by ID must already exist.
func EnsureAdmin(ctx context.Context, accounts AdminAccounts, seed AdminSeed) (model.AccountID, error) {
	if seed.Email == "" {
		n, err := strconv.ParseUint(string(seed.Account), 10, 64)
		if err != nil {
			return "", fmt.Errorf("admin account %q is not an account id", seed.Account)
		}
		if _, err := accounts.GetByID(ctx, n); err != nil {
			return "", fmt.Errorf("admin account %s: %w", seed.Account, err)
		}
		return seed.Account, nil
	}

	a, err := accounts.GetByEmail(ctx, seed.Email)
	switch {
	case errors.Is(err, ErrAccountNotFound):
		if seed.Password == "" {
			return "", fmt.Errorf("admin %s is not registered and has no password to create it with", seed.Email)
		}
		a.ID, err = accounts.Create(ctx, seed.Email, seed.Password, model.RoleAdmin, seed.BcryptCost)
		if err != nil {
			return "", fmt.Errorf("create admin account: %w", err)
		}
	case err != nil:
		return "", fmt.Errorf("look up admin account: %w", err)
	}

	id := model.AccountID(strconv.FormatUint(a.ID, 10))
	if seed.Account != "" && seed.Account != id {
		return "", fmt.Errorf("admin account %s does not match %s (account %s)", seed.Account, seed.Email, id)
	}
	return id, nil
}
