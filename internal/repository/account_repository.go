package repository

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/iliyamo/event-ticket-registry/internal/model"
	"github.com/iliyamo/event-ticket-registry/internal/utils"
)

var ErrEmailExists = errors.New("email already exists")

// AccountRepo manages the `accounts` table: credentials for login and the
// balance that custody payouts are credited to.  It implements
// ticket.Payout.
type AccountRepo struct{ db *sql.DB }

func NewAccountRepo(db *sql.DB) *AccountRepo { return &AccountRepo{db: db} }

// Create inserts an account and returns its ID.
func (r *AccountRepo) Create(ctx context.Context, email, password, role string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := conn(ctx, r.db).ExecContext(ctx,
		"INSERT INTO accounts (email, password_hash, role) VALUES (?,?,?)",
		email, hash, role)
	if err != nil {
		if isDuplicateKey(err) {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

const accountColumns = "id,email,password_hash,role,balance,created_at"

// GetByEmail fetches an account by normalized email.
func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (model.Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.scanOne(ctx, "SELECT "+accountColumns+" FROM accounts WHERE email=? LIMIT 1", email)
}

// GetByID fetches an account by id.
func (r *AccountRepo) GetByID(ctx context.Context, id uint64) (model.Account, error) {
	return r.scanOne(ctx, "SELECT "+accountColumns+" FROM accounts WHERE id=? LIMIT 1", id)
}

func (r *AccountRepo) scanOne(ctx context.Context, query string, arg any) (model.Account, error) {
	var a model.Account
	err := conn(ctx, r.db).QueryRowContext(ctx, query, arg).
		Scan(&a.ID, &a.Email, &a.PasswordHash, &a.Role, &a.Balance, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Account{}, ErrAccountNotFound
	}
	return a, err
}

// Transfer credits amount to the account named by to.
func (r *AccountRepo) Transfer(ctx context.Context, to model.AccountID, amount model.Amount) error {
	id, err := strconv.ParseUint(string(to), 10, 64)
	if err != nil {
		return ErrAccountNotFound
	}
	res, err := conn(ctx, r.db).ExecContext(ctx,
		"UPDATE accounts SET balance = balance + ? WHERE id=?", uint64(amount), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// BalanceOf returns the balance of the account named by account.
func (r *AccountRepo) BalanceOf(ctx context.Context, account model.AccountID) (model.Amount, error) {
	id, err := strconv.ParseUint(string(account), 10, 64)
	if err != nil {
		return 0, ErrAccountNotFound
	}
	var bal model.Amount
	err = conn(ctx, r.db).QueryRowContext(ctx,
		"SELECT balance FROM accounts WHERE id=? LIMIT 1", id).Scan(&bal)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrAccountNotFound
	}
	return bal, err
}
