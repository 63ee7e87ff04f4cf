package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/event-ticket-registry/internal/model"
	"github.com/iliyamo/event-ticket-registry/internal/ticket"
)

// policyRow is the primary key of the single ticket_policy row.
const policyRow = 1

// LedgerRepo persists the ticket engine state: the single ticket_policy
// row, the used column of tickets and the withdrawals history.  It
// implements ticket.Store.
type LedgerRepo struct{ db *sql.DB }

func NewLedgerRepo(db *sql.DB) *LedgerRepo { return &LedgerRepo{db: db} }

func (r *LedgerRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.db, fn)
}

// Load reads the policy row and the used flag of every issued ticket.
func (r *LedgerRepo) Load(ctx context.Context) (ticket.State, bool, error) {
	var (
		st    ticket.State
		admin string
	)
	err := conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT name, symbol, price, max_tickets, issued_count, custody, admin_account
		 FROM ticket_policy WHERE id=? LIMIT 1`, policyRow).
		Scan(&st.Name, &st.Symbol, &st.Price, &st.MaxTickets, &st.Issued, &st.Custody, &admin)
	if errors.Is(err, sql.ErrNoRows) {
		return ticket.State{}, false, nil
	}
	if err != nil {
		return ticket.State{}, false, fmt.Errorf("load policy: %w", err)
	}
	st.Admin = model.AccountID(admin)

	rows, err := conn(ctx, r.db).QueryContext(ctx,
		"SELECT id, used FROM tickets WHERE id < ? ORDER BY id", st.Issued)
	if err != nil {
		return ticket.State{}, false, fmt.Errorf("load tickets: %w", err)
	}
	defer rows.Close()
	st.Used = make([]bool, st.Issued)
	for rows.Next() {
		var (
			id   uint64
			used bool
		)
		if err := rows.Scan(&id, &used); err != nil {
			return ticket.State{}, false, fmt.Errorf("scan ticket: %w", err)
		}
		st.Used[id] = used
	}
	if err := rows.Err(); err != nil {
		return ticket.State{}, false, fmt.Errorf("load tickets: %w", err)
	}
	return st, true, nil
}

// Init writes the policy row on first start.
func (r *LedgerRepo) Init(ctx context.Context, st ticket.State) error {
	_, err := conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO ticket_policy (id, name, symbol, price, max_tickets, issued_count, custody, admin_account)
		 VALUES (?,?,?,?,?,?,?,?)`,
		policyRow, st.Name, st.Symbol, uint64(st.Price), st.MaxTickets, st.Issued, uint64(st.Custody), string(st.Admin))
	if isDuplicateKey(err) {
		return ErrConflict
	}
	return err
}

// RecordIssue advances the counters.  The update only applies while the
// stored count is the one the engine saw, which keeps a second writer from
// skipping or reusing an ID.
func (r *LedgerRepo) RecordIssue(ctx context.Context, rec ticket.IssueRecord) error {
	res, err := conn(ctx, r.db).ExecContext(ctx,
		"UPDATE ticket_policy SET issued_count=?, custody=? WHERE id=? AND issued_count=?",
		rec.Issued, uint64(rec.Custody), policyRow, rec.Issued-1)
	if err != nil {
		return err
	}
	return expectOne(res)
}

// RecordRedeem flips the used flag.  A row that is already used is a
// conflict: the engine never asks twice.
func (r *LedgerRepo) RecordRedeem(ctx context.Context, id model.TicketID) error {
	res, err := conn(ctx, r.db).ExecContext(ctx,
		"UPDATE tickets SET used=1, used_at=UTC_TIMESTAMP() WHERE id=? AND used=0", uint64(id))
	if err != nil {
		return err
	}
	return expectOne(res)
}

func (r *LedgerRepo) SavePrice(ctx context.Context, price model.Amount) error {
	_, err := conn(ctx, r.db).ExecContext(ctx,
		"UPDATE ticket_policy SET price=? WHERE id=?", uint64(price), policyRow)
	return err
}

func (r *LedgerRepo) SaveAdmin(ctx context.Context, admin model.AccountID) error {
	_, err := conn(ctx, r.db).ExecContext(ctx,
		"UPDATE ticket_policy SET admin_account=? WHERE id=?", string(admin), policyRow)
	return err
}

// RecordWithdrawal appends to the withdrawals history and empties custody.
func (r *LedgerRepo) RecordWithdrawal(ctx context.Context, w model.Withdrawal) error {
	q := conn(ctx, r.db)
	if _, err := q.ExecContext(ctx,
		"INSERT INTO withdrawals (admin_account, amount, created_at) VALUES (?,?,?)",
		string(w.Admin), uint64(w.Amount), w.CreatedAt); err != nil {
		return err
	}
	res, err := q.ExecContext(ctx,
		"UPDATE ticket_policy SET custody=0 WHERE id=? AND custody=?", policyRow, uint64(w.Amount))
	if err != nil {
		return err
	}
	return expectOne(res)
}

// ListWithdrawals returns the payout history, newest first.
func (r *LedgerRepo) ListWithdrawals(ctx context.Context, limit int) ([]model.Withdrawal, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx,
		"SELECT id, admin_account, amount, created_at FROM withdrawals ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Withdrawal{}
	for rows.Next() {
		var (
			w     model.Withdrawal
			admin string
		)
		if err := rows.Scan(&w.ID, &admin, &w.Amount, &w.CreatedAt); err != nil {
			return nil, err
		}
		w.Admin = model.AccountID(admin)
		out = append(out, w)
	}
	return out, rows.Err()
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return ErrConflict
	}
	return nil
}
