package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-ticket-registry/internal/model"
	"github.com/iliyamo/event-ticket-registry/internal/registry"
	"github.com/iliyamo/event-ticket-registry/internal/ticket"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return db, mock
}

func q(s string) string { return regexp.QuoteMeta(s) }

var duplicateEntry = &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}

func TestRegistryRepoMint(t *testing.T) {
	ctx := context.Background()
	db, mock := newMock(t)
	repo := NewRegistryRepo(db)

	mock.ExpectExec(q("INSERT INTO tickets")).
		WithArgs(0, "alice", "ipfs://a").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Mint(ctx, "alice", 0, "ipfs://a"))

	mock.ExpectExec(q("INSERT INTO tickets")).
		WithArgs(0, "bob", "ipfs://b").
		WillReturnError(duplicateEntry)
	assert.ErrorIs(t, repo.Mint(ctx, "bob", 0, "ipfs://b"), registry.ErrTokenExists)

	assert.ErrorIs(t, repo.Mint(ctx, "", 1, "ipfs://c"), registry.ErrInvalidReceiver)
}

func TestRegistryRepoQueries(t *testing.T) {
	ctx := context.Background()
	db, mock := newMock(t)
	repo := NewRegistryRepo(db)

	mock.ExpectQuery(q("SELECT owner_account FROM tickets")).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"owner_account"}).AddRow("7"))
	owner, err := repo.OwnerOf(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, model.AccountID("7"), owner)

	mock.ExpectQuery(q("SELECT owner_account FROM tickets")).
		WithArgs(4).
		WillReturnRows(sqlmock.NewRows([]string{"owner_account"}))
	_, err = repo.OwnerOf(ctx, 4)
	assert.ErrorIs(t, err, registry.ErrNonexistentToken)

	mock.ExpectQuery(q("SELECT metadata_uri FROM tickets")).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"metadata_uri"}).AddRow("ipfs://x"))
	uri, err := repo.MetadataOf(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "ipfs://x", uri)

	mock.ExpectQuery(q("SELECT id FROM tickets WHERE owner_account=?")).
		WithArgs("7").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1).AddRow(3))
	ids, err := repo.TokensOf(ctx, "7")
	require.NoError(t, err)
	assert.Equal(t, []model.TicketID{1, 3}, ids)
}

func TestRegistryRepoTransfer(t *testing.T) {
	ctx := context.Background()

	t.Run("owner moves ticket", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewRegistryRepo(db)
		mock.ExpectBegin()
		mock.ExpectQuery(q("SELECT owner_account FROM tickets WHERE id=? FOR UPDATE")).
			WithArgs(3).
			WillReturnRows(sqlmock.NewRows([]string{"owner_account"}).AddRow("alice"))
		mock.ExpectExec(q("UPDATE tickets SET owner_account=?")).
			WithArgs("bob", 3).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, repo.Transfer(ctx, "alice", "bob", 3))
	})

	t.Run("wrong owner rolls back", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewRegistryRepo(db)
		mock.ExpectBegin()
		mock.ExpectQuery(q("FOR UPDATE")).
			WithArgs(3).
			WillReturnRows(sqlmock.NewRows([]string{"owner_account"}).AddRow("carol"))
		mock.ExpectRollback()

		assert.ErrorIs(t, repo.Transfer(ctx, "alice", "bob", 3), registry.ErrNotOwner)
	})

	t.Run("missing ticket", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewRegistryRepo(db)
		mock.ExpectBegin()
		mock.ExpectQuery(q("FOR UPDATE")).
			WithArgs(9).
			WillReturnRows(sqlmock.NewRows([]string{"owner_account"}))
		mock.ExpectRollback()

		assert.ErrorIs(t, repo.Transfer(ctx, "alice", "bob", 9), registry.ErrNonexistentToken)
	})
}

func TestLedgerRepoLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("empty database", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(q("FROM ticket_policy")).
			WithArgs(policyRow).
			WillReturnRows(sqlmock.NewRows([]string{"name", "symbol", "price", "max_tickets", "issued_count", "custody", "admin_account"}))

		_, found, err := NewLedgerRepo(db).Load(ctx)
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("policy and used flags", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(q("FROM ticket_policy")).
			WithArgs(policyRow).
			WillReturnRows(sqlmock.NewRows([]string{"name", "symbol", "price", "max_tickets", "issued_count", "custody", "admin_account"}).
				AddRow("Event Ticket", "TCKT", int64(10), int64(1000), int64(2), int64(20), "1"))
		mock.ExpectQuery(q("SELECT id, used FROM tickets")).
			WithArgs(2).
			WillReturnRows(sqlmock.NewRows([]string{"id", "used"}).AddRow(int64(0), true).AddRow(int64(1), false))

		st, found, err := NewLedgerRepo(db).Load(ctx)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, ticket.State{
			Name:       "Event Ticket",
			Symbol:     "TCKT",
			Price:      10,
			MaxTickets: 1000,
			Issued:     2,
			Custody:    20,
			Admin:      "1",
			Used:       []bool{true, false},
		}, st)
	})
}

func TestLedgerRepoGuardedUpdates(t *testing.T) {
	ctx := context.Background()
	db, mock := newMock(t)
	repo := NewLedgerRepo(db)

	mock.ExpectExec(q("UPDATE ticket_policy SET issued_count=?, custody=?")).
		WithArgs(1, 10, policyRow, 0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.RecordIssue(ctx, ticket.IssueRecord{ID: 0, Owner: "1", Payment: 10, Issued: 1, Custody: 10}))

	mock.ExpectExec(q("UPDATE ticket_policy SET issued_count=?, custody=?")).
		WithArgs(2, 20, policyRow, 1).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.RecordIssue(ctx, ticket.IssueRecord{ID: 1, Owner: "1", Payment: 10, Issued: 2, Custody: 20}), ErrConflict)

	mock.ExpectExec(q("UPDATE tickets SET used=1")).
		WithArgs(0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.RecordRedeem(ctx, 0))

	mock.ExpectExec(q("UPDATE tickets SET used=1")).
		WithArgs(0).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.RecordRedeem(ctx, 0), ErrConflict)

	mock.ExpectExec(q("UPDATE ticket_policy SET price=?")).
		WithArgs(25, policyRow).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.SavePrice(ctx, 25))

	mock.ExpectExec(q("UPDATE ticket_policy SET admin_account=?")).
		WithArgs("2", policyRow).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.SaveAdmin(ctx, "2"))
}

func TestLedgerRepoWithdrawalInTx(t *testing.T) {
	ctx := context.Background()
	db, mock := newMock(t)
	repo := NewLedgerRepo(db)
	now := time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(q("INSERT INTO withdrawals")).
		WithArgs("1", 20, now).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(q("UPDATE ticket_policy SET custody=0")).
		WithArgs(policyRow, 20).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.WithTx(ctx, func(ctx context.Context) error {
		return repo.RecordWithdrawal(ctx, model.Withdrawal{Admin: "1", Amount: 20, CreatedAt: now})
	})
	require.NoError(t, err)
}

func TestAccountRepoTransfer(t *testing.T) {
	ctx := context.Background()
	db, mock := newMock(t)
	repo := NewAccountRepo(db)

	mock.ExpectExec(q("UPDATE accounts SET balance = balance + ?")).
		WithArgs(20, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Transfer(ctx, "1", 20))

	mock.ExpectExec(q("UPDATE accounts SET balance = balance + ?")).
		WithArgs(20, 42).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.Transfer(ctx, "42", 20), ErrAccountNotFound)

	assert.ErrorIs(t, repo.Transfer(ctx, "not-a-number", 20), ErrAccountNotFound)

	mock.ExpectQuery(q("SELECT balance FROM accounts")).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(int64(20)))
	bal, err := repo.BalanceOf(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, model.Amount(20), bal)
}

func TestAccountRepoCreate(t *testing.T) {
	ctx := context.Background()
	db, mock := newMock(t)
	repo := NewAccountRepo(db)

	mock.ExpectExec(q("INSERT INTO accounts")).
		WithArgs("alice@example.com", sqlmock.AnyArg(), model.RoleHolder).
		WillReturnResult(sqlmock.NewResult(5, 1))
	id, err := repo.Create(ctx, "  Alice@Example.com ", "secret", model.RoleHolder, 4)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), id)

	mock.ExpectExec(q("INSERT INTO accounts")).
		WithArgs("alice@example.com", sqlmock.AnyArg(), model.RoleHolder).
		WillReturnError(duplicateEntry)
	_, err = repo.Create(ctx, "alice@example.com", "secret", model.RoleHolder, 4)
	assert.ErrorIs(t, err, ErrEmailExists)
}

// The engine issues and withdraws through one transaction spanning the
// registry, the ledger and the account balances.
func TestEngineOverMySQL(t *testing.T) {
	ctx := context.Background()
	db, mock := newMock(t)
	policyCols := []string{"name", "symbol", "price", "max_tickets", "issued_count", "custody", "admin_account"}

	mock.ExpectQuery(q("FROM ticket_policy")).WithArgs(policyRow).WillReturnRows(sqlmock.NewRows(policyCols))
	mock.ExpectExec(q("INSERT INTO ticket_policy")).
		WithArgs(policyRow, "Event Ticket", "TCKT", 10, 2, 0, 0, "1").
		WillReturnResult(sqlmock.NewResult(1, 1))

	e, err := ticket.New(ctx, ticket.Options{
		Name:       "Event Ticket",
		Symbol:     "TCKT",
		Price:      10,
		MaxTickets: 2,
		Admin:      "1",
		Registry:   NewRegistryRepo(db),
		Payout:     NewAccountRepo(db),
		Store:      NewLedgerRepo(db),
	})
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec(q("UPDATE ticket_policy SET issued_count=?")).WithArgs(1, 10, policyRow, 0).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("INSERT INTO tickets")).WithArgs(0, "2", "ipfs://a").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	id, err := e.Issue(ctx, "2", "ipfs://a", 10)
	require.NoError(t, err)
	assert.Equal(t, model.TicketID(0), id)

	// A failed payout rolls back and keeps custody.
	mock.ExpectBegin()
	mock.ExpectExec(q("INSERT INTO withdrawals")).WithArgs("1", 10, sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(q("UPDATE ticket_policy SET custody=0")).WithArgs(policyRow, 10).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("UPDATE accounts SET balance")).WithArgs(10, 1).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err = e.Withdraw(ctx, "1")
	assert.ErrorIs(t, err, ticket.ErrTransferFailed)
	assert.Equal(t, model.Amount(10), e.Custody())

	mock.ExpectBegin()
	mock.ExpectExec(q("INSERT INTO withdrawals")).WithArgs("1", 10, sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectExec(q("UPDATE ticket_policy SET custody=0")).WithArgs(policyRow, 10).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("UPDATE accounts SET balance")).WithArgs(10, 1).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	paid, err := e.Withdraw(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, model.Amount(10), paid)
	assert.Zero(t, e.Custody())
}

func TestTokenRepoValidateRefresh(t *testing.T) {
	ctx := context.Background()
	db, mock := newMock(t)
	repo := NewTokenRepo(db)
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	cols := []string{"account_id", "expires_at", "revoked_at"}

	mock.ExpectQuery(q("FROM refresh_tokens WHERE token_hash=?")).
		WithArgs("live").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(int64(7), now.Add(time.Hour), nil))
	id, err := repo.ValidateRefresh(ctx, "live", now)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), id)

	mock.ExpectQuery(q("FROM refresh_tokens WHERE token_hash=?")).
		WithArgs("revoked").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(int64(7), now.Add(time.Hour), now))
	_, err = repo.ValidateRefresh(ctx, "revoked", now)
	assert.ErrorIs(t, err, ErrInvalidRefresh)

	mock.ExpectQuery(q("FROM refresh_tokens WHERE token_hash=?")).
		WithArgs("gone").
		WillReturnRows(sqlmock.NewRows(cols))
	_, err = repo.ValidateRefresh(ctx, "gone", now)
	assert.ErrorIs(t, err, ErrInvalidRefresh)
}
