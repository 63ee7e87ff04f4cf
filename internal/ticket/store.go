package ticket

import (
    "context"
    "sync"

    "github.com/iliyamo/event-ticket-registry/internal/model"
)

// State is everything the engine needs to resume after a restart.  Used is
// indexed by ticket ID and always has Issued entries.
type State struct {
    Name       string
    Symbol     string
    Price      model.Amount
    MaxTickets uint64
    Issued     uint64
    Custody    model.Amount
    Admin      model.AccountID
    Used       []bool
}

// IssueRecord carries the policy counters as they stand after an issuance.
type IssueRecord struct {
    ID      model.TicketID
    Owner   model.AccountID
    Payment model.Amount
    Issued  uint64
    Custody model.Amount
}

// Store persists engine state.  WithTx runs fn inside one storage
// transaction and must discard every write fn made when fn returns an
// error.  Registry and payout implementations sharing the same database
// join that transaction through the context; others run as the last step
// of fn, so a failed store write never reaches them.
type Store interface {
    WithTx(ctx context.Context, fn func(ctx context.Context) error) error
    // Load returns the persisted state and false when nothing was
    // bootstrapped yet.
    Load(ctx context.Context) (State, bool, error)
    Init(ctx context.Context, st State) error
    RecordIssue(ctx context.Context, rec IssueRecord) error
    RecordRedeem(ctx context.Context, id model.TicketID) error
    SavePrice(ctx context.Context, price model.Amount) error
    SaveAdmin(ctx context.Context, admin model.AccountID) error
    RecordWithdrawal(ctx context.Context, w model.Withdrawal) error
}

// MemoryStore keeps a copy of the engine state in process.  WithTx
// snapshots the state and restores it when fn fails.
type MemoryStore struct {
    mu          sync.Mutex
    st          State
    ok          bool
    withdrawals []model.Withdrawal
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (s *MemoryStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
    s.mu.Lock()
    st, ok := s.st, s.ok
    st.Used = append([]bool(nil), s.st.Used...)
    n := len(s.withdrawals)
    s.mu.Unlock()

    if err := fn(ctx); err != nil {
        s.mu.Lock()
        s.st, s.ok = st, ok
        s.withdrawals = s.withdrawals[:n]
        s.mu.Unlock()
        return err
    }
    return nil
}

func (s *MemoryStore) Load(context.Context) (State, bool, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    st := s.st
    st.Used = append([]bool(nil), s.st.Used...)
    return st, s.ok, nil
}

func (s *MemoryStore) Init(_ context.Context, st State) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    s.st = st
    s.st.Used = append([]bool(nil), st.Used...)
    s.ok = true
    return nil
}

func (s *MemoryStore) RecordIssue(_ context.Context, rec IssueRecord) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    s.st.Used = append(s.st.Used, false)
    s.st.Issued = rec.Issued
    s.st.Custody = rec.Custody
    return nil
}

func (s *MemoryStore) RecordRedeem(_ context.Context, id model.TicketID) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    if uint64(id) < uint64(len(s.st.Used)) {
        s.st.Used[id] = true
    }
    return nil
}

func (s *MemoryStore) SavePrice(_ context.Context, price model.Amount) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    s.st.Price = price
    return nil
}

func (s *MemoryStore) SaveAdmin(_ context.Context, admin model.AccountID) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    s.st.Admin = admin
    return nil
}

func (s *MemoryStore) RecordWithdrawal(_ context.Context, w model.Withdrawal) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    w.ID = uint64(len(s.withdrawals) + 1)
    s.withdrawals = append(s.withdrawals, w)
    s.st.Custody = 0
    return nil
}

// Withdrawals returns the recorded payouts in order.
func (s *MemoryStore) Withdrawals() []model.Withdrawal {
    s.mu.Lock()
    defer s.mu.Unlock()
    return append([]model.Withdrawal(nil), s.withdrawals...)
}

// ListWithdrawals returns up to limit payouts, newest first.
func (s *MemoryStore) ListWithdrawals(_ context.Context, limit int) ([]model.Withdrawal, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    out := []model.Withdrawal{}
    for i := len(s.withdrawals) - 1; i >= 0 && len(out) < limit; i-- {
        out = append(out, s.withdrawals[i])
    }
    return out, nil
}
