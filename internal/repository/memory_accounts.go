package repository

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/event-ticket-registry/internal/model"
	"github.com/iliyamo/event-ticket-registry/internal/utils"
	"github.com/iliyamo/event-ticket-registry/internal/wallet"
)

// MemoryAccounts stands in for AccountRepo and TokenRepo when the service
// runs without MySQL.  Balances live in the wrapped wallet so that custody
// payouts and /v1/me agree.
type MemoryAccounts struct {
	mu      sync.RWMutex
	nextID  uint64
	byID    map[uint64]model.Account
	byEmail map[string]uint64
	refresh map[string]memRefresh
	wallet  *wallet.Memory
	now     func() time.Time
}

type memRefresh struct {
	accountID uint64
	expires   time.Time
	revoked   bool
}

func NewMemoryAccounts(w *wallet.Memory) *MemoryAccounts {
	return &MemoryAccounts{
		nextID:  1,
		byID:    make(map[uint64]model.Account),
		byEmail: make(map[string]uint64),
		refresh: make(map[string]memRefresh),
		wallet:  w,
		now:     time.Now,
	}
}

func (m *MemoryAccounts) Create(_ context.Context, email, password, role string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[email]; ok {
		return 0, ErrEmailExists
	}
	id := m.nextID
	m.nextID++
	m.byID[id] = model.Account{ID: id, Email: email, PasswordHash: hash, Role: role, CreatedAt: m.now().UTC()}
	m.byEmail[email] = id
	return id, nil
}

func (m *MemoryAccounts) GetByEmail(ctx context.Context, email string) (model.Account, error) {
	m.mu.RLock()
	id, ok := m.byEmail[strings.ToLower(strings.TrimSpace(email))]
	m.mu.RUnlock()
	if !ok {
		return model.Account{}, ErrAccountNotFound
	}
	return m.GetByID(ctx, id)
}

func (m *MemoryAccounts) GetByID(ctx context.Context, id uint64) (model.Account, error) {
	m.mu.RLock()
	a, ok := m.byID[id]
	m.mu.RUnlock()
	if !ok {
		return model.Account{}, ErrAccountNotFound
	}
	bal, err := m.wallet.BalanceOf(ctx, model.AccountID(strconv.FormatUint(id, 10)))
	if err != nil {
		return model.Account{}, err
	}
	a.Balance = bal
	return a, nil
}

// Transfer credits a registered account.  Unknown accounts are refused so
// that a payout to a mistyped administrator fails instead of vanishing.
func (m *MemoryAccounts) Transfer(ctx context.Context, to model.AccountID, amount model.Amount) error {
	id, err := strconv.ParseUint(string(to), 10, 64)
	if err != nil {
		return ErrAccountNotFound
	}
	m.mu.RLock()
	_, ok := m.byID[id]
	m.mu.RUnlock()
	if !ok {
		return ErrAccountNotFound
	}
	return m.wallet.Transfer(ctx, to, amount)
}

func (m *MemoryAccounts) BalanceOf(ctx context.Context, account model.AccountID) (model.Amount, error) {
	return m.wallet.BalanceOf(ctx, account)
}

func (m *MemoryAccounts) StoreRefresh(_ context.Context, accountID uint64, tokenHash string, exp time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.refresh[tokenHash]; ok {
		return ErrConflict
	}
	m.refresh[tokenHash] = memRefresh{accountID: accountID, expires: exp}
	return nil
}

func (m *MemoryAccounts) ValidateRefresh(_ context.Context, tokenHash string, now time.Time) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.refresh[tokenHash]
	if !ok || r.revoked || now.After(r.expires) {
		return 0, ErrInvalidRefresh
	}
	return r.accountID, nil
}

func (m *MemoryAccounts) RevokeByHash(_ context.Context, tokenHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.refresh[tokenHash]; ok {
		r.revoked = true
		m.refresh[tokenHash] = r
	}
	return nil
}
