package registry

import (
    "context"
    "sort"
    "sync"

    "github.com/iliyamo/event-ticket-registry/internal/model"
)

type token struct {
    owner model.AccountID
    uri   string
}

// Memory is an in-process Registry.  It backs the memory store driver and
// the engine tests.
type Memory struct {
    mu     sync.RWMutex
    tokens map[model.TicketID]token
}

// NewMemory returns an empty in-memory registry.
func NewMemory() *Memory {
    return &Memory{tokens: make(map[model.TicketID]token)}
}

func (m *Memory) Mint(_ context.Context, to model.AccountID, id model.TicketID, uri string) error {
    if to == "" {
        return ErrInvalidReceiver
    }
    m.mu.Lock()
    defer m.mu.Unlock()
    if _, ok := m.tokens[id]; ok {
        return ErrTokenExists
    }
    m.tokens[id] = token{owner: to, uri: uri}
    return nil
}

func (m *Memory) OwnerOf(_ context.Context, id model.TicketID) (model.AccountID, error) {
    m.mu.RLock()
    defer m.mu.RUnlock()
    t, ok := m.tokens[id]
    if !ok {
        return "", ErrNonexistentToken
    }
    return t.owner, nil
}

func (m *Memory) MetadataOf(_ context.Context, id model.TicketID) (string, error) {
    m.mu.RLock()
    defer m.mu.RUnlock()
    t, ok := m.tokens[id]
    if !ok {
        return "", ErrNonexistentToken
    }
    return t.uri, nil
}

func (m *Memory) Transfer(_ context.Context, from, to model.AccountID, id model.TicketID) error {
    if to == "" {
        return ErrInvalidReceiver
    }
    m.mu.Lock()
    defer m.mu.Unlock()
    t, ok := m.tokens[id]
    if !ok {
        return ErrNonexistentToken
    }
    if t.owner != from {
        return ErrNotOwner
    }
    t.owner = to
    m.tokens[id] = t
    return nil
}

// BalanceOf counts the tokens owned by account.
func (m *Memory) BalanceOf(account model.AccountID) int {
    m.mu.RLock()
    defer m.mu.RUnlock()
    n := 0
    for _, t := range m.tokens {
        if t.owner == account {
            n++
        }
    }
    return n
}

// TokensOf returns the IDs owned by account in ascending order.
func (m *Memory) TokensOf(_ context.Context, account model.AccountID) ([]model.TicketID, error) {
    m.mu.RLock()
    defer m.mu.RUnlock()
    ids := []model.TicketID{}
    for id, t := range m.tokens {
        if t.owner == account {
            ids = append(ids, id)
        }
    }
    sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
    return ids, nil
}
