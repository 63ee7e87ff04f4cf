package ticket

import (
    "context"
    "errors"
    "sync"

    "github.com/iliyamo/event-ticket-registry/internal/model"
    "github.com/iliyamo/event-ticket-registry/internal/registry"
)

var errInjected = errors.New("injected failure")

type flakyRegistry struct {
    *registry.Memory
    mintErr error
}

func (r *flakyRegistry) Mint(ctx context.Context, to model.AccountID, id model.TicketID, uri string) error {
    if r.mintErr != nil {
        return r.mintErr
    }
    return r.Memory.Mint(ctx, to, id, uri)
}

type flakyPayout struct {
    err  error
    paid map[model.AccountID]model.Amount
}

func newFlakyPayout() *flakyPayout {
    return &flakyPayout{paid: make(map[model.AccountID]model.Amount)}
}

func (p *flakyPayout) Transfer(_ context.Context, to model.AccountID, amount model.Amount) error {
    if p.err != nil {
        return p.err
    }
    p.paid[to] += amount
    return nil
}

type flakyStore struct {
    *MemoryStore
    issueErr, redeemErr, priceErr, adminErr, withdrawErr error
}

func (s *flakyStore) RecordIssue(ctx context.Context, rec IssueRecord) error {
    if s.issueErr != nil {
        return s.issueErr
    }
    return s.MemoryStore.RecordIssue(ctx, rec)
}

func (s *flakyStore) RecordRedeem(ctx context.Context, id model.TicketID) error {
    if s.redeemErr != nil {
        return s.redeemErr
    }
    return s.MemoryStore.RecordRedeem(ctx, id)
}

func (s *flakyStore) SavePrice(ctx context.Context, price model.Amount) error {
    if s.priceErr != nil {
        return s.priceErr
    }
    return s.MemoryStore.SavePrice(ctx, price)
}

func (s *flakyStore) SaveAdmin(ctx context.Context, admin model.AccountID) error {
    if s.adminErr != nil {
        return s.adminErr
    }
    return s.MemoryStore.SaveAdmin(ctx, admin)
}

func (s *flakyStore) RecordWithdrawal(ctx context.Context, w model.Withdrawal) error {
    if s.withdrawErr != nil {
        return s.withdrawErr
    }
    return s.MemoryStore.RecordWithdrawal(ctx, w)
}

type recordingPublisher struct {
    mu     sync.Mutex
    events []Event
    err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev Event) error {
    p.mu.Lock()
    defer p.mu.Unlock()
    p.events = append(p.events, ev)
    return p.err
}

func (p *recordingPublisher) types() []string {
    p.mu.Lock()
    defer p.mu.Unlock()
    out := make([]string, 0, len(p.events))
    for _, ev := range p.events {
        out = append(out, ev.Type)
    }
    return out
}
