// Package ticket implements the ticket issuance and redemption engine.  The
// engine wraps a registry with a supply cap, price enforcement, a one-way
// used flag per ticket and custody of the collected payments.
//
// All mutations run under a single engine-wide lock, so issuances and
// redemptions are totally ordered.  Each mutation persists its record
// first, makes its external call (mint, payout) last inside the same store
// transaction, and commits its in-memory state only after both succeeded.
package ticket

import (
    "context"
    "errors"
    "fmt"
    "sync"
    "time"

    log "github.com/sirupsen/logrus"

    "github.com/iliyamo/event-ticket-registry/internal/model"
    "github.com/iliyamo/event-ticket-registry/internal/registry"
)

// Payout moves funds out of custody to an account.
type Payout interface {
    Transfer(ctx context.Context, to model.AccountID, amount model.Amount) error
}

// Options configures a new Engine.  Name, Symbol, Price, MaxTickets and
// Admin are only used on first start; afterwards the persisted state wins.
type Options struct {
    Name       string
    Symbol     string
    Price      model.Amount
    MaxTickets uint64
    Admin      model.AccountID
    // ResolveAdmin, when set, is called on first start only and its result
    // replaces Admin.  An error aborts the bootstrap.
    ResolveAdmin func(ctx context.Context) (model.AccountID, error)

    Registry  registry.Registry
    Payout    Payout
    Store     Store
    Publisher Publisher
    Logger    *log.Entry
    Now       func() time.Time
}

// Engine is the issuance and redemption state machine.
type Engine struct {
    registry  registry.Registry
    payout    Payout
    store     Store
    publisher Publisher
    logger    *log.Entry
    now       func() time.Time

    // pubMu orders publishing: the change numbered seq is published only
    // after published reaches seq-1.
    pubMu     sync.Mutex
    pubCond   *sync.Cond
    published uint64

    mu         sync.RWMutex
    seq        uint64
    name       string
    symbol     string
    price      model.Amount
    maxTickets uint64
    issued     uint64
    custody    model.Amount
    admin      model.AccountID
    used       []model.Redemption
}

// New restores the engine from opts.Store, bootstrapping it from opts when
// the store is empty.
func New(ctx context.Context, opts Options) (*Engine, error) {
    if opts.Registry == nil || opts.Payout == nil {
        return nil, errors.New("ticket: registry and payout are required")
    }
    e := &Engine{
        registry:  opts.Registry,
        payout:    opts.Payout,
        store:     opts.Store,
        publisher: opts.Publisher,
        logger:    opts.Logger,
        now:       opts.Now,
    }
    e.pubCond = sync.NewCond(&e.pubMu)
    if e.store == nil {
        e.store = NewMemoryStore()
    }
    if e.publisher == nil {
        e.publisher = NopPublisher{}
    }
    if e.logger == nil {
        e.logger = log.WithField("component", "ticket")
    }
    if e.now == nil {
        e.now = func() time.Time { return time.Now().UTC() }
    }

    st, found, err := e.store.Load(ctx)
    if err != nil {
        return nil, fmt.Errorf("load ticket state: %w", err)
    }
    if !found {
        admin := opts.Admin
        if opts.ResolveAdmin != nil {
            if admin, err = opts.ResolveAdmin(ctx); err != nil {
                return nil, fmt.Errorf("resolve administrator: %w", err)
            }
        }
        if admin == "" {
            return nil, ErrInvalidAccount
        }
        st = State{
            Name:       opts.Name,
            Symbol:     opts.Symbol,
            Price:      opts.Price,
            MaxTickets: opts.MaxTickets,
            Admin:      admin,
        }
        if err := e.store.Init(ctx, st); err != nil {
            return nil, fmt.Errorf("init ticket state: %w", err)
        }
        e.logger.WithFields(log.Fields{
            "name":        st.Name,
            "symbol":      st.Symbol,
            "price":       st.Price.String(),
            "max_tickets": st.MaxTickets,
            "admin":       st.Admin,
        }).Info("ticket collection bootstrapped")
    } else {
        if uint64(len(st.Used)) != st.Issued {
            return nil, fmt.Errorf("ticket state corrupt: %d redemption entries for %d issued tickets", len(st.Used), st.Issued)
        }
        if opts.MaxTickets != 0 && opts.MaxTickets != st.MaxTickets {
            e.logger.Warnf("configured max tickets %d ignored, collection cap is %d", opts.MaxTickets, st.MaxTickets)
        }
    }

    e.name = st.Name
    e.symbol = st.Symbol
    e.price = st.Price
    e.maxTickets = st.MaxTickets
    e.issued = st.Issued
    e.custody = st.Custody
    e.admin = st.Admin
    e.used = make([]model.Redemption, len(st.Used))
    for i, u := range st.Used {
        if u {
            e.used[i] = model.Used
        }
    }
    return e, nil
}

// commitSeq numbers a committed change.  Callers hold e.mu for writing.
func (e *Engine) commitSeq() uint64 {
    e.seq++
    return e.seq
}

// publish hands ev to the publisher once every earlier change has been
// handed over.  The change is already committed, so a delivery failure is
// logged and otherwise ignored.  Every seq from commitSeq must be published.
func (e *Engine) publish(ctx context.Context, seq uint64, ev Event) {
    e.pubMu.Lock()
    for e.published+1 != seq {
        e.pubCond.Wait()
    }
    e.pubMu.Unlock()

    ev.Seq = seq
    ev.At = e.now()
    if err := e.publisher.Publish(ctx, ev); err != nil {
        e.logger.WithError(err).WithField("event", ev.Type).Warn("publish event failed")
    }

    e.pubMu.Lock()
    e.published = seq
    e.pubCond.Broadcast()
    e.pubMu.Unlock()
}

// known reports whether id was issued.  Callers hold e.mu.
func (e *Engine) known(id model.TicketID) bool {
    return uint64(id) < e.issued
}

// registryErr maps registry failures onto engine failure kinds.
func registryErr(op string, id model.TicketID, err error) error {
    switch {
    case errors.Is(err, registry.ErrNonexistentToken):
        return ErrUnknownTicket
    case errors.Is(err, registry.ErrNotOwner):
        return ErrNotTicketOwner
    case errors.Is(err, registry.ErrInvalidReceiver):
        return ErrInvalidAccount
    }
    return fmt.Errorf("%s ticket %s: %w", op, id, err)
}
