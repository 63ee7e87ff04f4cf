package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/event-ticket-registry/internal/model"
	"github.com/iliyamo/event-ticket-registry/internal/registry"
)

// RegistryRepo keeps ticket ownership and metadata in the `tickets` table.
// It implements registry.Registry.
type RegistryRepo struct{ db *sql.DB }

func NewRegistryRepo(db *sql.DB) *RegistryRepo { return &RegistryRepo{db: db} }

// Mint inserts the ticket row.  The used flag starts at its column default.
func (r *RegistryRepo) Mint(ctx context.Context, to model.AccountID, id model.TicketID, uri string) error {
	if to == "" {
		return registry.ErrInvalidReceiver
	}
	_, err := conn(ctx, r.db).ExecContext(ctx,
		"INSERT INTO tickets (id, owner_account, metadata_uri) VALUES (?,?,?)",
		uint64(id), string(to), uri)
	if err != nil {
		if isDuplicateKey(err) {
			return registry.ErrTokenExists
		}
		return err
	}
	return nil
}

func (r *RegistryRepo) OwnerOf(ctx context.Context, id model.TicketID) (model.AccountID, error) {
	var owner string
	err := conn(ctx, r.db).QueryRowContext(ctx,
		"SELECT owner_account FROM tickets WHERE id=? LIMIT 1", uint64(id)).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return "", registry.ErrNonexistentToken
	}
	return model.AccountID(owner), err
}

func (r *RegistryRepo) MetadataOf(ctx context.Context, id model.TicketID) (string, error) {
	var uri string
	err := conn(ctx, r.db).QueryRowContext(ctx,
		"SELECT metadata_uri FROM tickets WHERE id=? LIMIT 1", uint64(id)).Scan(&uri)
	if errors.Is(err, sql.ErrNoRows) {
		return "", registry.ErrNonexistentToken
	}
	return uri, err
}

// Transfer locks the ticket row, checks the current owner and rewrites it.
func (r *RegistryRepo) Transfer(ctx context.Context, from, to model.AccountID, id model.TicketID) error {
	if to == "" {
		return registry.ErrInvalidReceiver
	}
	return withTx(ctx, r.db, func(ctx context.Context) error {
		q := conn(ctx, r.db)
		var owner string
		err := q.QueryRowContext(ctx,
			"SELECT owner_account FROM tickets WHERE id=? FOR UPDATE", uint64(id)).Scan(&owner)
		if errors.Is(err, sql.ErrNoRows) {
			return registry.ErrNonexistentToken
		}
		if err != nil {
			return err
		}
		if model.AccountID(owner) != from {
			return registry.ErrNotOwner
		}
		_, err = q.ExecContext(ctx,
			"UPDATE tickets SET owner_account=? WHERE id=?", string(to), uint64(id))
		return err
	})
}

// TokensOf returns the IDs of the tickets held by owner in ascending order.
func (r *RegistryRepo) TokensOf(ctx context.Context, owner model.AccountID) ([]model.TicketID, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx,
		"SELECT id FROM tickets WHERE owner_account=? ORDER BY id", string(owner))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := []model.TicketID{}
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, model.TicketID(id))
	}
	return ids, rows.Err()
}
